// Package report composes the multi-section analysis bundle for one parsed
// transcript.
//
// The structural sections (speaker statistics, interaction graph) are
// computed locally and always present. The enrichment sections (sentiment,
// named entities, speaker topics) come from external collaborators that are
// fetched concurrently; a collaborator failure degrades its section — the
// section is omitted and a warning recorded — but never aborts the report.
package report

import (
	"sort"
	"time"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/pkg/provider/sentiment"
	"github.com/meetplot/meetplot/pkg/provider/topics"
)

// SentimentPoint is one segment's sentiment sample on the report timeline.
type SentimentPoint struct {
	// Index and Speaker identify the scored segment.
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`

	// Offset is the segment's start offset from the beginning of the
	// recording.
	Offset time.Duration `json:"offset_ns"`

	Scores sentiment.Scores `json:"scores"`
}

// SentimentSection aggregates per-segment sentiment three ways: the raw
// timeline, per-speaker means, and the overall mean.
type SentimentSection struct {
	// Timeline holds one point per segment, in segment order.
	Timeline []SentimentPoint `json:"timeline"`

	// BySpeaker maps each speaker label to the mean of their segments'
	// scores.
	BySpeaker map[string]sentiment.Scores `json:"by_speaker"`

	// Overall is the mean across all segments.
	Overall sentiment.Scores `json:"overall"`
}

// Report is the complete analysis bundle for one transcript.
//
// Stats and Graph are always populated. Sentiment, Entities, and Topics are
// nil when the corresponding collaborator is not configured or failed;
// Warnings says which.
type Report struct {
	// Duration is the timeline duration.
	Duration time.Duration `json:"duration_ns"`

	// Stats holds per-speaker aggregates sorted alphabetically by speaker.
	Stats []analytics.SpeakerStats `json:"stats"`

	// Graph is the interaction graph.
	Graph *analytics.InteractionGraph `json:"graph"`

	// Sentiment is the sentiment section, nil when unavailable.
	Sentiment *SentimentSection `json:"sentiment,omitempty"`

	// Entities maps entity labels (PERSON, ORG, …) to the distinct surface
	// forms found in the transcript. Nil when unavailable.
	Entities map[string][]string `json:"entities,omitempty"`

	// Topics maps each speaker to their top keywords by descending weight,
	// linking participants to what they talked about. Nil when unavailable.
	Topics map[string][]topics.Keyword `json:"topics,omitempty"`

	// Warnings carries parse warnings plus one warning per degraded
	// section.
	Warnings []string `json:"warnings,omitempty"`
}

// sortedStats flattens a stats map into a slice sorted by speaker label.
func sortedStats(stats map[string]analytics.SpeakerStats) []analytics.SpeakerStats {
	out := make([]analytics.SpeakerStats, 0, len(stats))
	for _, st := range stats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Speaker < out[j].Speaker })
	return out
}

// meanScores returns the component-wise mean of scores, or zero when scores
// is empty.
func meanScores(scores []sentiment.Scores) sentiment.Scores {
	if len(scores) == 0 {
		return sentiment.Scores{}
	}
	var sum sentiment.Scores
	for _, s := range scores {
		sum.Negative += s.Negative
		sum.Neutral += s.Neutral
		sum.Positive += s.Positive
		sum.Compound += s.Compound
	}
	n := float64(len(scores))
	return sentiment.Scores{
		Negative: sum.Negative / n,
		Neutral:  sum.Neutral / n,
		Positive: sum.Positive / n,
		Compound: sum.Compound / n,
	}
}
