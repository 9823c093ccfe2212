// Package analytics derives descriptive metrics from a parsed transcript
// timeline: per-speaker talk statistics and the directed turn-taking
// interaction graph.
//
// Every builder in this package is a pure fold over an immutable
// [transcript.Timeline] — no shared accumulators, no retained references —
// so derived views can be computed concurrently for independent transcripts
// without locking. They are snapshots: if a new Timeline is parsed, the
// views must be recomputed.
package analytics

import (
	"time"

	"github.com/meetplot/meetplot/internal/transcript"
)

// SpeakerStats aggregates one speaker's activity across a timeline.
type SpeakerStats struct {
	// Speaker is the canonical speaker label, including
	// [transcript.UnknownSpeaker] when unattributed segments exist.
	Speaker string `json:"speaker"`

	// TotalTalkTime is the sum of segment time ranges.
	TotalTalkTime time.Duration `json:"total_talk_time_ns"`

	// TurnCount is the number of segments attributed to the speaker.
	// Continuation cues were already merged during parsing, so a segment is
	// the unit of "taking the floor" here.
	TurnCount int `json:"turn_count"`

	// WordCount is the sum of segment word counts.
	WordCount int `json:"word_count"`

	// QuestionCount is the number of the speaker's segments flagged as
	// questions.
	QuestionCount int `json:"question_count"`
}

// AverageTurnDuration returns TotalTalkTime / TurnCount, or 0 for a speaker
// with no turns.
func (s SpeakerStats) AverageTurnDuration() time.Duration {
	if s.TurnCount == 0 {
		return 0
	}
	return s.TotalTalkTime / time.Duration(s.TurnCount)
}

// AverageTurnLength returns WordCount / TurnCount as a float, or 0 for a
// speaker with no turns.
func (s SpeakerStats) AverageTurnLength() float64 {
	if s.TurnCount == 0 {
		return 0
	}
	return float64(s.WordCount) / float64(s.TurnCount)
}

// SpeakerStatistics computes per-speaker aggregates in a single pass over
// the timeline. Speakers with zero segments do not appear — no synthesized
// zero rows. The map's iteration order is unspecified; callers that need a
// ranking must sort explicitly.
func SpeakerStatistics(tl *transcript.Timeline) map[string]SpeakerStats {
	stats := make(map[string]SpeakerStats, 8)
	for _, seg := range tl.Segments {
		s := stats[seg.Speaker]
		s.Speaker = seg.Speaker
		s.TotalTalkTime += seg.TalkTime()
		s.TurnCount++
		s.WordCount += seg.WordCount
		if seg.IsQuestion {
			s.QuestionCount++
		}
		stats[seg.Speaker] = s
	}
	return stats
}
