package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/meetplot/meetplot/internal/observe"
	"github.com/meetplot/meetplot/internal/report"
	"github.com/meetplot/meetplot/internal/transcript"
	"github.com/meetplot/meetplot/pkg/provider/ner"
	nermock "github.com/meetplot/meetplot/pkg/provider/ner/mock"
	"github.com/meetplot/meetplot/pkg/provider/sentiment"
	sentmock "github.com/meetplot/meetplot/pkg/provider/sentiment/mock"
	"github.com/meetplot/meetplot/pkg/provider/topics"
	topicsmock "github.com/meetplot/meetplot/pkg/provider/topics/mock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// parseFixture parses a small three-speaker transcript.
func parseFixture(t *testing.T) *transcript.Timeline {
	t.Helper()
	input := strings.Join([]string{
		"00:00:00.000 --> 00:00:02.000",
		"Alice: Shall we review the budget?",
		"",
		"00:00:03.000 --> 00:00:06.000",
		"Bob: The numbers from Acme look solid.",
		"",
		"00:00:07.000 --> 00:00:09.000",
		"Alice: Great, the rollout can proceed.",
		"",
	}, "\n")
	tl, warnings := transcript.Parse(input)
	if len(warnings) != 0 {
		t.Fatalf("unexpected parse warnings: %v", warnings)
	}
	return tl
}

func TestCompose_StructuralSectionsAlwaysPresent(t *testing.T) {
	t.Parallel()

	c := report.NewComposer()
	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Duration != 9*time.Second {
		t.Errorf("Duration: want 9s, got %v", rep.Duration)
	}
	if len(rep.Stats) != 2 {
		t.Fatalf("Stats: want 2 rows, got %d", len(rep.Stats))
	}
	if rep.Stats[0].Speaker != "Alice" || rep.Stats[1].Speaker != "Bob" {
		t.Errorf("Stats order: got %s, %s", rep.Stats[0].Speaker, rep.Stats[1].Speaker)
	}
	if rep.Graph == nil || len(rep.Graph.Nodes) != 2 {
		t.Errorf("Graph: got %+v", rep.Graph)
	}
	// No collaborators configured: sections absent, no warnings.
	if rep.Sentiment != nil {
		t.Error("Sentiment: want nil without a provider")
	}
	if rep.Entities != nil {
		t.Error("Entities: want nil without a provider")
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("Warnings: want none, got %v", rep.Warnings)
	}
}

func TestCompose_SentimentSection(t *testing.T) {
	t.Parallel()

	sent := &sentmock.Provider{
		ScoreBatchResult: []sentiment.Scores{
			{Positive: 0.2, Neutral: 0.8, Compound: 0.3},
			{Positive: 0.6, Neutral: 0.4, Compound: 0.5},
			{Positive: 1.0, Compound: 0.9},
		},
	}
	c := report.NewComposer(report.WithSentiment(sent))
	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Sentiment == nil {
		t.Fatal("Sentiment: want section")
	}
	if len(rep.Sentiment.Timeline) != 3 {
		t.Fatalf("Timeline: want 3 points, got %d", len(rep.Sentiment.Timeline))
	}
	p := rep.Sentiment.Timeline[1]
	if p.Index != 1 || p.Speaker != "Bob" || p.Offset != 3*time.Second {
		t.Errorf("point 1: got %+v", p)
	}
	// Alice's mean over segments 0 and 2.
	alice := rep.Sentiment.BySpeaker["Alice"]
	if want := (0.3 + 0.9) / 2; !closeTo(alice.Compound, want) {
		t.Errorf("Alice compound: want %v, got %v", want, alice.Compound)
	}
	if want := (0.3 + 0.5 + 0.9) / 3; !closeTo(rep.Sentiment.Overall.Compound, want) {
		t.Errorf("Overall compound: want %v, got %v", want, rep.Sentiment.Overall.Compound)
	}
	// One batch call carrying every segment text.
	if len(sent.ScoreBatchCalls) != 1 {
		t.Fatalf("ScoreBatch calls: want 1, got %d", len(sent.ScoreBatchCalls))
	}
	if texts := sent.ScoreBatchCalls[0].Texts; len(texts) != 3 || texts[0] != "Shall we review the budget?" {
		t.Errorf("batch texts: got %v", texts)
	}
}

func TestCompose_EntitySection(t *testing.T) {
	t.Parallel()

	nerp := &nermock.Provider{
		ExtractResult: map[string][]string{"ORG": {"Acme"}},
	}
	c := report.NewComposer(report.WithNER(nerp))
	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Entities == nil || rep.Entities["ORG"][0] != "Acme" {
		t.Fatalf("Entities: got %v", rep.Entities)
	}
	if len(nerp.ExtractCalls) != 1 {
		t.Fatalf("Extract calls: want 1, got %d", len(nerp.ExtractCalls))
	}
	call := nerp.ExtractCalls[0]
	// The compacted transcript, not individual segments.
	if !strings.Contains(call.Text, "budget?") || !strings.Contains(call.Text, "rollout") {
		t.Errorf("Extract text: got %q", call.Text)
	}
	if len(call.Labels) != len(ner.DefaultLabels) {
		t.Errorf("labels: want defaults, got %v", call.Labels)
	}
}

func TestCompose_TopicsSection(t *testing.T) {
	t.Parallel()

	top := &topicsmock.Provider{
		KeywordsResult: map[string][]topics.Keyword{
			"Alice": {{Term: "budget", Weight: 0.7}, {Term: "rollout", Weight: 0.4}},
			"Bob":   {{Term: "numbers", Weight: 0.6}},
		},
	}
	c := report.NewComposer(report.WithTopics(top))
	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Topics == nil {
		t.Fatal("Topics: want section")
	}
	if got := rep.Topics["Alice"]; len(got) != 2 || got[0].Term != "budget" {
		t.Errorf("Alice topics: got %v", got)
	}
	if len(top.KeywordsCalls) != 1 {
		t.Fatalf("Keywords calls: want 1, got %d", len(top.KeywordsCalls))
	}
	call := top.KeywordsCalls[0]
	// One concatenated document per speaker, at the default term count.
	if call.SpeakerTexts["Alice"] != "Shall we review the budget? Great, the rollout can proceed." {
		t.Errorf("Alice text: got %q", call.SpeakerTexts["Alice"])
	}
	if call.SpeakerTexts["Bob"] != "The numbers from Acme look solid." {
		t.Errorf("Bob text: got %q", call.SpeakerTexts["Bob"])
	}
	if call.TopTerms != topics.DefaultTopTerms {
		t.Errorf("top terms: want %d, got %d", topics.DefaultTopTerms, call.TopTerms)
	}
}

func TestCompose_TopTermsConfigurable(t *testing.T) {
	t.Parallel()

	top := &topicsmock.Provider{}
	c := report.NewComposer(report.WithTopics(top), report.WithTopTerms(3))
	c.Compose(context.Background(), parseFixture(t), nil)

	if got := top.KeywordsCalls[0].TopTerms; got != 3 {
		t.Errorf("top terms: want 3, got %d", got)
	}
}

func TestCompose_TopicsFailureDegradesSection(t *testing.T) {
	t.Parallel()

	top := &topicsmock.Provider{KeywordsErr: errors.New("vectorizer down")}
	c := report.NewComposer(report.WithTopics(top))

	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Topics != nil {
		t.Error("Topics: want nil after provider failure")
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], "topics unavailable") {
		t.Errorf("Warnings: got %v", rep.Warnings)
	}
	if len(rep.Stats) != 2 || rep.Graph == nil {
		t.Error("structural sections missing")
	}
}

func TestCompose_CustomEntityLabels(t *testing.T) {
	t.Parallel()

	nerp := &nermock.Provider{}
	c := report.NewComposer(report.WithNER(nerp), report.WithEntityLabels([]string{"PERSON"}))
	c.Compose(context.Background(), parseFixture(t), nil)

	if got := nerp.ExtractCalls[0].Labels; len(got) != 1 || got[0] != "PERSON" {
		t.Errorf("labels: want [PERSON], got %v", got)
	}
}

func TestCompose_ProviderFailureDegradesSection(t *testing.T) {
	t.Parallel()

	sent := &sentmock.Provider{ScoreBatchErr: errors.New("sidecar down")}
	nerp := &nermock.Provider{ExtractResult: map[string][]string{"PERSON": {"Alice"}}}
	c := report.NewComposer(report.WithSentiment(sent), report.WithNER(nerp))

	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Sentiment != nil {
		t.Error("Sentiment: want nil after provider failure")
	}
	// The healthy collaborator's section survives.
	if rep.Entities == nil {
		t.Error("Entities: want section despite sentiment failure")
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], "sentiment unavailable") {
		t.Errorf("Warnings: got %v", rep.Warnings)
	}
	// Stats and graph are untouched by collaborator failures.
	if len(rep.Stats) != 2 || rep.Graph == nil {
		t.Error("structural sections missing")
	}
}

func TestCompose_ScoreCountMismatchDegrades(t *testing.T) {
	t.Parallel()

	sent := &sentmock.Provider{ScoreBatchResult: []sentiment.Scores{{Compound: 0.5}}}
	c := report.NewComposer(report.WithSentiment(sent))

	rep := c.Compose(context.Background(), parseFixture(t), nil)

	if rep.Sentiment != nil {
		t.Error("Sentiment: want nil on mismatched score count")
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], "1 scores for 3 segments") {
		t.Errorf("Warnings: got %v", rep.Warnings)
	}
}

func TestCompose_ParseWarningsCarriedThrough(t *testing.T) {
	t.Parallel()

	c := report.NewComposer()
	rep := c.Compose(context.Background(), parseFixture(t), []string{"skipped 1 malformed cue"})

	if len(rep.Warnings) != 1 || rep.Warnings[0] != "skipped 1 malformed cue" {
		t.Errorf("Warnings: got %v", rep.Warnings)
	}
}

func TestCompose_EmptyTimelineSkipsCollaborators(t *testing.T) {
	t.Parallel()

	sent := &sentmock.Provider{}
	nerp := &nermock.Provider{}
	top := &topicsmock.Provider{}
	c := report.NewComposer(report.WithSentiment(sent), report.WithNER(nerp), report.WithTopics(top))

	rep := c.Compose(context.Background(), &transcript.Timeline{}, nil)

	if len(sent.ScoreBatchCalls) != 0 {
		t.Error("ScoreBatch: want no calls for an empty timeline")
	}
	if len(nerp.ExtractCalls) != 0 {
		t.Error("Extract: want no calls for an empty timeline")
	}
	if len(top.KeywordsCalls) != 0 {
		t.Error("Keywords: want no calls for an empty timeline")
	}
	if len(rep.Stats) != 0 || rep.Graph == nil {
		t.Errorf("empty report: stats %v, graph %v", rep.Stats, rep.Graph)
	}
}

func TestCompose_RecordsStageDurations(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	met, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	c := report.NewComposer(report.WithMetrics(met))
	c.Compose(context.Background(), parseFixture(t), nil)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, name := range []string{"meetplot.analytics.duration", "meetplot.report.duration"} {
		hist, ok := histogramByName(rm, name)
		if !ok {
			t.Errorf("metric %q not recorded", name)
			continue
		}
		if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
			t.Errorf("metric %q: want 1 sample, got %+v", name, hist.DataPoints)
		}
	}
}

func histogramByName(rm metricdata.ResourceMetrics, name string) (metricdata.Histogram[float64], bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				hist, ok := m.Data.(metricdata.Histogram[float64])
				return hist, ok
			}
		}
	}
	return metricdata.Histogram[float64]{}, false
}

func closeTo(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
