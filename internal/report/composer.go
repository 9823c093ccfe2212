package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/internal/observe"
	"github.com/meetplot/meetplot/internal/transcript"
	"github.com/meetplot/meetplot/pkg/provider/ner"
	"github.com/meetplot/meetplot/pkg/provider/sentiment"
	"github.com/meetplot/meetplot/pkg/provider/topics"
)

// Composer builds a [Report] from a parsed timeline by fanning out to the
// configured collaborators concurrently.
//
// Every collaborator is optional: a nil provider simply leaves its section
// out of the report, without a warning. A configured provider that returns
// an error leaves its section out with a warning.
type Composer struct {
	sentiment    sentiment.Provider
	ner          ner.Provider
	topics       topics.Provider
	topTerms     int
	entityLabels []string
	graphOpts    []analytics.GraphOption
	metrics      *observe.Metrics
	logger       *slog.Logger
}

// Option is a functional option for [NewComposer].
type Option func(*Composer)

// WithSentiment sets the sentiment collaborator.
func WithSentiment(p sentiment.Provider) Option {
	return func(c *Composer) { c.sentiment = p }
}

// WithNER sets the named-entity recognition collaborator.
func WithNER(p ner.Provider) Option {
	return func(c *Composer) { c.ner = p }
}

// WithTopics sets the speaker-topic keyword collaborator.
func WithTopics(p topics.Provider) Option {
	return func(c *Composer) { c.topics = p }
}

// WithTopTerms overrides how many keywords are requested per speaker.
// Defaults to [topics.DefaultTopTerms].
func WithTopTerms(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.topTerms = n
		}
	}
}

// WithEntityLabels overrides the entity labels requested from the NER
// collaborator. Defaults to [ner.DefaultLabels].
func WithEntityLabels(labels []string) Option {
	return func(c *Composer) {
		if len(labels) > 0 {
			c.entityLabels = labels
		}
	}
}

// WithGraphOptions sets the options passed to
// [analytics.BuildInteractionGraph] for every report.
func WithGraphOptions(opts ...analytics.GraphOption) Option {
	return func(c *Composer) { c.graphOpts = opts }
}

// WithMetrics sets the metrics sink for collaborator request accounting.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Composer) { c.metrics = m }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a [Composer]. Apply [Option] values to configure
// collaborators; a Composer without any produces structural sections only.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		entityLabels: ner.DefaultLabels,
		topTerms:     topics.DefaultTopTerms,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Compose derives the structural sections from tl and fetches the
// enrichment sections from the collaborators in parallel.
//
// The collaborator goroutines never propagate an error into the group: a
// failed collaborator degrades its section to absent and appends a warning,
// so one slow-or-broken sidecar cannot take down the whole report. Compose
// itself therefore never fails.
func (c *Composer) Compose(ctx context.Context, tl *transcript.Timeline, parseWarnings []string) *Report {
	start := time.Now()

	stats := analytics.SpeakerStatistics(tl)
	graph := analytics.BuildInteractionGraph(tl, c.graphOpts...)
	c.metrics.AnalyticsDuration.Record(ctx, time.Since(start).Seconds())

	rep := &Report{
		Duration: tl.Duration,
		Stats:    sortedStats(stats),
		Graph:    graph,
		Warnings: append([]string(nil), parseWarnings...),
	}

	var (
		sentimentSection *SentimentSection
		sentimentErr     error
		entities         map[string][]string
		entitiesErr      error
		speakerTopics    map[string][]topics.Keyword
		topicsErr        error
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if c.sentiment != nil && len(tl.Segments) > 0 {
		eg.Go(func() error {
			sentimentSection, sentimentErr = c.scoreSentiment(egCtx, tl)
			return nil
		})
	}

	if c.ner != nil && len(tl.Segments) > 0 {
		eg.Go(func() error {
			entities, entitiesErr = c.extractEntities(egCtx, tl)
			return nil
		})
	}

	if c.topics != nil && len(tl.Segments) > 0 {
		eg.Go(func() error {
			speakerTopics, topicsErr = c.extractTopics(egCtx, tl)
			return nil
		})
	}

	// Goroutines always return nil; Wait only synchronizes.
	_ = eg.Wait()

	if sentimentErr != nil {
		c.logger.Warn("sentiment section degraded", "error", sentimentErr)
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("sentiment unavailable: %v", sentimentErr))
	} else {
		rep.Sentiment = sentimentSection
	}
	if entitiesErr != nil {
		c.logger.Warn("entity section degraded", "error", entitiesErr)
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("entities unavailable: %v", entitiesErr))
	} else {
		rep.Entities = entities
	}
	if topicsErr != nil {
		c.logger.Warn("topic section degraded", "error", topicsErr)
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("topics unavailable: %v", topicsErr))
	} else {
		rep.Topics = speakerTopics
	}

	c.metrics.ReportDuration.Record(ctx, time.Since(start).Seconds())
	return rep
}

// scoreSentiment scores every segment in one batch call and folds the
// results into the three sentiment views.
func (c *Composer) scoreSentiment(ctx context.Context, tl *transcript.Timeline) (*SentimentSection, error) {
	texts := make([]string, len(tl.Segments))
	for i, seg := range tl.Segments {
		texts[i] = seg.Text
	}

	scores, err := c.sentiment.ScoreBatch(ctx, texts)
	if err != nil {
		c.metrics.RecordProviderError(ctx, c.sentiment.Name(), "sentiment")
		return nil, fmt.Errorf("report: score segments: %w", err)
	}
	if len(scores) != len(texts) {
		c.metrics.RecordProviderError(ctx, c.sentiment.Name(), "sentiment")
		return nil, fmt.Errorf("report: score segments: got %d scores for %d segments", len(scores), len(texts))
	}
	c.metrics.RecordProviderRequest(ctx, c.sentiment.Name(), "sentiment", "ok")

	section := &SentimentSection{
		Timeline:  make([]SentimentPoint, len(scores)),
		BySpeaker: make(map[string]sentiment.Scores),
	}
	bySpeaker := make(map[string][]sentiment.Scores)
	for i, s := range scores {
		seg := tl.Segments[i]
		section.Timeline[i] = SentimentPoint{
			Index:   seg.Index,
			Speaker: seg.Speaker,
			Offset:  seg.Start,
			Scores:  s,
		}
		bySpeaker[seg.Speaker] = append(bySpeaker[seg.Speaker], s)
	}
	for speaker, ss := range bySpeaker {
		section.BySpeaker[speaker] = meanScores(ss)
	}
	section.Overall = meanScores(scores)
	return section, nil
}

// extractEntities runs NER over the compacted transcript text.
func (c *Composer) extractEntities(ctx context.Context, tl *transcript.Timeline) (map[string][]string, error) {
	entities, err := c.ner.Extract(ctx, tl.CompactText(), c.entityLabels)
	if err != nil {
		c.metrics.RecordProviderError(ctx, c.ner.Name(), "ner")
		return nil, fmt.Errorf("report: extract entities: %w", err)
	}
	c.metrics.RecordProviderRequest(ctx, c.ner.Name(), "ner", "ok")
	return entities, nil
}

// extractTopics asks the keyword collaborator for each speaker's top terms,
// handing it one concatenated document per speaker.
func (c *Composer) extractTopics(ctx context.Context, tl *transcript.Timeline) (map[string][]topics.Keyword, error) {
	kw, err := c.topics.Keywords(ctx, tl.TextBySpeaker(), c.topTerms)
	if err != nil {
		c.metrics.RecordProviderError(ctx, c.topics.Name(), "topics")
		return nil, fmt.Errorf("report: extract topics: %w", err)
	}
	c.metrics.RecordProviderRequest(ctx, c.topics.Name(), "topics", "ok")
	return kw, nil
}
