package resilience

import (
	"context"

	"github.com/meetplot/meetplot/pkg/provider/sentiment"
)

// SentimentFallback implements [sentiment.Provider] with automatic failover
// across multiple sentiment backends. Each backend has its own circuit
// breaker, so a dead VADER sidecar is bypassed in favour of the LLM scorer
// until its reset timeout elapses.
type SentimentFallback struct {
	group *FallbackGroup[sentiment.Provider]
}

// Compile-time interface assertion.
var _ sentiment.Provider = (*SentimentFallback)(nil)

// NewSentimentFallback creates a [SentimentFallback] with primary as the
// preferred backend.
func NewSentimentFallback(primary sentiment.Provider, primaryName string, cfg FallbackConfig) *SentimentFallback {
	return &SentimentFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional sentiment provider as a fallback.
func (f *SentimentFallback) AddFallback(name string, provider sentiment.Provider) {
	f.group.AddFallback(name, provider)
}

// Score scores text against the first healthy provider.
func (f *SentimentFallback) Score(ctx context.Context, text string) (sentiment.Scores, error) {
	return ExecuteWithResult(f.group, func(p sentiment.Provider) (sentiment.Scores, error) {
		return p.Score(ctx, text)
	})
}

// ScoreBatch scores texts against the first healthy provider. The whole
// batch fails over together; mixing scores from different backends inside
// one batch would skew per-speaker aggregates.
func (f *SentimentFallback) ScoreBatch(ctx context.Context, texts []string) ([]sentiment.Scores, error) {
	return ExecuteWithResult(f.group, func(p sentiment.Provider) ([]sentiment.Scores, error) {
		return p.ScoreBatch(ctx, texts)
	})
}

// Name identifies the composite in logs.
func (f *SentimentFallback) Name() string { return "fallback" }
