// Package mock provides a test double for the sentiment.Provider interface.
//
// Use Provider to return pre-canned scores without a live backend and to
// verify that the correct texts are submitted for scoring.
//
// Example:
//
//	p := &mock.Provider{
//	    ScoreResult: sentiment.Scores{Positive: 0.8, Neutral: 0.2, Compound: 0.7},
//	}
//	s, _ := p.Score(ctx, "great meeting")
package mock

import (
	"context"
	"sync"

	"github.com/meetplot/meetplot/pkg/provider/sentiment"
)

// ScoreCall records a single invocation of Score.
type ScoreCall struct {
	// Ctx is the context passed to Score.
	Ctx context.Context
	// Text is the string passed to Score.
	Text string
}

// ScoreBatchCall records a single invocation of ScoreBatch.
type ScoreBatchCall struct {
	// Ctx is the context passed to ScoreBatch.
	Ctx context.Context
	// Texts is a copy of the string slice passed to ScoreBatch.
	Texts []string
}

// Provider is a mock implementation of sentiment.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ScoreResult is returned by Score.
	ScoreResult sentiment.Scores

	// ScoreErr, if non-nil, is returned as the error from Score.
	ScoreErr error

	// ScoreBatchResult is returned by ScoreBatch. If nil, a slice of zero
	// scores matching the input length is returned.
	ScoreBatchResult []sentiment.Scores

	// ScoreBatchErr, if non-nil, is returned as the error from ScoreBatch.
	ScoreBatchErr error

	// NameValue is returned by Name. Defaults to "mock" when empty.
	NameValue string

	// --- Call records ---

	// ScoreCalls records every call to Score in order.
	ScoreCalls []ScoreCall

	// ScoreBatchCalls records every call to ScoreBatch in order.
	ScoreBatchCalls []ScoreBatchCall
}

// Score records the call and returns ScoreResult, ScoreErr.
func (p *Provider) Score(ctx context.Context, text string) (sentiment.Scores, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ScoreCalls = append(p.ScoreCalls, ScoreCall{Ctx: ctx, Text: text})
	if p.ScoreErr != nil {
		return sentiment.Scores{}, p.ScoreErr
	}
	return p.ScoreResult, nil
}

// ScoreBatch records the call and returns ScoreBatchResult, ScoreBatchErr.
// If ScoreBatchResult is nil, it returns zero scores matching the length of
// texts.
func (p *Provider) ScoreBatch(ctx context.Context, texts []string) ([]sentiment.Scores, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.ScoreBatchCalls = append(p.ScoreBatchCalls, ScoreBatchCall{Ctx: ctx, Texts: cp})
	if p.ScoreBatchErr != nil {
		return nil, p.ScoreBatchErr
	}
	if p.ScoreBatchResult != nil {
		return p.ScoreBatchResult, nil
	}
	return make([]sentiment.Scores, len(texts)), nil
}

// Name returns NameValue, or "mock" when unset.
func (p *Provider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NameValue != "" {
		return p.NameValue
	}
	return "mock"
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ScoreCalls = nil
	p.ScoreBatchCalls = nil
}

// Ensure Provider implements sentiment.Provider at compile time.
var _ sentiment.Provider = (*Provider)(nil)
