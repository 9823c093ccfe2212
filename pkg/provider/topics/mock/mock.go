// Package mock provides a test double for the topics.Provider interface.
package mock

import (
	"context"
	"maps"
	"sync"

	"github.com/meetplot/meetplot/pkg/provider/topics"
)

// KeywordsCall records a single invocation of Keywords.
type KeywordsCall struct {
	// Ctx is the context passed to Keywords.
	Ctx context.Context
	// SpeakerTexts is a copy of the map passed to Keywords.
	SpeakerTexts map[string]string
	// TopTerms is the requested keyword count.
	TopTerms int
}

// Provider is a mock implementation of topics.Provider.
type Provider struct {
	mu sync.Mutex

	// KeywordsResult is returned by Keywords. If nil, an empty map is returned.
	KeywordsResult map[string][]topics.Keyword

	// KeywordsErr, if non-nil, is returned as the error from Keywords.
	KeywordsErr error

	// NameValue is returned by Name. Defaults to "mock" when empty.
	NameValue string

	// KeywordsCalls records every call to Keywords in order.
	KeywordsCalls []KeywordsCall
}

// Keywords records the call and returns KeywordsResult, KeywordsErr.
func (p *Provider) Keywords(ctx context.Context, speakerTexts map[string]string, topTerms int) (map[string][]topics.Keyword, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.KeywordsCalls = append(p.KeywordsCalls, KeywordsCall{
		Ctx:          ctx,
		SpeakerTexts: maps.Clone(speakerTexts),
		TopTerms:     topTerms,
	})
	if p.KeywordsErr != nil {
		return nil, p.KeywordsErr
	}
	if p.KeywordsResult != nil {
		return p.KeywordsResult, nil
	}
	return map[string][]topics.Keyword{}, nil
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
	p.KeywordsCalls = nil
}

// Ensure Provider implements topics.Provider at compile time.
var _ topics.Provider = (*Provider)(nil)
