// Package mock provides a test double for the ner.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/meetplot/meetplot/pkg/provider/ner"
)

// ExtractCall records a single invocation of Extract.
type ExtractCall struct {
	// Ctx is the context passed to Extract.
	Ctx context.Context
	// Text is the string passed to Extract.
	Text string
	// Labels is a copy of the label slice passed to Extract.
	Labels []string
}

// Provider is a mock implementation of ner.Provider.
type Provider struct {
	mu sync.Mutex

	// ExtractResult is returned by Extract. If nil, an empty map is returned.
	ExtractResult map[string][]string

	// ExtractErr, if non-nil, is returned as the error from Extract.
	ExtractErr error

	// NameValue is returned by Name. Defaults to "mock" when empty.
	NameValue string

	// ExtractCalls records every call to Extract in order.
	ExtractCalls []ExtractCall
}

// Extract records the call and returns ExtractResult, ExtractErr.
func (p *Provider) Extract(ctx context.Context, text string, labels []string) (map[string][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(labels))
	copy(cp, labels)
	p.ExtractCalls = append(p.ExtractCalls, ExtractCall{Ctx: ctx, Text: text, Labels: cp})
	if p.ExtractErr != nil {
		return nil, p.ExtractErr
	}
	if p.ExtractResult != nil {
		return p.ExtractResult, nil
	}
	return map[string][]string{}, nil
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
	p.ExtractCalls = nil
}

// Ensure Provider implements ner.Provider at compile time.
var _ ner.Provider = (*Provider)(nil)
