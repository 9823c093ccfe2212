// Package mock is an in-memory embeddings.Provider for tests: canned vectors
// out, recorded calls in, no model anywhere near the test.
//
//	p := &mock.Provider{
//		EmbedResult:     []float32{0.1, 0.2, 0.3},
//		DimensionsValue: 3,
//		ModelIDValue:    "test-embed-v1",
//	}
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/meetplot/meetplot/pkg/provider/embeddings"
)

var _ embeddings.Provider = (*Provider)(nil)

// EmbedCall is one recorded Embed invocation.
type EmbedCall struct {
	Ctx  context.Context
	Text string
}

// EmbedBatchCall is one recorded EmbedBatch invocation. Texts is a copy, so
// later mutation of the caller's slice cannot corrupt the record.
type EmbedBatchCall struct {
	Ctx   context.Context
	Texts []string
}

// Provider implements embeddings.Provider with fixed responses. Configure the
// exported response fields before use; the recorded-call slices fill in as
// the code under test runs. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Responses. A nil EmbedBatchResult yields one nil vector per input
	// text, which keeps length-checking callers happy without setup.
	EmbedResult      []float32
	EmbedErr         error
	EmbedBatchResult [][]float32
	EmbedBatchErr    error
	DimensionsValue  int
	ModelIDValue     string

	// Recorded calls, in order.
	EmbedCalls      []EmbedCall
	EmbedBatchCalls []EmbedBatchCall
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, EmbedCall{Ctx: ctx, Text: text})
	return p.EmbedResult, p.EmbedErr
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, EmbedBatchCall{
		Ctx:   ctx,
		Texts: slices.Clone(texts),
	})
	switch {
	case p.EmbedBatchErr != nil:
		return nil, p.EmbedBatchErr
	case p.EmbedBatchResult != nil:
		return p.EmbedBatchResult, nil
	default:
		return make([][]float32, len(texts)), nil
	}
}

func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DimensionsValue
}

func (p *Provider) ModelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelIDValue
}

// Reset drops the recorded calls, keeping the configured responses.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = nil
	p.EmbedBatchCalls = nil
}
