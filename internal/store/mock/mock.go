// Package mock provides in-memory test doubles for the store interfaces.
//
// Each mock records every method call for assertion in tests and exposes
// exported fields that control what the mock returns. All mocks are safe for
// concurrent use via an internal [sync.Mutex].
//
// Typical usage:
//
//	st := &mock.AnalysisStore{}
//	st.GetAnalysisResult = store.Analysis{ID: "a1"}
//
//	// inject st into the system under test …
//
//	if got := st.CallCount("GetAnalysis"); got != 1 {
//	    t.Errorf("expected 1 GetAnalysis call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/meetplot/meetplot/internal/store"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// AnalysisStore is a configurable test double for [store.AnalysisStore].
// All exported *Err fields default to nil (success); all exported *Result
// fields default to their zero value.
type AnalysisStore struct {
	mu    sync.Mutex
	calls []Call

	// SaveAnalysisErr is returned by [AnalysisStore.SaveAnalysis] when
	// non-nil.
	SaveAnalysisErr error

	// GetAnalysisResult is returned by [AnalysisStore.GetAnalysis].
	GetAnalysisResult store.Analysis

	// GetAnalysisErr is returned by [AnalysisStore.GetAnalysis] when
	// non-nil. Set it to [store.ErrNotFound] to simulate a miss.
	GetAnalysisErr error

	// ListAnalysesResult is returned by [AnalysisStore.ListAnalyses].
	// When nil, ListAnalyses returns an empty non-nil slice.
	ListAnalysesResult []store.AnalysisSummary

	// ListAnalysesErr is returned by [AnalysisStore.ListAnalyses] when
	// non-nil.
	ListAnalysesErr error

	// SearchSegmentsResult is returned by [AnalysisStore.SearchSegments].
	// When nil, SearchSegments returns an empty non-nil slice.
	SearchSegmentsResult []store.SegmentHit

	// SearchSegmentsErr is returned by [AnalysisStore.SearchSegments] when
	// non-nil.
	SearchSegmentsErr error
}

var _ store.AnalysisStore = (*AnalysisStore)(nil)

// Calls returns a copy of all recorded method invocations.
func (m *AnalysisStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded invocations of method.
func (m *AnalysisStore) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls.
func (m *AnalysisStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *AnalysisStore) record(method string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Args: args})
}

// SaveAnalysis implements [store.AnalysisStore].
func (m *AnalysisStore) SaveAnalysis(_ context.Context, a store.Analysis) error {
	m.record("SaveAnalysis", a)
	return m.SaveAnalysisErr
}

// GetAnalysis implements [store.AnalysisStore].
func (m *AnalysisStore) GetAnalysis(_ context.Context, id string) (store.Analysis, error) {
	m.record("GetAnalysis", id)
	if m.GetAnalysisErr != nil {
		return store.Analysis{}, m.GetAnalysisErr
	}
	return m.GetAnalysisResult, nil
}

// ListAnalyses implements [store.AnalysisStore].
func (m *AnalysisStore) ListAnalyses(_ context.Context, limit int) ([]store.AnalysisSummary, error) {
	m.record("ListAnalyses", limit)
	if m.ListAnalysesErr != nil {
		return nil, m.ListAnalysesErr
	}
	if m.ListAnalysesResult == nil {
		return []store.AnalysisSummary{}, nil
	}
	return m.ListAnalysesResult, nil
}

// SearchSegments implements [store.AnalysisStore].
func (m *AnalysisStore) SearchSegments(_ context.Context, query string, opts store.SearchOpts) ([]store.SegmentHit, error) {
	m.record("SearchSegments", query, opts)
	if m.SearchSegmentsErr != nil {
		return nil, m.SearchSegmentsErr
	}
	if m.SearchSegmentsResult == nil {
		return []store.SegmentHit{}, nil
	}
	return m.SearchSegmentsResult, nil
}

// SemanticIndex is a configurable test double for [store.SemanticIndex].
type SemanticIndex struct {
	mu    sync.Mutex
	calls []Call

	// IndexSegmentErr is returned by [SemanticIndex.IndexSegment] when
	// non-nil.
	IndexSegmentErr error

	// SearchResult is returned by [SemanticIndex.Search].
	// When nil, Search returns an empty non-nil slice.
	SearchResult []store.SemanticHit

	// SearchErr is returned by [SemanticIndex.Search] when non-nil.
	SearchErr error
}

var _ store.SemanticIndex = (*SemanticIndex)(nil)

// Calls returns a copy of all recorded method invocations.
func (m *SemanticIndex) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded invocations of method.
func (m *SemanticIndex) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls.
func (m *SemanticIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *SemanticIndex) record(method string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Args: args})
}

// IndexSegment implements [store.SemanticIndex].
func (m *SemanticIndex) IndexSegment(_ context.Context, emb store.SegmentEmbedding) error {
	m.record("IndexSegment", emb)
	return m.IndexSegmentErr
}

// Search implements [store.SemanticIndex].
func (m *SemanticIndex) Search(_ context.Context, embedding []float32, topK int, filter store.SemanticFilter) ([]store.SemanticHit, error) {
	m.record("Search", embedding, topK, filter)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if m.SearchResult == nil {
		return []store.SemanticHit{}, nil
	}
	return m.SearchResult, nil
}
