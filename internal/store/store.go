// Package store defines the persistence interfaces for completed transcript
// analyses.
//
// An analysis is the immutable output of one parse-and-analyze run: the
// structured timeline, the per-speaker statistics, and the interaction graph.
// Two storage concerns are split across two interfaces:
//
//   - [AnalysisStore]: relational persistence and keyword (full-text) search
//     over segment text.
//   - [SemanticIndex]: vector search over per-segment embeddings for
//     "find the moment we discussed X" queries.
//
// All interfaces are public so that external packages can supply alternative
// backends without depending on the PostgreSQL implementation under
// store/postgres.
//
// Every implementation must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/internal/transcript"
)

// ErrNotFound is returned by [AnalysisStore.GetAnalysis] when no analysis
// with the requested ID exists.
var ErrNotFound = errors.New("store: analysis not found")

// Analysis is one persisted analysis run in full.
type Analysis struct {
	// ID uniquely identifies the analysis. Assigned by the caller before
	// saving (e.g., a UUID).
	ID string

	// Title is a human-readable label for the meeting, possibly empty.
	Title string

	// CreatedAt is when the analysis was stored.
	CreatedAt time.Time

	// Timeline is the parsed segment sequence.
	Timeline *transcript.Timeline

	// Stats holds the per-speaker aggregates keyed by speaker label.
	Stats map[string]analytics.SpeakerStats

	// Graph is the interaction graph derived from Timeline.
	Graph *analytics.InteractionGraph

	// Warnings are the parse warnings recorded alongside the timeline.
	Warnings []string
}

// AnalysisSummary is the listing view of a stored analysis: everything a
// dashboard index needs without loading segments.
type AnalysisSummary struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	CreatedAt    time.Time     `json:"created_at"`
	Duration     time.Duration `json:"duration_ns"`
	SegmentCount int           `json:"segment_count"`
}

// SearchOpts configures a keyword / full-text search over stored segments.
// All non-zero fields are applied as AND conditions.
type SearchOpts struct {
	// AnalysisID restricts the search to a single analysis.
	// An empty string searches across all analyses.
	AnalysisID string

	// Speaker restricts results to segments by a specific speaker label.
	Speaker string

	// QuestionsOnly restricts results to question-flagged segments.
	QuestionsOnly bool

	// Limit caps the number of results returned.
	// A value of 0 means the implementation may apply its own default.
	Limit int
}

// SegmentHit is one full-text search result.
type SegmentHit struct {
	// AnalysisID is the analysis the segment belongs to.
	AnalysisID string `json:"analysis_id"`

	// Segment is the matching segment as stored.
	Segment transcript.Segment `json:"segment"`
}

// AnalysisStore is the relational layer: save, load, list, and keyword
// search.
type AnalysisStore interface {
	// SaveAnalysis persists a complete analysis atomically. Saving an
	// analysis whose ID already exists is an error.
	SaveAnalysis(ctx context.Context, a Analysis) error

	// GetAnalysis loads a complete analysis by ID. Returns [ErrNotFound]
	// when no such analysis exists.
	GetAnalysis(ctx context.Context, id string) (Analysis, error)

	// ListAnalyses returns summaries of stored analyses, newest first.
	// limit <= 0 means no limit.
	ListAnalyses(ctx context.Context, limit int) ([]AnalysisSummary, error)

	// SearchSegments performs a full-text search over segment text.
	SearchSegments(ctx context.Context, query string, opts SearchOpts) ([]SegmentHit, error)
}

// SegmentEmbedding carries a pre-computed embedding for one stored segment.
// The index does not re-embed on insertion.
type SegmentEmbedding struct {
	// AnalysisID and Index identify the segment the embedding belongs to.
	AnalysisID string
	Index      int

	// Embedding is the vector representation of the segment's text.
	// Dimension must match the index configuration.
	Embedding []float32
}

// SemanticFilter scopes a semantic search. All non-zero fields are applied
// as AND conditions.
type SemanticFilter struct {
	// AnalysisID restricts the search to a single analysis.
	AnalysisID string

	// Speaker restricts results to segments by a specific speaker label.
	Speaker string
}

// SemanticHit is one semantic search result: the matching segment's
// identity and text together with its cosine distance from the query
// vector. Lower distance means more similar.
type SemanticHit struct {
	AnalysisID string  `json:"analysis_id"`
	Index      int     `json:"index"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// SemanticIndex is the vector layer over segment embeddings.
type SemanticIndex interface {
	// IndexSegment upserts a pre-embedded segment. The referenced segment
	// must already have been saved via [AnalysisStore.SaveAnalysis].
	IndexSegment(ctx context.Context, emb SegmentEmbedding) error

	// Search finds the topK indexed segments whose embeddings are closest
	// (cosine distance) to the supplied query embedding, optionally scoped
	// by filter. Results are ordered by ascending distance.
	Search(ctx context.Context, embedding []float32, topK int, filter SemanticFilter) ([]SemanticHit, error)
}
