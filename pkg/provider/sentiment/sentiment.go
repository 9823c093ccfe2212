// Package sentiment defines the Provider interface for sentiment scoring
// backends.
//
// A sentiment provider maps an utterance to a set of polarity scores (e.g.,
// a VADER sidecar service or an LLM-backed scorer). Scores feed the report
// composer's per-speaker and timeline sentiment sections.
//
// Implementations must be safe for concurrent use.
package sentiment

import "context"

// Scores is the polarity breakdown for one piece of text. Negative, Neutral
// and Positive are proportions in [0, 1]; Compound is the normalized
// aggregate in [-1, 1], where -1 is maximally negative and +1 maximally
// positive.
type Scores struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Provider is the abstraction over any sentiment scoring backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Score computes the polarity scores for a single text. Returns an error
	// if the request fails or ctx is cancelled.
	Score(ctx context.Context, text string) (Scores, error)

	// ScoreBatch scores a slice of texts in a single provider call. The
	// returned slice has the same length as texts and the i-th element
	// corresponds to texts[i].
	//
	// Returns an error if any single score fails or if ctx is cancelled.
	// Partial results are not returned.
	ScoreBatch(ctx context.Context, texts []string) ([]Scores, error)

	// Name returns a short identifier for the backend (e.g., "vader"),
	// used in logs and degraded-section notes.
	Name() string
}
