// Package embeddings defines the interface over text-embedding backends.
//
// A provider maps text to dense float32 vectors. The analysis server uses
// these vectors to build the semantic index over transcript segments, so
// "what did we decide about the rollout" finds the segment even when no word
// matches.
package embeddings

import "context"

// Provider is a text-embedding backend. Implementations must be safe for
// concurrent use, and every vector a single Provider returns must have length
// Dimensions(). Vectors from different providers (or different models behind
// the same provider type) live in different spaces and must not be compared.
type Provider interface {
	// Embed returns the vector for one text. The text goes to the backend
	// verbatim; task prefixes like "query: " are the caller's concern.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds all texts in one backend call. The result is
	// positional (vecs[i] belongs to texts[i]) and all-or-nothing: on error
	// no partial vectors are returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the fixed vector length this provider produces.
	Dimensions() int

	// ModelID names the underlying model, e.g. "text-embedding-3-small".
	// A stored index must only be queried with vectors from the same model.
	ModelID() string
}
