// Package topics defines the Provider interface for keyword-extraction
// backends.
//
// A topics provider distils what each participant talked about: it takes the
// concatenated text per speaker and returns each speaker's top weighted terms
// (e.g., TF-IDF keywords from the sidecar pipeline). The result feeds the
// report's speaker-topic section.
//
// Implementations must be safe for concurrent use.
package topics

import "context"

// DefaultTopTerms is how many keywords are requested per speaker when the
// caller passes no explicit count.
const DefaultTopTerms = 5

// Keyword is one weighted term attributed to a speaker.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Provider is the abstraction over any keyword-extraction backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Keywords returns, for each speaker in speakerTexts, up to topTerms
	// keywords ordered by descending weight. Speakers whose text yields no
	// keywords are absent from the result. topTerms <= 0 means
	// [DefaultTopTerms]. Returns an error if the request fails or ctx is
	// cancelled.
	Keywords(ctx context.Context, speakerTexts map[string]string, topTerms int) (map[string][]Keyword, error)

	// Name returns a short identifier for the backend (e.g., "tfidf"),
	// used in logs and degraded-section notes.
	Name() string
}
