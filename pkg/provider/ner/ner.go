// Package ner defines the Provider interface for named-entity extraction
// backends.
//
// A NER provider maps free text to entities grouped by label type (e.g., the
// spaCy sidecar service). Extracted entities feed the report composer's
// topic section.
//
// Implementations must be safe for concurrent use.
package ner

import "context"

// DefaultLabels is the entity label set used when a caller passes none:
// people, organisations, geopolitical entities, products, events, and
// non-GPE locations. These cover what a meeting summary usually needs
// without drowning it in cardinals and dates.
var DefaultLabels = []string{"PERSON", "ORG", "GPE", "PRODUCT", "EVENT", "LOC"}

// Provider is the abstraction over any named-entity extraction backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Extract returns the entities found in text, grouped by label and
	// deduplicated, preserving first-occurrence order within each label.
	// labels restricts extraction to those types; empty means
	// [DefaultLabels]. Returns an error if the request fails or ctx is
	// cancelled.
	Extract(ctx context.Context, text string, labels []string) (map[string][]string, error)

	// Name returns a short identifier for the backend (e.g., "spacy"),
	// used in logs and degraded-section notes.
	Name() string
}
