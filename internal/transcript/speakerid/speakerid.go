// Package speakerid implements the [transcript.SpeakerResolver] interface
// using Double Metaphone phonetic encoding combined with Jaro-Winkler string
// similarity.
//
// Conference exports routinely spell one participant several ways — "Jon
// Smith" on one cue, "John Smith" on the next, "jon smith" after a
// reconnect. Left unmerged, those spellings split one person's talk time,
// question counts, and graph node across phantom speakers. The canonicalizer
// folds a new label into an already-seen one when:
//
//  1. The labels match exactly, ignoring case — folded to the first-seen
//     casing unconditionally; or
//  2. Their tokens share a Double Metaphone code AND their Jaro-Winkler
//     similarity clears the phonetic threshold; or
//  3. No phonetic overlap exists but Jaro-Winkler similarity clears the
//     stricter fuzzy threshold.
//
// Thresholds default higher than generic fuzzy matching would use: folding
// two genuinely different people into one speaker corrupts every downstream
// analytic, whereas leaving a misspelling unmerged only duplicates a node.
// When several known labels qualify, the one with the highest similarity
// wins; ties go to the earliest-seen label, keeping resolution
// deterministic.
package speakerid

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.85
	defaultFuzzyThreshold    = 0.93
)

// Option is a functional option for configuring a [Canonicalizer].
type Option func(*Canonicalizer)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required to fold
// a phonetically overlapping label. Default: 0.85.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Canonicalizer) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required to fold a
// label with no phonetic overlap. Default: 0.93.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Canonicalizer) {
		c.fuzzyThreshold = threshold
	}
}

// Canonicalizer folds near-duplicate speaker labels into a single canonical
// label. It implements [transcript.SpeakerResolver]. All methods are safe
// for concurrent use — the Canonicalizer is read-only after construction.
type Canonicalizer struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Canonicalizer] configured with the supplied options.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resolve folds label into the most similar entry of known, or reports
// ("", false) when label stands on its own. known is searched in order, so
// earlier (first-seen) labels win ties.
func (c *Canonicalizer) Resolve(label string, known []string) (canonical string, ok bool) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" || len(known) == 0 {
		return "", false
	}

	labelLower := strings.ToLower(trimmed)
	labelTokens := strings.Fields(labelLower)
	labelCodes := codesForTokens(labelTokens)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)

	for _, k := range known {
		kLower := strings.ToLower(strings.TrimSpace(k))
		if kLower == "" {
			continue
		}
		if kLower == labelLower {
			// Same label modulo casing: always fold to the first-seen form.
			return k, true
		}

		if digits(labelLower) != digits(kLower) {
			// "Speaker 1" and "Speaker 2" score high on both similarity
			// measures but are distinct participants. Differing digits are
			// always intentional in a label.
			continue
		}

		kTokens := strings.Fields(kLower)
		phonetic := codesOverlap(labelCodes, codesForTokens(kTokens))
		score := bestJWScore(labelTokens, kTokens, labelLower, kLower)

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				best, bestScore, bestPhonetic = k, score, true
			}
		case !phonetic && !bestPhonetic && score >= c.fuzzyThreshold:
			if score > bestScore {
				best, bestScore = k, score
			}
		}
	}

	if best != "" {
		return best, true
	}
	return "", false
}

// digits returns the concatenation of all digit runes in s.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the two
// labels across two views: the full strings and the space-stripped strings
// ("jonsmith" vs "john smith").
//
// Unlike generic entity matching, per-token scores are never used alone:
// "John Smith" and "John Doe" share a perfect-scoring token but are
// different people, so the whole label must be similar for a fold.
func bestJWScore(aTokens, bTokens []string, aFull, bFull string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)

	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}

	return score
}
