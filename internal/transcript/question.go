package transcript

import "strings"

// QuestionPolicy decides whether a normalized utterance reads as a question.
// The policy is deliberately replaceable: question detection on conversational
// speech is fuzzy, and pinning it behind a function value lets callers swap in
// a stricter or domain-tuned predicate without touching the parser.
type QuestionPolicy func(text string) bool

// interrogativeLeads are the lead phrases [DefaultQuestionPolicy] looks for at
// the start of a clause. Matching is case-insensitive and on whole words.
var interrogativeLeads = []string{
	"what",
	"why",
	"how",
	"can you",
	"could you",
	"do you",
	"is it",
	"are we",
}

// DefaultQuestionPolicy reports whether text reads as a question.
//
// A trailing '?' is the primary and authoritative signal. When the text ends
// with neither '.' nor '!' nor '?', a secondary heuristic fires: the text is
// treated as a question if any clause starts with one of the fixed
// interrogative lead phrases ("what", "why", "how", "can you", ...). Caption
// streams frequently lose terminal punctuation, which is what the heuristic
// compensates for; it is a heuristic, not a grammar, and will both miss
// rhetorical questions and flag some statements.
func DefaultQuestionPolicy(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	switch text[len(text)-1] {
	case '?':
		return true
	case '.', '!':
		// Explicitly terminated as a statement; the lead-phrase heuristic
		// does not override punctuation.
		return false
	}

	lower := strings.ToLower(text)
	for _, clause := range splitClauses(lower) {
		for _, lead := range interrogativeLeads {
			if hasLeadPhrase(clause, lead) {
				return true
			}
		}
	}
	return false
}

// splitClauses splits lowercased text at sentence punctuation so lead
// phrases can be checked at each clause start, not only at the very
// beginning ("one more thing, how do we ship this").
func splitClauses(s string) []string {
	clauses := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', ',':
			return true
		}
		return false
	})
	for i, c := range clauses {
		clauses[i] = strings.TrimSpace(c)
	}
	return clauses
}

// hasLeadPhrase reports whether clause begins with the whole-word phrase
// lead. "what" matches "what about x" but not "whatever happened".
func hasLeadPhrase(clause, lead string) bool {
	if !strings.HasPrefix(clause, lead) {
		return false
	}
	return len(clause) == len(lead) || clause[len(lead)] == ' '
}
