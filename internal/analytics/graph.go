package analytics

import (
	"sort"

	"github.com/meetplot/meetplot/internal/transcript"
)

// defaultBackAndForthThreshold is the minimum transition count required in
// each direction for a speaker pair to qualify as a back-and-forth pair.
const defaultBackAndForthThreshold = 2

// Edge is one directed transition in the interaction graph: To took the
// floor immediately after From, Weight times.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// Pair is an unordered speaker pair with mutually frequent turn-taking.
// A and B are ordered alphabetically.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`

	// AToB and BToA are the directed transition counts; both meet the
	// back-and-forth threshold.
	AToB int `json:"a_to_b"`
	BToA int `json:"b_to_a"`
}

// MinWeight returns the smaller of the two directed counts — the ranking
// key for back-and-forth pairs.
func (p Pair) MinWeight() int {
	if p.AToB < p.BToA {
		return p.AToB
	}
	return p.BToA
}

// QuestionLeader is one entry of the question-leader ranking.
type QuestionLeader struct {
	Speaker   string `json:"speaker"`
	Questions int    `json:"questions"`
}

// InteractionGraph is the directed, weighted graph of who speaks after
// whom, together with the derived back-and-forth and question-leader
// rankings. It is a read-only snapshot of one timeline; all slices are in a
// deterministic order.
type InteractionGraph struct {
	// Nodes lists every distinct speaker alphabetically — exactly the
	// speakers present in the timeline, so node coverage always matches
	// [SpeakerStatistics]. A speaker with no transitions is still a node.
	Nodes []string `json:"nodes"`

	// Edges lists directed transitions sorted by (From, To). Self-loops
	// never occur: consecutive segments by one speaker form a single turn.
	Edges []Edge `json:"edges"`

	// BackAndForthPairs lists pairs whose transition counts meet the
	// threshold in both directions, ranked by MinWeight descending, ties
	// broken alphabetically.
	BackAndForthPairs []Pair `json:"back_and_forth_pairs"`

	// QuestionLeaders ranks speakers by question count descending, ties
	// broken alphabetically. Derived from [SpeakerStatistics] — there is no
	// second counting pass.
	QuestionLeaders []QuestionLeader `json:"question_leaders"`

	weights map[Edge]int
}

// Weight returns the transition count for from → to, or 0 when no such
// edge exists. A graph reconstructed from its serialized form carries no
// weight map, so Weight falls back to scanning Edges.
func (g *InteractionGraph) Weight(from, to string) int {
	if g.weights != nil {
		return g.weights[Edge{From: from, To: to}]
	}
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return e.Weight
		}
	}
	return 0
}

// GraphOption is a functional option for [BuildInteractionGraph].
type GraphOption func(*graphConfig)

type graphConfig struct {
	backAndForthThreshold int
}

// WithBackAndForthThreshold sets the minimum per-direction transition count
// for a pair to qualify as back-and-forth. Default: 2. Values <= 0 restore
// the default.
func WithBackAndForthThreshold(n int) GraphOption {
	return func(c *graphConfig) {
		if n > 0 {
			c.backAndForthThreshold = n
		}
	}
}

// BuildInteractionGraph derives the turn-taking graph from a timeline.
//
// Consecutive segments by the same speaker collapse into one logical turn
// first; each adjacent pair of turns then contributes one transition count
// to the edge turn[i].speaker → turn[i+1].speaker. The function is a pure
// fold: it mutates nothing and the same timeline always yields an identical
// graph.
func BuildInteractionGraph(tl *transcript.Timeline, opts ...GraphOption) *InteractionGraph {
	cfg := graphConfig{backAndForthThreshold: defaultBackAndForthThreshold}
	for _, o := range opts {
		o(&cfg)
	}

	turns := collapseTurns(tl)

	weights := make(map[Edge]int, len(turns))
	for i := 0; i+1 < len(turns); i++ {
		// Adjacent turns always differ in speaker by construction of
		// collapseTurns, so every pair is a real transition.
		weights[Edge{From: turns[i], To: turns[i+1]}]++
	}

	g := &InteractionGraph{
		Nodes:   sortedSpeakers(tl),
		weights: weights,
	}

	g.Edges = make([]Edge, 0, len(weights))
	for e, w := range weights {
		e.Weight = w
		g.Edges = append(g.Edges, e)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})

	g.BackAndForthPairs = backAndForthPairs(weights, cfg.backAndForthThreshold)
	g.QuestionLeaders = questionLeaders(SpeakerStatistics(tl))
	return g
}

// collapseTurns reduces the segment sequence to the turn-taking sequence:
// one entry per maximal run of consecutive same-speaker segments.
func collapseTurns(tl *transcript.Timeline) []string {
	var turns []string
	for _, seg := range tl.Segments {
		if len(turns) > 0 && turns[len(turns)-1] == seg.Speaker {
			continue
		}
		turns = append(turns, seg.Speaker)
	}
	return turns
}

// sortedSpeakers returns the timeline's distinct speakers alphabetically.
func sortedSpeakers(tl *transcript.Timeline) []string {
	speakers := tl.Speakers()
	sort.Strings(speakers)
	return speakers
}

// backAndForthPairs extracts the unordered pairs whose directed weights both
// meet threshold, ranked by the smaller weight descending, then
// alphabetically.
func backAndForthPairs(weights map[Edge]int, threshold int) []Pair {
	var pairs []Pair
	for e, w := range weights {
		if e.From >= e.To {
			// Visit each unordered pair once, from its alphabetical side.
			continue
		}
		reverse := weights[Edge{From: e.To, To: e.From}]
		if w >= threshold && reverse >= threshold {
			pairs = append(pairs, Pair{A: e.From, B: e.To, AToB: w, BToA: reverse})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].MinWeight() != pairs[j].MinWeight() {
			return pairs[i].MinWeight() > pairs[j].MinWeight()
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// questionLeaders ranks speakers by question count descending, ties broken
// alphabetically.
func questionLeaders(stats map[string]SpeakerStats) []QuestionLeader {
	leaders := make([]QuestionLeader, 0, len(stats))
	for _, s := range stats {
		leaders = append(leaders, QuestionLeader{Speaker: s.Speaker, Questions: s.QuestionCount})
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].Questions != leaders[j].Questions {
			return leaders[i].Questions > leaders[j].Questions
		}
		return leaders[i].Speaker < leaders[j].Speaker
	})
	return leaders
}
