package transcript

import (
	"fmt"
	"strings"
	"time"
)

// maxSpeakerNameLen bounds how long a "Name:" prefix may be before it is
// treated as ordinary text. Real speaker labels are short; a colon 80
// characters into a sentence is almost certainly punctuation, not a prefix.
const maxSpeakerNameLen = 60

// defaultGapTolerance is the largest silence between a segment's end and a
// prefix-less follow-up cue's start for the cue to be treated as a
// continuation of the same speaker turn.
const defaultGapTolerance = 1500 * time.Millisecond

// SpeakerResolver canonicalizes speaker labels against the labels already
// seen in the transcript, so that near-duplicate spellings of one
// participant ("Jon Smith", "John Smith") collapse into a single speaker.
//
// Resolve returns the canonical label and true when label should be folded
// into a known one, or ("", false) when label stands on its own.
// Implementations must be deterministic for a given (label, known) input.
type SpeakerResolver interface {
	Resolve(label string, known []string) (canonical string, ok bool)
}

// prefixMatch is the typed result of matching a "Name:" speaker prefix.
// The zero value means no match; callers branch on ok, never on whether a
// string happens to be empty.
type prefixMatch struct {
	name      string
	remainder string
	ok        bool
}

// matchSpeakerPrefix matches line against the "<name>: <text>" convention.
//
// The name is everything before the first colon, trimmed. It must be
// non-empty, at most [maxSpeakerNameLen] characters, and must not look like
// a URI scheme ("https://..." would otherwise resolve a speaker called
// "https"). The remainder may be empty — some tools put the speaker label
// alone on the first line and the utterance on the following ones.
func matchSpeakerPrefix(line string) prefixMatch {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return prefixMatch{}
	}

	name := strings.TrimSpace(before)
	if name == "" || len(name) > maxSpeakerNameLen {
		return prefixMatch{}
	}
	if strings.HasPrefix(after, "//") {
		return prefixMatch{}
	}

	return prefixMatch{
		name:      name,
		remainder: strings.TrimSpace(after),
		ok:        true,
	}
}

// segmentBuilder folds [CueBlock] values into [Segment] values: it resolves
// speakers, merges continuation cues, and normalizes text. The builder is a
// single-use, single-pass accumulator; call add for each block in input
// order, then finish exactly once.
type segmentBuilder struct {
	gapTolerance time.Duration
	question     QuestionPolicy
	resolver     SpeakerResolver
	warn         func(string)

	segs []Segment
	// known tracks speaker labels in order of first appearance, for the
	// resolver and for deterministic canonicalization.
	known []string
}

// newSegmentBuilder creates a builder. question and warn must not be nil;
// resolver may be nil to disable speaker canonicalization.
func newSegmentBuilder(gapTolerance time.Duration, question QuestionPolicy, resolver SpeakerResolver, warn func(string)) *segmentBuilder {
	if gapTolerance <= 0 {
		gapTolerance = defaultGapTolerance
	}
	return &segmentBuilder{
		gapTolerance: gapTolerance,
		question:     question,
		resolver:     resolver,
		warn:         warn,
	}
}

// add folds one cue block into the segment sequence.
//
// Merge policy (deterministic, biased toward over-segmentation): a block
// whose first line carries no speaker prefix is merged into the previous
// segment — carrying that segment's speaker forward — only when the block
// starts within the gap tolerance of the previous segment's end. Overlapping
// cues (negative gap) also merge. Everything else, including every block
// with an explicit prefix, starts a new segment; consecutive same-speaker
// segments are collapsed later by turn analysis, so splitting too eagerly is
// harmless where merging wrongly would corrupt attribution.
func (b *segmentBuilder) add(block CueBlock) {
	match := matchSpeakerPrefix(block.RawLines[0])

	var textLines []string
	if match.ok {
		if match.remainder != "" {
			textLines = append(textLines, match.remainder)
		}
		textLines = append(textLines, block.RawLines[1:]...)
	} else {
		textLines = block.RawLines
	}

	text := normalizeText(textLines)
	if text == "" {
		b.warn(fmt.Sprintf("dropped cue block with no utterance text at %s", formatOffset(block.Start)))
		return
	}

	if !match.ok {
		if prev := b.last(); prev != nil && block.Start-prev.End <= b.gapTolerance {
			// Continuation of the previous turn.
			prev.Text = prev.Text + " " + text
			if block.End > prev.End {
				prev.End = block.End
			}
			return
		}
	}

	speaker := UnknownSpeaker
	if match.ok {
		speaker = b.canonicalSpeaker(match.name)
	}

	b.segs = append(b.segs, Segment{
		Speaker: speaker,
		Start:   block.Start,
		End:     block.End,
		Text:    text,
	})
}

// finish derives per-segment metrics and returns the accumulated segments.
// The builder must not be reused afterwards.
func (b *segmentBuilder) finish() []Segment {
	for i := range b.segs {
		seg := &b.segs[i]
		seg.WordCount = len(strings.Fields(seg.Text))
		seg.IsQuestion = b.question(seg.Text)
	}
	return b.segs
}

// last returns the most recently built segment, or nil when none exists.
func (b *segmentBuilder) last() *Segment {
	if len(b.segs) == 0 {
		return nil
	}
	return &b.segs[len(b.segs)-1]
}

// canonicalSpeaker folds name into an already-seen speaker label via the
// resolver, or registers it as a new known label.
func (b *segmentBuilder) canonicalSpeaker(name string) string {
	if b.resolver != nil {
		if canonical, ok := b.resolver.Resolve(name, b.known); ok {
			if canonical != name {
				b.warn(fmt.Sprintf("folded speaker label %q into %q", name, canonical))
			}
			return canonical
		}
	}
	for _, k := range b.known {
		if k == name {
			return name
		}
	}
	b.known = append(b.known, name)
	return name
}

// normalizeText joins lines with single spaces, collapses internal
// whitespace runs, and trims. Casing and punctuation pass through untouched.
func normalizeText(lines []string) string {
	joined := strings.Join(lines, " ")
	return strings.Join(strings.Fields(joined), " ")
}
