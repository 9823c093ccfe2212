// Package transcript turns a loosely formatted meeting caption stream into a
// validated, ordered timeline of speaker-attributed segments.
//
// The input convention is the WebVTT-like format produced by conference
// recording tools: blocks of one or more text lines headed by a timestamp
// range line ("00:01:02.500 --> 00:01:04.000"), with an optional
// "Speaker Name:" prefix on the first text line. Real exports are messy —
// header junk, bare cue counters, malformed timestamps, continuation cues
// with no speaker prefix — so parsing is tolerant by design: malformed
// material is dropped with a recorded warning and the scan continues.
//
// The pipeline has three stages, each a pure, synchronous transformation:
//
//  1. Tokenizing ([cueScanner]): raw text → [CueBlock] sequence.
//  2. Segment building ([segmentBuilder]): cue blocks → [Segment] sequence,
//     resolving speakers, merging continuation cues, deriving word counts
//     and question flags.
//  3. Assembly ([assemble]): segments → a sorted, densely indexed [Timeline].
//
// [Parse] is the sole entry point. It never fails: any input, including the
// empty string, produces a valid (possibly empty) Timeline plus an ordered
// list of human-readable warnings describing everything that was dropped or
// corrected. Downstream analytics depend entirely on segment boundaries,
// attribution, and timing being right, so the parser prefers dropping or
// over-segmenting to guessing.
package transcript

import (
	"strings"
	"time"
)

// UnknownSpeaker is the speaker label assigned to segments whose cue text
// carries no resolvable "Name:" prefix and that cannot be merged into a
// preceding segment.
const UnknownSpeaker = "Unknown"

// CueBlock is one raw timestamped caption unit as it appears in the input,
// before speaker resolution. Cue blocks are transient: the segment builder
// folds them into [Segment] values and discards them.
type CueBlock struct {
	// Start and End are offsets from the beginning of the recording.
	// End >= Start holds for every block the tokenizer emits.
	Start time.Duration
	End   time.Duration

	// RawLines holds the non-blank text lines of the block in input order.
	RawLines []string
}

// Segment is a single structured utterance: one speaker, one time range,
// normalized text, and derived metrics. Segments are immutable once the
// timeline is assembled; they are owned exclusively by their [Timeline] and
// copied by value.
type Segment struct {
	// Index is the segment's position in the timeline: 0-based, dense, and
	// unique after assembly.
	Index int `json:"index"`

	// Speaker is the resolved speaker label. Never empty — [UnknownSpeaker]
	// when no prefix could be resolved.
	Speaker string `json:"speaker"`

	// Start and End are offsets from the beginning of the recording,
	// with End >= Start.
	Start time.Duration `json:"start_ns"`
	End   time.Duration `json:"end_ns"`

	// Text is the normalized utterance: speaker prefix stripped, continuation
	// lines joined with single spaces, internal whitespace runs collapsed,
	// leading/trailing whitespace trimmed. Casing and punctuation are
	// preserved verbatim.
	Text string `json:"text"`

	// WordCount is the number of whitespace-delimited tokens in Text.
	WordCount int `json:"word_count"`

	// IsQuestion reports whether the segment reads as a question under the
	// parser's [QuestionPolicy]. A trailing '?' is the primary signal; the
	// lead-phrase check of [DefaultQuestionPolicy] is a heuristic.
	IsQuestion bool `json:"is_question"`
}

// TalkTime returns the length of the segment's time range.
func (s Segment) TalkTime() time.Duration {
	return s.End - s.Start
}

// Timeline is the ordered, validated segment sequence for one transcript.
//
// Invariants after [Parse]:
//   - Segments[i].Index == i for every i.
//   - Segments[i].Start <= Segments[i+1].Start for every valid i.
//   - Duration == max(Segment.End) over all segments, 0 when empty.
//
// A Timeline owns its segments. Derived views (speaker statistics, the
// interaction graph) hold no reference back to it and must be recomputed if
// a new Timeline is produced — there is no update path; transcripts are
// parsed once.
type Timeline struct {
	Segments []Segment     `json:"segments"`
	Duration time.Duration `json:"duration_ns"`
}

// Speakers returns the distinct speaker labels in order of first appearance.
func (t *Timeline) Speakers() []string {
	seen := make(map[string]struct{}, 8)
	var out []string
	for _, seg := range t.Segments {
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		out = append(out, seg.Speaker)
	}
	return out
}

// CompactText joins all segment texts with single spaces. This is the flat
// document handed to the sentiment, topic, and entity collaborators.
func (t *Timeline) CompactText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// TextBySpeaker joins each speaker's segment texts with single spaces, in
// segment order. This is the per-participant document handed to the topics
// collaborator; speakers with no non-empty text are omitted.
func (t *Timeline) TextBySpeaker() map[string]string {
	parts := make(map[string][]string, 8)
	for _, seg := range t.Segments {
		if seg.Text != "" {
			parts[seg.Speaker] = append(parts[seg.Speaker], seg.Text)
		}
	}
	out := make(map[string]string, len(parts))
	for speaker, texts := range parts {
		out[speaker] = strings.Join(texts, " ")
	}
	return out
}

// Clone returns a deep copy of the timeline. Callers that hand a Timeline
// across an ownership boundary should clone rather than share.
func (t *Timeline) Clone() *Timeline {
	segs := make([]Segment, len(t.Segments))
	copy(segs, t.Segments)
	return &Timeline{Segments: segs, Duration: t.Duration}
}
