package transcript

import "time"

// Option is a functional option for [Parse].
type Option func(*parserConfig)

// parserConfig collects the tunable policies of a parse run.
type parserConfig struct {
	gapTolerance time.Duration
	question     QuestionPolicy
	resolver     SpeakerResolver
}

// WithGapTolerance sets the largest gap between a segment's end and a
// prefix-less follow-up cue's start for the cue to merge into that segment.
// Default: 1.5s. Values <= 0 restore the default.
func WithGapTolerance(d time.Duration) Option {
	return func(c *parserConfig) {
		c.gapTolerance = d
	}
}

// WithQuestionPolicy replaces the question predicate applied to every
// segment. Default: [DefaultQuestionPolicy].
func WithQuestionPolicy(p QuestionPolicy) Option {
	return func(c *parserConfig) {
		if p != nil {
			c.question = p
		}
	}
}

// WithSpeakerResolver enables speaker label canonicalization: every resolved
// prefix name is passed through r before attribution. Disabled by default.
func WithSpeakerResolver(r SpeakerResolver) Option {
	return func(c *parserConfig) {
		c.resolver = r
	}
}

// Parse converts raw transcript text into a validated [Timeline].
//
// Parse never fails. Malformed cues, empty blocks, and inverted or
// out-of-order time ranges are recovered locally — dropped or corrected —
// and each recovery is described by one entry in the returned warning list,
// in the order the problems were encountered. An empty input yields an
// empty Timeline and no warnings.
//
// Parse is deterministic: the same raw text and options always produce an
// identical Timeline and identical warnings. It allocates a fresh Timeline
// per call and shares no state between invocations, so concurrent calls
// need no synchronization.
func Parse(raw string, opts ...Option) (*Timeline, []string) {
	cfg := parserConfig{
		gapTolerance: defaultGapTolerance,
		question:     DefaultQuestionPolicy,
	}
	for _, o := range opts {
		o(&cfg)
	}

	warnings := []string{}
	warn := func(msg string) {
		warnings = append(warnings, msg)
	}

	builder := newSegmentBuilder(cfg.gapTolerance, cfg.question, cfg.resolver, warn)
	sc := newCueScanner(raw, warn)
	for sc.Scan() {
		builder.add(sc.Block())
	}

	return assemble(builder.finish(), warn), warnings
}
