package transcript

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampArrow separates the start and end timestamps on a cue header line.
const timestampArrow = "-->"

// cueScanner splits raw transcript text into [CueBlock] values in a single
// forward pass, in input order. It follows the bufio.Scanner idiom:
//
//	sc := newCueScanner(raw, warn)
//	for sc.Scan() {
//	    block := sc.Block()
//	    ...
//	}
//
// Lines before the first valid timestamp line (the WEBVTT header, "NOTE"
// comments, "Kind:"/"Language:" metadata, bare numeric cue counters) are
// discarded. A timestamp line that cannot be parsed causes the whole
// candidate block to be skipped with a warning; scanning resumes at the next
// timestamp line.
type cueScanner struct {
	lines []string
	pos   int
	block CueBlock
	warn  func(string)
}

// newCueScanner creates a scanner over raw. warn receives one message per
// recovered parse problem and must not be nil.
func newCueScanner(raw string, warn func(string)) *cueScanner {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return &cueScanner{
		lines: strings.Split(raw, "\n"),
		warn:  warn,
	}
}

// Scan advances to the next well-formed cue block. It returns false when the
// input is exhausted.
func (sc *cueScanner) Scan() bool {
	for sc.pos < len(sc.lines) {
		line := strings.TrimSpace(sc.lines[sc.pos])
		sc.pos++

		if !strings.Contains(line, timestampArrow) {
			// Header junk, cue counters, or stray text outside any block.
			continue
		}

		start, end, err := parseTimestampRange(line)
		if err != nil {
			sc.warn(fmt.Sprintf("skipped cue with unparsable timestamps %q: %v", line, err))
			sc.skipBlockBody()
			continue
		}

		body := sc.readBlockBody()
		if len(body) == 0 {
			sc.warn(fmt.Sprintf("dropped empty cue block at %s", formatOffset(start)))
			continue
		}

		sc.block = CueBlock{Start: start, End: end, RawLines: body}
		return true
	}
	return false
}

// Block returns the cue block found by the last successful call to Scan.
func (sc *cueScanner) Block() CueBlock {
	return sc.block
}

// readBlockBody consumes the non-blank lines belonging to the current block,
// stopping at a blank line or the next timestamp line (which is left for the
// next Scan call).
func (sc *cueScanner) readBlockBody() []string {
	var body []string
	for sc.pos < len(sc.lines) {
		line := strings.TrimSpace(sc.lines[sc.pos])
		if line == "" {
			sc.pos++
			break
		}
		if strings.Contains(line, timestampArrow) {
			break
		}
		body = append(body, line)
		sc.pos++
	}
	return body
}

// skipBlockBody discards the body of a block whose header was malformed.
func (sc *cueScanner) skipBlockBody() {
	for sc.pos < len(sc.lines) {
		line := strings.TrimSpace(sc.lines[sc.pos])
		if line == "" {
			sc.pos++
			return
		}
		if strings.Contains(line, timestampArrow) {
			return
		}
		sc.pos++
	}
}

// parseTimestampRange parses a cue header line of the form
//
//	HH:MM:SS.mmm --> HH:MM:SS.mmm
//
// Trailing cue settings after the end timestamp ("align:start position:0%")
// are ignored. Returns an error when either side fails to parse or when the
// range runs backwards by construction of its own fields (end < start is
// tolerated here and corrected during assembly, but a missing side is not).
func parseTimestampRange(line string) (start, end time.Duration, err error) {
	lhs, rhs, ok := strings.Cut(line, timestampArrow)
	if !ok {
		return 0, 0, fmt.Errorf("no %q separator", timestampArrow)
	}

	start, err = parseTimestamp(strings.TrimSpace(lhs))
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}

	rhsFields := strings.Fields(rhs)
	if len(rhsFields) == 0 {
		return 0, 0, fmt.Errorf("end: empty")
	}
	end, err = parseTimestamp(rhsFields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}

	return start, end, nil
}

// parseTimestamp parses a single caption timestamp. Accepted shapes, chosen
// to cover Zoom/Teams/YouTube exports and SRT-style comma decimals:
//
//	HH:MM:SS.mmm   MM:SS.mmm   HH:MM:SS   MM:SS
//
// Hour and fraction fields are optional; the fraction may use '.' or ','
// and carry one to nine digits.
func parseTimestamp(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	// Normalize the SRT decimal comma.
	s = strings.ReplaceAll(s, ",", ".")

	clock := s
	frac := 0.0
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		clock = s[:dot]
		f, err := strconv.ParseFloat("0"+s[dot:], 64)
		if err != nil {
			return 0, fmt.Errorf("bad fraction in %q", s)
		}
		frac = f
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad clock %q: want MM:SS or HH:MM:SS", s)
	}

	fields := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad clock field %q in %q", p, s)
		}
		fields[i] = n
	}

	var h, m, sec int
	if len(parts) == 3 {
		h, m, sec = fields[0], fields[1], fields[2]
	} else {
		m, sec = fields[0], fields[1]
	}

	total := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(frac*float64(time.Second))
	return total, nil
}

// formatOffset renders a duration as HH:MM:SS.mmm for warning messages,
// matching the input convention so warnings are easy to locate in the source
// transcript.
func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
