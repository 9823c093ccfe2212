package transcript

import (
	"fmt"
	"sort"
)

// assemble turns an append-order segment sequence into a validated
// [Timeline]: stable-sorted by start time, densely reindexed, with defensive
// clamping of inverted time ranges. assemble is a pure function — the same
// input always yields the same Timeline and the same warnings, which keeps
// reports and tests reproducible.
func assemble(segs []Segment, warn func(string)) *Timeline {
	// Remember input positions to detect how far sorting moved things.
	order := make(map[int]int, len(segs))
	for i := range segs {
		segs[i].Index = i
	}

	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].Start < segs[j].Start
	})

	maxDisplacement := 0
	for newIdx := range segs {
		oldIdx := segs[newIdx].Index
		order[oldIdx] = newIdx
		d := newIdx - oldIdx
		if d < 0 {
			d = -d
		}
		if d > maxDisplacement {
			maxDisplacement = d
		}
	}
	// An adjacent swap is ordinary caption jitter; anything that moved a
	// segment further than one position means the source timestamps were
	// materially out of order.
	if maxDisplacement > 1 {
		warn(fmt.Sprintf("reordered out-of-order segments (max displacement %d)", maxDisplacement))
	}

	tl := &Timeline{Segments: segs}
	for i := range tl.Segments {
		seg := &tl.Segments[i]
		seg.Index = i

		if seg.End < seg.Start {
			warn(fmt.Sprintf("clamped segment %d: end before start", i))
			seg.End = seg.Start
		}
		if seg.End > tl.Duration {
			tl.Duration = seg.End
		}
	}
	return tl
}
