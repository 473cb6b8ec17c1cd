package link

import (
	"fmt"
	"math"
	"sort"

	"github.com/roach88/logicsim/internal/ir"
)

// ErrCodeTimeOverflow indicates an after directive pushed the clock past uint64.
const ErrCodeTimeOverflow ErrorCode = "TIME_OVERFLOW"

type timed struct {
	instant uint64
	entry   Entry
}

// schedule turns every timeline into absolute instants and merges them.
// Each timeline keeps its own clock: after adds to it, at replaces it.
// Entries sharing an instant are concatenated in declaration order.
func (l *linker) schedule() ([]Entry, error) {
	var all []timed
	for _, tl := range l.design.Timelines {
		var clock uint64
		for _, b := range tl.Blocks {
			switch b.Kind {
			case ir.After:
				if b.Time > math.MaxUint64-clock {
					return nil, &Error{
						Code:    ErrCodeTimeOverflow,
						Message: fmt.Sprintf("after %d from instant %d overflows the clock", b.Time, clock),
						Span:    b.At,
					}
				}
				clock += b.Time
			case ir.At:
				clock = b.Time
			}
			e := Entry{Instant: clock, Stimulus: l.stimulus(b.Stimulus)}
			for _, a := range b.Asserts {
				e.Checks = append(e.Checks, l.check(a))
			}
			all = append(all, timed{instant: clock, entry: e})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].instant < all[j].instant })

	var out []Entry
	if len(all) == 0 || all[0].instant != 0 {
		out = append(out, Entry{Instant: 0})
	}
	for _, t := range all {
		if n := len(out); n > 0 && out[n-1].Instant == t.instant {
			out[n-1].Stimulus = append(out[n-1].Stimulus, t.entry.Stimulus...)
			out[n-1].Checks = append(out[n-1].Checks, t.entry.Checks...)
			continue
		}
		out = append(out, t.entry)
	}
	return out, nil
}
