package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/logicsim/internal/ir"
)

// RepeatDetector remembers the signal states seen while settling one
// instant.
//
// A combinational loop with no fixed point revisits an earlier state:
//
//	x = not x:  {x=0} → {x=1} → {x=0} ← REPEAT
//
// Once a state repeats the settle loop can never terminate, so the
// detector reports it long before the pass quota runs out.
//
// Distinction from PassQuota:
//   - RepeatDetector: exact oscillation, caught after one period
//   - PassQuota: bounded work per instant, whatever the cause
type RepeatDetector struct {
	seen map[string]int // state key → pass that produced it
}

// NewRepeatDetector creates an empty detector.
func NewRepeatDetector() *RepeatDetector {
	return &RepeatDetector{seen: make(map[string]int)}
}

// Seen reports whether values was recorded before, and in which pass.
func (d *RepeatDetector) Seen(values []ir.Value) (int, bool) {
	pass, ok := d.seen[stateKey(values)]
	return pass, ok
}

// Record marks values as reached after pass.
func (d *RepeatDetector) Record(values []ir.Value, pass int) {
	d.seen[stateKey(values)] = pass
}

// Clear forgets all states. Called at the start of every instant.
func (d *RepeatDetector) Clear() {
	clear(d.seen)
}

// Size returns the number of distinct states recorded.
func (d *RepeatDetector) Size() int {
	return len(d.seen)
}

func stateKey(values []ir.Value) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(ir.FormatValue(v))
		b.WriteByte(';')
	}
	return b.String()
}

// RepeatedStateError is the cause of a non-convergence error raised by
// the repeat detector.
type RepeatedStateError struct {
	Instant uint64
	// Pass is the pass that reproduced the state; First is the pass that
	// produced it originally (0 is the state before settling).
	Pass  int
	First int
}

// Error implements the error interface.
func (e *RepeatedStateError) Error() string {
	return fmt.Sprintf("pass %d at t=%d repeated the state after pass %d (period %d)",
		e.Pass, e.Instant, e.First, e.Pass-e.First)
}
