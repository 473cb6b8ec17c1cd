package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicsim/internal/ir"
)

func TestRepeatDetector_FirstOccurrence(t *testing.T) {
	d := NewRepeatDetector()
	_, seen := d.Seen([]ir.Value{ir.Bit(false)})
	assert.False(t, seen)
	assert.Equal(t, 0, d.Size())
}

func TestRepeatDetector_AfterRecord(t *testing.T) {
	d := NewRepeatDetector()
	d.Record([]ir.Value{ir.Bit(false), ir.Bit(true)}, 0)
	d.Record([]ir.Value{ir.Bit(true), ir.Bit(true)}, 1)

	pass, seen := d.Seen([]ir.Value{ir.Bit(false), ir.Bit(true)})
	assert.True(t, seen)
	assert.Equal(t, 0, pass)

	pass, seen = d.Seen([]ir.Value{ir.Bit(true), ir.Bit(true)})
	assert.True(t, seen)
	assert.Equal(t, 1, pass)

	_, seen = d.Seen([]ir.Value{ir.Bit(true), ir.Bit(false)})
	assert.False(t, seen, "order of signals matters")
	assert.Equal(t, 2, d.Size())
}

func TestRepeatDetector_DistinguishesWidths(t *testing.T) {
	d := NewRepeatDetector()
	d.Record([]ir.Value{ir.NewWord(4, 3)}, 0)

	_, seen := d.Seen([]ir.Value{ir.NewWord(8, 3)})
	assert.False(t, seen)
	_, seen = d.Seen([]ir.Value{ir.Bit(true)})
	assert.False(t, seen)
}

func TestRepeatDetector_Clear(t *testing.T) {
	d := NewRepeatDetector()
	d.Record([]ir.Value{ir.Bit(true)}, 3)
	require.Equal(t, 1, d.Size())

	d.Clear()
	assert.Equal(t, 0, d.Size())
	_, seen := d.Seen([]ir.Value{ir.Bit(true)})
	assert.False(t, seen)
}

func TestRepeatedStateError_Error(t *testing.T) {
	err := &RepeatedStateError{Instant: 5, Pass: 4, First: 2}
	assert.Equal(t, "pass 4 at t=5 repeated the state after pass 2 (period 2)", err.Error())
}

func TestNonConvergenceError_Message(t *testing.T) {
	err := NewNonConvergenceError("ring", 0, []string{"ring.x"}, &RepeatedStateError{Pass: 2})

	assert.Contains(t, err.Error(), "NON_CONVERGENCE")
	assert.Contains(t, err.Error(), "test=ring")
	assert.Contains(t, err.Error(), "ring.x")
	assert.True(t, IsNonConvergenceError(err))
	assert.False(t, IsListenerError(err))
	assert.False(t, IsAssertionError(err))
}
