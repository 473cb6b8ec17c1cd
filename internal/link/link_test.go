package link

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/ir"
	tu "github.com/roach88/logicsim/internal/testutil"
)

func linkMain(t *testing.T, p *ir.Program) (*Netlist, error) {
	t.Helper()
	designs, err := elaborate.Elaborate(p, p.Tests[0].Name.Text)
	require.NoError(t, err)
	require.Len(t, designs, 1)
	return Link(designs[0])
}

func at(line int) ir.Span {
	return ir.Span{File: tu.ScenarioFile, Line: line, Column: 2}
}

func spanned(a *ir.Assign, line int) *ir.Assign {
	a.At = at(line)
	return a
}

func instants(n *Netlist) []uint64 {
	out := make([]uint64, len(n.Schedule))
	for i, e := range n.Schedule {
		out[i] = e.Instant
	}
	return out
}

func TestLinkFullAdder(t *testing.T) {
	n, err := linkMain(t, tu.ScenarioB())
	require.NoError(t, err)

	assert.Equal(t, "main", n.Test)
	assert.Equal(t, []uint64{0, 5, 10}, instants(n))
	assert.Len(t, n.Drivers, 7)
	assert.Empty(t, n.Invariants)

	for _, name := range []string{"main.a", "main.b", "main.c_in"} {
		id, ok := n.Lookup(name)
		require.True(t, ok, name)
		assert.True(t, n.Signal(id).Input, name)
		assert.False(t, n.Signal(id).Driven, name)
	}
	for _, name := range []string{"main.o", "main.add_0.a", "main.add_0.c_out"} {
		id, ok := n.Lookup(name)
		require.True(t, ok, name)
		assert.True(t, n.Signal(id).Driven, name)
	}

	first := n.Schedule[0]
	assert.Len(t, first.Stimulus, 3)
	require.Len(t, first.Checks, 2)
	assert.Equal(t, tu.ScenarioBLine, first.Checks[0].At.Line)
	assert.Equal(t, ir.Bit(false), first.Checks[0].Expected)
	assert.Equal(t, "main", first.Checks[0].Scope)
}

func TestLinkSignalIDsAreDense(t *testing.T) {
	n, err := linkMain(t, tu.ScenarioA())
	require.NoError(t, err)

	for i, s := range n.Signals {
		assert.Equal(t, SignalID(i), s.ID)
	}
}

func TestLinkMultipleDrivers(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			spanned(tu.Assign(tu.Bit(true), "y"), 2),
			spanned(tu.Assign(tu.Bit(false), "y"), 3),
			tu.At(0),
		),
	}}

	_, err := linkMain(t, p)
	require.Error(t, err)
	assert.True(t, IsMultipleDriversError(err))

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "main.y", le.Signal)
	assert.Equal(t, 3, le.Span.Line)
	assert.Equal(t, 2, le.Other.Line)
}

func TestLinkMultipleDriversThroughInstance(t *testing.T) {
	p := tu.ScenarioB()
	// o is already bound to the adder output.
	p.Tests[0].Body = append([]ir.Statement{tu.Assign(tu.Bit(true), "o")}, p.Tests[0].Body...)

	_, err := linkMain(t, p)
	require.Error(t, err)
	assert.True(t, IsMultipleDriversError(err))
	assert.Contains(t, err.Error(), "main.o")
}

func TestLinkStimulusOnDrivenSignal(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			spanned(tu.Assign(tu.Not(tu.Ref("a")), "y"), 2),
			tu.At(0),
			tu.Assign(tu.Bit(true), "a"),
			spanned(tu.Assign(tu.Bit(true), "y"), 5),
		),
	}}

	_, err := linkMain(t, p)
	require.Error(t, err)

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeMultipleDrivers, le.Code)
	assert.Equal(t, 5, le.Span.Line)
	assert.Equal(t, 2, le.Other.Line)
	assert.Contains(t, le.Message, "stimulus")
}

func TestLinkStimulusMayRepeat(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.At(0),
			tu.Assign(tu.Bit(true), "a"),
			tu.After(1),
			tu.Assign(tu.Bit(false), "a"),
		),
	}}

	n, err := linkMain(t, p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, instants(n))
}

func TestLinkUndrivenRead(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.Assign(tu.And(tu.Ref("a"), tu.Ref("ghost")), "y"),
			tu.At(0),
			tu.Assign(tu.Bit(true), "a"),
		),
	}}

	_, err := linkMain(t, p)
	require.Error(t, err)
	assert.True(t, IsUndrivenError(err))

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "main.ghost", le.Signal)
}

func TestLinkUndrivenUnitOutput(t *testing.T) {
	p := &ir.Program{
		Circuits: []*ir.Unit{
			// q is declared but never assigned.
			tu.Circuit("lazy", []string{"a"}, []string{"q"}),
		},
		Tests: []*ir.Unit{
			tu.Test("main",
				tu.Assign(tu.Call("lazy", tu.Ref("a")), "q"),
				tu.At(0),
				tu.Assign(tu.Bit(true), "a"),
			),
		},
	}

	_, err := linkMain(t, p)
	require.Error(t, err)
	assert.True(t, IsUndrivenError(err))
	assert.Contains(t, err.Error(), "main.lazy_0.q")
}

func TestLinkUndrivenAssertion(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.At(0),
			tu.Check(tu.Ref("nothing"), true, 3),
		),
	}}

	_, err := linkMain(t, p)
	assert.True(t, IsUndrivenError(err))
}

func TestScheduleAddsInstantZero(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.At(7),
			tu.Assign(tu.Bit(true), "a"),
		),
	}}

	n, err := linkMain(t, p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 7}, instants(n))
	assert.Empty(t, n.Schedule[0].Stimulus)
}

func TestScheduleWithoutDirectives(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main", tu.Assign(tu.Bit(true), "x")),
	}}

	n, err := linkMain(t, p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, instants(n))
}

func TestScheduleAtBeforeClockIsSorted(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.At(10),
			tu.Assign(tu.Bit(true), "a"),
			tu.At(4),
			tu.Assign(tu.Bit(false), "a"),
			tu.After(1),
			tu.Assign(tu.Bit(true), "a"),
		),
	}}

	n, err := linkMain(t, p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 4, 5, 10}, instants(n))
}

func TestScheduleMergesInstances(t *testing.T) {
	p := &ir.Program{
		Processes: []*ir.Unit{
			tu.Process("pulse", nil, []string{"q"},
				tu.At(0),
				tu.Assign(tu.Bit(true), "q"),
				tu.After(3),
				tu.Assign(tu.Bit(false), "q"),
			),
		},
		Tests: []*ir.Unit{
			tu.Test("main",
				tu.Assign(tu.Call("pulse"), "q"),
				tu.After(2),
				tu.Check(tu.Ref("q"), true, 5),
				tu.At(3),
				tu.Check(tu.Ref("q"), false, 7),
			),
		},
	}

	n, err := linkMain(t, p)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 2, 3}, instants(n))

	assert.Len(t, n.Schedule[0].Stimulus, 1)
	assert.Empty(t, n.Schedule[0].Checks)
	assert.Empty(t, n.Schedule[1].Stimulus)
	assert.Len(t, n.Schedule[1].Checks, 1)

	last := n.Schedule[2]
	require.Len(t, last.Stimulus, 1)
	require.Len(t, last.Checks, 1)
	assert.Equal(t, "main.pulse_0.q", n.Signal(last.Stimulus[0].Target).QualifiedName())
	assert.Equal(t, 7, last.Checks[0].At.Line)
}

func TestScheduleOverflow(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.At(math.MaxUint64),
			tu.After(1),
		),
	}}

	_, err := linkMain(t, p)
	require.Error(t, err)

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeTimeOverflow, le.Code)
}

func TestLinkInvariants(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main",
			tu.Assign(tu.Not(tu.Ref("a")), "na"),
			tu.Check(tu.Xor(tu.Ref("a"), tu.Ref("na")), true, 3),
			tu.At(0),
			tu.Assign(tu.Bit(true), "a"),
		),
	}}

	n, err := linkMain(t, p)
	require.NoError(t, err)
	require.Len(t, n.Invariants, 1)
	assert.Equal(t, 3, n.Invariants[0].At.Line)
	assert.Empty(t, n.Schedule[0].Checks)

	op, ok := n.Invariants[0].Expr.(*Op)
	require.True(t, ok)
	assert.Equal(t, ir.OpXor, op.Op)
}

func TestLinkDeterministic(t *testing.T) {
	a, err := linkMain(t, tu.ScenarioB())
	require.NoError(t, err)
	b, err := linkMain(t, tu.ScenarioB())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
