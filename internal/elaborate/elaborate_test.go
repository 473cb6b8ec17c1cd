package elaborate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicsim/internal/ir"
	tu "github.com/roach88/logicsim/internal/testutil"
)

func elaborateMain(t *testing.T, p *ir.Program) *Design {
	t.Helper()
	designs, err := Elaborate(p, p.Tests[0].Name.Text)
	require.NoError(t, err)
	require.Len(t, designs, 1)
	return designs[0]
}

func qualified(d *Design) []string {
	out := make([]string, len(d.Signals))
	for i, s := range d.Signals {
		out[i] = d.QualifiedName(s)
	}
	return out
}

func TestElaborateFullAdder(t *testing.T) {
	d := elaborateMain(t, tu.ScenarioB())

	assert.Equal(t, 2, d.Paths.Len(), "root plus one adder instance")
	assert.Equal(t, "main.add_0", d.Paths.Scope(1))

	names := qualified(d)
	for _, want := range []string{
		"main.o", "main.c_out", "main.a", "main.b", "main.c_in",
		"main.add_0.a", "main.add_0.b", "main.add_0.c_in",
		"main.add_0.o", "main.add_0.c_out",
	} {
		assert.Contains(t, names, want)
	}

	roles := map[Role]int{}
	for _, a := range d.Assigns {
		roles[a.Role]++
	}
	assert.Equal(t, 3, roles[RolePortIn])
	assert.Equal(t, 2, roles[RolePortOut])
	assert.Equal(t, 2, roles[RoleLogic])

	require.Len(t, d.Timelines, 1)
	tl := d.Timelines[0]
	assert.Equal(t, Root, tl.Path)
	require.Len(t, tl.Blocks, 3)
	assert.Equal(t, ir.At, tl.Blocks[0].Kind)
	assert.Len(t, tl.Blocks[0].Stimulus, 3)
	assert.Len(t, tl.Blocks[0].Asserts, 2)
	assert.Equal(t, ir.After, tl.Blocks[1].Kind)
	assert.Equal(t, uint64(5), tl.Blocks[1].Time)
	assert.Empty(t, d.Invariants)
}

func TestElaborateSiblingInstancesGetDistinctPaths(t *testing.T) {
	p := &ir.Program{
		Circuits: []*ir.Unit{
			tu.Circuit("inv", []string{"i"}, []string{"o"}, tu.Assign(tu.Not(tu.Ref("i")), "o")),
		},
		Tests: []*ir.Unit{
			tu.Test("main",
				tu.Assign(tu.Call("inv", tu.Ref("a")), "x"),
				tu.Assign(tu.Call("inv", tu.Ref("x")), "y"),
			),
		},
	}
	d := elaborateMain(t, p)

	names := qualified(d)
	assert.Contains(t, names, "main.inv_0.o")
	assert.Contains(t, names, "main.inv_1.o")

	first := Signal{Name: ir.N("o"), Path: 1}
	second := Signal{Name: ir.N("o"), Path: 2}
	assert.False(t, first.Equal(second))
}

func TestElaborateSignalIdentityIgnoresSpan(t *testing.T) {
	a := Signal{Name: ir.Name{Text: "x", Span: ir.Span{Line: 1}}, Path: Root}
	b := Signal{Name: ir.Name{Text: "x", Span: ir.Span{Line: 9}}, Path: Root}
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
}

func TestElaborateNestedCallIsHoisted(t *testing.T) {
	p := &ir.Program{
		Circuits: []*ir.Unit{
			tu.Circuit("inv", []string{"i"}, []string{"o"}, tu.Assign(tu.Not(tu.Ref("i")), "o")),
		},
		Tests: []*ir.Unit{
			tu.Test("main", tu.Assign(tu.And(tu.Ref("a"), tu.Call("inv", tu.Ref("b"))), "y")),
		},
	}
	d := elaborateMain(t, p)
	assert.Contains(t, qualified(d), "main.inv$0")

	var logic *Assign
	for i := range d.Assigns {
		if d.Assigns[i].Target.Name.Text == "y" {
			logic = &d.Assigns[i]
		}
	}
	require.NotNil(t, logic)
	gate, ok := logic.Expr.(*Gate)
	require.True(t, ok)
	ref, ok := gate.Args[1].(*SignalRef)
	require.True(t, ok)
	assert.Equal(t, "inv$0", ref.Signal.Name.Text)
}

func TestElaborateBuiltinFallback(t *testing.T) {
	p := &ir.Program{Tests: []*ir.Unit{
		tu.Test("main", tu.Assign(tu.Call("mux", tu.Ref("s"), tu.Ref("a"), tu.Ref("b")), "y")),
	}}
	d := elaborateMain(t, p)
	require.Len(t, d.Assigns, 1)
	gate, ok := d.Assigns[0].Expr.(*Gate)
	require.True(t, ok)
	assert.Equal(t, ir.OpMux, gate.Op)
	assert.Equal(t, "mux(main.s, main.a, main.b)", d.Format(gate))
}

func TestElaborateUserUnitShadowsBuiltin(t *testing.T) {
	p := &ir.Program{
		Circuits: []*ir.Unit{
			tu.Circuit("buf", []string{"i"}, []string{"o"}, tu.Assign(tu.Not(tu.Ref("i")), "o")),
		},
		Tests: []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("buf", tu.Ref("a")), "y"))},
	}
	d := elaborateMain(t, p)
	assert.Equal(t, 2, d.Paths.Len(), "buf resolved to the user circuit")
}

func TestElaborateTestNamedLikeCalledUnit(t *testing.T) {
	p := tu.ScenarioB()
	p.Tests[0].Name = ir.N("add")

	designs, err := Elaborate(p, "add")
	require.NoError(t, err)
	require.Len(t, designs, 1)
	assert.Equal(t, 2, designs[0].Paths.Len())
	assert.Equal(t, "add.add_0", designs[0].Paths.Scope(1))
}

func TestElaborateProcessTimeline(t *testing.T) {
	p := &ir.Program{
		Processes: []*ir.Unit{
			tu.Process("clock", nil, []string{"clk"},
				tu.At(0), tu.Assign(tu.Bit(false), "clk"),
				tu.After(5), tu.Assign(tu.Bit(true), "clk"),
			),
		},
		Tests: []*ir.Unit{
			tu.Test("main",
				tu.Assign(tu.Call("clock"), "c"),
				tu.Check(tu.Or(tu.Ref("c"), tu.Not(tu.Ref("c"))), true, 3),
				tu.At(10),
			),
		},
	}
	d := elaborateMain(t, p)

	require.Len(t, d.Timelines, 2)
	assert.Equal(t, Root, d.Timelines[0].Path)
	assert.Equal(t, "main.clock_0", d.Paths.Scope(d.Timelines[1].Path))
	assert.Len(t, d.Timelines[1].Blocks, 2)
	assert.Len(t, d.Invariants, 1, "assertion before any directive is an invariant")
}

func TestElaborateStimulusCallSamplesInstance(t *testing.T) {
	p := &ir.Program{
		Circuits: []*ir.Unit{
			tu.Circuit("inv", []string{"i"}, []string{"o"}, tu.Assign(tu.Not(tu.Ref("i")), "o")),
		},
		Tests: []*ir.Unit{
			tu.Test("main", tu.At(0), tu.Assign(tu.Call("inv", tu.Ref("a")), "y")),
		},
	}
	d := elaborateMain(t, p)
	require.Len(t, d.Timelines, 1)
	stim := d.Timelines[0].Blocks[0].Stimulus
	require.Len(t, stim, 1)
	assert.Equal(t, "y", stim[0].Target.Name.Text)
	ref, ok := stim[0].Expr.(*SignalRef)
	require.True(t, ok)
	assert.Equal(t, "inv$0", ref.Signal.Name.Text)
}

func TestElaborateErrors(t *testing.T) {
	inv := tu.Circuit("inv", []string{"i"}, []string{"o"}, tu.Assign(tu.Not(tu.Ref("i")), "o"))
	pair := tu.Circuit("pair", []string{"i"}, []string{"p", "q"},
		tu.Assign(tu.Ref("i"), "p"), tu.Assign(tu.Ref("i"), "q"))

	tests := []struct {
		name string
		prog *ir.Program
		code ErrorCode
	}{
		{
			name: "unknown unit",
			prog: &ir.Program{Tests: []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("nope", tu.Ref("a")), "y"))}},
			code: ErrCodeUnknownUnit,
		},
		{
			name: "self recursion",
			prog: &ir.Program{
				Circuits: []*ir.Unit{tu.Circuit("loop", []string{"i"}, []string{"o"}, tu.Assign(tu.Call("loop", tu.Ref("i")), "o"))},
				Tests:    []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("loop", tu.Ref("a")), "y"))},
			},
			code: ErrCodeInvocationCycle,
		},
		{
			name: "indirect recursion",
			prog: &ir.Program{
				Circuits: []*ir.Unit{
					tu.Circuit("ping", []string{"i"}, []string{"o"}, tu.Assign(tu.Call("pong", tu.Ref("i")), "o")),
					tu.Circuit("pong", []string{"i"}, []string{"o"}, tu.Assign(tu.Call("ping", tu.Ref("i")), "o")),
				},
				Tests: []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("ping", tu.Ref("a")), "y"))},
			},
			code: ErrCodeInvocationCycle,
		},
		{
			name: "too many arguments",
			prog: &ir.Program{
				Circuits: []*ir.Unit{inv},
				Tests:    []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("inv", tu.Ref("a"), tu.Ref("b")), "y"))},
			},
			code: ErrCodeArityMismatch,
		},
		{
			name: "too few targets",
			prog: &ir.Program{
				Circuits: []*ir.Unit{pair},
				Tests:    []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("pair", tu.Ref("a")), "y"))},
			},
			code: ErrCodeArityMismatch,
		},
		{
			name: "multi-output unit inside expression",
			prog: &ir.Program{
				Circuits: []*ir.Unit{pair},
				Tests:    []*ir.Unit{tu.Test("main", tu.Assign(tu.Not(tu.Call("pair", tu.Ref("a"))), "y"))},
			},
			code: ErrCodeArityMismatch,
		},
		{
			name: "primitive with two targets",
			prog: &ir.Program{Tests: []*ir.Unit{tu.Test("main", tu.Assign(tu.And(tu.Ref("a"), tu.Ref("b")), "x", "y"))}},
			code: ErrCodeArityMismatch,
		},
		{
			name: "builtin arity",
			prog: &ir.Program{Tests: []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("mux", tu.Ref("a")), "y"))}},
			code: ErrCodeArityMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Elaborate(tt.prog, "main")
			require.Error(t, err)
			var ee *Error
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.code, ee.Code, ee.Error())
		})
	}
}

func TestElaborateCycleReportsChain(t *testing.T) {
	p := &ir.Program{
		Circuits: []*ir.Unit{
			tu.Circuit("ping", []string{"i"}, []string{"o"}, tu.Assign(tu.Call("pong", tu.Ref("i")), "o")),
			tu.Circuit("pong", []string{"i"}, []string{"o"}, tu.Assign(tu.Call("ping", tu.Ref("i")), "o")),
		},
		Tests: []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("ping", tu.Ref("a")), "y"))},
	}
	_, err := Elaborate(p, "main")
	require.Error(t, err)
	assert.True(t, IsCycleError(err))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, []string{"main", "ping", "pong", "ping"}, ee.Chain)
}

func TestElaborateDepthLimit(t *testing.T) {
	// chain of distinct units l0 -> l1 -> l2 -> l3
	var circuits []*ir.Unit
	names := []string{"l0", "l1", "l2", "l3"}
	for i, n := range names {
		body := tu.Assign(tu.Ref("i"), "o")
		if i+1 < len(names) {
			body = tu.Assign(tu.Call(names[i+1], tu.Ref("i")), "o")
		}
		circuits = append(circuits, tu.Circuit(n, []string{"i"}, []string{"o"}, body))
	}
	p := &ir.Program{
		Circuits: circuits,
		Tests:    []*ir.Unit{tu.Test("main", tu.Assign(tu.Call("l0", tu.Ref("a")), "y"))},
	}

	_, err := Elaborate(p, "main", WithMaxDepth(4))
	require.NoError(t, err)

	_, err = Elaborate(p, "main", WithMaxDepth(3))
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeDepthExceeded, ee.Code)
}

func TestElaborateUnknownTest(t *testing.T) {
	_, err := Elaborate(tu.ScenarioA(), "missing")
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeUnknownTest, ee.Code)
}

func TestElaborateEveryTestWithName(t *testing.T) {
	p := tu.ScenarioA()
	p.Tests = append(p.Tests, tu.Test("main", tu.At(0)))
	designs, err := Elaborate(p, "main")
	require.NoError(t, err)
	assert.Len(t, designs, 2)
}

func TestElaborateDeterministic(t *testing.T) {
	d1 := elaborateMain(t, tu.ScenarioB())
	d2 := elaborateMain(t, tu.ScenarioB())
	assert.Equal(t, qualified(d1), qualified(d2))
	assert.Equal(t, len(d1.Assigns), len(d2.Assigns))
	for i := range d1.Assigns {
		assert.Equal(t, d1.QualifiedName(d1.Assigns[i].Target), d2.QualifiedName(d2.Assigns[i].Target))
	}
}

func TestPathsChainAndScope(t *testing.T) {
	paths := NewPaths(ir.N("main"))
	a := paths.Push(Root, ir.N("add"), ir.Span{})
	b := paths.Push(a, ir.N("half"), ir.Span{})
	c := paths.Push(a, ir.N("half"), ir.Span{})

	assert.Equal(t, "main.add_0.half_1", paths.Scope(c))
	assert.Equal(t, []string{"main", "add", "half"}, paths.Chain(b))
	assert.Equal(t, 2, paths.Depth(b))
	assert.True(t, paths.Calls(b, "add"))
	assert.False(t, paths.Calls(a, "half"))
	assert.False(t, paths.Calls(b, "main"), "the root names a test, not a unit")
	assert.Equal(t, a, paths.Frame(b).Parent)
}
