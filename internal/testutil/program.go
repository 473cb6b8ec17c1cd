package testutil

import "github.com/roach88/logicsim/internal/ir"

// ScenarioFile is the file name recorded in spans of the builder programs.
const ScenarioFile = "scenario.cue"

// Ref reads a signal.
func Ref(name string) ir.Expr { return ir.Ref{Name: ir.N(name)} }

// Bit is a bit constant.
func Bit(b bool) ir.Expr { return ir.Const{Value: ir.BitConst(b)} }

// Num is a numeric constant.
func Num(n uint64) ir.Expr { return ir.Const{Value: ir.NumberConst(n)} }

// Gate applies a builtin binary action, n-ary when more than two operands.
func Gate(op ir.Op, args ...ir.Expr) ir.Expr {
	if len(args) == 2 {
		return &ir.BinaryOp{A: args[0], B: args[1], Op: op}
	}
	return &ir.NaryOp{Params: args, Op: op}
}

// And is a AND b [AND ...].
func And(args ...ir.Expr) ir.Expr { return Gate(ir.OpAnd, args...) }

// Or is a OR b [OR ...].
func Or(args ...ir.Expr) ir.Expr { return Gate(ir.OpOr, args...) }

// Xor is a XOR b [XOR ...].
func Xor(args ...ir.Expr) ir.Expr { return Gate(ir.OpXor, args...) }

// Not inverts a.
func Not(a ir.Expr) ir.Expr { return &ir.NaryOp{Params: []ir.Expr{a}, Op: ir.OpNot} }

// Call invokes a unit or named builtin gate.
func Call(unit string, args ...ir.Expr) ir.Expr {
	return &ir.NaryOp{Params: args, Op: ir.OpCustom, Custom: ir.N(unit)}
}

// Assign binds targets to e.
func Assign(e ir.Expr, targets ...string) *ir.Assign {
	names := make([]ir.Name, len(targets))
	for i, t := range targets {
		names[i] = ir.N(t)
	}
	return &ir.Assign{Targets: names, Expr: e}
}

// Check asserts e equals the bit want. line becomes the span line.
func Check(e ir.Expr, want bool, line int) *ir.Assert {
	return &ir.Assert{
		Expr:     e,
		Expected: ir.BitConst(want),
		At:       ir.Span{File: ScenarioFile, Line: line, Column: 2},
		Source:   "assert " + e.String(),
	}
}

// At is an absolute time directive.
func At(t uint64) *ir.Directive { return &ir.Directive{Kind: ir.At, Time: t} }

// After is a relative time directive.
func After(t uint64) *ir.Directive { return &ir.Directive{Kind: ir.After, Time: t} }

// Circuit builds a circuit unit.
func Circuit(name string, inputs, outputs []string, body ...ir.Statement) *ir.Unit {
	return unit(ir.KindCircuit, name, inputs, outputs, body)
}

// Process builds a process unit.
func Process(name string, inputs, outputs []string, body ...ir.Statement) *ir.Unit {
	return unit(ir.KindProcess, name, inputs, outputs, body)
}

// Test builds a test unit.
func Test(name string, body ...ir.Statement) *ir.Unit {
	return unit(ir.KindTest, name, nil, nil, body)
}

func unit(kind ir.UnitKind, name string, inputs, outputs []string, body []ir.Statement) *ir.Unit {
	u := &ir.Unit{Kind: kind, Name: ir.N(name), Body: body}
	for _, in := range inputs {
		u.Inputs = append(u.Inputs, ir.N(in))
	}
	for _, out := range outputs {
		u.Outputs = append(u.Outputs, ir.N(out))
	}
	return u
}

// ScenarioA is a two-output AND/OR circuit: d = a AND b, e = b OR c.
// Both assertions pass.
func ScenarioA() *ir.Program {
	return &ir.Program{
		Circuits: []*ir.Unit{
			Circuit("andor", []string{"a", "b", "c"}, []string{"d", "e"},
				Assign(And(Ref("a"), Ref("b")), "d"),
				Assign(Or(Ref("b"), Ref("c")), "e"),
			),
		},
		Tests: []*ir.Unit{
			Test("main",
				Assign(Call("andor", Ref("a"), Ref("b"), Ref("c")), "d", "e"),
				At(0),
				Assign(Bit(true), "a"),
				Assign(Bit(true), "b"),
				Check(Ref("d"), true, 6),
				After(5),
				Assign(Bit(false), "b"),
				Assign(Bit(true), "c"),
				Check(Ref("e"), true, 10),
			),
		},
	}
}

// FullAdder is o = a XOR b XOR c_in, c_out = (a AND b) OR ((a XOR b) AND c_in).
func FullAdder() *ir.Unit {
	return Circuit("add", []string{"a", "b", "c_in"}, []string{"o", "c_out"},
		Assign(Xor(Ref("a"), Ref("b"), Ref("c_in")), "o"),
		Assign(Or(And(Ref("a"), Ref("b")), And(Xor(Ref("a"), Ref("b")), Ref("c_in"))), "c_out"),
	)
}

// ScenarioBLine is the span line of the first assertion in the adder test.
const ScenarioBLine = 7

// ScenarioB drives the full adder through three instants. All pass.
func ScenarioB() *ir.Program {
	return adderProgram(false)
}

// ScenarioC is ScenarioB with the first assertion expecting o=1, which
// fails at instant 0 with expected 1, actual 0.
func ScenarioC() *ir.Program {
	return adderProgram(true)
}

func adderProgram(wrongFirst bool) *ir.Program {
	return &ir.Program{
		Circuits: []*ir.Unit{FullAdder()},
		Tests: []*ir.Unit{
			Test("main",
				Assign(Call("add", Ref("a"), Ref("b"), Ref("c_in")), "o", "c_out"),
				At(0),
				Assign(Bit(true), "a"),
				Assign(Bit(true), "b"),
				Assign(Bit(false), "c_in"),
				Check(Ref("o"), wrongFirst, ScenarioBLine),
				Check(Ref("c_out"), true, 8),
				After(5),
				Assign(Bit(false), "a"),
				Assign(Bit(false), "b"),
				Check(Ref("o"), false, 12),
				Check(Ref("c_out"), false, 13),
				After(5),
				Assign(Bit(true), "a"),
				Assign(Bit(false), "b"),
				Check(Ref("o"), true, 17),
				Check(Ref("c_out"), false, 18),
			),
		},
	}
}

// Oscillator drives x from its own inverse; it never settles.
func Oscillator() *ir.Program {
	return &ir.Program{
		Tests: []*ir.Unit{
			Test("ring",
				Assign(Not(Ref("x")), "x"),
				At(0),
			),
		},
	}
}
