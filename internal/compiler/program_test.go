package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicsim/internal/ir"
)

const fullAdderSource = `
circuit: add: {
	inputs: ["a", "b", "c_in"]
	outputs: ["o", "c_out"]
	body: [
		{assign: "o", expr: ["xor", "a", "b", "c_in"]},
		{assign: "c_out", expr: ["or", ["and", "a", "b"], ["and", ["xor", "a", "b"], "c_in"]]},
	]
}

test: main: body: [
	{assign: ["o", "c_out"], expr: ["add", "a", "b", "c_in"]},
	{at: "0ns"},
	{assign: "a", expr: 1},
	{assign: "b", expr: true},
	{assign: "c_in", expr: 0},
	{assert: "o", equals: 0},
	{after: 5},
	{assign: "a", expr: {number: 0}},
]
`

func compileSource(t *testing.T, src string) (*ir.Program, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	return CompileProgram(v, ir.Nanosecond)
}

func TestCompileProgramFullAdder(t *testing.T) {
	prog, err := compileSource(t, fullAdderSource)
	require.NoError(t, err)

	require.Len(t, prog.Circuits, 1)
	require.Len(t, prog.Tests, 1)
	assert.Empty(t, prog.Processes)

	add := prog.Circuits[0]
	assert.Equal(t, "add", add.Name.Text)
	assert.Equal(t, ir.KindCircuit, add.Kind)
	assert.Equal(t, []string{"a", "b", "c_in"}, names(add.Inputs))
	assert.Equal(t, []string{"o", "c_out"}, names(add.Outputs))
	require.Len(t, add.Body, 2)

	sum := add.Body[0].(*ir.Assign)
	nary, ok := sum.Expr.(*ir.NaryOp)
	require.True(t, ok, "three-operand xor is n-ary")
	assert.Equal(t, ir.OpXor, nary.Op)
	assert.Len(t, nary.Params, 3)

	carry := add.Body[1].(*ir.Assign)
	assert.Equal(t, "((a and b) or ((a xor b) and c_in))", carry.Expr.String())

	main := prog.Tests[0]
	require.Len(t, main.Body, 8)

	call := main.Body[0].(*ir.Assign)
	assert.Equal(t, []string{"o", "c_out"}, names(call.Targets))
	callee, args, ok := ir.Callee(call.Expr)
	require.True(t, ok)
	assert.Equal(t, "add", callee.Text)
	assert.Len(t, args, 3)

	at := main.Body[1].(*ir.Directive)
	assert.Equal(t, ir.At, at.Kind)
	assert.Equal(t, uint64(0), at.Time)

	bit := main.Body[3].(*ir.Assign)
	assert.Equal(t, ir.Const{Value: ir.BitConst(true), At: bit.Expr.Pos()}, bit.Expr)

	check := main.Body[5].(*ir.Assert)
	assert.Equal(t, ir.BitConst(false), check.Expected)
	assert.Equal(t, "test.cue", check.At.File)
	assert.Greater(t, check.At.Line, 0)
	assert.Contains(t, check.Source, "assert")

	after := main.Body[6].(*ir.Directive)
	assert.Equal(t, ir.After, after.Kind)
	assert.Equal(t, uint64(5), after.Time)

	num := main.Body[7].(*ir.Assign)
	assert.Equal(t, ir.NumberConst(0), num.Expr.(ir.Const).Value)
}

func TestCompileProgramDeclarationOrder(t *testing.T) {
	prog, err := compileSource(t, `
test: zeta: body: []
test: alpha: body: []
test: mid: body: []
`)
	require.NoError(t, err)
	require.Len(t, prog.Tests, 3)
	assert.Equal(t, "zeta", prog.Tests[0].Name.Text)
	assert.Equal(t, "alpha", prog.Tests[1].Name.Text)
	assert.Equal(t, "mid", prog.Tests[2].Name.Text)
}

func TestCompileProgramTimeUnits(t *testing.T) {
	prog, err := compileSource(t, `
test: main: body: [
	{at: "2us"},
	{after: "500ns"},
	{after: 7},
]
`)
	require.NoError(t, err)
	body := prog.Tests[0].Body
	assert.Equal(t, uint64(2000), body[0].(*ir.Directive).Time)
	assert.Equal(t, uint64(500), body[1].(*ir.Directive).Time)
	assert.Equal(t, uint64(7), body[2].(*ir.Directive).Time)
}

func TestCompileProgramPrimitiveForms(t *testing.T) {
	prog, err := compileSource(t, `
process: p: {
	inputs: ["s", "x", "y"]
	outputs: ["n", "m", "q"]
	body: [
		{assign: "n", expr: ["not", "x"]},
		{assign: "m", expr: ["mux", "s", "x", "y"]},
		{assign: "q", expr: ["nand", "x", "y"]},
	]
}
`)
	require.NoError(t, err)
	require.Len(t, prog.Processes, 1)
	body := prog.Processes[0].Body

	not := body[0].(*ir.Assign).Expr.(*ir.NaryOp)
	assert.Equal(t, ir.OpNot, not.Op)

	mux := body[1].(*ir.Assign).Expr.(*ir.NaryOp)
	assert.Equal(t, ir.OpCustom, mux.Op, "mux resolves during elaboration")
	assert.Equal(t, "mux", mux.Custom.Text)

	nand := body[2].(*ir.Assign).Expr.(*ir.BinaryOp)
	assert.Equal(t, ir.OpNand, nand.Op)
}

func TestCompileProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad bit literal", `test: main: body: [{assign: "a", expr: 2}]`},
		{"not arity", `test: main: body: [{assign: "a", expr: ["not", "x", "y"]}]`},
		{"and arity", `test: main: body: [{assign: "a", expr: ["and", "x"]}]`},
		{"unknown statement", `test: main: body: [{wait: 5}]`},
		{"bad time", `test: main: body: [{after: "5 days"}]`},
		{"fractional time", `test: main: body: [{after: "1500ps"}]`},
		{"bad name", `test: main: body: [{assign: "1a", expr: 1}]`},
		{"test with ports", `test: main: {inputs: ["a"], body: []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSource(t, tt.src)
			require.Error(t, err)
			var ce *CompileError
			assert.True(t, errors.As(err, &ce), "got %T: %v", err, err)
		})
	}
}

func TestCompileErrorFormatting(t *testing.T) {
	err := &CompileError{Field: "expr", Message: "boom"}
	assert.Equal(t, "expr: boom", err.Error())
	assert.False(t, err.Span().IsValid())
}

func names(ns []ir.Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Text
	}
	return out
}
