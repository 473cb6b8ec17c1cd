package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/token"

	"github.com/roach88/logicsim/internal/ir"
)

// CompileProgram turns a CUE document into an ir.Program.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value is the package root holding the circuit, process and test
// structs, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`test: main: body: [{at: 0}, {assign: "a", expr: 1}]`)
//	prog, err := CompileProgram(v, ir.Nanosecond)
//
// Units keep source declaration order. Time literals with a suffix are
// converted to ticks of unit.
func CompileProgram(v cue.Value, unit ir.TimeUnit) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := CheckSchema(v); err != nil {
		return nil, err
	}

	c := &unitCompiler{unit: unit}
	prog := &ir.Program{}

	var err error
	if prog.Circuits, err = c.compileUnits(v, "circuit", ir.KindCircuit); err != nil {
		return nil, err
	}
	if prog.Processes, err = c.compileUnits(v, "process", ir.KindProcess); err != nil {
		return nil, err
	}
	if prog.Tests, err = c.compileUnits(v, "test", ir.KindTest); err != nil {
		return nil, err
	}
	return prog, nil
}

type unitCompiler struct {
	unit ir.TimeUnit
}

func (c *unitCompiler) compileUnits(root cue.Value, field string, kind ir.UnitKind) ([]*ir.Unit, error) {
	v := root.LookupPath(cue.ParsePath(field))
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var units []*ir.Unit
	for iter.Next() {
		u, err := c.compileUnit(iter.Label(), iter.Value(), kind)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (c *unitCompiler) compileUnit(name string, v cue.Value, kind ir.UnitKind) (*ir.Unit, error) {
	u := &ir.Unit{
		Kind: kind,
		Name: ir.Name{Text: name, Span: spanOf(v)},
	}

	var err error
	if kind != ir.KindTest {
		if u.Inputs, err = compileNames(v.LookupPath(cue.ParsePath("inputs")), "inputs"); err != nil {
			return nil, err
		}
		if u.Outputs, err = compileNames(v.LookupPath(cue.ParsePath("outputs")), "outputs"); err != nil {
			return nil, err
		}
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, &CompileError{
			Field:   kind.String() + "." + name + ".body",
			Message: "body is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := bodyVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		st, err := c.compileStatement(iter.Value())
		if err != nil {
			return nil, err
		}
		u.Body = append(u.Body, st)
	}
	return u, nil
}

// compileNames accepts a single name or a list of names.
// A missing value yields an empty list.
func compileNames(v cue.Value, field string) ([]ir.Name, error) {
	if !v.Exists() {
		return nil, nil
	}
	if s, err := v.String(); err == nil {
		return []ir.Name{{Text: s, Span: spanOf(v)}}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a name or a list of names", Pos: v.Pos()}
	}
	var names []ir.Name
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		names = append(names, ir.Name{Text: s, Span: spanOf(iter.Value())})
	}
	return names, nil
}

func (c *unitCompiler) compileStatement(v cue.Value) (ir.Statement, error) {
	at := spanOf(v)

	if target := v.LookupPath(cue.ParsePath("assign")); target.Exists() {
		targets, err := compileNames(target, "assign")
		if err != nil {
			return nil, err
		}
		expr, err := compileExpr(v.LookupPath(cue.ParsePath("expr")))
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Targets: targets, Expr: expr, At: at}, nil
	}

	if check := v.LookupPath(cue.ParsePath("assert")); check.Exists() {
		expr, err := compileExpr(check)
		if err != nil {
			return nil, err
		}
		expected, err := compileConstant(v.LookupPath(cue.ParsePath("equals")))
		if err != nil {
			return nil, err
		}
		return &ir.Assert{Expr: expr, Expected: expected, At: at, Source: snippet(v)}, nil
	}

	for _, d := range []struct {
		field string
		kind  ir.DirectiveKind
	}{{"at", ir.At}, {"after", ir.After}} {
		tv := v.LookupPath(cue.ParsePath(d.field))
		if !tv.Exists() {
			continue
		}
		ticks, err := c.compileTime(tv)
		if err != nil {
			return nil, err
		}
		return &ir.Directive{Kind: d.kind, Time: ticks, At: at}, nil
	}

	return nil, &CompileError{
		Field:   "statement",
		Message: "expected one of assign, assert, at, after",
		Pos:     v.Pos(),
	}
}

func (c *unitCompiler) compileTime(v cue.Value) (uint64, error) {
	if n, err := v.Uint64(); err == nil {
		return n, nil
	}
	s, err := v.String()
	if err != nil {
		return 0, &CompileError{Field: "time", Message: "must be a non-negative integer or a duration string", Pos: v.Pos()}
	}
	ticks, err := ir.ParseTime(s, c.unit)
	if err != nil {
		return 0, &CompileError{Field: "time", Message: err.Error(), Pos: v.Pos()}
	}
	return ticks, nil
}

func spanOf(v cue.Value) ir.Span {
	return spanOfPos(v.Pos())
}

func spanOfPos(p token.Pos) ir.Span {
	if !p.IsValid() {
		return ir.Span{}
	}
	return ir.Span{File: p.Filename(), Line: p.Line(), Column: p.Column(), Offset: p.Offset()}
}

// snippet renders the statement source on one line.
func snippet(v cue.Value) string {
	b, err := format.Node(v.Syntax(cue.Raw()))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(string(b)), " ")
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Span converts the error position into an ir.Span.
func (e *CompileError) Span() ir.Span {
	return spanOfPos(e.Pos)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
