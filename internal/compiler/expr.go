package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/logicsim/internal/ir"
)

// compileExpr converts the structured expression encoding:
//
//	"a"                    signal reference
//	true, false, 0, 1      bit constant
//	{number: 9}            numeric constant
//	["and", x, y, ...]     builtin binary gate, n-ary when more than two operands
//	["not", x]             inverter
//	["add", x, y, ...]     any other name: custom gate, resolved during elaboration
func compileExpr(v cue.Value) (ir.Expr, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "expr", Message: "expression is required", Pos: v.Pos()}
	}
	at := spanOf(v)

	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Ref{Name: ir.Name{Text: s, Span: at}}, nil

	case cue.BoolKind, cue.IntKind, cue.StructKind:
		c, err := compileConstant(v)
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: c, At: at}, nil

	case cue.ListKind:
		return compileOperation(v, at)

	default:
		return nil, &CompileError{
			Field:   "expr",
			Message: fmt.Sprintf("unsupported expression kind %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func compileOperation(v cue.Value, at ir.Span) (ir.Expr, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if !iter.Next() {
		return nil, &CompileError{Field: "expr", Message: "operation list is empty", Pos: v.Pos()}
	}
	head := iter.Value()
	opName, err := head.String()
	if err != nil {
		return nil, &CompileError{Field: "expr", Message: "operation must start with a gate name", Pos: head.Pos()}
	}

	var args []ir.Expr
	for iter.Next() {
		arg, err := compileExpr(iter.Value())
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	op, builtin := ir.Builtin(opName)
	switch {
	case builtin && op.IsBinary():
		if len(args) < 2 {
			return nil, &CompileError{
				Field:   "expr",
				Message: fmt.Sprintf("%s needs at least two operands, got %d", opName, len(args)),
				Pos:     v.Pos(),
			}
		}
		if len(args) == 2 {
			return &ir.BinaryOp{A: args[0], B: args[1], Op: op, At: at}, nil
		}
		return &ir.NaryOp{Params: args, Op: op, At: at}, nil

	case builtin && op == ir.OpNot:
		if len(args) != 1 {
			return nil, &CompileError{
				Field:   "expr",
				Message: fmt.Sprintf("not takes one operand, got %d", len(args)),
				Pos:     v.Pos(),
			}
		}
		return &ir.NaryOp{Params: args, Op: ir.OpNot, At: at}, nil
	}

	// buf and mux stay custom so a user unit of the same name takes precedence.
	name := ir.Name{Text: opName, Span: spanOf(head)}
	if len(args) == 2 {
		return &ir.BinaryOp{A: args[0], B: args[1], Op: ir.OpCustom, Custom: name, At: at}, nil
	}
	return &ir.NaryOp{Params: args, Op: ir.OpCustom, Custom: name, At: at}, nil
}

func compileConstant(v cue.Value) (ir.Constant, error) {
	if !v.Exists() {
		return ir.Constant{}, &CompileError{Field: "constant", Message: "value is required", Pos: v.Pos()}
	}
	switch v.Kind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return ir.Constant{}, formatCUEError(err)
		}
		return ir.BitConst(b), nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return ir.Constant{}, formatCUEError(err)
		}
		if n != 0 && n != 1 {
			return ir.Constant{}, &CompileError{
				Field:   "constant",
				Message: fmt.Sprintf("bit literal must be 0 or 1, got %d (use {number: %d})", n, n),
				Pos:     v.Pos(),
			}
		}
		return ir.BitConst(n == 1), nil

	case cue.StructKind:
		nv := v.LookupPath(cue.ParsePath("number"))
		if !nv.Exists() {
			return ir.Constant{}, &CompileError{Field: "constant", Message: "struct constant needs a number field", Pos: v.Pos()}
		}
		n, err := nv.Uint64()
		if err != nil {
			return ir.Constant{}, &CompileError{Field: "constant", Message: err.Error(), Pos: nv.Pos()}
		}
		return ir.NumberConst(n), nil

	default:
		return ir.Constant{}, &CompileError{
			Field:   "constant",
			Message: fmt.Sprintf("unsupported constant kind %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}
