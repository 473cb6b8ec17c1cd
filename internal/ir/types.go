package ir

import (
	"fmt"
	"strings"
)

// Span locates a source construct for diagnostics.
// The zero Span means the location is unknown.
type Span struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// IsValid reports whether the span carries a position.
func (s Span) IsValid() bool {
	return s.Line > 0
}

func (s Span) String() string {
	if !s.IsValid() {
		return "<unknown>"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Name is a signal or unit identifier.
//
// Span is diagnostic only. Two Names with the same text denote the same
// signal regardless of where each was written, so comparisons and map keys
// must go through Equal and Key rather than ==.
type Name struct {
	Text string `json:"text"`
	Span Span   `json:"span,omitempty"`
}

// N creates a Name without location.
func N(text string) Name {
	return Name{Text: text}
}

// Key returns the identity of the name, excluding its span.
func (n Name) Key() string {
	return n.Text
}

// Equal compares names by text, ignoring spans.
func (n Name) Equal(other Name) bool {
	return n.Text == other.Text
}

func (n Name) String() string {
	return n.Text
}

// ConstantKind distinguishes literal kinds.
type ConstantKind int

const (
	// ConstBit is a single-bit literal (0/1, true/false).
	ConstBit ConstantKind = iota + 1
	// ConstNumber is an unsigned multi-bit literal.
	ConstNumber
)

// Constant is a literal value.
type Constant struct {
	Kind   ConstantKind `json:"kind"`
	Bit    bool         `json:"bit,omitempty"`
	Number uint64       `json:"number,omitempty"`
}

// BitConst creates a single-bit constant.
func BitConst(b bool) Constant {
	return Constant{Kind: ConstBit, Bit: b}
}

// NumberConst creates a numeric constant.
func NumberConst(n uint64) Constant {
	return Constant{Kind: ConstNumber, Number: n}
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstBit:
		if c.Bit {
			return "1"
		}
		return "0"
	case ConstNumber:
		return fmt.Sprintf("#%d", c.Number)
	default:
		return "<invalid>"
	}
}

// Op names a gate operation.
type Op int

const (
	OpAnd Op = iota + 1
	OpOr
	OpNand
	OpNor
	OpXor
	OpXnor
	OpNot
	OpBuf
	OpMux
	// OpCustom refers to a named gate: a user circuit/process or an unknown name.
	OpCustom
)

var opNames = map[Op]string{
	OpAnd:    "and",
	OpOr:     "or",
	OpNand:   "nand",
	OpNor:    "nor",
	OpXor:    "xor",
	OpXnor:   "xnor",
	OpNot:    "not",
	OpBuf:    "buf",
	OpMux:    "mux",
	OpCustom: "custom",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// IsBinary reports whether o is one of the two-input gate actions
// (and/or/nand/nor/xor/xnor), which may also be applied n-ary.
func (o Op) IsBinary() bool {
	switch o {
	case OpAnd, OpOr, OpNand, OpNor, OpXor, OpXnor:
		return true
	}
	return false
}

// Builtin resolves a primitive gate by name. The operators (and, or, not,
// ...) are reserved; buf and mux are looked up only when no user unit has
// that name.
func Builtin(name string) (Op, bool) {
	for op, s := range opNames {
		if op != OpCustom && s == name {
			return op, true
		}
	}
	return 0, false
}

// Expr is a combinational expression tree.
// Only Ref, Const, *BinaryOp and *NaryOp implement it.
type Expr interface {
	expr() // sealed
	Pos() Span
	String() string
}

// Ref reads a signal.
type Ref struct {
	Name Name
}

// Const is a literal operand.
type Const struct {
	Value Constant
	At    Span
}

// BinaryOp applies a two-input action. Custom is set when Op is OpCustom.
type BinaryOp struct {
	A, B   Expr
	Op     Op
	Custom Name
	At     Span
}

// NaryOp applies a unary action, a binary action across n operands, or a
// custom named gate with any number of inputs.
type NaryOp struct {
	Params []Expr
	Op     Op
	Custom Name
	At     Span
}

func (Ref) expr()       {}
func (Const) expr()     {}
func (*BinaryOp) expr() {}
func (*NaryOp) expr()   {}

func (r Ref) Pos() Span       { return r.Name.Span }
func (c Const) Pos() Span     { return c.At }
func (b *BinaryOp) Pos() Span { return b.At }
func (n *NaryOp) Pos() Span   { return n.At }

func (r Ref) String() string   { return r.Name.Text }
func (c Const) String() string { return c.Value.String() }

func (b *BinaryOp) String() string {
	op := b.Op.String()
	if b.Op == OpCustom {
		op = b.Custom.Text
	}
	return fmt.Sprintf("(%s %s %s)", b.A, op, b.B)
}

func (n *NaryOp) String() string {
	if n.Op == OpNot && len(n.Params) == 1 {
		return "not " + n.Params[0].String()
	}
	op := n.Op.String()
	if n.Op == OpCustom {
		op = n.Custom.Text
	}
	parts := make([]string, len(n.Params))
	for i, p := range n.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", op, strings.Join(parts, ", "))
}

// Callee returns the custom gate name invoked by e, if any.
func Callee(e Expr) (Name, []Expr, bool) {
	switch x := e.(type) {
	case *BinaryOp:
		if x.Op == OpCustom {
			return x.Custom, []Expr{x.A, x.B}, true
		}
	case *NaryOp:
		if x.Op == OpCustom {
			return x.Custom, x.Params, true
		}
	}
	return Name{}, nil, false
}

// Statement is a body element of a unit.
// Only *Assign, *Assert and *Directive implement it.
type Statement interface {
	statement() // sealed
	Pos() Span
}

// Assign binds one or more targets to the value of one expression.
// Several targets are only meaningful for multi-output custom gates.
type Assign struct {
	Targets []Name
	Expr    Expr
	At      Span
}

// Assert checks that Expr evaluates to Expected.
// Source holds the statement text for user-facing diagnostics.
type Assert struct {
	Expr     Expr
	Expected Constant
	At       Span
	Source   string
}

// DirectiveKind distinguishes relative and absolute time directives.
type DirectiveKind int

const (
	// After advances the clock relative to the previous directive.
	After DirectiveKind = iota + 1
	// At sets the clock to an absolute instant.
	At
)

func (k DirectiveKind) String() string {
	switch k {
	case After:
		return "after"
	case At:
		return "at"
	default:
		return "directive"
	}
}

// Directive groups the statements following it under a point in time.
// Time is expressed in the simulation time unit.
type Directive struct {
	Kind DirectiveKind
	Time uint64
	At   Span
}

func (*Assign) statement()    {}
func (*Assert) statement()    {}
func (*Directive) statement() {}

func (a *Assign) Pos() Span    { return a.At }
func (a *Assert) Pos() Span    { return a.At }
func (d *Directive) Pos() Span { return d.At }

// UnitKind distinguishes circuits, processes and tests.
type UnitKind int

const (
	// KindCircuit is purely combinational: no time directives.
	KindCircuit UnitKind = iota + 1
	// KindProcess may contain time directives.
	KindProcess
	// KindTest is a top-level process without ports.
	KindTest
)

func (k UnitKind) String() string {
	switch k {
	case KindCircuit:
		return "circuit"
	case KindProcess:
		return "process"
	case KindTest:
		return "test"
	default:
		return "unit"
	}
}

// Unit is a circuit, process or test definition.
type Unit struct {
	Kind    UnitKind
	Name    Name
	Inputs  []Name
	Outputs []Name
	Body    []Statement
}

// Program is the set of units produced by the front end.
// It is never mutated after construction.
type Program struct {
	Circuits  []*Unit
	Processes []*Unit
	Tests     []*Unit
}

// Lookup finds an invocable unit (circuit or process) by name.
func (p *Program) Lookup(name string) (*Unit, bool) {
	for _, u := range p.Circuits {
		if u.Name.Text == name {
			return u, true
		}
	}
	for _, u := range p.Processes {
		if u.Name.Text == name {
			return u, true
		}
	}
	return nil, false
}

// TestsNamed returns every test with the given name, in declaration order.
func (p *Program) TestsNamed(name string) []*Unit {
	var out []*Unit
	for _, t := range p.Tests {
		if t.Name.Text == name {
			out = append(out, t)
		}
	}
	return out
}

// Units returns all units in declaration order: circuits, processes, tests.
func (p *Program) Units() []*Unit {
	out := make([]*Unit, 0, len(p.Circuits)+len(p.Processes)+len(p.Tests))
	out = append(out, p.Circuits...)
	out = append(out, p.Processes...)
	out = append(out, p.Tests...)
	return out
}
