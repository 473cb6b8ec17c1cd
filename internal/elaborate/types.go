package elaborate

import (
	"fmt"
	"strings"

	"github.com/roach88/logicsim/internal/ir"
)

// Signal is a name localized to an invocation path.
// Identity is (Name.Text, Path); the span only records where the signal
// was first written.
type Signal struct {
	Name ir.Name
	Path PathID
}

// SignalKey is the comparable identity of a Signal.
type SignalKey struct {
	Name string
	Path PathID
}

// Key returns the span-free identity of s.
func (s Signal) Key() SignalKey {
	return SignalKey{Name: s.Name.Key(), Path: s.Path}
}

// Equal compares signals by name text and path.
func (s Signal) Equal(o Signal) bool {
	return s.Key() == o.Key()
}

// Expr is a flattened expression: no custom gates remain.
// Only *SignalRef, *Literal and *Gate implement it.
type Expr interface {
	node() // sealed
	Pos() ir.Span
}

// SignalRef reads a localized signal.
type SignalRef struct {
	Signal Signal
	At     ir.Span
}

// Literal is a constant operand.
type Literal struct {
	Value ir.Constant
	At    ir.Span
}

// Gate applies a primitive operation.
type Gate struct {
	Op   ir.Op
	Args []Expr
	At   ir.Span
}

func (*SignalRef) node() {}
func (*Literal) node()   {}
func (*Gate) node()      {}

func (r *SignalRef) Pos() ir.Span { return r.At }
func (l *Literal) Pos() ir.Span   { return l.At }
func (g *Gate) Pos() ir.Span      { return g.At }

// Walk calls visit for every signal read by e, left to right.
func Walk(e Expr, visit func(*SignalRef)) {
	switch x := e.(type) {
	case *SignalRef:
		visit(x)
	case *Gate:
		for _, a := range x.Args {
			Walk(a, visit)
		}
	}
}

// Role says where a driver came from.
type Role int

const (
	// RoleLogic is an assignment written in a unit body.
	RoleLogic Role = iota
	// RolePortIn binds a callee input to the caller's argument expression.
	RolePortIn
	// RolePortOut binds a caller target to a callee output.
	RolePortOut
)

func (r Role) String() string {
	switch r {
	case RolePortIn:
		return "input port"
	case RolePortOut:
		return "output port"
	default:
		return "assignment"
	}
}

// Assign drives one signal from an expression.
type Assign struct {
	Target Signal
	Expr   Expr
	At     ir.Span
	Role   Role
}

// Assert is an elaborated assertion.
type Assert struct {
	Expr     Expr
	Expected ir.Constant
	At       ir.Span
	Source   string
	Path     PathID
}

// Block groups the statements following one time directive.
type Block struct {
	Kind     ir.DirectiveKind
	Time     uint64
	At       ir.Span
	Stimulus []Assign
	Asserts  []Assert
}

// Timeline is the sequence of timed blocks of one test or process instance.
type Timeline struct {
	Path   PathID
	Blocks []Block
}

// Design is the flattened form of one test.
type Design struct {
	Test       ir.Name
	Paths      *Paths
	Signals    []Signal
	Assigns    []Assign
	Invariants []Assert
	Timelines  []Timeline
}

// Scope renders the hierarchical scope of a signal.
func (d *Design) Scope(s Signal) string {
	return d.Paths.Scope(s.Path)
}

// QualifiedName renders "<scope>.<name>".
func (d *Design) QualifiedName(s Signal) string {
	return d.Paths.Scope(s.Path) + "." + s.Name.Text
}

// Format renders e with qualified signal names, for diagnostics.
func (d *Design) Format(e Expr) string {
	switch x := e.(type) {
	case *SignalRef:
		return d.QualifiedName(x.Signal)
	case *Literal:
		return x.Value.String()
	case *Gate:
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = d.Format(a)
		}
		return fmt.Sprintf("%s(%s)", x.Op, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%T", e)
	}
}
