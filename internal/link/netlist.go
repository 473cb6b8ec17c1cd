package link

import (
	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/ir"
)

// SignalID is the canonical identity of a signal within one netlist.
// IDs are dense, starting at 0, in elaboration order.
type SignalID int

// SignalInfo describes one signal for the engine and trace consumers.
type SignalInfo struct {
	ID    SignalID
	Name  string
	Scope string
	// Input is true when the signal is driven only by stimulus.
	Input bool
	// Driven is true when a combinational driver exists.
	Driven bool
	Span   ir.Span
}

// QualifiedName renders "<scope>.<name>".
func (s SignalInfo) QualifiedName() string {
	return s.Scope + "." + s.Name
}

// Expr is an expression over resolved signal IDs.
// Only *Read, *Lit and *Op implement it.
type Expr interface {
	linked() // sealed
	Pos() ir.Span
}

// Read loads the current value of a signal.
type Read struct {
	ID SignalID
	At ir.Span
}

// Lit is a constant, already converted to a runtime value.
type Lit struct {
	Value ir.Value
	At    ir.Span
}

// Op applies a primitive gate.
type Op struct {
	Op   ir.Op
	Args []Expr
	At   ir.Span
}

func (*Read) linked() {}
func (*Lit) linked()  {}
func (*Op) linked()   {}

func (r *Read) Pos() ir.Span { return r.At }
func (l *Lit) Pos() ir.Span  { return l.At }
func (o *Op) Pos() ir.Span   { return o.At }

// Driver computes one signal from an expression.
type Driver struct {
	Target SignalID
	Expr   Expr
	At     ir.Span
	Role   elaborate.Role
}

// Check compares an expression to an expected value.
type Check struct {
	Expr     Expr
	Expected ir.Value
	At       ir.Span
	Source   string
	Scope    string
}

// Entry is one scheduled instant: stimulus first, then checks.
type Entry struct {
	Instant  uint64
	Stimulus []Driver
	Checks   []Check
}

// Netlist is the executable form of one test.
// It is immutable once Link returns.
type Netlist struct {
	Test       string
	Signals    []SignalInfo
	Drivers    []Driver
	Invariants []Check
	Schedule   []Entry
}

// Signal returns the info for id.
func (n *Netlist) Signal(id SignalID) SignalInfo {
	return n.Signals[id]
}

// Lookup finds a signal by qualified name ("main.add_0.o").
func (n *Netlist) Lookup(qualified string) (SignalID, bool) {
	for _, s := range n.Signals {
		if s.QualifiedName() == qualified {
			return s.ID, true
		}
	}
	return 0, false
}
