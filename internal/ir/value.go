package ir

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Value is the runtime value of one signal.
// Only Bit and Word implement it. Values are immutable.
type Value interface {
	value() // sealed
	String() string
}

// Bit is a single-bit value.
type Bit bool

// Word is an unsigned multi-bit value of 1..64 bits.
// Bits above Width are always zero.
type Word struct {
	Width uint8
	Bits  uint64
}

func (Bit) value()  {}
func (Word) value() {}

func (b Bit) String() string {
	if b {
		return "1"
	}
	return "0"
}

func (w Word) String() string {
	return fmt.Sprintf("%d'd%d", w.Width, w.Bits)
}

// NewWord builds a word, truncating n to width bits.
func NewWord(width uint8, n uint64) Word {
	if width == 0 {
		width = 1
	}
	if width > 64 {
		width = 64
	}
	return Word{Width: width, Bits: n & mask(width)}
}

// Zero is the value every signal holds before it is first driven.
var Zero Value = Bit(false)

func mask(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// ValueOf converts a literal to its runtime value.
// Numbers take the minimal width that holds them, at least one bit.
func ValueOf(c Constant) Value {
	switch c.Kind {
	case ConstNumber:
		w := bits.Len64(c.Number)
		if w == 0 {
			w = 1
		}
		return Word{Width: uint8(w), Bits: c.Number}
	default:
		return Bit(c.Bit)
	}
}

// TypeMismatchError reports operands of incompatible kinds.
type TypeMismatchError struct {
	Span  Span
	Op    string
	Left  Value
	Right Value
}

func (e *TypeMismatchError) Error() string {
	loc := ""
	if e.Span.IsValid() {
		loc = e.Span.String() + ": "
	}
	return fmt.Sprintf("%stype mismatch in %s: %s (%s) vs %s (%s)",
		loc, e.Op, e.Left, kindOf(e.Left), e.Right, kindOf(e.Right))
}

func kindOf(v Value) string {
	switch v.(type) {
	case Bit:
		return "bit"
	case Word:
		return "word"
	default:
		return "none"
	}
}

type bitFunc func(a, b uint64) uint64

func combine(op Op, f bitFunc, a, b Value) (Value, error) {
	switch x := a.(type) {
	case Bit:
		y, ok := b.(Bit)
		if !ok {
			return nil, &TypeMismatchError{Op: op.String(), Left: a, Right: b}
		}
		return Bit(f(b2u(bool(x)), b2u(bool(y)))&1 == 1), nil
	case Word:
		y, ok := b.(Word)
		if !ok {
			return nil, &TypeMismatchError{Op: op.String(), Left: a, Right: b}
		}
		width := max(x.Width, y.Width)
		return Word{Width: width, Bits: f(x.Bits, y.Bits) & mask(width)}, nil
	default:
		return nil, &TypeMismatchError{Op: op.String(), Left: a, Right: b}
	}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func and(a, b uint64) uint64 { return a & b }
func or(a, b uint64) uint64  { return a | b }
func xor(a, b uint64) uint64 { return a ^ b }

// And returns a AND b.
func And(a, b Value) (Value, error) { return combine(OpAnd, and, a, b) }

// Or returns a OR b.
func Or(a, b Value) (Value, error) { return combine(OpOr, or, a, b) }

// Xor returns a XOR b.
func Xor(a, b Value) (Value, error) { return combine(OpXor, xor, a, b) }

// Not inverts every bit of v within its width.
func Not(v Value) Value {
	switch x := v.(type) {
	case Word:
		return Word{Width: x.Width, Bits: ^x.Bits & mask(x.Width)}
	case Bit:
		return !x
	default:
		return v
	}
}

// Nand returns NOT (a AND b).
func Nand(a, b Value) (Value, error) { return negate(And(a, b)) }

// Nor returns NOT (a OR b).
func Nor(a, b Value) (Value, error) { return negate(Or(a, b)) }

// Xnor returns NOT (a XOR b).
func Xnor(a, b Value) (Value, error) { return negate(Xor(a, b)) }

func negate(v Value, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	return Not(v), nil
}

// Equal compares two values numerically. Words of different width are
// equal when they hold the same number; a Bit never compares with a Word.
func Equal(a, b Value) (bool, error) {
	switch x := a.(type) {
	case Bit:
		y, ok := b.(Bit)
		if !ok {
			return false, &TypeMismatchError{Op: "equals", Left: a, Right: b}
		}
		return x == y, nil
	case Word:
		y, ok := b.(Word)
		if !ok {
			return false, &TypeMismatchError{Op: "equals", Left: a, Right: b}
		}
		return x.Bits == y.Bits, nil
	default:
		return false, &TypeMismatchError{Op: "equals", Left: a, Right: b}
	}
}

// Arity returns the accepted operand count range for a primitive gate.
// hi < 0 means unbounded.
func Arity(op Op) (lo, hi int) {
	switch op {
	case OpNot, OpBuf:
		return 1, 1
	case OpMux:
		return 3, 3
	case OpAnd, OpOr, OpNand, OpNor, OpXor, OpXnor:
		return 2, -1
	default:
		return 0, -1
	}
}

// Apply evaluates a primitive gate over its operand values.
// Binary gates applied to more than two operands fold the base operation
// left to right and negate once at the end (nand(a,b,c) = not(a and b and c)).
// Type mismatches are reported at span at.
func Apply(op Op, at Span, args ...Value) (Value, error) {
	lo, hi := Arity(op)
	if len(args) < lo || (hi >= 0 && len(args) > hi) || op == OpCustom {
		return nil, fmt.Errorf("%s: %s takes %s operands, got %d", at, op, arityText(lo, hi), len(args))
	}

	var (
		v   Value
		err error
	)
	switch op {
	case OpNot:
		v = Not(args[0])
	case OpBuf:
		v = args[0]
	case OpMux:
		sel, ok := args[0].(Bit)
		if !ok {
			err = &TypeMismatchError{Op: "mux select", Left: args[0], Right: Bit(false)}
			break
		}
		if _, err = combine(OpMux, or, args[1], args[2]); err != nil {
			break
		}
		if sel {
			v = args[2]
		} else {
			v = args[1]
		}
	default:
		v, err = fold(op, args)
	}
	if err != nil {
		var tm *TypeMismatchError
		if errors.As(err, &tm) && !tm.Span.IsValid() {
			tm.Span = at
		}
		return nil, err
	}
	return v, nil
}

func fold(op Op, args []Value) (Value, error) {
	var f bitFunc
	switch op {
	case OpAnd, OpNand:
		f = and
	case OpOr, OpNor:
		f = or
	default:
		f = xor
	}
	acc := args[0]
	for _, next := range args[1:] {
		var err error
		if acc, err = combine(op, f, acc, next); err != nil {
			return nil, err
		}
	}
	switch op {
	case OpNand, OpNor, OpXnor:
		acc = Not(acc)
	}
	return acc, nil
}

func arityText(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return strconv.Itoa(lo)
	default:
		return fmt.Sprintf("%d..%d", lo, hi)
	}
}

// FormatValue renders a value in the text form used by traces: "0", "1" or
// "<width>'d<decimal>".
func FormatValue(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// ParseValue parses the output of FormatValue.
func ParseValue(s string) (Value, error) {
	switch s {
	case "0":
		return Bit(false), nil
	case "1":
		return Bit(true), nil
	}
	width, digits, ok := strings.Cut(s, "'d")
	if !ok {
		return nil, fmt.Errorf("invalid value %q", s)
	}
	w, err := strconv.ParseUint(width, 10, 8)
	if err != nil || w == 0 || w > 64 {
		return nil, fmt.Errorf("invalid word width in %q", s)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid word value in %q: %w", s, err)
	}
	if n&^mask(uint8(w)) != 0 {
		return nil, fmt.Errorf("value %d does not fit in %d bits", n, w)
	}
	return Word{Width: uint8(w), Bits: n}, nil
}
