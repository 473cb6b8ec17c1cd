package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/engine"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
)

// ErrorKind names the stage a test failed in.
type ErrorKind int

const (
	// KindElaboration: unknown unit or test, recursion, depth, arity.
	KindElaboration ErrorKind = iota
	// KindLink: multiple drivers, undriven signal, time overflow.
	KindLink
	// KindValue: operands of incompatible kinds.
	KindValue
	// KindAssertion: an assertion did not hold.
	KindAssertion
	// KindRuntime: non-convergence or cancellation.
	KindRuntime
	// KindTrace: the trace store failed.
	KindTrace
)

var kindNames = map[ErrorKind]string{
	KindElaboration: "elaboration",
	KindLink:        "link",
	KindValue:       "value",
	KindAssertion:   "assertion",
	KindRuntime:     "runtime",
	KindTrace:       "trace",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseErrorKind is the inverse of ErrorKind.String.
func ParseErrorKind(s string) (ErrorKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Error is the failure of one test. Err is the stage error and keeps its
// span; errors.As reaches it through Unwrap.
type Error struct {
	Kind ErrorKind
	Test string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("test %s: %s error: %v", e.Test, e.Kind, e.Err)
}

// Unwrap returns the stage error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Span returns the source location of the failure, if the stage error
// carries one.
func (e *Error) Span() ir.Span {
	var (
		ee *elaborate.Error
		le *link.Error
		tm *ir.TypeMismatchError
		ae *engine.AssertionError
	)
	switch {
	case errors.As(e.Err, &ae):
		return ae.Span
	case errors.As(e.Err, &tm):
		return tm.Span
	case errors.As(e.Err, &le):
		return le.Span
	case errors.As(e.Err, &ee):
		return ee.Span
	}
	return ir.Span{}
}

// ElaborationFailure wraps an elaboration error.
func ElaborationFailure(test string, err error) *Error {
	return &Error{Kind: KindElaboration, Test: test, Err: err}
}

// LinkFailure wraps a link error.
func LinkFailure(test string, err error) *Error {
	return &Error{Kind: KindLink, Test: test, Err: err}
}

// ValueFailure wraps a value error.
func ValueFailure(test string, err error) *Error {
	return &Error{Kind: KindValue, Test: test, Err: err}
}

// AssertionFailure wraps an assertion error.
func AssertionFailure(test string, err error) *Error {
	return &Error{Kind: KindAssertion, Test: test, Err: err}
}

// RuntimeFailure wraps a non-convergence or cancellation error.
func RuntimeFailure(test string, err error) *Error {
	return &Error{Kind: KindRuntime, Test: test, Err: err}
}

// TraceFailure wraps a trace store error.
func TraceFailure(test string, err error) *Error {
	return &Error{Kind: KindTrace, Test: test, Err: err}
}

// IsKind reports whether err is a test failure of kind k.
func IsKind(err error, k ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// classify wraps an error returned by a running simulation.
func classify(test string, err error) *Error {
	var (
		tm *ir.TypeMismatchError
		ae *engine.AssertionError
	)
	switch {
	case errors.As(err, &ae):
		return AssertionFailure(test, err)
	case engine.IsListenerError(err):
		return TraceFailure(test, err)
	case errors.As(err, &tm):
		return ValueFailure(test, err)
	case engine.IsNonConvergenceError(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return RuntimeFailure(test, err)
	default:
		// Remaining engine errors come from ir.Apply rejecting operands.
		return ValueFailure(test, err)
	}
}
