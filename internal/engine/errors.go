package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/logicsim/internal/ir"
)

// RuntimeError represents a failure detected while a simulation runs,
// other than a failed assertion or a value error.
//
// Runtime errors include:
//   - Non-convergence: the fixed point was not reached at an instant
//   - Listener failure: a trace consumer rejected an event
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Test names the test being simulated.
	Test string

	// Instant is the simulation time at which the error occurred.
	Instant uint64

	// Signals lists the qualified names involved, in signal order.
	// For non-convergence these are the signals changed by the last pass.
	Signals []string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNonConvergence indicates settling did not reach a fixed point.
	ErrCodeNonConvergence RuntimeErrorCode = "NON_CONVERGENCE"

	// ErrCodeListener indicates a change listener returned an error.
	ErrCodeListener RuntimeErrorCode = "LISTENER_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (test=%s, t=%d)", e.Code, e.Message, e.Test, e.Instant)
	if len(e.Signals) > 0 {
		msg += ": " + strings.Join(e.Signals, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsNonConvergenceError returns true if the error is a non-convergence error.
// Uses errors.As to handle wrapped errors.
func IsNonConvergenceError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeNonConvergence
	}
	return false
}

// IsListenerError returns true if the error came from a change listener.
func IsListenerError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeListener
	}
	return false
}

// NewNonConvergenceError creates a RuntimeError for an instant that did not
// settle. cause is a *PassesExceededError or a *RepeatedStateError.
func NewNonConvergenceError(test string, instant uint64, signals []string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNonConvergence,
		Message: "signals did not settle",
		Test:    test,
		Instant: instant,
		Signals: signals,
		Err:     cause,
	}
}

// NewListenerError creates a RuntimeError wrapping a listener failure.
func NewListenerError(test string, instant uint64, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeListener,
		Message: "change listener failed",
		Test:    test,
		Instant: instant,
		Err:     cause,
	}
}

// AssertionError reports an assertion whose expression did not equal the
// expected value.
type AssertionError struct {
	Span     ir.Span
	Expected ir.Value
	Actual   ir.Value
	// Source is the assertion as written.
	Source string
	// Scope is the instance the assertion belongs to.
	Scope   string
	Instant uint64
	Test    string
	// Invariant is true for assertions written outside any time directive.
	Invariant bool
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	kind := "assertion"
	if e.Invariant {
		kind = "invariant"
	}
	return fmt.Sprintf("%s: %s failed at t=%d in %s: %s: expected %s, got %s",
		e.Span, kind, e.Instant, e.Scope, e.Source, ir.FormatValue(e.Expected), ir.FormatValue(e.Actual))
}

// IsAssertionError returns true if the error is an assertion failure.
func IsAssertionError(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}
