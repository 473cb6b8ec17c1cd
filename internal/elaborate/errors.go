package elaborate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/logicsim/internal/ir"
)

// ErrorCode categorizes elaboration errors.
type ErrorCode string

const (
	// ErrCodeUnknownUnit indicates a call names neither a user unit nor a primitive gate.
	ErrCodeUnknownUnit ErrorCode = "UNKNOWN_UNIT"

	// ErrCodeInvocationCycle indicates a unit invokes itself directly or indirectly.
	ErrCodeInvocationCycle ErrorCode = "INVOCATION_CYCLE"

	// ErrCodeDepthExceeded indicates the hierarchy is deeper than the configured limit.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeArityMismatch indicates argument or target counts do not match the callee.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// ErrCodeUnknownTest indicates no test has the requested name.
	ErrCodeUnknownTest ErrorCode = "UNKNOWN_TEST"
)

// Error is a structural failure found while flattening a test.
// Elaboration errors are never retried.
type Error struct {
	Code    ErrorCode
	Message string
	Span    ir.Span
	// Chain is the call chain from the test to the failing call.
	Chain []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Span.IsValid() {
		b.WriteString(e.Span.String())
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Chain) > 0 {
		fmt.Fprintf(&b, " (in %s)", strings.Join(e.Chain, " → "))
	}
	return b.String()
}

// IsCycleError reports whether err is an invocation cycle or depth failure.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvocationCycle || ee.Code == ErrCodeDepthExceeded
	}
	return false
}

// IsArityError reports whether err is an arity mismatch.
func IsArityError(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == ErrCodeArityMismatch
}

// IsUnknownUnitError reports whether err names an undefined unit.
func IsUnknownUnitError(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == ErrCodeUnknownUnit
}
