package link

import (
	"errors"
	"fmt"

	"github.com/roach88/logicsim/internal/ir"
)

// ErrorCode categorizes link errors.
type ErrorCode string

const (
	// ErrCodeMultipleDrivers indicates a signal has more than one driver.
	ErrCodeMultipleDrivers ErrorCode = "MULTIPLE_DRIVERS"

	// ErrCodeUndrivenSignal indicates a signal is read but neither driven nor stimulated.
	ErrCodeUndrivenSignal ErrorCode = "UNDRIVEN_SIGNAL"
)

// Error is a structural failure found while building a netlist.
type Error struct {
	Code    ErrorCode
	Message string
	// Signal is the qualified name of the offending signal.
	Signal string
	// Span locates the second driver, or the first read of an undriven signal.
	Span ir.Span
	// Other locates the first driver for ErrCodeMultipleDrivers.
	Other ir.Span
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Span, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMultipleDriversError reports whether err is a multiple-drivers failure.
// Uses errors.As to handle wrapped errors.
func IsMultipleDriversError(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == ErrCodeMultipleDrivers
}

// IsUndrivenError reports whether err is an undriven-signal failure.
func IsUndrivenError(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == ErrCodeUndrivenSignal
}
