package engine

import (
	"errors"
	"fmt"
)

// PassQuota counts settle passes at one instant and enforces a limit.
//
// The simulation resets the quota at every instant. The quota is checked
// before each pass over the drivers.
//
// The quota and the repeated-state detector work together:
//   - RepeatDetector: catches oscillation (a state seen before)
//   - PassQuota: catches anything else that keeps changing
//
// Together they guarantee that Step returns.
type PassQuota struct {
	maxPasses int
	current   int
}

// NewPassQuota creates a quota with the given limit.
// Typical default: 1000 (DefaultMaxPasses).
func NewPassQuota(maxPasses int) *PassQuota {
	return &PassQuota{maxPasses: maxPasses}
}

// Check increments the pass counter and validates against the limit.
func (q *PassQuota) Check(instant uint64) error {
	q.current++
	if q.current > q.maxPasses {
		return &PassesExceededError{
			Instant: instant,
			Passes:  q.current,
			Limit:   q.maxPasses,
		}
	}
	return nil
}

// Reset sets the pass counter back to 0.
func (q *PassQuota) Reset() {
	q.current = 0
}

// Current returns the current pass count.
func (q *PassQuota) Current() int {
	return q.current
}

// MaxPasses returns the limit.
func (q *PassQuota) MaxPasses() int {
	return q.maxPasses
}

// PassesExceededError is returned when settling uses more passes than allowed.
type PassesExceededError struct {
	Instant uint64
	Passes  int
	Limit   int
}

// Error implements the error interface.
func (e *PassesExceededError) Error() string {
	return fmt.Sprintf("settling at t=%d exceeded pass quota: %d passes > %d limit",
		e.Instant, e.Passes, e.Limit)
}

// IsPassesExceededError returns true if the error is a PassesExceededError.
// Uses errors.As to handle wrapped errors.
func IsPassesExceededError(err error) bool {
	var pe *PassesExceededError
	return errors.As(err, &pe)
}
