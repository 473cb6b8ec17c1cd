package sim

import (
	"errors"
	"time"
)

// Result is the outcome of one test run.
type Result struct {
	Test  string
	Index int
	// RunID is empty when the test failed before simulation started.
	RunID    string
	Signals  int
	Instants int
	Passes   int
	Duration time.Duration
	Err      *Error
}

// Passed reports whether the run succeeded.
func (r Result) Passed() bool {
	return r.Err == nil
}

// Report collects results in declaration order.
type Report struct {
	ProgramDigest string
	Results       []Result
	// Skipped counts tests not run because of fail-fast or cancellation.
	Skipped int
}

// Passed returns the number of passing tests.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

// Failed returns the number of failing tests.
func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// Failures returns the failures in declaration order.
func (r *Report) Failures() []*Error {
	var out []*Error
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Err)
		}
	}
	return out
}

// Err returns the first failure, or nil if every test that ran passed.
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Joined combines every failure into one error.
func (r *Report) Joined() error {
	fs := r.Failures()
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errors.Join(errs...)
}
