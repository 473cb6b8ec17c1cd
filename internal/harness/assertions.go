package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when a trace assertion fails.
// It includes the signal's history to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Signal   string       // Signal the assertion is about
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	History  []TraceEvent // Changes of Signal in the checked test
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Signal)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nHistory of %s:\n", e.Signal)
	if len(e.History) == 0 {
		fmt.Fprintf(&buf, "  (no changes)\n")
	}
	for _, ev := range e.History {
		fmt.Fprintf(&buf, "  [%d] t=%d %s\n", ev.Seq, ev.Instant, ev.Value)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result's trace
// and returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if _, ok := result.Outcome(a.Test); !ok {
			errs = append(errs, fmt.Sprintf("assertions[%d]: test %q did not run", i, a.Test))
			continue
		}
		history := signalHistory(result.TestTrace(a.Test), a.Signal)

		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(history, a)
		case AssertTraceOrder:
			err = assertTraceOrder(history, a)
		case AssertTraceCount:
			err = assertTraceCount(history, a)
		case AssertFinalValue:
			err = assertFinalValue(history, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// signalHistory returns the change events of one signal.
func signalHistory(trace []TraceEvent, signal string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range trace {
		if ev.Kind == "change" && ev.Signal == signal {
			out = append(out, ev)
		}
	}
	return out
}

// assertTraceContains checks the signal takes the value, at the given
// instant if one is set.
func assertTraceContains(history []TraceEvent, a Assertion) error {
	for _, ev := range history {
		if ev.Value != a.Value {
			continue
		}
		if a.Instant == nil || ev.Instant == *a.Instant {
			return nil
		}
	}

	expected := fmt.Sprintf("%s = %s", a.Signal, a.Value)
	if a.Instant != nil {
		expected += fmt.Sprintf(" at t=%d", *a.Instant)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Signal:   a.Signal,
		Expected: expected,
		Actual:   "not found in trace",
		History:  history,
	}
}

// assertTraceOrder checks the values appear in order. Values need not be
// consecutive.
func assertTraceOrder(history []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range history {
		if next < len(a.Values) && ev.Value == a.Values[next] {
			next++
		}
	}
	if next == len(a.Values) {
		return nil
	}

	seen := make([]string, len(history))
	for i, ev := range history {
		seen[i] = ev.Value
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Signal:   a.Signal,
		Expected: fmt.Sprintf("values in order %v", a.Values),
		Actual:   fmt.Sprintf("%v (matched %d of %d)", seen, next, len(a.Values)),
		History:  history,
	}
}

// assertTraceCount checks the number of changes.
func assertTraceCount(history []TraceEvent, a Assertion) error {
	if len(history) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Signal:   a.Signal,
		Expected: fmt.Sprintf("%d changes", a.Count),
		Actual:   fmt.Sprintf("%d changes", len(history)),
		History:  history,
	}
}

// assertFinalValue checks the last value the signal took. A signal that
// never changed still holds the initial 0.
func assertFinalValue(history []TraceEvent, a Assertion) error {
	final := "0"
	if len(history) > 0 {
		final = history[len(history)-1].Value
	}
	if final == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalValue,
		Signal:   a.Signal,
		Expected: a.Value,
		Actual:   final,
		History:  history,
	}
}
