package harness

// TraceEvent is one change or assertion check, tagged with its test.
type TraceEvent struct {
	Test     string `json:"test"`
	Kind     string `json:"kind"` // "change" or "assert"
	Seq      int64  `json:"seq"`
	Instant  uint64 `json:"instant"`
	Signal   string `json:"signal,omitempty"`
	Value    string `json:"value,omitempty"`
	Line     int    `json:"line,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Passed   bool   `json:"passed,omitempty"`
}

// TestOutcome is the result of one test in a suite run.
type TestOutcome struct {
	Test   string `json:"test"`
	RunID  string `json:"run_id,omitempty"`
	Passed bool   `json:"passed"`

	// Failure details, empty when Passed.
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Line     int    `json:"line,omitempty"`
	Instant  uint64 `json:"instant,omitempty"`
}

// Result is the outcome of a suite execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Tests holds one outcome per test in declaration order.
	Tests []TestOutcome `json:"tests"`

	// Trace contains every event of every run in test order.
	Trace []TraceEvent `json:"trace"`

	// Records are the canonical trace records used for golden comparison.
	Records []map[string]any `json:"-"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Tests:  []TestOutcome{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome returns the outcome of the named test.
func (r *Result) Outcome(test string) (TestOutcome, bool) {
	for _, o := range r.Tests {
		if o.Test == test {
			return o, true
		}
	}
	return TestOutcome{}, false
}

// TestTrace returns the events of one test.
func (r *Result) TestTrace(test string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Test == test {
			out = append(out, ev)
		}
	}
	return out
}
