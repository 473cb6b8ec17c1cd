package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/logicsim/internal/compiler"
	"github.com/roach88/logicsim/internal/config"
	"github.com/roach88/logicsim/internal/engine"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/logging"
	"github.com/roach88/logicsim/internal/sim"
	"github.com/roach88/logicsim/internal/testutil"
)

// Harness runs suites with deterministic run ids and an in-memory trace.
type Harness struct {
	logger *slog.Logger
	base   *config.Config
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for compilation and simulation.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithConfig sets the base config suites override. Default: config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(h *Harness) {
		if cfg != nil {
			h.base = cfg
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: logging.Discard(), base: config.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a suite with default settings.
func Run(suite *Suite) (*Result, error) {
	return New().Run(context.Background(), suite)
}

// Run executes a suite and returns the result.
//
// The returned error covers problems running the suite at all (the
// program does not compile, the config is invalid). Test failures and
// unmet expectations are reported in Result.Errors.
//
// Execution flow:
// 1. Compile the program directory
// 2. Run every test, collecting all failures
// 3. Build the trace from the in-memory sink
// 4. Evaluate expectations and trace assertions
func (h *Harness) Run(ctx context.Context, suite *Suite) (*Result, error) {
	cfg := *h.base
	suite.Config.Apply(&cfg)
	cfg.Simulation.FailFast = false
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
	}
	unit, err := cfg.Unit()
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
	}

	loaded, err := compiler.LoadDir(suite.Program, unit)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
	}

	sink := sim.NewMemorySink()
	s, err := sim.New(loaded.Program, &cfg,
		sim.WithLogger(h.logger),
		sim.WithTraceSink(sink),
		sim.WithRunIDs(testutil.NewSequentialRunIDs("run")),
	)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
	}

	report, err := s.RunAllTests(ctx)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
	}

	result := NewResult()
	for _, r := range report.Results {
		result.Tests = append(result.Tests, outcome(r))
	}
	for _, run := range sink.Runs() {
		trace, _ := sink.Trace(run.ID)
		result.Trace = append(result.Trace, traceEvents(run.Test, trace)...)
	}
	result.Records = sink.Records()

	for _, msg := range evaluateExpectations(result, suite.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, suite.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("suite finished",
		"suite", suite.Name,
		"tests", len(result.Tests),
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// outcome flattens a sim.Result.
func outcome(r sim.Result) TestOutcome {
	o := TestOutcome{Test: r.Test, RunID: r.RunID, Passed: r.Passed()}
	if r.Err == nil {
		return o
	}
	o.Kind = r.Err.Kind.String()
	o.Message = r.Err.Err.Error()
	o.Line = r.Err.Span().Line

	var ae *engine.AssertionError
	if errors.As(r.Err, &ae) {
		o.Expected = ir.FormatValue(ae.Expected)
		o.Actual = ir.FormatValue(ae.Actual)
		o.Instant = ae.Instant
	}
	var re *engine.RuntimeError
	if errors.As(r.Err, &re) {
		o.Instant = re.Instant
	}
	return o
}

func traceEvents(test string, trace *engine.MemoryTrace) []TraceEvent {
	changes := trace.Changes()
	asserts := trace.Assertions()
	out := make([]TraceEvent, 0, len(changes)+len(asserts))

	// Both slices are in seq order; merge them.
	i, j := 0, 0
	for i < len(changes) || j < len(asserts) {
		if j >= len(asserts) || (i < len(changes) && changes[i].Seq < asserts[j].Seq) {
			c := changes[i]
			out = append(out, TraceEvent{
				Test:    test,
				Kind:    "change",
				Seq:     c.Seq,
				Instant: c.Instant,
				Signal:  c.Scope + "." + c.Name,
				Value:   ir.FormatValue(c.Value),
			})
			i++
			continue
		}
		a := asserts[j]
		out = append(out, TraceEvent{
			Test:     test,
			Kind:     "assert",
			Seq:      a.Seq,
			Instant:  a.Instant,
			Line:     a.Span.Line,
			Expected: ir.FormatValue(a.Expected),
			Actual:   ir.FormatValue(a.Actual),
			Passed:   a.Passed,
		})
		j++
	}
	return out
}

// evaluateExpectations checks test outcomes against the suite. Tests
// without an expectation must pass.
func evaluateExpectations(result *Result, expect []Expectation) []string {
	var errs []string
	covered := make(map[string]bool, len(expect))

	for i, e := range expect {
		covered[e.Test] = true
		o, ok := result.Outcome(e.Test)
		if !ok {
			errs = append(errs, fmt.Sprintf("expect[%d]: test %q did not run", i, e.Test))
			continue
		}

		switch e.Outcome {
		case OutcomePass:
			if !o.Passed {
				errs = append(errs, fmt.Sprintf("expect[%d]: test %q: want pass, got %s failure: %s",
					i, e.Test, o.Kind, o.Message))
			}
		case OutcomeFail:
			if o.Passed {
				errs = append(errs, fmt.Sprintf("expect[%d]: test %q: want failure, got pass", i, e.Test))
				continue
			}
			if e.Error != "" && e.Error != o.Kind {
				errs = append(errs, fmt.Sprintf("expect[%d]: test %q: want %s failure, got %s: %s",
					i, e.Test, e.Error, o.Kind, o.Message))
			}
			if e.Expected != "" && e.Expected != o.Expected {
				errs = append(errs, fmt.Sprintf("expect[%d]: test %q: want expected value %s, got %q",
					i, e.Test, e.Expected, o.Expected))
			}
			if e.Actual != "" && e.Actual != o.Actual {
				errs = append(errs, fmt.Sprintf("expect[%d]: test %q: want actual value %s, got %q",
					i, e.Test, e.Actual, o.Actual))
			}
			if e.Line != 0 && e.Line != o.Line {
				errs = append(errs, fmt.Sprintf("expect[%d]: test %q: want failure at line %d, got line %d",
					i, e.Test, e.Line, o.Line))
			}
		}
	}

	for _, o := range result.Tests {
		if !covered[o.Test] && !o.Passed {
			errs = append(errs, fmt.Sprintf("test %q failed unexpectedly: %s: %s", o.Test, o.Kind, o.Message))
		}
	}
	return errs
}
