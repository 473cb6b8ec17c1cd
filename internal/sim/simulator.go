package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/logicsim/internal/config"
	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/engine"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
)

// Simulator runs the tests of one program.
//
// Each run owns its design, netlist and engine; runs share nothing but the
// read-only program, so tests may execute concurrently (WithParallelism).
// Results are always reported in declaration order.
type Simulator struct {
	program *ir.Program
	cfg     *config.Config
	unit    ir.TimeUnit
	digest  string

	logger      *slog.Logger
	sink        TraceSink
	runIDs      engine.RunIDGenerator
	parallelism int
	failFast    bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger passed down to elaboration and the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTraceSink records every run to sink.
func WithTraceSink(sink TraceSink) Option {
	return func(s *Simulator) {
		s.sink = sink
	}
}

// WithRunIDs sets the run id source. Default: engine.UUIDv7Generator.
func WithRunIDs(gen engine.RunIDGenerator) Option {
	return func(s *Simulator) {
		if gen != nil {
			s.runIDs = gen
		}
	}
}

// WithParallelism runs up to n tests at once. Overrides the config.
func WithParallelism(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithFailFast makes RunAllTests stop at the first failing test.
// Overrides the config.
func WithFailFast(on bool) Option {
	return func(s *Simulator) {
		s.failFast = on
	}
}

// New creates a Simulator. A nil cfg means config.Default().
func New(p *ir.Program, cfg *config.Config, opts ...Option) (*Simulator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	unit, err := cfg.Unit()
	if err != nil {
		return nil, err
	}
	digest, err := ir.ProgramDigest(p)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		program:     p,
		cfg:         cfg,
		unit:        unit,
		digest:      digest,
		logger:      slog.Default(),
		runIDs:      engine.UUIDv7Generator{},
		parallelism: cfg.Simulation.Parallelism,
		failFast:    cfg.Simulation.FailFast,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProgramDigest returns the digest recorded with every run.
func (s *Simulator) ProgramDigest() string {
	return s.digest
}

// RunTest runs every test named name in declaration order and returns the
// first failure. An unknown name is an elaboration failure.
func (s *Simulator) RunTest(ctx context.Context, name string) error {
	found := false
	for i, t := range s.program.Tests {
		if t.Name.Text != name {
			continue
		}
		found = true
		if res := s.run(ctx, i, t); res.Err != nil {
			return res.Err
		}
	}
	if !found {
		return ElaborationFailure(name, &elaborate.Error{
			Code:    elaborate.ErrCodeUnknownTest,
			Message: fmt.Sprintf("no test named %q", name),
		})
	}
	return nil
}

// RunNamed runs every test called name, like RunTest, but keeps going
// after a failure and returns the report. Unknown names return a nil
// report and the RunTest error.
func (s *Simulator) RunNamed(ctx context.Context, name string) (*Report, error) {
	rep := &Report{ProgramDigest: s.digest}
	for i, t := range s.program.Tests {
		if t.Name.Text != name {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Results = append(rep.Results, *s.run(ctx, i, t))
	}
	if len(rep.Results) == 0 {
		return nil, ElaborationFailure(name, &elaborate.Error{
			Code:    elaborate.ErrCodeUnknownTest,
			Message: fmt.Sprintf("no test named %q", name),
		})
	}
	return rep, rep.Err()
}

// RunAllTests runs every test in declaration order.
//
// By default every test runs and the report collects all failures. With
// fail-fast, the first failing test stops tests not yet started; with
// parallelism, tests already started run to completion under ctx. The
// returned error is the first
// failure in declaration order, or ctx.Err() if the context ended first.
func (s *Simulator) RunAllTests(ctx context.Context) (*Report, error) {
	tests := s.program.Tests
	results := make([]*Result, len(tests))

	if s.parallelism <= 1 {
		for i, t := range tests {
			if err := ctx.Err(); err != nil {
				return s.report(results), err
			}
			results[i] = s.run(ctx, i, t)
			if s.failFast && results[i].Err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.parallelism)
		for i, t := range tests {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				// gctx only gates starting; a sibling's failure must not
				// abort a test in flight.
				results[i] = s.run(ctx, i, t)
				if s.failFast && results[i].Err != nil {
					return results[i].Err
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return s.report(results), err
		}
	}

	rep := s.report(results)
	return rep, rep.Err()
}

func (s *Simulator) report(results []*Result) *Report {
	rep := &Report{ProgramDigest: s.digest}
	for _, r := range results {
		if r != nil {
			rep.Results = append(rep.Results, *r)
		}
	}
	rep.Skipped = len(s.program.Tests) - len(rep.Results)
	return rep
}

// run executes one test: elaborate, link, simulate.
func (s *Simulator) run(ctx context.Context, index int, t *ir.Unit) *Result {
	name := t.Name.Text
	start := time.Now()
	res := &Result{Test: name, Index: index}
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			s.logger.Info("test failed", "test", name, "run", res.RunID, "kind", res.Err.Kind, "error", res.Err.Err)
		} else {
			s.logger.Info("test passed", "test", name, "run", res.RunID, "instants", res.Instants)
		}
	}()

	d, err := elaborate.ElaborateTest(s.program, t,
		elaborate.WithMaxDepth(s.cfg.Simulation.MaxDepth),
		elaborate.WithLogger(s.logger),
	)
	if err != nil {
		res.Err = ElaborationFailure(name, err)
		return res
	}
	n, err := link.Link(d)
	if err != nil {
		res.Err = LinkFailure(name, err)
		return res
	}
	res.Signals = len(n.Signals)

	res.RunID = s.runIDs.Generate()
	info := RunInfo{
		ID:            res.RunID,
		Test:          name,
		Index:         index,
		ProgramDigest: s.digest,
		TimeUnit:      s.unit,
	}

	opts := []engine.Option{
		engine.WithMaxPasses(s.cfg.Simulation.MaxPasses),
		engine.WithLogger(s.logger),
	}
	if s.sink != nil {
		l, err := s.sink.Begin(ctx, info, n)
		if err != nil {
			res.Err = TraceFailure(name, err)
			return res
		}
		opts = append(opts, engine.WithListener(l))
	}

	simulation := engine.New(n, opts...)
	var failure *Error
	if err := s.drive(ctx, simulation, res); err != nil {
		failure = classify(name, err)
	}
	res.Passes = simulation.Passes()

	if s.sink != nil {
		var cause error
		if failure != nil {
			cause = failure
		}
		if err := s.sink.End(ctx, info, cause); err != nil && failure == nil {
			failure = TraceFailure(name, err)
		}
	}
	res.Err = failure
	return res
}

func (s *Simulator) drive(ctx context.Context, simulation *engine.Simulation, res *Result) error {
	st := simulation.State()
	for st == engine.Continue {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		st, err = simulation.Step()
		if err != nil {
			return err
		}
		res.Instants++
	}
	return nil
}
