package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
	"github.com/roach88/logicsim/internal/logging"
)

// DefaultMaxPasses is the default limit on settle passes per instant.
const DefaultMaxPasses = 1000

// State is the externally visible state of a Simulation.
type State int

const (
	// Continue means scheduled entries remain.
	Continue State = iota
	// Halted means the schedule is exhausted or a step failed.
	Halted
)

func (s State) String() string {
	if s == Halted {
		return "halted"
	}
	return "continue"
}

// Simulation executes one netlist.
//
// All signals start at Bit(false). Each Step consumes one schedule entry:
// stimulus is written, drivers are re-evaluated until a full pass changes
// nothing, then the entry's assertions and the invariants are checked.
//
// Thread-safety model: a Simulation is owned by one goroutine. Independent
// simulations share nothing and may run concurrently.
type Simulation struct {
	net      *link.Netlist
	values   []ir.Value
	next     int
	now      uint64
	state    State
	passes   int
	clock    *Clock
	quota    *PassQuota
	repeats  *RepeatDetector
	listener ChangeListener
	logger   *slog.Logger

	maxPasses int
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithMaxPasses sets the settle pass quota per instant. The pass that
// finds nothing left to change counts toward the quota.
//
// Default: 1000 passes (DefaultMaxPasses).
func WithMaxPasses(n int) Option {
	return func(s *Simulation) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

// WithLogger sets the logger. Per-change logging happens at
// logging.LevelTrace.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulation) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListener sets the consumer of change and assertion events.
func WithListener(l ChangeListener) Option {
	return func(s *Simulation) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithClock sets the seq source for events.
func WithClock(c *Clock) Option {
	return func(s *Simulation) {
		if c != nil {
			s.clock = c
		}
	}
}

// New creates a Simulation positioned before the first schedule entry.
func New(n *link.Netlist, opts ...Option) *Simulation {
	s := &Simulation{
		net:       n,
		values:    make([]ir.Value, len(n.Signals)),
		clock:     NewClock(),
		repeats:   NewRepeatDetector(),
		listener:  discard{},
		logger:    slog.Default(),
		maxPasses: DefaultMaxPasses,
	}
	for i := range s.values {
		s.values[i] = ir.Zero
	}
	for _, opt := range opts {
		opt(s)
	}
	s.quota = NewPassQuota(s.maxPasses)
	if len(n.Schedule) == 0 {
		s.state = Halted
	}
	return s
}

// Step executes the next schedule entry.
//
// Returns Continue while entries remain. Any error halts the simulation;
// further calls return Halted and no error.
func (s *Simulation) Step() (State, error) {
	if s.state == Halted {
		return Halted, nil
	}
	entry := s.net.Schedule[s.next]
	s.now = entry.Instant

	if err := s.apply(entry.Stimulus); err != nil {
		return s.halt(err)
	}
	if err := s.settle(); err != nil {
		return s.halt(err)
	}
	for _, c := range entry.Checks {
		if err := s.check(c, false); err != nil {
			return s.halt(err)
		}
	}
	for _, c := range s.net.Invariants {
		if err := s.check(c, true); err != nil {
			return s.halt(err)
		}
	}

	s.next++
	if s.next >= len(s.net.Schedule) {
		s.state = Halted
	}
	return s.state, nil
}

// Run steps until the schedule is exhausted, a step fails or ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			s.state = Halted
			return err
		}
		st, err := s.Step()
		if err != nil {
			return err
		}
		if st == Halted {
			return nil
		}
	}
}

func (s *Simulation) halt(err error) (State, error) {
	s.state = Halted
	s.logger.Debug("simulation halted", "test", s.net.Test, "t", s.now, "error", err)
	return Halted, err
}

// apply writes stimulus in order. Later writes see earlier ones.
func (s *Simulation) apply(stim []link.Driver) error {
	for _, d := range stim {
		v, err := s.eval(d.Expr)
		if err != nil {
			return err
		}
		if err := s.set(d.Target, v); err != nil {
			return err
		}
	}
	return nil
}

// settle evaluates every driver in order until a full pass changes
// nothing.
func (s *Simulation) settle() error {
	s.quota.Reset()
	s.repeats.Clear()
	s.repeats.Record(s.values, 0)

	var last []link.SignalID
	for pass := 1; ; pass++ {
		if err := s.quota.Check(s.now); err != nil {
			return s.nonConvergence(last, err)
		}
		s.passes++

		var changed []link.SignalID
		for _, d := range s.net.Drivers {
			v, err := s.eval(d.Expr)
			if err != nil {
				return err
			}
			if v == s.values[d.Target] {
				continue
			}
			if err := s.set(d.Target, v); err != nil {
				return err
			}
			changed = append(changed, d.Target)
		}
		if len(changed) == 0 {
			s.logger.Debug("instant settled", "test", s.net.Test, "t", s.now, "passes", pass)
			return nil
		}
		if logging.TraceEnabled(s.logger) {
			logging.Trace(s.logger, "settle pass", "t", s.now, "pass", pass, "changed", len(changed))
		}

		if first, ok := s.repeats.Seen(s.values); ok {
			return s.nonConvergence(changed, &RepeatedStateError{Instant: s.now, Pass: pass, First: first})
		}
		s.repeats.Record(s.values, pass)
		last = changed
	}
}

func (s *Simulation) set(id link.SignalID, v ir.Value) error {
	if s.values[id] == v {
		return nil
	}
	s.values[id] = v
	info := s.net.Signals[id]
	ev := ChangeEvent{
		Seq:     s.clock.Next(),
		Instant: s.now,
		Signal:  id,
		Scope:   info.Scope,
		Name:    info.Name,
		Value:   v,
	}
	if logging.TraceEnabled(s.logger) {
		logging.Trace(s.logger, "change", "seq", ev.Seq, "t", s.now, "signal", info.QualifiedName(), "value", ir.FormatValue(v))
	}
	if err := s.listener.Change(ev); err != nil {
		return NewListenerError(s.net.Test, s.now, err)
	}
	return nil
}

func (s *Simulation) check(c link.Check, invariant bool) error {
	actual, err := s.eval(c.Expr)
	if err != nil {
		return err
	}
	ok, err := ir.Equal(actual, c.Expected)
	if err != nil {
		var tm *ir.TypeMismatchError
		if errors.As(err, &tm) && !tm.Span.IsValid() {
			tm.Span = c.At
		}
		return err
	}

	ev := AssertionEvent{
		Seq:       s.clock.Next(),
		Instant:   s.now,
		Span:      c.At,
		Source:    c.Source,
		Scope:     c.Scope,
		Expected:  c.Expected,
		Actual:    actual,
		Passed:    ok,
		Invariant: invariant,
	}
	if err := s.listener.Assertion(ev); err != nil {
		return NewListenerError(s.net.Test, s.now, err)
	}
	if ok {
		return nil
	}
	return &AssertionError{
		Span:      c.At,
		Expected:  c.Expected,
		Actual:    actual,
		Source:    c.Source,
		Scope:     c.Scope,
		Instant:   s.now,
		Test:      s.net.Test,
		Invariant: invariant,
	}
}

func (s *Simulation) nonConvergence(changed []link.SignalID, cause error) error {
	ids := append([]link.SignalID(nil), changed...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var names []string
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		names = append(names, s.net.Signals[id].QualifiedName())
	}
	err := NewNonConvergenceError(s.net.Test, s.now, names, cause)
	err.Details = map[string]string{
		"max_passes": strconv.Itoa(s.maxPasses),
		"passes":     strconv.Itoa(s.quota.Current()),
	}
	return err
}

// State returns the current state.
func (s *Simulation) State() State {
	return s.state
}

// Now returns the instant of the last executed entry.
func (s *Simulation) Now() uint64 {
	return s.now
}

// Passes returns the total number of settle passes run so far.
func (s *Simulation) Passes() int {
	return s.passes
}

// MaxPasses returns the pass quota per instant.
func (s *Simulation) MaxPasses() int {
	return s.maxPasses
}

// Netlist returns the netlist being simulated.
func (s *Simulation) Netlist() *link.Netlist {
	return s.net
}

// Value returns the current value of a signal.
func (s *Simulation) Value(id link.SignalID) ir.Value {
	return s.values[id]
}

// Lookup returns the current value of a signal by qualified name.
func (s *Simulation) Lookup(qualified string) (ir.Value, bool) {
	id, ok := s.net.Lookup(qualified)
	if !ok {
		return nil, false
	}
	return s.values[id], true
}

// Snapshot returns the current values keyed by qualified name.
func (s *Simulation) Snapshot() map[string]ir.Value {
	out := make(map[string]ir.Value, len(s.values))
	for i, v := range s.values {
		out[s.net.Signals[i].QualifiedName()] = v
	}
	return out
}
