package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/logicsim/internal/engine"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
	"github.com/roach88/logicsim/internal/sim"
)

// Recorder persists runs to a Store. It implements sim.TraceSink.
//
// Begin writes the run row and signal table; events are buffered in
// memory while the test runs and written together with the final status
// in End.
type Recorder struct {
	store *Store

	mu      sync.Mutex
	pending map[string]*runBuffer
}

var _ sim.TraceSink = (*Recorder)(nil)

// NewRecorder creates a recorder writing to s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s, pending: make(map[string]*runBuffer)}
}

// Begin implements sim.TraceSink.
func (r *Recorder) Begin(ctx context.Context, info sim.RunInfo, n *link.Netlist) (engine.ChangeListener, error) {
	signals := make([]Signal, len(n.Signals))
	for i, sig := range n.Signals {
		signals[i] = Signal{
			ID:     int(sig.ID),
			Scope:  sig.Scope,
			Name:   sig.Name,
			Input:  sig.Input,
			Driven: sig.Driven,
		}
	}
	run := Run{
		ID:            info.ID,
		Test:          info.Test,
		Index:         info.Index,
		ProgramDigest: info.ProgramDigest,
		TimeUnit:      info.TimeUnit.String(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Status:        StatusRunning,
	}
	if err := r.store.WriteRun(ctx, run, signals); err != nil {
		return nil, err
	}

	buf := &runBuffer{run: run}
	r.mu.Lock()
	r.pending[info.ID] = buf
	r.mu.Unlock()
	return buf, nil
}

// End implements sim.TraceSink.
func (r *Recorder) End(ctx context.Context, info sim.RunInfo, failure error) error {
	r.mu.Lock()
	buf, ok := r.pending[info.ID]
	delete(r.pending, info.ID)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("end run %s: run was never begun", info.ID)
	}

	run := buf.run
	run.Status = StatusPassed
	if failure != nil {
		run.Status = StatusFailed
		run.ErrorMessage = failure.Error()
		var se *sim.Error
		if errors.As(failure, &se) {
			run.ErrorKind = se.Kind.String()
			run.ErrorMessage = se.Err.Error()
		}
		var re *engine.RuntimeError
		if errors.As(failure, &re) {
			run.Unsettled = re.Signals
		}
	}
	return r.store.FinishRun(ctx, run, buf.changes, buf.assertions)
}

// runBuffer collects the events of one run.
type runBuffer struct {
	run        Run
	changes    []Change
	assertions []Assertion
}

func (b *runBuffer) Change(ev engine.ChangeEvent) error {
	b.changes = append(b.changes, Change{
		Seq:     ev.Seq,
		Instant: ev.Instant,
		Signal:  ev.Scope + "." + ev.Name,
		Value:   ir.FormatValue(ev.Value),
	})
	return nil
}

func (b *runBuffer) Assertion(ev engine.AssertionEvent) error {
	b.assertions = append(b.assertions, Assertion{
		Seq:       ev.Seq,
		Instant:   ev.Instant,
		Line:      ev.Span.Line,
		Source:    ev.Source,
		Scope:     ev.Scope,
		Expected:  ir.FormatValue(ev.Expected),
		Actual:    ir.FormatValue(ev.Actual),
		Passed:    ev.Passed,
		Invariant: ev.Invariant,
	})
	return nil
}
