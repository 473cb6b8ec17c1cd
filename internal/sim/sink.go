package sim

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/roach88/logicsim/internal/engine"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
)

// RunInfo identifies one execution of one test.
type RunInfo struct {
	ID   string
	Test string
	// Index is the position of the test in declaration order.
	Index int
	// ProgramDigest is ir.ProgramDigest of the simulated program.
	ProgramDigest string
	TimeUnit      ir.TimeUnit
}

// TraceSink receives the events of every run. The store's recorder and
// MemorySink implement it.
//
// Begin is called once the netlist is built and returns the listener for
// that run. End is called when the run finishes, with the run's failure
// or nil. Calls for different runs may be concurrent.
type TraceSink interface {
	Begin(ctx context.Context, run RunInfo, n *link.Netlist) (engine.ChangeListener, error)
	End(ctx context.Context, run RunInfo, failure error) error
}

// Sinks fans a run out to several sinks. End is called on every sink
// even if one fails.
type Sinks []TraceSink

// Begin implements TraceSink.
func (ss Sinks) Begin(ctx context.Context, run RunInfo, n *link.Netlist) (engine.ChangeListener, error) {
	ls := make(engine.Listeners, 0, len(ss))
	for _, s := range ss {
		l, err := s.Begin(ctx, run, n)
		if err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	return ls, nil
}

// End implements TraceSink.
func (ss Sinks) End(ctx context.Context, run RunInfo, failure error) error {
	var errs []error
	for _, s := range ss {
		if err := s.End(ctx, run, failure); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps one engine.MemoryTrace per run.
type MemorySink struct {
	mu     sync.Mutex
	traces map[string]*engine.MemoryTrace
	order  []RunInfo
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{traces: make(map[string]*engine.MemoryTrace)}
}

// Begin implements TraceSink.
func (m *MemorySink) Begin(_ context.Context, run RunInfo, _ *link.Netlist) (engine.ChangeListener, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := engine.NewMemoryTrace()
	m.traces[run.ID] = t
	m.order = append(m.order, run)
	return t, nil
}

// End implements TraceSink.
func (m *MemorySink) End(context.Context, RunInfo, error) error {
	return nil
}

// Trace returns the trace of a run.
func (m *MemorySink) Trace(runID string) (*engine.MemoryTrace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.traces[runID]
	return t, ok
}

// Runs returns the runs seen, sorted by test index.
func (m *MemorySink) Runs() []RunInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]RunInfo(nil), m.order...)
	sortRuns(out)
	return out
}

// Records concatenates the canonical records of all runs in test order.
// Each record gains "run" and "test" keys.
func (m *MemorySink) Records() []map[string]any {
	var out []map[string]any
	for _, run := range m.Runs() {
		t, _ := m.Trace(run.ID)
		for _, r := range t.Records() {
			rec := make(map[string]any, len(r)+2)
			for k, v := range r {
				rec[k] = v
			}
			rec["test"] = run.Test
			rec["run"] = run.ID
			out = append(out, rec)
		}
	}
	return out
}

func sortRuns(runs []RunInfo) {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Index < runs[j].Index })
}
