package engine

import (
	"sync"

	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
)

// ChangeEvent records one signal taking a new value.
type ChangeEvent struct {
	Seq     int64
	Instant uint64
	Signal  link.SignalID
	Scope   string
	Name    string
	Value   ir.Value
}

// AssertionEvent records one assertion check, passed or failed.
type AssertionEvent struct {
	Seq       int64
	Instant   uint64
	Span      ir.Span
	Source    string
	Scope     string
	Expected  ir.Value
	Actual    ir.Value
	Passed    bool
	Invariant bool
}

// ChangeListener consumes the event stream of one simulation.
// A returned error stops the simulation with ErrCodeListener.
type ChangeListener interface {
	Change(ChangeEvent) error
	Assertion(AssertionEvent) error
}

// Listeners fans events out to several listeners in order.
type Listeners []ChangeListener

// Change implements ChangeListener.
func (ls Listeners) Change(ev ChangeEvent) error {
	for _, l := range ls {
		if err := l.Change(ev); err != nil {
			return err
		}
	}
	return nil
}

// Assertion implements ChangeListener.
func (ls Listeners) Assertion(ev AssertionEvent) error {
	for _, l := range ls {
		if err := l.Assertion(ev); err != nil {
			return err
		}
	}
	return nil
}

type discard struct{}

func (discard) Change(ChangeEvent) error       { return nil }
func (discard) Assertion(AssertionEvent) error { return nil }

// MemoryTrace keeps every event in memory.
// Used by tests, the harness golden files and replay digests.
//
// Thread-safety: safe for concurrent use.
type MemoryTrace struct {
	mu         sync.Mutex
	changes    []ChangeEvent
	assertions []AssertionEvent
	records    []map[string]any
}

// NewMemoryTrace creates an empty trace.
func NewMemoryTrace() *MemoryTrace {
	return &MemoryTrace{}
}

// Change implements ChangeListener.
func (m *MemoryTrace) Change(ev ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, ev)
	m.records = append(m.records, ChangeRecord(ev))
	return nil
}

// Assertion implements ChangeListener.
func (m *MemoryTrace) Assertion(ev AssertionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertions = append(m.assertions, ev)
	m.records = append(m.records, AssertionRecord(ev))
	return nil
}

// Changes returns a copy of the change events in seq order.
func (m *MemoryTrace) Changes() []ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChangeEvent(nil), m.changes...)
}

// Assertions returns a copy of the assertion events in seq order.
func (m *MemoryTrace) Assertions() []AssertionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AssertionEvent(nil), m.assertions...)
}

// Records returns the canonical records of all events in seq order.
func (m *MemoryTrace) Records() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.records...)
}

// Digest hashes the canonical records. Equal digests mean identical
// change and assertion streams.
func (m *MemoryTrace) Digest() (string, error) {
	return ir.TraceDigest(m.Records())
}

// ChangeRecord is the canonical form of a change event. The signal is
// identified by its qualified name so records compare across netlists.
func ChangeRecord(ev ChangeEvent) map[string]any {
	return map[string]any{
		"kind":    "change",
		"seq":     ev.Seq,
		"instant": ev.Instant,
		"signal":  ev.Scope + "." + ev.Name,
		"value":   ev.Value,
	}
}

// AssertionRecord is the canonical form of an assertion event. Only the
// line of the span is kept so the record does not depend on where the
// source file lives.
func AssertionRecord(ev AssertionEvent) map[string]any {
	return map[string]any{
		"kind":      "assert",
		"seq":       ev.Seq,
		"instant":   ev.Instant,
		"line":      ev.Span.Line,
		"source":    ev.Source,
		"scope":     ev.Scope,
		"expected":  ev.Expected,
		"actual":    ev.Actual,
		"passed":    ev.Passed,
		"invariant": ev.Invariant,
	}
}
