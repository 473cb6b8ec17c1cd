package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/logicsim/internal/ir"
)

// EventType distinguishes changes from assertion checks in a merged stream.
type EventType int

const (
	EventChange EventType = iota
	EventAssertion
)

// String returns the event type as a string.
func (t EventType) String() string {
	switch t {
	case EventChange:
		return "change"
	case EventAssertion:
		return "assert"
	default:
		return "unknown"
	}
}

// Event is one entry of a run's merged event stream.
type Event struct {
	Type      EventType
	Seq       int64
	Change    *Change
	Assertion *Assertion
}

// ReadEvents returns the changes and assertions of a run merged into
// the order the engine emitted them.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	changes, err := s.ReadChanges(ctx, runID, "")
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	assertions, err := s.ReadAssertions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	events := make([]Event, 0, len(changes)+len(assertions))
	for i := range changes {
		events = append(events, Event{Type: EventChange, Seq: changes[i].Seq, Change: &changes[i]})
	}
	for i := range assertions {
		events = append(events, Event{Type: EventAssertion, Seq: assertions[i].Seq, Assertion: &assertions[i]})
	}
	sortEvents(events)
	return events, nil
}

// sortEvents orders by seq, with changes before assertions for equal seq.
// Seqs are unique within a run; the tie-break keeps corrupt data stable.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Seq != events[j].Seq {
			return events[i].Seq < events[j].Seq
		}
		return events[i].Type < events[j].Type
	})
}

// Records rebuilds the canonical trace records of a run. The result
// equals engine.MemoryTrace.Records of the original run, so digests
// computed from either compare directly.
func (s *Store) Records(ctx context.Context, runID string) ([]map[string]any, error) {
	events, err := s.ReadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		switch ev.Type {
		case EventChange:
			c := ev.Change
			records = append(records, map[string]any{
				"kind":    "change",
				"seq":     c.Seq,
				"instant": c.Instant,
				"signal":  c.Signal,
				"value":   c.Value,
			})
		case EventAssertion:
			a := ev.Assertion
			records = append(records, map[string]any{
				"kind":      "assert",
				"seq":       a.Seq,
				"instant":   a.Instant,
				"line":      a.Line,
				"source":    a.Source,
				"scope":     a.Scope,
				"expected":  a.Expected,
				"actual":    a.Actual,
				"passed":    a.Passed,
				"invariant": a.Invariant,
			})
		}
	}
	return records, nil
}

// Digest returns ir.TraceDigest of a run's records.
func (s *Store) Digest(ctx context.Context, runID string) (string, error) {
	records, err := s.Records(ctx, runID)
	if err != nil {
		return "", err
	}
	return ir.TraceDigest(records)
}

// LastSeq returns the highest seq recorded for a run, or 0 if it has no
// events.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM changes WHERE run_id = ?
			UNION ALL
			SELECT seq FROM assertions WHERE run_id = ?
		)
	`, runID, runID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return last, nil
}

// FindIncompleteRuns returns runs still marked running: the process
// recording them stopped before the test finished.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = ?
		ORDER BY test_index ASC, id COLLATE BINARY ASC
	`, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("query incomplete runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomplete runs: %w", err)
	}
	return runs, nil
}
