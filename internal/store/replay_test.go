package store

import (
	"testing"

	"github.com/roach88/logicsim/internal/ir"
)

func writeMixedEvents(t *testing.T, s *Store, runID string) {
	t.Helper()
	changes := []Change{
		{Seq: 1, Instant: 0, Signal: "main.a", Value: "1"},
		{Seq: 2, Instant: 0, Signal: "main.y", Value: "4'd9"},
		{Seq: 4, Instant: 5, Signal: "main.a", Value: "0"},
	}
	assertions := []Assertion{
		{Seq: 3, Instant: 0, Line: 7, Source: "assert y == 9", Scope: "main", Expected: "4'd9", Actual: "4'd9", Passed: true},
	}
	if err := s.WriteEvents(t.Context(), runID, changes, assertions); err != nil {
		t.Fatalf("WriteEvents() failed: %v", err)
	}
}

func TestReadEvents_MergedBySeq(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)
	writeMixedEvents(t, s, "run-1")

	events, err := s.ReadEvents(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	want := []EventType{EventChange, EventChange, EventAssertion, EventChange}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Type != want[i] || ev.Seq != int64(i+1) {
			t.Errorf("events[%d] = %s seq %d, want %s seq %d", i, ev.Type, ev.Seq, want[i], i+1)
		}
	}
}

func TestRecords_CanonicalForm(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)
	writeMixedEvents(t, s, "run-1")

	records, err := s.Records(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	data, err := ir.MarshalCanonical(records[2])
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	want := `{"actual":"4'd9","expected":"4'd9","instant":0,"invariant":false,"kind":"assert","line":7,` +
		`"passed":true,"scope":"main","seq":3,"source":"assert y == 9"}`
	if string(data) != want {
		t.Errorf("record =\n%s\nwant\n%s", data, want)
	}
}

func TestDigest_Deterministic(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)
	writeTestRun(t, s, "run-2", "main", 0)
	writeMixedEvents(t, s, "run-1")
	writeMixedEvents(t, s, "run-2")

	d1, err := s.Digest(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("Digest(run-1) failed: %v", err)
	}
	d2, err := s.Digest(t.Context(), "run-2")
	if err != nil {
		t.Fatalf("Digest(run-2) failed: %v", err)
	}
	if d1 != d2 {
		t.Errorf("digests differ for identical event streams: %s vs %s", d1, d2)
	}

	if err := s.WriteEvents(t.Context(), "run-2", []Change{{Seq: 5, Instant: 9, Signal: "main.a", Value: "1"}}, nil); err != nil {
		t.Fatalf("WriteEvents() failed: %v", err)
	}
	d3, _ := s.Digest(t.Context(), "run-2")
	if d3 == d1 {
		t.Error("digest did not change after an extra event")
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)

	last, err := s.LastSeq(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 0 {
		t.Errorf("LastSeq() on empty run = %d, want 0", last)
	}

	writeMixedEvents(t, s, "run-1")
	last, _ = s.LastSeq(t.Context(), "run-1")
	if last != 4 {
		t.Errorf("LastSeq() = %d, want 4", last)
	}
}

func TestFindIncompleteRuns(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "open", "main", 0)
	done := writeTestRun(t, s, "done", "main", 1)
	done.Status = StatusPassed
	if err := s.FinishRun(t.Context(), done, nil, nil); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	runs, err := s.FindIncompleteRuns(t.Context())
	if err != nil {
		t.Fatalf("FindIncompleteRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "open" {
		t.Errorf("incomplete runs = %+v, want [open]", runs)
	}
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EventChange, "change"},
		{EventAssertion, "assert"},
		{EventType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
