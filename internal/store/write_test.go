package store

import (
	"database/sql"
	"errors"
	"testing"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 3)

	run, err := s.ReadRun(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Test != "main" || run.Index != 3 {
		t.Errorf("run = %+v, want test main index 3", run)
	}
	if run.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", run.Status, StatusRunning)
	}
	if len(run.Unsettled) != 0 || run.Unsettled == nil {
		t.Errorf("Unsettled = %#v, want empty non-nil slice", run.Unsettled)
	}

	signals, err := s.ReadSignals(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadSignals() failed: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].QualifiedName() != "main.a" || !signals[0].Input {
		t.Errorf("signals[0] = %+v, want input main.a", signals[0])
	}
	if signals[1].QualifiedName() != "main.y" || !signals[1].Driven {
		t.Errorf("signals[1] = %+v, want driven main.y", signals[1])
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)

	// Second write with a different test name is ignored.
	again := createTestRun("run-1", "other", 9)
	if err := s.WriteRun(t.Context(), again, []Signal{{ID: 7, Scope: "other", Name: "z"}}); err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}

	run, err := s.ReadRun(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Test != "main" {
		t.Errorf("Test = %q, want main (first write wins)", run.Test)
	}
	signals, _ := s.ReadSignals(t.Context(), "run-1")
	if len(signals) != 2 {
		t.Errorf("got %d signals, want 2", len(signals))
	}
}

func TestWriteEvents_Idempotent(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)

	changes := []Change{
		{Seq: 1, Instant: 0, Signal: "main.a", Value: "1"},
		{Seq: 2, Instant: 0, Signal: "main.y", Value: "1"},
	}
	for i := 0; i < 2; i++ {
		if err := s.WriteEvents(t.Context(), "run-1", changes, nil); err != nil {
			t.Fatalf("WriteEvents() attempt %d failed: %v", i, err)
		}
	}

	got, err := s.ReadChanges(t.Context(), "run-1", "")
	if err != nil {
		t.Fatalf("ReadChanges() failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d changes, want 2", len(got))
	}
}

func TestFinishRun_Failed(t *testing.T) {
	s := createTestStore(t)
	run := writeTestRun(t, s, "run-1", "ring", 0)

	run.Status = StatusFailed
	run.ErrorKind = "runtime"
	run.ErrorMessage = "did not settle"
	run.Unsettled = []string{"ring.x"}
	changes := []Change{{Seq: 1, Signal: "ring.x", Value: "1"}}
	assertions := []Assertion{{Seq: 2, Line: 4, Source: "assert x", Scope: "ring", Expected: "1", Actual: "0"}}

	if err := s.FinishRun(t.Context(), run, changes, assertions); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	got, err := s.ReadRun(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != StatusFailed || got.ErrorKind != "runtime" || got.ErrorMessage != "did not settle" {
		t.Errorf("run = %+v", got)
	}
	if len(got.Unsettled) != 1 || got.Unsettled[0] != "ring.x" {
		t.Errorf("Unsettled = %v, want [ring.x]", got.Unsettled)
	}

	failed, err := s.ReadFailedAssertions(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadFailedAssertions() failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Line != 4 {
		t.Errorf("failed assertions = %+v", failed)
	}
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun("ghost", "main", 0)
	run.Status = StatusPassed

	err := s.FinishRun(t.Context(), run, nil, nil)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("FinishRun() = %v, want sql.ErrNoRows", err)
	}
}

func TestFinishRun_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)

	// The second run does not exist; its events must not survive.
	run := createTestRun("run-2", "main", 1)
	run.Status = StatusPassed
	err := s.FinishRun(t.Context(), run, []Change{{Seq: 1, Signal: "main.a", Value: "1"}}, nil)
	if err == nil {
		t.Fatal("FinishRun() should fail for a missing run")
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM changes").Scan(&count); err != nil {
		t.Fatalf("count changes: %v", err)
	}
	if count != 0 {
		t.Errorf("changes = %d after rollback, want 0", count)
	}
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1", "main", 0)
	if err := s.WriteEvents(t.Context(), "run-1",
		[]Change{{Seq: 1, Signal: "main.a", Value: "1"}},
		[]Assertion{{Seq: 2, Source: "assert a", Scope: "main", Expected: "1", Actual: "1", Passed: true}},
	); err != nil {
		t.Fatalf("WriteEvents() failed: %v", err)
	}

	if err := s.DeleteRun(t.Context(), "run-1"); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}

	for _, table := range []string{"runs", "signals", "changes", "assertions"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s has %d rows after delete, want 0", table, count)
		}
	}
}
