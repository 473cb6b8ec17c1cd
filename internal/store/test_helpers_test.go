package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/logicsim/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id, test string, index int) Run {
	return Run{
		ID:            id,
		Test:          test,
		Index:         index,
		ProgramDigest: "test-digest",
		TimeUnit:      "ns",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// writeTestRun writes a run with two signals, main.a and main.y.
func writeTestRun(t *testing.T, s *Store, id, test string, index int) Run {
	t.Helper()
	run := createTestRun(id, test, index)
	signals := []Signal{
		{ID: 0, Scope: test, Name: "a", Input: true},
		{ID: 1, Scope: test, Name: "y", Driven: true},
	}
	if err := s.WriteRun(context.Background(), run, signals); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}
