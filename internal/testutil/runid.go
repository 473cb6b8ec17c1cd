package testutil

import (
	"fmt"
	"sync"
)

// FixedRunID generates the same run id every time.
//
// The same scenario with the same FixedRunID produces byte-identical stored
// traces, which golden comparisons rely on.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed generator. An empty id becomes "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunID) Generate() string {
	return g.id
}

// SequentialRunIDs yields "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike the UUIDv7 generator the sequence is reproducible, and unlike
// FixedRunID every run gets its own id, so one database can hold several
// runs of a suite.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialRunIDs creates a generator; the first id ends in 0001.
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset restarts the sequence so the next id ends in 0001 again.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
