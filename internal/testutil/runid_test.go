package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunID(t *testing.T) {
	g := NewFixedRunID("run-x")
	assert.Equal(t, "run-x", g.Generate())
	assert.Equal(t, "run-x", g.Generate())

	assert.Equal(t, "test-run-default", NewFixedRunID("").Generate())
}

func TestSequentialRunIDs(t *testing.T) {
	g := NewSequentialRunIDs("suite")
	assert.Equal(t, "suite-0001", g.Generate())
	assert.Equal(t, "suite-0002", g.Generate())

	g.Reset()
	assert.Equal(t, "suite-0001", g.Generate())

	assert.Equal(t, "run-0001", NewSequentialRunIDs("").Generate())
}

func TestSequentialRunIDs_ThreadSafe(t *testing.T) {
	g := NewSequentialRunIDs("p")
	const workers = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers, "every id is unique")
}
