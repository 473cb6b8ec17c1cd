package engine

import "sync/atomic"

// Clock is the logical sequence counter for trace events.
//
// Every change and assertion event gets a strictly increasing seq, so a
// trace has a total order independent of simulation time: several events
// share an instant but never a seq. Replaying the same netlist produces
// the same seqs.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though a Simulation only calls it from Step.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next seq is start+1.
// Used to continue a sequence across tests sharing one trace.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
