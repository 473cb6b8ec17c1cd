// Package store provides SQLite-backed storage for simulation traces.
//
// Each run of a test is one row in runs; its value changes and assertion
// outcomes hang off it:
//   - Runs: test name, declaration index, program digest, status, failure
//   - Signals: the linked netlist's signal table for the run
//   - Changes: value-change events, one per (run, seq)
//   - Assertions: every assertion check, passed or failed
//
// # Ordering
//
// Every query orders by seq ASC. seq is the engine's logical clock and is
// shared by changes and assertions, so merging both tables by seq rebuilds
// the event stream exactly (see Records and Digest).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Recorder adapts the store to sim.TraceSink: events are buffered while a
// test runs and written in one transaction when it ends.
package store
