// Package sim is the entry point for simulating a compiled program.
//
// A Simulator takes an ir.Program and a config.Config and runs tests
// through the pipeline elaborate → link → engine. Every failure is
// reported as a *Error whose Kind names the stage that failed and whose
// Err is the stage's own error, so callers can switch on Kind or reach
// the underlying *engine.AssertionError, *link.Error, ... with errors.As.
//
// Runs can be recorded through a TraceSink; the trace store and the
// in-memory MemorySink implement it.
package sim
