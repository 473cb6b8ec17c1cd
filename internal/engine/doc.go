// Package engine executes a linked netlist over simulated time.
//
// ARCHITECTURE:
//
// Step machine:
// A Simulation is driven from outside, one schedule entry per Step:
//
//	st := engine.Continue
//	for st == engine.Continue {
//		st, err = sim.Step()
//	}
//
// Each step
// 1. writes the entry's stimulus to its target signals,
// 2. settles: evaluates every combinational driver in declaration order
// and repeats until a pass changes nothing (Gauss-Seidel: later drivers
// in a pass see values written earlier in the same pass),
// 3. checks the entry's assertions, then the invariants,
// 4. advances to the next entry.
//
// Any error halts the simulation. Value errors surface as
// *ir.TypeMismatchError, failed checks as *AssertionError, everything
// else as *RuntimeError.
//
// TERMINATION:
// Settling is bounded twice. RepeatDetector reports a state that recurs
// within one instant (oscillation); PassQuota caps the number of passes.
// Both end the step with ErrCodeNonConvergence naming the signals changed
// by the last pass.
//
// DETERMINISM:
// Every event gets a seq from the logical Clock. Drivers, stimulus and
// checks run in netlist order. No randomness, no concurrency, no
// wall-clock time: two runs of one netlist emit identical event streams.
package engine
