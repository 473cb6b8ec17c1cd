// Package harness runs testbench suites against compiled programs.
//
// A suite is a YAML file naming a program directory, optional config
// overrides, the expected outcome of each test and assertions over the
// recorded trace. The harness compiles the program, runs every test
// (collect-all, deterministic run ids, in-memory trace) and checks the
// results against the suite.
//
// # Suite Format
//
//	name: full_adder
//	description: "Full adder truth table"
//	program: ../programs/adder      # relative to the suite file
//	config:
//	  max_passes: 100
//	expect:
//	  - test: main
//	    outcome: pass
//	  - test: wrong
//	    outcome: fail
//	    error: assertion
//	    expected: "1"
//	    actual: "0"
//	assertions:
//	  - type: trace_contains
//	    test: main
//	    signal: main.o
//	    value: "1"
//	golden: true
//
// A test without an expect entry must pass.
//
// # Assertion Types
//
//   - trace_contains: the signal takes the value (optionally at an instant)
//   - trace_order: the signal takes the listed values in order
//   - trace_count: the signal changes exactly count times
//   - final_value: the last value the signal took
//
// Values use the trace text form: "0", "1" or "<width>'d<decimal>".
//
// # Golden Traces
//
// With golden: true the canonical JSON of every record is compared with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// or logicsim test --update outside of go test.
package harness
