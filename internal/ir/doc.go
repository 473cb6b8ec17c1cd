// Package ir provides the program model and value algebra for logicsim.
//
// This package contains the abstract syntax tree consumed by the simulator
// core (units, statements, expressions, time directives), the runtime value
// kinds with their gate operations, and canonical JSON helpers used to digest
// traces. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Names compare by text only; Span is diagnostic metadata
//   - Values are immutable; every operation returns a new Value
//   - Logical time only (unsigned instants in the configured unit)
//   - All JSON tags use snake_case
package ir
