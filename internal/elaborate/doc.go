// Package elaborate flattens one test into a design of localized signals.
//
// Every invocation of a user circuit or process becomes a frame in a path
// arena (Paths). A signal is identified by its name and the PathID of the
// invocation it lives in, so two instances of the same unit never share
// state. Frames are append-only: a PathID stays valid and its frame never
// changes for the lifetime of the Design.
//
// Elaboration is an explicit worklist walk. Before a frame is pushed the
// call chain of its parent is searched for the callee, which rejects direct
// and indirect recursion; a depth limit bounds pathological hierarchies.
//
// The output Design keeps, in declaration order:
//   - combinational drivers (Assigns), including port bindings
//   - structural assertions written before any time directive (Invariants)
//   - one Timeline per test or process instance with its timed blocks
package elaborate
