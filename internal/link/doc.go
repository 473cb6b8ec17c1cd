// Package link turns an elaborated design into an executable netlist.
//
// Linking assigns each signal a dense SignalID, resolves expressions to
// those IDs and converts constants to runtime values. It enforces two
// structural rules: a signal has at most one source (one combinational
// driver, or stimulus writes, never both) and a signal that is read has a
// source. Timed blocks become a single schedule of absolute instants.
package link
