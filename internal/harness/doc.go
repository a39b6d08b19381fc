// Package harness runs YAML conformance scenarios against the runtime.
//
// A scenario is a list of transactions built from a program IDL. Each step
// is signed with deterministic keys derived from labels, executed by a
// fresh runtime, and indexed into an in-memory store. The resulting trace
// (transaction outcomes, committed log lines, decoded events) is checked
// against the step's expect clause and the scenario's assertions, and can
// be compared against a golden snapshot.
//
// Every run is deterministic: keys come from runtime.DeriveKey, slots and
// seqs from fresh logical clocks, batch IDs from a fixed generator.
package harness
