// Package runtime simulates the ledger execution environment around a program.
//
// It owns the parts a program must trust but never implements:
//   - authentication: ed25519 signatures over the transaction message decide
//     which accounts carry IsSigner; flags claimed by the caller are ignored
//   - the log channel: one buffer per transaction, committed only if every
//     instruction succeeds
//   - ordering: a monotonic logical slot clock, never wall-clock time
//
// Execution is single-threaded per transaction. Each instruction runs to
// completion; the first failure aborts the transaction and discards all of
// its log lines.
package runtime
