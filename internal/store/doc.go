// Package store provides SQLite-backed storage for indexed program events.
//
// The store is an append-only log with two tables:
//   - transactions: one row per indexed receipt (slot, state, committed log lines)
//   - events: one row per decoded event line, content-addressed by ir.RecordID
//
// # Patterns
//
// Idempotency: indexing the same receipt twice leaves the store unchanged.
// A stored ID that reappears at another slot (or, for events, under another
// transaction) is an ErrConflict, never a silent drop.
//
// Logical time: rows are ordered by seq and slot, never by wall time.
// Every list query ends in "ORDER BY seq ASC, id COLLATE BINARY ASC" (or
// the slot equivalent) so results are identical across runs.
//
// Canonical fields: decoded event fields are stored as RFC 8785 JSON.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: 5 second wait on lock contention
//   - foreign_keys=ON: Events must reference a stored transaction
//
// # Thread Safety
//
// Store uses a single connection (SetMaxOpenConns(1)), so writes are
// serialized by database/sql.
package store
