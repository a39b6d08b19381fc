// Package ir provides the foundational wire-level types for eventprog.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// addressing and identity primitives at the bottom of the dependency graph.
//
// Key design constraints:
//   - Pubkey is exactly 32 raw bytes; its text form is base58
//   - Discriminators and selectors are 8-byte prefixes of domain-separated SHA-256
//   - NO float types in IR values - use int64 for numbers
//   - Canonical JSON (RFC 8785) is the only rendering used for content-addressed IDs
package ir
