// Package program implements instruction dispatch for an on-chain program.
//
// A Program is a fixed table from 8-byte selectors to instructions, built once
// by New and never mutated afterwards. Dispatch runs one instruction:
//
//  1. Validating: the account list must hold an authenticated signer
//     (MISSING_SIGNATURE); the selector must be registered
//     (UNKNOWN_INSTRUCTION); declared account specs must be satisfied.
//  2. Executing: arguments are decoded (MALFORMED_PAYLOAD) and the handler
//     runs. Handlers emit typed events through Context.Emit.
//  3. Committed: buffered log lines are appended to the LogChannel in emit
//     order. Aborted: nothing is appended.
//
// The dispatcher reads AccountMeta.IsSigner and never sets it. Setting it is
// the execution environment's job (see package runtime).
package program
