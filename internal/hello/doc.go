// Package hello is the event-emitting program: one instruction, send_event,
// that emits a HelloEvent owned by its signer.
//
// The package holds both sides of the contract: the on-chain handler and the
// client-side instruction builder, plus the embedded CUE interface
// description used by off-chain decoders.
package hello
