// Package idl compiles CUE interface descriptions of programs.
//
// An IDL document describes one program:
//
//	program: {
//		name: "hello"
//		id:   "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
//		instructions: [{
//			name: "send_event"
//			accounts: [{name: "sender", signer: true}]
//			args: [{name: "data", type: "u8"}, {name: "title", type: "string"}]
//		}]
//		events: [{
//			name: "HelloEvent"
//			fields: [{name: "data", type: "u8"}, {name: "title", type: "string"}, {name: "owner", type: "pubkey"}]
//		}]
//	}
//
// Compiled events become codec.Schema values, so observers can decode a
// program's log without linking its Go types.
package idl
