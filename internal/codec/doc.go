// Package codec implements the canonical binary encoding for program events.
//
// Wire layout of an encoded event, in declared field order:
//
//	[discriminator: 8 bytes][field 0][field 1]...
//
// Field rules:
//   - fixed-width integers and bools: little-endian, no padding
//   - strings: u32 little-endian byte length, then the raw UTF-8 bytes
//   - pubkeys: exactly 32 raw bytes
//
// No field names appear on the wire. The discriminator is
// sha256("event:" + TypeName)[:8], so a log parser can identify a record type
// from the payload alone.
//
// Writer and Reader carry a sticky error: the first failure is kept and all
// later operations become no-ops. Encode never returns partial bytes.
package codec
