// Package logparse recovers typed events from a transaction's log lines.
//
// Observers see the runtime's log channel as plain text. Event lines carry
// a marker followed by the base64 event payload; everything else is either
// invoke framing ("Program <id> invoke [n]", "Program <id> success",
// "Program <id> failed: ...") or free-form text, which is skipped.
//
// Framing lines maintain a call stack so that each event line is
// attributed to the program that was executing when it was written. Only
// lines attributed to the configured program are decoded.
package logparse
