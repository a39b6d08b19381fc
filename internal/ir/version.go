package ir

// Version constants for the wire format and the tool.
const (
	// WireVersion identifies the event/instruction wire layout.
	// Bump only when field encoding rules change.
	WireVersion = "1"

	// ToolVersion is the eventprog release version.
	ToolVersion = "0.1.0"
)
