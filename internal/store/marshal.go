package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/eventprog/internal/ir"
)

// marshalFields converts IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		fields = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses canonical JSON TEXT to IRObject.
// Integers are decoded via json.Number so values above 2^53 survive.
func unmarshalFields(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	obj, err := ir.UnmarshalIRObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}

// marshalLines converts log lines to a JSON array TEXT.
// HTML escaping is disabled so lines are stored as written.
func marshalLines(lines []string) (string, error) {
	if lines == nil {
		lines = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(lines); err != nil {
		return "", fmt.Errorf("marshal logs: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalLines parses a JSON array TEXT into log lines.
func unmarshalLines(data string) ([]string, error) {
	lines := []string{}
	if data == "" {
		return lines, nil
	}
	if err := json.Unmarshal([]byte(data), &lines); err != nil {
		return nil, fmt.Errorf("unmarshal logs: %w", err)
	}
	return lines, nil
}
