package program

import (
	"encoding/base64"
	"fmt"

	"github.com/roach88/eventprog/internal/ir"
)

// DefaultMarker prefixes every event line. Off-chain observers use it to
// tell program-emitted events apart from ordinary log text.
const DefaultMarker = "Program data:"

// LogPrefix prefixes free-form program messages.
const LogPrefix = "Program log:"

// LogChannel is the append-only, order-preserving output of an invocation.
type LogChannel interface {
	Append(line string)
}

// FormatDataLine renders one event line: "<marker> " + base64(payload).
func FormatDataLine(marker string, payload []byte) string {
	return marker + " " + base64.StdEncoding.EncodeToString(payload)
}

// FormatLogLine renders a free-form message line.
func FormatLogLine(msg string) string {
	return LogPrefix + " " + msg
}

// FormatInvokeLine renders the frame opened by the runtime for a program call.
func FormatInvokeLine(id ir.Pubkey, depth int) string {
	return fmt.Sprintf("Program %s invoke [%d]", id, depth)
}

// FormatSuccessLine renders the frame closed after a committed call.
func FormatSuccessLine(id ir.Pubkey) string {
	return fmt.Sprintf("Program %s success", id)
}

// FormatFailedLine renders the frame closed after an aborted call.
func FormatFailedLine(id ir.Pubkey, err error) string {
	return fmt.Sprintf("Program %s failed: %v", id, err)
}
