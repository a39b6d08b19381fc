package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/eventprog/internal/runtime"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Aborted or rejected transaction, undecodable line, failed scenario, replay mismatch
	ExitCommandError = 2 // Command error (invalid paths, bad flags, database not found, etc.)
)

// stateRejected labels a transaction that never reached execution. It has
// no receipt, so it has no runtime.State either.
const stateRejected = "rejected"

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command. Failures that come from executing a
// transaction also carry the runtime code (MISSING_SIGNATURE,
// INVALID_SIGNATURE, ...), the receipt state and the slot it consumed.
type CLIError struct {
	Code        string `json:"code"` // E0xx load, E1xx IDL, E2xx execution
	Message     string `json:"message"`
	RuntimeCode string `json:"runtime_code,omitempty"`
	State       string `json:"state,omitempty"` // committed, aborted or rejected
	Slot        int64  `json:"slot,omitempty"`
	Details     any    `json:"details,omitempty"`
}

// executionError describes the failure of rt.Execute. A nil receipt means
// the runtime rejected the transaction before allocating a slot.
func executionError(rcpt *runtime.Receipt, err error) *CLIError {
	e := &CLIError{
		Code:        ErrCodeRejected,
		Message:     err.Error(),
		RuntimeCode: runtime.Code(err),
		State:       stateRejected,
	}
	if rcpt != nil {
		e.Code = ErrCodeAborted
		e.State = rcpt.State.String()
		e.Slot = rcpt.Slot
	}
	return e
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs a failure that has no transaction behind it.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.Fail(&CLIError{Code: code, Message: message, Details: details})
}

// Fail outputs e in the configured format.
func (f *OutputFormatter) Fail(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: e})
	}

	if e.RuntimeCode != "" {
		fmt.Fprintf(f.Writer, "Error [%s %s]: %s\n", e.Code, e.RuntimeCode, e.Message)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	}
	if e.State == stateRejected {
		fmt.Fprintln(f.Writer, "Transaction rejected; no slot consumed")
	} else if e.State != "" {
		fmt.Fprintf(f.Writer, "Transaction %s at slot %d\n", e.State, e.Slot)
	}
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose mode is on. It goes to
// ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
