package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/idl"
)

// LoadError represents an error that occurred while loading an IDL.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadIDL compiles the IDL at path, which may be a .cue file or a
// directory holding one CUE package.
func LoadIDL(path string) (*idl.IDL, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("idl not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing idl: %v", err)}
	}

	var d *idl.IDL
	if info.IsDir() {
		d, err = idl.LoadDir(path)
	} else {
		d, err = idl.LoadFile(path)
	}
	if err != nil {
		return nil, convertCompileError(err)
	}
	return d, nil
}

// resolveIDL returns the IDL named by flag, then the config file, then the
// built-in hello IDL.
func resolveIDL(opts *RootOptions, flag string) (*idl.IDL, error) {
	path := flag
	if path == "" {
		path = opts.Config.IDL
	}
	if path == "" {
		return idl.LoadBytes("hello.cue", hello.IDL)
	}
	return LoadIDL(path)
}

// resolveRegistry returns the decoder registry for a command. Without an
// IDL the typed hello registry is used.
func resolveRegistry(opts *RootOptions, flag string) (*codec.Registry, error) {
	if flag == "" && opts.Config.IDL == "" {
		return hello.NewRegistry(), nil
	}
	d, err := resolveIDL(opts, flag)
	if err != nil {
		return nil, err
	}
	return d.Registry()
}

// convertCompileError converts an IDL error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *idl.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: err.Error(),
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	// IDL validation errors
	ErrCodeProgram      = "E101" // Missing program block, name, or id
	ErrCodeInstructions = "E102" // Bad instruction list
	ErrCodeAccounts     = "E103" // Bad account list
	ErrCodeEvents       = "E104" // Bad event list
	ErrCodeFields       = "E105" // Bad args or fields (unknown kind, duplicate)

	// Runtime errors
	ErrCodeAborted  = "E201" // Transaction aborted
	ErrCodeRejected = "E202" // Transaction rejected before execution
	ErrCodeDecode   = "E203" // Log line could not be decoded
	ErrCodeMismatch = "E204" // Replay differs from the stored record
)

// MapFieldToErrorCode maps an IDL error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "program", "name", "id":
		return ErrCodeProgram
	case "instructions":
		return ErrCodeInstructions
	case "accounts":
		return ErrCodeAccounts
	case "events":
		return ErrCodeEvents
	case "args", "fields":
		return ErrCodeFields
	case "cue":
		return ErrCodeLoadFailed
	default:
		return ErrCodeGeneric
	}
}
