package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/idl"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled IDL with derived selectors and
// discriminators spelled out.
type CompilationResult struct {
	Name         string                `json:"name"`
	ProgramID    string                `json:"program_id"`
	Instructions []CompiledInstruction `json:"instructions"`
	Events       []CompiledEvent       `json:"events"`
}

// CompiledInstruction is one instruction entry of a CompilationResult.
type CompiledInstruction struct {
	Name     string        `json:"name"`
	Selector string        `json:"selector"`
	Accounts []idl.Account `json:"accounts"`
	Args     []codec.Field `json:"args"`
}

// CompiledEvent is one event entry of a CompilationResult.
type CompiledEvent struct {
	Name          string        `json:"name"`
	Discriminator string        `json:"discriminator"`
	Fields        []codec.Field `json:"fields"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <idl>",
		Short: "Compile a CUE program IDL",
		Long: `Compile a CUE program interface description.

The IDL may be a single .cue file or a directory holding one CUE package.
The output lists every instruction with its 8-byte selector and every event
with its 8-byte discriminator.

Example:
  eventprog compile ./internal/hello/hello.cue
  eventprog compile ./idl -o hello.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	formatter.VerboseLog("Compiling %s", path)
	d, err := LoadIDL(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	result := newCompilationResult(d)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeIDLToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func newCompilationResult(d *idl.IDL) *CompilationResult {
	result := &CompilationResult{
		Name:         d.Name,
		ProgramID:    d.ProgramID.String(),
		Instructions: make([]CompiledInstruction, 0, len(d.Instructions)),
		Events:       make([]CompiledEvent, 0, len(d.Events)),
	}
	for _, ix := range d.Instructions {
		result.Instructions = append(result.Instructions, CompiledInstruction{
			Name:     ix.Name,
			Selector: ix.Selector.String(),
			Accounts: ix.Accounts,
			Args:     ix.Args,
		})
	}
	for _, ev := range d.Events {
		result.Events = append(result.Events, CompiledEvent{
			Name:          ev.Name,
			Discriminator: codec.DiscriminatorFor(ev.Name).String(),
			Fields:        ev.Fields,
		})
	}
	return result
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s (%s): %d instruction(s), %d event(s)\n\n",
		result.Name, result.ProgramID, len(result.Instructions), len(result.Events))

	if len(result.Instructions) > 0 {
		fmt.Fprintln(w, "Instructions:")
		for _, ix := range result.Instructions {
			fmt.Fprintf(w, "  %s %s: %d account(s), %d arg(s)\n",
				ix.Selector, ix.Name, len(ix.Accounts), len(ix.Args))
		}
		fmt.Fprintln(w)
	}

	if len(result.Events) > 0 {
		fmt.Fprintln(w, "Events:")
		for _, ev := range result.Events {
			fmt.Fprintf(w, "  %s %s: %d field(s)\n", ev.Discriminator, ev.Name, len(ev.Fields))
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled IDL to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a compilation error. Compilation errors are
// command-level errors (exit code 2).
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message := parseCompileError(err)

	if formatter.Format != "json" {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
			fmt.Fprintln(formatter.Writer)
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, message)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
		}
	}

	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIDLToFile writes the compilation result to a file.
func writeIDLToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IDL: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
