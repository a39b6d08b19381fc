package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError is one IDL that failed to compile.
type ValidationError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Checked int               `json:"checked"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <idl>...",
		Short: "Validate program IDLs",
		Long: `Validate one or more CUE program IDLs without writing output.

Every path is checked; all failures are reported together.

Exit codes:
  0 - All IDLs valid
  1 - One or more IDLs invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	errs := ValidateIDLs(paths, formatter)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(paths), errs)
	}
	return outputValidateSuccess(formatter, len(paths))
}

// ValidateIDLs compiles every path and collects failures.
func ValidateIDLs(paths []string, formatter *OutputFormatter) []ValidationError {
	var errs []ValidationError
	for _, path := range paths {
		if formatter != nil {
			formatter.VerboseLog("Validating %s", path)
		}
		if _, err := LoadIDL(path); err != nil {
			code, message := parseCompileError(err)
			verr := ValidationError{Path: path, Code: code, Message: message}
			var loadErr *LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				verr.Line = loadErr.Pos.Line()
			}
			errs = append(errs, verr)
		}
	}
	return errs
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, checked int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Checked: checked})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d IDL(s) valid\n", checked)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, checked int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:   false,
				Checked: checked,
				Errors:  errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", err.Path, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
