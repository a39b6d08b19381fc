package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/logparse"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	IDL     string
	Program string
}

// DecodedEvent is one event line decoded for output.
type DecodedEvent struct {
	Line          int         `json:"line"`
	ProgramID     string      `json:"program_id"`
	Name          string      `json:"name"`
	Discriminator string      `json:"discriminator"`
	Fields        ir.IRObject `json:"fields"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode [line]...",
		Short: "Decode event lines from program logs",
		Long: `Decode "Program data:" lines into typed events.

Lines are taken from the arguments, or from stdin when none are given.
Invoke framing lines attribute data lines to programs; only the configured
program's lines are decoded. Lines without framing belong to the configured
program. Other log text is ignored.

Without --idl the built-in hello events are recognised.

Examples:
  eventprog decode 'Program data: GxJhsZIyggkqBQAAAGhlbGxv...'
  eventprog invoke --title hi | eventprog decode
  eventprog decode --idl ./idl/hello.cue --format json < logs.txt`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := args
			if len(lines) == 0 {
				var err error
				if lines, err = readLines(cmd.InOrStdin()); err != nil {
					return WrapExitError(ExitCommandError, "failed to read stdin", err)
				}
			}
			return runDecode(opts, lines, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.IDL, "idl", "", "path to a CUE program IDL")
	cmd.Flags().StringVar(&opts.Program, "program", "", "program ID to decode for (default: config program_id)")

	return cmd
}

func runDecode(opts *DecodeOptions, lines []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	programID := opts.Config.Pubkey()
	if opts.Program != "" {
		pk, err := ir.ParsePubkey(opts.Program)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --program", err)
		}
		programID = pk
	}

	reg, err := resolveRegistry(opts.RootOptions, opts.IDL)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	parser := logparse.New(programID, reg)
	parser.Marker = opts.Config.Marker

	observed, err := parser.Parse(lines)
	if err != nil {
		_ = formatter.Error(ErrCodeDecode, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to decode", err)
	}
	events := decodedEvents(observed)
	formatter.VerboseLog("Decoded %d event(s) from %d line(s)", len(events), len(lines))

	if formatter.Format == "json" {
		return formatter.Success(events)
	}

	for _, ev := range events {
		fields, err := ir.MarshalCanonical(ev.Fields)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render fields", err)
		}
		fmt.Fprintf(formatter.Writer, "%d %s %s\n", ev.Line, ev.Name, fields)
	}
	return nil
}

func decodedEvents(observed []logparse.Observed) []DecodedEvent {
	events := make([]DecodedEvent, 0, len(observed))
	for _, obs := range observed {
		events = append(events, DecodedEvent{
			Line:          obs.Line,
			ProgramID:     obs.ProgramID.String(),
			Name:          obs.Name,
			Discriminator: obs.Discriminator.String(),
			Fields:        eventFields(obs.Event),
		})
	}
	return events
}

func eventFields(ev codec.Event) ir.IRObject {
	if f, ok := ev.(codec.Fielder); ok {
		return f.IRFields()
	}
	return ir.IRObject{}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}
