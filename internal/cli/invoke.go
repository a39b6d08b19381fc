package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/indexer"
	"github.com/roach88/eventprog/internal/logparse"
	"github.com/roach88/eventprog/internal/runtime"
	"github.com/roach88/eventprog/internal/store"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Signers  []string
	Sender   string
	Data     uint8
	Title    string
	Database string
}

// InvokeResult is the outcome of one invoke.
type InvokeResult struct {
	TxID   string         `json:"tx_id,omitempty"`
	Slot   int64          `json:"slot"`
	State  string         `json:"state"`
	Error  string         `json:"error,omitempty"`
	Logs   []string       `json:"logs"`
	Events []DecodedEvent `json:"events"`
	Batch  string         `json:"batch,omitempty"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Sign and execute send_event against a local runtime",
		Long: `Build a send_event transaction, sign it with keys derived from labels,
and execute it against an in-process runtime hosting the hello program.

The sender account is listed as a signer; the runtime decides whether the
claim holds. Signing with a different label than --sender demonstrates the
MISSING_SIGNATURE abort.

With --db (or "database" in the config file) the receipt is indexed and the
slot clock resumes after the last stored transaction.

Examples:
  eventprog invoke --data 42 --title hello
  eventprog invoke --signer bob --sender alice --title forged
  eventprog invoke --db ./events.db --data 7 --title indexed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeSendEvent(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Signers, "signer", []string{"alice"}, "key label to sign with (repeatable)")
	cmd.Flags().StringVar(&opts.Sender, "sender", "", "key label of the sender account (default: first signer)")
	cmd.Flags().Uint8Var(&opts.Data, "data", 0, "event data byte")
	cmd.Flags().StringVar(&opts.Title, "title", "", "event title")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to index into")

	return cmd
}

func invokeSendEvent(opts *InvokeOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.Config
	programID := cfg.Pubkey()

	sender := opts.Sender
	if sender == "" && len(opts.Signers) > 0 {
		sender = opts.Signers[0]
	}
	if sender == "" {
		return NewExitError(ExitCommandError, "--sender or --signer is required")
	}

	var (
		st     *store.Store
		rtOpts []runtime.Option
		dbPath = opts.database(opts.Database)
	)
	if dbPath != "" {
		var err error
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		last, err := st.LastSlot(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read last slot", err)
		}
		rtOpts = append(rtOpts, runtime.WithClock(runtime.NewClockAt(last)))
	}

	prog, err := hello.New(programID, cfg.ProgramOptions()...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build program", err)
	}
	rt := runtime.New(rtOpts...)
	if err := rt.Register(prog); err != nil {
		return WrapExitError(ExitCommandError, "failed to register program", err)
	}

	ix, err := hello.NewSendEventInstruction(programID, runtime.PubkeyOf(runtime.DeriveKey(sender)), opts.Data, opts.Title)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build instruction", err)
	}
	tx := runtime.NewTransaction(ix)
	tx.RecentSlot = rt.Clock().Current()
	for _, label := range opts.Signers {
		if err := tx.Sign(runtime.DeriveKey(label)); err != nil {
			return WrapExitError(ExitCommandError, "failed to sign", err)
		}
	}
	formatter.VerboseLog("Executing send_event from %s signed by %v", sender, opts.Signers)

	rcpt, execErr := rt.Execute(ctx, tx)
	if rcpt == nil {
		_ = formatter.Fail(executionError(nil, execErr))
		return WrapExitError(ExitFailure, "transaction rejected", execErr)
	}

	parser := logparse.New(programID, hello.NewRegistry())
	parser.Marker = cfg.Marker

	result := InvokeResult{
		TxID:  rcpt.TxID,
		Slot:  rcpt.Slot,
		State: rcpt.State.String(),
		Error: runtime.Code(execErr),
		Logs:  rcpt.Logs,
	}
	if result.Logs == nil {
		result.Logs = []string{}
	}

	observed, err := parser.Parse(rcpt.Logs)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to decode logs", err)
	}
	result.Events = decodedEvents(observed)

	if st != nil {
		ixr, err := indexer.New(ctx, st, parser)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start indexer", err)
		}
		batch, err := ixr.Index(ctx, rcpt)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to index receipt", err)
		}
		result.Batch = batch.ID
	}

	var cliErr *CLIError
	if execErr != nil {
		cliErr = executionError(rcpt, execErr)
	}
	if err := outputInvokeResult(formatter, result, cliErr); err != nil {
		return err
	}
	if execErr != nil {
		return WrapExitError(ExitFailure, "transaction aborted", execErr)
	}
	return nil
}

func outputInvokeResult(formatter *OutputFormatter, result InvokeResult, cliErr *CLIError) error {
	if formatter.Format == "json" {
		status := "ok"
		if cliErr != nil {
			status = "error"
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: status, Data: result, Error: cliErr})
	}

	w := formatter.Writer
	for _, line := range result.Logs {
		fmt.Fprintln(w, line)
	}
	if result.Error != "" {
		fmt.Fprintf(w, "✗ aborted at slot %d: %s\n", result.Slot, result.Error)
		return nil
	}
	fmt.Fprintf(w, "✓ committed at slot %d (%d event(s))\n", result.Slot, len(result.Events))
	fmt.Fprintf(w, "  tx: %s\n", result.TxID)
	if result.Batch != "" {
		fmt.Fprintf(w, "  indexed as batch %s\n", result.Batch)
	}
	return nil
}
