package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/logparse"
	"github.com/roach88/eventprog/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	TxID     string // optional - specific transaction only
	IDL      string
}

// ReplayTxResult holds the replay result for a single transaction.
type ReplayTxResult struct {
	TxID          string   `json:"tx_id"`
	Slot          int64    `json:"slot"`
	State         string   `json:"state"`
	Events        int      `json:"events"`
	Deterministic bool     `json:"deterministic"`
	Differences   []string `json:"differences,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Transactions     []ReplayTxResult `json:"transactions"`
	TotalTxs         int              `json:"total_transactions"`
	AllDeterministic bool             `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-decode stored logs and verify indexed events",
		Long: `Re-decode the stored log lines of every transaction and verify that
the indexed events match: same count, same content-addressed IDs, same
names and same canonical fields.

Exit codes:
  0 - Every transaction replays to its stored events
  1 - Differences detected
  2 - Command error (database not found, etc.)

Examples:
  eventprog replay --db ./events.db
  eventprog replay --db ./events.db --tx <tx-id>
  eventprog replay --db ./events.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config database)")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "replay specific transaction only")
	cmd.Flags().StringVar(&opts.IDL, "idl", "", "path to a CUE program IDL")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	reg, err := resolveRegistry(opts.RootOptions, opts.IDL)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	parser := logparse.New(opts.Config.Pubkey(), reg)
	parser.Marker = opts.Config.Marker

	var txs []store.Transaction
	if opts.TxID != "" {
		tx, err := st.ReadTransaction(ctx, opts.TxID)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("transaction not found: %s", opts.TxID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read transaction", err)
		}
		txs = append(txs, tx)
	} else {
		if txs, err = st.ListTransactions(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to list transactions", err)
		}
	}

	result := ReplayResult{
		Transactions:     make([]ReplayTxResult, 0, len(txs)),
		TotalTxs:         len(txs),
		AllDeterministic: true,
	}
	for _, tx := range txs {
		r, err := replayTransaction(ctx, st, parser, tx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay transaction", err)
		}
		formatter.VerboseLog("Replayed %s: %d event(s)", tx.ID, r.Events)
		if !r.Deterministic {
			result.AllDeterministic = false
		}
		result.Transactions = append(result.Transactions, r)
	}

	return outputReplayResult(formatter, result)
}

// replayTransaction re-parses the stored lines and diffs them against the
// stored events.
func replayTransaction(ctx context.Context, st *store.Store, parser *logparse.Parser, tx store.Transaction) (ReplayTxResult, error) {
	_, stored, err := st.ReplayTransaction(ctx, tx.ID)
	if err != nil {
		return ReplayTxResult{}, err
	}

	r := ReplayTxResult{
		TxID:   tx.ID,
		Slot:   tx.Slot,
		State:  tx.State,
		Events: len(stored),
	}

	observed, err := parser.Parse(tx.Logs)
	if err != nil {
		r.Differences = append(r.Differences, fmt.Sprintf("decode: %v", err))
		return r, nil
	}
	if len(observed) != len(stored) {
		r.Differences = append(r.Differences, fmt.Sprintf("event count: logs decode to %d, store has %d", len(observed), len(stored)))
		return r, nil
	}

	for i, obs := range observed {
		ev := stored[i]
		id, err := ir.RecordID(obs.ProgramID, tx.Slot, obs.Line, obs.Payload)
		if err != nil {
			return ReplayTxResult{}, err
		}
		if id != ev.ID {
			r.Differences = append(r.Differences, fmt.Sprintf("event %d: id %s, stored %s", i, id, ev.ID))
		}
		if obs.Name != ev.Name {
			r.Differences = append(r.Differences, fmt.Sprintf("event %d: name %s, stored %s", i, obs.Name, ev.Name))
		}
		want, err := ir.MarshalCanonical(eventFields(obs.Event))
		if err != nil {
			return ReplayTxResult{}, err
		}
		got, err := ir.MarshalCanonical(ev.Fields)
		if err != nil {
			return ReplayTxResult{}, err
		}
		if !bytes.Equal(want, got) {
			r.Differences = append(r.Differences, fmt.Sprintf("event %d: fields %s, stored %s", i, want, got))
		}
	}

	r.Deterministic = len(r.Differences) == 0
	return r, nil
}

func outputReplayResult(formatter *OutputFormatter, result ReplayResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.AllDeterministic {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeMismatch, Message: "replay differs from stored events"}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, tx := range result.Transactions {
			mark := "✓"
			if !tx.Deterministic {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s slot %d %s %s: %d event(s)\n", mark, tx.Slot, tx.State, tx.TxID, tx.Events)
			for _, d := range tx.Differences {
				fmt.Fprintf(w, "  %s\n", d)
			}
		}
		fmt.Fprintf(w, "\nReplayed %d transaction(s)\n", result.TotalTxs)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay differs from stored events")
	}
	return nil
}
