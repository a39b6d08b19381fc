package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/runtime"
	"github.com/roach88/eventprog/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	TxID     string // optional - filter to one transaction
	Name     string // optional - filter to one event type
	FromSlot int64
	ToSlot   int64
	Limit    int
}

// TraceTransaction is one stored transaction in the timeline.
type TraceTransaction struct {
	ID    string `json:"id"`
	Slot  int64  `json:"slot"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
	Batch string `json:"batch,omitempty"`
	Lines int    `json:"lines"`
}

// TraceEvent represents a single indexed event in the trace timeline.
type TraceEvent struct {
	Seq           int64          `json:"seq"`
	ID            string         `json:"id"`
	Slot          int64          `json:"slot"`
	Line          int            `json:"line"`
	TxID          string         `json:"tx_id"`
	ProgramID     string         `json:"program_id"`
	Name          string         `json:"name"`
	Discriminator string         `json:"discriminator"`
	Fields        map[string]any `json:"fields,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Transactions []TraceTransaction `json:"transactions"`
	Timeline     []TraceEvent       `json:"timeline"`
	Stats        TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Transactions int            `json:"transactions"`
	Committed    int            `json:"committed"`
	Aborted      int            `json:"aborted"`
	Events       int            `json:"events"`
	ByName       map[string]int `json:"by_name"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show indexed transactions and events",
		Long: `Show the transactions and events recorded in an index database.

The output includes:
- Transactions: every stored transaction in slot order
- Timeline: indexed events in sequence order, optionally filtered
- Stats: summary counts per state and per event type

Examples:
  eventprog trace --db ./events.db
  eventprog trace --db ./events.db --name HelloEvent --from-slot 2
  eventprog trace --db ./events.db --tx <tx-id> --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config database)")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "filter to one transaction ID")
	cmd.Flags().StringVar(&opts.Name, "name", "", "filter to one event type")
	cmd.Flags().Int64Var(&opts.FromSlot, "from-slot", 0, "first slot to include")
	cmd.Flags().Int64Var(&opts.ToSlot, "to-slot", 0, "last slot to include (0 is unbounded)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 is unlimited)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.ToSlot != 0 && opts.ToSlot < opts.FromSlot {
		return NewExitError(ExitCommandError, "--to-slot must not be before --from-slot")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := buildTrace(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func buildTrace(ctx context.Context, st *store.Store, opts *TraceOptions) (TraceResult, error) {
	result := TraceResult{
		Transactions: []TraceTransaction{},
		Timeline:     []TraceEvent{},
		Stats:        TraceStats{ByName: map[string]int{}},
	}

	txs, err := st.ListTransactions(ctx)
	if err != nil {
		return result, err
	}
	for _, tx := range txs {
		if !inTraceScope(opts, tx) {
			continue
		}
		result.Transactions = append(result.Transactions, TraceTransaction{
			ID:    tx.ID,
			Slot:  tx.Slot,
			State: tx.State,
			Error: tx.Error,
			Batch: tx.Batch,
			Lines: len(tx.Logs),
		})
		switch tx.State {
		case runtime.StateCommitted.String():
			result.Stats.Committed++
		case runtime.StateAborted.String():
			result.Stats.Aborted++
		}
	}
	result.Stats.Transactions = len(result.Transactions)

	events, err := st.ListEvents(ctx, store.EventFilter{
		Name:     opts.Name,
		TxID:     opts.TxID,
		FromSlot: opts.FromSlot,
		ToSlot:   opts.ToSlot,
		Limit:    opts.Limit,
	})
	if err != nil {
		return result, err
	}
	for _, ev := range events {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:           ev.Seq,
			ID:            ev.ID,
			Slot:          ev.Slot,
			Line:          ev.Line,
			TxID:          ev.TxID,
			ProgramID:     ev.ProgramID.String(),
			Name:          ev.Name,
			Discriminator: ev.Discriminator.String(),
			Fields:        irObjectToMap(ev.Fields),
		})
		result.Stats.ByName[ev.Name]++
	}
	result.Stats.Events = len(result.Timeline)

	return result, nil
}

// inTraceScope applies the transaction and slot filters to a transaction.
func inTraceScope(opts *TraceOptions, tx store.Transaction) bool {
	if opts.TxID != "" && tx.ID != opts.TxID {
		return false
	}
	if tx.Slot < opts.FromSlot {
		return false
	}
	return opts.ToSlot == 0 || tx.Slot <= opts.ToSlot
}

// irObjectToMap converts an ir.IRObject to a plain map.
func irObjectToMap(obj ir.IRObject) map[string]any {
	if obj == nil {
		return nil
	}

	result := make(map[string]any, len(obj))
	for k, v := range obj {
		result[k] = irValueToAny(v)
	}
	return result
}

func irValueToAny(v ir.IRValue) any {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	case ir.IRArray:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = irValueToAny(elem)
		}
		return result
	case ir.IRObject:
		return irObjectToMap(val)
	default:
		return nil
	}
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: result})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "=== Transactions ===")
	if len(result.Transactions) == 0 {
		fmt.Fprintln(w, "  (no transactions)")
	}
	for _, tx := range result.Transactions {
		fmt.Fprintf(w, "  [slot %d] %s %s\n", tx.Slot, strings.ToUpper(tx.State), truncateID(tx.ID))
		if tx.Error != "" {
			fmt.Fprintf(w, "       Error: %s\n", tx.Error)
		}
		if verbose {
			fmt.Fprintf(w, "       Batch: %s, %d log line(s)\n", tx.Batch, tx.Lines)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Transactions: %d (%d committed, %d aborted)\n",
		result.Stats.Transactions, result.Stats.Committed, result.Stats.Aborted)
	fmt.Fprintf(w, "  Events:       %d\n", result.Stats.Events)
	names := make([]string, 0, len(result.Stats.ByName))
	for name := range result.Stats.ByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %s: %d\n", name, result.Stats.ByName[name])
	}

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	fmt.Fprintf(w, "  [%d] slot %d %s %s\n", event.Seq, event.Slot, event.Name, formatArgs(event.Fields))
	if verbose {
		fmt.Fprintf(w, "       ID: %s tx: %s line %d\n", truncateID(event.ID), truncateID(event.TxID), event.Line)
	}
}

// formatArgs formats a map of fields for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
