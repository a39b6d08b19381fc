package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/logparse"
	"github.com/roach88/eventprog/internal/runtime"
	"github.com/roach88/eventprog/internal/store"
)

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchGenerator overrides the default UUIDv7 batch IDs.
func WithBatchGenerator(g BatchIDGenerator) Option {
	return func(ix *Indexer) {
		ix.batches = g
	}
}

// Indexer writes receipts to a store.
// Not safe for concurrent use.
type Indexer struct {
	store   *store.Store
	parser  *logparse.Parser
	batches BatchIDGenerator
	seq     *runtime.Clock
}

// New creates an Indexer whose seq clock resumes after the store's last event.
func New(ctx context.Context, st *store.Store, parser *logparse.Parser, opts ...Option) (*Indexer, error) {
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: %w", err)
	}
	ix := &Indexer{
		store:   st,
		parser:  parser,
		batches: UUIDv7Generator{},
		seq:     runtime.NewClockAt(last),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Batch is the result of indexing one receipt.
type Batch struct {
	ID          string
	Transaction store.Transaction
	Events      []store.Event
}

// Index parses rcpt and writes it atomically. Aborted receipts are stored
// with their error and no events.
func (ix *Indexer) Index(ctx context.Context, rcpt *runtime.Receipt) (Batch, error) {
	observed, err := ix.parser.Parse(rcpt.Logs)
	if err != nil {
		return Batch{}, fmt.Errorf("indexer: slot %d: %w", rcpt.Slot, err)
	}

	b := Batch{ID: ix.batches.Generate()}
	b.Transaction = store.Transaction{
		ID:    transactionID(rcpt),
		Slot:  rcpt.Slot,
		State: rcpt.State.String(),
		Logs:  rcpt.Logs,
		Batch: b.ID,
	}
	if rcpt.Err != nil {
		b.Transaction.Error = rcpt.Err.Error()
	}

	for _, obs := range observed {
		id, err := ir.RecordID(obs.ProgramID, rcpt.Slot, obs.Line, obs.Payload)
		if err != nil {
			return Batch{}, fmt.Errorf("indexer: %w", err)
		}
		b.Events = append(b.Events, store.Event{
			ID:            id,
			Seq:           ix.seq.Next(),
			Slot:          rcpt.Slot,
			Line:          obs.Line,
			TxID:          b.Transaction.ID,
			ProgramID:     obs.ProgramID,
			Name:          obs.Name,
			Discriminator: obs.Discriminator,
			Payload:       obs.Payload,
			Fields:        fieldsOf(obs.Event),
			Batch:         b.ID,
		})
	}

	if err := ix.store.WriteReceipt(ctx, b.Transaction, b.Events); err != nil {
		return Batch{}, fmt.Errorf("indexer: %w", err)
	}
	slog.Debug("indexed receipt", "batch", b.ID, "slot", rcpt.Slot, "state", b.Transaction.State, "events", len(b.Events))
	return b, nil
}

// transactionID falls back to a slot-derived ID for unsigned transactions,
// which have no first signature.
func transactionID(rcpt *runtime.Receipt) string {
	if rcpt.TxID != "" {
		return rcpt.TxID
	}
	return fmt.Sprintf("unsigned-slot-%d", rcpt.Slot)
}

func fieldsOf(ev codec.Event) ir.IRObject {
	if f, ok := ev.(codec.Fielder); ok {
		return f.IRFields()
	}
	return ir.IRObject{}
}
