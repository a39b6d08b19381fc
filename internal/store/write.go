package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrConflict is returned when a record ID is already stored with a
// different slot or transaction.
var ErrConflict = errors.New("store: conflicting record")

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteTransaction inserts a transaction record.
// Rewriting an ID at the slot it already has is a no-op. The same ID at
// another slot, or another ID at a taken slot, fails with ErrConflict.
func (s *Store) WriteTransaction(ctx context.Context, tx Transaction) error {
	if err := writeTransaction(ctx, s.db, tx); err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	return nil
}

// WriteEvent inserts an event record. The referenced transaction must exist
// (foreign key constraint). Rewriting an ID for the same transaction is a
// no-op; the same ID under another transaction fails with ErrConflict.
func (s *Store) WriteEvent(ctx context.Context, ev Event) error {
	if err := writeEvent(ctx, s.db, ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteReceipt inserts a transaction and its events in one database
// transaction. Either every row is written or none is.
func (s *Store) WriteReceipt(ctx context.Context, tx Transaction, events []Event) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write receipt: begin tx: %w", err)
	}
	defer dbtx.Rollback()

	if err := writeTransaction(ctx, dbtx, tx); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	for _, ev := range events {
		if err := writeEvent(ctx, dbtx, ev); err != nil {
			return fmt.Errorf("write receipt: event %s: %w", ev.ID, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("write receipt: commit: %w", err)
	}
	return nil
}

func writeTransaction(ctx context.Context, db execer, tx Transaction) error {
	logs, err := marshalLines(tx.Logs)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, slot, state, error, logs, batch)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		tx.ID,
		tx.Slot,
		tx.State,
		tx.Error,
		logs,
		tx.Batch,
	)
	if err != nil {
		return err
	}
	if inserted, err := affected(res); err != nil || inserted {
		return err
	}

	var slot int64
	err = db.QueryRowContext(ctx, `SELECT slot FROM transactions WHERE id = ?`, tx.ID).Scan(&slot)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: slot %d is already taken by another transaction", ErrConflict, tx.Slot)
	}
	if err != nil {
		return fmt.Errorf("check existing transaction %s: %w", tx.ID, err)
	}
	if slot != tx.Slot {
		return fmt.Errorf("%w: transaction %s is stored at slot %d, not %d", ErrConflict, tx.ID, slot, tx.Slot)
	}
	return nil
}

func writeEvent(ctx context.Context, db execer, ev Event) error {
	fields, err := marshalFields(ev.Fields)
	if err != nil {
		return err
	}
	payload := ev.Payload
	if payload == nil {
		payload = []byte{}
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO events
		(id, seq, slot, line, tx_id, program_id, event_name, discriminator, payload, fields, batch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Seq,
		ev.Slot,
		ev.Line,
		ev.TxID,
		ev.ProgramID.String(),
		ev.Name,
		ev.Discriminator.String(),
		payload,
		fields,
		ev.Batch,
	)
	if err != nil {
		return err
	}
	if inserted, err := affected(res); err != nil || inserted {
		return err
	}

	var txID string
	if err := db.QueryRowContext(ctx, `SELECT tx_id FROM events WHERE id = ?`, ev.ID).Scan(&txID); err != nil {
		return fmt.Errorf("check existing event %s: %w", ev.ID, err)
	}
	if txID != ev.TxID {
		return fmt.Errorf("%w: event %s belongs to transaction %s, not %s", ErrConflict, ev.ID, txID, ev.TxID)
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
