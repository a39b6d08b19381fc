package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/eventprog/internal/ir"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

const eventColumns = `id, seq, slot, line, tx_id, program_id, event_name, discriminator, payload, fields, batch`

// ReadTransaction returns the transaction with the given ID.
func (s *Store) ReadTransaction(ctx context.Context, id string) (Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slot, state, error, logs, batch
		FROM transactions
		WHERE id = ?
	`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}
	return tx, err
}

// ListTransactions returns every transaction ordered by slot.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slot, state, error, logs, batch
		FROM transactions
		ORDER BY slot ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// ReadEvent returns the event with the given ID.
func (s *Store) ReadEvent(ctx context.Context, id string) (Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return ev, err
}

// ListEvents returns events matching f.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	where, args := f.clauses()
	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY seq ASC, id COLLATE BINARY ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CountEvents returns the number of events matching f. Limit is ignored.
func (s *Store) CountEvents(ctx context.Context, f EventFilter) (int, error) {
	where, args := f.clauses()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (f EventFilter) clauses() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ProgramID != nil {
		conds = append(conds, "program_id = ?")
		args = append(args, f.ProgramID.String())
	}
	if f.Name != "" {
		conds = append(conds, "event_name = ?")
		args = append(args, f.Name)
	}
	if f.TxID != "" {
		conds = append(conds, "tx_id = ?")
		args = append(args, f.TxID)
	}
	if f.FromSlot > 0 {
		conds = append(conds, "slot >= ?")
		args = append(args, f.FromSlot)
	}
	if f.ToSlot > 0 {
		conds = append(conds, "slot <= ?")
		args = append(args, f.ToSlot)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var (
		tx   Transaction
		logs string
	)
	if err := row.Scan(&tx.ID, &tx.Slot, &tx.State, &tx.Error, &logs, &tx.Batch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, err
		}
		return Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	lines, err := unmarshalLines(logs)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Logs = lines
	return tx, nil
}

func scanEvent(row scanner) (Event, error) {
	var (
		ev            Event
		programID     string
		discriminator string
		fields        string
	)
	err := row.Scan(
		&ev.ID,
		&ev.Seq,
		&ev.Slot,
		&ev.Line,
		&ev.TxID,
		&programID,
		&ev.Name,
		&discriminator,
		&ev.Payload,
		&fields,
		&ev.Batch,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("scan event: %w", err)
	}

	if ev.ProgramID, err = ir.ParsePubkey(programID); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	if ev.Discriminator, err = ir.ParseDiscriminator(discriminator); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	if ev.Fields, err = unmarshalFields(fields); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	return ev, nil
}
