package store

import (
	"context"
	"fmt"
)

// LastSeq returns the highest event seq in the store, or 0 when empty.
// Used to resume the indexer's logical clock.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// LastSlot returns the highest transaction slot in the store, or 0 when empty.
// Used to resume the runtime's slot clock.
func (s *Store) LastSlot(ctx context.Context) (int64, error) {
	var slot int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(slot), 0) FROM transactions`).Scan(&slot); err != nil {
		return 0, fmt.Errorf("get last slot: %w", err)
	}
	return slot, nil
}

// ReplayTransaction returns a stored transaction with its events in line order.
func (s *Store) ReplayTransaction(ctx context.Context, id string) (Transaction, []Event, error) {
	tx, err := s.ReadTransaction(ctx, id)
	if err != nil {
		return Transaction{}, nil, err
	}
	events, err := s.ListEvents(ctx, EventFilter{TxID: id})
	if err != nil {
		return Transaction{}, nil, err
	}
	return tx, events, nil
}
