package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/ir"
)

func TestWriteTransaction_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	tx := createTestTransaction("tx1", 1)
	require.NoError(t, s.WriteTransaction(ctx, tx))

	changed := tx
	changed.State = "aborted"
	require.NoError(t, s.WriteTransaction(ctx, changed), "duplicate id is ignored, not an error")

	got, err := s.ReadTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, "committed", got.State, "first write wins")
}

func TestWriteTransaction_SameIDOtherSlotConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteTransaction(ctx, createTestTransaction("tx1", 1)))
	err := s.WriteTransaction(ctx, createTestTransaction("tx1", 2))
	assert.ErrorIs(t, err, ErrConflict)

	last, err := s.LastSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)
}

func TestWriteTransaction_TakenSlotConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteTransaction(ctx, createTestTransaction("tx1", 1)))
	err := s.WriteTransaction(ctx, createTestTransaction("tx2", 1))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.ReadTransaction(ctx, "tx2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteEvent_SameIDOtherTransactionConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteTransaction(ctx, createTestTransaction("tx1", 1)))
	require.NoError(t, s.WriteTransaction(ctx, createTestTransaction("tx2", 2)))
	require.NoError(t, s.WriteEvent(ctx, createTestEvent("e1", "tx1", 1, 1)))

	err := s.WriteEvent(ctx, createTestEvent("e1", "tx2", 2, 2))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestWriteReceipt_ConflictWritesNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteReceipt(ctx, createTestTransaction("tx1", 1), []Event{createTestEvent("e1", "tx1", 1, 1)}))
	err := s.WriteReceipt(ctx, createTestTransaction("tx1", 2), []Event{createTestEvent("e2", "tx1", 2, 2)})
	assert.ErrorIs(t, err, ErrConflict)

	n, err := s.CountEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteEvent_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteTransaction(ctx, createTestTransaction("tx1", 7)))
	ev := createTestEvent("e1", "tx1", 1, 7)
	ev.Line = 2
	ev.Fields = ir.IRObject{
		"big":   ir.IRInt(1 << 60),
		"title": ir.IRString("héllo"),
		"ok":    ir.IRBool(true),
	}
	require.NoError(t, s.WriteEvent(ctx, ev))

	got, err := s.ReadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestWriteEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteTransaction(ctx, createTestTransaction("tx1", 1)))
	ev := createTestEvent("e1", "tx1", 1, 1)
	require.NoError(t, s.WriteEvent(ctx, ev))
	require.NoError(t, s.WriteEvent(ctx, ev))

	n, err := s.CountEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteReceipt_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	tx := createTestTransaction("tx1", 1)
	good := createTestEvent("e1", "tx1", 1, 1)
	bad := createTestEvent("e2", "other-tx", 2, 1) // violates the foreign key

	require.Error(t, s.WriteReceipt(ctx, tx, []Event{good, bad}))

	_, err := s.ReadTransaction(ctx, "tx1")
	assert.ErrorIs(t, err, ErrNotFound, "failed receipt must leave no transaction row")
	n, err := s.CountEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.WriteReceipt(ctx, tx, []Event{good}))
	n, err = s.CountEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteTransaction_EmptyLogs(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	tx := Transaction{ID: "tx1", Slot: 1, State: "aborted", Error: "MISSING_SIGNATURE: no signer", Batch: "b"}
	require.NoError(t, s.WriteTransaction(ctx, tx))

	got, err := s.ReadTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Logs)
	assert.Equal(t, tx.Error, got.Error)
}
