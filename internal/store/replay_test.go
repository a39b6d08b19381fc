package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastSeqAndSlot_Empty(t *testing.T) {
	s := createTestStore(t)

	seq, err := s.LastSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	slot, err := s.LastSlot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), slot)
}

func TestLastSeqAndSlot(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)

	seq, err := s.LastSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(6), seq)

	slot, err := s.LastSlot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), slot)
}

func TestReplayTransaction(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)

	tx, events, err := s.ReplayTransaction(t.Context(), "tx2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tx.Slot)
	assert.Equal(t, []string{"e03", "e04"}, eventIDs(events))

	_, _, err = s.ReplayTransaction(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
