package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
)

var testProgram = ir.Pubkey{0x42}

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTransaction creates a committed transaction at slot.
func createTestTransaction(id string, slot int64) Transaction {
	return Transaction{
		ID:    id,
		Slot:  slot,
		State: "committed",
		Logs:  []string{"Program log: test"},
		Batch: "batch-1",
	}
}

// createTestEvent creates an event with minimal required fields.
func createTestEvent(id, txID string, seq, slot int64) Event {
	return Event{
		ID:            id,
		Seq:           seq,
		Slot:          slot,
		TxID:          txID,
		ProgramID:     testProgram,
		Name:          "Ping",
		Discriminator: codec.DiscriminatorFor("Ping"),
		Payload:       []byte{1, 2, 3},
		Fields:        ir.IRObject{"n": ir.IRInt(seq)},
		Batch:         "batch-1",
	}
}
