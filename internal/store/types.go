package store

import "github.com/roach88/eventprog/internal/ir"

// Transaction is one indexed receipt.
type Transaction struct {
	ID    string
	Slot  int64
	State string

	// Error is the abort cause, empty for committed transactions.
	Error string

	// Logs are the committed log lines in append order.
	Logs []string

	Batch string
}

// Event is one decoded event line.
type Event struct {
	// ID is ir.RecordID(ProgramID, Slot, Line, Payload).
	ID   string
	Seq  int64
	Slot int64

	// Line is the index of the event line within the transaction's logs.
	Line int

	TxID          string
	ProgramID     ir.Pubkey
	Name          string
	Discriminator ir.Discriminator
	Payload       []byte
	Fields        ir.IRObject
	Batch         string
}

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	ProgramID *ir.Pubkey
	Name      string
	TxID      string

	// FromSlot and ToSlot bound the slot range, inclusive. ToSlot 0 is unbounded.
	FromSlot int64
	ToSlot   int64

	// Limit caps the number of rows. 0 is unlimited.
	Limit int
}
