package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mr-tron/base58"

	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
)

// State is the lifecycle position of a transaction.
type State int

const (
	StateValidating State = iota
	StateExecuting
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateExecuting:
		return "executing"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Processor is a program the runtime can route instructions to.
// *program.Program implements it.
type Processor interface {
	ID() ir.Pubkey
	Dispatch(logs program.LogChannel, accounts []ir.AccountMeta, data []byte) error
}

// Receipt is the outcome of one executed transaction.
type Receipt struct {
	// TxID is the base58 first signature.
	TxID string

	// Slot is the logical clock value assigned to this transaction.
	Slot int64

	// State is StateCommitted or StateAborted.
	State State

	// Logs holds committed lines in append order. Empty when aborted.
	Logs []string

	// Err is the abort cause, nil when committed.
	Err error

	// FailedInstruction is the index of the instruction that aborted, or -1.
	FailedInstruction int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the slot clock (e.g. resumed from a store).
func WithClock(c *Clock) Option {
	return func(rt *Runtime) {
		rt.clock = c
	}
}

// Runtime routes transactions to registered programs.
//
// Execute calls are serialized by the caller. The only state kept between
// calls is the slot clock and the set of executed transaction IDs.
type Runtime struct {
	programs  map[ir.Pubkey]Processor
	clock     *Clock
	processed map[string]struct{}
}

// New creates a Runtime with no programs.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		programs:  make(map[ir.Pubkey]Processor),
		clock:     NewClock(),
		processed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Register makes p addressable by its ID.
func (rt *Runtime) Register(p Processor) error {
	if _, ok := rt.programs[p.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProgram, p.ID())
	}
	rt.programs[p.ID()] = p
	return nil
}

// Clock returns the slot clock.
func (rt *Runtime) Clock() *Clock {
	return rt.clock
}

// Execute verifies signatures, stamps a slot, and runs every instruction.
//
// A transaction whose signatures do not verify, whose RecentSlot is ahead of
// the clock, or whose ID was already executed is rejected before execution:
// the error is returned, the receipt is nil and no slot is consumed. Once execution starts the
// receipt is always returned; when an instruction fails the receipt is
// aborted, carries no logs, and the same error is also returned.
func (rt *Runtime) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if len(tx.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}
	verified, err := tx.verify(msg)
	if err != nil {
		return nil, err
	}
	if now := rt.clock.Current(); tx.RecentSlot > now {
		return nil, fmt.Errorf("%w: %d > %d", ErrFutureSlot, tx.RecentSlot, now)
	}
	if id := tx.ID(); id != "" {
		if _, ok := rt.processed[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
		}
		rt.processed[id] = struct{}{}
	}

	rcpt := &Receipt{
		TxID:              tx.ID(),
		Slot:              rt.clock.Next(),
		State:             StateExecuting,
		FailedInstruction: -1,
	}
	logs := &LogBuffer{}

	for i, ix := range tx.Instructions {
		if err := ctx.Err(); err != nil {
			return rt.abort(rcpt, i, fmt.Errorf("context cancelled: %w", err))
		}

		p, ok := rt.programs[ix.ProgramID]
		if !ok {
			return rt.abort(rcpt, i, fmt.Errorf("%w: %s", ErrProgramNotFound, ix.ProgramID))
		}

		logs.Append(program.FormatInvokeLine(p.ID(), 1))
		if err := p.Dispatch(logs, authenticate(ix.Accounts, verified), ix.Data); err != nil {
			return rt.abort(rcpt, i, fmt.Errorf("instruction %d: %w", i, err))
		}
		logs.Append(program.FormatSuccessLine(p.ID()))
	}

	rcpt.State = StateCommitted
	rcpt.Logs = logs.Lines()
	slog.Debug("transaction committed", "tx", rcpt.TxID, "slot", rcpt.Slot, "lines", len(rcpt.Logs))
	return rcpt, nil
}

func (rt *Runtime) abort(rcpt *Receipt, index int, err error) (*Receipt, error) {
	rcpt.State = StateAborted
	rcpt.Err = err
	rcpt.FailedInstruction = index
	rcpt.Logs = nil
	slog.Warn("transaction aborted", "tx", rcpt.TxID, "slot", rcpt.Slot, "instruction", index, "err", err)
	return rcpt, err
}

// authenticate copies accounts with IsSigner replaced by verification results.
func authenticate(accounts []ir.AccountMeta, verified map[ir.Pubkey]bool) []ir.AccountMeta {
	out := make([]ir.AccountMeta, len(accounts))
	for i, a := range accounts {
		out[i] = ir.AccountMeta{
			Pubkey:     a.Pubkey,
			IsSigner:   verified[a.Pubkey],
			IsWritable: a.IsWritable,
		}
	}
	return out
}

func base58Signature(sig []byte) string {
	return base58.Encode(sig)
}
