package harness

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/idl"
	"github.com/roach88/eventprog/internal/indexer"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/logparse"
	"github.com/roach88/eventprog/internal/program"
	"github.com/roach88/eventprog/internal/runtime"
	"github.com/roach88/eventprog/internal/store"
)

// Harness is the test execution engine for one scenario run.
type Harness struct {
	store   *store.Store
	runtime *runtime.Runtime
	indexer *indexer.Indexer
	idl     *idl.IDL
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the IDL (built-in hello IDL when none is given)
// 2. Register the hello program under the IDL's program ID
// 3. Execute each step as one signed transaction and index its receipt
// 4. Check expect clauses and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	d, err := loadIDL(scenario.IDL)
	if err != nil {
		return nil, err
	}
	reg, err := d.Registry()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var opts []program.Option
	if scenario.MaxStringLen > 0 {
		opts = append(opts, program.WithStringLimit(scenario.MaxStringLen))
	}
	prog, err := hello.New(d.ProgramID, opts...)
	if err != nil {
		return nil, err
	}
	rt := runtime.New()
	if err := rt.Register(prog); err != nil {
		return nil, err
	}

	batches := make([]string, len(scenario.Steps))
	for i := range batches {
		batches[i] = fmt.Sprintf("batch-%d", i+1)
	}
	ix, err := indexer.New(ctx, st, logparse.New(d.ProgramID, reg), indexer.WithBatchGenerator(indexer.NewFixedGenerator(batches...)))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		runtime: rt,
		indexer: ix,
		idl:     d,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute steps[%d]: %w", i, err)
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func loadIDL(path string) (*idl.IDL, error) {
	if path == "" {
		return idl.LoadBytes("hello.cue", hello.IDL)
	}
	return idl.LoadFile(path)
}

// executeStep runs one transaction and records its trace entries.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	tx, err := h.buildTransaction(step)
	if err != nil {
		return err
	}

	rcpt, execErr := h.runtime.Execute(ctx, tx)
	code := runtime.Code(execErr)

	var (
		state  = StateRejected
		events int
	)
	if rcpt == nil {
		h.logger.Debug("transaction rejected", "step", index, "err", execErr)
		result.AddTransactionTrace(index, 0, state, code, nil)
	} else {
		batch, err := h.indexer.Index(ctx, rcpt)
		if err != nil {
			return err
		}
		state = rcpt.State.String()
		result.AddTransactionTrace(index, rcpt.Slot, state, code, rcpt.Logs)
		for _, ev := range batch.Events {
			result.AddEventTrace(index, ev.Slot, ev.Seq, ev.Name, ev.Fields)
		}
		events = len(batch.Events)
	}

	checkExpect(index, step.Expect, state, code, events, result)
	return nil
}

// checkExpect validates the step outcome. A step without an expect clause
// must commit.
func checkExpect(index int, expect *ExpectClause, state, code string, events int, result *Result) {
	want := ExpectClause{State: StateCommitted}
	if expect != nil {
		want = *expect
	}
	if state != want.State {
		result.AddError(fmt.Sprintf("steps[%d]: expected state %s, got %s (error %q)", index, want.State, state, code))
		return
	}
	if want.Error != "" && code != want.Error {
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %q", index, want.Error, code))
	}
	if want.Events != nil && events != *want.Events {
		result.AddError(fmt.Sprintf("steps[%d]: expected %d events, got %d", index, *want.Events, events))
	}
}

// buildTransaction encodes and signs the step's instructions.
func (h *Harness) buildTransaction(step Step) (*runtime.Transaction, error) {
	tx := runtime.NewTransaction()
	tx.RecentSlot = h.runtime.Clock().Current()
	for j, is := range step.Instructions {
		ixn, err := h.buildInstruction(is)
		if err != nil {
			return nil, fmt.Errorf("instructions[%d]: %w", j, err)
		}
		tx.Instructions = append(tx.Instructions, ixn)
	}

	for _, label := range step.Signers {
		if err := tx.Sign(runtime.DeriveKey(label)); err != nil {
			return nil, err
		}
	}
	if step.Tamper && len(tx.Signatures) > 0 {
		tx.Signatures[0].Sig[0] ^= 0xFF
	}
	return tx, nil
}

func (h *Harness) buildInstruction(is InstructionStep) (ir.Instruction, error) {
	def, ok := h.idl.Instruction(is.Invoke)
	if !ok {
		return ir.Instruction{}, fmt.Errorf("instruction %q is not in the IDL", is.Invoke)
	}

	var data []byte
	if is.Data != "" {
		b, err := hex.DecodeString(is.Data)
		if err != nil {
			return ir.Instruction{}, fmt.Errorf("data: %w", err)
		}
		data = b
	} else {
		args, err := convertArgsToIRObject(is.Args)
		if err != nil {
			return ir.Instruction{}, err
		}
		if data, err = h.idl.EncodeInstruction(def.Name, args); err != nil {
			return ir.Instruction{}, err
		}
	}

	accounts := make([]ir.AccountMeta, 0, len(def.Accounts))
	for _, a := range def.Accounts {
		label, ok := is.Accounts[a.Name]
		if !ok {
			return ir.Instruction{}, fmt.Errorf("account %q is not mapped to a key", a.Name)
		}
		accounts = append(accounts, ir.AccountMeta{
			Pubkey:     runtime.PubkeyOf(runtime.DeriveKey(label)),
			IsSigner:   a.Signer,
			IsWritable: a.Writable,
		})
	}
	for name := range is.Accounts {
		if !slices.ContainsFunc(def.Accounts, func(a idl.Account) bool { return a.Name == name }) {
			return ir.Instruction{}, fmt.Errorf("account %q is not declared by %s", name, def.Name)
		}
	}

	return ir.Instruction{ProgramID: h.idl.ProgramID, Accounts: accounts, Data: data}, nil
}

// convertArgsToIRObject converts YAML arguments to an IRObject.
func convertArgsToIRObject(args map[string]any) (ir.IRObject, error) {
	obj := make(ir.IRObject, len(args))
	for k, v := range args {
		irVal, err := ir.ToIRValue(v)
		if err != nil {
			return nil, fmt.Errorf("arg %q: %w", k, err)
		}
		obj[k] = irVal
	}
	return obj, nil
}
