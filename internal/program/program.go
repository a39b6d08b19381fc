package program

import (
	"fmt"
	"log/slog"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
)

// AccountSpec declares one positional account an instruction expects.
type AccountSpec struct {
	Name     string
	Signer   bool
	Writable bool
}

// Instruction binds a name, its selector, and its account shape to a handler.
// Build with NewInstruction.
type Instruction struct {
	name     string
	selector ir.Discriminator
	accounts []AccountSpec
	run      func(c *Context, r *codec.Reader) error
}

// NewInstruction creates an instruction whose arguments decode into T.
// The selector is sha256("global:" + name)[:8].
func NewInstruction[T any, PT interface {
	*T
	UnmarshalArgs(r *codec.Reader)
}](name string, accounts []AccountSpec, handler func(c *Context, args T) error) Instruction {
	return Instruction{
		name:     name,
		selector: ir.InstructionSelector(name),
		accounts: append([]AccountSpec(nil), accounts...),
		run: func(c *Context, r *codec.Reader) error {
			var args T
			PT(&args).UnmarshalArgs(r)
			if err := r.Finish(); err != nil {
				return fromCodec(name, "decode arguments", err)
			}
			if err := handler(c, args); err != nil {
				if _, ok := CodeOf(err); ok {
					return err
				}
				return &Error{Code: ErrCodeHandlerFailed, Message: "handler returned error", Instruction: name, Err: err}
			}
			return nil
		},
	}
}

func (ix Instruction) Name() string               { return ix.name }
func (ix Instruction) Selector() ir.Discriminator { return ix.selector }

// Accounts returns a copy of the declared account specs.
func (ix Instruction) Accounts() []AccountSpec {
	return append([]AccountSpec(nil), ix.accounts...)
}

// Option configures a Program.
type Option func(*Program)

// WithMarker overrides DefaultMarker for event lines.
func WithMarker(marker string) Option {
	return func(p *Program) {
		p.marker = marker
	}
}

// WithStringLimit lowers the maximum string length accepted when encoding events.
func WithStringLimit(n uint64) Option {
	return func(p *Program) {
		p.encodeOpts = append(p.encodeOpts, codec.WithStringLimit(n))
	}
}

// Program is an immutable selector-to-instruction table addressed by a fixed ID.
// Safe for concurrent Dispatch calls.
type Program struct {
	id           ir.Pubkey
	marker       string
	encodeOpts   []codec.Option
	instructions map[ir.Discriminator]Instruction
	order        []Instruction
}

// New builds a Program. The ID is fixed for the Program's lifetime.
// Returns an error on duplicate names or selectors.
func New(id ir.Pubkey, instructions []Instruction, opts ...Option) (*Program, error) {
	p := &Program{
		id:           id,
		marker:       DefaultMarker,
		instructions: make(map[ir.Discriminator]Instruction, len(instructions)),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, ix := range instructions {
		if ix.run == nil {
			return nil, fmt.Errorf("program %s: instruction %q has no handler", id, ix.name)
		}
		if existing, ok := p.instructions[ix.selector]; ok {
			return nil, fmt.Errorf("program %s: instruction %q collides with %q (selector %s)", id, ix.name, existing.name, ix.selector)
		}
		p.instructions[ix.selector] = ix
		p.order = append(p.order, ix)
	}
	return p, nil
}

// ID returns the program address.
func (p *Program) ID() ir.Pubkey {
	return p.id
}

// Marker returns the event line marker.
func (p *Program) Marker() string {
	return p.marker
}

// Instructions returns registered instructions in registration order.
func (p *Program) Instructions() []Instruction {
	return append([]Instruction(nil), p.order...)
}

// Dispatch validates accounts, routes data to its instruction, and runs it.
// Lines emitted by the handler reach logs only if the whole instruction succeeds.
func (p *Program) Dispatch(logs LogChannel, accounts []ir.AccountMeta, data []byte) error {
	if !hasSigner(accounts) {
		return &Error{Code: ErrCodeMissingSignature, Message: "no authenticated signer in account list"}
	}

	if len(data) < ir.DiscriminatorSize {
		return &Error{
			Code:    ErrCodeUnknownInstruction,
			Message: fmt.Sprintf("instruction data is %d bytes, shorter than a selector", len(data)),
		}
	}
	var selector ir.Discriminator
	copy(selector[:], data[:ir.DiscriminatorSize])

	ix, ok := p.instructions[selector]
	if !ok {
		return &Error{Code: ErrCodeUnknownInstruction, Message: fmt.Sprintf("no instruction for selector %s", selector)}
	}

	named, err := bindAccounts(ix, accounts)
	if err != nil {
		return err
	}

	slog.Debug("dispatching instruction", "program", p.id.String(), "instruction", ix.name)

	c := &Context{
		program:     p,
		instruction: ix.name,
		accounts:    accounts,
		named:       named,
	}
	if err := ix.run(c, codec.NewReader(data[ir.DiscriminatorSize:])); err != nil {
		slog.Debug("instruction aborted", "instruction", ix.name, "err", err, "discarded_lines", len(c.pending))
		return err
	}

	for _, line := range c.pending {
		logs.Append(line)
	}
	return nil
}

func hasSigner(accounts []ir.AccountMeta) bool {
	for _, a := range accounts {
		if a.IsSigner {
			return true
		}
	}
	return false
}

// bindAccounts matches positional accounts to the instruction's specs.
func bindAccounts(ix Instruction, accounts []ir.AccountMeta) (map[string]ir.AccountMeta, error) {
	named := make(map[string]ir.AccountMeta, len(ix.accounts))
	for i, spec := range ix.accounts {
		if i >= len(accounts) {
			code := ErrCodeNotEnoughAccounts
			if spec.Signer {
				code = ErrCodeMissingSignature
			}
			return nil, &Error{
				Code:        code,
				Message:     fmt.Sprintf("account %q (index %d) not supplied", spec.Name, i),
				Instruction: ix.name,
			}
		}
		acct := accounts[i]
		if spec.Signer && !acct.IsSigner {
			return nil, &Error{
				Code:        ErrCodeMissingSignature,
				Message:     fmt.Sprintf("account %q (%s) did not sign", spec.Name, acct.Pubkey),
				Instruction: ix.name,
			}
		}
		named[spec.Name] = acct
	}
	return named, nil
}
