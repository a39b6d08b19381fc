package program

import (
	"fmt"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
)

// Context is the handler's view of one invocation.
// It lives only for the duration of the handler call.
type Context struct {
	program     *Program
	instruction string
	accounts    []ir.AccountMeta
	named       map[string]ir.AccountMeta
	pending     []string
}

// ProgramID returns the address of the executing program.
func (c *Context) ProgramID() ir.Pubkey {
	return c.program.id
}

// Instruction returns the name of the instruction being run.
func (c *Context) Instruction() string {
	return c.instruction
}

// Account returns a declared account by spec name.
func (c *Context) Account(name string) (ir.AccountMeta, bool) {
	a, ok := c.named[name]
	return a, ok
}

// Accounts returns every supplied account in order, declared or not.
func (c *Context) Accounts() []ir.AccountMeta {
	return append([]ir.AccountMeta(nil), c.accounts...)
}

// Signer returns the key of a declared signer account.
// Dispatch has already checked the flag; this guards handlers that ask for a
// name that is not declared as a signer.
func (c *Context) Signer(name string) (ir.Pubkey, error) {
	a, ok := c.named[name]
	if !ok || !a.IsSigner {
		return ir.Pubkey{}, &Error{
			Code:        ErrCodeMissingSignature,
			Message:     fmt.Sprintf("%q is not a signer of this instruction", name),
			Instruction: c.instruction,
		}
	}
	return a.Pubkey, nil
}

// Log buffers a free-form "Program log:" line.
func (c *Context) Log(msg string) {
	c.pending = append(c.pending, FormatLogLine(msg))
}

// Emit encodes e and buffers one event line. On error nothing is buffered.
func (c *Context) Emit(e codec.Event) error {
	payload, err := codec.Encode(e, c.program.encodeOpts...)
	if err != nil {
		return fromCodec(c.instruction, "emit "+e.EventName(), err)
	}
	c.pending = append(c.pending, FormatDataLine(c.program.marker, payload))
	return nil
}
