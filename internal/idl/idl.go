package idl

import (
	"fmt"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
)

// Account is one positional account of an instruction.
type Account struct {
	Name     string `json:"name"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// Instruction describes one routable entry point.
type Instruction struct {
	Name     string           `json:"name"`
	Selector ir.Discriminator `json:"-"`
	Accounts []Account        `json:"accounts"`
	Args     []codec.Field    `json:"args"`
}

// IDL is a compiled program description.
type IDL struct {
	Name         string         `json:"name"`
	ProgramID    ir.Pubkey      `json:"id"`
	Instructions []Instruction  `json:"instructions"`
	Events       []codec.Schema `json:"events"`
}

// Instruction returns the named instruction.
func (d *IDL) Instruction(name string) (Instruction, bool) {
	for _, ix := range d.Instructions {
		if ix.Name == name {
			return ix, true
		}
	}
	return Instruction{}, false
}

// Event returns the named event schema.
func (d *IDL) Event(name string) (codec.Schema, bool) {
	for _, s := range d.Events {
		if s.Name == name {
			return s, true
		}
	}
	return codec.Schema{}, false
}

// Registry returns a registry decoding every declared event as a *codec.Record.
func (d *IDL) Registry() (*codec.Registry, error) {
	reg := codec.NewRegistry()
	for _, s := range d.Events {
		if err := reg.RegisterSchema(s); err != nil {
			return nil, fmt.Errorf("idl %s: %w", d.Name, err)
		}
	}
	return reg, nil
}

// EncodeInstruction builds instruction data (selector then args) from
// named argument values.
func (d *IDL) EncodeInstruction(name string, args ir.IRObject, opts ...codec.Option) ([]byte, error) {
	ix, ok := d.Instruction(name)
	if !ok {
		return nil, fmt.Errorf("idl %s: no instruction %q", d.Name, name)
	}
	w := codec.NewWriter(opts...)
	w.WriteDiscriminator(ix.Selector)
	rec := &codec.Record{Schema: codec.Schema{Name: ix.Name, Fields: ix.Args}, Fields: args}
	rec.MarshalFields(w)
	return w.Bytes()
}
