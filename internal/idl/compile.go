package idl

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
)

// CompileError is a validation failure with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile compiles an IDL document from a single .cue file.
func LoadFile(path string) (*IDL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read idl: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes compiles an IDL document from source. filename is used only
// in error positions.
func LoadBytes(filename string, src []byte) (*IDL, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v.LookupPath(cue.ParsePath("program")))
}

// LoadDir compiles the program declared by the CUE package in dir.
func LoadDir(dir string) (*IDL, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v.LookupPath(cue.ParsePath("program")))
}

// Compile converts the program struct into an IDL and validates it.
//
//	v := cuecontext.New().CompileString(src)
//	d, err := idl.Compile(v.LookupPath(cue.ParsePath("program")))
func Compile(v cue.Value) (*IDL, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "program", Message: "program is required", Pos: v.Pos()}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &IDL{}
	var err error

	if d.Name, err = requiredString(v, "name"); err != nil {
		return nil, err
	}

	idText, err := requiredString(v, "id")
	if err != nil {
		return nil, err
	}
	if d.ProgramID, err = ir.ParsePubkey(idText); err != nil {
		return nil, &CompileError{Field: "id", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("id")).Pos()}
	}

	if d.Instructions, err = parseInstructions(v); err != nil {
		return nil, err
	}
	if len(d.Instructions) == 0 {
		return nil, &CompileError{Field: "instructions", Message: "at least one instruction is required", Pos: v.Pos()}
	}

	if d.Events, err = parseEvents(v); err != nil {
		return nil, err
	}
	return d, nil
}

func parseInstructions(v cue.Value) ([]Instruction, error) {
	list := v.LookupPath(cue.ParsePath("instructions"))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []Instruction
	names := make(map[string]bool)
	selectors := make(map[ir.Discriminator]string)
	for iter.Next() {
		item := iter.Value()
		name, err := requiredString(item, "name")
		if err != nil {
			return nil, err
		}
		if names[name] {
			return nil, &CompileError{Field: "instructions", Message: fmt.Sprintf("duplicate instruction %q", name), Pos: item.Pos()}
		}
		names[name] = true

		ix := Instruction{Name: name, Selector: ir.InstructionSelector(name)}
		if other, ok := selectors[ix.Selector]; ok {
			return nil, &CompileError{Field: "instructions", Message: fmt.Sprintf("%q and %q share selector %s", name, other, ix.Selector), Pos: item.Pos()}
		}
		selectors[ix.Selector] = name

		if ix.Accounts, err = parseAccounts(item); err != nil {
			return nil, err
		}
		if ix.Args, err = parseFields(item, "args", "instruction "+name); err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

func parseAccounts(v cue.Value) ([]Account, error) {
	list := v.LookupPath(cue.ParsePath("accounts"))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []Account
	seen := make(map[string]bool)
	for iter.Next() {
		item := iter.Value()
		name, err := requiredString(item, "name")
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, &CompileError{Field: "accounts", Message: fmt.Sprintf("duplicate account %q", name), Pos: item.Pos()}
		}
		seen[name] = true

		acct := Account{Name: name}
		if acct.Signer, err = optionalBool(item, "signer"); err != nil {
			return nil, err
		}
		if acct.Writable, err = optionalBool(item, "writable"); err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

func parseEvents(v cue.Value) ([]codec.Schema, error) {
	list := v.LookupPath(cue.ParsePath("events"))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []codec.Schema
	discriminators := make(map[ir.Discriminator]string)
	for iter.Next() {
		item := iter.Value()
		name, err := requiredString(item, "name")
		if err != nil {
			return nil, err
		}
		d := codec.DiscriminatorFor(name)
		if other, ok := discriminators[d]; ok {
			msg := fmt.Sprintf("duplicate event %q", name)
			if other != name {
				msg = fmt.Sprintf("%q and %q share discriminator %s", name, other, d)
			}
			return nil, &CompileError{Field: "events", Message: msg, Pos: item.Pos()}
		}
		discriminators[d] = name

		fields, err := parseFields(item, "fields", "event "+name)
		if err != nil {
			return nil, err
		}
		out = append(out, codec.Schema{Name: name, Fields: fields})
	}
	return out, nil
}

// parseFields reads a list of {name, type} pairs in declared order.
func parseFields(v cue.Value, label, owner string) ([]codec.Field, error) {
	list := v.LookupPath(cue.ParsePath(label))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []codec.Field
	seen := make(map[string]bool)
	for iter.Next() {
		item := iter.Value()
		name, err := requiredString(item, "name")
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, &CompileError{Field: label, Message: fmt.Sprintf("%s: duplicate field %q", owner, name), Pos: item.Pos()}
		}
		seen[name] = true

		typeName, err := requiredString(item, "type")
		if err != nil {
			return nil, err
		}
		kind, err := codec.ParseFieldKind(typeName)
		if err != nil {
			return nil, &CompileError{Field: label, Message: fmt.Sprintf("%s.%s: %v", owner, name, err), Pos: item.LookupPath(cue.ParsePath("type")).Pos()}
		}
		out = append(out, codec.Field{Name: name, Kind: kind})
	}
	return out, nil
}

func requiredString(v cue.Value, label string) (string, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return "", &CompileError{Field: label, Message: label + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{Field: label, Message: label + " must not be empty", Pos: f.Pos()}
	}
	return s, nil
}

func optionalBool(v cue.Value, label string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
