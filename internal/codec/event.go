package codec

import (
	"fmt"
	"slices"

	"github.com/roach88/eventprog/internal/ir"
)

// Event is a typed record that can be emitted to the log channel.
//
// Implementations are plain value types with a statically computed
// discriminator; MarshalFields writes the fields in declared order and
// reports failures through the Writer's sticky error.
type Event interface {
	EventName() string
	Discriminator() ir.Discriminator
	MarshalFields(w *Writer)
}

// Fielder is implemented by events that can render themselves as IR values
// for off-chain storage.
type Fielder interface {
	IRFields() ir.IRObject
}

// DiscriminatorFor returns the 8-byte discriminator for an event type name.
// Pure: identical names always yield identical values.
func DiscriminatorFor(typeName string) ir.Discriminator {
	return ir.EventDiscriminator(typeName)
}

// Encode serializes e as discriminator followed by its fields.
// On error no bytes are returned.
func Encode(e Event, opts ...Option) ([]byte, error) {
	w := NewWriter(opts...)
	w.WriteDiscriminator(e.Discriminator())
	e.MarshalFields(w)
	b, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	return b, nil
}

// DecodeFunc reads the fields of one event type. The discriminator has
// already been consumed; trailing bytes are checked by the Registry.
type DecodeFunc func(r *Reader) (Event, error)

type registration struct {
	name   string
	decode DecodeFunc
}

// Registry maps discriminators to decoders.
//
// A Registry is built once at initialization. Register is not safe for
// concurrent use; Decode and Lookup are safe once registration is done.
type Registry struct {
	types map[ir.Discriminator]registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[ir.Discriminator]registration)}
}

// Register adds a decoder for typeName.
// Returns ErrDuplicateType if the discriminator is already taken.
func (reg *Registry) Register(typeName string, decode DecodeFunc) error {
	d := DiscriminatorFor(typeName)
	if existing, ok := reg.types[d]; ok {
		return fmt.Errorf("%w: %q collides with %q (discriminator %s)", ErrDuplicateType, typeName, existing.name, d)
	}
	reg.types[d] = registration{name: typeName, decode: decode}
	return nil
}

// RegisterSchema adds a schema-driven decoder that yields *Record values.
func (reg *Registry) RegisterSchema(s Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return reg.Register(s.Name, func(r *Reader) (Event, error) {
		rec, err := s.DecodeRecord(r)
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// Lookup returns the type name registered for d.
func (reg *Registry) Lookup(d ir.Discriminator) (string, bool) {
	r, ok := reg.types[d]
	return r.name, ok
}

// Names returns registered type names in sorted order.
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.types))
	for _, r := range reg.types {
		names = append(names, r.name)
	}
	slices.Sort(names)
	return names
}

// Decode is the inverse of Encode. The discriminator is checked first.
func (reg *Registry) Decode(payload []byte) (Event, error) {
	if len(payload) < ir.DiscriminatorSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than a discriminator", ErrMalformedPayload, len(payload))
	}
	r := NewReader(payload)
	d := r.ReadDiscriminator()

	entry, ok := reg.types[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDiscriminator, d)
	}

	ev, err := entry.decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", entry.name, err)
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", entry.name, err)
	}
	return ev, nil
}
