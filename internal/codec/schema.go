package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/eventprog/internal/ir"
)

// FieldKind names a wire type.
type FieldKind string

const (
	KindU8     FieldKind = "u8"
	KindU16    FieldKind = "u16"
	KindU32    FieldKind = "u32"
	KindU64    FieldKind = "u64"
	KindI8     FieldKind = "i8"
	KindI16    FieldKind = "i16"
	KindI32    FieldKind = "i32"
	KindI64    FieldKind = "i64"
	KindBool   FieldKind = "bool"
	KindString FieldKind = "string"
	KindPubkey FieldKind = "pubkey"
)

// intRanges bounds the integer kinds. u64 is handled separately since its
// upper half does not fit IRInt.
var intRanges = map[FieldKind][2]int64{
	KindU8:  {0, math.MaxUint8},
	KindU16: {0, math.MaxUint16},
	KindU32: {0, math.MaxUint32},
	KindI8:  {math.MinInt8, math.MaxInt8},
	KindI16: {math.MinInt16, math.MaxInt16},
	KindI32: {math.MinInt32, math.MaxInt32},
	KindI64: {math.MinInt64, math.MaxInt64},
}

// ParseFieldKind validates a kind name.
func ParseFieldKind(s string) (FieldKind, error) {
	k := FieldKind(s)
	switch k {
	case KindU64, KindBool, KindString, KindPubkey:
		return k, nil
	}
	if _, ok := intRanges[k]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}

// Field is one named, typed slot of a schema.
type Field struct {
	Name string    `json:"name" yaml:"name"`
	Kind FieldKind `json:"kind" yaml:"kind"`
}

// Schema describes an event type by name and ordered fields.
// Field order is wire order.
type Schema struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Discriminator returns the schema's event discriminator.
func (s Schema) Discriminator() ir.Discriminator {
	return DiscriminatorFor(s.Name)
}

// Validate checks the name, field kinds, and field name uniqueness.
func (s Schema) Validate() error {
	if s.Name == "" {
		return errors.New("schema: name is required")
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field %d has no name", s.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if _, err := ParseFieldKind(string(f.Kind)); err != nil {
			return fmt.Errorf("schema %s: field %q: %w", s.Name, f.Name, err)
		}
	}
	return nil
}

// DecodeRecord reads the schema's fields from r.
func (s Schema) DecodeRecord(r *Reader) (*Record, error) {
	fields := make(ir.IRObject, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Name] = readValue(r, f.Kind)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return &Record{Schema: s, Fields: fields}, nil
}

func readValue(r *Reader, kind FieldKind) ir.IRValue {
	switch kind {
	case KindU8:
		return ir.IRInt(r.ReadU8())
	case KindU16:
		return ir.IRInt(r.ReadU16())
	case KindU32:
		return ir.IRInt(r.ReadU32())
	case KindU64:
		v := r.ReadU64()
		if v > math.MaxInt64 {
			return ir.IRString(strconv.FormatUint(v, 10))
		}
		return ir.IRInt(int64(v))
	case KindI8:
		return ir.IRInt(r.ReadI8())
	case KindI16:
		return ir.IRInt(r.ReadI16())
	case KindI32:
		return ir.IRInt(r.ReadI32())
	case KindI64:
		return ir.IRInt(r.ReadI64())
	case KindBool:
		return ir.IRBool(r.ReadBool())
	case KindString:
		return ir.IRString(r.ReadString())
	case KindPubkey:
		return ir.IRString(r.ReadPubkey().String())
	default:
		r.Fail(fmt.Errorf("%w: unknown kind %q", ErrSchemaMismatch, kind))
		return nil
	}
}

// Record is an event known only through its Schema.
//
// Integers are IRInt (u64 values above MaxInt64 are decimal IRString),
// bools are IRBool, strings are IRString, and pubkeys are base58 IRString.
type Record struct {
	Schema Schema
	Fields ir.IRObject
}

func (rec *Record) EventName() string {
	return rec.Schema.Name
}

func (rec *Record) Discriminator() ir.Discriminator {
	return rec.Schema.Discriminator()
}

// IRFields returns the decoded field values.
func (rec *Record) IRFields() ir.IRObject {
	return rec.Fields
}

// MarshalFields writes the record in schema order. Missing or ill-typed
// values fail with ErrSchemaMismatch.
func (rec *Record) MarshalFields(w *Writer) {
	for _, f := range rec.Schema.Fields {
		v, ok := rec.Fields[f.Name]
		if !ok {
			w.Fail(fmt.Errorf("%w: %s.%s is missing", ErrSchemaMismatch, rec.Schema.Name, f.Name))
			return
		}
		if err := writeValue(w, f.Kind, v); err != nil {
			w.Fail(fmt.Errorf("%w: %s.%s: %v", ErrSchemaMismatch, rec.Schema.Name, f.Name, err))
			return
		}
	}
}

func writeValue(w *Writer, kind FieldKind, v ir.IRValue) error {
	switch kind {
	case KindU64:
		switch val := v.(type) {
		case ir.IRInt:
			if val < 0 {
				return fmt.Errorf("negative value %d for u64", val)
			}
			w.WriteU64(uint64(val))
		case ir.IRString:
			n, err := strconv.ParseUint(string(val), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid u64 %q", val)
			}
			w.WriteU64(n)
		default:
			return fmt.Errorf("want integer, got %T", v)
		}
		return nil
	case KindBool:
		b, ok := v.(ir.IRBool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		w.WriteBool(bool(b))
		return nil
	case KindString:
		s, ok := v.(ir.IRString)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		w.WriteString(string(s))
		return nil
	case KindPubkey:
		s, ok := v.(ir.IRString)
		if !ok {
			return fmt.Errorf("want base58 string, got %T", v)
		}
		pk, err := ir.ParsePubkey(string(s))
		if err != nil {
			return err
		}
		w.WritePubkey(pk)
		return nil
	}

	bounds, ok := intRanges[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q", kind)
	}
	n, ok := v.(ir.IRInt)
	if !ok {
		return fmt.Errorf("want integer, got %T", v)
	}
	if int64(n) < bounds[0] || int64(n) > bounds[1] {
		return fmt.Errorf("%d out of range for %s", n, kind)
	}
	switch kind {
	case KindU8:
		w.WriteU8(uint8(n))
	case KindU16:
		w.WriteU16(uint16(n))
	case KindU32:
		w.WriteU32(uint32(n))
	case KindI8:
		w.WriteI8(int8(n))
	case KindI16:
		w.WriteI16(int16(n))
	case KindI32:
		w.WriteI32(int32(n))
	case KindI64:
		w.WriteI64(int64(n))
	}
	return nil
}
