package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/ir"
)

var helloSchema = Schema{
	Name: "HelloEvent",
	Fields: []Field{
		{Name: "data", Kind: KindU8},
		{Name: "title", Kind: KindString},
		{Name: "owner", Kind: KindPubkey},
	},
}

func TestSchemaRecordMatchesTypedEncoding(t *testing.T) {
	owner := ownerOnes()

	typed, err := Encode(greeting{Data: 42, Title: "hello", Owner: owner})
	require.NoError(t, err)

	rec := &Record{Schema: helloSchema, Fields: ir.IRObject{
		"data":  ir.IRInt(42),
		"title": ir.IRString("hello"),
		"owner": ir.IRString(owner.String()),
	}}
	generic, err := Encode(rec)
	require.NoError(t, err)

	assert.Equal(t, typed, generic, "schema and typed encodings must agree")
}

func TestSchemaRegistryDecodesRecords(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSchema(helloSchema))

	payload, err := Encode(greeting{Data: 7, Title: "hi", Owner: ownerOnes()})
	require.NoError(t, err)

	ev, err := reg.Decode(payload)
	require.NoError(t, err)

	rec, ok := ev.(*Record)
	require.True(t, ok)
	assert.Equal(t, "HelloEvent", rec.EventName())
	assert.Equal(t, ir.IRInt(7), rec.Fields["data"])
	assert.Equal(t, ir.IRString("hi"), rec.Fields["title"])
	assert.Equal(t, ir.IRString(ownerOnes().String()), rec.Fields["owner"])

	again, err := Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestSchemaAllKinds(t *testing.T) {
	s := Schema{Name: "Everything", Fields: []Field{
		{"a", KindU8}, {"b", KindU16}, {"c", KindU32}, {"d", KindU64},
		{"e", KindI8}, {"f", KindI16}, {"g", KindI32}, {"h", KindI64},
		{"i", KindBool}, {"j", KindString}, {"k", KindPubkey},
	}}
	rec := &Record{Schema: s, Fields: ir.IRObject{
		"a": ir.IRInt(255), "b": ir.IRInt(65535), "c": ir.IRInt(4294967295),
		"d": ir.IRString("18446744073709551615"),
		"e": ir.IRInt(-128), "f": ir.IRInt(-32768), "g": ir.IRInt(-2147483648),
		"h": ir.IRInt(-9223372036854775808),
		"i": ir.IRBool(true), "j": ir.IRString("j"),
		"k": ir.IRString("11111111111111111111111111111111"),
	}}

	payload, err := Encode(rec)
	require.NoError(t, err)
	assert.Len(t, payload, 8+1+2+4+8+1+2+4+8+1+(4+1)+32)

	reg := NewRegistry()
	require.NoError(t, reg.RegisterSchema(s))
	ev, err := reg.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, rec.Fields, ev.(*Record).Fields)
}

func TestSchemaMismatch(t *testing.T) {
	tests := []struct {
		name   string
		fields ir.IRObject
	}{
		{"missing field", ir.IRObject{"data": ir.IRInt(1), "title": ir.IRString("x")}},
		{"out of range", ir.IRObject{"data": ir.IRInt(256), "title": ir.IRString("x"), "owner": ir.IRString(ownerOnes().String())}},
		{"wrong type", ir.IRObject{"data": ir.IRString("1"), "title": ir.IRString("x"), "owner": ir.IRString(ownerOnes().String())}},
		{"bad pubkey", ir.IRObject{"data": ir.IRInt(1), "title": ir.IRString("x"), "owner": ir.IRString("not-base58!")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(&Record{Schema: helloSchema, Fields: tt.fields})
			assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
			assert.Nil(t, got)
		})
	}
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, helloSchema.Validate())
	assert.Error(t, Schema{}.Validate())
	assert.Error(t, Schema{Name: "X", Fields: []Field{{Name: "a", Kind: "f64"}}}.Validate())
	assert.Error(t, Schema{Name: "X", Fields: []Field{{Name: "a", Kind: KindU8}, {Name: "a", Kind: KindU8}}}.Validate())
	assert.Error(t, Schema{Name: "X", Fields: []Field{{Kind: KindU8}}}.Validate())
}
