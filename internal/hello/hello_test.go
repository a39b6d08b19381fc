package hello

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
)

type lines []string

func (l *lines) Append(line string) { *l = append(*l, line) }

var owner = ir.Pubkey(bytes.Repeat([]byte{0x01}, 32))

func signedAccounts(pk ir.Pubkey) []ir.AccountMeta {
	return []ir.AccountMeta{{Pubkey: pk, IsSigner: true}}
}

func mustProgram(t *testing.T, opts ...program.Option) *program.Program {
	t.Helper()
	p, err := New(ir.MustPubkey(DefaultProgramID), opts...)
	require.NoError(t, err)
	return p
}

func sendEventData(t *testing.T, data uint8, title string) []byte {
	t.Helper()
	ix, err := NewSendEventInstruction(ir.MustPubkey(DefaultProgramID), owner, data, title)
	require.NoError(t, err)
	return ix.Data
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1b1261b192328209", HelloEventDiscriminator.String())
	assert.Equal(t, "f1aebedabef8688d", SendEventSelector.String())
	assert.Equal(t, ir.Discriminator{27, 18, 97, 177, 146, 50, 130, 9}, HelloEventDiscriminator)
	assert.Equal(t, DefaultProgramID, ir.MustPubkey(DefaultProgramID).String())
}

func TestSendEvent_EndToEnd(t *testing.T) {
	p := mustProgram(t)
	var out lines

	err := p.Dispatch(&out, signedAccounts(owner), sendEventData(t, 42, "hello"))
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "Program data: GxJhsZIyggkqBQAAAGhlbGxvAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQE=", out[0])
}

func TestHelloEvent_WireLayout(t *testing.T) {
	b, err := codec.Encode(HelloEvent{Data: 42, Title: "hello", Owner: owner})
	require.NoError(t, err)

	want := "1b1261b192328209" + "2a" + "05000000" + "68656c6c6f" +
		"0101010101010101010101010101010101010101010101010101010101010101"
	assert.Equal(t, want, hexOf(b))
}

func TestHelloEvent_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	cases := []HelloEvent{
		{Data: 0, Title: "", Owner: ir.Pubkey{}},
		{Data: 255, Title: "héllo wörld", Owner: owner},
		{Data: 200, Title: string(bytes.Repeat([]byte("x"), 1024)), Owner: ir.Pubkey{0xFF}},
	}
	for _, ev := range cases {
		b, err := codec.Encode(ev)
		require.NoError(t, err)
		got, err := reg.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}

func TestHelloEvent_DecodeShort(t *testing.T) {
	b, err := codec.Encode(HelloEvent{Data: 1, Title: "abc", Owner: owner})
	require.NoError(t, err)

	_, err = NewRegistry().Decode(b[:len(b)-1])
	assert.ErrorIs(t, err, codec.ErrMalformedPayload)
}

func TestSendEvent_OwnerIsSigner(t *testing.T) {
	p := mustProgram(t)
	signer := ir.Pubkey{0xAB}
	other := ir.Pubkey{0xCD}
	var out lines

	accounts := []ir.AccountMeta{
		{Pubkey: signer, IsSigner: true},
		{Pubkey: other},
	}
	require.NoError(t, p.Dispatch(&out, accounts, sendEventData(t, 9, "mine")))
	require.Len(t, out, 1)

	ev := decodeLine(t, out[0])
	assert.Equal(t, signer, ev.Owner)
}

func TestSendEvent_MissingSignature(t *testing.T) {
	p := mustProgram(t)
	var out lines

	err := p.Dispatch(&out, []ir.AccountMeta{{Pubkey: owner}}, sendEventData(t, 42, "hello"))
	assert.True(t, program.IsCode(err, program.ErrCodeMissingSignature), "got %v", err)
	assert.Empty(t, out)
}

func TestSendEvent_SignerInWrongPosition(t *testing.T) {
	p := mustProgram(t)
	var out lines

	// An authenticated account exists, but not in the sender slot.
	accounts := []ir.AccountMeta{{Pubkey: owner}, {Pubkey: ir.Pubkey{0x02}, IsSigner: true}}
	err := p.Dispatch(&out, accounts, sendEventData(t, 1, "x"))
	assert.True(t, program.IsCode(err, program.ErrCodeMissingSignature), "got %v", err)
	assert.Empty(t, out)
}

func TestSendEvent_FieldTooLarge(t *testing.T) {
	p := mustProgram(t, program.WithStringLimit(4))
	var out lines

	err := p.Dispatch(&out, signedAccounts(owner), sendEventData(t, 1, "hello"))
	assert.True(t, program.IsCode(err, program.ErrCodeFieldTooLarge), "got %v", err)
	assert.ErrorIs(t, err, codec.ErrFieldTooLarge)
	assert.Empty(t, out)

	require.NoError(t, p.Dispatch(&out, signedAccounts(owner), sendEventData(t, 1, "four")))
	assert.Len(t, out, 1)
}

func TestSendEvent_MalformedArgs(t *testing.T) {
	p := mustProgram(t)
	data := sendEventData(t, 1, "hello")

	tests := []struct {
		name string
		data []byte
	}{
		{"no args", data[:8]},
		{"truncated title", data[:len(data)-2]},
		{"trailing byte", append(append([]byte(nil), data...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out lines
			err := p.Dispatch(&out, signedAccounts(owner), tt.data)
			assert.True(t, program.IsCode(err, program.ErrCodeMalformedPayload), "got %v", err)
			assert.Empty(t, out)
		})
	}
}

func TestSendEvent_InvalidUTF8Title(t *testing.T) {
	p := mustProgram(t)
	var out lines

	selector := ir.InstructionSelector(InstructionName)
	data := append(selector[:], 0x01, 0x03, 0x00, 0x00, 0x00, 'a', 0xff, 'b')
	err := p.Dispatch(&out, signedAccounts(owner), data)
	assert.True(t, program.IsCode(err, program.ErrCodeMalformedPayload), "got %v", err)
	assert.ErrorIs(t, err, codec.ErrMalformedPayload)
	assert.Empty(t, out)

	_, err = NewSendEventInstruction(ir.MustPubkey(DefaultProgramID), owner, 1, "a\xffb")
	assert.ErrorIs(t, err, codec.ErrMalformedPayload)
}

func TestNewSendEventInstruction(t *testing.T) {
	id := ir.MustPubkey(DefaultProgramID)
	ix, err := NewSendEventInstruction(id, owner, 42, "hello")
	require.NoError(t, err)

	assert.Equal(t, id, ix.ProgramID)
	assert.Equal(t, []ir.AccountMeta{{Pubkey: owner, IsSigner: true}}, ix.Accounts)
	assert.Equal(t, "f1aebedabef8688d"+"2a"+"05000000"+"68656c6c6f", hexOf(ix.Data))
}

func TestIDL_Embedded(t *testing.T) {
	assert.Contains(t, string(IDL), DefaultProgramID)
	assert.Contains(t, string(IDL), EventName)
	assert.Contains(t, string(IDL), InstructionName)
}

func decodeLine(t *testing.T, line string) HelloEvent {
	t.Helper()
	payload, err := decodeDataLine(line)
	require.NoError(t, err)
	ev, err := NewRegistry().Decode(payload)
	require.NoError(t, err)
	return ev.(HelloEvent)
}
