package logparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
)

var (
	helloID = ir.MustPubkey(hello.DefaultProgramID)
	otherID = ir.Pubkey{0x07}
	owner   = ir.Pubkey{0x01}
)

func dataLine(t *testing.T, ev codec.Event) string {
	t.Helper()
	b, err := codec.Encode(ev)
	require.NoError(t, err)
	return program.FormatDataLine(program.DefaultMarker, b)
}

func TestParse_FramedTransaction(t *testing.T) {
	ev := hello.HelloEvent{Data: 42, Title: "hello", Owner: owner}
	lines := []string{
		program.FormatInvokeLine(helloID, 1),
		program.FormatLogLine("starting"),
		dataLine(t, ev),
		program.FormatSuccessLine(helloID),
	}

	got, err := New(helloID, hello.NewRegistry()).Parse(lines)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)
	assert.Equal(t, helloID, got[0].ProgramID)
	assert.Equal(t, hello.EventName, got[0].Name)
	assert.Equal(t, hello.HelloEventDiscriminator, got[0].Discriminator)
	assert.Equal(t, ev, got[0].Event)
}

func TestParse_BareLines(t *testing.T) {
	ev := hello.HelloEvent{Data: 1, Title: "a", Owner: owner}
	got, err := New(helloID, hello.NewRegistry()).Parse([]string{"noise", dataLine(t, ev)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Line)
}

func TestParse_SkipsOtherPrograms(t *testing.T) {
	mine := hello.HelloEvent{Data: 1, Title: "mine", Owner: owner}
	lines := []string{
		program.FormatInvokeLine(otherID, 1),
		// Would fail to decode if it were attributed to hello.
		program.FormatDataLine(program.DefaultMarker, []byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0}),
		program.FormatSuccessLine(otherID),
		program.FormatInvokeLine(helloID, 1),
		dataLine(t, mine),
		program.FormatSuccessLine(helloID),
	}

	got, err := New(helloID, hello.NewRegistry()).Parse(lines)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine, got[0].Event)
}

func TestParse_NestedFrames(t *testing.T) {
	outer := hello.HelloEvent{Data: 1, Title: "outer", Owner: owner}
	after := hello.HelloEvent{Data: 2, Title: "after", Owner: owner}
	lines := []string{
		program.FormatInvokeLine(helloID, 1),
		dataLine(t, outer),
		program.FormatInvokeLine(otherID, 2),
		program.FormatDataLine(program.DefaultMarker, []byte("not ours")),
		program.FormatFailedLine(otherID, errors.New("boom")),
		dataLine(t, after),
		program.FormatSuccessLine(helloID),
	}

	got, err := New(helloID, hello.NewRegistry()).Parse(lines)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, outer, got[0].Event)
	assert.Equal(t, after, got[1].Event)
	assert.Equal(t, 5, got[1].Line)
}

func TestParse_UnbalancedFrame(t *testing.T) {
	lines := []string{
		program.FormatInvokeLine(helloID, 1),
		program.FormatSuccessLine(otherID),
	}
	_, err := New(helloID, hello.NewRegistry()).Parse(lines)
	assert.ErrorIs(t, err, ErrUnbalancedFrame)

	_, err = New(helloID, hello.NewRegistry()).Parse([]string{program.FormatSuccessLine(helloID)})
	assert.ErrorIs(t, err, ErrUnbalancedFrame)
}

func TestParse_UnknownDiscriminatorIsReturned(t *testing.T) {
	line := program.FormatDataLine(program.DefaultMarker, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	_, err := New(helloID, hello.NewRegistry()).Parse([]string{line})
	assert.ErrorIs(t, err, codec.ErrUnknownDiscriminator)
	assert.ErrorContains(t, err, "line 0")
}

func TestParseLine(t *testing.T) {
	p := New(helloID, hello.NewRegistry())

	tests := []struct {
		name    string
		line    string
		wantOK  bool
		wantErr error
	}{
		{"log line", "Program log: hi", false, nil},
		{"invoke line", program.FormatInvokeLine(helloID, 1), false, nil},
		{"bad base64", "Program data: !!!", false, codec.ErrMalformedPayload},
		{"short payload", "Program data: AQI=", false, codec.ErrMalformedPayload},
		{"event", dataLine(t, hello.HelloEvent{Title: "x"}), true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := p.ParseLine(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseLine_CustomMarker(t *testing.T) {
	b, err := codec.Encode(hello.HelloEvent{Title: "x"})
	require.NoError(t, err)
	line := program.FormatDataLine("Event:", b)

	p := &Parser{ProgramID: helloID, Marker: "Event:", Registry: hello.NewRegistry()}
	_, ok, err := p.ParseLine(line)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = New(helloID, hello.NewRegistry()).ParseLine(line)
	require.NoError(t, err)
	assert.False(t, ok, "default marker must not match a custom one")
}

func TestParseFrame(t *testing.T) {
	kind, id, ok := parseFrame(program.FormatInvokeLine(helloID, 3))
	require.True(t, ok)
	assert.Equal(t, frameInvoke, kind)
	assert.Equal(t, helloID, id)

	_, _, ok = parseFrame("Program data: AAAA")
	assert.False(t, ok)
	_, _, ok = parseFrame("Program " + helloID.String() + " consumed 100 units")
	assert.False(t, ok)
}
