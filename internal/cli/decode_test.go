package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/hello"
)

const (
	helloLine   = "Program data: GxJhsZIyggkqBQAAAGhlbGxvvmcoopXGTJG26j+U2r/s8j+RdZCZqxxlv8T9Po0hK1M="
	helloInvoke = "Program Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS invoke [1]"
	helloClose  = "Program Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS success"
)

func TestDecodeArgs(t *testing.T) {
	out, err := execute(t, "decode", helloLine)
	require.NoError(t, err)
	assert.Equal(t, `0 HelloEvent {"data":42,"owner":"`+aliceKey+`","title":"hello"}`+"\n", out)
}

func TestDecodeStdinFramed(t *testing.T) {
	in := strings.Join([]string{helloInvoke, helloLine, helloClose}, "\n") + "\n"

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs([]string{"--format", "json", "decode"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   []jsonEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Data[0].Line)
	assert.Equal(t, "HelloEvent", resp.Data[0].Name)
	assert.Equal(t, hello.DefaultProgramID, resp.Data[0].ProgramID)
	assert.Equal(t, "hello", resp.Data[0].Fields["title"])
}

func TestDecodeWithIDL(t *testing.T) {
	path := writeIDL(t, "hello.cue", hello.IDL)

	out, err := execute(t, "decode", "--idl", path, helloLine)
	require.NoError(t, err)
	assert.Contains(t, out, `"owner":"`+aliceKey+`"`)
	assert.Contains(t, out, `"data":42`)
}

func TestDecodeOtherProgramIgnored(t *testing.T) {
	// Lines framed under a different program are not attributed to hello.
	other := "11111111111111111111111111111111"
	lines := []string{
		"Program " + other + " invoke [1]",
		helloLine,
		"Program " + other + " success",
	}

	out, err := execute(t, append([]string{"decode"}, lines...)...)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecodeIgnoresPlainLogs(t *testing.T) {
	out, err := execute(t, "decode", "Program log: hi")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "bad base64", line: "Program data: !!!"},
		{name: "unknown discriminator", line: "Program data: AAAAAAAAAAA="},
		{name: "short payload", line: "Program data: AQI="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "--format", "json", "decode", tt.line)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, ErrCodeDecode)
		})
	}
}

func TestDecodeInvalidProgram(t *testing.T) {
	_, err := execute(t, "decode", "--program", "not-base58!", helloLine)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("a\r\nb\n\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}
