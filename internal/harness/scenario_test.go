package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
steps:
  - signers: [alice]
    instructions:
      - invoke: send_event
        args:
          data: 42
          title: "hello"
        accounts:
          sender: alice
    expect:
      state: committed
      events: 1
assertions:
  - type: event_contains
    name: HelloEvent
    fields:
      data: 42
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", validScenario)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Empty(t, scenario.IDL)
	require.Len(t, scenario.Steps, 1)

	step := scenario.Steps[0]
	assert.Equal(t, []string{"alice"}, step.Signers)
	assert.False(t, step.Tamper)
	require.Len(t, step.Instructions, 1)
	assert.Equal(t, "send_event", step.Instructions[0].Invoke)
	assert.Equal(t, 42, step.Instructions[0].Args["data"])
	assert.Equal(t, "hello", step.Instructions[0].Args["title"])
	assert.Equal(t, map[string]string{"sender": "alice"}, step.Instructions[0].Accounts)

	require.NotNil(t, step.Expect)
	assert.Equal(t, StateCommitted, step.Expect.State)
	require.NotNil(t, step.Expect.Events)
	assert.Equal(t, 1, *step.Expect.Events)

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertEventContains, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "bad.yaml", "name: [unterminated\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ValidationErrors(t *testing.T) {
	step := `
steps:
  - signers: [alice]
    instructions:
      - invoke: send_event
        accounts: {sender: alice}
`
	assertions := `
assertions:
  - type: event_count
    name: HelloEvent
    count: 1
`
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d" + step + assertions,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n" + step + assertions,
			wantErr: "description is required",
		},
		{
			name:    "missing steps",
			yaml:    "name: n\ndescription: d" + assertions,
			wantErr: "steps list is required",
		},
		{
			name:    "missing assertions",
			yaml:    "name: n\ndescription: d" + step,
			wantErr: "assertions list is required",
		},
		{
			name: "step without instructions",
			yaml: `name: n
description: d
steps:
  - signers: [alice]` + assertions,
			wantErr: "steps[0]: instructions list is required",
		},
		{
			name: "instruction without invoke",
			yaml: `name: n
description: d
steps:
  - instructions:
      - data: "00"` + assertions,
			wantErr: "steps[0].instructions[0]: invoke is required",
		},
		{
			name: "bad expect state",
			yaml: `name: n
description: d
steps:
  - instructions:
      - invoke: send_event
    expect:
      state: pending` + assertions,
			wantErr: "state must be committed, aborted or rejected",
		},
		{
			name:    "missing idl file",
			yaml:    "name: n\ndescription: d\nidl: absent.cue" + step + assertions,
			wantErr: "idl file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.yaml)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_AssertionTypes(t *testing.T) {
	header := `name: n
description: d
steps:
  - instructions:
      - invoke: send_event
assertions:
`
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"event_contains", "  - type: event_contains\n    name: HelloEvent\n", ""},
		{"event_contains without name", "  - type: event_contains\n", "name is required for event_contains"},
		{"event_order", "  - type: event_order\n    names: [HelloEvent]\n", ""},
		{"event_order without names", "  - type: event_order\n", "names list is required for event_order"},
		{"event_count zero", "  - type: event_count\n    name: HelloEvent\n    count: 0\n", ""},
		{"event_count negative", "  - type: event_count\n    name: HelloEvent\n    count: -1\n", "count must be non-negative"},
		{"event_count without name", "  - type: event_count\n    count: 1\n", "name is required for event_count"},
		{"final_state", "  - type: final_state\n    table: events\n    expect: {slot: 1}\n", ""},
		{"final_state without table", "  - type: final_state\n    expect: {slot: 1}\n", "table is required for final_state"},
		{"final_state without expect", "  - type: final_state\n    table: events\n", "expect is required for final_state"},
		{"missing type", "  - name: HelloEvent\n", "type is required"},
		{"unknown type", "  - type: trace_contains\n", `unknown assertion type "trace_contains"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", header+tt.assertion)
			_, err := LoadScenario(path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "typo_assertion_singular",
			yaml:    validScenario + "assertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name: "typo_in_instruction",
			yaml: `name: n
description: d
steps:
  - instructions:
      - invok: send_event
assertions:
  - type: event_count
    name: HelloEvent
`,
			wantErr: "field invok not found",
		},
		{
			name:    "unknown_top_level_field",
			yaml:    validScenario + "flow_token: abc\n",
			wantErr: "field flow_token not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.name+".yaml", tt.yaml)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_StepOptions(t *testing.T) {
	content := `name: options
description: Tamper, raw data and string limit
max_string_len: 8
steps:
  - signers: [alice, bob]
    tamper: true
    instructions:
      - invoke: send_event
        data: "f1aebedabef8688d"
        accounts: {sender: alice}
    expect:
      state: rejected
      error: INVALID_SIGNATURE
assertions:
  - type: event_count
    name: HelloEvent
    count: 0
`
	path := writeScenario(t, t.TempDir(), "s.yaml", content)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(8), scenario.MaxStringLen)
	step := scenario.Steps[0]
	assert.True(t, step.Tamper)
	assert.Equal(t, []string{"alice", "bob"}, step.Signers)
	assert.Equal(t, "f1aebedabef8688d", step.Instructions[0].Data)
	assert.Equal(t, "INVALID_SIGNATURE", step.Expect.Error)
	assert.Nil(t, step.Expect.Events)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	idlDir := filepath.Join(dir, "idl")
	require.NoError(t, os.MkdirAll(idlDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(idlDir, "hello.cue"), []byte("program: {}"), 0644))

	content := "idl: idl/hello.cue\n" + validScenario
	scenariosDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0755))
	path := writeScenario(t, scenariosDir, "s.yaml", content)

	_, err := LoadScenario(path)
	require.Error(t, err, "relative to the scenario file the IDL does not exist")

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "idl", "hello.cue"), scenario.IDL)
}

func TestLoadScenarioWithBasePath_AbsoluteIDLPath(t *testing.T) {
	dir := t.TempDir()
	idlPath := filepath.Join(dir, "hello.cue")
	require.NoError(t, os.WriteFile(idlPath, []byte("program: {}"), 0644))

	path := writeScenario(t, dir, "s.yaml", "idl: "+idlPath+"\n"+validScenario)

	scenario, err := LoadScenarioWithBasePath(path, "/some/other/base")
	require.NoError(t, err)
	assert.Equal(t, idlPath, scenario.IDL)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "event_contains", AssertEventContains)
	assert.Equal(t, "event_order", AssertEventOrder)
	assert.Equal(t, "event_count", AssertEventCount)
	assert.Equal(t, "final_state", AssertFinalState)
}

// TestLoadExampleScenarios validates the scenario files in testdata/scenarios.
func TestLoadExampleScenarios(t *testing.T) {
	tests := []struct {
		file           string
		wantSteps      int
		wantAssertions int
	}{
		{"hello_send_event.yaml", 1, 3},
		{"missing_signature.yaml", 2, 4},
		{"invalid_signature.yaml", 2, 2},
		{"multi_instruction.yaml", 2, 4},
		{"title_too_long.yaml", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", tt.file))
			require.NoError(t, err)

			assert.Equal(t, tt.file[:len(tt.file)-len(".yaml")], scenario.Name)
			assert.Len(t, scenario.Steps, tt.wantSteps)
			assert.Len(t, scenario.Assertions, tt.wantAssertions)
		})
	}
}
