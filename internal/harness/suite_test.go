package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	for _, name := range []string{"b.yaml", "a.yml", "nested/c.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	paths, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, paths)
}

func TestFindScenarios_MissingDir(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestRunSuite_Testdata(t *testing.T) {
	result, err := RunSuite(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalScenarios)
	assert.Equal(t, 5, result.Passed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestRunSuite_CollectsFailures(t *testing.T) {
	dir := t.TempDir()

	failing := `name: wrong_count
description: Asserts two events where one is emitted
steps:
  - signers: [alice]
    instructions:
      - invoke: send_event
        args: {data: 1, title: one}
        accounts: {sender: alice}
assertions:
  - type: event_count
    name: HelloEvent
    count: 2
`
	broken := `name: broken
description: Unknown top-level key
stepz: []
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_failing.yaml"), []byte(failing), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_broken.yaml"), []byte(broken), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalScenarios)
	assert.Zero(t, result.Passed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)

	assert.Equal(t, "wrong_count", result.Failures[0].Scenario)
	require.Len(t, result.Failures[0].Errors, 1)
	assert.Contains(t, result.Failures[0].Errors[0], "2 occurrences of HelloEvent")

	assert.Empty(t, result.Failures[1].Scenario)
	assert.Contains(t, result.Failures[1].Errors[0], "failed to parse YAML")
}
