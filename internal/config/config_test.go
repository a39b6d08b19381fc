package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/ir"
)

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ir.MustPubkey(hello.DefaultProgramID), cfg.Pubkey())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
program_id: "11111111111111111111111111111111"
marker: "Event:"
database: events.db
max_string_len: 64
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, "11111111111111111111111111111111", cfg.ProgramID)
	assert.Equal(t, "Event:", cfg.Marker)
	assert.Equal(t, "events.db", cfg.Database)
	assert.Equal(t, uint64(64), cfg.MaxStringLen)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	assert.Len(t, cfg.ProgramOptions(), 2)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database: x.db\n"))
	require.NoError(t, err)
	assert.Equal(t, hello.DefaultProgramID, cfg.ProgramID)
	assert.Equal(t, "Program data:", cfg.Marker)
	assert.Len(t, cfg.ProgramOptions(), 1)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "databse: x.db\n"},
		{"bad program id", "program_id: not-base58!\n"},
		{"marker with trailing space", "marker: \"Program data: \"\n"},
		{"string limit too large", "max_string_len: 4294967296\n"},
		{"bad log level", "log_level: loud\n"},
		{"not yaml", "program_id: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventprog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
