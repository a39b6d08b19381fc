// Package config loads eventprog's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eventprog/internal/codec"
	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
)

// Config is the file-level configuration. Zero fields take defaults.
type Config struct {
	// ProgramID is the base58 address the hello program runs under.
	ProgramID string `yaml:"program_id"`

	// Marker prefixes event lines.
	Marker string `yaml:"marker"`

	// Database is the SQLite path used for indexing. Empty disables indexing.
	Database string `yaml:"database"`

	// MaxStringLen caps encoded string fields. 0 means the u32 prefix limit.
	MaxStringLen uint64 `yaml:"max_string_len"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// IDL is an optional path to a CUE interface file used for decoding.
	IDL string `yaml:"idl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ProgramID: hello.DefaultProgramID,
		Marker:    program.DefaultMarker,
		LogLevel:  "info",
	}
}

// Load reads path and applies defaults. Unknown keys are rejected so typos
// surface instead of being ignored.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.ProgramID == "" {
		c.ProgramID = d.ProgramID
	}
	if c.Marker == "" {
		c.Marker = d.Marker
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := ir.ParsePubkey(c.ProgramID); err != nil {
		return fmt.Errorf("program_id: %w", err)
	}
	if strings.TrimSpace(c.Marker) != c.Marker {
		return errors.New("marker must not have leading or trailing whitespace")
	}
	if c.MaxStringLen > codec.MaxStringLen {
		return fmt.Errorf("max_string_len %d exceeds %d", c.MaxStringLen, uint64(codec.MaxStringLen))
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Pubkey returns the parsed program ID. Valid after Validate.
func (c Config) Pubkey() ir.Pubkey {
	pk, _ := ir.ParsePubkey(c.ProgramID)
	return pk
}

// ProgramOptions returns the dispatcher options implied by c.
func (c Config) ProgramOptions() []program.Option {
	opts := []program.Option{program.WithMarker(c.Marker)}
	if c.MaxStringLen > 0 {
		opts = append(opts, program.WithStringLimit(c.MaxStringLen))
	}
	return opts
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
}
