package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario executes a sequence of transactions against the program
// described by its IDL and asserts on the resulting trace and store.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// IDL is an optional path to a CUE interface file. Relative paths are
	// resolved against the scenario file. Empty uses the built-in hello IDL.
	IDL string `yaml:"idl,omitempty"`

	// MaxStringLen lowers the string limit applied when events are encoded.
	MaxStringLen uint64 `yaml:"max_string_len,omitempty"`

	// Steps are executed in order, one transaction each.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store.
	// Supported types: event_contains, event_order, event_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one transaction.
type Step struct {
	// Signers are key labels whose derived keys sign the transaction.
	Signers []string `yaml:"signers,omitempty"`

	// Tamper corrupts the first signature after signing.
	Tamper bool `yaml:"tamper,omitempty"`

	// Instructions run atomically in order.
	Instructions []InstructionStep `yaml:"instructions"`

	// Expect specifies the expected outcome. If nil the step must commit.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// InstructionStep is one instruction built from the IDL.
type InstructionStep struct {
	// Invoke is the instruction name (e.g., "send_event").
	Invoke string `yaml:"invoke"`

	// Args are the instruction arguments by IDL name.
	Args map[string]any `yaml:"args"`

	// Accounts maps IDL account names to key labels. Signer claims follow
	// the IDL; the runtime decides whether they hold.
	Accounts map[string]string `yaml:"accounts"`

	// Data overrides the encoded instruction data with raw hex. Accounts
	// are still taken from the IDL entry named by Invoke.
	Data string `yaml:"data,omitempty"`
}

// ExpectClause specifies the expected transaction outcome.
type ExpectClause struct {
	// State is committed, aborted, or rejected.
	State string `yaml:"state"`

	// Error is the expected error code when not committed
	// (e.g., MISSING_SIGNATURE, INVALID_SIGNATURE).
	Error string `yaml:"error,omitempty"`

	// Events is the expected number of decoded events, if set.
	Events *int `yaml:"events,omitempty"`
}

// Assertion validates trace or store state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_contains": an event named Name has Fields (subset match)
	// - "event_order": events named Names appear in this order
	// - "event_count": exactly Count events named Name
	// - "final_state": query a store table and verify expected values
	Type string `yaml:"type"`

	// Name is the event type name (event_contains, event_count).
	Name string `yaml:"name,omitempty"`

	// Fields are expected event fields (event_contains). Subset match.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Names is the expected event order (event_order).
	Names []string `yaml:"names,omitempty"`

	// Count is the expected number of occurrences (event_count).
	Count int `yaml:"count,omitempty"`

	// Table is the store table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state). All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
)

// Expected transaction states.
const (
	StateCommitted = "committed"
	StateAborted   = "aborted"
	StateRejected  = "rejected"
)

// LoadScenario reads and parses a scenario YAML file. The IDL path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the IDL path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.IDL != "" && !filepath.IsAbs(scenario.IDL) && basePath != "" {
		scenario.IDL = filepath.Join(basePath, scenario.IDL)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.IDL != "" {
		if _, err := os.Stat(s.IDL); os.IsNotExist(err) {
			return fmt.Errorf("idl file not found: %s", s.IDL)
		}
	}

	for i, step := range s.Steps {
		if len(step.Instructions) == 0 {
			return fmt.Errorf("steps[%d]: instructions list is required", i)
		}
		for j, ix := range step.Instructions {
			if ix.Invoke == "" {
				return fmt.Errorf("steps[%d].instructions[%d]: invoke is required", i, j)
			}
		}
		if step.Expect != nil {
			switch step.Expect.State {
			case StateCommitted, StateAborted, StateRejected:
			default:
				return fmt.Errorf("steps[%d].expect: state must be committed, aborted or rejected, got %q", i, step.Expect.State)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
