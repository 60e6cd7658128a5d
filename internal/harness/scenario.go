package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arachne/internal/engine"
)

// Scenario defines a conformance test scenario: a model, the limits to
// explore it with, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path of the CUE model, a directory or a .cue file.
	// Relative paths are resolved against the scenario's base path.
	Model string `yaml:"model"`

	// Limits override the default limits when set.
	Limits *engine.Limits `yaml:"limits,omitempty"`

	// SessionID is the fixed ID the exploration is recorded under.
	// If empty, defaults to "scenario-<name>" so golden files are stable.
	SessionID string `yaml:"session_id,omitempty"`

	// Assertions validate the exploration outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of an exploration.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state_count": Number of explored states
	// - "terminal_count": Number of terminal states
	// - "pruned_count": Number of pruned states
	// - "stored_terminals": Number of terminal states in the session store
	// - "terminal_roles": Some terminal has exactly these run roles, in order
	// - "terminal_binding": Some terminal binds a read to a send of a role
	// - "terminal_message": Some terminal has an event with this message
	Type string `yaml:"type"`

	// Count is the exact expected number (count assertions).
	Count *int64 `yaml:"count,omitempty"`

	// Min is the minimum expected number (count assertions).
	Min *int64 `yaml:"min,omitempty"`

	// Roles is the expected run roles (terminal_roles).
	Roles []string `yaml:"roles,omitempty"`

	// Role names the run whose event is checked (terminal_binding,
	// terminal_message). Optional for terminal_message.
	Role string `yaml:"role,omitempty"`

	// Label selects the read event of Role (terminal_binding).
	Label string `yaml:"label,omitempty"`

	// BoundTo is the role of the run whose send the read is bound to
	// (terminal_binding).
	BoundTo string `yaml:"bound_to,omitempty"`

	// Message is the expected event message with bindings applied
	// (terminal_message).
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertStateCount      = "state_count"
	AssertTerminalCount   = "terminal_count"
	AssertPrunedCount     = "pruned_count"
	AssertStoredTerminals = "stored_terminals"
	AssertTerminalRoles   = "terminal_roles"
	AssertTerminalBinding = "terminal_binding"
	AssertTerminalMessage = "terminal_message"
)

// LoadScenario reads and parses a scenario YAML file. The model path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Model == "" {
		return errors.New("model is required")
	}
	if s.Limits != nil {
		if err := s.Limits.Validate(); err != nil {
			return fmt.Errorf("limits: %w", err)
		}
	}
	if len(s.Assertions) == 0 {
		return errors.New("at least one assertion is required")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStateCount, AssertTerminalCount, AssertPrunedCount, AssertStoredTerminals:
		if (a.Count == nil) == (a.Min == nil) {
			return fmt.Errorf("assertions[%d]: exactly one of count or min is required for %s", index, a.Type)
		}
		if (a.Count != nil && *a.Count < 0) || (a.Min != nil && *a.Min < 0) {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTerminalRoles:
		if len(a.Roles) == 0 {
			return fmt.Errorf("assertions[%d]: roles list is required for terminal_roles", index)
		}
	case AssertTerminalBinding:
		if a.Role == "" || a.Label == "" || a.BoundTo == "" {
			return fmt.Errorf("assertions[%d]: role, label and bound_to are required for terminal_binding", index)
		}
	case AssertTerminalMessage:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for terminal_message", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
