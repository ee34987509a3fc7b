package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted walk through one form.
// Each step performs one session operation and may check the resulting
// screen; the scenario ends with an optional check of the completion.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Form is the path of a definition file, relative to the scenario.
	// Exactly one of Form and Definition must be set.
	Form string `yaml:"form,omitempty"`

	// FormID selects one form when the definition file holds several.
	FormID string `yaml:"form_id,omitempty"`

	// Definition is an inline form definition in the YAML definition format.
	Definition yaml.Node `yaml:"definition,omitempty"`

	Steps []Step `yaml:"steps"`

	ExpectCompletion *CompletionExpect `yaml:"expect_completion,omitempty"`
}

// Step is one session operation.
type Step struct {
	// Action is one of record, clear, toggle, advance, retreat, sync.
	Action string `yaml:"action"`

	// Question is the target of record, clear and toggle.
	Question string `yaml:"question,omitempty"`

	// Value is the answer for record: a scalar or a list of scalars.
	Value any `yaml:"value,omitempty"`

	// Option is the option toggled by toggle.
	Option string `yaml:"option,omitempty"`

	// Expect checks the session after the action. Nil checks nothing.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect is a subset match on the displayed step. Unset fields are
// not checked.
type StepExpect struct {
	Questions  []string `yaml:"questions,omitempty"`
	Group      *string  `yaml:"group,omitempty"`
	CanAdvance *bool    `yaml:"can_advance,omitempty"`
	First      *bool    `yaml:"first,omitempty"`
	Last       *bool    `yaml:"last,omitempty"`
	Pointer    *int     `yaml:"pointer,omitempty"`
	Progress   *int     `yaml:"progress,omitempty"`

	// Outcome is checked for advance steps.
	Outcome string `yaml:"outcome,omitempty"`

	// Moved is checked for retreat steps.
	Moved *bool `yaml:"moved,omitempty"`
}

// CompletionExpect checks the end of the walk.
type CompletionExpect struct {
	Completed bool `yaml:"completed"`

	// Answers is an exact match of the answers handed to the completion
	// callback. Only checked when Completed is true.
	Answers map[string]any `yaml:"answers,omitempty"`
}

// Step actions.
const (
	ActionRecord  = "record"
	ActionClear   = "clear"
	ActionToggle  = "toggle"
	ActionAdvance = "advance"
	ActionRetreat = "retreat"
	ActionSync    = "sync"
)

var knownActions = map[string]bool{
	ActionRecord:  true,
	ActionClear:   true,
	ActionToggle:  true,
	ActionAdvance: true,
	ActionRetreat: true,
	ActionSync:    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The form path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Form != "" && !filepath.IsAbs(scenario.Form) {
		scenario.Form = filepath.Join(filepath.Dir(path), scenario.Form)
	}
	if scenario.Form != "" {
		if _, err := os.Stat(scenario.Form); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: form file not found: %s", scenario.Form)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. A relative form path is left as is.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "step:" vs "steps:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	hasInline := s.Definition.Kind != 0
	switch {
	case s.Form == "" && !hasInline:
		return fmt.Errorf("one of form or definition is required")
	case s.Form != "" && hasInline:
		return fmt.Errorf("form and definition are mutually exclusive")
	case hasInline && s.Definition.Kind != yaml.MappingNode:
		return fmt.Errorf("definition must be a mapping")
	}

	if len(s.Steps) == 0 && s.ExpectCompletion == nil {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	if !knownActions[step.Action] {
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
	}

	switch step.Action {
	case ActionRecord:
		if step.Question == "" {
			return fmt.Errorf("steps[%d]: question is required for record", i)
		}
		if step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for record (use clear to remove an answer)", i)
		}
	case ActionClear:
		if step.Question == "" {
			return fmt.Errorf("steps[%d]: question is required for clear", i)
		}
	case ActionToggle:
		if step.Question == "" || step.Option == "" {
			return fmt.Errorf("steps[%d]: question and option are required for toggle", i)
		}
	}

	if step.Expect == nil {
		return nil
	}
	if step.Expect.Outcome != "" && step.Action != ActionAdvance {
		return fmt.Errorf("steps[%d].expect: outcome only applies to advance", i)
	}
	if step.Expect.Moved != nil && step.Action != ActionRetreat {
		return fmt.Errorf("steps[%d].expect: moved only applies to retreat", i)
	}
	return nil
}
