package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rtmirror/rtmirror/internal/manifest"
)

// Scenario defines one deterministic sync run: a seeded remote tree, the
// watches to attach, the events to fire, and what the action trace must show.
type Scenario struct {
	// Name uniquely identifies this scenario (and names its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the remote tree at session start.
	Seed map[string]any `yaml:"seed,omitempty"`

	// Watches are attached in order before any step runs.
	Watches []manifest.Watch `yaml:"watches,omitempty"`

	// Steps run in order after the watches are attached.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the resulting trace and registry state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted event or registry operation. Exactly one field is set.
type Step struct {
	Put       *PutStep   `yaml:"put,omitempty"`
	Delete    *PathStep  `yaml:"delete,omitempty"`
	FireValue *PathStep  `yaml:"fire_value,omitempty"`
	FireChild *ChildStep `yaml:"fire_child,omitempty"`
	FireError *ErrorStep `yaml:"fire_error,omitempty"`
	FailFetch *ErrorStep `yaml:"fail_fetch,omitempty"`
	Watch     *WatchStep `yaml:"watch,omitempty"`
	Unwatch   *WatchStep `yaml:"unwatch,omitempty"`
}

// PutStep writes a value into the remote tree.
type PutStep struct {
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
}

// PathStep names a remote path.
type PathStep struct {
	Path string `yaml:"path"`
}

// ChildStep fires a child-level event at path/key.
type ChildStep struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	Key  string `yaml:"key"`
}

// ErrorStep carries a scripted failure.
type ErrorStep struct {
	Path    string `yaml:"path"`
	Message string `yaml:"message"`
}

// WatchStep submits or withdraws a watch mid-scenario.
type WatchStep struct {
	manifest.Watch `yaml:",inline"`

	// ExpectError marks a one-shot watch whose fetch is scripted to fail.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Watches) == 0 && len(s.Steps) == 0 {
		return fmt.Errorf("at least one watch or step is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(&a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step *Step) error {
	set := 0
	for _, present := range []bool{
		step.Put != nil,
		step.Delete != nil,
		step.FireValue != nil,
		step.FireChild != nil,
		step.FireError != nil,
		step.FailFetch != nil,
		step.Watch != nil,
		step.Unwatch != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one step field must be set, got %d", set)
	}
	if step.FireChild != nil && (step.FireChild.Kind == "" || step.FireChild.Key == "") {
		return fmt.Errorf("fire_child requires kind and key")
	}
	return nil
}
