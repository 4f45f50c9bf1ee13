package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formgraph/internal/cycle"
)

// Scenario is one declarative conformance test.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Principles is the inline principles document to run.
	Principles cycle.Principles `yaml:"principles"`

	// Options tune the cycle run.
	Options Options `yaml:"options,omitempty"`

	// Assertions validate the run's outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Options are the scenario-level cycle settings.
type Options struct {
	// FixpointMaxIters bounds the fixpoint loop; 0 keeps the default.
	FixpointMaxIters int `yaml:"fixpoint_max_iters,omitempty"`

	// Threshold is the action stage's score threshold.
	Threshold float64 `yaml:"threshold,omitempty"`
}

// Assertion validates one aspect of a completed run.
//
// Types:
//   - graph_count: Kind (entity/property/relation) appears Count times
//   - relation_exists: relation ID is present in the graph
//   - task_ids: planned task ids equal IDs exactly, in order
//   - iterations: the fixpoint loop ran Count times
//   - event_count: events of Kind were published Count times
type Assertion struct {
	Type  string   `yaml:"type"`
	Kind  string   `yaml:"kind,omitempty"`
	ID    string   `yaml:"id,omitempty"`
	IDs   []string `yaml:"ids,omitempty"`
	Count int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertGraphCount     = "graph_count"
	AssertRelationExists = "relation_exists"
	AssertTaskIDs        = "task_ids"
	AssertIterations     = "iterations"
	AssertEventCount     = "event_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typoed keys fail loudly instead of silently skipping an
// assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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
	if len(s.Principles.Shapes) == 0 {
		return fmt.Errorf("principles needs at least one shape")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertGraphCount:
		switch a.Kind {
		case "entity", "property", "relation":
		default:
			return fmt.Errorf("assertions[%d]: graph_count kind must be entity, property, or relation", index)
		}
	case AssertRelationExists:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: relation_exists needs an id", index)
		}
	case AssertTaskIDs:
		if len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: task_ids needs a non-empty ids list", index)
		}
	case AssertIterations:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: iterations count must be at least 1", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: event_count needs an event kind", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: event_count count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
