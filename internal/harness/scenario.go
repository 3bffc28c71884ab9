package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/catalog/internal/revision"
)

// Scenario is a scripted sequence of catalog edits with assertions on the
// resulting state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order against a fresh in-memory store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	// Supported types: entity, resolves, history, table_count
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine operation. Exactly one of Submit, Merge and Delete is set.
//
// Strings of the form "$key" refer to the bbid bound to key by an earlier
// submit step. Bare keys inside a submit refer to entities of the same
// submission.
type Step struct {
	Submit *SubmitStep `yaml:"submit,omitempty"`
	Merge  *MergeStep  `yaml:"merge,omitempty"`
	Delete *DeleteStep `yaml:"delete,omitempty"`

	// Expect checks the step outcome. Without it the step must succeed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// SubmitStep is a multi-entity submission.
type SubmitStep struct {
	Editor   int64                           `yaml:"editor,omitempty"`
	Note     string                          `yaml:"note,omitempty"`
	Entities map[string]revision.EntityInput `yaml:"entities"`
}

// MergeStep merges Sources into Target.
type MergeStep struct {
	Editor  int64    `yaml:"editor,omitempty"`
	Note    string   `yaml:"note,omitempty"`
	Target  string   `yaml:"target"`
	Sources []string `yaml:"sources"`
}

// DeleteStep tombstones an entity.
type DeleteStep struct {
	Editor int64  `yaml:"editor,omitempty"`
	Note   string `yaml:"note,omitempty"`
	BBID   string `yaml:"bbid"`
}

// StepExpect specifies the expected outcome of a step.
type StepExpect struct {
	// Error is the expected error code, e.g. NO_CHANGE or INVALID_MERGE.
	Error string `yaml:"error,omitempty"`

	// Revision is the expected revision id of a successful step.
	Revision int64 `yaml:"revision,omitempty"`

	// Touched lists the expected touched entities in write order.
	Touched []string `yaml:"touched,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "entity": fetch BBID and compare Expect against its summary
	// - "resolves": BBID resolves to To
	// - "history": compare Expect against BBID's history
	// - "table_count": Table holds exactly Count rows
	Type string `yaml:"type"`

	BBID string `yaml:"bbid,omitempty"`
	To   string `yaml:"to,omitempty"`

	Table string `yaml:"table,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Expect is a subset match against the summary fields.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEntity     = "entity"
	AssertResolves   = "resolves"
	AssertHistory    = "history"
	AssertTableCount = "table_count"
)

// Operation names used in traces.
const (
	OpSubmit = "submit"
	OpMerge  = "merge"
	OpDelete = "delete"
)

// Op returns the operation the step performs, or "" when none or several
// are set.
func (s *Step) Op() string {
	op, n := "", 0
	if s.Submit != nil {
		op, n = OpSubmit, n+1
	}
	if s.Merge != nil {
		op, n = OpMerge, n+1
	}
	if s.Delete != nil {
		op, n = OpDelete, n+1
	}
	if n != 1 {
		return ""
	}
	return op
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		switch step.Op() {
		case OpSubmit:
			if len(step.Submit.Entities) == 0 {
				return fmt.Errorf("steps[%d]: submit needs at least one entity", i)
			}
		case OpMerge:
			if step.Merge.Target == "" || len(step.Merge.Sources) == 0 {
				return fmt.Errorf("steps[%d]: merge needs a target and sources", i)
			}
		case OpDelete:
			if step.Delete.BBID == "" {
				return fmt.Errorf("steps[%d]: delete needs a bbid", i)
			}
		default:
			return fmt.Errorf("steps[%d]: exactly one of submit, merge or delete is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" && (step.Expect.Revision != 0 || len(step.Expect.Touched) > 0) {
			return fmt.Errorf("steps[%d].expect: error excludes revision and touched", i)
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
	case AssertEntity, AssertHistory:
		if a.BBID == "" {
			return fmt.Errorf("assertions[%d]: bbid is required for %s", index, a.Type)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertResolves:
		if a.BBID == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: bbid and to are required for resolves", index)
		}
	case AssertTableCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for table_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
