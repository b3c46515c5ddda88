package mission

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// Definition is the YAML representation of a mission submitted by operators
// or external collaborators.
//
//	title: release readiness review
//	goal: assess the v2 release candidate
//	risk_level: medium
//	inputs:
//	  branch: release/v2
//	steps:
//	  - id: research
//	    capability: analysis
//	    team: core
//	  - id: report
//	    capability: writing
//	    deps: [research]
type Definition struct {
	Title     string            `yaml:"title" json:"title" validate:"required"`
	Goal      string            `yaml:"goal" json:"goal"`
	RiskLevel string            `yaml:"risk_level" json:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	Inputs    map[string]string `yaml:"inputs" json:"inputs"`
	Steps     []StepDefinition  `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
}

// StepDefinition is one step of a mission definition.
type StepDefinition struct {
	ID         string   `yaml:"id" json:"id" validate:"required"`
	Capability string   `yaml:"capability" json:"capability" validate:"required"`
	Team       string   `yaml:"team" json:"team"`
	Deps       []string `yaml:"deps" json:"deps"`
}

var validate = validator.New()

// ParseDefinition reads and validates a mission definition from a YAML file.
func ParseDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.MISSION_INVALID, "failed to read definition file", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, types.WrapError(types.MISSION_INVALID, "failed to parse definition YAML", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks required fields and value constraints.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return types.WrapError(types.MISSION_INVALID, "definition validation failed", err)
	}
	seen := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if seen[step.ID] {
			return types.NewError(types.MISSION_INVALID,
				fmt.Sprintf("duplicate step id: %s", step.ID))
		}
		seen[step.ID] = true
	}
	return nil
}

// Build constructs a Mission from the definition. The graph is validated at
// construction time; a cyclic definition never becomes a mission.
func (d *Definition) Build() (*Mission, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(d.Steps))
	for _, step := range d.Steps {
		nodes = append(nodes, &Node{
			StepID:     step.ID,
			Capability: step.Capability,
			TeamScope:  step.Team,
			Deps:       step.Deps,
		})
	}

	risk := RiskLevel(d.RiskLevel)
	if risk == "" {
		risk = RiskLevelLow
	}

	m, err := NewMission(d.Title, d.Goal, risk, nodes)
	if err != nil {
		return nil, err
	}
	return m.WithInputs(d.Inputs), nil
}
