// Package critic implements the adversarial quality-review pipeline: two
// independent critics, the White Gate merge policy, and the human-in-the-loop
// escalation queue.
package critic

import (
	"context"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// Artifact is a candidate result under review.
type Artifact struct {
	// RunID and StepID identify the producing node.
	RunID  types.ID `json:"run_id"`
	StepID string   `json:"step_id"`

	// Capability names the specialist type that produced the artifact.
	Capability string `json:"capability"`

	// Content is the artifact body being reviewed.
	Content string `json:"content"`

	// ProducerID identifies the winning specialist, for revision routing.
	ProducerID string `json:"producer_id,omitempty"`

	// Metadata carries execution signals the risk critic inspects, such as
	// an explicit failure flag.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Verdict is one critic's judgment of an artifact. Verdicts are produced
// fresh per call and never mutated after construction.
type Verdict struct {
	// Approved reflects whether the artifact passed this critic.
	Approved bool `json:"approved"`

	// Fixes is an ordered list of remediation instructions.
	Fixes []string `json:"fixes,omitempty"`

	// Risk is the critic's risk score in [0,1].
	Risk float64 `json:"risk"`

	// Notes is free-text rationale.
	Notes string `json:"notes,omitempty"`
}

// Critic reviews candidate artifacts. A critic that returns an error is
// treated as having no opinion: the gate substitutes an approved zero-risk
// verdict so a critic outage degrades gracefully instead of deadlocking the
// pipeline. That substitution is logged as an explicit policy decision.
type Critic interface {
	// Name returns the critic identifier, used in merged notes and logs.
	Name() string

	// Review judges the artifact.
	Review(ctx context.Context, artifact *Artifact) (*Verdict, error)
}
