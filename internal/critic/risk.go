package critic

import (
	"context"
	"fmt"
	"strings"
)

// MetadataFailedKey is the artifact metadata flag producers set when the
// underlying work unit reported an explicit failure. Its presence forces the
// maximum risk score regardless of content.
const MetadataFailedKey = "failed"

// RiskCritic scores artifacts for operational risk. Scores are forced, not
// averaged: an explicit failure flag pins risk to 1.0, and unhandled-error
// indicators in the content pin it to at least 0.7.
type RiskCritic struct{}

// NewRiskCritic creates the risk critic.
func NewRiskCritic() *RiskCritic { return &RiskCritic{} }

// Name returns the critic identifier.
func (c *RiskCritic) Name() string { return "risk" }

// errorIndicators are content fragments that suggest the producer swallowed
// or surfaced an error it did not handle.
var errorIndicators = []string{
	"panic:",
	"unhandled error",
	"stack trace",
	"exception",
	"fatal:",
	"traceback",
}

// Review scores the artifact. The verdict is always Approved: risk gating is
// the merge policy's job, this critic only measures.
func (c *RiskCritic) Review(ctx context.Context, artifact *Artifact) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if failed, ok := artifact.Metadata[MetadataFailedKey].(bool); ok && failed {
		return &Verdict{
			Approved: true,
			Risk:     1.0,
			Fixes:    []string{"the producing step reported an explicit failure; rerun it and attach a clean result"},
			Notes:    "explicit failure flag set on artifact",
		}, nil
	}

	lower := strings.ToLower(artifact.Content)
	risk := 0.0
	var fixes []string

	for _, indicator := range errorIndicators {
		if strings.Contains(lower, indicator) {
			if risk < 0.7 {
				risk = 0.7
			}
			fixes = append(fixes, fmt.Sprintf("investigate the unhandled-error indicator %q in the artifact", indicator))
		}
	}

	verdict := &Verdict{Approved: true, Risk: risk, Fixes: fixes}
	if risk > 0 {
		verdict.Notes = fmt.Sprintf("risk %.2f from %d error indicator(s)", risk, len(fixes))
	} else {
		verdict.Notes = "no risk indicators"
	}
	return verdict, nil
}

var _ Critic = (*RiskCritic)(nil)
