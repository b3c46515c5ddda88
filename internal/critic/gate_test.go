package critic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticCritic returns a fixed verdict or error.
type staticCritic struct {
	name    string
	verdict *Verdict
	err     error
}

func (c *staticCritic) Name() string { return c.name }

func (c *staticCritic) Review(ctx context.Context, artifact *Artifact) (*Verdict, error) {
	return c.verdict, c.err
}

func TestWhiteGateMerge(t *testing.T) {
	artifact := &Artifact{StepID: "s1", Content: "fine"}

	tests := []struct {
		name         string
		adversarial  *Verdict
		risk         *Verdict
		wantApproved bool
		wantRisk     float64
		wantNotes    []string
		absentNotes  []string
	}{
		{
			name:         "both clean approves",
			adversarial:  &Verdict{Approved: true},
			risk:         &Verdict{Approved: true, Risk: 0.1},
			wantApproved: true,
			wantRisk:     0.1,
			absentNotes:  []string{NoteRevisionRequired, NoteHITLRequired},
		},
		{
			name:         "adversarial rejection forces risk to one",
			adversarial:  &Verdict{Approved: false, Fixes: []string{"fix it"}},
			risk:         &Verdict{Approved: true, Risk: 0.1},
			wantApproved: false,
			wantRisk:     1.0,
			wantNotes:    []string{NoteRevisionRequired},
			absentNotes:  []string{NoteHITLRequired},
		},
		{
			name:         "risk at threshold blocks approval",
			adversarial:  &Verdict{Approved: true},
			risk:         &Verdict{Approved: true, Risk: 0.5},
			wantApproved: false,
			wantRisk:     0.5,
			wantNotes:    []string{NoteHITLRequired},
			absentNotes:  []string{NoteRevisionRequired},
		},
		{
			name:         "risk just below threshold approves",
			adversarial:  &Verdict{Approved: true},
			risk:         &Verdict{Approved: true, Risk: 0.49},
			wantApproved: true,
			wantRisk:     0.49,
		},
		{
			name:         "rejection with high risk carries both notes",
			adversarial:  &Verdict{Approved: false},
			risk:         &Verdict{Approved: true, Risk: 0.9},
			wantApproved: false,
			wantRisk:     1.0,
			wantNotes:    []string{NoteRevisionRequired, NoteHITLRequired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewWhiteGate(
				&staticCritic{name: "adversarial", verdict: tt.adversarial},
				&staticCritic{name: "risk", verdict: tt.risk},
			)
			verdict, err := gate.Review(context.Background(), artifact)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApproved, verdict.Approved)
			assert.InDelta(t, tt.wantRisk, verdict.Risk, 1e-9)
			for _, note := range tt.wantNotes {
				assert.Contains(t, verdict.Notes, note)
			}
			for _, note := range tt.absentNotes {
				assert.NotContains(t, verdict.Notes, note)
			}
		})
	}
}

func TestWhiteGateRejectionWithHighRiskKeepsRevisionNote(t *testing.T) {
	gate := NewWhiteGate(
		&staticCritic{name: "adversarial", verdict: &Verdict{Approved: false, Fixes: []string{"fix the logic"}}},
		&staticCritic{name: "risk", verdict: &Verdict{Approved: true, Risk: 0.9}},
	)
	verdict, err := gate.Review(context.Background(), &Artifact{StepID: "s1"})
	require.NoError(t, err)

	// A high risk score escalates, but it never hides that the adversarial
	// critic also demanded a revision.
	assert.False(t, verdict.Approved)
	assert.InDelta(t, 1.0, verdict.Risk, 1e-9)
	assert.Contains(t, verdict.Notes, NoteRevisionRequired)
	assert.Contains(t, verdict.Notes, NoteHITLRequired)
}

func TestWhiteGateMergesFixes(t *testing.T) {
	gate := NewWhiteGate(
		&staticCritic{name: "adversarial", verdict: &Verdict{Approved: false, Fixes: []string{"a", "b"}}},
		&staticCritic{name: "risk", verdict: &Verdict{Approved: true, Risk: 0.2, Fixes: []string{"c"}}},
	)
	verdict, err := gate.Review(context.Background(), &Artifact{StepID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, verdict.Fixes)
}

func TestWhiteGateCriticErrorHasNoOpinion(t *testing.T) {
	gate := NewWhiteGate(
		&staticCritic{name: "adversarial", err: errors.New("critic down")},
		&staticCritic{name: "risk", verdict: &Verdict{Approved: true, Risk: 0.1}},
	)
	verdict, err := gate.Review(context.Background(), &Artifact{StepID: "s1"})
	require.NoError(t, err)
	assert.True(t, verdict.Approved, "an erroring critic must not block the pipeline")
	assert.InDelta(t, 0.1, verdict.Risk, 1e-9)
}

func TestWhiteGateCustomThreshold(t *testing.T) {
	gate := NewWhiteGate(
		&staticCritic{name: "adversarial", verdict: &Verdict{Approved: true}},
		&staticCritic{name: "risk", verdict: &Verdict{Approved: true, Risk: 0.6}},
		WithRiskThreshold(0.7),
	)
	assert.InDelta(t, 0.7, gate.Threshold(), 1e-9)

	verdict, err := gate.Review(context.Background(), &Artifact{StepID: "s1"})
	require.NoError(t, err)
	assert.True(t, verdict.Approved)
}
