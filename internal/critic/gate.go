package critic

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultRiskThreshold is the risk score at or above which an artifact cannot
// be auto-approved.
const DefaultRiskThreshold = 0.5

// Gate merge notes. Callers branch on these to decide between resubmitting
// the task with fixes and escalating to a human.
const (
	NoteRevisionRequired = "revision required"
	NoteHITLRequired     = "HITL required"
)

// WhiteGate runs every configured critic against an artifact and merges their
// verdicts under a single approval policy:
//
//	approved   = adversarial approved AND risk < threshold
//	merged risk = max over critics, forced to 1.0 on adversarial rejection
//
// A critic that errors has no opinion and is replaced by an approved
// zero-risk verdict, so one broken critic cannot block the pipeline.
type WhiteGate struct {
	adversarial Critic
	risk        Critic
	threshold   float64
	logger      *slog.Logger
	tracer      trace.Tracer
}

// GateOption is a functional option for configuring the WhiteGate.
type GateOption func(*WhiteGate)

// WithRiskThreshold overrides the auto-approval risk threshold.
func WithRiskThreshold(threshold float64) GateOption {
	return func(g *WhiteGate) {
		if threshold > 0 && threshold <= 1 {
			g.threshold = threshold
		}
	}
}

// WithGateLogger sets the structured logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *WhiteGate) {
		g.logger = logger
	}
}

// WithGateTracer sets the OpenTelemetry tracer for review spans.
func WithGateTracer(tracer trace.Tracer) GateOption {
	return func(g *WhiteGate) {
		g.tracer = tracer
	}
}

// NewWhiteGate creates the gate over the two critics.
func NewWhiteGate(adversarial, risk Critic, opts ...GateOption) *WhiteGate {
	g := &WhiteGate{
		adversarial: adversarial,
		risk:        risk,
		threshold:   DefaultRiskThreshold,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured risk threshold.
func (g *WhiteGate) Threshold() float64 { return g.threshold }

// Review runs both critics concurrently and merges their verdicts.
func (g *WhiteGate) Review(ctx context.Context, artifact *Artifact) (*Verdict, error) {
	var span trace.Span
	if g.tracer != nil {
		ctx, span = g.tracer.Start(ctx, "gate.review",
			trace.WithAttributes(
				attribute.String("gate.step_id", artifact.StepID),
				attribute.String("gate.capability", artifact.Capability),
			),
		)
		defer span.End()
	}

	var adversarial, risk *Verdict
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		adversarial = g.reviewWith(gctx, g.adversarial, artifact)
		return nil
	})
	grp.Go(func() error {
		risk = g.reviewWith(gctx, g.risk, artifact)
		return nil
	})
	// Critics never propagate errors, so Wait only orders the writes above.
	_ = grp.Wait()

	merged := merge(adversarial, risk, g.threshold)
	if span != nil {
		span.SetAttributes(
			attribute.Bool("gate.approved", merged.Approved),
			attribute.Float64("gate.risk", merged.Risk),
		)
	}
	g.logger.InfoContext(ctx, "gate verdict",
		"step_id", artifact.StepID,
		"approved", merged.Approved,
		"risk", merged.Risk,
		"fixes", len(merged.Fixes),
	)
	return merged, nil
}

// reviewWith runs one critic and substitutes an approved zero-risk verdict
// when it errors or returns nil.
func (g *WhiteGate) reviewWith(ctx context.Context, c Critic, artifact *Artifact) *Verdict {
	verdict, err := c.Review(ctx, artifact)
	if err != nil || verdict == nil {
		g.logger.WarnContext(ctx, "critic has no opinion, substituting approval",
			"critic", c.Name(), "step_id", artifact.StepID, "error", err)
		return &Verdict{Approved: true, Notes: c.Name() + " unavailable"}
	}
	return verdict
}

// merge applies the approval policy to the two verdicts.
func merge(adversarial, risk *Verdict, threshold float64) *Verdict {
	mergedRisk := risk.Risk
	if adversarial.Risk > mergedRisk {
		mergedRisk = adversarial.Risk
	}
	if !adversarial.Approved {
		mergedRisk = 1.0
	}

	approved := adversarial.Approved && risk.Risk < threshold

	fixes := make([]string, 0, len(adversarial.Fixes)+len(risk.Fixes))
	fixes = append(fixes, adversarial.Fixes...)
	fixes = append(fixes, risk.Fixes...)

	notes := []string{}
	if adversarial.Notes != "" {
		notes = append(notes, adversarial.Notes)
	}
	if risk.Notes != "" {
		notes = append(notes, risk.Notes)
	}
	if !adversarial.Approved {
		notes = append(notes, NoteRevisionRequired)
	}
	if risk.Risk >= threshold {
		notes = append(notes, NoteHITLRequired)
	}

	return &Verdict{
		Approved: approved,
		Fixes:    fixes,
		Risk:     mergedRisk,
		Notes:    strings.Join(notes, "; "),
	}
}
