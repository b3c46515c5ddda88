package specialist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// ErrNoCandidates is returned when zero specialists produced a contribution.
// It is distinct from individual specialist failures, which are excluded from
// the auction and logged: the scheduler fails the node only on this error.
var ErrNoCandidates = types.NewError(types.NO_CANDIDATES, "no specialist produced a result")

// AuctionResult is the synthesized outcome of one auction.
type AuctionResult struct {
	// Winner is the highest-confidence contribution.
	Winner *Contribution

	// Response is the synthesized artifact: the winner's response first,
	// followed by suggestions gathered from non-winning contributions,
	// tagged by specialist ID.
	Response string

	// Contributors lists the specialist IDs whose output fed the synthesis,
	// winner first.
	Contributors []string

	// Diversity counts distinct response contents across all contributions.
	// Surfaced for observability and benchmarking; never gates selection.
	Diversity int
}

// Coordinator invokes all eligible specialists for a capability concurrently
// and selects a winner by confidence.
type Coordinator struct {
	registry *Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	timeout  time.Duration
}

// CoordinatorOption is a functional option for configuring the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the structured logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithCoordinatorTracer sets the OpenTelemetry tracer for auction spans.
func WithCoordinatorTracer(tracer trace.Tracer) CoordinatorOption {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// WithAuctionTimeout sets the shared completion deadline for one auction.
func WithAuctionTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCoordinator creates a coordinator over the given registry.
// Default auction timeout: 2 minutes.
func NewCoordinator(registry *Registry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry: registry,
		logger:   slog.Default(),
		timeout:  2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs the auction for one node: every eligible specialist is invoked
// concurrently with the same task context and a shared deadline. A specialist
// that returns an error is excluded; if none survive, ErrNoCandidates is
// returned and the node fails.
func (c *Coordinator) Execute(ctx context.Context, capability string, task TaskContext) (*AuctionResult, error) {
	eligible := c.registry.ForCapability(capability)
	if len(eligible) == 0 {
		return nil, types.NewError(types.CAPABILITY_UNBOUND,
			fmt.Sprintf("no specialists registered for capability %s", capability))
	}

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "auction.execute",
			trace.WithAttributes(
				attribute.String("auction.capability", capability),
				attribute.String("auction.step_id", task.StepID),
				attribute.Int("auction.eligible", len(eligible)),
			),
		)
		defer span.End()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu            sync.Mutex
		contributions []*Contribution
		wg            sync.WaitGroup
	)

	for _, s := range eligible {
		wg.Add(1)
		go func(s Specialist) {
			defer wg.Done()

			contribution, err := s.Propose(ctx, task)
			if err != nil {
				// Excluded from the auction, not fatal to the node.
				c.logger.WarnContext(ctx, "specialist excluded from auction",
					"specialist", s.Name(), "step_id", task.StepID, "error", err)
				return
			}
			if contribution == nil {
				c.logger.WarnContext(ctx, "specialist returned nil contribution",
					"specialist", s.Name(), "step_id", task.StepID)
				return
			}
			if contribution.SpecialistID == "" {
				contribution.SpecialistID = s.Name()
			}

			mu.Lock()
			contributions = append(contributions, contribution)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	if len(contributions) == 0 {
		return nil, ErrNoCandidates
	}

	result := synthesize(contributions)
	if span != nil {
		span.SetAttributes(
			attribute.String("auction.winner", result.Winner.SpecialistID),
			attribute.Float64("auction.confidence", result.Winner.Confidence),
			attribute.Int("auction.diversity", result.Diversity),
		)
	}
	c.logger.InfoContext(ctx, "auction settled",
		"step_id", task.StepID,
		"capability", capability,
		"winner", result.Winner.SpecialistID,
		"confidence", result.Winner.Confidence,
		"contributions", len(contributions),
		"diversity", result.Diversity,
	)
	return result, nil
}

// synthesize picks the highest-confidence contribution and embeds its
// response first, followed by non-winning suggestions tagged by specialist.
func synthesize(contributions []*Contribution) *AuctionResult {
	winner := contributions[0]
	for _, c := range contributions[1:] {
		if c.Confidence > winner.Confidence {
			winner = c
		}
	}

	distinct := make(map[string]struct{}, len(contributions))
	for _, c := range contributions {
		distinct[c.Response] = struct{}{}
	}

	var b strings.Builder
	b.WriteString(winner.Response)

	contributors := []string{winner.SpecialistID}
	for _, c := range contributions {
		if c == winner {
			continue
		}
		for _, suggestion := range c.Suggestions {
			fmt.Fprintf(&b, "\n[%s] %s", c.SpecialistID, suggestion)
		}
		if len(c.Suggestions) > 0 {
			contributors = append(contributors, c.SpecialistID)
		}
	}

	return &AuctionResult{
		Winner:       winner,
		Response:     b.String(),
		Contributors: contributors,
		Diversity:    len(distinct),
	}
}
