// Package orchestrator wires the specialist auction and the critic gate into
// the workflow scheduler: every mission node runs as auction, review, bounded
// revision, and, when automated review cannot settle it, human escalation.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/critic"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/specialist"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/workflow"
)

// DefaultMaxRevisions bounds how many times a rejected artifact is sent back
// to the auction with fixes before the node escalates to a human.
const DefaultMaxRevisions = 2

// Orchestrator owns one mission pipeline end to end: persistence via the
// scheduler's stores, artifact production via the coordinator, and quality
// control via the gate and approval queue.
type Orchestrator struct {
	scheduler    *workflow.Scheduler
	coordinator  *specialist.Coordinator
	gate         *critic.WhiteGate
	store        mission.Store
	events       mission.EventStore
	approvals    *critic.ApprovalQueue
	emitter      mission.EventEmitter
	logger       *slog.Logger
	tracer       trace.Tracer
	maxRevisions int
	maxParallel  int
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithOrchestratorLogger sets the structured logger.
func WithOrchestratorLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithOrchestratorTracer sets the OpenTelemetry tracer.
func WithOrchestratorTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithMaxRevisions bounds the revision loop per node.
func WithMaxRevisions(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRevisions = n
		}
	}
}

// WithOrchestratorMaxParallel bounds concurrent tasks per run.
func WithOrchestratorMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithOrchestratorEmitter mirrors run events to in-process subscribers.
func WithOrchestratorEmitter(emitter mission.EventEmitter) Option {
	return func(o *Orchestrator) {
		o.emitter = emitter
	}
}

// New creates an orchestrator over the given stores and review pipeline. The
// approval queue is created here so its resolution callback can persist human
// decisions back onto mission nodes.
func New(store mission.Store, events mission.EventStore, coordinator *specialist.Coordinator, gate *critic.WhiteGate, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		coordinator:  coordinator,
		gate:         gate,
		store:        store,
		events:       events,
		logger:       slog.Default(),
		maxRevisions: DefaultMaxRevisions,
		maxParallel:  4,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.approvals = critic.NewApprovalQueue(o.applyApproval)

	schedulerOpts := []workflow.SchedulerOption{
		workflow.WithLogger(o.logger),
		workflow.WithMaxParallel(o.maxParallel),
	}
	if o.tracer != nil {
		schedulerOpts = append(schedulerOpts, workflow.WithTracer(o.tracer))
	}
	if o.emitter != nil {
		schedulerOpts = append(schedulerOpts, workflow.WithEmitter(o.emitter))
	}
	o.scheduler = workflow.NewScheduler(store, events, schedulerOpts...)
	return o
}

// Scheduler exposes the underlying scheduler.
func (o *Orchestrator) Scheduler() *workflow.Scheduler { return o.scheduler }

// Approvals exposes the human-in-the-loop queue.
func (o *Orchestrator) Approvals() *critic.ApprovalQueue { return o.approvals }

// Store exposes the mission store for read paths.
func (o *Orchestrator) Store() mission.Store { return o.store }

// Events exposes the event store for replay paths.
func (o *Orchestrator) Events() mission.EventStore { return o.events }

// escalationError is the failure a node reports when its artifact is parked
// for human review. The run still terminates with the node failed; approving
// the parked artifact later repairs the node for resume.
type escalationError struct {
	approvalID types.ID
	notes      string
}

func (e *escalationError) Error() string {
	return fmt.Sprintf("escalated to human review (approval %s): %s", e.approvalID, e.notes)
}

// EscalationID extracts the approval ID from a task error, if the task failed
// by escalating.
func EscalationID(err error) (types.ID, bool) {
	var esc *escalationError
	if errors.As(err, &esc) {
		return esc.approvalID, true
	}
	return "", false
}
