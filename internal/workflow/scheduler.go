package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// ReasonUnresolvedDependencies is the failure reason recorded on tasks whose
// dependency chain contains a failure.
const ReasonUnresolvedDependencies = "unresolved dependencies"

// Scheduler drives a workflow's state machine to completion, emitting events
// to the event log and node snapshots to the mission store. Tasks in the same
// ready set execute concurrently, bounded by MaxParallel.
type Scheduler struct {
	store       mission.Store
	events      mission.EventStore
	emitter     mission.EventEmitter
	logger      *slog.Logger
	tracer      trace.Tracer
	maxParallel int
}

// SchedulerOption is a functional option for configuring the Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the structured logger used during runs.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for run and task spans.
func WithTracer(tracer trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithMaxParallel bounds how many tasks execute concurrently within a run.
func WithMaxParallel(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// WithEmitter sets an in-process emitter that mirrors appended events to
// subscribers. The emitter is observability only; the event store remains the
// source of truth.
func WithEmitter(emitter mission.EventEmitter) SchedulerOption {
	return func(s *Scheduler) {
		s.emitter = emitter
	}
}

// NewScheduler creates a scheduler over the given stores.
// Defaults: slog.Default(), MaxParallel 4.
func NewScheduler(store mission.Store, events mission.EventStore, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:       store,
		events:      events,
		logger:      slog.Default(),
		maxParallel: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWorkflow persists the mission definition and returns a bound,
// runnable workflow. The mission ID is the run ID.
func (s *Scheduler) CreateWorkflow(ctx context.Context, m *mission.Mission, binder Binder) (*Workflow, error) {
	if err := mission.ValidateGraph(&m.Graph); err != nil {
		return nil, err
	}
	wf, err := newWorkflow(m, binder)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, m); err != nil {
		return nil, err
	}
	return wf, nil
}

// LoadWorkflow reconstructs a resumable workflow from the mission store,
// re-attaching executable bindings by capability. Nodes persisted as
// succeeded are not re-executed; nodes last seen running come back pending.
func (s *Scheduler) LoadWorkflow(ctx context.Context, runID types.ID, binder Binder) (*Workflow, error) {
	m, err := s.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return newWorkflow(m, binder)
}

// ReplayEvents returns the run's event log in append order.
func (s *Scheduler) ReplayEvents(ctx context.Context, runID types.ID) ([]*mission.Event, error) {
	return s.events.Replay(ctx, runID)
}

// completion carries one finished task from its worker goroutine back to the
// scheduling loop.
type completion struct {
	task   *Task
	output *TaskOutput
	err    error
}

// Run drives the workflow to completion and returns the final task map.
// Every task ends in a terminal state. Persistence failures abort the run
// immediately: a scheduler that cannot record progress must not keep going.
func (s *Scheduler) Run(ctx context.Context, wf *Workflow) (map[string]*Task, error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "workflow.run",
			trace.WithAttributes(
				attribute.String("run.id", wf.RunID.String()),
				attribute.Int("run.node_count", len(wf.Tasks)),
			),
		)
		defer span.End()
	}

	s.logger.InfoContext(ctx, "starting run",
		"run_id", wf.RunID,
		"node_count", len(wf.Tasks),
		"max_parallel", s.maxParallel,
	)
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, s.maxParallel)
	done := make(chan completion)
	running := 0

	// Initial pass: every pending task whose dependencies already succeeded
	// (all roots, plus anything downstream of previously resumed work).
	for _, task := range wf.Tasks {
		if task.State == TaskStatePending && wf.depsSucceeded(task) {
			task.State = TaskStateReady
		}
	}

	dispatch := func(task *Task) error {
		if err := s.recordStart(ctx, wf, task); err != nil {
			return err
		}
		running++
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			taskStart := time.Now()
			out, err := task.run(ctx, task)
			task.Runtime = time.Since(taskStart)
			done <- completion{task: task, output: out, err: err}
		}()
		return nil
	}

	for _, task := range wf.Tasks {
		if task.State == TaskStateReady {
			if err := s.dispatchOne(dispatch, task); err != nil {
				cancel()
				s.drain(done, running)
				return wf.Tasks, err
			}
		}
	}

	// Advance on each completion, recomputing readiness only for the
	// finished task's dependents rather than rescanning the whole graph.
	for running > 0 {
		c := <-done
		running--

		if err := s.recordCompletion(ctx, wf, c); err != nil {
			cancel()
			s.drain(done, running)
			return wf.Tasks, err
		}

		if c.task.State == TaskStateSucceeded {
			for _, depID := range wf.dependents[c.task.ID] {
				dep := wf.Tasks[depID]
				if dep.State == TaskStatePending && wf.depsSucceeded(dep) {
					dep.State = TaskStateReady
					if err := s.dispatchOne(dispatch, dep); err != nil {
						cancel()
						s.drain(done, running)
						return wf.Tasks, err
					}
				}
			}
		}
	}

	// Terminal cascade: nothing ready, nothing running. Whatever is still
	// pending has a failed dependency somewhere upstream.
	if err := s.failStranded(ctx, wf); err != nil {
		return wf.Tasks, err
	}

	s.logger.InfoContext(ctx, "run finished",
		"run_id", wf.RunID,
		"duration", time.Since(start),
	)
	return wf.Tasks, nil
}

// dispatchOne marks the task running and dispatches it, translating dispatch
// errors into run-fatal persistence failures.
func (s *Scheduler) dispatchOne(dispatch func(*Task) error, task *Task) error {
	task.State = TaskStateRunning
	if err := dispatch(task); err != nil {
		task.State = TaskStateReady
		return err
	}
	return nil
}

// drain waits for in-flight workers after a fatal error so their goroutines
// do not leak into later tests or runs.
func (s *Scheduler) drain(done chan completion, running int) {
	for i := 0; i < running; i++ {
		<-done
	}
}

// recordStart appends the start event and persists the running snapshot
// before the task's work is invoked.
func (s *Scheduler) recordStart(ctx context.Context, wf *Workflow, task *Task) error {
	node := wf.Mission.Node(task.ID)
	event := mission.NewEvent(wf.RunID, node, mission.EventStart, mission.NodeStatusRunning, nil)
	if err := s.events.Append(ctx, event); err != nil {
		return err
	}
	s.emit(ctx, event)

	if err := s.store.UpdateNodeState(ctx, wf.RunID, task.ID, mission.NodeStatusRunning, "", ""); err != nil {
		return err
	}
	node.Status = mission.NodeStatusRunning

	s.logger.InfoContext(ctx, "task started",
		"run_id", wf.RunID, "step_id", task.ID, "capability", task.Capability)
	return nil
}

// recordCompletion applies a finished task's outcome to memory and storage.
func (s *Scheduler) recordCompletion(ctx context.Context, wf *Workflow, c completion) error {
	node := wf.Mission.Node(c.task.ID)

	if c.err != nil {
		c.task.State = TaskStateFailed
		c.task.Err = c.err

		event := mission.NewEvent(wf.RunID, node, mission.EventError, mission.NodeStatusFailed,
			map[string]any{"error": c.err.Error()})
		if err := s.events.Append(ctx, event); err != nil {
			return err
		}
		s.emit(ctx, event)

		if err := s.store.UpdateNodeState(ctx, wf.RunID, c.task.ID, mission.NodeStatusFailed, "", c.err.Error()); err != nil {
			return err
		}
		node.Status = mission.NodeStatusFailed
		node.Error = c.err.Error()

		s.logger.WarnContext(ctx, "task failed",
			"run_id", wf.RunID, "step_id", c.task.ID, "error", c.err)
		return nil
	}

	c.task.State = TaskStateSucceeded
	c.task.Result = c.output.Result

	event := mission.NewEvent(wf.RunID, node, mission.EventComplete, mission.NodeStatusSucceeded,
		map[string]any{"result": c.output.Result})
	event.MergedFrom = c.output.MergedFrom
	if err := s.events.Append(ctx, event); err != nil {
		return err
	}
	s.emit(ctx, event)

	if err := s.store.UpdateNodeState(ctx, wf.RunID, c.task.ID, mission.NodeStatusSucceeded, c.output.Result, ""); err != nil {
		return err
	}
	node.Status = mission.NodeStatusSucceeded
	node.Result = c.output.Result

	s.logger.InfoContext(ctx, "task succeeded",
		"run_id", wf.RunID, "step_id", c.task.ID, "runtime", c.task.Runtime)
	return nil
}

// failStranded marks every remaining non-terminal task failed with the
// unresolved-dependencies reason, guaranteeing the run always terminates with
// every node in a terminal state. Work functions are never invoked for these.
func (s *Scheduler) failStranded(ctx context.Context, wf *Workflow) error {
	for _, task := range wf.Tasks {
		if task.State.IsTerminal() {
			continue
		}
		task.State = TaskStateFailed
		task.Err = fmt.Errorf("%s", ReasonUnresolvedDependencies)

		node := wf.Mission.Node(task.ID)
		event := mission.NewEvent(wf.RunID, node, mission.EventError, mission.NodeStatusFailed,
			map[string]any{"error": ReasonUnresolvedDependencies})
		if err := s.events.Append(ctx, event); err != nil {
			return err
		}
		s.emit(ctx, event)

		if err := s.store.UpdateNodeState(ctx, wf.RunID, task.ID, mission.NodeStatusFailed, "", ReasonUnresolvedDependencies); err != nil {
			return err
		}
		node.Status = mission.NodeStatusFailed
		node.Error = ReasonUnresolvedDependencies
	}
	return nil
}

func (s *Scheduler) emit(ctx context.Context, event *mission.Event) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event)
	}
}
