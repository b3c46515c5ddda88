package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
)

func newTestStores(t *testing.T) *mission.FileStore {
	t.Helper()
	store, err := mission.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func chainMission(t *testing.T) *mission.Mission {
	t.Helper()
	m, err := mission.NewMission("chain", "two step chain", mission.RiskLevelLow, []*mission.Node{
		{StepID: "t1", Capability: "analysis"},
		{StepID: "t2", Capability: "writing", Deps: []string{"t1"}},
	})
	require.NoError(t, err)
	return m
}

func diamondMission(t *testing.T) *mission.Mission {
	t.Helper()
	m, err := mission.NewMission("diamond", "fan out and join", mission.RiskLevelLow, []*mission.Node{
		{StepID: "root", Capability: "analysis"},
		{StepID: "left", Capability: "analysis", Deps: []string{"root"}},
		{StepID: "right", Capability: "analysis", Deps: []string{"root"}},
		{StepID: "join", Capability: "writing", Deps: []string{"left", "right"}},
	})
	require.NoError(t, err)
	return m
}

// succeedBinder binds every node to a trivial success and counts invocations
// per step.
type succeedBinder struct {
	mu    sync.Mutex
	calls map[string]int
}

func newSucceedBinder() *succeedBinder {
	return &succeedBinder{calls: make(map[string]int)}
}

func (b *succeedBinder) Bind(node *mission.Node) (TaskFunc, error) {
	return func(ctx context.Context, task *Task) (*TaskOutput, error) {
		b.mu.Lock()
		b.calls[task.ID]++
		b.mu.Unlock()
		return &TaskOutput{Result: "out-" + task.ID}, nil
	}, nil
}

func (b *succeedBinder) count(stepID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[stepID]
}

// failBinder fails the listed steps and succeeds everything else.
type failBinder struct {
	succeedBinder
	failing map[string]bool
}

func newFailBinder(failing ...string) *failBinder {
	b := &failBinder{failing: make(map[string]bool, len(failing))}
	b.calls = make(map[string]int)
	for _, id := range failing {
		b.failing[id] = true
	}
	return b
}

func (b *failBinder) Bind(node *mission.Node) (TaskFunc, error) {
	return func(ctx context.Context, task *Task) (*TaskOutput, error) {
		b.mu.Lock()
		b.calls[task.ID]++
		b.mu.Unlock()
		if b.failing[task.ID] {
			return nil, errors.New("induced failure")
		}
		return &TaskOutput{Result: "out-" + task.ID}, nil
	}, nil
}

func TestRunCompletesEveryTaskTerminal(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store)
	ctx := context.Background()

	m := diamondMission(t)
	binder := newSucceedBinder()
	wf, err := scheduler.CreateWorkflow(ctx, m, binder)
	require.NoError(t, err)

	tasks, err := scheduler.Run(ctx, wf)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	for id, task := range tasks {
		assert.Equal(t, TaskStateSucceeded, task.State, "task %s", id)
		assert.Equal(t, "out-"+id, task.Result)
		assert.Equal(t, 1, binder.count(id))
	}

	result := Summarize(wf.RunID, tasks)
	assert.True(t, result.Succeeded)
	assert.Equal(t, 4, result.Completed)
	assert.Zero(t, result.Failed)
}

func TestRunEmitsStartBeforeCompletePerStep(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store)
	ctx := context.Background()

	m := chainMission(t)
	wf, err := scheduler.CreateWorkflow(ctx, m, newSucceedBinder())
	require.NoError(t, err)
	_, err = scheduler.Run(ctx, wf)
	require.NoError(t, err)

	events, err := scheduler.ReplayEvents(ctx, wf.RunID)
	require.NoError(t, err)
	require.Len(t, events, 4)

	firstSeen := make(map[string]mission.EventType)
	for _, event := range events {
		if _, seen := firstSeen[event.StepID]; !seen {
			firstSeen[event.StepID] = event.Type
		}
	}
	assert.Equal(t, mission.EventStart, firstSeen["t1"])
	assert.Equal(t, mission.EventStart, firstSeen["t2"])

	// t1 finished before t2 started: the chain orders the whole stream.
	var sequence []string
	for _, event := range events {
		sequence = append(sequence, fmt.Sprintf("%s/%s", event.StepID, event.Type))
	}
	assert.Equal(t, []string{"t1/start", "t1/complete", "t2/start", "t2/complete"}, sequence)
}

func TestFailedDependencyCascades(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store)
	ctx := context.Background()

	m := chainMission(t)
	binder := newFailBinder("t1")
	wf, err := scheduler.CreateWorkflow(ctx, m, binder)
	require.NoError(t, err)

	tasks, err := scheduler.Run(ctx, wf)
	require.NoError(t, err)

	assert.Equal(t, TaskStateFailed, tasks["t1"].State)
	assert.Equal(t, TaskStateFailed, tasks["t2"].State)
	require.Error(t, tasks["t2"].Err)
	assert.Equal(t, ReasonUnresolvedDependencies, tasks["t2"].Err.Error())
	assert.Zero(t, binder.count("t2"), "stranded tasks must never execute")

	// The cascade is persisted, and the stranded node has an error event but
	// no start event.
	events, err := scheduler.ReplayEvents(ctx, wf.RunID)
	require.NoError(t, err)
	var t2Events []mission.EventType
	for _, event := range events {
		if event.StepID == "t2" {
			t2Events = append(t2Events, event.Type)
		}
	}
	assert.Equal(t, []mission.EventType{mission.EventError}, t2Events)

	loaded, err := store.Load(ctx, wf.RunID)
	require.NoError(t, err)
	assert.Equal(t, mission.NodeStatusFailed, loaded.Graph.Nodes["t2"].Status)
	assert.Equal(t, ReasonUnresolvedDependencies, loaded.Graph.Nodes["t2"].Error)
}

func TestResumeSkipsSucceededAndRetriesFailed(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store)
	ctx := context.Background()

	m := chainMission(t)
	wf, err := scheduler.CreateWorkflow(ctx, m, newFailBinder("t2"))
	require.NoError(t, err)
	tasks, err := scheduler.Run(ctx, wf)
	require.NoError(t, err)
	require.Equal(t, TaskStateSucceeded, tasks["t1"].State)
	require.Equal(t, TaskStateFailed, tasks["t2"].State)

	firstPass, err := scheduler.ReplayEvents(ctx, wf.RunID)
	require.NoError(t, err)

	// Second pass with a healthy binder. t1 is already succeeded and must
	// not re-execute or emit any new events.
	retry := newSucceedBinder()
	resumed, err := scheduler.LoadWorkflow(ctx, wf.RunID, retry)
	require.NoError(t, err)
	assert.Equal(t, TaskStateSucceeded, resumed.Tasks["t1"].State)
	assert.Equal(t, "out-t1", resumed.Tasks["t1"].Result)

	tasks, err = scheduler.Run(ctx, resumed)
	require.NoError(t, err)
	assert.Equal(t, TaskStateSucceeded, tasks["t2"].State)
	assert.Zero(t, retry.count("t1"), "succeeded tasks must not re-execute")
	assert.Equal(t, 1, retry.count("t2"))

	secondPass, err := scheduler.ReplayEvents(ctx, wf.RunID)
	require.NoError(t, err)
	for _, event := range secondPass[len(firstPass):] {
		assert.NotEqual(t, "t1", event.StepID, "no duplicate events for completed steps")
	}
}

func TestRecoveryRerunsInterruptedTask(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store)
	ctx := context.Background()

	// Model a crash: t1 persisted as running, nothing terminal yet.
	m := chainMission(t)
	require.NoError(t, store.Save(ctx, m))
	require.NoError(t, store.UpdateNodeState(ctx, m.ID, "t1", mission.NodeStatusRunning, "", ""))

	binder := newSucceedBinder()
	wf, err := scheduler.LoadWorkflow(ctx, m.ID, binder)
	require.NoError(t, err)
	assert.Equal(t, TaskStatePending, wf.Tasks["t1"].State,
		"interrupted tasks load as pending")

	tasks, err := scheduler.Run(ctx, wf)
	require.NoError(t, err)
	assert.Equal(t, TaskStateSucceeded, tasks["t1"].State)
	assert.Equal(t, TaskStateSucceeded, tasks["t2"].State)
	assert.Equal(t, 1, binder.count("t1"), "at-least-once: the interrupted task runs again")
}

func TestMaxParallelBoundsConcurrency(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store, WithMaxParallel(2))
	ctx := context.Background()

	nodes := make([]*mission.Node, 0, 6)
	for i := 0; i < 6; i++ {
		nodes = append(nodes, &mission.Node{StepID: fmt.Sprintf("n%d", i), Capability: "analysis"})
	}
	m, err := mission.NewMission("wide", "independent fan-out", mission.RiskLevelLow, nodes)
	require.NoError(t, err)

	var current, peak int32
	binder := BinderFunc(func(node *mission.Node) (TaskFunc, error) {
		return func(ctx context.Context, task *Task) (*TaskOutput, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return &TaskOutput{Result: "ok"}, nil
		}, nil
	})

	wf, err := scheduler.CreateWorkflow(ctx, m, binder)
	require.NoError(t, err)
	_, err = scheduler.Run(ctx, wf)
	require.NoError(t, err)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

// flakyEventStore fails the Nth append to model a journal fault mid-run.
type flakyEventStore struct {
	mission.EventStore
	mu      sync.Mutex
	appends int
	failOn  int
}

func (s *flakyEventStore) Append(ctx context.Context, event *mission.Event) error {
	s.mu.Lock()
	s.appends++
	n := s.appends
	s.mu.Unlock()
	if n == s.failOn {
		return errors.New("journal write failed")
	}
	return s.EventStore.Append(ctx, event)
}

func TestFatalPersistenceFailureDrainsInFlightWorkers(t *testing.T) {
	store := newTestStores(t)
	events := &flakyEventStore{EventStore: store, failOn: 2}
	scheduler := NewScheduler(store, events, WithMaxParallel(3))
	ctx := context.Background()

	m, err := mission.NewMission("wide", "journal fault during dispatch", mission.RiskLevelLow, []*mission.Node{
		{StepID: "a", Capability: "analysis"},
		{StepID: "b", Capability: "analysis"},
		{StepID: "c", Capability: "analysis"},
	})
	require.NoError(t, err)

	var cancelled int32
	binder := BinderFunc(func(node *mission.Node) (TaskFunc, error) {
		return func(ctx context.Context, task *Task) (*TaskOutput, error) {
			<-ctx.Done()
			atomic.AddInt32(&cancelled, 1)
			return nil, ctx.Err()
		}, nil
	})

	before := runtime.NumGoroutine()
	wf, err := scheduler.CreateWorkflow(ctx, m, binder)
	require.NoError(t, err)
	_, err = scheduler.Run(ctx, wf)
	require.Error(t, err)

	// The second start event failed while the first task was already in
	// flight. Run must cancel that worker and wait for it before returning;
	// otherwise it leaks, blocked on the completion channel forever.
	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled))
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}

func TestCreateWorkflowRejectsUnboundCapability(t *testing.T) {
	store := newTestStores(t)
	scheduler := NewScheduler(store, store)
	ctx := context.Background()

	binder := BinderFunc(func(node *mission.Node) (TaskFunc, error) {
		return nil, errors.New("unknown capability")
	})
	_, err := scheduler.CreateWorkflow(ctx, chainMission(t), binder)
	require.Error(t, err)
}
