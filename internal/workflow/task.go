// Package workflow turns a mission's DAG into a ready-set/execute/advance
// loop with bounded concurrency, durable event emission, and crash-safe
// resume.
package workflow

import (
	"context"
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// TaskState is the in-memory lifecycle state of a task. It mirrors the
// persisted node status with one additional transient state, ready, that
// exists only between dependency satisfaction and dispatch.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateReady     TaskState = "ready"
	TaskStateRunning   TaskState = "running"
	TaskStateSucceeded TaskState = "succeeded"
	TaskStateFailed    TaskState = "failed"
)

// IsTerminal reports whether the state is succeeded or failed.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSucceeded || s == TaskStateFailed
}

// NodeStatus maps the task state onto the persisted node status. The ready
// state is in-memory only and persists as pending.
func (s TaskState) NodeStatus() mission.NodeStatus {
	switch s {
	case TaskStateRunning:
		return mission.NodeStatusRunning
	case TaskStateSucceeded:
		return mission.NodeStatusSucceeded
	case TaskStateFailed:
		return mission.NodeStatusFailed
	default:
		return mission.NodeStatusPending
	}
}

// TaskOutput is what a task's bound work function produces.
type TaskOutput struct {
	// Result is the opaque artifact reference persisted on success.
	Result string

	// MergedFrom lists the step IDs or specialist IDs whose outputs were
	// combined into the result, recorded on the complete event.
	MergedFrom []string
}

// TaskFunc is the executable binding for one task. Work functions must be
// safe to re-run: recovery gives at-least-once execution per node.
type TaskFunc func(ctx context.Context, task *Task) (*TaskOutput, error)

// Task is the runtime counterpart of a mission node. Tasks live for the
// duration of one run and are reconstructed from persisted state on resume.
type Task struct {
	ID         string
	Capability string
	TeamScope  string
	DependsOn  []string
	State      TaskState
	Result     string
	Err        error

	// Runtime is the wall-clock duration of the last execution attempt.
	Runtime time.Duration

	run TaskFunc
}

// Binder resolves a node's capability to an executable work function. The
// persisted definition carries no executable code; bindings are re-attached
// at workflow construction or load time, once, not per call.
type Binder interface {
	Bind(node *mission.Node) (TaskFunc, error)
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(node *mission.Node) (TaskFunc, error)

// Bind calls f.
func (f BinderFunc) Bind(node *mission.Node) (TaskFunc, error) {
	return f(node)
}

// Workflow is one executable run: the mission definition plus bound tasks.
type Workflow struct {
	RunID      types.ID
	Mission    *mission.Mission
	Tasks      map[string]*Task
	dependents map[string][]string
}

// newWorkflow binds every node of the mission into a task. Nodes already
// succeeded keep their state and result; everything else starts pending.
func newWorkflow(m *mission.Mission, binder Binder) (*Workflow, error) {
	tasks := make(map[string]*Task, len(m.Graph.Nodes))
	for stepID, node := range m.Graph.Nodes {
		task := &Task{
			ID:         stepID,
			Capability: node.Capability,
			TeamScope:  node.TeamScope,
			DependsOn:  node.Deps,
			State:      TaskStatePending,
		}
		if node.Status == mission.NodeStatusSucceeded {
			task.State = TaskStateSucceeded
			task.Result = node.Result
		} else {
			fn, err := binder.Bind(node)
			if err != nil {
				return nil, types.WrapError(types.CAPABILITY_UNBOUND,
					"no binding for capability "+node.Capability, err)
			}
			task.run = fn
		}
		tasks[stepID] = task
	}

	return &Workflow{
		RunID:      m.ID,
		Mission:    m,
		Tasks:      tasks,
		dependents: mission.Dependents(&m.Graph),
	}, nil
}

// Task returns the task for a step ID, or nil.
func (w *Workflow) Task(stepID string) *Task {
	return w.Tasks[stepID]
}

// depsSucceeded reports whether every dependency of the task has succeeded.
func (w *Workflow) depsSucceeded(task *Task) bool {
	for _, dep := range task.DependsOn {
		depTask, ok := w.Tasks[dep]
		if !ok || depTask.State != TaskStateSucceeded {
			return false
		}
	}
	return true
}
