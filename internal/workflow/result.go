package workflow

import (
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// TaskReport is the serializable outcome of one task.
type TaskReport struct {
	StepID     string        `json:"step_id"`
	Capability string        `json:"capability"`
	TeamScope  string        `json:"team_scope,omitempty"`
	State      TaskState     `json:"state"`
	Result     string        `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	Runtime    time.Duration `json:"runtime"`
}

// RunResult summarizes a finished run: the full node-status map plus counts.
// Failed and escalated nodes carry their error text so callers can tell
// "logic rejected" from "risk escalated" from "dependency never satisfied".
type RunResult struct {
	RunID     types.ID              `json:"run_id"`
	Succeeded bool                  `json:"succeeded"`
	Tasks     map[string]TaskReport `json:"tasks"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
}

// Summarize builds a RunResult from a final task map.
func Summarize(runID types.ID, tasks map[string]*Task) *RunResult {
	result := &RunResult{
		RunID:     runID,
		Succeeded: true,
		Tasks:     make(map[string]TaskReport, len(tasks)),
	}
	for id, task := range tasks {
		report := TaskReport{
			StepID:     id,
			Capability: task.Capability,
			TeamScope:  task.TeamScope,
			State:      task.State,
			Result:     task.Result,
			Runtime:    task.Runtime,
		}
		if task.Err != nil {
			report.Error = task.Err.Error()
		}
		switch task.State {
		case TaskStateSucceeded:
			result.Completed++
		case TaskStateFailed:
			result.Failed++
			result.Succeeded = false
		default:
			result.Succeeded = false
		}
		result.Tasks[id] = report
	}
	return result
}
