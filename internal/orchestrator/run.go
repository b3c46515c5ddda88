package orchestrator

import (
	"context"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/workflow"
)

// RunMission persists the mission and drives it to completion. Every node
// ends terminal; the result maps step IDs to their final reports.
func (o *Orchestrator) RunMission(ctx context.Context, m *mission.Mission) (*workflow.RunResult, error) {
	wf, err := o.scheduler.CreateWorkflow(ctx, m, o.binderFor(m))
	if err != nil {
		return nil, err
	}
	tasks, err := o.scheduler.Run(ctx, wf)
	if err != nil {
		return nil, err
	}
	return workflow.Summarize(wf.RunID, tasks), nil
}

// ResumeMission reloads a persisted run and executes whatever is not yet
// succeeded. Succeeded nodes keep their results and emit no new events;
// nodes interrupted mid-flight come back pending and re-execute.
func (o *Orchestrator) ResumeMission(ctx context.Context, runID types.ID) (*workflow.RunResult, error) {
	m, err := o.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	wf, err := o.scheduler.LoadWorkflow(ctx, runID, o.binderFor(m))
	if err != nil {
		return nil, err
	}
	tasks, err := o.scheduler.Run(ctx, wf)
	if err != nil {
		return nil, err
	}
	return workflow.Summarize(wf.RunID, tasks), nil
}

// Replay returns the run's event log in append order.
func (o *Orchestrator) Replay(ctx context.Context, runID types.ID) ([]*mission.Event, error) {
	return o.events.Replay(ctx, runID)
}
