package orchestrator

import (
	"context"
	"strings"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/critic"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/specialist"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/workflow"
)

// binderFor returns the binding that attaches the auction/review pipeline to
// every node of the mission. Bindings carry no state between attempts other
// than the accumulated fix list.
func (o *Orchestrator) binderFor(m *mission.Mission) workflow.Binder {
	return workflow.BinderFunc(func(node *mission.Node) (workflow.TaskFunc, error) {
		return o.pipeline(m, node.Capability), nil
	})
}

// pipeline runs one node to an artifact: auction the task, review the winner,
// resubmit with fixes on rejection, and escalate to a human once revisions
// are exhausted or risk is past the point where revision can help.
func (o *Orchestrator) pipeline(m *mission.Mission, capability string) workflow.TaskFunc {
	return func(ctx context.Context, task *workflow.Task) (*workflow.TaskOutput, error) {
		taskCtx := specialist.TaskContext{
			RunID:  m.ID,
			StepID: task.ID,
			Goal:   m.Goal,
			Inputs: m.Inputs,
		}

		var (
			lastArtifact *critic.Artifact
			lastVerdict  *critic.Verdict
		)

		for attempt := 0; attempt <= o.maxRevisions; attempt++ {
			result, err := o.coordinator.Execute(ctx, capability, taskCtx)
			if err != nil {
				return nil, err
			}

			artifact := &critic.Artifact{
				RunID:      m.ID,
				StepID:     task.ID,
				Capability: capability,
				Content:    result.Response,
				ProducerID: result.Winner.SpecialistID,
			}
			verdict, err := o.gate.Review(ctx, artifact)
			if err != nil {
				return nil, err
			}

			if verdict.Approved {
				if attempt > 0 {
					o.logger.InfoContext(ctx, "artifact approved after revision",
						"run_id", m.ID, "step_id", task.ID, "attempt", attempt)
				}
				return &workflow.TaskOutput{
					Result:     result.Response,
					MergedFrom: result.Contributors,
				}, nil
			}

			lastArtifact, lastVerdict = artifact, verdict

			// Risk rejections go straight to a human: resubmitting the same
			// task cannot lower an operational risk score.
			if strings.Contains(verdict.Notes, critic.NoteHITLRequired) {
				return nil, o.escalate(ctx, types.ESCALATION_REQUIRED, artifact, verdict)
			}

			taskCtx.Fixes = append(taskCtx.Fixes, verdict.Fixes...)
			o.logger.WarnContext(ctx, "artifact rejected, resubmitting with fixes",
				"run_id", m.ID,
				"step_id", task.ID,
				"attempt", attempt,
				"fixes", len(verdict.Fixes),
				"risk", verdict.Risk,
			)
		}

		return nil, o.escalate(ctx, types.REVISION_EXHAUSTED, lastArtifact, lastVerdict)
	}
}

// escalate parks the rejected artifact on the approval queue and fails the
// node with an escalation error carrying the approval ID.
func (o *Orchestrator) escalate(ctx context.Context, code types.ErrorCode, artifact *critic.Artifact, verdict *critic.Verdict) error {
	approval := o.approvals.Enqueue(artifact, verdict)
	o.logger.WarnContext(ctx, "artifact escalated to human review",
		"run_id", artifact.RunID,
		"step_id", artifact.StepID,
		"approval_id", approval.ID,
		"risk", verdict.Risk,
	)
	return types.WrapError(code, "artifact parked for human review",
		&escalationError{approvalID: approval.ID, notes: verdict.Notes})
}

// applyApproval is the approval queue's resolution callback. An approved
// artifact repairs its node to succeeded so a resumed run treats it as done;
// a rejection records the reviewer's comment on the failed node. Both
// outcomes append an event so replay shows the human decision.
func (o *Orchestrator) applyApproval(ctx context.Context, approval *critic.Approval) {
	m, err := o.store.Load(ctx, approval.RunID)
	if err != nil {
		o.logger.ErrorContext(ctx, "cannot apply approval, mission load failed",
			"approval_id", approval.ID, "run_id", approval.RunID, "error", err)
		return
	}
	node := m.Node(approval.StepID)
	if node == nil {
		o.logger.ErrorContext(ctx, "cannot apply approval, node missing",
			"approval_id", approval.ID, "run_id", approval.RunID, "step_id", approval.StepID)
		return
	}

	if approval.State == critic.ApprovalApproved {
		event := mission.NewEvent(approval.RunID, node, mission.EventComplete, mission.NodeStatusSucceeded,
			map[string]any{
				"result":   approval.Artifact.Content,
				"reviewer": approval.Reviewer,
				"comment":  approval.Comment,
			})
		if err := o.events.Append(ctx, event); err != nil {
			o.logger.ErrorContext(ctx, "approval event append failed",
				"approval_id", approval.ID, "error", err)
			return
		}
		if err := o.store.UpdateNodeState(ctx, approval.RunID, approval.StepID,
			mission.NodeStatusSucceeded, approval.Artifact.Content, ""); err != nil {
			o.logger.ErrorContext(ctx, "approval node update failed",
				"approval_id", approval.ID, "error", err)
			return
		}
		o.logger.InfoContext(ctx, "node repaired by human approval",
			"run_id", approval.RunID, "step_id", approval.StepID, "reviewer", approval.Reviewer)
		return
	}

	reason := "rejected by human review"
	if approval.Comment != "" {
		reason += ": " + approval.Comment
	}
	event := mission.NewEvent(approval.RunID, node, mission.EventError, mission.NodeStatusFailed,
		map[string]any{"error": reason, "reviewer": approval.Reviewer})
	if err := o.events.Append(ctx, event); err != nil {
		o.logger.ErrorContext(ctx, "rejection event append failed",
			"approval_id", approval.ID, "error", err)
		return
	}
	if err := o.store.UpdateNodeState(ctx, approval.RunID, approval.StepID,
		mission.NodeStatusFailed, "", reason); err != nil {
		o.logger.ErrorContext(ctx, "rejection node update failed",
			"approval_id", approval.ID, "error", err)
	}
}
