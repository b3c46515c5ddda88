package critic

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// ApprovalState tracks a queued escalation.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Approval is one escalated artifact awaiting a human decision.
type Approval struct {
	ID        types.ID      `json:"id"`
	RunID     types.ID      `json:"run_id"`
	StepID    string        `json:"step_id"`
	Artifact  *Artifact     `json:"artifact"`
	Verdict   *Verdict      `json:"verdict"`
	State     ApprovalState `json:"state"`
	Reviewer  string        `json:"reviewer,omitempty"`
	Comment   string        `json:"comment,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"`
}

// ResolveFunc is invoked once per resolved approval, after the state change
// is recorded. The queue holds no lock during the callback.
type ResolveFunc func(ctx context.Context, approval *Approval)

// ApprovalQueue is the in-memory human-in-the-loop escalation queue. Nodes
// whose artifacts fail automated review park here until a reviewer decides;
// the decision flows back to the caller through the resolution callback.
type ApprovalQueue struct {
	mu        sync.Mutex
	approvals map[types.ID]*Approval
	onResolve ResolveFunc
}

// NewApprovalQueue creates an empty queue. The callback may be nil.
func NewApprovalQueue(onResolve ResolveFunc) *ApprovalQueue {
	return &ApprovalQueue{
		approvals: make(map[types.ID]*Approval),
		onResolve: onResolve,
	}
}

// Enqueue parks an artifact and its rejecting verdict for human review.
func (q *ApprovalQueue) Enqueue(artifact *Artifact, verdict *Verdict) *Approval {
	approval := &Approval{
		ID:        types.NewID(),
		RunID:     artifact.RunID,
		StepID:    artifact.StepID,
		Artifact:  artifact,
		Verdict:   verdict,
		State:     ApprovalPending,
		CreatedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.approvals[approval.ID] = approval
	q.mu.Unlock()
	return approval
}

// Pending returns all undecided approvals, oldest first.
func (q *ApprovalQueue) Pending() []*Approval {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]*Approval, 0, len(q.approvals))
	for _, approval := range q.approvals {
		if approval.State == ApprovalPending {
			pending = append(pending, approval)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending
}

// Get returns one approval by ID.
func (q *ApprovalQueue) Get(id types.ID) (*Approval, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	approval, ok := q.approvals[id]
	if !ok {
		return nil, types.NewError(types.APPROVAL_NOT_FOUND,
			fmt.Sprintf("approval %s not found", id))
	}
	return approval, nil
}

// Resolve records a human decision and fires the resolution callback.
// Resolving an already-decided approval is an error.
func (q *ApprovalQueue) Resolve(ctx context.Context, id types.ID, approved bool, reviewer, comment string) (*Approval, error) {
	q.mu.Lock()
	approval, ok := q.approvals[id]
	if !ok {
		q.mu.Unlock()
		return nil, types.NewError(types.APPROVAL_NOT_FOUND,
			fmt.Sprintf("approval %s not found", id))
	}
	if approval.State != ApprovalPending {
		q.mu.Unlock()
		return nil, types.NewError(types.APPROVAL_NOT_FOUND,
			fmt.Sprintf("approval %s already resolved as %s", id, approval.State))
	}

	now := time.Now().UTC()
	if approved {
		approval.State = ApprovalApproved
	} else {
		approval.State = ApprovalRejected
	}
	approval.Reviewer = reviewer
	approval.Comment = comment
	approval.DecidedAt = &now
	q.mu.Unlock()

	if q.onResolve != nil {
		q.onResolve(ctx, approval)
	}
	return approval, nil
}
