// Package mission defines the mission data model (a DAG of specialist work
// units), its durable stores, and the append-only event log that recovery
// replays.
package mission

import (
	"fmt"
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// NodeStatus is the persisted lifecycle state of a mission node.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusSucceeded NodeStatus = "succeeded"
	NodeStatusFailed    NodeStatus = "failed"
)

// String returns the string representation of the node status.
func (s NodeStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is succeeded or failed.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeStatusSucceeded || s == NodeStatusFailed
}

// RiskLevel classifies how much scrutiny a mission's artifacts receive.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Node is one unit of work in a mission DAG. Nodes are owned by the mission
// store and mutated only through the scheduler's transition calls.
type Node struct {
	// StepID is unique within a run.
	StepID string `json:"step_id"`

	// Capability names the specialist type required to produce this node's
	// artifact.
	Capability string `json:"capability"`

	// TeamScope is a logical grouping used for display and filtering.
	TeamScope string `json:"team_scope,omitempty"`

	// Deps lists step IDs that must succeed before this node becomes ready.
	Deps []string `json:"deps,omitempty"`

	// Status is the latest persisted lifecycle state.
	Status NodeStatus `json:"status"`

	// Result is an opaque artifact reference, set when the node succeeded.
	Result string `json:"result,omitempty"`

	// Error holds the failure reason, set when the node failed.
	Error string `json:"error,omitempty"`
}

// ParentID returns the first dependency, used as the display parent in the
// event stream. Empty for root nodes.
func (n *Node) ParentID() string {
	if len(n.Deps) == 0 {
		return ""
	}
	return n.Deps[0]
}

// Edge is a directed dependency between two steps.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the DAG of nodes plus its edge list.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []Edge           `json:"edges"`
}

// Mission is a named run: a goal, its inputs, and the graph of work that
// produces it.
type Mission struct {
	ID        types.ID          `json:"id"`
	Title     string            `json:"title"`
	Goal      string            `json:"goal"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	RiskLevel RiskLevel         `json:"risk_level"`
	Graph     Graph             `json:"graph"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewMission constructs a mission from its nodes, assigning a fresh run ID and
// deriving the edge list from node dependencies. The graph must be acyclic;
// a cycle is a construction-time error, never a runtime one.
func NewMission(title, goal string, risk RiskLevel, nodes []*Node) (*Mission, error) {
	if title == "" {
		return nil, types.NewError(types.MISSION_INVALID, "mission title is required")
	}
	if len(nodes) == 0 {
		return nil, types.NewError(types.MISSION_INVALID, "mission must contain at least one node")
	}
	if risk == "" {
		risk = RiskLevelLow
	}

	graph := Graph{Nodes: make(map[string]*Node, len(nodes))}
	for _, node := range nodes {
		if node.StepID == "" {
			return nil, types.NewError(types.MISSION_INVALID, "node step_id is required")
		}
		if node.Capability == "" {
			return nil, types.NewError(types.MISSION_INVALID,
				fmt.Sprintf("node %s: capability is required", node.StepID))
		}
		if _, exists := graph.Nodes[node.StepID]; exists {
			return nil, types.NewError(types.MISSION_INVALID,
				fmt.Sprintf("duplicate step_id: %s", node.StepID))
		}
		if node.Status == "" {
			node.Status = NodeStatusPending
		}
		graph.Nodes[node.StepID] = node
	}

	for _, node := range nodes {
		for _, dep := range node.Deps {
			graph.Edges = append(graph.Edges, Edge{From: dep, To: node.StepID})
		}
	}

	if err := ValidateGraph(&graph); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Mission{
		ID:        types.NewID(),
		Title:     title,
		Goal:      goal,
		RiskLevel: risk,
		Graph:     graph,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// WithInputs sets the mission's input map and returns the mission.
func (m *Mission) WithInputs(inputs map[string]string) *Mission {
	m.Inputs = inputs
	return m
}

// Node returns the node with the given step ID, or nil.
func (m *Mission) Node(stepID string) *Node {
	if m.Graph.Nodes == nil {
		return nil
	}
	return m.Graph.Nodes[stepID]
}

// Progress summarizes per-status node counts for a run.
type Progress struct {
	RunID           types.ID `json:"run_id"`
	TotalNodes      int      `json:"total_nodes"`
	Succeeded       int      `json:"succeeded"`
	Failed          int      `json:"failed"`
	Running         int      `json:"running"`
	Pending         int      `json:"pending"`
	PercentComplete float64  `json:"percent_complete"`
}

// Progress computes a snapshot of the mission's node statuses.
func (m *Mission) Progress() Progress {
	p := Progress{RunID: m.ID, TotalNodes: len(m.Graph.Nodes)}
	for _, node := range m.Graph.Nodes {
		switch node.Status {
		case NodeStatusSucceeded:
			p.Succeeded++
		case NodeStatusFailed:
			p.Failed++
		case NodeStatusRunning:
			p.Running++
		default:
			p.Pending++
		}
	}
	if p.TotalNodes > 0 {
		p.PercentComplete = float64(p.Succeeded+p.Failed) / float64(p.TotalNodes) * 100.0
	}
	return p
}

// IsComplete reports whether every node has reached a terminal status.
func (m *Mission) IsComplete() bool {
	for _, node := range m.Graph.Nodes {
		if !node.Status.IsTerminal() {
			return false
		}
	}
	return true
}
