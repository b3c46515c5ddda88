package mission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/database"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// Store persists mission definitions and per-node status snapshots.
//
// Recovery contract: a node is resumable-from-succeeded only if its last
// persisted status is exactly succeeded. A node found running at load time is
// returned as pending, because the process that set it running may have
// crashed before completion was recorded. Execution is therefore
// at-least-once per node, and node work must be safe to re-run.
type Store interface {
	// Save persists the full mission definition once, atomically.
	Save(ctx context.Context, m *Mission) error

	// UpdateNodeState persists an incremental snapshot for one node.
	// Exactly one of result/errMsg is meaningful depending on status.
	UpdateNodeState(ctx context.Context, runID types.ID, stepID string, status NodeStatus, result, errMsg string) error

	// Load reconstructs a mission with every node's status set to the latest
	// known value, applying the running-to-pending recovery rule.
	Load(ctx context.Context, runID types.ID) (*Mission, error)

	// List returns summaries of all persisted missions, newest first.
	List(ctx context.Context) ([]*Mission, error)
}

// ErrMissionNotFound is returned by Load when the run ID is unknown.
var ErrMissionNotFound = types.NewError(types.MISSION_NOT_FOUND, "mission not found")

// DBStore implements Store on SQLite.
type DBStore struct {
	db *database.DB
}

// NewDBStore creates a database-backed mission store.
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

// Save writes the mission record and all node rows in one transaction.
func (s *DBStore) Save(ctx context.Context, m *Mission) error {
	if m == nil {
		return types.NewError(types.STORE_WRITE_FAILED, "mission cannot be nil")
	}
	if m.ID.IsZero() {
		m.ID = types.NewID()
	}

	inputsJSON, err := json.Marshal(m.Inputs)
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to marshal inputs", err)
	}
	edgesJSON, err := json.Marshal(m.Graph.Edges)
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to marshal edges", err)
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO missions (id, title, goal, risk_level, inputs, edges, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		`, m.ID.String(), m.Title, m.Goal, string(m.RiskLevel), string(inputsJSON), string(edgesJSON))
		if err != nil {
			return err
		}

		for _, node := range m.Graph.Nodes {
			depsJSON, err := json.Marshal(node.Deps)
			if err != nil {
				return fmt.Errorf("failed to marshal deps for %s: %w", node.StepID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO mission_nodes (run_id, step_id, capability, team_scope, deps, status)
				VALUES (?, ?, ?, ?, ?, ?)
			`, m.ID.String(), node.StepID, node.Capability, node.TeamScope, string(depsJSON), string(node.Status))
			if err != nil {
				return fmt.Errorf("failed to insert node %s: %w", node.StepID, err)
			}
		}
		return nil
	})
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to save mission", err)
	}
	return nil
}

// UpdateNodeState upserts the latest snapshot for (run_id, step_id).
func (s *DBStore) UpdateNodeState(ctx context.Context, runID types.ID, stepID string, status NodeStatus, result, errMsg string) error {
	query := `
		UPDATE mission_nodes
		SET status = ?, result = ?, error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE run_id = ? AND step_id = ?
	`

	res, err := s.db.ExecContext(ctx, query, string(status), result, errMsg, runID.String(), stepID)
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to update node state", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to get rows affected", err)
	}
	if affected == 0 {
		return types.NewError(types.STORE_WRITE_FAILED,
			fmt.Sprintf("node not found: %s/%s", runID, stepID))
	}
	return nil
}

// Load reconstructs the mission and applies the recovery rule: any node whose
// persisted status is running comes back as pending and will be re-executed.
func (s *DBStore) Load(ctx context.Context, runID types.ID) (*Mission, error) {
	m, err := s.loadMissionRow(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, capability, team_scope, deps, status, result, error
		FROM mission_nodes
		WHERE run_id = ?
	`, runID.String())
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to query nodes", err)
	}
	defer rows.Close()

	m.Graph.Nodes = make(map[string]*Node)
	for rows.Next() {
		var (
			node     Node
			depsJSON sql.NullString
			result   sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&node.StepID, &node.Capability, &node.TeamScope,
			&depsJSON, &node.Status, &result, &errMsg); err != nil {
			return nil, types.WrapError(types.STORE_READ_FAILED, "failed to scan node", err)
		}
		if depsJSON.Valid && depsJSON.String != "" {
			if err := json.Unmarshal([]byte(depsJSON.String), &node.Deps); err != nil {
				return nil, types.WrapError(types.STORE_READ_FAILED, "failed to unmarshal deps", err)
			}
		}
		if result.Valid {
			node.Result = result.String
		}
		if errMsg.Valid {
			node.Error = errMsg.String
		}

		// The store never resumes in-flight work: only a persisted
		// succeeded status survives a restart.
		if node.Status == NodeStatusRunning {
			node.Status = NodeStatusPending
			node.Result = ""
			node.Error = ""
		}

		m.Graph.Nodes[node.StepID] = &node
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "error iterating nodes", err)
	}
	return m, nil
}

func (s *DBStore) loadMissionRow(ctx context.Context, runID types.ID) (*Mission, error) {
	var (
		m          Mission
		idStr      string
		riskLevel  string
		inputsJSON sql.NullString
		edgesJSON  sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, goal, risk_level, inputs, edges, created_at, updated_at
		FROM missions
		WHERE id = ?
	`, runID.String()).Scan(&idStr, &m.Title, &m.Goal, &riskLevel,
		&inputsJSON, &edgesJSON, &m.CreatedAt, &m.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to load mission", err)
	}

	m.ID = types.ID(idStr)
	m.RiskLevel = RiskLevel(riskLevel)
	if inputsJSON.Valid && inputsJSON.String != "" {
		if err := json.Unmarshal([]byte(inputsJSON.String), &m.Inputs); err != nil {
			return nil, types.WrapError(types.STORE_READ_FAILED, "failed to unmarshal inputs", err)
		}
	}
	if edgesJSON.Valid && edgesJSON.String != "" {
		if err := json.Unmarshal([]byte(edgesJSON.String), &m.Graph.Edges); err != nil {
			return nil, types.WrapError(types.STORE_READ_FAILED, "failed to unmarshal edges", err)
		}
	}
	return &m, nil
}

// List returns all missions with their node snapshots, newest first.
func (s *DBStore) List(ctx context.Context) ([]*Mission, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM missions ORDER BY created_at DESC")
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to list missions", err)
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, types.WrapError(types.STORE_READ_FAILED, "failed to scan mission id", err)
		}
		ids = append(ids, types.ID(idStr))
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "error iterating missions", err)
	}

	missions := make([]*Mission, 0, len(ids))
	for _, id := range ids {
		m, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, nil
}

var _ Store = (*DBStore)(nil)
