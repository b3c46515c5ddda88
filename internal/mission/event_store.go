package mission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/database"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// DBEventStore implements EventStore on SQLite. Appends are single-row
// inserts; the autoincrement seq column is the total order for a run.
type DBEventStore struct {
	db *database.DB
}

// NewDBEventStore creates a database-backed event store.
func NewDBEventStore(db *database.DB) *DBEventStore {
	return &DBEventStore{db: db}
}

// Append durably writes one event before returning. Failures propagate to the
// caller; the scheduler treats them as fatal to the run.
func (s *DBEventStore) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return types.NewError(types.EVENT_APPEND_FAILED, "event cannot be nil")
	}

	if event.ID.IsZero() {
		event.ID = types.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var payloadJSON string
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return types.WrapError(types.EVENT_APPEND_FAILED, "failed to marshal event payload", err)
		}
		payloadJSON = string(data)
	}

	var mergedJSON string
	if len(event.MergedFrom) > 0 {
		data, err := json.Marshal(event.MergedFrom)
		if err != nil {
			return types.WrapError(types.EVENT_APPEND_FAILED, "failed to marshal merged_from", err)
		}
		mergedJSON = string(data)
	}

	query := `
		INSERT INTO mission_events (
			id, run_id, step_id, parent_id, event_type, status, payload, merged_from, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.ID.String(),
		event.RunID.String(),
		event.StepID,
		event.ParentID,
		string(event.Type),
		string(event.Status),
		payloadJSON,
		mergedJSON,
		event.Timestamp,
	)
	if err != nil {
		return types.WrapError(types.EVENT_APPEND_FAILED, "failed to insert event", err)
	}

	if seq, err := result.LastInsertId(); err == nil {
		event.Seq = seq
	}
	return nil
}

// Replay returns all events for a run in append order. Repeated calls return
// identical sequences; the store is never mutated.
func (s *DBEventStore) Replay(ctx context.Context, runID types.ID) ([]*Event, error) {
	query := `
		SELECT seq, id, run_id, step_id, parent_id, event_type, status, payload, merged_from, created_at
		FROM mission_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to query events", err)
	}
	defer rows.Close()

	events := make([]*Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, types.WrapError(types.STORE_READ_FAILED, "failed to scan event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "error iterating events", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		seq          int64
		idStr        string
		runIDStr     string
		stepID       string
		parentID     sql.NullString
		eventTypeStr string
		statusStr    string
		payloadStr   sql.NullString
		mergedStr    sql.NullString
		createdAt    time.Time
	)

	if err := rows.Scan(&seq, &idStr, &runIDStr, &stepID, &parentID,
		&eventTypeStr, &statusStr, &payloadStr, &mergedStr, &createdAt); err != nil {
		return nil, err
	}

	runID, err := types.ParseID(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}

	event := &Event{
		ID:        types.ID(idStr),
		Seq:       seq,
		RunID:     runID,
		StepID:    stepID,
		Type:      EventType(eventTypeStr),
		Status:    NodeStatus(statusStr),
		Timestamp: createdAt,
	}
	if parentID.Valid {
		event.ParentID = parentID.String
	}
	if payloadStr.Valid && payloadStr.String != "" {
		var payload any
		if err := json.Unmarshal([]byte(payloadStr.String), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}
		event.Payload = payload
	}
	if mergedStr.Valid && mergedStr.String != "" {
		if err := json.Unmarshal([]byte(mergedStr.String), &event.MergedFrom); err != nil {
			return nil, fmt.Errorf("failed to unmarshal merged_from: %w", err)
		}
	}
	return event, nil
}

var _ EventStore = (*DBEventStore)(nil)
