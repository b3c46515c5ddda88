package mission

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// FileStore is a file-backed implementation of Store and EventStore, laid out
// for external tooling: one `{run_id}_definition.json` written once, and one
// append-only `{run_id}_events.jsonl` stream of self-contained JSON records,
// each with a timestamp. Tools can tail or replay the stream without
// coordinating with the scheduler process.
type FileStore struct {
	dir string

	mu  sync.Mutex
	seq map[types.ID]int64
}

// journalRecord is one line of the events stream. Node state snapshots and
// log events share the stream, distinguished by Kind, so the whole run is
// reconstructible from the two files alone.
type journalRecord struct {
	Kind      string     `json:"kind"` // "event" or "node_state"
	Event     *Event     `json:"event,omitempty"`
	StepID    string     `json:"step_id,omitempty"`
	Status    NodeStatus `json:"status,omitempty"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.WrapError(types.STORE_WRITE_FAILED, "failed to create store directory", err)
	}
	return &FileStore{dir: dir, seq: make(map[types.ID]int64)}, nil
}

func (s *FileStore) definitionPath(runID types.ID) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_definition.json", runID))
}

func (s *FileStore) eventsPath(runID types.ID) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_events.jsonl", runID))
}

// Save writes the definition record once. Writing is atomic: the record is
// staged to a temp file and renamed into place.
func (s *FileStore) Save(ctx context.Context, m *Mission) error {
	if m == nil {
		return types.NewError(types.STORE_WRITE_FAILED, "mission cannot be nil")
	}
	if m.ID.IsZero() {
		m.ID = types.NewID()
	}

	path := s.definitionPath(m.ID)
	if _, err := os.Stat(path); err == nil {
		return types.NewError(types.STORE_WRITE_FAILED,
			fmt.Sprintf("definition already exists for run %s", m.ID))
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to marshal mission", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to write definition", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "failed to finalize definition", err)
	}
	return nil
}

// UpdateNodeState appends a node_state record to the run's stream.
func (s *FileStore) UpdateNodeState(ctx context.Context, runID types.ID, stepID string, status NodeStatus, result, errMsg string) error {
	return s.appendRecord(runID, &journalRecord{
		Kind:      "node_state",
		StepID:    stepID,
		Status:    status,
		Result:    result,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
}

// Append durably writes one event record to the run's stream.
func (s *FileStore) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return types.NewError(types.EVENT_APPEND_FAILED, "event cannot be nil")
	}
	if event.ID.IsZero() {
		event.ID = types.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	if _, ok := s.seq[event.RunID]; !ok {
		// First append after process start: recover the sequence counter
		// from the existing stream so resumed runs keep a total order.
		s.seq[event.RunID] = s.lastSeqLocked(event.RunID)
	}
	s.seq[event.RunID]++
	event.Seq = s.seq[event.RunID]
	s.mu.Unlock()

	return s.appendRecord(event.RunID, &journalRecord{
		Kind:      "event",
		Event:     event,
		Timestamp: event.Timestamp,
	})
}

// appendRecord writes one JSON line and fsyncs before returning. A lost
// record would desynchronize recovery, so failures always propagate.
func (s *FileStore) appendRecord(runID types.ID, rec *journalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return types.WrapError(types.EVENT_APPEND_FAILED, "failed to marshal record", err)
	}

	f, err := os.OpenFile(s.eventsPath(runID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return types.WrapError(types.EVENT_APPEND_FAILED, "failed to open event stream", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return types.WrapError(types.EVENT_APPEND_FAILED, "failed to append record", err)
	}
	if err := f.Sync(); err != nil {
		return types.WrapError(types.EVENT_APPEND_FAILED, "failed to sync event stream", err)
	}
	return nil
}

// Replay returns all events for a run in append order.
func (s *FileStore) Replay(ctx context.Context, runID types.ID) ([]*Event, error) {
	records, err := s.readJournal(runID)
	if err != nil {
		return nil, err
	}
	events := make([]*Event, 0, len(records))
	for _, rec := range records {
		if rec.Kind == "event" && rec.Event != nil {
			events = append(events, rec.Event)
		}
	}
	return events, nil
}

// Load reconstructs the mission from the definition record, then projects the
// latest node_state record per step onto the graph. Running nodes come back
// pending per the recovery contract.
func (s *FileStore) Load(ctx context.Context, runID types.ID) (*Mission, error) {
	data, err := os.ReadFile(s.definitionPath(runID))
	if os.IsNotExist(err) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to read definition", err)
	}

	var m Mission
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to unmarshal definition", err)
	}

	records, err := s.readJournal(runID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Kind != "node_state" {
			continue
		}
		node := m.Node(rec.StepID)
		if node == nil {
			continue
		}
		node.Status = rec.Status
		node.Result = rec.Result
		node.Error = rec.Error
	}

	for _, node := range m.Graph.Nodes {
		if node.Status == NodeStatusRunning {
			node.Status = NodeStatusPending
			node.Result = ""
			node.Error = ""
		}
	}
	return &m, nil
}

// List returns all missions found in the store directory.
func (s *FileStore) List(ctx context.Context) ([]*Mission, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*_definition.json"))
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to scan store directory", err)
	}

	missions := make([]*Mission, 0, len(matches))
	for _, path := range matches {
		base := filepath.Base(path)
		idStr := base[:len(base)-len("_definition.json")]
		runID, err := types.ParseID(idStr)
		if err != nil {
			continue
		}
		m, err := s.Load(ctx, runID)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, nil
}

// lastSeqLocked scans the journal for the highest event sequence number.
// Caller must hold s.mu.
func (s *FileStore) lastSeqLocked(runID types.ID) int64 {
	records, err := s.readJournal(runID)
	if err != nil {
		return 0
	}
	var last int64
	for _, rec := range records {
		if rec.Kind == "event" && rec.Event != nil && rec.Event.Seq > last {
			last = rec.Event.Seq
		}
	}
	return last
}

func (s *FileStore) readJournal(runID types.ID) ([]*journalRecord, error) {
	f, err := os.Open(s.eventsPath(runID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to open event stream", err)
	}
	defer f.Close()

	var records []*journalRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, types.WrapError(types.STORE_READ_FAILED, "corrupt journal record", err)
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, types.WrapError(types.STORE_READ_FAILED, "failed to read event stream", err)
	}
	return records, nil
}

var (
	_ Store      = (*FileStore)(nil)
	_ EventStore = (*FileStore)(nil)
)
