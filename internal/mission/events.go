package mission

import (
	"context"
	"sync"
	"time"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// EventType identifies a node state transition in the event log.
type EventType string

const (
	// EventStart is appended before a node's work is invoked.
	EventStart EventType = "start"

	// EventComplete is appended after a node's work returned a result.
	EventComplete EventType = "complete"

	// EventError is appended when a node's work failed or was cascaded.
	EventError EventType = "error"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is an immutable, append-only record of one node state transition.
// Events are the source of truth for recovery; a node's persisted status is a
// projection of the latest relevant event for its step.
type Event struct {
	// ID uniquely identifies this event record.
	ID types.ID `json:"id"`

	// Seq is the append-order key assigned by the store. Replay returns
	// events ordered by Seq.
	Seq int64 `json:"seq"`

	// RunID identifies the mission run.
	RunID types.ID `json:"run_id"`

	// StepID identifies the node within the run.
	StepID string `json:"step_id"`

	// ParentID is the step's first dependency, carried for display.
	ParentID string `json:"parent_id,omitempty"`

	// Type is the transition kind: start, complete, or error.
	Type EventType `json:"event_type"`

	// Status is the node status recorded with the transition.
	Status NodeStatus `json:"status,omitempty"`

	// Payload carries type-specific data (result reference, error text).
	Payload any `json:"payload,omitempty"`

	// MergedFrom lists step IDs whose outputs were combined into this
	// node's artifact, when the coordinator synthesized across specialists.
	MergedFrom []string `json:"merged_from,omitempty"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event with the current timestamp and a fresh ID.
func NewEvent(runID types.ID, node *Node, eventType EventType, status NodeStatus, payload any) *Event {
	return &Event{
		ID:        types.NewID(),
		RunID:     runID,
		StepID:    node.StepID,
		ParentID:  node.ParentID(),
		Type:      eventType,
		Status:    status,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// EventStore is the append-only durable event log for runs.
//
// Append must write the event durably before returning; a lost event is a
// correctness bug, so write failures always propagate. Replay returns events
// in original append order, is restartable, and never mutates the store.
type EventStore interface {
	Append(ctx context.Context, event *Event) error
	Replay(ctx context.Context, runID types.ID) ([]*Event, error)
}

// EventEmitter fans events out to in-process subscribers (CLI progress,
// API streaming). It is an observability side channel, not the durable log.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event)
	Subscribe() (<-chan *Event, func())
	Close()
}

// ChannelEmitter implements EventEmitter with buffered channels. Slow
// subscribers drop events rather than blocking the scheduler.
type ChannelEmitter struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
	bufferSize  int
	closed      bool
}

// NewChannelEmitter creates an emitter with the given per-subscriber buffer.
func NewChannelEmitter(bufferSize int) *ChannelEmitter {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &ChannelEmitter{
		subscribers: make(map[string]chan *Event),
		bufferSize:  bufferSize,
	}
}

// Emit publishes the event to all subscribers without blocking.
func (e *ChannelEmitter) Emit(ctx context.Context, event *Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		case <-ctx.Done():
			return
		default:
			// Buffer full: drop for this subscriber so one slow consumer
			// cannot stall the run.
		}
	}
}

// Subscribe registers a new subscriber. The returned cleanup function must be
// called to release the channel.
func (e *ChannelEmitter) Subscribe() (<-chan *Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := types.NewID().String()
	ch := make(chan *Event, e.bufferSize)
	e.subscribers[id] = ch

	cleanup := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(sub)
		}
	}
	return ch, cleanup
}

// Close shuts down the emitter and all subscriber channels.
func (e *ChannelEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
}

var _ EventEmitter = (*ChannelEmitter)(nil)
