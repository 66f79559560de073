package chatloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart      EventKind = "run_start"
	EventRoundStart    EventKind = "round_start"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventRoundBudget   EventKind = "round_budget_exhausted"
	EventRunEnd        EventKind = "run_end"
	EventRunError      EventKind = "run_error"
)

// Event is a typed notification emitted by the loop for host integration
// (progress display, audit). The output sink remains the only channel for
// model text; events carry lifecycle metadata.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers events to the host application via a buffered
// channel. Emission never blocks the loop: if the channel is full the
// event is dropped.
type EventEmitter struct {
	mu     sync.Mutex
	runID  string
	ch     chan Event
	closed bool
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(runID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{runID: runID, ch: make(chan Event, bufferSize)}
}

// Emit sends an event. Events emitted after Close are silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	ev := Event{Kind: kind, Timestamp: time.Now(), RunID: e.runID, Data: data}
	select {
	case e.ch <- ev:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
