package ticketflow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a workflow lifecycle event.
type EventType string

// Lifecycle events emitted by the engine.
const (
	EventStarted       EventType = "started"
	EventStepCompleted EventType = "step-completed"
	EventStepFailed    EventType = "step-failed"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
)

// Event describes one workflow lifecycle occurrence.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	WorkflowID string         `json:"workflowId"`
	StepID     string         `json:"stepId,omitempty"`
	Message    string         `json:"message,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`

	// Err carries the failure behind step-failed and failed events for
	// in-process listeners. It is not serialized; Message holds its text.
	Err error `json:"-"`
}

// Listener receives lifecycle events. A returned error is collected and
// logged by the bus; it never stops delivery to other listeners.
type Listener func(Event) error

// EventBus fans events out to registered listeners synchronously, in
// registration order.
type EventBus struct {
	logger *slog.Logger

	mu        sync.Mutex
	nextID    int
	listeners []registration
}

type registration struct {
	id int
	fn Listener
}

// NewEventBus creates an empty bus. A nil logger falls back to the default
// slog logger.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{logger: logger}
}

// AddListener registers fn and returns an id for RemoveListener.
func (b *EventBus) AddListener(fn Listener) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, registration{id: b.nextID, fn: fn})
	return b.nextID
}

// RemoveListener unregisters the listener; unknown ids are ignored.
func (b *EventBus) RemoveListener(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, reg := range b.listeners {
		if reg.id == id {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to every listener in registration order. A
// listener that fails or panics is logged and does not block the others;
// the collected errors are returned for callers that want them.
func (b *EventBus) Emit(event Event) []error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	regs := make([]registration, len(b.listeners))
	copy(regs, b.listeners)
	b.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if err := deliver(reg.fn, event); err != nil {
			errs = append(errs, err)
			b.logger.Warn("event listener failed",
				"error", err,
				"event_type", event.Type,
				"workflow_id", event.WorkflowID,
			)
		}
	}
	return errs
}

// deliver invokes one listener, converting a panic into an error.
func deliver(fn Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(event)
}
