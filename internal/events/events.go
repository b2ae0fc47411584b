package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskRequestEvent asks for a background task to be created. It carries the
// task type and its JSON payload but no dependency on the task package, so
// services can emit work without importing the pipeline that runs it.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewTaskRequestEvent marshals payload and wraps it in an event of the given
// type.
func NewTaskRequestEvent(eventType string, payload interface{}) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler consumes emitted events.
type EventHandler interface {
	// HandleEvent processes the event. An error means the event was not
	// turned into work.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter is the publishing side services depend on.
type EventEmitter interface {
	// EmitEvent delivers the event to every registered handler.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
