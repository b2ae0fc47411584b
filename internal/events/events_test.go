package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	type enrichPayload struct {
		ResourceID uuid.UUID `json:"resource_id"`
	}
	payload := enrichPayload{ResourceID: uuid.New()}

	event, err := NewTaskRequestEvent("populate_resource", payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "populate_resource", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded enrichPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, payload.ResourceID, decoded.ResourceID)
}

func TestNewTaskRequestEventUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewTaskRequestEvent("populate_resource", make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalPayload(t *testing.T) {
	t.Parallel()

	type batchPayload struct {
		ListID uuid.UUID `json:"list_id"`
		URLs   []string  `json:"urls"`
	}
	in := batchPayload{
		ListID: uuid.New(),
		URLs:   []string{"https://example.com/a", "https://example.com/b"},
	}

	event, err := NewTaskRequestEvent("create_resources", in)
	require.NoError(t, err)

	var out batchPayload
	require.NoError(t, event.UnmarshalPayload(&out))
	assert.Equal(t, in, out)
}

// MockEventHandler records received events and returns HandlerError.
type MockEventHandler struct {
	LastEvent    *TaskRequestEvent
	HandlerError error
	HandledCount int
}

func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandler(t *testing.T) {
	t.Parallel()

	handler := &MockEventHandler{}
	event, err := NewTaskRequestEvent("populate_resource", map[string]string{"resource_id": uuid.NewString()})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, 1, handler.HandledCount)
	assert.Equal(t, event, handler.LastEvent)

	handler.HandlerError = errors.New("queue full")
	assert.Error(t, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, 2, handler.HandledCount)
}
