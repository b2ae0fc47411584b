package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MockTask is an in-package Task implementation for tests. ExecuteFn is
// swappable so a test can make the task succeed, fail, or record calls.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error
}

// NewMockTask creates a pending MockTask whose Execute succeeds.
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID      { return t.TaskID }
func (t *MockTask) Type() string       { return t.TaskType }
func (t *MockTask) Payload() []byte    { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

func (t *MockTask) Execute(ctx context.Context) error {
	return t.ExecuteFn(ctx)
}

// MockPayload is the JSON body CreateMockTaskWithPayload marshals.
type MockPayload struct {
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// CreateMockTaskWithPayload creates a MockTask of type "mock_task" carrying a
// marshalled MockPayload.
func CreateMockTaskWithPayload(message string) *MockTask {
	data, _ := json.Marshal(MockPayload{
		Message: message,
		Created: time.Now().UTC(),
	})
	return NewMockTask(uuid.New(), "mock_task", data)
}
