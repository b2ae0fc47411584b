package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests. The Fn fields override
// individual operations; everything else runs against the internal map.
type MockTaskStore struct {
	mu          sync.RWMutex
	tasks       map[uuid.UUID]*MockTask
	statusTimes map[uuid.UUID]time.Time

	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks:       make(map[uuid.UUID]*MockTask),
		statusTimes: make(map[uuid.UUID]time.Time),
	}
}

// SaveTask records the task. Non-MockTask values are wrapped so their status
// can be tracked independently of the caller's instance.
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mockTask, ok := task.(*MockTask)
	if !ok {
		mockTask = NewMockTask(task.ID(), task.Type(), task.Payload())
		mockTask.TaskStatus = task.Status()
	}
	s.tasks[task.ID()] = mockTask
	s.statusTimes[task.ID()] = time.Now()
	return nil
}

// UpdateTaskStatus moves a stored task to the given status. Unknown IDs are a
// no-op, matching how tests treat rows they never saved.
func (s *MockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil
	}
	task.TaskStatus = status
	s.statusTimes[taskID] = time.Now()
	return nil
}

// GetPendingTasks returns every stored task in pending status.
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return s.tasksInStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks returns processing tasks that have held the status for
// longer than olderThan (zero means all of them).
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.tasksInStatus(TaskStatusProcessing, olderThan), nil
}

// GetFailedTasks returns every stored task in failed status.
func (s *MockTaskStore) GetFailedTasks(ctx context.Context) ([]Task, error) {
	return s.tasksInStatus(TaskStatusFailed, 0), nil
}

func (s *MockTaskStore) tasksInStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var matched []Task
	for _, task := range s.tasks {
		if task.Status() != status {
			continue
		}
		if olderThan > 0 {
			changedAt, tracked := s.statusTimes[task.ID()]
			if !tracked || now.Sub(changedAt) <= olderThan {
				continue
			}
		}
		matched = append(matched, task)
	}
	return matched
}

// WithTx returns the store itself; the mock has no transactions.
func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}
