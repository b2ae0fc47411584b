package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunnerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestRunner(store TaskStore) *TaskRunner {
	return NewTaskRunner(store, TaskRunnerConfig{
		WorkerCount:            1,
		QueueSize:              10,
		StuckTaskAge:           time.Minute,
		StuckTaskCheckInterval: time.Hour,
	}, testRunnerLogger())
}

func TestTaskRunner_SubmitAndExecute(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := newTestRunner(store)

	executed := make(chan uuid.UUID, 1)
	task := CreateMockTaskWithPayload("hello")
	task.ExecuteFn = func(ctx context.Context) error {
		executed <- task.ID()
		return nil
	}

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case id := <-executed:
		assert.Equal(t, task.ID(), id)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}

	// Status should eventually land on completed.
	require.Eventually(t, func() bool {
		tasks, err := store.GetPendingTasks(context.Background())
		require.NoError(t, err)
		return len(tasks) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTaskRunner_SubmitFailsWhenSaveFails(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	saveErr := errors.New("db down")
	store.SaveFn = func(ctx context.Context, task Task) error {
		return saveErr
	}

	runner := newTestRunner(store)
	err := runner.Submit(context.Background(), CreateMockTaskWithPayload("x"))
	assert.ErrorIs(t, err, saveErr)
}

func TestTaskRunner_FailedTaskInvokesErrorHandler(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := newTestRunner(store)

	execErr := errors.New("boom")
	task := CreateMockTaskWithPayload("will fail")
	task.ExecuteFn = func(ctx context.Context) error {
		return execErr
	}

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(failed Task, err error) {
		handled <- err
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, execErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not invoked")
	}
}

func TestTaskRunner_RecoverRequeuesUnfinishedTasks(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()

	pending := CreateMockTaskWithPayload("pending work")
	require.NoError(t, store.SaveTask(context.Background(), pending))

	interrupted := CreateMockTaskWithPayload("interrupted work")
	require.NoError(t, store.SaveTask(context.Background(), interrupted))
	require.NoError(t, store.UpdateTaskStatus(
		context.Background(), interrupted.ID(), TaskStatusProcessing, ""))

	runner := newTestRunner(store)
	require.NoError(t, runner.Recover())

	// Both tasks must be back on the queue.
	recovered := map[uuid.UUID]bool{}
	for i := 0; i < 2; i++ {
		select {
		case task := <-runner.queue.GetChannel():
			recovered[task.ID()] = true
		case <-time.After(time.Second):
			t.Fatal("expected two recovered tasks on the queue")
		}
	}
	assert.True(t, recovered[pending.ID()])
	assert.True(t, recovered[interrupted.ID()])

	// The interrupted row must have been reset to pending.
	pendingRows, err := store.GetPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, pendingRows, 2)
}

func TestTaskRunner_FailedTaskRedeliveredOnRestart(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()

	var mu sync.Mutex
	runs := 0
	flaky := CreateMockTaskWithPayload("transient trouble")
	flaky.ExecuteFn = func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		runs++
		if runs == 1 {
			return errors.New("storage temporarily unavailable")
		}
		return nil
	}

	// First run: the handler error must land the row in failed state.
	first := newTestRunner(store)
	require.NoError(t, first.Start())
	require.NoError(t, first.Submit(context.Background(), flaky))

	require.Eventually(t, func() bool {
		failed, err := store.GetFailedTasks(context.Background())
		require.NoError(t, err)
		return len(failed) == 1
	}, 2*time.Second, 10*time.Millisecond)
	first.Stop()

	// Second run over the same store: the failed row is redelivered and the
	// handler gets another chance.
	second := newTestRunner(store)
	require.NoError(t, second.Start())
	defer second.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		failed, err := store.GetFailedTasks(context.Background())
		require.NoError(t, err)
		return len(failed) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// recordingFactory rebuilds mock tasks and records the payloads it saw.
type recordingFactory struct {
	mu       sync.Mutex
	taskType string
	payloads [][]byte
	execute  func(ctx context.Context) error
}

func (f *recordingFactory) TaskType() string { return f.taskType }

func (f *recordingFactory) CreateFromPayload(payload []byte) (Task, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()

	task := NewMockTask(uuid.New(), f.taskType, payload)
	if f.execute != nil {
		task.ExecuteFn = f.execute
	}
	return task, nil
}

func TestTaskRunner_RecoverHydratesThroughRegistry(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()

	row := NewMockTask(uuid.New(), "mock_task", []byte(`{"message":"persisted"}`))
	require.NoError(t, store.SaveTask(context.Background(), row))

	factory := &recordingFactory{taskType: "mock_task"}
	registry := NewRegistry()
	registry.Register(factory)

	runner := newTestRunner(store)
	runner.SetRegistry(registry)
	require.NoError(t, runner.Recover())

	select {
	case task := <-runner.queue.GetChannel():
		// Identity of the recovered row survives hydration.
		assert.Equal(t, row.ID(), task.ID())
	case <-time.After(time.Second):
		t.Fatal("expected a hydrated task on the queue")
	}

	require.Len(t, factory.payloads, 1)
	assert.JSONEq(t, `{"message":"persisted"}`, string(factory.payloads[0]))
}

func TestTaskRunner_RecoverSkipsUnknownTypes(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	row := NewMockTask(uuid.New(), "long_gone_type", nil)
	require.NoError(t, store.SaveTask(context.Background(), row))

	runner := newTestRunner(store)
	runner.SetRegistry(NewRegistry())
	require.NoError(t, runner.Recover())

	select {
	case task := <-runner.queue.GetChannel():
		t.Fatalf("unexpected task on queue: %v", task.ID())
	case <-time.After(50 * time.Millisecond):
	}
}
