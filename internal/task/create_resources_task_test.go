package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/events"
)

// fakeBatchStore implements the import task's store dependencies in memory.
type fakeBatchStore struct {
	mu        sync.Mutex
	resources []*domain.Resource
	touched   map[uuid.UUID]int

	CreateFn func(ctx context.Context, resource *domain.Resource) error
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{touched: make(map[uuid.UUID]int)}
}

func (s *fakeBatchStore) Create(ctx context.Context, resource *domain.Resource) error {
	if s.CreateFn != nil {
		if err := s.CreateFn(ctx, resource); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, resource)
	return nil
}

func (s *fakeBatchStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id]++
	return nil
}

func (s *fakeBatchStore) NextPosition(ctx context.Context, listID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 0
	for _, r := range s.resources {
		if r.ListID == listID && r.Position >= next {
			next = r.Position + 1
		}
	}
	return next, nil
}

// captureEmitter records emitted events.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *captureEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func newImportTask(
	t *testing.T,
	s *fakeBatchStore,
	emitter *captureEmitter,
	listID, userID uuid.UUID,
	urls []string,
) *CreateResourcesTask {
	t.Helper()

	task, err := NewCreateResourcesTask(listID, userID, urls, s, s, s, emitter, taskTestLogger())
	require.NoError(t, err)
	return task
}

func TestCreateResourcesTask_ImportsInOrder(t *testing.T) {
	t.Parallel()

	s := newFakeBatchStore()
	emitter := &captureEmitter{}
	listID, userID := uuid.New(), uuid.New()

	urls := []string{
		"https://example.com/one",
		"https://example.com/two",
		"https://example.com/three",
	}

	task := newImportTask(t, s, emitter, listID, userID, urls)
	require.NoError(t, task.Execute(context.Background()))

	require.Len(t, s.resources, 3)
	for i, r := range s.resources {
		assert.Equal(t, urls[i], r.URL)
		assert.Equal(t, i, r.Position)
		assert.Equal(t, listID, r.ListID)
		assert.Equal(t, userID, r.UserID)
	}

	// One enrichment request per created resource.
	require.Len(t, emitter.events, 3)
	for i, event := range emitter.events {
		assert.Equal(t, TaskTypePopulateResource, event.Type)

		var p PopulateResourcePayload
		require.NoError(t, event.UnmarshalPayload(&p))
		assert.Equal(t, s.resources[i].ID, p.ResourceID)
	}

	assert.Equal(t, 1, s.touched[listID])
}

func TestCreateResourcesTask_AppendsAfterExisting(t *testing.T) {
	t.Parallel()

	s := newFakeBatchStore()
	emitter := &captureEmitter{}
	listID, userID := uuid.New(), uuid.New()

	existing, err := domain.NewResource(listID, userID, "https://example.com/old", 4)
	require.NoError(t, err)
	s.resources = append(s.resources, existing)

	task := newImportTask(t, s, emitter, listID, userID, []string{"https://example.com/new"})
	require.NoError(t, task.Execute(context.Background()))

	require.Len(t, s.resources, 2)
	assert.Equal(t, 5, s.resources[1].Position)
}

func TestCreateResourcesTask_BadURLSkippedBatchContinues(t *testing.T) {
	t.Parallel()

	s := newFakeBatchStore()
	emitter := &captureEmitter{}
	listID, userID := uuid.New(), uuid.New()

	task := newImportTask(t, s, emitter, listID, userID, []string{
		"https://example.com/good",
		"not a url at all",
		"https://example.com/also-good",
	})
	require.NoError(t, task.Execute(context.Background()))

	require.Len(t, s.resources, 2)
	assert.Equal(t, "https://example.com/good", s.resources[0].URL)
	assert.Equal(t, "https://example.com/also-good", s.resources[1].URL)

	// Positions stay dense despite the skipped URL.
	assert.Equal(t, 0, s.resources[0].Position)
	assert.Equal(t, 1, s.resources[1].Position)
}

func TestCreateResourcesTask_AllURLsFailingFailsTask(t *testing.T) {
	t.Parallel()

	s := newFakeBatchStore()
	s.CreateFn = func(ctx context.Context, resource *domain.Resource) error {
		return errors.New("storage unavailable")
	}

	task := newImportTask(t, s, &captureEmitter{}, uuid.New(), uuid.New(),
		[]string{"https://example.com/a", "https://example.com/b"})

	err := task.Execute(context.Background())
	assert.Error(t, err)
}

func TestCreateResourcesTask_EmitFailureDoesNotFailBatch(t *testing.T) {
	t.Parallel()

	s := newFakeBatchStore()
	emitter := &captureEmitter{err: errors.New("bus down")}
	listID := uuid.New()

	task := newImportTask(t, s, emitter, listID, uuid.New(), []string{"https://example.com/a"})
	require.NoError(t, task.Execute(context.Background()))

	assert.Len(t, s.resources, 1)
}

func TestCreateResourcesTaskFactory_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newFakeBatchStore()
	emitter := &captureEmitter{}

	factory, err := NewCreateResourcesTaskFactory(s, s, s, emitter, taskTestLogger())
	require.NoError(t, err)

	listID, userID := uuid.New(), uuid.New()
	original := newImportTask(t, s, emitter, listID, userID, []string{"https://example.com/a"})

	rebuilt, err := factory.CreateFromPayload(original.Payload())
	require.NoError(t, err)
	assert.Equal(t, TaskTypeCreateResources, rebuilt.Type())

	require.NoError(t, rebuilt.Execute(context.Background()))
	require.Len(t, s.resources, 1)
	assert.Equal(t, listID, s.resources[0].ListID)
}
