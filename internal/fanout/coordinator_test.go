package fanout

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

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/store"
)

// memoryStore backs all coordinator dependencies for tests.
type memoryStore struct {
	mu            sync.Mutex
	resources     map[uuid.UUID]*domain.Resource
	subscriptions map[uuid.UUID][]*domain.Integration // keyed by source list
	touched       map[uuid.UUID]int

	CreateFn func(ctx context.Context, resource *domain.Resource) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		resources:     make(map[uuid.UUID]*domain.Resource),
		subscriptions: make(map[uuid.UUID][]*domain.Integration),
		touched:       make(map[uuid.UUID]int),
	}
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, store.ErrResourceNotFound
	}
	return r, nil
}

func (s *memoryStore) Create(ctx context.Context, resource *domain.Resource) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, resource)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[resource.ID] = resource
	return nil
}

func (s *memoryStore) FindSubscriptions(
	ctx context.Context,
	sourceListID uuid.UUID,
) ([]*domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions[sourceListID], nil
}

func (s *memoryStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id]++
	return nil
}

// NextPosition implements Positioner on top of the in-memory resources.
func (s *memoryStore) NextPosition(ctx context.Context, listID uuid.UUID) (int, error) {
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

func (s *memoryStore) listResources(listID uuid.UUID) []*domain.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Resource
	for _, r := range s.resources {
		if r.ListID == listID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memoryStore) subscribe(t *testing.T, userID, sourceListID, targetListID uuid.UUID) {
	t.Helper()

	sub, err := domain.NewSubscription(userID, sourceListID, targetListID)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sourceListID] = append(s.subscriptions[sourceListID], sub)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestCoordinator(t *testing.T, s *memoryStore) *Coordinator {
	t.Helper()

	c, err := NewCoordinator(s, s, s, s, Config{}, testLogger())
	require.NoError(t, err)
	return c
}

func seedSource(t *testing.T, s *memoryStore, listID, userID uuid.UUID) *domain.Resource {
	t.Helper()

	source, err := domain.NewResource(listID, userID, "https://example.com/article", 0)
	require.NoError(t, err)
	source.Title = "An Article"
	source.Description = "Worth reading"
	source.Thumbnail = "https://example.com/thumb.png"
	source.Tags = []string{"go", "reading"}
	s.mu.Lock()
	s.resources[source.ID] = source
	s.mu.Unlock()
	return source
}

func TestCoordinator_SingleSubscriberClone(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	sourceList, targetList := uuid.New(), uuid.New()
	owner, subscriber := uuid.New(), uuid.New()

	source := seedSource(t, s, sourceList, owner)
	s.subscribe(t, subscriber, sourceList, targetList)

	c := newTestCoordinator(t, s)
	err := c.handle(context.Background(), ResourceCreated{ResourceID: source.ID})
	require.NoError(t, err)

	clones := s.listResources(targetList)
	require.Len(t, clones, 1)

	clone := clones[0]
	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, targetList, clone.ListID)
	assert.Equal(t, subscriber, clone.UserID)
	assert.Equal(t, source.URL, clone.URL)
	assert.Equal(t, source.Title, clone.Title)
	assert.Equal(t, source.Description, clone.Description)
	assert.Equal(t, source.Thumbnail, clone.Thumbnail)
	assert.Equal(t, source.Tags, clone.Tags)
	assert.Equal(t, 0, clone.Position)
	assert.Nil(t, clone.CompletedAt)
	assert.Empty(t, clone.HTML)
	assert.Nil(t, clone.PopulatedAt)

	assert.Equal(t, 1, s.touched[targetList])
}

func TestCoordinator_CloneAppendsAtTail(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	sourceList, targetList := uuid.New(), uuid.New()
	owner, subscriber := uuid.New(), uuid.New()

	// Target list already has resources at positions 0..2.
	for i := 0; i < 3; i++ {
		existing, err := domain.NewResource(targetList, subscriber, "https://example.com/old", i)
		require.NoError(t, err)
		s.resources[existing.ID] = existing
	}

	source := seedSource(t, s, sourceList, owner)
	s.subscribe(t, subscriber, sourceList, targetList)

	c := newTestCoordinator(t, s)
	require.NoError(t, c.handle(context.Background(), ResourceCreated{ResourceID: source.ID}))

	clones := s.listResources(targetList)
	require.Len(t, clones, 4)
	found := false
	for _, r := range clones {
		if r.URL == source.URL {
			assert.Equal(t, 3, r.Position)
			found = true
		}
	}
	assert.True(t, found, "clone not found in target list")
}

func TestCoordinator_NoRecursiveFanout(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	listA, listB, listC := uuid.New(), uuid.New(), uuid.New()
	owner := uuid.New()

	// B subscribes to A, C subscribes to B. Creating in A must reach B only.
	s.subscribe(t, owner, listA, listB)
	s.subscribe(t, owner, listB, listC)

	source := seedSource(t, s, listA, owner)

	c := newTestCoordinator(t, s)
	require.NoError(t, c.handle(context.Background(), ResourceCreated{ResourceID: source.ID}))

	assert.Len(t, s.listResources(listB), 1)
	assert.Empty(t, s.listResources(listC))
}

func TestCoordinator_MissingResourceIsSoftSuccess(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	c := newTestCoordinator(t, s)

	err := c.handle(context.Background(), ResourceCreated{ResourceID: uuid.New()})
	assert.NoError(t, err)
}

func TestCoordinator_CloneFailureFailsEvent(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	sourceList := uuid.New()
	owner := uuid.New()

	source := seedSource(t, s, sourceList, owner)
	s.subscribe(t, uuid.New(), sourceList, uuid.New())
	s.subscribe(t, uuid.New(), sourceList, uuid.New())

	insertErr := errors.New("storage unavailable")
	s.CreateFn = func(ctx context.Context, resource *domain.Resource) error {
		return insertErr
	}

	c := newTestCoordinator(t, s)
	err := c.handle(context.Background(), ResourceCreated{ResourceID: source.ID})
	assert.ErrorIs(t, err, insertErr)
}

func TestCoordinator_EnqueueProcessesInBackground(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	sourceList, targetList := uuid.New(), uuid.New()
	owner, subscriber := uuid.New(), uuid.New()

	source := seedSource(t, s, sourceList, owner)
	s.subscribe(t, subscriber, sourceList, targetList)

	c := newTestCoordinator(t, s)
	c.Start()
	defer c.Stop()

	c.Enqueue(ResourceCreated{ResourceID: source.ID})

	require.Eventually(t, func() bool {
		return len(s.listResources(targetList)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinator_FailureHandlerInvoked(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	sourceList := uuid.New()
	owner := uuid.New()

	source := seedSource(t, s, sourceList, owner)
	s.subscribe(t, uuid.New(), sourceList, uuid.New())

	insertErr := errors.New("storage unavailable")
	s.CreateFn = func(ctx context.Context, resource *domain.Resource) error {
		return insertErr
	}

	failures := make(chan error, 1)

	c := newTestCoordinator(t, s)
	c.SetFailureHandler(func(event ResourceCreated, err error) {
		failures <- err
	})
	c.Start()
	defer c.Stop()

	c.Enqueue(ResourceCreated{ResourceID: source.ID})

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, insertErr)
	case <-time.After(2 * time.Second):
		t.Fatal("failure handler was not invoked")
	}
}
