package position

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/store"
)

// fakeStore is an in-memory Store for exercising the manager's algorithm.
type fakeStore struct {
	mu        sync.Mutex
	resources map[uuid.UUID]*domain.Resource

	// Optional overrides to inject failures.
	ShiftFn func(ctx context.Context, listID, userID uuid.UUID, from int, exclude uuid.UUID) (int64, error)
	SetFn   func(ctx context.Context, id uuid.UUID, position int) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{resources: make(map[uuid.UUID]*domain.Resource)}
}

func (s *fakeStore) add(r *domain.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID] = r
}

func (s *fakeStore) HighestPositioned(ctx context.Context, listID uuid.UUID) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var top *domain.Resource
	for _, r := range s.resources {
		if r.ListID != listID {
			continue
		}
		if top == nil || r.Position > top.Position {
			top = r
		}
	}
	if top == nil {
		return nil, store.ErrResourceNotFound
	}
	return top, nil
}

func (s *fakeStore) GetSibling(ctx context.Context, id, listID, userID uuid.UUID) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[id]
	if !ok || r.ListID != listID || r.UserID != userID {
		return nil, store.ErrResourceNotFound
	}
	return r, nil
}

func (s *fakeStore) ShiftPositions(
	ctx context.Context,
	listID, userID uuid.UUID,
	from int,
	exclude uuid.UUID,
) (int64, error) {
	if s.ShiftFn != nil {
		return s.ShiftFn(ctx, listID, userID, from, exclude)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var shifted int64
	for _, r := range s.resources {
		if r.ListID == listID && r.UserID == userID && r.ID != exclude && r.Position >= from {
			r.Position++
			shifted++
		}
	}
	return shifted, nil
}

func (s *fakeStore) SetPosition(ctx context.Context, id uuid.UUID, position int) error {
	if s.SetFn != nil {
		return s.SetFn(ctx, id, position)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[id]
	if !ok {
		return store.ErrResourceNotFound
	}
	r.Position = position
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// positionsOf returns the sorted positions of all resources in a list.
func (s *fakeStore) positionsOf(listID uuid.UUID) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var positions []int
	for _, r := range s.resources {
		if r.ListID == listID {
			positions = append(positions, r.Position)
		}
	}
	sort.Ints(positions)
	return positions
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func seedList(t *testing.T, s *fakeStore, listID, userID uuid.UUID, count int) []*domain.Resource {
	t.Helper()

	resources := make([]*domain.Resource, 0, count)
	for i := 0; i < count; i++ {
		r, err := domain.NewResource(listID, userID, "https://example.com/a", i)
		require.NoError(t, err)
		s.add(r)
		resources = append(resources, r)
	}
	return resources
}

func TestManager_NextPosition(t *testing.T) {
	t.Parallel()

	t.Run("empty list returns zero", func(t *testing.T) {
		t.Parallel()

		s := newFakeStore()
		m, err := NewManager(s, testLogger())
		require.NoError(t, err)

		pos, err := m.NextPosition(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 0, pos)
	})

	t.Run("returns max plus one", func(t *testing.T) {
		t.Parallel()

		s := newFakeStore()
		listID, userID := uuid.New(), uuid.New()
		seedList(t, s, listID, userID, 5) // positions 0..4

		m, err := NewManager(s, testLogger())
		require.NoError(t, err)

		pos, err := m.NextPosition(context.Background(), listID)
		require.NoError(t, err)
		assert.Equal(t, 5, pos)
	})

	t.Run("ignores other lists", func(t *testing.T) {
		t.Parallel()

		s := newFakeStore()
		userID := uuid.New()
		seedList(t, s, uuid.New(), userID, 3)

		m, err := NewManager(s, testLogger())
		require.NoError(t, err)

		pos, err := m.NextPosition(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 0, pos)
	})
}

func TestManager_Reposition_MoveToFront(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	listID, userID := uuid.New(), uuid.New()
	resources := seedList(t, s, listID, userID, 4) // positions 0..3
	moving := resources[2]

	m, err := NewManager(s, testLogger())
	require.NoError(t, err)

	pos, err := m.Reposition(context.Background(), moving.ID, listID, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 0, moving.Position)

	// Every other resource shifted up by exactly one.
	assert.Equal(t, 1, resources[0].Position)
	assert.Equal(t, 2, resources[1].Position)
	assert.Equal(t, 4, resources[3].Position)

	// No duplicate positions after the move.
	assert.Equal(t, []int{0, 1, 2, 4}, s.positionsOf(listID))
}

func TestManager_Reposition_AfterSibling(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	listID, userID := uuid.New(), uuid.New()
	resources := seedList(t, s, listID, userID, 5) // positions 0..4
	moving := resources[4]
	sibling := resources[1]

	m, err := NewManager(s, testLogger())
	require.NoError(t, err)

	pos, err := m.Reposition(context.Background(), moving.ID, listID, userID, &sibling.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 2, moving.Position)

	// Siblings originally at >= 2 (excluding the moving one) shifted up by one.
	assert.Equal(t, 0, resources[0].Position)
	assert.Equal(t, 1, resources[1].Position)
	assert.Equal(t, 3, resources[2].Position)
	assert.Equal(t, 4, resources[3].Position)

	positions := s.positionsOf(listID)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, positions)
}

func TestManager_Reposition_SiblingNotFound(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	listID, userID := uuid.New(), uuid.New()
	resources := seedList(t, s, listID, userID, 2)

	m, err := NewManager(s, testLogger())
	require.NoError(t, err)

	t.Run("unknown sibling id", func(t *testing.T) {
		t.Parallel()

		missing := uuid.New()
		_, err := m.Reposition(context.Background(), resources[0].ID, listID, userID, &missing)
		assert.ErrorIs(t, err, store.ErrResourceNotFound)
	})

	t.Run("sibling from another list is out of scope", func(t *testing.T) {
		t.Parallel()

		other, err := domain.NewResource(uuid.New(), userID, "https://example.com/b", 0)
		require.NoError(t, err)
		s.add(other)

		_, err = m.Reposition(context.Background(), resources[0].ID, listID, userID, &other.ID)
		assert.ErrorIs(t, err, store.ErrResourceNotFound)
	})
}

func TestManager_Reposition_ShiftFailure(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	listID, userID := uuid.New(), uuid.New()
	resources := seedList(t, s, listID, userID, 2)

	shiftErr := errors.New("storage unavailable")
	s.ShiftFn = func(ctx context.Context, listID, userID uuid.UUID, from int, exclude uuid.UUID) (int64, error) {
		return 0, shiftErr
	}

	m, err := NewManager(s, testLogger())
	require.NoError(t, err)

	_, err = m.Reposition(context.Background(), resources[1].ID, listID, userID, nil)
	assert.ErrorIs(t, err, shiftErr)
}

func TestNewManager_NilStore(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil, testLogger())
	assert.Error(t, err)
}
