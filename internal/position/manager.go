package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/store"
)

// Store is the narrow slice of resource persistence the position manager
// needs. *postgres.PostgresResourceStore satisfies it; tests use fakes.
type Store interface {
	// HighestPositioned retrieves the resource with the largest position in
	// the list, or store.ErrResourceNotFound when the list is empty.
	HighestPositioned(ctx context.Context, listID uuid.UUID) (*domain.Resource, error)

	// GetSibling retrieves a resource scoped to the given list and user.
	GetSibling(ctx context.Context, id, listID, userID uuid.UUID) (*domain.Resource, error)

	// ShiftPositions atomically increments the position of every resource in
	// the list/user scope at or above from, excluding the given resource.
	ShiftPositions(ctx context.Context, listID, userID uuid.UUID, from int, exclude uuid.UUID) (int64, error)

	// SetPosition rewrites a single resource's position and refreshes updated_at.
	SetPosition(ctx context.Context, id uuid.UUID, position int) error
}

// Manager computes insertion positions and performs the shift needed to keep
// list positions unique and ordered. It performs no I/O of its own beyond the
// injected Store.
//
// Reposition issues two statements (shift, then set) without a wrapping
// transaction; each statement is atomic on its own, but two concurrent
// Reposition calls on overlapping ranges of the same list can interleave and
// leave two resources at the same position. Callers that need stronger
// guarantees must serialize per list, the way the fan-out coordinator
// serializes its events.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a position Manager on top of the given store.
// If logger is nil, the default logger is used.
func NewManager(store Store, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:  store,
		logger: logger.With("component", "position_manager"),
	}, nil
}

// NextPosition returns one greater than the maximum existing position for the
// list, or 0 if the list is empty.
func (m *Manager) NextPosition(ctx context.Context, listID uuid.UUID) (int, error) {
	top, err := m.store.HighestPositioned(ctx, listID)
	if err != nil {
		if errors.Is(err, store.ErrResourceNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query highest position: %w", err)
	}

	return top.Position + 1, nil
}

// Reposition moves a resource within its list.
//
// With afterID nil the resource moves to the front (position 0). Otherwise the
// sibling identified by afterID is looked up in the same list and user scope
// and the target position is its position plus one; a missing sibling yields
// store.ErrResourceNotFound. All siblings at or above the target position are
// shifted up by one to open a gap, then the moving resource is written into it.
// Returns the new position.
func (m *Manager) Reposition(
	ctx context.Context,
	resourceID, listID, userID uuid.UUID,
	afterID *uuid.UUID,
) (int, error) {
	target := 0
	if afterID != nil {
		sibling, err := m.store.GetSibling(ctx, *afterID, listID, userID)
		if err != nil {
			if errors.Is(err, store.ErrResourceNotFound) {
				return 0, err
			}
			return 0, fmt.Errorf("failed to look up sibling: %w", err)
		}
		target = sibling.Position + 1
	}

	shifted, err := m.store.ShiftPositions(ctx, listID, userID, target, resourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to shift positions: %w", err)
	}

	m.logger.Debug("opened position gap",
		"list_id", listID,
		"resource_id", resourceID,
		"target", target,
		"shifted", shifted)

	if err := m.store.SetPosition(ctx, resourceID, target); err != nil {
		return 0, fmt.Errorf("failed to set position: %w", err)
	}

	return target, nil
}
