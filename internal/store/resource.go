package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/listas/listas-api/internal/domain"
)

// ResourceMetadata carries a partial enrichment update for a resource. Only
// non-nil fields are written; everything else is left untouched. The whole
// struct is applied as a single atomic field-set update keyed by resource ID,
// which makes re-applying the same metadata idempotent.
type ResourceMetadata struct {
	Title       *string
	Description *string
	Thumbnail   *string
	HTML        *string
	Text        *string
	Author      *string
	Length      *int
	Publisher   *string
}

// IsEmpty reports whether the update carries no fields at all.
func (m ResourceMetadata) IsEmpty() bool {
	return m.Title == nil && m.Description == nil && m.Thumbnail == nil &&
		m.HTML == nil && m.Text == nil && m.Author == nil &&
		m.Length == nil && m.Publisher == nil
}

// ResourceStore defines the interface for resource data persistence.
// Version: 1.0
type ResourceStore interface {
	// Create saves a new resource to the store.
	// All resources must be valid according to domain validation rules.
	// Returns validation errors if the resource data is invalid.
	Create(ctx context.Context, resource *domain.Resource) error

	// GetByID retrieves a resource by its unique ID.
	// Returns ErrResourceNotFound if the resource does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)

	// GetSibling retrieves a resource scoped to the given list and user.
	// Used by reposition to resolve the "previous" resource; the scoping
	// prevents repositioning against a resource from another list or user.
	// Returns ErrResourceNotFound if no such resource exists in that scope.
	GetSibling(ctx context.Context, id, listID, userID uuid.UUID) (*domain.Resource, error)

	// HighestPositioned retrieves the resource with the largest position in
	// the given list (ordered descending by position, limit 1).
	// Returns ErrResourceNotFound when the list holds no resources.
	HighestPositioned(ctx context.Context, listID uuid.UUID) (*domain.Resource, error)

	// ShiftPositions atomically increments the position of every resource in
	// the given list and user scope whose position is >= from, excluding the
	// resource with the given ID. This is a single multi-row update; the store
	// guarantees its atomicity, but not atomicity with a following SetPosition.
	// Returns the number of shifted rows.
	ShiftPositions(ctx context.Context, listID, userID uuid.UUID, from int, exclude uuid.UUID) (int64, error)

	// SetPosition rewrites the position of a single resource and refreshes its
	// updated_at timestamp.
	// Returns ErrResourceNotFound if the resource does not exist.
	SetPosition(ctx context.Context, id uuid.UUID, position int) error

	// UpdateMetadata applies a partial enrichment update to a resource and
	// stamps populated_at. Only the fields present in the update are written;
	// position, list, user, and completion state are never touched.
	// Returns ErrResourceNotFound if the resource does not exist.
	UpdateMetadata(ctx context.Context, id uuid.UUID, meta ResourceMetadata) error

	// SetCompletedAt sets or clears (nil) the completion marker of a resource
	// and refreshes updated_at.
	// Returns ErrResourceNotFound if the resource does not exist.
	SetCompletedAt(ctx context.Context, id uuid.UUID, completedAt *time.Time) error

	// Delete removes a resource from the store by its ID.
	// Returns ErrResourceNotFound if the resource does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new ResourceStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service) via RunInTransaction.
	WithTx(tx *sql.Tx) ResourceStore
}
