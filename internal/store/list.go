package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/listas/listas-api/internal/domain"
)

// ListStore defines the interface for list data persistence.
// Version: 1.0
type ListStore interface {
	// Create saves a new list to the store.
	// Returns validation errors if the list data is invalid.
	Create(ctx context.Context, list *domain.List) error

	// GetByID retrieves a list by its unique ID.
	// Returns ErrListNotFound if the list does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error)

	// TouchActivity refreshes the list's last_activity_at (and updated_at)
	// timestamps. Called whenever a resource under the list changes.
	// Returns ErrListNotFound if the list does not exist.
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error

	// Delete removes a list from the store by its ID.
	//
	// Deletion relies on database-level CASCADE DELETE behavior to remove the
	// list's resources and any integrations referencing the list in either
	// the source or target role. This is configured through ON DELETE CASCADE
	// foreign key constraints in the schema; if the schema changes, this
	// method must be updated to maintain referential integrity.
	//
	// Returns ErrListNotFound if the list does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new ListStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ListStore
}
