package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/listas/listas-api/internal/domain"
)

// IntegrationStore defines the interface for integration data persistence.
// Integrations are created and removed by the list management surface and
// consumed read-only by the fan-out coordinator.
// Version: 1.0
type IntegrationStore interface {
	// Create saves a new integration to the store.
	// Returns ErrSubscriptionExists when the user already holds an identical
	// subscription (same kind, source, and target list).
	Create(ctx context.Context, integration *domain.Integration) error

	// FindSubscriptions retrieves all subscription-kind integrations whose
	// source list equals the given list ID. Returns an empty slice when no
	// subscriber points at the list.
	FindSubscriptions(ctx context.Context, sourceListID uuid.UUID) ([]*domain.Integration, error)

	// Delete removes an integration owned by the given user.
	// Returns ErrIntegrationNotFound if no integration with that ID belongs
	// to the user; another user's integration is indistinguishable from a
	// missing one.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// WithTx returns a new IntegrationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) IntegrationStore
}
