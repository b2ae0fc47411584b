package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/store"
)

// PostgresIntegrationStore implements the store.IntegrationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresIntegrationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresIntegrationStore creates a new PostgreSQL implementation of the
// IntegrationStore interface. If logger is nil, a default logger will be used.
func NewPostgresIntegrationStore(db store.DBTX, logger *slog.Logger) *PostgresIntegrationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresIntegrationStore{
		db:     db,
		logger: logger.With(slog.String("component", "integration_store")),
	}
}

// Ensure PostgresIntegrationStore implements store.IntegrationStore interface
var _ store.IntegrationStore = (*PostgresIntegrationStore)(nil)

// Create implements store.IntegrationStore.Create
// Returns store.ErrSubscriptionExists when the same user already has an
// identical subscription (unique constraint on user, kind, source, target).
// Returns store.ErrInvalidEntity when either list does not exist.
func (s *PostgresIntegrationStore) Create(ctx context.Context, integration *domain.Integration) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := integration.Validate(); err != nil {
		log.Warn("integration validation failed during create",
			slog.String("error", err.Error()),
			slog.String("integration_id", integration.ID.String()))
		return err
	}

	query := `
		INSERT INTO integrations (id, user_id, kind, source_list_id, target_list_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		integration.ID,
		integration.UserID,
		integration.Kind,
		integration.SourceListID,
		integration.TargetListID,
		integration.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate subscription",
				slog.String("user_id", integration.UserID.String()),
				slog.String("source_list_id", integration.SourceListID.String()),
				slog.String("target_list_id", integration.TargetListID.String()))
			return MapUniqueViolation(err, store.ErrSubscriptionExists)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: source or target list not found", store.ErrInvalidEntity)
		}

		log.Error("failed to create integration",
			slog.String("error", err.Error()),
			slog.String("integration_id", integration.ID.String()))
		return MapError(err)
	}

	log.Info("integration created successfully",
		slog.String("integration_id", integration.ID.String()),
		slog.String("kind", string(integration.Kind)))
	return nil
}

// FindSubscriptions implements store.IntegrationStore.FindSubscriptions
// Returns every subscription whose source is the given list. An empty slice
// means no list subscribes to it.
func (s *PostgresIntegrationStore) FindSubscriptions(
	ctx context.Context,
	sourceListID uuid.UUID,
) ([]*domain.Integration, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, kind, source_list_id, target_list_id, created_at
		FROM integrations
		WHERE source_list_id = $1 AND kind = $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sourceListID, domain.IntegrationKindSubscription)
	if err != nil {
		log.Error("failed to query subscriptions",
			slog.String("error", err.Error()),
			slog.String("source_list_id", sourceListID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var integrations []*domain.Integration
	for rows.Next() {
		var integration domain.Integration
		err := rows.Scan(
			&integration.ID,
			&integration.UserID,
			&integration.Kind,
			&integration.SourceListID,
			&integration.TargetListID,
			&integration.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration row: %w", err)
		}
		integrations = append(integrations, &integration)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating integration rows: %w", err)
	}

	if integrations == nil {
		integrations = []*domain.Integration{}
	}

	log.Debug("found subscriptions",
		slog.String("source_list_id", sourceListID.String()),
		slog.Int("count", len(integrations)))
	return integrations, nil
}

// Delete implements store.IntegrationStore.Delete
// Scoping the delete by user makes another user's integration look exactly
// like a missing one: store.ErrIntegrationNotFound either way.
func (s *PostgresIntegrationStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM integrations WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		log.Error("failed to delete integration",
			slog.String("error", err.Error()),
			slog.String("integration_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "integration"); err != nil {
		return err
	}

	log.Info("integration deleted", slog.String("integration_id", id.String()))
	return nil
}

// WithTx implements store.IntegrationStore.WithTx
func (s *PostgresIntegrationStore) WithTx(tx *sql.Tx) store.IntegrationStore {
	return &PostgresIntegrationStore{
		db:     tx,
		logger: s.logger,
	}
}
