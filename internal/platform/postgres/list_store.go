package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/store"
)

// PostgresListStore implements the store.ListStore interface
// using a PostgreSQL database as the storage backend.
type PostgresListStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresListStore creates a new PostgreSQL implementation of the
// ListStore interface. If logger is nil, a default logger will be used.
func NewPostgresListStore(db store.DBTX, logger *slog.Logger) *PostgresListStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresListStore{
		db:     db,
		logger: logger.With(slog.String("component", "list_store")),
	}
}

// Ensure PostgresListStore implements store.ListStore interface
var _ store.ListStore = (*PostgresListStore)(nil)

// Create implements store.ListStore.Create
func (s *PostgresListStore) Create(ctx context.Context, list *domain.List) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := list.Validate(); err != nil {
		log.Warn("list validation failed during create",
			slog.String("error", err.Error()),
			slog.String("list_id", list.ID.String()))
		return err
	}

	query := `
		INSERT INTO lists (id, user_id, title, last_activity_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		list.ID,
		list.UserID,
		list.Title,
		list.LastActivityAt,
		list.CreatedAt,
		list.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create list",
			slog.String("error", err.Error()),
			slog.String("list_id", list.ID.String()))
		return MapError(err)
	}

	log.Info("list created successfully",
		slog.String("list_id", list.ID.String()),
		slog.String("user_id", list.UserID.String()))
	return nil
}

// GetByID implements store.ListStore.GetByID
// Returns store.ErrListNotFound if the list does not exist.
func (s *PostgresListStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, last_activity_at, created_at, updated_at
		FROM lists
		WHERE id = $1
	`

	var list domain.List
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&list.ID,
		&list.UserID,
		&list.Title,
		&list.LastActivityAt,
		&list.CreatedAt,
		&list.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("list not found", slog.String("list_id", id.String()))
			return nil, store.ErrListNotFound
		}
		log.Error("failed to get list by ID",
			slog.String("error", err.Error()),
			slog.String("list_id", id.String()))
		return nil, err
	}

	return &list, nil
}

// TouchActivity implements store.ListStore.TouchActivity
// Returns store.ErrListNotFound if the list does not exist.
func (s *PostgresListStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE lists
		SET last_activity_at = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, at, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to touch list activity",
			slog.String("error", err.Error()),
			slog.String("list_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "list"); err != nil {
		return err
	}

	log.Debug("list activity touched", slog.String("list_id", id.String()))
	return nil
}

// Delete implements store.ListStore.Delete
// Resources and subscriptions referencing the list go with it via ON DELETE
// CASCADE on their foreign keys.
// Returns store.ErrListNotFound if the list does not exist.
func (s *PostgresListStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM lists WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete list",
			slog.String("error", err.Error()),
			slog.String("list_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "list"); err != nil {
		return err
	}

	log.Info("list deleted", slog.String("list_id", id.String()))
	return nil
}

// WithTx implements store.ListStore.WithTx
func (s *PostgresListStore) WithTx(tx *sql.Tx) store.ListStore {
	return &PostgresListStore{
		db:     tx,
		logger: s.logger,
	}
}
