package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/store"
)

// resourceColumns is the column list shared by every SELECT on resources.
const resourceColumns = `
	id, list_id, user_id, url, title, description, thumbnail, tags, position,
	completed_at, html, text, author, length, publisher, populated_at,
	created_at, updated_at
`

// PostgresResourceStore implements the store.ResourceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresResourceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResourceStore creates a new PostgreSQL implementation of the
// ResourceStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresResourceStore(db store.DBTX, logger *slog.Logger) *PostgresResourceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresResourceStore{
		db:     db,
		logger: logger.With(slog.String("component", "resource_store")),
	}
}

// Ensure PostgresResourceStore implements store.ResourceStore interface
var _ store.ResourceStore = (*PostgresResourceStore)(nil)

// Create implements store.ResourceStore.Create
// It saves a new resource to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the list doesn't exist (foreign key violation).
func (s *PostgresResourceStore) Create(ctx context.Context, resource *domain.Resource) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := resource.Validate(); err != nil {
		log.Warn("resource validation failed during create",
			slog.String("error", err.Error()),
			slog.String("resource_id", resource.ID.String()))
		return err
	}

	tags, err := json.Marshal(resource.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO resources (
			id, list_id, user_id, url, title, description, thumbnail, tags,
			position, completed_at, html, text, author, length, publisher,
			populated_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		resource.ID,
		resource.ListID,
		resource.UserID,
		resource.URL,
		resource.Title,
		resource.Description,
		resource.Thumbnail,
		tags,
		resource.Position,
		resource.CompletedAt,
		resource.HTML,
		resource.Text,
		resource.Author,
		resource.Length,
		resource.Publisher,
		resource.PopulatedAt,
		resource.CreatedAt,
		resource.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during resource creation",
				slog.String("error", err.Error()),
				slog.String("resource_id", resource.ID.String()),
				slog.String("list_id", resource.ListID.String()))
			return fmt.Errorf("%w: list with ID %s not found",
				store.ErrInvalidEntity, resource.ListID)
		}

		log.Error("failed to create resource",
			slog.String("error", err.Error()),
			slog.String("resource_id", resource.ID.String()),
			slog.String("list_id", resource.ListID.String()))
		return MapError(err)
	}

	log.Info("resource created successfully",
		slog.String("resource_id", resource.ID.String()),
		slog.String("list_id", resource.ListID.String()),
		slog.Int("position", resource.Position))
	return nil
}

// GetByID implements store.ResourceStore.GetByID
// Returns store.ErrResourceNotFound if the resource does not exist.
func (s *PostgresResourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	resource, err := s.scanResource(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("resource not found", slog.String("resource_id", id.String()))
			return nil, store.ErrResourceNotFound
		}
		log.Error("failed to get resource by ID",
			slog.String("error", err.Error()),
			slog.String("resource_id", id.String()))
		return nil, err
	}

	return resource, nil
}

// GetSibling implements store.ResourceStore.GetSibling
// The list and user scope prevents repositioning against a resource that
// belongs to another list or user.
// Returns store.ErrResourceNotFound if no such resource exists in that scope.
func (s *PostgresResourceStore) GetSibling(
	ctx context.Context,
	id, listID, userID uuid.UUID,
) (*domain.Resource, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + resourceColumns + `
		FROM resources
		WHERE id = $1 AND list_id = $2 AND user_id = $3`

	resource, err := s.scanResource(s.db.QueryRowContext(ctx, query, id, listID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResourceNotFound
		}
		log.Error("failed to get sibling resource",
			slog.String("error", err.Error()),
			slog.String("resource_id", id.String()),
			slog.String("list_id", listID.String()))
		return nil, err
	}

	return resource, nil
}

// HighestPositioned implements store.ResourceStore.HighestPositioned
// Returns store.ErrResourceNotFound when the list holds no resources.
func (s *PostgresResourceStore) HighestPositioned(
	ctx context.Context,
	listID uuid.UUID,
) (*domain.Resource, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + resourceColumns + `
		FROM resources
		WHERE list_id = $1
		ORDER BY position DESC
		LIMIT 1`

	resource, err := s.scanResource(s.db.QueryRowContext(ctx, query, listID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResourceNotFound
		}
		log.Error("failed to get highest positioned resource",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()))
		return nil, err
	}

	return resource, nil
}

// ShiftPositions implements store.ResourceStore.ShiftPositions
// The increment runs as a single multi-row UPDATE, so it is atomic on its
// own, but not together with a following SetPosition.
func (s *PostgresResourceStore) ShiftPositions(
	ctx context.Context,
	listID, userID uuid.UUID,
	from int,
	exclude uuid.UUID,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE resources
		SET position = position + 1, updated_at = $1
		WHERE list_id = $2 AND user_id = $3 AND position >= $4 AND id != $5
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), listID, userID, from, exclude)
	if err != nil {
		log.Error("failed to shift resource positions",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()),
			slog.Int("from", from))
		return 0, MapError(err)
	}

	shifted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Debug("shifted resource positions",
		slog.String("list_id", listID.String()),
		slog.Int("from", from),
		slog.Int64("shifted", shifted))
	return shifted, nil
}

// SetPosition implements store.ResourceStore.SetPosition
// Returns store.ErrResourceNotFound if the resource does not exist.
func (s *PostgresResourceStore) SetPosition(ctx context.Context, id uuid.UUID, position int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE resources
		SET position = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, position, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set resource position",
			slog.String("error", err.Error()),
			slog.String("resource_id", id.String()),
			slog.Int("position", position))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "resource"); err != nil {
		return err
	}

	log.Debug("resource position updated",
		slog.String("resource_id", id.String()),
		slog.Int("position", position))
	return nil
}

// UpdateMetadata implements store.ResourceStore.UpdateMetadata
// Only the non-nil fields of the update are written, in one UPDATE statement,
// so a sparse extraction result never blanks out earlier enrichment.
// Returns store.ErrResourceNotFound if the resource does not exist.
func (s *PostgresResourceStore) UpdateMetadata(
	ctx context.Context,
	id uuid.UUID,
	meta store.ResourceMetadata,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if meta.IsEmpty() {
		log.Debug("empty metadata update, nothing to do",
			slog.String("resource_id", id.String()))
		return nil
	}

	assignments := make([]string, 0, 10)
	args := make([]interface{}, 0, 12)

	addField := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if meta.Title != nil {
		addField("title", *meta.Title)
	}
	if meta.Description != nil {
		addField("description", *meta.Description)
	}
	if meta.Thumbnail != nil {
		addField("thumbnail", *meta.Thumbnail)
	}
	if meta.HTML != nil {
		addField("html", *meta.HTML)
	}
	if meta.Text != nil {
		addField("text", *meta.Text)
	}
	if meta.Author != nil {
		addField("author", *meta.Author)
	}
	if meta.Length != nil {
		addField("length", *meta.Length)
	}
	if meta.Publisher != nil {
		addField("publisher", *meta.Publisher)
	}

	now := time.Now().UTC()
	addField("populated_at", now)
	addField("updated_at", now)

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE resources SET %s WHERE id = $%d",
		strings.Join(assignments, ", "),
		len(args),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update resource metadata",
			slog.String("error", err.Error()),
			slog.String("resource_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "resource"); err != nil {
		return err
	}

	log.Info("resource metadata updated",
		slog.String("resource_id", id.String()),
		slog.Int("fields", len(assignments)-2))
	return nil
}

// SetCompletedAt implements store.ResourceStore.SetCompletedAt
// A nil completedAt clears the completion marker.
// Returns store.ErrResourceNotFound if the resource does not exist.
func (s *PostgresResourceStore) SetCompletedAt(
	ctx context.Context,
	id uuid.UUID,
	completedAt *time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE resources
		SET completed_at = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, completedAt, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set resource completion",
			slog.String("error", err.Error()),
			slog.String("resource_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "resource"); err != nil {
		return err
	}

	log.Debug("resource completion updated",
		slog.String("resource_id", id.String()),
		slog.Bool("completed", completedAt != nil))
	return nil
}

// Delete implements store.ResourceStore.Delete
// Returns store.ErrResourceNotFound if the resource does not exist.
func (s *PostgresResourceStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM resources WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete resource",
			slog.String("error", err.Error()),
			slog.String("resource_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "resource"); err != nil {
		return err
	}

	log.Info("resource deleted", slog.String("resource_id", id.String()))
	return nil
}

// WithTx implements store.ResourceStore.WithTx
func (s *PostgresResourceStore) WithTx(tx *sql.Tx) store.ResourceStore {
	return &PostgresResourceStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanResource.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanResource reads one resource row in resourceColumns order.
func (s *PostgresResourceStore) scanResource(row rowScanner) (*domain.Resource, error) {
	var resource domain.Resource
	var tags []byte

	err := row.Scan(
		&resource.ID,
		&resource.ListID,
		&resource.UserID,
		&resource.URL,
		&resource.Title,
		&resource.Description,
		&resource.Thumbnail,
		&tags,
		&resource.Position,
		&resource.CompletedAt,
		&resource.HTML,
		&resource.Text,
		&resource.Author,
		&resource.Length,
		&resource.Publisher,
		&resource.PopulatedAt,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &resource.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	return &resource, nil
}
