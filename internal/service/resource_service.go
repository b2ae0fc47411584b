package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/events"
	"github.com/listas/listas-api/internal/fanout"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/store"
	"github.com/listas/listas-api/internal/task"
)

// ResourceServiceError is a custom error type for resource service errors.
type ResourceServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ResourceServiceError.
func (e *ResourceServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resource service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("resource service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ResourceServiceError) Unwrap() error {
	return e.Err
}

// NewResourceServiceError creates a new ResourceServiceError.
func NewResourceServiceError(operation, message string, err error) *ResourceServiceError {
	return &ResourceServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// PositionManager hands out and rewrites list positions.
type PositionManager interface {
	// NextPosition returns the append position for a new resource in the list.
	NextPosition(ctx context.Context, listID uuid.UUID) (int, error)

	// Reposition moves a resource after the given sibling (or to the front
	// when afterID is nil) and returns the position it landed on.
	Reposition(ctx context.Context, resourceID, listID, userID uuid.UUID, afterID *uuid.UUID) (int, error)
}

// FanoutEnqueuer accepts resource-created events for asynchronous replication.
type FanoutEnqueuer interface {
	// Enqueue hands an event to the coordinator without blocking.
	Enqueue(event fanout.ResourceCreated)
}

// CreateResourceParams carries the caller-supplied fields for a new resource.
type CreateResourceParams struct {
	ListID      uuid.UUID
	UserID      uuid.UUID
	URL         string
	Title       string
	Description string
	Thumbnail   string
	Tags        []string
}

// ResourceService provides resource-related operations
type ResourceService interface {
	// CreateResource appends a new resource to a list and triggers fan-out
	// and enrichment. Success means the resource is persisted; the async
	// triggers are fire-and-forget.
	CreateResource(ctx context.Context, params CreateResourceParams) (*domain.Resource, error)

	// Reposition moves a resource within its list. A nil previousID moves it
	// to the front; otherwise it lands directly after the named sibling.
	// Returns the position the resource landed on.
	Reposition(ctx context.Context, userID, resourceID, listID uuid.UUID, previousID *uuid.UUID) (int, error)

	// Complete marks a resource as read.
	Complete(ctx context.Context, userID, resourceID uuid.UUID) error

	// Uncomplete clears a resource's read marker.
	Uncomplete(ctx context.Context, userID, resourceID uuid.UUID) error

	// Delete removes a resource from its list.
	Delete(ctx context.Context, userID, resourceID uuid.UUID) error
}

// resourceServiceImpl implements the ResourceService interface
type resourceServiceImpl struct {
	db            *sql.DB
	resourceStore store.ResourceStore
	listStore     store.ListStore
	positions     PositionManager
	coordinator   FanoutEnqueuer
	emitter       events.EventEmitter
	logger        *slog.Logger

	// runTx is store.RunInTransaction; a field so tests can run the
	// transactional path without a live database.
	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewResourceService creates a new ResourceService.
// It returns an error if any of the required dependencies are nil.
func NewResourceService(
	db *sql.DB,
	resourceStore store.ResourceStore,
	listStore store.ListStore,
	positions PositionManager,
	coordinator FanoutEnqueuer,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (ResourceService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if resourceStore == nil {
		return nil, errors.New("resource store cannot be nil")
	}
	if listStore == nil {
		return nil, errors.New("list store cannot be nil")
	}
	if positions == nil {
		return nil, errors.New("position manager cannot be nil")
	}
	if coordinator == nil {
		return nil, errors.New("fanout coordinator cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &resourceServiceImpl{
		db:            db,
		resourceStore: resourceStore,
		listStore:     listStore,
		positions:     positions,
		coordinator:   coordinator,
		emitter:       emitter,
		logger:        logger.With(slog.String("component", "resource_service")),
		runTx:         store.RunInTransaction,
	}, nil
}

// CreateResource implements ResourceService.CreateResource
func (s *resourceServiceImpl) CreateResource(
	ctx context.Context,
	params CreateResourceParams,
) (*domain.Resource, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	list, err := s.listStore.GetByID(ctx, params.ListID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewResourceServiceError("create_resource", "list not found", store.ErrListNotFound)
		}
		return nil, NewResourceServiceError("create_resource", "failed to load list", err)
	}
	if list.UserID != params.UserID {
		return nil, NewResourceServiceError("create_resource", "list belongs to another user", ErrNotOwned)
	}

	position, err := s.positions.NextPosition(ctx, params.ListID)
	if err != nil {
		return nil, NewResourceServiceError("create_resource", "failed to compute position", err)
	}

	resource, err := domain.NewResource(params.ListID, params.UserID, params.URL, position)
	if err != nil {
		return nil, err
	}
	resource.Title = params.Title
	resource.Description = params.Description
	resource.Thumbnail = params.Thumbnail
	resource.Tags = params.Tags

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.resourceStore.WithTx(tx).Create(ctx, resource); err != nil {
			return err
		}
		return s.listStore.WithTx(tx).TouchActivity(ctx, list.ID, time.Now().UTC())
	})
	if err != nil {
		log.Error("failed to persist resource",
			slog.String("error", err.Error()),
			slog.String("list_id", params.ListID.String()))
		return nil, NewResourceServiceError("create_resource", "failed to save resource", err)
	}

	// Replication and enrichment run in the background. Their failures never
	// reach the caller: the resource is already persisted.
	s.coordinator.Enqueue(fanout.ResourceCreated{ResourceID: resource.ID})
	s.requestEnrichment(ctx, log, resource.ID)

	log.Info("resource created",
		slog.String("resource_id", resource.ID.String()),
		slog.String("list_id", resource.ListID.String()),
		slog.Int("position", resource.Position))
	return resource, nil
}

// requestEnrichment emits a populate_resource event, logging on failure.
func (s *resourceServiceImpl) requestEnrichment(ctx context.Context, log *slog.Logger, resourceID uuid.UUID) {
	event, err := events.NewTaskRequestEvent(task.TaskTypePopulateResource,
		task.PopulateResourcePayload{ResourceID: resourceID})
	if err != nil {
		log.Error("failed to build enrichment request",
			slog.String("resource_id", resourceID.String()),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to request enrichment",
			slog.String("resource_id", resourceID.String()),
			slog.String("error", err.Error()))
	}
}

// Reposition implements ResourceService.Reposition
func (s *resourceServiceImpl) Reposition(
	ctx context.Context,
	userID, resourceID, listID uuid.UUID,
	previousID *uuid.UUID,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	resource, err := s.loadOwned(ctx, "reposition", userID, resourceID)
	if err != nil {
		return 0, err
	}
	if resource.ListID != listID {
		return 0, NewResourceServiceError("reposition", "resource is not in the given list", ErrNotOwned)
	}

	position, err := s.positions.Reposition(ctx, resourceID, listID, userID, previousID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return 0, NewResourceServiceError("reposition", "previous resource not found", store.ErrResourceNotFound)
		}
		return 0, NewResourceServiceError("reposition", "failed to move resource", err)
	}

	s.touchList(ctx, log, listID)

	log.Info("resource repositioned",
		slog.String("resource_id", resourceID.String()),
		slog.Int("position", position))
	return position, nil
}

// Complete implements ResourceService.Complete
func (s *resourceServiceImpl) Complete(ctx context.Context, userID, resourceID uuid.UUID) error {
	return s.setCompletion(ctx, userID, resourceID, true)
}

// Uncomplete implements ResourceService.Uncomplete
func (s *resourceServiceImpl) Uncomplete(ctx context.Context, userID, resourceID uuid.UUID) error {
	return s.setCompletion(ctx, userID, resourceID, false)
}

func (s *resourceServiceImpl) setCompletion(
	ctx context.Context,
	userID, resourceID uuid.UUID,
	completed bool,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	resource, err := s.loadOwned(ctx, "set_completion", userID, resourceID)
	if err != nil {
		return err
	}

	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	if err := s.resourceStore.SetCompletedAt(ctx, resourceID, completedAt); err != nil {
		if store.IsNotFoundError(err) {
			return NewResourceServiceError("set_completion", "resource not found", store.ErrResourceNotFound)
		}
		return NewResourceServiceError("set_completion", "failed to update completion", err)
	}

	s.touchList(ctx, log, resource.ListID)

	log.Info("resource completion updated",
		slog.String("resource_id", resourceID.String()),
		slog.Bool("completed", completed))
	return nil
}

// Delete implements ResourceService.Delete
func (s *resourceServiceImpl) Delete(ctx context.Context, userID, resourceID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	resource, err := s.loadOwned(ctx, "delete_resource", userID, resourceID)
	if err != nil {
		return err
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.resourceStore.WithTx(tx).Delete(ctx, resourceID); err != nil {
			return err
		}
		return s.listStore.WithTx(tx).TouchActivity(ctx, resource.ListID, time.Now().UTC())
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return NewResourceServiceError("delete_resource", "resource not found", store.ErrResourceNotFound)
		}
		return NewResourceServiceError("delete_resource", "failed to delete resource", err)
	}

	log.Info("resource deleted", slog.String("resource_id", resourceID.String()))
	return nil
}

// loadOwned loads a resource and verifies the caller owns it.
func (s *resourceServiceImpl) loadOwned(
	ctx context.Context,
	operation string,
	userID, resourceID uuid.UUID,
) (*domain.Resource, error) {
	resource, err := s.resourceStore.GetByID(ctx, resourceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewResourceServiceError(operation, "resource not found", store.ErrResourceNotFound)
		}
		return nil, NewResourceServiceError(operation, "failed to load resource", err)
	}
	if resource.UserID != userID {
		return nil, NewResourceServiceError(operation, "resource belongs to another user", ErrNotOwned)
	}
	return resource, nil
}

// touchList refreshes list activity, logging on failure. Activity is advisory
// and never fails the operation that triggered it.
func (s *resourceServiceImpl) touchList(ctx context.Context, log *slog.Logger, listID uuid.UUID) {
	if err := s.listStore.TouchActivity(ctx, listID, time.Now().UTC()); err != nil {
		log.Warn("failed to touch list activity",
			slog.String("list_id", listID.String()),
			slog.String("error", err.Error()))
	}
}
