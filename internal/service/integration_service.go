package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/store"
)

// IntegrationService manages the subscription links the fan-out coordinator
// consumes.
type IntegrationService interface {
	// Subscribe creates a subscription replicating new resources from
	// sourceListID into targetListID. The target list must belong to userID;
	// the source list only has to exist (subscribing to another user's list
	// is the point of the feature).
	// Returns store.ErrListNotFound, ErrNotOwned, store.ErrSubscriptionExists,
	// or a domain validation error such as ErrIntegrationSelfBinding.
	Subscribe(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error)

	// Unsubscribe removes an integration owned by userID.
	// Returns store.ErrIntegrationNotFound when no such integration belongs
	// to the user.
	Unsubscribe(ctx context.Context, userID, integrationID uuid.UUID) error
}

// integrationServiceImpl implements the IntegrationService interface
type integrationServiceImpl struct {
	integrationStore store.IntegrationStore
	listStore        store.ListStore
	logger           *slog.Logger
}

// NewIntegrationService creates a new IntegrationService.
// It returns an error if any of the required dependencies are nil.
func NewIntegrationService(
	integrationStore store.IntegrationStore,
	listStore store.ListStore,
	logger *slog.Logger,
) (IntegrationService, error) {
	if integrationStore == nil {
		return nil, errors.New("integration store cannot be nil")
	}
	if listStore == nil {
		return nil, errors.New("list store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &integrationServiceImpl{
		integrationStore: integrationStore,
		listStore:        listStore,
		logger:           logger.With(slog.String("component", "integration_service")),
	}, nil
}

// Subscribe implements IntegrationService.Subscribe
func (s *integrationServiceImpl) Subscribe(
	ctx context.Context,
	userID, sourceListID, targetListID uuid.UUID,
) (*domain.Integration, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.listStore.GetByID(ctx, sourceListID); err != nil {
		if store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: list %s", store.ErrListNotFound, sourceListID)
		}
		return nil, fmt.Errorf("failed to load source list: %w", err)
	}

	target, err := s.listStore.GetByID(ctx, targetListID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: list %s", store.ErrListNotFound, targetListID)
		}
		return nil, fmt.Errorf("failed to load target list: %w", err)
	}
	if target.UserID != userID {
		return nil, fmt.Errorf("%w: list %s", ErrNotOwned, targetListID)
	}

	integration, err := domain.NewSubscription(userID, sourceListID, targetListID)
	if err != nil {
		return nil, err
	}

	if err := s.integrationStore.Create(ctx, integration); err != nil {
		if errors.Is(err, store.ErrSubscriptionExists) {
			return nil, err
		}
		log.Error("failed to create subscription",
			slog.String("source_list_id", sourceListID.String()),
			slog.String("target_list_id", targetListID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	log.Info("subscription created",
		slog.String("integration_id", integration.ID.String()),
		slog.String("source_list_id", sourceListID.String()),
		slog.String("target_list_id", targetListID.String()))
	return integration, nil
}

// Unsubscribe implements IntegrationService.Unsubscribe
func (s *integrationServiceImpl) Unsubscribe(
	ctx context.Context,
	userID, integrationID uuid.UUID,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.integrationStore.Delete(ctx, integrationID, userID); err != nil {
		if store.IsNotFoundError(err) {
			return fmt.Errorf("%w: integration %s", store.ErrIntegrationNotFound, integrationID)
		}
		log.Error("failed to delete subscription",
			slog.String("integration_id", integrationID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	log.Info("subscription removed", slog.String("integration_id", integrationID.String()))
	return nil
}
