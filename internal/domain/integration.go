package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// IntegrationKind identifies the flavor of an integration.
type IntegrationKind string

const (
	// IntegrationKindSubscription links a source list to a target list so that
	// new resources in the source are replicated into the target.
	IntegrationKindSubscription IntegrationKind = "listas-subscription"
)

// Common validation errors for Integration
var (
	ErrIntegrationIDEmpty     = errors.New("integration ID cannot be empty")
	ErrIntegrationUserIDEmpty = errors.New("integration user ID cannot be empty")
	ErrIntegrationKindInvalid = errors.New("invalid integration kind")
	ErrIntegrationListIDEmpty = errors.New("integration list IDs cannot be empty")
	ErrIntegrationSelfBinding = errors.New("integration source and target lists must differ")
)

// Integration is a standing link between two lists. For the subscription kind,
// every resource created in the source list is cloned into the target list by
// the fan-out coordinator. A user cannot hold two identical subscriptions;
// the store enforces the uniqueness.
type Integration struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Kind         IntegrationKind `json:"kind"`
	SourceListID uuid.UUID       `json:"source_list_id"`
	TargetListID uuid.UUID       `json:"target_list_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewSubscription creates a subscription integration replicating resources
// from sourceListID into targetListID on behalf of userID.
// Returns an error if validation fails.
func NewSubscription(userID, sourceListID, targetListID uuid.UUID) (*Integration, error) {
	integration := &Integration{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         IntegrationKindSubscription,
		SourceListID: sourceListID,
		TargetListID: targetListID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := integration.Validate(); err != nil {
		return nil, err
	}

	return integration, nil
}

// Validate checks if the Integration has valid data.
// Returns an error if any field fails validation.
func (i *Integration) Validate() error {
	if i.ID == uuid.Nil {
		return ErrIntegrationIDEmpty
	}

	if i.UserID == uuid.Nil {
		return ErrIntegrationUserIDEmpty
	}

	if !isValidIntegrationKind(i.Kind) {
		return ErrIntegrationKindInvalid
	}

	if i.SourceListID == uuid.Nil || i.TargetListID == uuid.Nil {
		return ErrIntegrationListIDEmpty
	}

	if i.SourceListID == i.TargetListID {
		return ErrIntegrationSelfBinding
	}

	return nil
}

// isValidIntegrationKind checks if the given kind is a known IntegrationKind.
func isValidIntegrationKind(kind IntegrationKind) bool {
	switch kind {
	case IntegrationKindSubscription:
		return true
	default:
		return false
	}
}
