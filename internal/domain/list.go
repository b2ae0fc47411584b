package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for List
var (
	ErrListIDEmpty     = errors.New("list ID cannot be empty")
	ErrListUserIDEmpty = errors.New("list user ID cannot be empty")
	ErrListTitleEmpty  = errors.New("list title cannot be empty")
)

// List is an ordered collection of resources owned by a user. The list holds
// no direct reference to its resources; resources point back at their list.
// LastActivityAt is refreshed whenever a resource under the list changes.
type List struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewList creates a new List with the given user ID and title.
// It generates a new UUID for the list ID and sets the activity and
// creation/update timestamps.
// Returns an error if validation fails.
func NewList(userID uuid.UUID, title string) (*List, error) {
	now := time.Now().UTC()
	list := &List{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          title,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := list.Validate(); err != nil {
		return nil, err
	}

	return list, nil
}

// Validate checks if the List has valid data.
// Returns an error if any field fails validation.
func (l *List) Validate() error {
	if l.ID == uuid.Nil {
		return ErrListIDEmpty
	}

	if l.UserID == uuid.Nil {
		return ErrListUserIDEmpty
	}

	if l.Title == "" {
		return ErrListTitleEmpty
	}

	return nil
}

// Touch records activity on the list, refreshing LastActivityAt and UpdatedAt.
func (l *List) Touch() {
	now := time.Now().UTC()
	l.LastActivityAt = now
	l.UpdatedAt = now
}
