package domain

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Resource-specific validation errors
var (
	// ErrResourceIDEmpty is returned when a resource ID is empty or nil.
	ErrResourceIDEmpty = errors.New("resource ID cannot be empty")

	// ErrResourceListIDEmpty is returned when a resource's list ID is empty or nil.
	ErrResourceListIDEmpty = errors.New("resource list ID cannot be empty")

	// ErrResourceUserIDEmpty is returned when a resource's user ID is empty or nil.
	ErrResourceUserIDEmpty = errors.New("resource user ID cannot be empty")

	// ErrResourceURLEmpty is returned when a resource's URL is empty.
	ErrResourceURLEmpty = errors.New("resource URL cannot be empty")

	// ErrResourceURLInvalid is returned when a resource's URL is not an absolute
	// http(s) URL.
	ErrResourceURLInvalid = errors.New("resource URL must be an absolute http(s) URL")

	// ErrResourcePositionNegative is returned when a resource's position is below zero.
	ErrResourcePositionNegative = errors.New("resource position cannot be negative")
)

// Resource represents a bookmarked URL inside a user's list. Its position
// establishes the ordering within the list; positions are unique per list.
// Enrichment fields (HTML, Text, Author, Length, Publisher) are populated
// asynchronously by the populate_resource job and are empty until then.
type Resource struct {
	ID          uuid.UUID  `json:"id"`
	ListID      uuid.UUID  `json:"list_id"`
	UserID      uuid.UUID  `json:"user_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Enrichment metadata, written only by the populate_resource job.
	HTML        string     `json:"html,omitempty"`
	Text        string     `json:"text,omitempty"`
	Author      string     `json:"author,omitempty"`
	Length      int        `json:"length,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	PopulatedAt *time.Time `json:"populated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewResource creates a new Resource in the given list at the given position.
// It generates a new UUID for the resource ID and sets the creation/update
// timestamps. Optional fields (title, description, thumbnail, tags) can be
// assigned before calling Validate again.
// Returns an error if validation fails.
func NewResource(listID, userID uuid.UUID, rawURL string, position int) (*Resource, error) {
	resource := &Resource{
		ID:        uuid.New(),
		ListID:    listID,
		UserID:    userID,
		URL:       rawURL,
		Position:  position,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := resource.Validate(); err != nil {
		return nil, err
	}

	return resource, nil
}

// Validate checks if the Resource has valid data.
// Returns an error if any field fails validation.
func (r *Resource) Validate() error {
	if r.ID == uuid.Nil {
		return ErrResourceIDEmpty
	}

	if r.ListID == uuid.Nil {
		return ErrResourceListIDEmpty
	}

	if r.UserID == uuid.Nil {
		return ErrResourceUserIDEmpty
	}

	if r.URL == "" {
		return ErrResourceURLEmpty
	}

	if !IsValidResourceURL(r.URL) {
		return ErrResourceURLInvalid
	}

	if r.Position < 0 {
		return ErrResourcePositionNegative
	}

	return nil
}

// CloneInto builds a fresh Resource in another list from this one, copying the
// user-visible fields (title, URL, description, thumbnail, tags) but none of
// the enrichment metadata or completion state. The clone gets a new ID, the
// target list and user, current timestamps, and the given position.
func (r *Resource) CloneInto(listID, userID uuid.UUID, position int) *Resource {
	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)

	return &Resource{
		ID:          uuid.New(),
		ListID:      listID,
		UserID:      userID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Thumbnail:   r.Thumbnail,
		Tags:        tags,
		Position:    position,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Complete marks the resource as completed at the given time and refreshes
// the UpdatedAt timestamp.
func (r *Resource) Complete(at time.Time) {
	at = at.UTC()
	r.CompletedAt = &at
	r.UpdatedAt = time.Now().UTC()
}

// Uncomplete clears the completion marker and refreshes the UpdatedAt timestamp.
func (r *Resource) Uncomplete() {
	r.CompletedAt = nil
	r.UpdatedAt = time.Now().UTC()
}

// IsValidResourceURL reports whether the given string is an absolute http or
// https URL. Used both by domain validation and by the import parser to drop
// malformed lines.
func IsValidResourceURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
