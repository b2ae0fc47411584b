package api

import (
	"time"

	"github.com/listas/listas-api/internal/domain"
)

// CreateResourceRequest is the body of POST /resources.
type CreateResourceRequest struct {
	ListID      string   `json:"list_id"      validate:"required,uuid"`
	URL         string   `json:"url"          validate:"required,url"`
	Title       string   `json:"title"        validate:"omitempty,max=500"`
	Description string   `json:"description"  validate:"omitempty,max=5000"`
	Thumbnail   string   `json:"thumbnail"    validate:"omitempty,url"`
	Tags        []string `json:"tags"         validate:"omitempty,dive,max=100"`
}

// RepositionResourceRequest is the body of PUT /resources/{id}/position.
// A missing previous means "move to the front of the list".
type RepositionResourceRequest struct {
	ListID   string  `json:"list_id"  validate:"required,uuid"`
	Previous *string `json:"previous" validate:"omitempty,uuid"`
}

// ImportResourcesRequest is the body of POST /import-resources.
type ImportResourcesRequest struct {
	ListID  string `json:"list_id" validate:"required,uuid"`
	Payload string `json:"payload" validate:"required"`
	Format  string `json:"format"  validate:"omitempty,oneof=text feed"`
}

// CreateSubscriptionRequest is the body of POST /integrations.
type CreateSubscriptionRequest struct {
	SourceListID string `json:"source_list_id" validate:"required,uuid"`
	TargetListID string `json:"target_list_id" validate:"required,uuid,nefield=SourceListID"`
}

// ResourceResponse is the representation of a resource returned to clients.
type ResourceResponse struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PopulatedAt *time.Time `json:"populated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RepositionResponse is the body returned by PUT /resources/{id}/position.
type RepositionResponse struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// ImportResponse is the body returned by POST /import-resources.
type ImportResponse struct {
	Queued int `json:"queued"`
}

// IntegrationResponse is the representation of an integration returned to
// clients.
type IntegrationResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	SourceListID string    `json:"source_list_id"`
	TargetListID string    `json:"target_list_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// integrationToResponse maps a domain integration to its API representation.
func integrationToResponse(integration *domain.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:           integration.ID.String(),
		Kind:         string(integration.Kind),
		SourceListID: integration.SourceListID.String(),
		TargetListID: integration.TargetListID.String(),
		CreatedAt:    integration.CreatedAt,
	}
}

// resourceToResponse maps a domain resource to its API representation.
// Enrichment body fields (html, text) are deliberately omitted from the
// default representation; they can be large.
func resourceToResponse(resource *domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          resource.ID.String(),
		ListID:      resource.ListID.String(),
		URL:         resource.URL,
		Title:       resource.Title,
		Description: resource.Description,
		Thumbnail:   resource.Thumbnail,
		Tags:        resource.Tags,
		Position:    resource.Position,
		CompletedAt: resource.CompletedAt,
		PopulatedAt: resource.PopulatedAt,
		CreatedAt:   resource.CreatedAt,
		UpdatedAt:   resource.UpdatedAt,
	}
}
