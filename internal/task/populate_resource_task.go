package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/platform/pagemeta"
	"github.com/listas/listas-api/internal/store"
)

// PopulateResourcePayload is the serialized payload of a populate_resource task.
type PopulateResourcePayload struct {
	ResourceID uuid.UUID `json:"resource_id"`
}

// ResourceEnrichmentStore is the slice of the resource store the enrichment
// task needs.
type ResourceEnrichmentStore interface {
	// GetByID retrieves a resource by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)

	// UpdateMetadata applies a partial enrichment update to a resource.
	UpdateMetadata(ctx context.Context, id uuid.UUID, meta store.ResourceMetadata) error
}

// PopulateResourceTask fetches page metadata for a single resource and writes
// it back as one atomic field-set update. The task is idempotent: running it
// twice for the same resource rewrites the same fields, so redelivery after a
// crash is harmless.
type PopulateResourceTask struct {
	id            uuid.UUID
	payload       []byte
	resourceStore ResourceEnrichmentStore
	fetcher       pagemeta.Fetcher
	status        TaskStatus
	logger        *slog.Logger
}

// NewPopulateResourceTask creates a new enrichment task for the given resource.
func NewPopulateResourceTask(
	resourceID uuid.UUID,
	resourceStore ResourceEnrichmentStore,
	fetcher pagemeta.Fetcher,
	logger *slog.Logger,
) (*PopulateResourceTask, error) {
	if resourceID == uuid.Nil {
		return nil, errors.New("resource ID cannot be empty")
	}
	if resourceStore == nil {
		return nil, errors.New("resource store cannot be nil")
	}
	if fetcher == nil {
		return nil, errors.New("metadata fetcher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	payload, err := json.Marshal(PopulateResourcePayload{ResourceID: resourceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return &PopulateResourceTask{
		id:            uuid.New(),
		payload:       payload,
		resourceStore: resourceStore,
		fetcher:       fetcher,
		status:        TaskStatusPending,
		logger:        logger.With("component", "populate_resource_task"),
	}, nil
}

// ID returns the task's unique identifier
func (t *PopulateResourceTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *PopulateResourceTask) Type() string {
	return TaskTypePopulateResource
}

// Payload returns the serialized task parameters
func (t *PopulateResourceTask) Payload() []byte {
	return t.payload
}

// Status returns the current task status
func (t *PopulateResourceTask) Status() TaskStatus {
	return t.status
}

// Execute loads the resource, asks the extraction service for metadata, and
// persists whatever came back. Three outcomes end the task without an error:
// the resource is gone (deleted before the job ran), the extractor has no
// metadata for the URL, or the extractor itself failed. Only storage errors
// propagate, so the row stays visible for redelivery.
func (t *PopulateResourceTask) Execute(ctx context.Context) error {
	var payload PopulateResourcePayload
	if err := json.Unmarshal(t.payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log := t.logger.With("task_id", t.id, "resource_id", payload.ResourceID)

	resource, err := t.resourceStore.GetByID(ctx, payload.ResourceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Info("resource no longer exists, skipping enrichment")
			return nil
		}
		return fmt.Errorf("failed to load resource: %w", err)
	}

	meta, err := t.fetcher.Fetch(ctx, resource.URL)
	if err != nil {
		switch {
		case errors.Is(err, pagemeta.ErrNoMetadata):
			log.Info("no metadata available for URL", "url", resource.URL)
			return nil
		case pagemeta.IsUpstreamError(err):
			log.Warn("metadata extraction failed, leaving resource unenriched",
				"url", resource.URL,
				"error", err)
			return nil
		default:
			return fmt.Errorf("failed to fetch metadata: %w", err)
		}
	}

	update := metadataUpdate(meta)
	if update.IsEmpty() {
		log.Info("extractor returned no usable fields", "url", resource.URL)
		return nil
	}

	if err := t.resourceStore.UpdateMetadata(ctx, resource.ID, update); err != nil {
		if store.IsNotFoundError(err) {
			log.Info("resource deleted during enrichment, dropping result")
			return nil
		}
		return fmt.Errorf("failed to persist metadata: %w", err)
	}

	log.Info("resource enriched", "url", resource.URL, "word_count", meta.WordCount)
	return nil
}

// metadataUpdate maps the extractor's response onto a partial store update.
// Only fields the extractor actually returned are included, so a sparse
// response never blanks out fields written by an earlier run.
func metadataUpdate(meta *pagemeta.Metadata) store.ResourceMetadata {
	var update store.ResourceMetadata

	if meta.Title != "" {
		update.Title = &meta.Title
	}
	if meta.Excerpt != "" {
		update.Description = &meta.Excerpt
	}
	if meta.LeadImageURL != "" {
		update.Thumbnail = &meta.LeadImageURL
	}
	if meta.Content != "" {
		update.HTML = &meta.Content
	}
	if meta.Text != "" {
		update.Text = &meta.Text
	}
	if meta.Author != "" {
		update.Author = &meta.Author
	}
	if meta.WordCount > 0 {
		update.Length = &meta.WordCount
	}
	if meta.Domain != "" {
		update.Publisher = &meta.Domain
	}
	return update
}

// PopulateResourceTaskFactory builds populate_resource tasks from payloads,
// carrying the runtime dependencies recovered rows need to become executable.
type PopulateResourceTaskFactory struct {
	resourceStore ResourceEnrichmentStore
	fetcher       pagemeta.Fetcher
	logger        *slog.Logger
}

// NewPopulateResourceTaskFactory creates a factory for populate_resource tasks.
func NewPopulateResourceTaskFactory(
	resourceStore ResourceEnrichmentStore,
	fetcher pagemeta.Fetcher,
	logger *slog.Logger,
) (*PopulateResourceTaskFactory, error) {
	if resourceStore == nil {
		return nil, errors.New("resource store cannot be nil")
	}
	if fetcher == nil {
		return nil, errors.New("metadata fetcher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &PopulateResourceTaskFactory{
		resourceStore: resourceStore,
		fetcher:       fetcher,
		logger:        logger,
	}, nil
}

// TaskType returns the task type this factory builds.
func (f *PopulateResourceTaskFactory) TaskType() string {
	return TaskTypePopulateResource
}

// CreateFromPayload builds an executable populate_resource task from a
// serialized payload.
func (f *PopulateResourceTaskFactory) CreateFromPayload(payload []byte) (Task, error) {
	var p PopulateResourcePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal populate_resource payload: %w", err)
	}

	return NewPopulateResourceTask(p.ResourceID, f.resourceStore, f.fetcher, f.logger)
}

// Ensure interfaces are implemented
var (
	_ Task    = (*PopulateResourceTask)(nil)
	_ Factory = (*PopulateResourceTaskFactory)(nil)
)
