package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/events"
)

// CreateResourcesPayload is the serialized payload of a create_resources task.
type CreateResourcesPayload struct {
	ListID uuid.UUID `json:"list_id"`
	UserID uuid.UUID `json:"user_id"`
	URLs   []string  `json:"urls"`
}

// ResourceBatchStore is the slice of the resource store the import task needs.
type ResourceBatchStore interface {
	// Create saves a new resource to the store.
	Create(ctx context.Context, resource *domain.Resource) error
}

// ListActivityStore is the slice of the list store the import task needs.
type ListActivityStore interface {
	// TouchActivity updates the list's last activity timestamp.
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
}

// BatchPositioner hands out append positions for newly imported resources.
type BatchPositioner interface {
	// NextPosition returns the position a new resource should take at the
	// tail of the given list.
	NextPosition(ctx context.Context, listID uuid.UUID) (int, error)
}

// CreateResourcesTask materializes a bulk import: one resource per URL,
// appended to the target list in input order, each followed by its own
// enrichment request. URLs are processed sequentially because each append
// depends on the position the previous one took.
//
// Individual URL failures are logged and skipped so one bad URL cannot sink
// the rest of the batch. Redelivery after a partial run re-imports the whole
// batch, which can duplicate already-created resources; that is the documented
// cost of at-least-once delivery here.
type CreateResourcesTask struct {
	id            uuid.UUID
	payload       []byte
	resourceStore ResourceBatchStore
	listStore     ListActivityStore
	positioner    BatchPositioner
	emitter       events.EventEmitter
	status        TaskStatus
	logger        *slog.Logger
}

// NewCreateResourcesTask creates a new bulk import task.
func NewCreateResourcesTask(
	listID uuid.UUID,
	userID uuid.UUID,
	urls []string,
	resourceStore ResourceBatchStore,
	listStore ListActivityStore,
	positioner BatchPositioner,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*CreateResourcesTask, error) {
	if listID == uuid.Nil {
		return nil, errors.New("list ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, errors.New("user ID cannot be empty")
	}
	if len(urls) == 0 {
		return nil, errors.New("URL list cannot be empty")
	}
	if resourceStore == nil || listStore == nil || positioner == nil {
		return nil, errors.New("stores cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	payload, err := json.Marshal(CreateResourcesPayload{
		ListID: listID,
		UserID: userID,
		URLs:   urls,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return &CreateResourcesTask{
		id:            uuid.New(),
		payload:       payload,
		resourceStore: resourceStore,
		listStore:     listStore,
		positioner:    positioner,
		emitter:       emitter,
		status:        TaskStatusPending,
		logger:        logger.With("component", "create_resources_task"),
	}, nil
}

// ID returns the task's unique identifier
func (t *CreateResourcesTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *CreateResourcesTask) Type() string {
	return TaskTypeCreateResources
}

// Payload returns the serialized task parameters
func (t *CreateResourcesTask) Payload() []byte {
	return t.payload
}

// Status returns the current task status
func (t *CreateResourcesTask) Status() TaskStatus {
	return t.status
}

// Execute creates one resource per URL at the tail of the target list and
// requests enrichment for each. Returns an error only when the batch produced
// nothing at all despite having input, so a fully failed batch is retried but
// a partial one is not.
func (t *CreateResourcesTask) Execute(ctx context.Context) error {
	var payload CreateResourcesPayload
	if err := json.Unmarshal(t.payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log := t.logger.With(
		"task_id", t.id,
		"list_id", payload.ListID,
		"url_count", len(payload.URLs),
	)

	created := 0
	for _, rawURL := range payload.URLs {
		if err := t.createOne(ctx, payload, rawURL); err != nil {
			log.Warn("skipping URL in import batch", "url", rawURL, "error", err)
			continue
		}
		created++
	}

	if created == 0 && len(payload.URLs) > 0 {
		return fmt.Errorf("import produced no resources from %d URLs", len(payload.URLs))
	}

	// Activity reflects the import as a whole, not each row.
	if err := t.listStore.TouchActivity(ctx, payload.ListID, time.Now().UTC()); err != nil {
		log.Warn("failed to touch list activity after import", "error", err)
	}

	log.Info("import batch processed", "created", created, "skipped", len(payload.URLs)-created)
	return nil
}

// createOne appends a single resource and requests its enrichment.
func (t *CreateResourcesTask) createOne(ctx context.Context, payload CreateResourcesPayload, rawURL string) error {
	position, err := t.positioner.NextPosition(ctx, payload.ListID)
	if err != nil {
		return fmt.Errorf("failed to compute position: %w", err)
	}

	resource, err := domain.NewResource(payload.ListID, payload.UserID, rawURL, position)
	if err != nil {
		return fmt.Errorf("invalid resource: %w", err)
	}

	if err := t.resourceStore.Create(ctx, resource); err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Enrichment is best effort; the resource exists either way.
	event, err := events.NewTaskRequestEvent(TaskTypePopulateResource,
		PopulateResourcePayload{ResourceID: resource.ID})
	if err != nil {
		t.logger.Warn("failed to build enrichment request",
			"resource_id", resource.ID,
			"error", err)
		return nil
	}
	if err := t.emitter.EmitEvent(ctx, event); err != nil {
		t.logger.Warn("failed to request enrichment for imported resource",
			"resource_id", resource.ID,
			"error", err)
	}

	return nil
}

// CreateResourcesTaskFactory builds create_resources tasks from payloads.
type CreateResourcesTaskFactory struct {
	resourceStore ResourceBatchStore
	listStore     ListActivityStore
	positioner    BatchPositioner
	emitter       events.EventEmitter
	logger        *slog.Logger
}

// NewCreateResourcesTaskFactory creates a factory for create_resources tasks.
func NewCreateResourcesTaskFactory(
	resourceStore ResourceBatchStore,
	listStore ListActivityStore,
	positioner BatchPositioner,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*CreateResourcesTaskFactory, error) {
	if resourceStore == nil || listStore == nil || positioner == nil {
		return nil, errors.New("stores cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &CreateResourcesTaskFactory{
		resourceStore: resourceStore,
		listStore:     listStore,
		positioner:    positioner,
		emitter:       emitter,
		logger:        logger,
	}, nil
}

// TaskType returns the task type this factory builds.
func (f *CreateResourcesTaskFactory) TaskType() string {
	return TaskTypeCreateResources
}

// CreateFromPayload builds an executable create_resources task from a
// serialized payload.
func (f *CreateResourcesTaskFactory) CreateFromPayload(payload []byte) (Task, error) {
	var p CreateResourcesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal create_resources payload: %w", err)
	}

	return NewCreateResourcesTask(
		p.ListID, p.UserID, p.URLs,
		f.resourceStore, f.listStore, f.positioner, f.emitter, f.logger,
	)
}

// Ensure interfaces are implemented
var (
	_ Task    = (*CreateResourcesTask)(nil)
	_ Factory = (*CreateResourcesTaskFactory)(nil)
)
