package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listas/listas-api/internal/events"
)

// TaskSubmitter defines the interface for submitting tasks to the runner.
type TaskSubmitter interface {
	// Submit persists a task and queues it for execution.
	Submit(ctx context.Context, task Task) error
}

// TaskRequestEventHandler bridges the event bus to the task pipeline: it
// turns TaskRequestEvents into executable tasks via the factory registry and
// submits them to the runner. Services emit events instead of constructing
// tasks so they never depend on task execution wiring.
type TaskRequestEventHandler struct {
	registry  *Registry
	submitter TaskSubmitter
	logger    *slog.Logger
}

// NewTaskRequestEventHandler creates an event handler backed by the given
// registry and submitter.
func NewTaskRequestEventHandler(
	registry *Registry,
	submitter TaskSubmitter,
	logger *slog.Logger,
) (*TaskRequestEventHandler, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if submitter == nil {
		return nil, errors.New("task submitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &TaskRequestEventHandler{
		registry:  registry,
		submitter: submitter,
		logger:    logger.With("component", "task_request_event_handler"),
	}, nil
}

// HandleEvent builds a task for the event's type and submits it.
func (h *TaskRequestEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With("event_id", event.ID, "event_type", event.Type)

	t, err := h.registry.Create(event.Type, event.Payload)
	if err != nil {
		log.Error("failed to create task from event", "error", err)
		return fmt.Errorf("failed to create task from event: %w", err)
	}

	if err := h.submitter.Submit(ctx, t); err != nil {
		log.Error("failed to submit task", "task_id", t.ID(), "error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Debug("task submitted from event", "task_id", t.ID())
	return nil
}

// Ensure TaskRequestEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskRequestEventHandler)(nil)
