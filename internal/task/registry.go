package task

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned when no factory is registered for a task type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Factory rebuilds an executable task of one type from its serialized payload.
// Factories carry the dependencies (stores, clients, emitters) the task needs
// at execution time, so a bare database row can be turned back into something
// runnable after a restart.
type Factory interface {
	// TaskType returns the task type this factory builds.
	TaskType() string

	// CreateFromPayload builds an executable task from a serialized payload.
	CreateFromPayload(payload []byte) (Task, error)
}

// Registry maps task types to their factories. It serves two paths: the event
// handler dispatching freshly emitted task requests, and the runner hydrating
// recovered rows into executable tasks.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for its task type, replacing any previous one.
func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.TaskType()] = factory
}

// Create builds an executable task of the given type from a payload.
// Returns ErrUnknownTaskType when no factory is registered for the type.
func (r *Registry) Create(taskType string, payload []byte) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[taskType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	return factory.CreateFromPayload(payload)
}

// Hydrate rebuilds a recovered task into an executable one, preserving the
// identity of the recovered row so status updates keep pointing at it.
func (r *Registry) Hydrate(t Task) (Task, error) {
	rebuilt, err := r.Create(t.Type(), t.Payload())
	if err != nil {
		return nil, err
	}

	return &hydratedTask{Task: rebuilt, original: t}, nil
}

// hydratedTask wraps a rebuilt task but reports the identity and status of
// the recovered row it came from.
type hydratedTask struct {
	Task
	original Task
}

// ID returns the recovered row's identifier, not the rebuilt task's.
func (t *hydratedTask) ID() uuid.UUID {
	return t.original.ID()
}

// Status returns the recovered row's status.
func (t *hydratedTask) Status() TaskStatus {
	return t.original.Status()
}
