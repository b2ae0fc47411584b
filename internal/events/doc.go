// Package events provides the types and interfaces that decouple request
// handling from background work.
//
// Services emit TaskRequestEvents describing work that should happen
// asynchronously (enriching a resource, materializing an import) without
// knowing which handler will pick them up. Handlers turn those events into
// persisted tasks. This indirection keeps the service layer free of task
// execution wiring and avoids circular dependencies between packages.
//
// The primary components are:
// - TaskRequestEvent: Represents a request to create a background task
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
