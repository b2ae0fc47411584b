// Package position implements the per-list ordering logic: computing the
// insertion position for new resources and shifting siblings when a resource
// moves. It owns no I/O beyond its injected store dependency.
package position
