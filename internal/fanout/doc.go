// Package fanout replicates newly created resources into every list
// subscribed to their source list. It runs as a single-consumer actor with an
// unbounded mailbox, handling one event at a time while bounding the
// concurrency of the per-subscriber clone operations.
package fanout
