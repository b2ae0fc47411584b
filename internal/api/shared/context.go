package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"time"
)

// ContextKey is the type for context values this package owns.
type ContextKey string

const (
	// UserIDContextKey carries the authenticated user's uuid.UUID, set by the
	// identity middleware.
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey carries the per-request trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID (32 hex chars).
	TraceIDLength = 16
)

// SetTraceID attaches a fresh trace ID to the context. The same ID shows up in
// every log line and error response for the request.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID returns the trace ID from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	n, err := rand.Read(b)
	if err != nil || n != TraceIDLength {
		slog.Error("failed to generate random trace ID",
			"error", err,
			"bytes_read", n)
		return timeBasedTraceID()
	}
	return hex.EncodeToString(b)
}

// timeBasedTraceID is the fallback when crypto/rand fails. Two timestamp reads
// keep concurrent requests distinguishable; never a static value.
func timeBasedTraceID() string {
	id := make([]byte, TraceIDLength)
	binary.BigEndian.PutUint64(id[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(id[8:], uint64(time.Now().UnixNano()))
	return hex.EncodeToString(id)
}
