package logger

import (
	"context"
	"log/slog"
)

// ctxKey is the private context key type for the request-scoped logger.
type ctxKey struct{}

// WithLogger returns a new context carrying the given logger. Handlers and
// middleware use this to thread a request-scoped logger (e.g. one annotated
// with a trace ID) down through services and stores.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger stored in the context, falling back to
// slog.Default() when none is present.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger stored in the context, falling
// back to the provided default when none is present. Components that carry
// their own component-scoped logger use this so context loggers win when set.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
