package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger carried by the context. A bare context yields the
// process-wide default, which main configures from the log-level flag.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// With returns a new context carrying the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
