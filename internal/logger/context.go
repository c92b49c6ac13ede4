package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
)

// FromContext returns the request logger httplog attached to ctx, or the
// default logger when the request did not pass through httplog.
func FromContext(ctx context.Context) *slog.Logger {
	if entry, ok := ctx.Value(middleware.LogEntryCtxKey).(*httplog.RequestLoggerEntry); ok && entry != nil && entry.Logger != nil {
		return entry.Logger
	}
	return slog.Default()
}
