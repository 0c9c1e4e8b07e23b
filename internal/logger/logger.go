// Package logger builds the process-wide slog.Logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New creates a logger for the given environment: JSON in prod/dev (for log
// aggregation), text with debug level otherwise. Records carry the request
// id stored in their context, if any.
func New(env string) *slog.Logger {
	return NewWithWriter(os.Stdout, env)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "prod", "production", "dev":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(&requestIDHandler{handler: handler})
}

// NewWithServiceContext is New with service, version and environment attached.
func NewWithServiceContext(env, service, version string) *slog.Logger {
	return New(env).With(
		slog.String("service", service),
		slog.String("version", version),
		slog.String("environment", env),
	)
}

// Discard returns a logger that drops everything; tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type requestIDKey struct{}

// WithRequestID returns a context whose log records include id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestIDHandler adds request_id from the record's context.
type requestIDHandler struct {
	handler slog.Handler
}

func (h *requestIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.handler.Handle(ctx, r)
}

func (h *requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestIDHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *requestIDHandler) WithGroup(name string) slog.Handler {
	return &requestIDHandler{handler: h.handler.WithGroup(name)}
}
