package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/chatmesh/chatmesh/internal/config"
)

type ctxKey string

const (
	traceIDKey   ctxKey = "trace_id"
	sessionIDKey ctxKey = "session_id"
)

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// The conversation session is only known after the handler parses the form,
// which is too late for middleware to stamp it onto the context. The trace
// middleware installs a holder instead; the handler fills it in and the
// access log reads it back.

type sessionHolder struct {
	id string
}

func contextWithSessionHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionIDKey, &sessionHolder{})
}

// SetSessionID attributes the request to a conversation session in the
// access log. A no-op when the request did not pass through TraceMiddleware.
func SetSessionID(ctx context.Context, sessionID string) {
	if holder, ok := ctx.Value(sessionIDKey).(*sessionHolder); ok {
		holder.id = sessionID
	}
}

func SessionIDFromContext(ctx context.Context) string {
	if holder, ok := ctx.Value(sessionIDKey).(*sessionHolder); ok {
		return holder.id
	}
	return ""
}
