package logger

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const TraceIDKey contextKey = "trace_id"
const SessionIDKey contextKey = "session_id"

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// WithNewTraceID tags ctx with a fresh ULID trace id, one per chat turn.
func WithNewTraceID(ctx context.Context) (context.Context, string) {
	id := ulid.Make().String()
	return WithTraceID(ctx, id), id
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the default logger annotated with whatever trace and
// session ids ctx carries.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := GetTraceID(ctx); id != "" {
		l = l.With("trace_id", id)
	}
	if id := GetSessionID(ctx); id != "" {
		l = l.With("session_id", id)
	}
	return l
}
