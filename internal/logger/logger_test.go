package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextIDs(t *testing.T) {
	ctx, traceID := WithNewTraceID(context.Background())
	ctx = WithSessionID(ctx, "web:abc")

	require.Len(t, traceID, 26)
	assert.Equal(t, traceID, GetTraceID(ctx))
	assert.Equal(t, "web:abc", GetSessionID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestFromContextCarriesIDs(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	ctx := WithSessionID(WithTraceID(context.Background(), "trace-1"), "cli:local")
	FromContext(ctx).Info("turn finished")

	out := buf.String()
	assert.Contains(t, out, "trace_id=trace-1")
	assert.Contains(t, out, "session_id=cli:local")
}
