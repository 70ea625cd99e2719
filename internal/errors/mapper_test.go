package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	m := NewDefaultErrorMapper()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "rate limit", in: errors.New("429 Too Many Requests: rate limit reached"), want: ErrTransient},
		{name: "timeout", in: context.DeadlineExceeded, want: ErrTransient},
		{name: "network", in: errors.New("dial tcp: connection refused"), want: ErrTransient},
		{name: "auth", in: errors.New("401 Unauthorized: Incorrect API key provided"), want: ErrPermissionDenied},
		{name: "model missing", in: errors.New("model gpt-x does not exist"), want: ErrNotFound},
		{name: "bad request", in: errors.New("400 bad request"), want: ErrInvalidInput},
		{name: "other", in: errors.New("boom"), want: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.MapError(tt.in), tt.want)
		})
	}
}

func TestMapErrorKeepsClassifiedErrors(t *testing.T) {
	m := NewDefaultErrorMapper()

	in := ToolFailed("record_feedback", errors.New("disk full"))
	assert.Same(t, in, m.MapError(in))
	assert.ErrorIs(t, m.MapError(context.Canceled), context.Canceled)
	assert.Nil(t, m.MapError(nil))
}

func TestIsRetryable(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.True(t, m.IsRetryable(Transient("rate limited")))
	assert.True(t, m.IsRetryable(fmt.Errorf("append: %w", ErrConflict)))
	assert.False(t, m.IsRetryable(InvalidInput("empty message")))
	assert.False(t, m.IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(CompletionFailed(Transient("timeout"))))
}

func TestCategory(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.Equal(t, "ErrUnknownTool", m.Category(UnknownTool("launch_rocket")))
	assert.Equal(t, "ErrInvalidArguments", m.Category(InvalidArguments("record_feedback", errors.New("missing question"))))
	assert.Equal(t, "ErrToolExecutionFailed", m.Category(ToolFailed("record_feedback", errors.New("disk full"))))
	assert.Equal(t, "ErrTransient", m.Category(CompletionFailed(Transient("timeout"))))
	assert.Equal(t, "ErrCompletionRequestFailed", m.Category(CompletionFailed(errors.New("boom"))))
	assert.Equal(t, "Unknown", m.Category(errors.New("plain")))
	assert.Equal(t, "", m.Category(nil))
}

func TestHelpersWrapSentinels(t *testing.T) {
	err := InvalidArguments("record_customer_interest", errors.New("missing required parameter: email"))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "record_customer_interest")
	assert.Contains(t, err.Error(), "email")

	assert.ErrorIs(t, UnknownTool("x"), ErrUnknownTool)
	assert.ErrorIs(t, NotFound("profile"), ErrNotFound)
	assert.True(t, IsCategory(Internal("oops"), ErrInternal))
	assert.Nil(t, Wrap(nil, "ignored"))
}
