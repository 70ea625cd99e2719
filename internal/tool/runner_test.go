package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twErrors "github.com/treadwise/agent/internal/errors"
)

type stubHandlers struct {
	interest    []RecordCustomerInterestCall
	feedback    []string
	interestErr error
}

func (s *stubHandlers) RecordCustomerInterest(_ context.Context, email, name, message string) (string, error) {
	if s.interestErr != nil {
		return "", s.interestErr
	}
	s.interest = append(s.interest, RecordCustomerInterestCall{Email: email, Name: name, Message: message})
	return "Thank you, " + name + "!", nil
}

func (s *stubHandlers) RecordFeedback(_ context.Context, question string) (string, error) {
	s.feedback = append(s.feedback, question)
	return "Question logged for review by our team.", nil
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry(&stubHandlers{})

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, RecordCustomerInterestName, defs[0].Name)
	assert.Equal(t, RecordFeedbackName, defs[1].Name)

	required, ok := defs[0].Parameters["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"email", "name", "message"}, required)

	_, ok = reg.Get(" record_feedback ")
	assert.True(t, ok)
	_, ok = reg.Get("schedule_installation")
	assert.False(t, ok)
}

func TestRegistryDecode(t *testing.T) {
	reg := NewRegistry(&stubHandlers{})

	call, err := reg.Decode(RecordCustomerInterestName, `{"email":"dana@example.com","name":"Dana","message":"fleet quote"}`)
	require.NoError(t, err)
	assert.Equal(t, RecordCustomerInterestCall{Email: "dana@example.com", Name: "Dana", Message: "fleet quote"}, call)

	call, err = reg.Decode(RecordFeedbackName, `{"question":"Do you sell rims?"}`)
	require.NoError(t, err)
	assert.Equal(t, RecordFeedbackCall{Question: "Do you sell rims?"}, call)

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr error
	}{
		{name: "unknown tool", tool: "delete_leads", args: `{}`, wantErr: twErrors.ErrUnknownTool},
		{name: "empty arguments", tool: RecordFeedbackName, args: "", wantErr: twErrors.ErrInvalidArguments},
		{name: "malformed json", tool: RecordFeedbackName, args: `{"question":`, wantErr: twErrors.ErrInvalidArguments},
		{name: "missing field", tool: RecordCustomerInterestName, args: `{"email":"dana@example.com","name":"Dana"}`, wantErr: twErrors.ErrInvalidArguments},
		{name: "wrong type", tool: RecordFeedbackName, args: `{"question":42}`, wantErr: twErrors.ErrInvalidArguments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Decode(tt.tool, tt.args)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistryDispatch(t *testing.T) {
	handlers := &stubHandlers{}
	reg := NewRegistry(handlers)
	ctx := context.Background()

	result, err := reg.Dispatch(ctx, RecordCustomerInterestCall{Email: "sam@example.com", Name: "Sam", Message: "mobile install"})
	require.NoError(t, err)
	assert.Equal(t, "Thank you, Sam!", result)
	require.Len(t, handlers.interest, 1)
	assert.Equal(t, "sam@example.com", handlers.interest[0].Email)

	result, err = reg.Execute(ctx, RecordFeedbackName, `{"question":"Do you ship to Alaska?"}`)
	require.NoError(t, err)
	assert.Equal(t, "Question logged for review by our team.", result)
	assert.Equal(t, []string{"Do you ship to Alaska?"}, handlers.feedback)
}

func TestRegistryDispatchHandlerFailure(t *testing.T) {
	diskFull := errors.New("no space left on device")
	reg := NewRegistry(&stubHandlers{interestErr: diskFull})

	_, err := reg.Execute(context.Background(), RecordCustomerInterestName, `{"email":"a@b.c","name":"A","message":"hi"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, twErrors.ErrToolExecutionFailed)
	assert.ErrorIs(t, err, diskFull)
}

func TestRegistryExecuteRejectsBeforeDispatch(t *testing.T) {
	handlers := &stubHandlers{}
	reg := NewRegistry(handlers)

	_, err := reg.Execute(context.Background(), RecordCustomerInterestName, `{"email":"a@b.c"}`)
	assert.ErrorIs(t, err, twErrors.ErrInvalidArguments)
	assert.Empty(t, handlers.interest)
}
