package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/model/contract"
)

func TestConversationAppendIsAllOrNothing(t *testing.T) {
	c := newConversation("s1", "system prompt", time.Now)
	require.Equal(t, 1, c.Len())

	err := c.Append(
		contract.Message{Role: contract.RoleUser, Content: "hi"},
		contract.Message{Role: contract.RoleTool, Content: "orphan result"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, twErrors.ErrInvalidInput)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Append(
		contract.Message{Role: contract.RoleUser, Content: "hi"},
		contract.Message{Role: contract.RoleAssistant, Content: "hello"},
	))
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, contract.RoleSystem, msgs[0].Role)
	assert.Equal(t, "hello", msgs[2].Content)
}

func TestConversationMessagesIsSnapshot(t *testing.T) {
	c := newConversation("s1", "", time.Now)
	require.NoError(t, c.Append(contract.Message{
		Role:      contract.RoleAssistant,
		ToolCalls: []*contract.ToolCall{{ID: "call_1", Name: "record_feedback", Input: `{}`}},
	}))

	snapshot := c.Messages()
	snapshot[0].ToolCalls[0].Name = "tampered"
	snapshot[0].Content = "tampered"

	again := c.Messages()
	assert.Equal(t, "record_feedback", again[0].ToolCalls[0].Name)
	assert.Empty(t, again[0].Content)
}

func TestConversationTurnsAreSequential(t *testing.T) {
	c := newConversation("s1", "", time.Now)

	end, err := c.BeginTurn(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.BeginTurn(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	end()
	end()

	end2, err := c.BeginTurn(context.Background())
	require.NoError(t, err)
	end2()
}

func TestConversationConcurrentAppends(t *testing.T) {
	c := newConversation("s1", "", time.Now)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			end, err := c.BeginTurn(context.Background())
			if err != nil {
				t.Errorf("BeginTurn: %v", err)
				return
			}
			defer end()
			_ = c.Append(
				contract.Message{Role: contract.RoleUser, Content: "q"},
				contract.Message{Role: contract.RoleAssistant, Content: "a"},
			)
		}()
	}
	wg.Wait()

	msgs := c.Messages()
	require.Len(t, msgs, 40)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, contract.RoleUser, msgs[i].Role)
		assert.Equal(t, contract.RoleAssistant, msgs[i+1].Role)
	}
}
