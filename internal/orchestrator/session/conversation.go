package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/model/contract"
)

// Conversation is the ordered message history of one session. Messages
// are only ever appended, in whole batches.
type Conversation struct {
	id  string
	now func() time.Time

	mu         sync.RWMutex
	messages   []contract.Message
	lastActive time.Time

	// turn holds one token; whoever owns it runs the session's current turn.
	turn chan struct{}
}

func newConversation(id, systemPrompt string, now func() time.Time) *Conversation {
	c := &Conversation{
		id:         id,
		now:        now,
		lastActive: now(),
		turn:       make(chan struct{}, 1),
	}
	if systemPrompt != "" {
		c.messages = []contract.Message{{Role: contract.RoleSystem, Content: systemPrompt}}
	}
	return c
}

func (c *Conversation) ID() string {
	return c.id
}

// Messages returns a snapshot. Callers may modify it freely.
func (c *Conversation) Messages() []contract.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneMessages(c.messages)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Append commits msgs as one batch. If any message is malformed nothing
// is appended.
func (c *Conversation) Append(msgs ...contract.Message) error {
	for i, msg := range msgs {
		if err := validateMessage(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}

	batch := cloneMessages(msgs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, batch...)
	c.lastActive = c.now()
	return nil
}

func (c *Conversation) LastActive() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActive
}

// BeginTurn blocks until no other turn of this session is running. The
// returned func ends the turn and must be called exactly once.
func (c *Conversation) BeginTurn(ctx context.Context) (func(), error) {
	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	c.lastActive = c.now()
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { <-c.turn })
	}, nil
}

func (c *Conversation) touch() {
	c.mu.Lock()
	c.lastActive = c.now()
	c.mu.Unlock()
}

func (c *Conversation) tryBeginTurn() bool {
	select {
	case c.turn <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Conversation) endTurn() {
	<-c.turn
}

func validateMessage(msg contract.Message) error {
	switch msg.Role {
	case contract.RoleSystem, contract.RoleUser:
		return nil
	case contract.RoleAssistant:
		for _, call := range msg.ToolCalls {
			if call == nil || call.ID == "" {
				return twErrors.InvalidInput("assistant tool call without id")
			}
		}
		return nil
	case contract.RoleTool:
		if msg.ToolCallID == "" {
			return twErrors.InvalidInput("tool message without tool_call_id")
		}
		return nil
	default:
		return twErrors.InvalidInput(fmt.Sprintf("unknown role %q", msg.Role))
	}
}

func cloneMessages(msgs []contract.Message) []contract.Message {
	out := make([]contract.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg
		if len(msg.ToolCalls) > 0 {
			calls := make([]*contract.ToolCall, len(msg.ToolCalls))
			for j, call := range msg.ToolCalls {
				if call == nil {
					continue
				}
				cp := *call
				calls[j] = &cp
			}
			out[i].ToolCalls = calls
		}
	}
	return out
}
