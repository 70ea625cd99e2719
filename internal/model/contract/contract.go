package contract

import (
	"fmt"
	"strings"
)

// Message roles exchanged with the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolChoiceAuto lets the model decide whether to call a tool.
const ToolChoiceAuto = "auto"

type Message struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Name       string      `json:"name,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
}

type CompletionRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Tools      []ToolDef `json:"tools,omitempty"`
	ToolChoice string    `json:"tool_choice,omitempty"`
}

type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type CompletionResponse struct {
	Content   string      `json:"content"`
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// SplitSystem separates leading system messages from the rest, for providers
// that take the system prompt out of band.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// FlattenToolHistory rewrites tool calls and tool results as plain text.
// Providers that refuse tool blocks in a request without tool definitions
// use it for the final, tool-less completion. Consecutive results collapse
// into one user message so roles keep alternating.
func FlattenToolHistory(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	prevResult := false
	for _, m := range messages {
		switch {
		case m.Role == RoleAssistant && len(m.ToolCalls) > 0:
			var b strings.Builder
			b.WriteString(m.Content)
			for _, tc := range m.ToolCalls {
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "[called %s with %s]", tc.Name, tc.Input)
			}
			out = append(out, Message{Role: RoleAssistant, Content: b.String()})
			prevResult = false
		case m.Role == RoleTool:
			text := fmt.Sprintf("[%s result] %s", m.Name, m.Content)
			if n := len(out); prevResult && n > 0 {
				out[n-1].Content += "\n" + text
				continue
			}
			out = append(out, Message{Role: RoleUser, Content: text})
			prevResult = true
		default:
			out = append(out, m)
			prevResult = false
		}
	}
	return out
}
