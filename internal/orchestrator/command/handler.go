package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/shlex"
)

// Handler executes slash commands typed into any chat surface.
type Handler interface {
	CanHandle(input string) bool
	Execute(ctx context.Context, sessionID string, input string) (string, error)
}

// SessionResetter drops a session's conversation.
type SessionResetter interface {
	Reset(sessionID string) bool
}

type DefaultCommandHandler struct {
	sessions SessionResetter
	examples []string
}

func NewHandler(sessions SessionResetter, examples []string) *DefaultCommandHandler {
	return &DefaultCommandHandler{
		sessions: sessions,
		examples: examples,
	}
}

func (h *DefaultCommandHandler) CanHandle(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

func (h *DefaultCommandHandler) Execute(ctx context.Context, sessionID string, input string) (string, error) {
	parts, parseErr := shlex.Split(input)
	if parseErr != nil {
		parts = strings.Fields(input)
	}
	if len(parts) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(parts[0])

	slog.Info("Executing slash command", "cmd", cmd, "session", sessionID)

	switch cmd {
	case "/reset", "/clear", "/start":
		return h.handleReset(sessionID)
	case "/examples":
		return h.examplesText(), nil
	case "/help":
		return h.helpText(), nil
	default:
		return fmt.Sprintf("Unknown command: %s. %s", cmd, h.helpText()), nil
	}
}

func (h *DefaultCommandHandler) handleReset(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("session id is required")
	}
	if h.sessions == nil {
		return "", fmt.Errorf("session manager not initialized")
	}
	h.sessions.Reset(sessionID)
	return "Conversation reset. How can I help you today?", nil
}

func (h *DefaultCommandHandler) examplesText() string {
	if len(h.examples) == 0 {
		return "No example questions configured."
	}
	var b strings.Builder
	b.WriteString("Try asking:")
	for _, ex := range h.examples {
		b.WriteString("\n- ")
		b.WriteString(ex)
	}
	return b.String()
}

func (h *DefaultCommandHandler) helpText() string {
	return "Available commands: /help, /examples, /reset"
}
