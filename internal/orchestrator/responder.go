package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/orchestrator/command"
)

// ApologyRetry is shown when the model produced no text.
const ApologyRetry = "I apologize, but I encountered an issue. Please try again."

// Apology renders a failure as the reply a customer sees.
func Apology(err error) string {
	if err == nil {
		return ApologyRetry
	}
	return fmt.Sprintf("I apologize, but I encountered an error: %v", err)
}

func answerOrApology(content string) string {
	if strings.TrimSpace(content) == "" {
		return ApologyRetry
	}
	return content
}

// Responder is what chat surfaces talk to. It routes slash commands and
// turns every failure into plain text, so callers only ever deal in
// strings.
type Responder struct {
	loop     *Loop
	commands command.Handler
}

func NewResponder(loop *Loop, commands command.Handler) *Responder {
	return &Responder{loop: loop, commands: commands}
}

// Reply returns the text to send back for one inbound message. An empty
// message yields an empty reply.
func (r *Responder) Reply(ctx context.Context, sessionID, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if r.commands != nil && r.commands.CanHandle(text) {
		out, err := r.commands.Execute(ctx, sessionID, text)
		if err != nil {
			slog.Error("Command failed", "session_id", sessionID, "error", err)
			return fmt.Sprintf("Command failed: %v", err)
		}
		return out
	}

	answer, err := r.loop.RunTurn(ctx, sessionID, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ""
		}
		slog.Error("Chat turn failed", "session_id", sessionID, "error", err, "category", twErrors.NewDefaultErrorMapper().Category(err))
		return Apology(err)
	}
	return answer
}

// RunTurn exposes the loop for surfaces that need the typed error, such as
// the HTTP API.
func (r *Responder) RunTurn(ctx context.Context, sessionID, text string) (string, error) {
	return r.loop.RunTurn(ctx, sessionID, text)
}
