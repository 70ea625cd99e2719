package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	twErrors "github.com/treadwise/agent/internal/errors"
)

// Deduper remembers inbound event keys. idempotency.Store implements it.
type Deduper interface {
	CheckAndMark(key string, ttl time.Duration) bool
}

// ReplyRouter is the EventHandler for push-style surfaces (Slack,
// Telegram): it drops redelivered events, asks the Replier for an answer
// and sends it back through the surface's output adapter.
type ReplyRouter struct {
	replier   Replier
	dedupe    Deduper
	dedupeTTL time.Duration

	mu      sync.RWMutex
	outputs map[string]OutputAdapter
}

func NewReplyRouter(replier Replier, dedupe Deduper, dedupeTTL time.Duration) *ReplyRouter {
	return &ReplyRouter{
		replier:   replier,
		dedupe:    dedupe,
		dedupeTTL: dedupeTTL,
		outputs:   make(map[string]OutputAdapter),
	}
}

// Bind registers the output adapters replies are sent through.
func (r *ReplyRouter) Bind(outputs []OutputAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, out := range outputs {
		if out == nil {
			continue
		}
		r.outputs[out.Name()] = out
	}
}

// SessionKey scopes a platform conversation id by its source, so a Slack
// channel and a Telegram chat never share history.
func SessionKey(source, sessionID string) string {
	return source + ":" + sessionID
}

func (r *ReplyRouter) Handle(ctx context.Context, source string, eventType string, sessionID string, content string, metadata map[string]string) error {
	if eventType != EventTypeUserMessage {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if eventID := metadata[MetaEventID]; eventID != "" && r.dedupe != nil {
		if r.dedupe.CheckAndMark(source+":"+eventID, r.dedupeTTL) {
			slog.Debug("Dropping duplicate event", "source", source, "event_id", eventID)
			return twErrors.ErrDuplicateEvent
		}
	}

	r.mu.RLock()
	out, ok := r.outputs[source]
	r.mu.RUnlock()
	if !ok {
		return twErrors.NotFound(fmt.Sprintf("output adapter %s", source))
	}

	answer := r.replier.Reply(ctx, SessionKey(source, sessionID), content)
	if answer == "" {
		return nil
	}
	if err := out.Send(ctx, sessionID, answer); err != nil {
		return fmt.Errorf("send %s reply: %w", source, err)
	}
	return nil
}
