package adapter

import (
	"context"
)

// EventHandler receives inbound chat messages from adapters.
type EventHandler func(ctx context.Context, source string, eventType string, sessionID string, content string, metadata map[string]string) error

// Event types passed to EventHandler.
const (
	EventTypeUserMessage = "user_message"
)

// Metadata keys set by adapters.
const (
	MetaEventID  = "event_id"
	MetaUserID   = "user_id"
	MetaUserName = "user_name"
)

// Replier produces the assistant's answer for one message of a session.
// orchestrator.Responder is the production implementation.
type Replier interface {
	Reply(ctx context.Context, sessionID, text string) string
}

// InputAdapter defines the interface for adapters that receive events from external platforms
type InputAdapter interface {
	// Name returns the adapter name (e.g. "slack", "telegram", "web").
	Name() string

	// Start begins listening for events (e.g. starts a server or long-poll).
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter.
	Stop(ctx context.Context) error

	// Health checks if the adapter is healthy and connected.
	Health(ctx context.Context) error
}

// OutputAdapter defines the interface for adapters that send responses to external platforms
type OutputAdapter interface {
	// Name returns the adapter name.
	Name() string

	// Send sends a response to the platform.
	// sessionID maps to platform-specific identifier (channel ID, chat ID, etc.).
	Send(ctx context.Context, sessionID string, content string) error

	// Health checks if the adapter is healthy and can send messages.
	Health(ctx context.Context) error
}
