package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	twErrors "github.com/treadwise/agent/internal/errors"
)

// Manager owns the conversations of all live sessions. Sessions are
// in-memory only; a restart starts every session fresh.
type Manager struct {
	systemPrompt string
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Conversation
}

type Option func(*Manager)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(systemPrompt string, opts ...Option) *Manager {
	m := &Manager{
		systemPrompt: systemPrompt,
		now:          time.Now,
		sessions:     make(map[string]*Conversation),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the conversation for sessionID, creating it seeded with the
// system prompt on first use. Looking a session up counts as activity.
func (m *Manager) Get(sessionID string) (*Conversation, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, twErrors.InvalidInput("session id is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.sessions[id]; ok {
		c.touch()
		return c, nil
	}
	c := newConversation(id, m.systemPrompt, m.now)
	m.sessions[id] = c
	slog.Debug("Session created", "session_id", id)
	return c, nil
}

// BeginTurn returns the live conversation for sessionID with its turn lock
// held. If the session was reset or evicted while waiting for the lock, the
// lock is released and the turn moves to the session's current conversation.
func (m *Manager) BeginTurn(ctx context.Context, sessionID string) (*Conversation, func(), error) {
	for {
		c, err := m.Get(sessionID)
		if err != nil {
			return nil, nil, err
		}
		end, err := c.BeginTurn(ctx)
		if err != nil {
			return nil, nil, err
		}
		if m.owns(c) {
			return c, end, nil
		}
		end()
		slog.Debug("Session replaced while waiting for turn", "session_id", c.ID())
	}
}

func (m *Manager) owns(c *Conversation) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[c.ID()] == c
}

// Reset drops the session's history. The next Get starts a fresh
// conversation. It reports whether the session existed.
func (m *Manager) Reset(sessionID string) bool {
	id := strings.TrimSpace(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	slog.Info("Session reset", "session_id", id)
	return true
}

// EvictIdle removes sessions inactive for longer than ttl and returns their
// ids. Sessions with a turn in progress are kept. A ttl <= 0 evicts nothing.
func (m *Manager) EvictIdle(ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for id, c := range m.sessions {
		if !c.LastActive().Before(cutoff) {
			continue
		}
		if !c.tryBeginTurn() {
			continue
		}
		delete(m.sessions, id)
		c.endTurn()
		evicted = append(evicted, id)
	}
	return evicted
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) SystemPrompt() string {
	return m.systemPrompt
}
