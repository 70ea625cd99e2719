package idempotency

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// DefaultFileName holds processed inbound event keys inside the data dir.
const DefaultFileName = "processed_events.json"

type ProcessedKeys struct {
	Keys map[string]int64 `json:"keys"` // Key -> Expiry (Unix millis)
}

// Store remembers inbound event keys for a TTL so that redelivered
// Slack/Telegram events are answered once. With an empty path it is
// memory-only.
type Store struct {
	path  string
	now   func() time.Time
	state ProcessedKeys
	mu    sync.Mutex
	dirty bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path: strings.TrimSpace(path),
		now:  time.Now,
		state: ProcessedKeys{
			Keys: make(map[string]int64),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Key namespaces an event id by its source surface.
func Key(source, eventID string) string {
	return source + ":" + eventID
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.save()
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return err
	}
	if s.state.Keys == nil {
		s.state.Keys = make(map[string]int64)
	}
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Save flushes marked keys to disk if anything changed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.save()
}

// CheckAndMark reports whether key was already seen within its TTL, and
// marks it as seen otherwise.
func (s *Store) CheckAndMark(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()

	if expiry, exists := s.state.Keys[key]; exists {
		if expiry > now {
			return true
		}
		delete(s.state.Keys, key)
	}

	s.state.Keys[key] = now + ttl.Milliseconds()
	s.dirty = true
	return false
}

// Prune drops expired keys and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	count := 0
	for k, expiry := range s.state.Keys {
		if expiry <= now {
			delete(s.state.Keys, k)
			count++
		}
	}
	if count > 0 {
		s.dirty = true
	}
	return count
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Keys)
}
