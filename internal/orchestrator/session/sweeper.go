package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	twErrors "github.com/treadwise/agent/internal/errors"
)

// Sweeper evicts idle sessions on a cron schedule.
type Sweeper struct {
	manager  *Manager
	ttl      time.Duration
	schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper validates schedule up front. A zero ttl or empty schedule
// yields a sweeper whose Start is a no-op.
func NewSweeper(manager *Manager, ttl time.Duration, schedule string) (*Sweeper, error) {
	if manager == nil {
		return nil, twErrors.InvalidInput("session manager is nil")
	}
	schedule = strings.TrimSpace(schedule)
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
		}
	}
	return &Sweeper{manager: manager, ttl: ttl, schedule: schedule}, nil
}

func (s *Sweeper) Enabled() bool {
	return s.ttl > 0 && s.schedule != ""
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || !s.Enabled() {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.Sweep); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.running = true

	slog.Info("Session sweeper started", "schedule", s.schedule, "idle_ttl", s.ttl)
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep runs one eviction pass.
func (s *Sweeper) Sweep() {
	evicted := s.manager.EvictIdle(s.ttl)
	if len(evicted) > 0 {
		slog.Info("Evicted idle sessions", "count", len(evicted), "remaining", s.manager.Len())
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
