package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon"
	"github.com/treadwise/agent/internal/orchestrator/session"
	"github.com/treadwise/agent/internal/prompt"
)

// SessionsComponent builds the system prompt from the business profile and
// owns the per-session conversations plus their idle sweeper.
type SessionsComponent struct {
	cfg         *config.Config
	manager     *session.Manager
	sweeper     *session.Sweeper
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewSessionsComponent(cfg *config.Config) *SessionsComponent {
	return &SessionsComponent{cfg: cfg}
}

func (s *SessionsComponent) Name() string {
	return "Sessions"
}

func (s *SessionsComponent) Dependencies() []string {
	return []string{}
}

func (s *SessionsComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Sessions init cancelled: %w", ctx.Err())
	default:
	}

	manager, err := NewSessionManager(s.cfg)
	if err != nil {
		return err
	}

	idleTTL, err := config.DurationOrDefault(s.cfg.Session.IdleTTL, config.DefaultSessionIdleTTL)
	if err != nil {
		return fmt.Errorf("parse session idle ttl: %w", err)
	}
	sweeper, err := session.NewSweeper(manager, idleTTL, s.cfg.Session.SweepSchedule)
	if err != nil {
		return fmt.Errorf("create session sweeper: %w", err)
	}

	s.manager = manager
	s.sweeper = sweeper
	s.initialized = true
	slog.Info("Sessions initialized", "component", s.Name(), "idle_ttl", idleTTL, "sweep", s.cfg.Session.SweepSchedule)
	return nil
}

func (s *SessionsComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Sessions not initialized")
	}
	if s.sweeper.Enabled() {
		if err := s.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start session sweeper: %w", err)
		}
	}
	s.started = true
	return nil
}

func (s *SessionsComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if err := s.sweeper.Stop(ctx); err != nil {
		return fmt.Errorf("stop session sweeper: %w", err)
	}
	slog.Info("Sessions stopped", "component", s.Name(), "open_sessions", s.manager.Len())
	return nil
}

func (s *SessionsComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !s.started {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if s.sweeper.Enabled() && !s.sweeper.IsRunning() {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("sweeper not running")}, nil
	}
	return &daemon.ComponentHealth{Name: s.Name(), Healthy: true}, nil
}

func (s *SessionsComponent) GetManager() *session.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// NewSessionManager reads the business profile once and seeds every new
// conversation with the rendered system prompt. A missing profile is fatal.
func NewSessionManager(cfg *config.Config) (*session.Manager, error) {
	profile, err := prompt.LoadProfile(cfg.Business.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load business profile: %w", err)
	}
	systemPrompt, err := prompt.BuildSystem(cfg.Business.Name, profile)
	if err != nil {
		return nil, fmt.Errorf("build system prompt: %w", err)
	}
	return session.NewManager(systemPrompt), nil
}
