package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon"
	"github.com/treadwise/agent/internal/store"
)

// StoreWorkerComponent owns the single writer for the lead and feedback
// journals.
type StoreWorkerComponent struct {
	storeCfg    *config.StoreConfig
	worker      *store.Worker
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewStoreWorkerComponent(storeCfg *config.StoreConfig) *StoreWorkerComponent {
	return &StoreWorkerComponent{
		storeCfg:    storeCfg,
		initialized: false,
		started:     false,
	}
}

func (s *StoreWorkerComponent) Name() string {
	return "StoreWorker"
}

func (s *StoreWorkerComponent) Dependencies() []string {
	return []string{}
}

func (s *StoreWorkerComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return fmt.Errorf("StoreWorker init cancelled: %w", ctx.Err())
	default:
	}

	dataDir := ""
	lockTimeoutValue := ""
	lockRetryValue := ""
	inboxSize := 0
	rotateMaxBytes := int64(0)
	if s.storeCfg != nil {
		dataDir = s.storeCfg.DataDir
		lockTimeoutValue = s.storeCfg.LockTimeout
		lockRetryValue = s.storeCfg.LockRetry
		inboxSize = s.storeCfg.InboxSize
		rotateMaxBytes = s.storeCfg.RotateMaxBytes
	}

	lockTimeout, err := config.DurationOrDefault(lockTimeoutValue, config.DefaultStoreLockTimeout)
	if err != nil {
		return fmt.Errorf("parse store lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(lockRetryValue, config.DefaultStoreLockRetry)
	if err != nil {
		return fmt.Errorf("parse store lock retry: %w", err)
	}
	if inboxSize <= 0 {
		inboxSize = config.DefaultStoreInboxSize
	}

	worker, err := store.NewWorker(dataDir, store.RuntimeConfig{
		LockTimeout:    lockTimeout,
		LockRetry:      lockRetry,
		InboxSize:      inboxSize,
		RotateMaxBytes: rotateMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to init store worker: %w", err)
	}

	s.worker = worker
	s.initialized = true
	slog.Info("StoreWorker initialized", "component", s.Name(), "data_dir", worker.DataDir())
	return nil
}

func (s *StoreWorkerComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("StoreWorker not initialized")
	}

	s.worker.Start()
	s.started = true
	s.startTime = time.Now()
	slog.Info("StoreWorker started", "component", s.Name())
	return nil
}

func (s *StoreWorkerComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		slog.Info("StoreWorker not started, skipping stop", "component", s.Name())
		return nil
	}

	slog.Info("Stopping StoreWorker...", "component", s.Name())
	s.worker.Stop()
	s.started = false
	slog.Info("StoreWorker stopped", "component", s.Name())
	return nil
}

func (s *StoreWorkerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !s.started {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	if !s.worker.IsRunning() {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("loop not running"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

func (s *StoreWorkerComponent) GetWorker() *store.Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.worker
}
