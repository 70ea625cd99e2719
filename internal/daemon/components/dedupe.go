package components

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon"
	"github.com/treadwise/agent/internal/idempotency"
	"github.com/treadwise/agent/internal/store"
)

// dedupeFlushSchedule prunes expired event keys and flushes the rest.
const dedupeFlushSchedule = "@every 1m"

// DedupeComponent remembers Slack/Telegram event ids across restarts so a
// redelivery after a crash is still answered once.
type DedupeComponent struct {
	storeCfg    *config.StoreConfig
	store       *idempotency.Store
	cron        *cron.Cron
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewDedupeComponent(storeCfg *config.StoreConfig) *DedupeComponent {
	return &DedupeComponent{storeCfg: storeCfg}
}

func (d *DedupeComponent) Name() string {
	return "Dedupe"
}

func (d *DedupeComponent) Dependencies() []string {
	return []string{}
}

func (d *DedupeComponent) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dataDir := ""
	if d.storeCfg != nil {
		dataDir = d.storeCfg.DataDir
	}
	resolved, err := store.ResolveDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	st, err := idempotency.NewStore(filepath.Join(resolved, idempotency.DefaultFileName))
	if err != nil {
		return fmt.Errorf("load processed events: %w", err)
	}
	d.store = st
	d.initialized = true
	slog.Info("Dedupe initialized", "component", d.Name(), "keys", st.Len())
	return nil
}

func (d *DedupeComponent) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("Dedupe not initialized")
	}

	c := cron.New()
	if _, err := c.AddFunc(dedupeFlushSchedule, d.flush); err != nil {
		return fmt.Errorf("schedule dedupe flush: %w", err)
	}
	c.Start()
	d.cron = c
	d.started = true
	return nil
}

func (d *DedupeComponent) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	c := d.cron
	d.cron = nil
	d.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	d.flush()
	slog.Info("Dedupe stopped", "component", d.Name())
	return nil
}

func (d *DedupeComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return &daemon.ComponentHealth{Name: d.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !d.started {
		return &daemon.ComponentHealth{Name: d.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	return &daemon.ComponentHealth{Name: d.Name(), Healthy: true}, nil
}

func (d *DedupeComponent) GetStore() *idempotency.Store {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store
}

func (d *DedupeComponent) flush() {
	pruned := d.store.Prune()
	if err := d.store.Save(); err != nil {
		slog.Warn("Failed to persist processed events", "component", d.Name(), "error", err)
		return
	}
	if pruned > 0 {
		slog.Debug("Pruned processed events", "component", d.Name(), "count", pruned)
	}
}
