package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/store"
)

// Daemon runs the agent's components for `treadwise serve`. Components are
// initialized dependencies first, started in registration order and stopped
// in reverse registration order.
type Daemon struct {
	cfg *config.Config

	mu          sync.RWMutex
	components  []Component
	byName      map[string]Component
	initialized []Component
	status      HealthStatus
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Daemon{
		cfg:    cfg,
		byName: make(map[string]Component),
		status: StatusStarting,
	}, nil
}

// AddComponent registers comp. Registering a second component under the
// same name replaces the first.
func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := comp.Name()
	if _, exists := d.byName[name]; exists {
		for i, c := range d.components {
			if c.Name() == name {
				d.components[i] = comp
			}
		}
		slog.Warn("Component replaced", "component", name)
	} else {
		d.components = append(d.components, comp)
	}
	d.byName[name] = comp
	slog.Debug("Component registered", "component", name, "total_components", len(d.components))
}

// Start blocks until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// every component down. It returns the context error that ended the run.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("TreadWise daemon starting...", "business", d.cfg.Business.Name, "data_dir", d.cfg.Store.DataDir)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := d.initializeComponents(ctx); err != nil {
		d.rollback(context.Background())
		return fmt.Errorf("component initialization failed: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		timeout, timeoutErr := config.DurationOrDefault(d.cfg.Daemon.StartupShutdownTimeout, config.DefaultDaemonStartupShutdownTimeout)
		if timeoutErr != nil {
			return fmt.Errorf("parse daemon startup shutdown timeout: %w", timeoutErr)
		}
		if shutdownErr := d.gracefulShutdown(context.Background(), timeout); shutdownErr != nil {
			slog.Error("Cleanup after failed startup incomplete", "error", shutdownErr)
		}
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.setStatus(StatusRunning)
	slog.Info("TreadWise daemon is running",
		"port", d.cfg.Server.Port,
		"web", d.cfg.Adapters.Web.Enabled,
		"telegram", d.cfg.Adapters.Telegram.Enabled,
		"slack", d.cfg.Adapters.Slack.Enabled,
	)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	go d.monitorHealth(monitorCtx)

	<-ctx.Done()
	stopMonitor()

	slog.Info("Shutting down TreadWise daemon", "reason", ctx.Err())
	d.setStatus(StatusStopping)

	timeout, err := config.DurationOrDefault(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse daemon shutdown timeout: %w", err)
	}
	if err := d.gracefulShutdown(context.Background(), timeout); err != nil {
		return err
	}
	return ctx.Err()
}

// Health reports the daemon's lifecycle status.
func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// ComponentHealth asks every registered component for its health. A health
// check that errors marks the component unhealthy.
func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	components := d.snapshot()

	result := make(map[string]*ComponentHealth, len(components))
	for _, comp := range components {
		health, err := comp.Health(context.Background())
		if health == nil {
			health = &ComponentHealth{Name: comp.Name()}
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

func (d *Daemon) getComponentByName(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byName[name]
}

func (d *Daemon) snapshot() []Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Component(nil), d.components...)
}

func (d *Daemon) setStatus(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

// validateConfig catches settings that would only fail later, mid-chat, and
// creates the data dir the lead and feedback journals live in.
func (d *Daemon) validateConfig() error {
	cfg := d.cfg

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", cfg.Server.Port)
	}
	if cfg.Adapters.Slack.Enabled && cfg.Adapters.Slack.Port == cfg.Server.Port {
		return fmt.Errorf("slack port %d collides with server port", cfg.Adapters.Slack.Port)
	}
	if cfg.Store.LeadsFile != "" && cfg.Store.LeadsFile == cfg.Store.FeedbackFile {
		return fmt.Errorf("leads and feedback journals share the file %q", cfg.Store.LeadsFile)
	}

	dataDir, err := store.ResolveDataDir(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	slog.Debug("Configuration validated", "data_dir", dataDir, "port", cfg.Server.Port)
	return nil
}

func (d *Daemon) initializeComponents(ctx context.Context) error {
	order, err := d.resolveInitOrder()
	if err != nil {
		return err
	}
	slog.Info("Initializing components", "order", order)

	for _, name := range order {
		comp := d.getComponentByName(name)
		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", name, "error", err)
			return fmt.Errorf("component %s init failed: %w", name, err)
		}
		d.mu.Lock()
		d.initialized = append(d.initialized, comp)
		d.mu.Unlock()
		slog.Debug("Component initialized", "component", name)
	}
	return nil
}

// resolveInitOrder sorts components so each comes after its dependencies.
// Among components that are ready at the same time, registration order wins.
func (d *Daemon) resolveInitOrder() ([]string, error) {
	components := d.snapshot()

	pending := make(map[string]int, len(components))
	dependents := make(map[string][]string)
	registered := make(map[string]bool, len(components))
	for _, comp := range components {
		registered[comp.Name()] = true
	}
	for _, comp := range components {
		for _, dep := range comp.Dependencies() {
			if !registered[dep] {
				return nil, fmt.Errorf("component %s depends on %s which is not registered", comp.Name(), dep)
			}
			pending[comp.Name()]++
			dependents[dep] = append(dependents[dep], comp.Name())
		}
	}

	order := make([]string, 0, len(components))
	done := make(map[string]bool, len(components))
	for len(order) < len(components) {
		progressed := false
		for _, comp := range components {
			name := comp.Name()
			if done[name] || pending[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, name)
			for _, dependent := range dependents[name] {
				pending[dependent]--
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, comp := range components {
				if !done[comp.Name()] {
					stuck = append(stuck, comp.Name())
				}
			}
			return nil, fmt.Errorf("circular dependency between components %v", stuck)
		}
	}
	return order, nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	components := d.snapshot()
	for _, comp := range components {
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", comp.Name(), "error", err)
			return fmt.Errorf("component %s startup failed: %w", comp.Name(), err)
		}
		slog.Debug("Component started", "component", comp.Name())
	}
	slog.Info("All components started", "count", len(components))
	return nil
}

func (d *Daemon) gracefulShutdown(ctx context.Context, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.shutdownComponents(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Shutdown completed with errors", "error", err)
			return err
		}
		slog.Info("TreadWise daemon stopped")
		return nil
	case <-shutdownCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		}
		slog.Error("Shutdown timeout exceeded", "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// shutdownComponents stops components in reverse registration order, so the
// HTTP server and chat adapters stop taking messages before the store worker
// that journals leads goes away. Every component is stopped even if one fails.
func (d *Daemon) shutdownComponents(ctx context.Context) error {
	components := d.snapshot()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Component stop failed", "component", comp.Name(), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", comp.Name(), err))
			continue
		}
		slog.Debug("Component stopped", "component", comp.Name())
	}

	d.setStatus(StatusStopped)
	return errors.Join(errs...)
}

// rollback stops the components that finished Init, newest first.
func (d *Daemon) rollback(ctx context.Context) {
	d.mu.Lock()
	initialized := d.initialized
	d.initialized = nil
	d.mu.Unlock()

	slog.Warn("Rolling back initialized components", "count", len(initialized))
	for i := len(initialized) - 1; i >= 0; i-- {
		comp := initialized[i]
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Rollback failed", "component", comp.Name(), "error", err)
		}
	}

	d.setStatus(StatusStopped)
}

func (d *Daemon) monitorHealth(ctx context.Context) {
	interval, err := config.DurationOrDefault(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval)
	if err != nil {
		slog.Error("Failed to parse daemon health check interval", "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if unhealthy := d.unhealthyComponents(); len(unhealthy) > 0 {
				slog.Warn("TreadWise daemon degraded", "unhealthy", unhealthy)
			}
		}
	}
}

func (d *Daemon) unhealthyComponents() []string {
	var names []string
	for name, health := range d.ComponentHealth() {
		if !health.Healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
