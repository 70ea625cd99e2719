package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/treadwise/agent/internal/adapter"
	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon"
)

// AdaptersComponent runs the push-style surfaces (Slack, Telegram). Their
// events flow through a ReplyRouter into the orchestrator's responder.
type AdaptersComponent struct {
	cfg              *config.AdaptersConfig
	orchestratorComp *OrchestratorComponent
	dedupeComp       *DedupeComponent
	manager          *adapter.RuntimeManager
	initialized      bool
	started          bool
}

func NewAdaptersComponent(cfg *config.AdaptersConfig, orchestratorComp *OrchestratorComponent, dedupeComp *DedupeComponent) *AdaptersComponent {
	return &AdaptersComponent{
		cfg:              cfg,
		orchestratorComp: orchestratorComp,
		dedupeComp:       dedupeComp,
	}
}

func (a *AdaptersComponent) Name() string {
	return "Adapters"
}

func (a *AdaptersComponent) Dependencies() []string {
	return []string{"Orchestrator", "Dedupe"}
}

func (a *AdaptersComponent) Init(ctx context.Context) error {
	if a.cfg == nil || a.orchestratorComp == nil || a.dedupeComp == nil {
		return fmt.Errorf("adapters component not configured")
	}
	responder := a.orchestratorComp.GetResponder()
	dedupe := a.dedupeComp.GetStore()
	if responder == nil || dedupe == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	dedupeTTL, err := config.DurationOrDefault(a.cfg.DedupeTTL, config.DefaultAdaptersDedupeTTL)
	if err != nil {
		return fmt.Errorf("parse adapters dedupe ttl: %w", err)
	}

	router := adapter.NewReplyRouter(responder, dedupe, dedupeTTL)
	manager, err := adapter.NewRuntimeManager(*a.cfg, router.Handle, adapter.RuntimeAdapterOptions{
		RequireSlackSecrets: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create adapters: %w", err)
	}
	router.Bind(manager.OutputAdapters())

	a.manager = manager
	a.initialized = true
	slog.Info("Adapters initialized", "component", a.Name(), "inputs", len(manager.InputAdapters()))
	return nil
}

func (a *AdaptersComponent) Start(ctx context.Context) error {
	if !a.initialized {
		return fmt.Errorf("adapters component not initialized")
	}
	a.manager.Start(ctx)
	a.started = true
	slog.Info("Adapters started", "component", a.Name())
	return nil
}

func (a *AdaptersComponent) Stop(ctx context.Context) error {
	if !a.started {
		return nil
	}
	err := a.manager.Stop(ctx)
	a.started = false
	if err != nil {
		return err
	}
	slog.Info("Adapters stopped", "component", a.Name())
	return nil
}

func (a *AdaptersComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !a.initialized {
		return &daemon.ComponentHealth{Name: a.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !a.started {
		return &daemon.ComponentHealth{Name: a.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if err := a.manager.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: a.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: a.Name(), Healthy: true}, nil
}
