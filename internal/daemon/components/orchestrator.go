package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon"
	"github.com/treadwise/agent/internal/leads"
	"github.com/treadwise/agent/internal/model"
	"github.com/treadwise/agent/internal/orchestrator"
	"github.com/treadwise/agent/internal/orchestrator/command"
	"github.com/treadwise/agent/internal/orchestrator/session"
	"github.com/treadwise/agent/internal/tool"
)

// healthChecker is implemented by model.DefaultModelRouter.
type healthChecker interface {
	Health(ctx context.Context) error
}

type OrchestratorComponent struct {
	cfg             *config.Config
	completer       orchestrator.Completer
	storeWorkerComp *StoreWorkerComponent
	sessionsComp    *SessionsComponent
	responder       *orchestrator.Responder
	mu              sync.RWMutex
}

// NewOrchestratorComponent wires the conversation loop. A nil completer
// builds a model router from cfg.Models during Init.
func NewOrchestratorComponent(cfg *config.Config, completer orchestrator.Completer, storeComp *StoreWorkerComponent, sessionsComp *SessionsComponent) *OrchestratorComponent {
	return &OrchestratorComponent{
		cfg:             cfg,
		completer:       completer,
		storeWorkerComp: storeComp,
		sessionsComp:    sessionsComp,
	}
}

func (o *OrchestratorComponent) Name() string {
	return "Orchestrator"
}

func (o *OrchestratorComponent) Dependencies() []string {
	return []string{"StoreWorker", "Sessions"}
}

func (o *OrchestratorComponent) Init(ctx context.Context) error {
	if o.storeWorkerComp == nil || o.sessionsComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}

	storeWorker := o.storeWorkerComp.GetWorker()
	sessions := o.sessionsComp.GetManager()
	if storeWorker == nil || sessions == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.completer == nil {
		router, err := model.NewModelRouter(o.cfg.Models)
		if err != nil {
			return fmt.Errorf("failed to create model router: %w", err)
		}
		o.completer = router
	}

	responder, err := BuildResponder(o.cfg, o.completer, storeWorker, sessions)
	if err != nil {
		return err
	}
	o.responder = responder

	slog.Info("Orchestrator initialized", "component", o.Name(), "model", o.cfg.Models.Default)
	return nil
}

func (o *OrchestratorComponent) Start(ctx context.Context) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.responder == nil {
		return fmt.Errorf("orchestrator not initialized")
	}
	slog.Info("Orchestrator started", "component", o.Name())
	return nil
}

func (o *OrchestratorComponent) Stop(ctx context.Context) error {
	slog.Info("Orchestrator stopped", "component", o.Name())
	return nil
}

func (o *OrchestratorComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.responder == nil {
		return &daemon.ComponentHealth{
			Name:    o.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if checker, ok := o.completer.(healthChecker); ok {
		if err := checker.Health(ctx); err != nil {
			return &daemon.ComponentHealth{Name: o.Name(), Healthy: false, Error: err}, nil
		}
	}

	return &daemon.ComponentHealth{Name: o.Name(), Healthy: true}, nil
}

func (o *OrchestratorComponent) GetResponder() *orchestrator.Responder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.responder
}

// BuildResponder assembles the tool registry over the lead/feedback logger,
// the conversation loop and the slash command handler. The chat command
// shares it with the daemon.
func BuildResponder(cfg *config.Config, completer orchestrator.Completer, journal leads.Journal, sessions *session.Manager) (*orchestrator.Responder, error) {
	logger := leads.NewLogger(journal, cfg.Store.LeadsFile, cfg.Store.FeedbackFile)
	registry := tool.NewRegistry(logger)

	loop, err := orchestrator.NewLoop(completer, registry, sessions, cfg.Models.Default)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation loop: %w", err)
	}

	return orchestrator.NewResponder(loop, command.NewHandler(sessions, cfg.Chat.Examples)), nil
}
