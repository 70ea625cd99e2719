package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/treadwise/agent/internal/adapter"
	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon/components"
	"github.com/treadwise/agent/internal/model"
	"github.com/treadwise/agent/internal/orchestrator"
	"github.com/treadwise/agent/internal/orchestrator/session"
	"github.com/treadwise/agent/internal/store"
)

// DefaultSessionID names the terminal conversation when --session is unset.
const DefaultSessionID = "local"

type Options struct {
	Completer orchestrator.Completer
	SessionID string
	In        io.Reader
	Out       io.Writer
}

// RuntimeComponents is the in-process stack behind `treadwise chat`: the
// same store, sessions and responder the daemon runs, driven by a terminal.
type RuntimeComponents struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config *config.Config

	storeComp   *components.StoreWorkerComponent
	StoreWorker *store.Worker
	Sessions    *session.Manager
	Responder   *orchestrator.Responder
	CLI         *adapter.CLIAdapter
}

func NewRuntimeComponents(ctx context.Context, cfg *config.Config, opts Options) (*RuntimeComponents, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	rc := &RuntimeComponents{
		Ctx:    ctx,
		Cancel: cancel,
		Config: cfg,
	}

	sessions, err := components.NewSessionManager(cfg)
	if err != nil {
		rc.cleanup()
		return nil, fmt.Errorf("init sessions: %w", err)
	}
	rc.Sessions = sessions

	completer := opts.Completer
	if completer == nil {
		router, err := model.NewModelRouter(cfg.Models)
		if err != nil {
			rc.cleanup()
			return nil, fmt.Errorf("init model router: %w", err)
		}
		completer = router
	}

	rc.storeComp = components.NewStoreWorkerComponent(&cfg.Store)
	if err := rc.storeComp.Init(ctx); err != nil {
		rc.cleanup()
		return nil, fmt.Errorf("init store worker: %w", err)
	}
	rc.StoreWorker = rc.storeComp.GetWorker()

	responder, err := components.BuildResponder(cfg, completer, rc.StoreWorker, sessions)
	if err != nil {
		rc.cleanup()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	rc.Responder = responder

	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	rc.CLI = adapter.NewCLIAdapter(responder, in, out, adapter.CLIOptions{
		SessionID:   opts.SessionID,
		Title:       cfg.Chat.Title,
		Description: cfg.Chat.Description,
		Examples:    cfg.Chat.Examples,
	})

	slog.Debug("Runtime components initialized", "session", rc.CLI.SessionID())
	return rc, nil
}

func (r *RuntimeComponents) Start() error {
	if r.storeComp == nil {
		return fmt.Errorf("store worker not initialized")
	}
	return r.storeComp.Start(r.Ctx)
}

// Run starts the store and blocks in the terminal chat loop.
func (r *RuntimeComponents) Run() error {
	if err := r.Start(); err != nil {
		return fmt.Errorf("failed to start runtime components: %w", err)
	}
	return r.CLI.Start(r.Ctx)
}

func (r *RuntimeComponents) Stop() {
	r.cleanup()
}

func (r *RuntimeComponents) cleanup() {
	if r.Cancel != nil {
		r.Cancel()
	}
	if r.storeComp != nil {
		if err := r.storeComp.Stop(context.Background()); err != nil {
			slog.Warn("Failed to stop store worker", "error", err)
		}
	}
}
