package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/treadwise/agent/internal/adapter"
	"github.com/treadwise/agent/internal/concurrency"
	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon"
)

// HealthSource reports per-component health. *daemon.Daemon implements it.
type HealthSource interface {
	ComponentHealth() map[string]*daemon.ComponentHealth
}

// HTTPServerComponent serves the web chat widget, its JSON API and /health
// on server.port.
type HTTPServerComponent struct {
	health           HealthSource
	cfg              *config.Config
	orchestratorComp *OrchestratorComponent
	sessionsComp     *SessionsComponent
	server           *http.Server
	shutdownTTL      time.Duration
	initialized      bool
	started          bool
	mu               sync.RWMutex
	startTime        time.Time
}

func NewHTTPServerComponent(health HealthSource, cfg *config.Config, orchestratorComp *OrchestratorComponent, sessionsComp *SessionsComponent) *HTTPServerComponent {
	return &HTTPServerComponent{
		health:           health,
		cfg:              cfg,
		orchestratorComp: orchestratorComp,
		sessionsComp:     sessionsComp,
		initialized:      false,
		started:          false,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return []string{"Orchestrator", "Sessions"}
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)

	if h.cfg.Adapters.Web.Enabled {
		if h.orchestratorComp == nil || h.sessionsComp == nil {
			return fmt.Errorf("web chat requires orchestrator and sessions")
		}
		responder := h.orchestratorComp.GetResponder()
		if responder == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		adapter.NewWebAdapter(responder, h.sessionsComp.GetManager(), h.cfg.Chat).Register(mux)
	}

	srvCfg := h.cfg.Server
	readTimeout, err := config.DurationOrDefault(srvCfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(srvCfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(srvCfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(srvCfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", srvCfg.Port),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", srvCfg.Port, "web", h.cfg.Adapters.Web.Enabled)
	return nil
}

// Handler returns the mounted routes; nil before Init.
func (h *HTTPServerComponent) Handler() http.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.server == nil {
		return nil
	}
	return h.server.Handler
}

func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	server := h.server
	concurrency.SafeGo("http-server", func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}, nil)

	h.started = true
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started = false
	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

type componentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]componentStatus `json:"components"`
	Unhealthy  []string                   `json:"unhealthy,omitempty"`
}

func (h *HTTPServerComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status:     "ok",
		Components: make(map[string]componentStatus),
	}
	h.mu.RLock()
	if h.started {
		resp.Uptime = time.Since(h.startTime).Round(time.Second).String()
	}
	h.mu.RUnlock()

	if h.health != nil {
		for name, ch := range h.health.ComponentHealth() {
			status := componentStatus{Healthy: ch.Healthy}
			if ch.Error != nil {
				status.Error = ch.Error.Error()
			}
			resp.Components[name] = status
			if !ch.Healthy {
				resp.Unhealthy = append(resp.Unhealthy, name)
			}
		}
	}
	sort.Strings(resp.Unhealthy)

	code := http.StatusOK
	if len(resp.Unhealthy) > 0 {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to write health response", "error", err)
	}
}
