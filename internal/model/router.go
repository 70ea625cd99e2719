package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/treadwise/agent/internal/config"
	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/logger"
	"github.com/treadwise/agent/internal/model/contract"
	anthropicProvider "github.com/treadwise/agent/internal/model/providers/anthropic"
	geminiProvider "github.com/treadwise/agent/internal/model/providers/gemini"
	openaiProvider "github.com/treadwise/agent/internal/model/providers/openai"
	openrouterProvider "github.com/treadwise/agent/internal/model/providers/openrouter"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mapper    twErrors.ErrorMapper
	mu        sync.RWMutex
}

// NewModelRouter creates a new model router
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
		mapper:    twErrors.NewDefaultErrorMapper(),
	}

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// NewRouterWithProviders builds a router over already constructed providers,
// keyed by model name.
func NewRouterWithProviders(cfg config.ModelsConfig, providers map[string]Provider) *DefaultModelRouter {
	r := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider, len(providers)),
		mapper:    twErrors.NewDefaultErrorMapper(),
	}
	for name, p := range providers {
		r.providers[name] = p
	}
	return r
}

// Route routes a completion request to the appropriate provider
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	traceID := logger.GetTraceID(ctx)

	slog.Debug("Routing completion request", "model", model, "tools", len(req.Tools), "trace_id", traceID)

	provider, resolved, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.executeWithFallback(ctx, resolved, provider, req, traceID)
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// Health checks the health of the router and its providers
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.providers) == 0 {
		return twErrors.NotFound("no model providers configured")
	}

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return twErrors.Transient(fmt.Sprintf("provider %s unhealthy", name))
		}
	}

	return nil
}

// initProviders initializes all providers from configuration
func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := r.createProvider(entry)
		if err != nil {
			slog.Debug("Skipping model", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return twErrors.InvalidInput("no model providers initialized; set OPENAI_API_KEY or configure models.registry")
	}

	return nil
}

// resolveProvider resolves a provider by model name with fallback
func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (Provider, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", twErrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return provider, model, nil
	}

	slog.Warn("Model not found", "model", model)

	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Trying fallback model", "model", model, "fallback", r.cfg.Fallback)
			return fallbackProvider, r.cfg.Fallback, nil
		}
	}

	return nil, "", twErrors.NotFound(fmt.Sprintf("model %s not found", model))
}

// executeWithFallback executes a request with fallback logic
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, model string, provider Provider, req contract.CompletionRequest, traceID string) (*contract.CompletionResponse, error) {
	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	currentProvider := provider

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, twErrors.Wrap(ctx.Err(), "request execution cancelled")
		default:
		}

		attemptReq := req
		attemptReq.Model = currentModel

		start := time.Now()
		resp, err := currentProvider.Generate(ctx, attemptReq)
		if err == nil {
			slog.Info("Request completed", "model", currentModel, "attempt", attempt+1, "tool_calls", len(resp.ToolCalls), "duration", time.Since(start), "trace_id", traceID)
			return resp, nil
		}

		mapped := r.mapper.MapError(err)
		slog.Error("Provider request failed", "model", currentModel, "attempt", attempt+1, "category", r.mapper.Category(mapped), "error", err, "trace_id", traceID)

		if r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			return nil, twErrors.Wrap(mapped, fmt.Sprintf("model %s", currentModel))
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			return nil, twErrors.Wrap(mapped, fmt.Sprintf("model %s (fallback %s not configured)", currentModel, r.cfg.Fallback))
		}

		slog.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)
		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return nil, twErrors.Transient("fallback exhausted")
}

// createProvider creates a provider instance based on registry entry
func (r *DefaultModelRouter) createProvider(entry config.ModelRegistry) (Provider, error) {
	timeout, err := config.DurationOrDefault(entry.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, twErrors.InvalidInput(fmt.Sprintf("invalid request_timeout for model %s: %v", entry.Name, err))
	}

	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}

		if entry.APIKey == "" {
			return nil, twErrors.InvalidInput("API key required for OpenAI provider")
		}

		return &ProviderAdapter{
			provider:     openaiProvider.New(entry.APIKey, baseURL, entry.Name, timeout),
			name:         entry.Name,
			providerType: "openai",
		}, nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}

		return &ProviderAdapter{
			provider:     openaiProvider.New(apiKey, baseURL, entry.Name, timeout),
			name:         entry.Name,
			providerType: "ollama",
		}, nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, twErrors.InvalidInput("API key required for Anthropic provider")
		}

		return &ProviderAdapter{
			provider:     anthropicProvider.New(entry.APIKey, entry.BaseURL, entry.Name, timeout),
			name:         entry.Name,
			providerType: "anthropic",
		}, nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, twErrors.InvalidInput("API key required for Gemini provider")
		}

		provider, err := geminiProvider.New(entry.APIKey, entry.BaseURL, entry.Name, timeout)
		if err != nil {
			return nil, twErrors.WrapWithCategory(err, "failed to create Gemini provider", twErrors.ErrInternal)
		}

		return &ProviderAdapter{
			provider:     provider,
			name:         entry.Name,
			providerType: "gemini",
		}, nil

	case "openrouter":
		if entry.APIKey == "" {
			return nil, twErrors.InvalidInput("API key required for OpenRouter provider")
		}

		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenRouterBaseURL
		}

		return &ProviderAdapter{
			provider: openrouterProvider.New(openrouterProvider.Config{
				APIKey:   entry.APIKey,
				BaseURL:  baseURL,
				Model:    entry.Name,
				SiteURL:  entry.SiteURL,
				SiteName: entry.SiteName,
				Timeout:  timeout,
			}),
			name:         entry.Name,
			providerType: "openrouter",
		}, nil

	default:
		return nil, twErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}
