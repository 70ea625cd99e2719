package model

import (
	"context"
	"fmt"

	"github.com/treadwise/agent/internal/model/contract"
	anthropicProvider "github.com/treadwise/agent/internal/model/providers/anthropic"
	geminiProvider "github.com/treadwise/agent/internal/model/providers/gemini"
	openaiProvider "github.com/treadwise/agent/internal/model/providers/openai"
	openrouterProvider "github.com/treadwise/agent/internal/model/providers/openrouter"
)

// ProviderAdapter wraps provider-specific implementations to satisfy model.Provider.
type ProviderAdapter struct {
	provider     interface{}
	name         string
	providerType string
}

func (a *ProviderAdapter) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	switch p := a.provider.(type) {
	case *openaiProvider.Provider:
		return p.Generate(ctx, req)
	case *anthropicProvider.Provider:
		return p.Generate(ctx, req)
	case *geminiProvider.Provider:
		return p.Generate(ctx, req)
	case *openrouterProvider.Provider:
		return p.Generate(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported provider type: %T", a.provider)
	}
}

func (a *ProviderAdapter) Name() string {
	return a.name
}

func (a *ProviderAdapter) Type() string {
	return a.providerType
}

func (a *ProviderAdapter) Health(ctx context.Context) error {
	if a.provider == nil {
		return fmt.Errorf("provider %s not initialized", a.name)
	}
	return nil
}
