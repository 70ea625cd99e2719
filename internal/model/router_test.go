package model

import (
	"context"
	"errors"
	"testing"

	"github.com/treadwise/agent/internal/config"
	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	err   error
	reply string
	seen  []contract.CompletionRequest
}

func (s *stubProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	s.seen = append(s.seen, req)
	if s.err != nil {
		return nil, s.err
	}
	return &contract.CompletionResponse{Content: s.reply}, nil
}

func (s *stubProvider) Name() string                     { return s.name }
func (s *stubProvider) Type() string                     { return "stub" }
func (s *stubProvider) Health(ctx context.Context) error { return nil }

func TestRouteUsesRequestedModel(t *testing.T) {
	primary := &stubProvider{name: "gpt-4o-mini", reply: "hello"}
	r := NewRouterWithProviders(config.ModelsConfig{}, map[string]Provider{"gpt-4o-mini": primary})

	resp, err := r.Route(context.Background(), "gpt-4o-mini", contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	require.Len(t, primary.seen, 1)
	assert.Equal(t, "gpt-4o-mini", primary.seen[0].Model)
}

func TestRouteFallsBackOnProviderError(t *testing.T) {
	primary := &stubProvider{name: "gpt-4o-mini", err: errors.New("429 rate limit exceeded")}
	fallback := &stubProvider{name: "claude", reply: "from fallback"}
	r := NewRouterWithProviders(config.ModelsConfig{Fallback: "claude"}, map[string]Provider{
		"gpt-4o-mini": primary,
		"claude":      fallback,
	})

	resp, err := r.Route(context.Background(), "gpt-4o-mini", contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Content)
	require.Len(t, fallback.seen, 1)
	assert.Equal(t, "claude", fallback.seen[0].Model)
}

func TestRouteWithoutFallbackReturnsMappedError(t *testing.T) {
	primary := &stubProvider{name: "gpt-4o-mini", err: errors.New("401 Unauthorized")}
	r := NewRouterWithProviders(config.ModelsConfig{}, map[string]Provider{"gpt-4o-mini": primary})

	_, err := r.Route(context.Background(), "gpt-4o-mini", contract.CompletionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, twErrors.ErrPermissionDenied)
}

func TestRouteUnknownModel(t *testing.T) {
	r := NewRouterWithProviders(config.ModelsConfig{}, map[string]Provider{})

	_, err := r.Route(context.Background(), "missing", contract.CompletionRequest{})
	assert.ErrorIs(t, err, twErrors.ErrNotFound)
	assert.Error(t, r.Health(context.Background()))
}

func TestNewModelRouterSkipsEntriesWithoutKeys(t *testing.T) {
	r, err := NewModelRouter(config.ModelsConfig{Registry: []config.ModelRegistry{
		{Name: "gpt-4o-mini", Provider: "openai"},
		{Name: "local-llama", Provider: "ollama", BaseURL: config.DefaultOllamaBaseURL},
		{Name: "router", Provider: "openrouter", APIKey: "or-key"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"local-llama", "router"}, r.ListModels())
}

func TestNewModelRouterFailsWhenNothingUsable(t *testing.T) {
	_, err := NewModelRouter(config.ModelsConfig{Registry: []config.ModelRegistry{
		{Name: "gpt-4o-mini", Provider: "openai"},
		{Name: "x", Provider: "unknown"},
	}})
	assert.ErrorIs(t, err, twErrors.ErrInvalidInput)
}
