package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/orchestrator"
)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithCompleter(completer orchestrator.Completer) RuntimeBuilder
	WithSession(sessionID string) RuntimeBuilder
	WithIO(in io.Reader, out io.Writer) RuntimeBuilder
	Build() (*RuntimeComponents, error)
}

type DefaultRuntimeBuilder struct {
	ctx       context.Context
	cfg       *config.Config
	completer orchestrator.Completer
	sessionID string
	in        io.Reader
	out       io.Writer
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

// WithCompleter replaces the model router built from cfg.Models.
func (b *DefaultRuntimeBuilder) WithCompleter(completer orchestrator.Completer) RuntimeBuilder {
	b.completer = completer
	return b
}

func (b *DefaultRuntimeBuilder) WithSession(sessionID string) RuntimeBuilder {
	b.sessionID = sessionID
	return b
}

func (b *DefaultRuntimeBuilder) WithIO(in io.Reader, out io.Writer) RuntimeBuilder {
	b.in = in
	b.out = out
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*RuntimeComponents, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}

	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if b.sessionID == "" {
		b.sessionID = DefaultSessionID
	}

	components, err := NewRuntimeComponents(b.ctx, b.cfg, Options{
		Completer: b.completer,
		SessionID: b.sessionID,
		In:        b.in,
		Out:       b.out,
	})
	if err != nil {
		return nil, err
	}

	return components, nil
}
