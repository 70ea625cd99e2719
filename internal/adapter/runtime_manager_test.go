package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treadwise/agent/internal/config"
)

func noopHandler(context.Context, string, string, string, string, map[string]string) error {
	return nil
}

func TestNewRuntimeManager_RequiresTokens(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_SIGNING_SECRET", "")

	_, err := NewRuntimeManager(config.AdaptersConfig{Telegram: config.TelegramConfig{Enabled: true}}, noopHandler, RuntimeAdapterOptions{})
	assert.Error(t, err)

	_, err = NewRuntimeManager(config.AdaptersConfig{Slack: config.SlackConfig{Enabled: true}}, noopHandler, RuntimeAdapterOptions{})
	assert.Error(t, err)

	_, err = NewRuntimeManager(config.AdaptersConfig{Slack: config.SlackConfig{Enabled: true, BotToken: "xoxb"}}, noopHandler, RuntimeAdapterOptions{RequireSlackSecrets: true})
	assert.Error(t, err)
}

func TestNewRuntimeManager_Composition(t *testing.T) {
	cfg := config.AdaptersConfig{
		Telegram: config.TelegramConfig{Enabled: true, BotToken: "123:abc"},
	}

	m, err := NewRuntimeManager(cfg, noopHandler, RuntimeAdapterOptions{})
	require.NoError(t, err)

	var inputs []string
	for _, in := range m.InputAdapters() {
		inputs = append(inputs, in.Name())
	}
	assert.Equal(t, []string{"telegram"}, inputs)

	var outputs []string
	for _, out := range m.OutputAdapters() {
		outputs = append(outputs, out.Name())
	}
	assert.Equal(t, []string{"telegram"}, outputs)

	disabled, err := NewRuntimeManager(config.AdaptersConfig{}, noopHandler, RuntimeAdapterOptions{})
	require.NoError(t, err)
	assert.Empty(t, disabled.InputAdapters())
}
