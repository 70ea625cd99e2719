package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treadwise/agent/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitCmd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config init failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".treadwise", "config.yaml")
	raw, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s: %v", configPath, err)
	}
	assert.Contains(t, string(raw), "profile_path: me/Business_summary.txt")
	assert.Contains(t, out.String(), "Initialized config")

	out.Reset()
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Errorf("Config init should succeed when config exists: %v", err)
	}
	assert.Contains(t, out.String(), "Config already exists")
}

func TestConfigTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, embeddedDefaultConfig, 0644))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Set("config", path))

	loaded, err := config.Load(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultServerPort, loaded.Server.Port)
	assert.Equal(t, config.DefaultModelDefault, loaded.Models.Default)
	assert.Len(t, loaded.Chat.Examples, len(config.DefaultChatExamples))
	assert.True(t, loaded.Adapters.Web.Enabled)
}

func TestConfigViewCmd_MasksSecrets(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{{Name: "gpt-4o-mini", Provider: "openai", APIKey: "sk-live-abcdef123456"}},
		},
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, configViewCmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "gpt-4o-mini")
	assert.NotContains(t, out.String(), "sk-live-abcdef123456")
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abcd"},
			},
		},
		Adapters: config.AdaptersConfig{
			Slack: config.SlackConfig{
				SigningSecret: "slack-signing-secret",
				BotToken:      "slack-bot-token",
			},
			Telegram: config.TelegramConfig{
				BotToken: "telegram-secret-token",
			},
		},
	}

	redacted := redactConfigSecrets(original)

	if redacted == nil {
		t.Fatal("redacted config should not be nil")
	}
	if redacted.Models.Registry[0].APIKey == original.Models.Registry[0].APIKey {
		t.Fatal("model API key should be masked")
	}
	if strings.Contains(redacted.Models.Registry[0].APIKey, "secret") {
		t.Fatal("masked model API key should not leak original value")
	}
	if redacted.Models.Registry[1].APIKey != "****" {
		t.Fatalf("short key should be fully masked, got %q", redacted.Models.Registry[1].APIKey)
	}
	if redacted.Adapters.Slack.SigningSecret == original.Adapters.Slack.SigningSecret {
		t.Fatal("slack signing secret should be masked")
	}
	if redacted.Adapters.Slack.BotToken == original.Adapters.Slack.BotToken {
		t.Fatal("slack bot token should be masked")
	}
	if redacted.Adapters.Telegram.BotToken == original.Adapters.Telegram.BotToken {
		t.Fatal("telegram bot token should be masked")
	}

	// Ensure original struct is not mutated.
	if original.Models.Registry[0].APIKey != "sk-secret-123456" {
		t.Fatal("original config must not be modified")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "" {
		t.Fatalf("empty secret: got %q", got)
	}
	if got := maskSecret("abc"); got != "****" {
		t.Fatalf("short secret: got %q", got)
	}

	got := maskSecret("abcdef")
	if len(got) != len("abcdef") {
		t.Fatalf("masked secret length mismatch: got %d", len(got))
	}
	if got[:2] != "ab" || got[len(got)-2:] != "ef" {
		t.Fatalf("masked secret should preserve prefix/suffix: got %q", got)
	}
}
