package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Models   ModelsConfig   `koanf:"models"`
	Business BusinessConfig `koanf:"business"`
	Chat     ChatConfig     `koanf:"chat"`
	Store    StoreConfig    `koanf:"store"`
	Session  SessionConfig  `koanf:"session"`
	Adapters AdaptersConfig `koanf:"adapters"`
	Daemon   DaemonConfig   `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

// ModelRegistry describes one callable model. SiteURL and SiteName are only
// sent by the openrouter provider, as attribution headers.
type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
	SiteURL        string `koanf:"site_url"`
	SiteName       string `koanf:"site_name"`
}

type BusinessConfig struct {
	Name        string `koanf:"name"`
	ProfilePath string `koanf:"profile_path"`
}

type ChatConfig struct {
	Title       string   `koanf:"title"`
	Description string   `koanf:"description"`
	Examples    []string `koanf:"examples"`
}

type StoreConfig struct {
	DataDir        string `koanf:"data_dir"`
	LeadsFile      string `koanf:"leads_file"`
	FeedbackFile   string `koanf:"feedback_file"`
	LockTimeout    string `koanf:"lock_timeout"`
	LockRetry      string `koanf:"lock_retry"`
	InboxSize      int    `koanf:"inbox_size"`
	RotateMaxBytes int64  `koanf:"rotate_max_bytes"`
}

type SessionConfig struct {
	IdleTTL       string `koanf:"idle_ttl"`
	SweepSchedule string `koanf:"sweep_schedule"`
}

type AdaptersConfig struct {
	DedupeTTL string         `koanf:"dedupe_ttl"`
	Web       WebConfig      `koanf:"web"`
	Slack     SlackConfig    `koanf:"slack"`
	Telegram  TelegramConfig `koanf:"telegram"`
}

type WebConfig struct {
	Enabled bool `koanf:"enabled"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
}

const (
	DefaultServerPort                   = 7860
	DefaultServerLogLevel               = "info"
	DefaultServerReadTimeout            = "10s"
	DefaultServerWriteTimeout           = "120s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultModelDefault                 = "gpt-4o-mini"
	DefaultModelFallback                = ""
	DefaultModelMaxFallbackAttempts     = 2
	DefaultModelRequestTimeout          = "60s"
	DefaultOpenAIBaseURL                = "https://api.openai.com/v1"
	DefaultOllamaBaseURL                = "http://localhost:11434/v1"
	DefaultOllamaAPIKey                 = "ollama"
	DefaultOpenRouterBaseURL            = "https://openrouter.ai/api/v1"
	DefaultBusinessName                 = "TreadWise Tire Co."
	DefaultBusinessProfilePath          = "me/Business_summary.txt"
	DefaultChatTitle                    = "TreadWise Tire Co. - AI Assistant"
	DefaultChatDescription              = "Welcome to TreadWise! Ask me about our smart tire solutions, mobile installation, IoT monitoring, or sustainability programs. I'm here to help!"
	DefaultStoreLeadsFile               = "customer_leads.jsonl"
	DefaultStoreFeedbackFile            = "feedback_log.jsonl"
	DefaultStoreLockTimeout             = "30s"
	DefaultStoreLockRetry               = "100ms"
	DefaultStoreInboxSize               = 100
	DefaultStoreRotateMaxBytes          = 0
	DefaultSessionIdleTTL               = "2h"
	DefaultSessionSweepSchedule         = "@every 10m"
	DefaultAdaptersDedupeTTL            = "10m"
	DefaultWebEnabled                   = true
	DefaultSlackPort                    = 3000
	DefaultTelegramUpdateTimeout        = 60
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
)

// DefaultChatExamples are the starter prompts offered by the chat surfaces.
var DefaultChatExamples = []string{
	"What services does TreadWise offer?",
	"Tell me about the Smart Tread platform",
	"How does mobile installation work?",
	"What makes TreadWise different from other tire companies?",
	"Do you offer fleet management solutions?",
	"I'm interested in scheduling a tire installation",
}

func Load(cmd *cobra.Command) (*Config, error) {
	if err := LoadDotEnv(flagValue(cmd, "env-file")); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                  DefaultServerPort,
		"server.log_level":             DefaultServerLogLevel,
		"server.read_timeout":          DefaultServerReadTimeout,
		"server.write_timeout":         DefaultServerWriteTimeout,
		"server.idle_timeout":          DefaultServerIdleTimeout,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"models.default":               DefaultModelDefault,
		"models.fallback":              DefaultModelFallback,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "openai"},
			{Name: "claude-3-5-haiku-latest", Provider: "anthropic"},
			{Name: "gemini-2.0-flash", Provider: "gemini"},
			{Name: "openai/gpt-4o-mini", Provider: "openrouter"},
			{Name: "local-llama", Provider: "ollama", BaseURL: DefaultOllamaBaseURL},
		},
		"business.name":                    DefaultBusinessName,
		"business.profile_path":            DefaultBusinessProfilePath,
		"chat.title":                       DefaultChatTitle,
		"chat.description":                 DefaultChatDescription,
		"chat.examples":                    DefaultChatExamples,
		"store.data_dir":                   filepath.Join("~", ".treadwise", "data"),
		"store.leads_file":                 DefaultStoreLeadsFile,
		"store.feedback_file":              DefaultStoreFeedbackFile,
		"store.lock_timeout":               DefaultStoreLockTimeout,
		"store.lock_retry":                 DefaultStoreLockRetry,
		"store.inbox_size":                 DefaultStoreInboxSize,
		"store.rotate_max_bytes":           DefaultStoreRotateMaxBytes,
		"session.idle_ttl":                 DefaultSessionIdleTTL,
		"session.sweep_schedule":           DefaultSessionSweepSchedule,
		"adapters.dedupe_ttl":              DefaultAdaptersDedupeTTL,
		"adapters.web.enabled":             DefaultWebEnabled,
		"adapters.slack.port":              DefaultSlackPort,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"daemon.shutdown_timeout":          DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":     DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout":  DefaultDaemonStartupShutdownTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := flagValue(cmd, "config")
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath, err := DefaultConfigPath()
		if err == nil {
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables
	k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	injectProviderKeys(&cfg)

	return &cfg, nil
}

// EnvPrefix scopes environment overrides, e.g. TREADWISE_SERVER_PORT.
const EnvPrefix = "TREADWISE_"

// providerKeyEnv maps provider types to the conventional API key variables.
var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// Post-Process: Inject standard Env Vars if missing
func injectProviderKeys(cfg *Config) {
	for provider, envName := range providerKeyEnv {
		key := os.Getenv(envName)
		if key == "" {
			continue
		}
		for i, m := range cfg.Models.Registry {
			if m.Provider == provider && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
}

func flagValue(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(flag.Value.String())
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	dataDir, err := expandConfiguredPath(cfg.Store.DataDir)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}

	profilePath, err := expandConfiguredPath(cfg.Business.ProfilePath)
	if err != nil {
		return err
	}
	if profilePath != "" {
		cfg.Business.ProfilePath = profilePath
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := ExpandPath(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
