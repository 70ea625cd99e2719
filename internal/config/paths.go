package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is where `treadwise config init` writes and Load looks
// when --config is not given.
func DefaultConfigPath() (string, error) {
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".treadwise", "config.yaml"), nil
}

// ExpandPath resolves environment variables and "~/" home shortcuts.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := resolveHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if expanded == "~" {
			expanded = home
		} else {
			expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~/"))
		}
	}

	return filepath.Clean(expanded), nil
}

func resolveHomeDir() (string, error) {
	for _, candidate := range homeCandidates() {
		trimmed := strings.TrimSpace(candidate)
		if trimmed != "" && trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
			return trimmed, nil
		}
	}
	return "", fmt.Errorf("home directory is not resolvable")
}

func homeCandidates() []string {
	var out []string
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, home)
	}
	if current, err := user.Current(); err == nil {
		out = append(out, current.HomeDir)
	}
	return append(out, os.Getenv("HOME"))
}
