package store

import (
	"path/filepath"
	"strings"

	"github.com/treadwise/agent/internal/config"
)

// ResolveDataDir resolves the configured data directory.
// If empty, it falls back to ~/.treadwise/data.
func ResolveDataDir(dataDir string) (string, error) {
	if trimmed := strings.TrimSpace(dataDir); trimmed != "" {
		return config.ExpandPath(trimmed)
	}
	return config.ExpandPath(filepath.Join("~", ".treadwise", "data"))
}

// JournalPath places relative journal names inside dataDir. Absolute names
// are used as-is.
func JournalPath(dataDir, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(dataDir, name)
}

// LockPath returns the sidecar lock file guarding a journal.
func LockPath(journalPath string) string {
	return journalPath + ".lock"
}
