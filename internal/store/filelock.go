package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/treadwise/agent/internal/config"
	twErrors "github.com/treadwise/agent/internal/errors"

	"github.com/gofrs/flock"
)

// FileLock is an advisory lock on a sidecar "<journal>.lock" file. It keeps
// appends from separate processes (serve and chat sharing a data dir) from
// interleaving.
type FileLock struct {
	fileLock *flock.Flock
	lockPath string
	cfg      FileLockConfig
}

type FileLockConfig struct {
	LockTimeout time.Duration
	LockRetry   time.Duration
}

func DefaultFileLockConfig() FileLockConfig {
	lockTimeout, _ := config.DurationOrDefault(config.DefaultStoreLockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(config.DefaultStoreLockRetry, config.DefaultStoreLockRetry)

	return FileLockConfig{
		LockTimeout: lockTimeout,
		LockRetry:   lockRetry,
	}
}

func NewFileLock(lockPath string, cfg FileLockConfig) *FileLock {
	defaults := DefaultFileLockConfig()
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaults.LockTimeout
	}
	if cfg.LockRetry <= 0 {
		cfg.LockRetry = defaults.LockRetry
	}

	return &FileLock{
		fileLock: flock.New(lockPath),
		lockPath: lockPath,
		cfg:      cfg,
	}
}

// Lock blocks until the lock is held, ctx is done, or LockTimeout elapses.
// A timeout is reported as ErrConflict.
func (fl *FileLock) Lock(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, fl.cfg.LockTimeout)
	defer cancel()

	locked, err := fl.fileLock.TryLockContext(lockCtx, fl.cfg.LockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("lock acquisition cancelled: %w", ctx.Err())
		}
		if lockCtx.Err() != nil {
			return fmt.Errorf("%s is locked by another process (timeout after %v): %w", fl.lockPath, fl.cfg.LockTimeout, twErrors.ErrConflict)
		}
		return fmt.Errorf("failed to attempt lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%s is locked by another process: %w", fl.lockPath, twErrors.ErrConflict)
	}
	return nil
}

func (fl *FileLock) Unlock() {
	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release file lock", "path", fl.lockPath, "error", err)
	}
}

func (fl *FileLock) IsLocked() bool {
	return fl.fileLock.Locked()
}

func (fl *FileLock) Path() string {
	return fl.lockPath
}
