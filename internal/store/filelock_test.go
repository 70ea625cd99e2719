package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	twErrors "github.com/treadwise/agent/internal/errors"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLockLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customer_leads.jsonl.lock")
	lock := NewFileLock(path, FileLockConfig{})

	require.NoError(t, lock.Lock(context.Background()))
	assert.True(t, lock.IsLocked())

	lock.Unlock()
	assert.False(t, lock.IsLocked())

	// Reusable after release
	require.NoError(t, lock.Lock(context.Background()))
	lock.Unlock()
}

func TestFileLockTimeoutIsConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.lock")
	holder := flock.New(path)
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer holder.Unlock()

	lock := NewFileLock(path, FileLockConfig{LockTimeout: 50 * time.Millisecond, LockRetry: 5 * time.Millisecond})
	start := time.Now()
	err = lock.Lock(context.Background())
	assert.ErrorIs(t, err, twErrors.ErrConflict)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFileLockCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.lock")
	holder := flock.New(path)
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer holder.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lock := NewFileLock(path, FileLockConfig{LockTimeout: time.Second, LockRetry: 5 * time.Millisecond})
	err = lock.Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultFileLockConfig(t *testing.T) {
	cfg := DefaultFileLockConfig()
	assert.Equal(t, 30*time.Second, cfg.LockTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.LockRetry)
}
