package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	twErrors "github.com/treadwise/agent/internal/errors"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWorker(t *testing.T, cfg RuntimeConfig) *Worker {
	t.Helper()
	w, err := NewWorker(t.TempDir(), cfg)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestAppendWritesOneLinePerRecord(t *testing.T) {
	w := startWorker(t, RuntimeConfig{})
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, "feedback_log.jsonl", map[string]string{"question": "first"}))
	require.NoError(t, w.Append(ctx, "feedback_log.jsonl", map[string]string{"question": "second"}))

	data, err := os.ReadFile(filepath.Join(w.DataDir(), "feedback_log.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"question":"first"}`, lines[0])
	assert.JSONEq(t, `{"question":"second"}`, lines[1])
}

func TestConcurrentAppendsNeverInterleave(t *testing.T) {
	w := startWorker(t, RuntimeConfig{InboxSize: 4})
	ctx := context.Background()

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := map[string]string{
				"name":    fmt.Sprintf("customer-%d", i),
				"message": strings.Repeat("x", 2048),
			}
			assert.NoError(t, w.Append(ctx, "customer_leads.jsonl", record))
		}(i)
	}
	wg.Wait()

	lines, err := w.Read(ctx, "customer_leads.jsonl", 0)
	require.NoError(t, err)
	require.Len(t, lines, writers)

	seen := map[string]bool{}
	for _, line := range lines {
		var rec map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &rec), "line must be a complete JSON object")
		seen[rec["name"]] = true
	}
	assert.Len(t, seen, writers)
}

func TestAppendRejectsEmbeddedNewlines(t *testing.T) {
	w := startWorker(t, RuntimeConfig{})

	err := w.AppendLine(context.Background(), "x.jsonl", []byte("{\"a\":1}\n{\"b\":2}"))
	assert.ErrorIs(t, err, twErrors.ErrInvalidInput)
}

func TestAppendWaitsForForeignLockAndTimesOut(t *testing.T) {
	w := startWorker(t, RuntimeConfig{LockTimeout: 100 * time.Millisecond, LockRetry: 10 * time.Millisecond})

	journal := filepath.Join(w.DataDir(), "customer_leads.jsonl")
	other := flock.New(LockPath(journal))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	err = w.Append(context.Background(), "customer_leads.jsonl", map[string]string{"name": "Ann"})
	assert.ErrorIs(t, err, twErrors.ErrConflict)

	require.NoError(t, other.Unlock())
	assert.NoError(t, w.Append(context.Background(), "customer_leads.jsonl", map[string]string{"name": "Ann"}))
}

func TestReadLimitReturnsNewestLines(t *testing.T) {
	w := startWorker(t, RuntimeConfig{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(ctx, "feedback_log.jsonl", map[string]int{"n": i}))
	}

	lines, err := w.Read(ctx, "feedback_log.jsonl", 2)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"n":3}`, lines[0])
	assert.JSONEq(t, `{"n":4}`, lines[1])

	missing, err := w.Read(ctx, "nothing.jsonl", 0)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestJournalRotation(t *testing.T) {
	w := startWorker(t, RuntimeConfig{RotateMaxBytes: 1024})
	ctx := context.Background()

	payload := map[string]string{"message": strings.Repeat("y", 600)}
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Append(ctx, "customer_leads.jsonl", payload))
	}

	path := filepath.Join(w.DataDir(), "customer_leads.jsonl")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(2048))

	matches, err := filepath.Glob(path + ".*.bak")
	require.NoError(t, err)
	require.Len(t, matches, 1, "backup file not found")
	assert.Regexp(t, `customer_leads\.jsonl\.\d{14}\.\d{6}\.bak$`, matches[0])
}

func TestAppendAfterStopFails(t *testing.T) {
	w, err := NewWorker(t.TempDir(), RuntimeConfig{})
	require.NoError(t, err)
	w.Start()
	w.Stop()
	w.Stop()

	assert.False(t, w.IsRunning())
	assert.Error(t, w.Append(context.Background(), "x.jsonl", map[string]int{"n": 1}))
}

func TestAppendHonoursCancelledContext(t *testing.T) {
	w, err := NewWorker(t.TempDir(), RuntimeConfig{InboxSize: 1})
	require.NoError(t, err)
	// Running flag set without a consumer so the inbox fills up.
	w.running.Store(true)
	w.inbox <- Request{Op: OpAppend}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = w.Append(ctx, "x.jsonl", map[string]int{"n": 1})
	assert.ErrorIs(t, err, context.Canceled)
}
