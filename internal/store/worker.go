package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	stdatomic "sync/atomic"
	"time"

	"github.com/treadwise/agent/internal/config"
	twErrors "github.com/treadwise/agent/internal/errors"
)

// Worker owns every append-only JSONL journal in the data directory. All
// writes from concurrent chat turns are funnelled through one goroutine, and
// each append also takes the journal's file lock so other processes sharing
// the directory cannot interleave lines.
type Worker struct {
	dataDir        string
	inbox          chan Request
	quit           chan struct{}
	stopped        chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	locks          map[string]*FileLock
	lockCfg        FileLockConfig
	running        stdatomic.Bool
	rotateMaxBytes int64
}

type RuntimeConfig struct {
	LockTimeout    time.Duration
	LockRetry      time.Duration
	InboxSize      int
	RotateMaxBytes int64 // 0 disables rotation
}

func NewWorker(dataDir string, runtimeCfg RuntimeConfig) (*Worker, error) {
	basePath, err := ResolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dir %s: %w", basePath, err)
	}

	if runtimeCfg.InboxSize <= 0 {
		runtimeCfg.InboxSize = config.DefaultStoreInboxSize
	}
	if runtimeCfg.RotateMaxBytes < 0 {
		runtimeCfg.RotateMaxBytes = 0
	}

	return &Worker{
		dataDir:        basePath,
		inbox:          make(chan Request, runtimeCfg.InboxSize),
		quit:           make(chan struct{}),
		stopped:        make(chan struct{}),
		locks:          make(map[string]*FileLock),
		lockCfg:        FileLockConfig{LockTimeout: runtimeCfg.LockTimeout, LockRetry: runtimeCfg.LockRetry},
		rotateMaxBytes: runtimeCfg.RotateMaxBytes,
	}, nil
}

func (w *Worker) Start() {
	w.wg.Add(1)
	w.running.Store(true)
	go w.loop()
}

func (w *Worker) loop() {
	slog.Info("StoreWorker started", "data_dir", w.dataDir)
	defer func() {
		w.running.Store(false)
		close(w.stopped)
		w.wg.Done()
	}()

	for {
		select {
		case req := <-w.inbox:
			err := w.handle(req)
			if req.Result != nil {
				req.Result <- err
			}
		case <-w.quit:
			w.drain()
			slog.Info("StoreWorker stopping")
			return
		}
	}
}

// drain finishes appends that were queued before Stop so no accepted record is lost.
func (w *Worker) drain() {
	for {
		select {
		case req := <-w.inbox:
			err := w.handle(req)
			if req.Result != nil {
				req.Result <- err
			}
		default:
			return
		}
	}
}

func (w *Worker) handle(req Request) error {
	switch req.Op {
	case OpAppend:
		p, ok := req.Payload.(AppendPayload)
		if !ok {
			return fmt.Errorf("invalid payload for Append")
		}
		return w.appendLine(p.Journal, p.Line)
	case OpRead:
		p, ok := req.Payload.(ReadPayload)
		if !ok {
			return fmt.Errorf("invalid payload for Read")
		}
		lines, err := w.readLines(p.Journal, p.Limit)
		if req.Response != nil {
			req.Response <- lines
		}
		return err
	default:
		return fmt.Errorf("unknown operation: %d", req.Op)
	}
}

func (w *Worker) lockFor(path string) *FileLock {
	if l, ok := w.locks[path]; ok {
		return l
	}
	l := NewFileLock(LockPath(path), w.lockCfg)
	w.locks[path] = l
	return l
}

func (w *Worker) appendLine(journal string, line []byte) error {
	path := JournalPath(w.dataDir, journal)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	lock := w.lockFor(path)
	if err := lock.Lock(context.Background()); err != nil {
		return err
	}
	defer lock.Unlock()

	if err := w.checkAndRotate(path); err != nil {
		slog.Warn("Failed to rotate journal", "path", path, "error", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	// A single write keeps the record and its newline together under O_APPEND.
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := f.Write(buf); err != nil {
		return err
	}
	return f.Sync()
}

func (w *Worker) readLines(journal string, limit int) ([]string, error) {
	path := JournalPath(w.dataDir, journal)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		// Return last N lines
		return lines[len(lines)-limit:], nil
	}
	return lines, nil
}

// rotateTimeLayout names rotated journals <file>.<YYYYMMDDhhmmss.micro>.bak.
const rotateTimeLayout = "20060102150405.000000"

func (w *Worker) checkAndRotate(path string) error {
	if w.rotateMaxBytes <= 0 {
		return nil
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if info.Size() < w.rotateMaxBytes {
		return nil
	}

	slog.Info("Rotating journal", "path", path, "size", info.Size())

	// Microseconds keep two rotations within one second apart.
	timestamp := time.Now().Format(rotateTimeLayout)
	backupPath := fmt.Sprintf("%s.%s.bak", path, timestamp)

	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

func (w *Worker) submit(ctx context.Context, req Request) error {
	if !w.running.Load() {
		return twErrors.Internal("store worker is not running")
	}

	select {
	case w.inbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return twErrors.Internal("store worker stopped")
	}

	select {
	case err := <-req.Result:
		return err
	case <-w.stopped:
		// Queued requests are answered during drain; anything later is dropped.
		select {
		case err := <-req.Result:
			return err
		default:
			return twErrors.Internal("store worker stopped")
		}
	}
}

// Public API for other components

// Append writes one JSON record as a line of the named journal.
func (w *Worker) Append(ctx context.Context, journal string, record interface{}) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return w.AppendLine(ctx, journal, line)
}

func (w *Worker) AppendLine(ctx context.Context, journal string, line []byte) error {
	if bytes.ContainsAny(line, "\n\r") {
		return twErrors.InvalidInput("journal line must not contain newlines")
	}
	return w.submit(ctx, Request{
		Op:      OpAppend,
		Payload: AppendPayload{Journal: journal, Line: line},
		Result:  make(chan error, 1),
	})
}

// Read returns the last limit lines of a journal (all when limit is 0).
func (w *Worker) Read(ctx context.Context, journal string, limit int) ([]string, error) {
	resp := make(chan interface{}, 1)
	err := w.submit(ctx, Request{
		Op:       OpRead,
		Payload:  ReadPayload{Journal: journal, Limit: limit},
		Result:   make(chan error, 1),
		Response: resp,
	})
	if err != nil {
		return nil, err
	}
	return (<-resp).([]string), nil
}

func (w *Worker) DataDir() string {
	return w.dataDir
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		slog.Info("StoreWorker Stop called", "data_dir", w.dataDir)
		close(w.quit)
		w.wg.Wait()
	})
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}
