// Package sqlite implements the flag host store: documents (tokens) with
// namespaced key/value flags. JSONL files in the data directory are the
// source of truth; SQLite is the query engine, rebuilt from the files on
// every Attach.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// dbFile is the SQLite file created inside the data directory.
const dbFile = "aurarings.db"

// Backend owns the SQLite connection and the JSONL files behind it.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	now      func() time.Time

	// Sync strategy state.
	syncStrategy  string         // effective sync strategy: immediate, on_close, batch
	batchSize     int            // number of writes before batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // queue of writes pending JSONL persist
	batchTimer    *time.Timer    // timer for interval-based batch flush
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer
}

// pendingWrite is a deferred JSONL rewrite, used by the on_close and batch
// strategies.
type pendingWrite struct {
	file      string       // JSONL file name
	operation string       // operation that queued the write
	persist   func() error // rewrites the file from SQLite
}

// NewBackend returns a detached backend. Call Attach before use.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach opens the backend in config.DataDir. It creates the directory and
// empty JSONL files when missing, builds a fresh SQLite schema, and loads
// the JSONL records into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	config.DataDir = dataDir

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection keeps the single-writer model of the flag tables.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.syncStrategy = config.GetSyncStrategy()
	b.batchSize = config.GetBatchSize()
	b.batchInterval = time.Duration(config.GetBatchInterval()) * time.Second
	b.pendingWrites = nil
	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}
	return nil
}

// Detach flushes pending writes and closes the database. After Detach every
// operation returns ErrBackendDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// DataDir returns the directory the backend is attached to.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// generateUUID returns a new UUID v7 string for document IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// persist rewrites file now or queues the rewrite, depending on the sync
// strategy. The caller must hold b.mu.
func (b *Backend) persist(file, operation string, fn func() error) error {
	if b.shouldPersistImmediately() {
		if err := fn(); err != nil {
			return fmt.Errorf("persisting %s: %w", file, err)
		}
		return nil
	}
	b.queueWrite(file, operation, fn)
	return nil
}

// shouldPersistImmediately reports whether JSONL writes happen on every
// mutation.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// queueWrite adds a write to the pending queue. Under the batch strategy the
// queue is flushed once it reaches the batch size.
// The caller must hold b.mu.
func (b *Backend) queueWrite(file, operation string, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{
		file:      file,
		operation: operation,
		persist:   persist,
	})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		if err := b.flushPendingWritesBatchLocked(); err != nil {
			slog.Warn("batch flush failed", "data_dir", b.config.DataDir, "pending", len(b.pendingWrites), "error", err)
		}
	}
}

// PendingWrites returns the number of queued JSONL writes.
func (b *Backend) PendingWrites() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

// flushPendingWritesLocked flushes all pending writes to JSONL files.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes the queue. Each file is rewritten
// from SQLite, so only the last queued write per file runs.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}

	last := make(map[string]int, 2)
	for i, pw := range b.pendingWrites {
		last[pw.file] = i
	}
	for i, pw := range b.pendingWrites {
		if last[pw.file] != i {
			continue
		}
		if err := pw.persist(); err != nil {
			// Keep the queue; the next flush or Attach reconciles.
			return fmt.Errorf("flush %s %s: %w", pw.file, pw.operation, err)
		}
	}

	b.pendingWrites = nil
	return nil
}

// startBatchTimer starts the periodic flush for the batch strategy.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		if err := b.flushPendingWritesLocked(); err != nil {
			slog.Warn("timed flush failed", "data_dir", b.config.DataDir, "error", err)
		}

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
