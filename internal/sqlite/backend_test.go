package sqlite

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

func TestBackend_Attach(t *testing.T) {
	b, dir := setupBackend(t)

	_, err := os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err, "database file should exist")
	for _, name := range jsonlFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Zero(t, info.Size(), "%s should start empty", name)
	}

	err = b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
	assert.Equal(t, dir, b.DataDir())
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config types.Config
		want   error
	}{
		{name: "empty backend", config: types.Config{}, want: types.ErrBackendEmpty},
		{name: "unknown backend", config: types.Config{Backend: "postgres"}, want: types.ErrBackendUnknown},
		{name: "unknown strategy", config: types.Config{Backend: types.BackendSQLite, SyncStrategy: "later"}, want: types.ErrSyncStrategyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.DataDir = t.TempDir()
			err := NewBackend().Attach(tt.config)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t)
	doc := newDocument(t, b, "Goblin")

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach should be idempotent")

	_, err := b.ListDocuments(ctx)
	assert.ErrorIs(t, err, types.ErrBackendDetached)
	_, err = b.Document(ctx, doc.ID())
	assert.ErrorIs(t, err, types.ErrBackendDetached)
	assert.ErrorIs(t, doc.SetFlag(ctx, "ns", "k", 1), types.ErrBackendDetached)
	_, _, err = doc.GetFlag(ctx, "ns", "k")
	assert.ErrorIs(t, err, types.ErrBackendDetached)
	assert.Nil(t, doc.Flags("ns"))
}

func TestBackend_Documents(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t)

	goblin, err := b.CreateDocument(ctx, "  Goblin ", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Goblin", goblin.Name())
	assert.Len(t, goblin.ID(), 36)
	assert.Equal(t, "alice", goblin.Info().Owner)

	archer := newDocument(t, b, "Archer")

	docs, err := b.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Archer", docs[0].Name)
	assert.Equal(t, "Goblin", docs[1].Name)

	got, err := b.Document(ctx, archer.ID())
	require.NoError(t, err)
	assert.Equal(t, archer.Info(), got.Info())

	byName, err := b.FindDocument(ctx, "Goblin")
	require.NoError(t, err)
	assert.Equal(t, goblin.ID(), byName.ID())

	_, err = b.CreateDocument(ctx, " ", "")
	assert.ErrorIs(t, err, types.ErrInvalidName)
	_, err = b.Document(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.Document(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrDocumentNotFound)
	_, err = b.FindDocument(ctx, "Dragon")
	assert.ErrorIs(t, err, types.ErrDocumentNotFound)
}

func TestBackend_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	b, dir := setupBackend(t)
	doc := newDocument(t, b, "Goblin")
	keep := newDocument(t, b, "Archer")
	require.NoError(t, doc.SetFlag(ctx, "ns", "k", "v"))
	require.NoError(t, keep.SetFlag(ctx, "ns", "k", "w"))

	require.NoError(t, b.DeleteDocument(ctx, doc.ID()))
	assert.ErrorIs(t, b.DeleteDocument(ctx, doc.ID()), types.ErrDocumentNotFound)

	_, err := b.Document(ctx, doc.ID())
	assert.ErrorIs(t, err, types.ErrDocumentNotFound)
	assert.ErrorIs(t, doc.SetFlag(ctx, "ns", "k", "again"), types.ErrDocumentNotFound)

	assert.Len(t, readLines(t, dir, documentsFile), 1)
	assert.Len(t, readLines(t, dir, flagsFile), 1)
}

func TestBackend_PersistenceAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	b, dir := setupBackend(t)
	doc := newDocument(t, b, "Goblin")
	require.NoError(t, doc.SetFlag(ctx, "ns", "first", map[string]any{"a": 1}))
	require.NoError(t, doc.SetFlag(ctx, "ns", "second", []any{"x", true}))
	require.NoError(t, doc.SetFlag(ctx, "ns", "third", "plain"))

	b = reattach(t, b, dir)

	reopened, err := b.Document(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, doc.Info(), reopened.Info())
	assert.Equal(t, []types.Flag{
		{Key: "first", Value: map[string]any{"a": float64(1)}},
		{Key: "second", Value: []any{"x", true}},
		{Key: "third", Value: "plain"},
	}, reopened.Flags("ns"))
}

func TestBackend_SyncOnClose(t *testing.T) {
	ctx := context.Background()
	b, dir := setupBackend(t, func(c *types.Config) { c.SyncStrategy = types.SyncOnClose })
	doc := newDocument(t, b, "Goblin")
	require.NoError(t, doc.SetFlag(ctx, "ns", "k", 1))

	assert.Empty(t, readLines(t, dir, documentsFile))
	assert.Empty(t, readLines(t, dir, flagsFile))
	assert.Equal(t, 2, b.PendingWrites())

	require.NoError(t, b.Detach())
	assert.Len(t, readLines(t, dir, documentsFile), 1)
	assert.Len(t, readLines(t, dir, flagsFile), 1)
	assert.Zero(t, b.PendingWrites())
}

func TestBackend_SyncBatchSize(t *testing.T) {
	ctx := context.Background()
	b, dir := setupBackend(t, func(c *types.Config) {
		c.SyncStrategy = types.SyncBatch
		c.BatchSize = 3
		c.BatchInterval = 3600
	})
	doc := newDocument(t, b, "Goblin")
	require.NoError(t, doc.SetFlag(ctx, "ns", "a", 1))
	assert.Empty(t, readLines(t, dir, flagsFile))

	require.NoError(t, doc.SetFlag(ctx, "ns", "b", 2))
	assert.Len(t, readLines(t, dir, documentsFile), 1)
	assert.Len(t, readLines(t, dir, flagsFile), 2)
	assert.Zero(t, b.PendingWrites())
}

func TestBackend_SyncBatchFlushFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	b, dir := setupBackend(t, func(c *types.Config) {
		c.SyncStrategy = types.SyncBatch
		c.BatchSize = 2
		c.BatchInterval = 3600
	})
	doc := newDocument(t, b, "Goblin")

	// A non-empty directory in place of the flags file makes the rename fail.
	flags := filepath.Join(dir, flagsFile)
	require.NoError(t, os.Remove(flags))
	require.NoError(t, os.MkdirAll(filepath.Join(flags, "blocker"), 0o755))

	require.NoError(t, doc.SetFlag(ctx, "ns", "a", 1))
	assert.Contains(t, logs.String(), "batch flush failed")
	assert.Contains(t, logs.String(), flagsFile)
	assert.NotZero(t, b.PendingWrites())
}
