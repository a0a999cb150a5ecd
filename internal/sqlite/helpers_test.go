package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// setupBackend attaches a backend to a fresh temp dir and detaches it when
// the test ends.
func setupBackend(t *testing.T, opts ...func(*types.Config)) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}
	for _, opt := range opts {
		opt(&cfg)
	}
	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { _ = b.Detach() })
	return b, dir
}

// reattach detaches b and attaches a new backend to the same directory.
func reattach(t *testing.T, b *Backend, dir string) *Backend {
	t.Helper()
	require.NoError(t, b.Detach())
	next := NewBackend()
	require.NoError(t, next.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { _ = next.Detach() })
	return next
}

// readLines returns the non-empty lines of a data file.
func readLines(t *testing.T, dir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newDocument(t *testing.T, b *Backend, name string) *Document {
	t.Helper()
	doc, err := b.CreateDocument(context.Background(), name, "")
	require.NoError(t, err)
	return doc
}
