package rings_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/aurarings/internal/sqlite"
	"github.com/mesh-intelligence/aurarings/pkg/rings"
	"github.com/mesh-intelligence/aurarings/pkg/types"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = b.Detach() })

	doc, err := b.CreateDocument(ctx, "Goblin", "")
	require.NoError(t, err)

	signal := rings.NewSignal(types.ChangeEvent)
	fires := 0
	signal.Subscribe(func() { fires++ })

	store := rings.NewStore(
		rings.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		rings.WithSignal(signal),
	)
	assert.Same(t, signal, store.Signal())

	r, err := store.Create(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, r.ID)

	r.Radius = 40
	_, err = store.Set(ctx, doc, r, rings.WithDirect())
	require.NoError(t, err)
	assert.Equal(t, 2, fires)

	got, err := store.Get(ctx, doc, 1, types.FieldID)
	require.NoError(t, err)
	assert.Equal(t, float64(40), got.Radius)
}

func TestDefaultSignal(t *testing.T) {
	store := rings.NewStore()
	assert.Same(t, rings.DefaultSignal, store.Signal())
	assert.Equal(t, types.ChangeEvent, rings.DefaultSignal.Name())
}
