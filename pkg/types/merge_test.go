package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFlagValue(t *testing.T) {
	t.Run("objects keep keys missing from the update", func(t *testing.T) {
		existing := map[string]any{
			"ring1": map[string]any{"id": 1.0, "name": "A"},
			"ring2": map[string]any{"id": 2.0, "name": "B"},
		}
		incoming := map[string]any{
			"ring2": map[string]any{"name": "B2"},
		}

		got := MergeFlagValue(existing, incoming).(map[string]any)
		assert.Len(t, got, 2)
		assert.Equal(t, map[string]any{"id": 2.0, "name": "B2"}, got["ring2"])
		assert.Equal(t, map[string]any{"id": 1.0, "name": "A"}, got["ring1"])

		// Inputs are untouched.
		assert.Equal(t, "B", existing["ring2"].(map[string]any)["name"])
	})

	t.Run("arrays replace wholesale", func(t *testing.T) {
		got := MergeFlagValue([]any{1.0, 2.0}, []any{3.0})
		assert.Equal(t, []any{3.0}, got)
	})

	t.Run("object replaces array", func(t *testing.T) {
		got := MergeFlagValue([]any{1.0}, map[string]any{"a": 1.0})
		assert.Equal(t, map[string]any{"a": 1.0}, got)
	})

	t.Run("scalar over nothing", func(t *testing.T) {
		assert.Equal(t, 3.0, MergeFlagValue(nil, 3.0))
	})
}

func TestNormalizeFlagValue(t *testing.T) {
	r := DefaultRing()
	r.ID = 3

	got, err := NormalizeFlagValue(NewContainer(r))
	require.NoError(t, err)

	m, ok := got.(map[string]any)
	require.True(t, ok)
	ring, ok := m["ring3"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3.0, ring["id"])
	assert.Equal(t, DefaultRingName, ring["name"])

	_, err = NormalizeFlagValue(func() {})
	assert.Error(t, err)
}
