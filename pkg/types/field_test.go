package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "int and numeric string", a: 5, b: "5", want: true},
		{name: "int and float", a: 5, b: 5.0, want: true},
		{name: "int and json number", a: 7, b: json.Number("7"), want: true},
		{name: "padded numeric string", a: 5, b: " 5 ", want: true},
		{name: "different numbers", a: 5, b: 6, want: false},
		{name: "strings compare exactly", a: "North Torch", b: "North Torch", want: true},
		{name: "strings differ by case", a: "north", b: "North", want: false},
		{name: "non numeric string and number", a: "abc", b: 0, want: false},
		{name: "bool and one", a: true, b: 1, want: true},
		{name: "bool and zero", a: false, b: "0", want: true},
		{name: "blank string is zero", a: 0.0, b: "", want: true},
		{name: "nil against nil", a: nil, b: nil, want: true},
		{name: "nil against zero", a: nil, b: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooseEqual(tt.a, tt.b))
			assert.Equal(t, tt.want, LooseEqual(tt.b, tt.a))
		})
	}
}

func TestRingMatches(t *testing.T) {
	r := DefaultRing()
	r.ID = 5
	r.Name = "X"

	assert.True(t, r.Matches(FieldID, "5"))
	assert.True(t, r.Matches(FieldID, 5))
	assert.True(t, r.Matches(FieldName, "X"))
	assert.True(t, r.Matches(FieldRespectFog, true))
	assert.False(t, r.Matches(FieldName, "Y"))
	assert.False(t, r.Matches(Field("colour"), "#fff"))
}

func TestParseField(t *testing.T) {
	f, err := ParseField("stroke_colour")
	require.NoError(t, err)
	assert.Equal(t, FieldStrokeColour, f)

	_, err = ParseField("colour")
	assert.ErrorIs(t, err, ErrUnknownField)

	assert.Len(t, Fields(), 15)
}

func TestRingSetField(t *testing.T) {
	t.Run("numeric string is coerced", func(t *testing.T) {
		r := DefaultRing()
		require.NoError(t, r.SetField(FieldRadius, "12.5"))
		assert.Equal(t, 12.5, r.Radius)
	})

	t.Run("boolean string is coerced", func(t *testing.T) {
		r := DefaultRing()
		require.NoError(t, r.SetField(FieldHide, "true"))
		assert.True(t, r.Hide)
	})

	t.Run("string field rejects number", func(t *testing.T) {
		r := DefaultRing()
		assert.ErrorIs(t, r.SetField(FieldName, 3), ErrInvalidValue)
	})

	t.Run("number field rejects garbage", func(t *testing.T) {
		r := DefaultRing()
		assert.ErrorIs(t, r.SetField(FieldAngle, "wide"), ErrInvalidValue)
	})

	t.Run("id is read-only", func(t *testing.T) {
		r := DefaultRing()
		assert.ErrorIs(t, r.SetField(FieldID, 4), ErrInvalidValue)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := DefaultRing()
		assert.ErrorIs(t, r.SetField(Field("weight"), 4), ErrUnknownField)
	})
}
