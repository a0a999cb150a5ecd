package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Field names a Ring attribute for lookups and single-value updates.
// The values match the JSON field names of the stored record.
type Field string

// Ring fields.
const (
	FieldID            Field = "id"
	FieldName          Field = "name"
	FieldAngle         Field = "angle"
	FieldDirection     Field = "direction"
	FieldRadius        Field = "radius"
	FieldFillColour    Field = "fill_colour"
	FieldFillOpacity   Field = "fill_opacity"
	FieldHide          Field = "hide"
	FieldRespectFog    Field = "respect_fog"
	FieldStrokeClose   Field = "stroke_close"
	FieldStrokeColour  Field = "stroke_colour"
	FieldStrokeOpacity Field = "stroke_opacity"
	FieldStrokeWeight  Field = "stroke_weight"
	FieldUseGridShapes Field = "use_grid_shapes"
	FieldVisibility    Field = "visibility"
)

// fieldAccess reads and writes one Ring attribute.
// A nil set marks a field that cannot be changed through SetField.
type fieldAccess struct {
	get func(r *Ring) any
	set func(r *Ring, v any) error
}

func numberField(p func(r *Ring) *float64) fieldAccess {
	return fieldAccess{
		get: func(r *Ring) any { return *p(r) },
		set: func(r *Ring, v any) error {
			n, ok := toNumber(v)
			if !ok || math.IsNaN(n) {
				return fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
			}
			*p(r) = n
			return nil
		},
	}
}

func stringField(p func(r *Ring) *string) fieldAccess {
	return fieldAccess{
		get: func(r *Ring) any { return *p(r) },
		set: func(r *Ring, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %v is not a string", ErrInvalidValue, v)
			}
			*p(r) = s
			return nil
		},
	}
}

func boolField(p func(r *Ring) *bool) fieldAccess {
	return fieldAccess{
		get: func(r *Ring) any { return *p(r) },
		set: func(r *Ring, v any) error {
			switch b := v.(type) {
			case bool:
				*p(r) = b
			case string:
				parsed, err := strconv.ParseBool(strings.TrimSpace(b))
				if err != nil {
					return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, b)
				}
				*p(r) = parsed
			default:
				return fmt.Errorf("%w: %v is not a boolean", ErrInvalidValue, v)
			}
			return nil
		},
	}
}

// ringFields is the dispatch table behind Ring.Field and Ring.SetField.
var ringFields = map[Field]fieldAccess{
	FieldID:            {get: func(r *Ring) any { return r.ID }},
	FieldName:          stringField(func(r *Ring) *string { return &r.Name }),
	FieldAngle:         numberField(func(r *Ring) *float64 { return &r.Angle }),
	FieldDirection:     numberField(func(r *Ring) *float64 { return &r.Direction }),
	FieldRadius:        numberField(func(r *Ring) *float64 { return &r.Radius }),
	FieldFillColour:    stringField(func(r *Ring) *string { return &r.FillColour }),
	FieldFillOpacity:   numberField(func(r *Ring) *float64 { return &r.FillOpacity }),
	FieldHide:          boolField(func(r *Ring) *bool { return &r.Hide }),
	FieldRespectFog:    boolField(func(r *Ring) *bool { return &r.RespectFog }),
	FieldStrokeClose:   boolField(func(r *Ring) *bool { return &r.StrokeClose }),
	FieldStrokeColour:  stringField(func(r *Ring) *string { return &r.StrokeColour }),
	FieldStrokeOpacity: numberField(func(r *Ring) *float64 { return &r.StrokeOpacity }),
	FieldStrokeWeight:  numberField(func(r *Ring) *float64 { return &r.StrokeWeight }),
	FieldUseGridShapes: boolField(func(r *Ring) *bool { return &r.UseGridShapes }),
	FieldVisibility:    stringField(func(r *Ring) *string { return &r.Visibility }),
}

// Fields returns every known field name in ascending order.
func Fields() []Field {
	out := make([]Field, 0, len(ringFields))
	for f := range ringFields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseField converts a field name into a Field.
// Returns ErrUnknownField for names outside the schema.
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	if _, ok := ringFields[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

// Field returns the value of the named field.
func (r Ring) Field(f Field) (any, error) {
	acc, ok := ringFields[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return acc.get(&r), nil
}

// SetField replaces the value of the named field. Numeric fields accept any
// number or numeric string, boolean fields accept booleans or "true"/"false".
// The id cannot be changed this way since it determines the container key.
func (r *Ring) SetField(f Field, value any) error {
	acc, ok := ringFields[f]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	if acc.set == nil {
		return fmt.Errorf("%w: %s is read-only", ErrInvalidValue, f)
	}
	return acc.set(r, value)
}

// Matches reports whether the named field loosely equals term.
// Loose equality compares numbers, numeric strings and booleans by numeric
// value, so the term "5" matches an id of 5.
func (r Ring) Matches(f Field, term any) bool {
	v, err := r.Field(f)
	if err != nil {
		return false
	}
	return LooseEqual(v, term)
}

// LooseEqual compares two scalar values the way a loosely typed host does:
// strings compare as strings with each other, otherwise both sides are
// converted to numbers (booleans as 0/1, blank strings as 0).
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as, aString := a.(string)
	bs, bString := b.(string)
	if aString && bString {
		return as == bs
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if !aok || !bok || math.IsNaN(an) || math.IsNaN(bn) {
		return false
	}
	return an == bn
}

// toNumber converts numbers, booleans and numeric strings to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
