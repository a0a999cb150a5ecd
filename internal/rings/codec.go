package rings

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// containerShape classifies the value stored under the rings key.
type containerShape int

const (
	shapeAbsent containerShape = iota // no rings key
	shapeList                         // legacy V2 ordered list
	shapeMap                          // current id-keyed mapping
	shapeOther                        // anything else
)

func (s containerShape) String() string {
	switch s {
	case shapeAbsent:
		return "absent"
	case shapeList:
		return "list"
	case shapeMap:
		return "mapping"
	default:
		return "unrecognized"
	}
}

func shapeOf(value any, ok bool) containerShape {
	if !ok || value == nil {
		return shapeAbsent
	}
	switch value.(type) {
	case []any:
		return shapeList
	case map[string]any:
		return shapeMap
	default:
		return shapeOther
	}
}

// droppedRecord names a stored record that failed to decode.
type droppedRecord struct {
	key string
	err error
}

// lookupFlag finds key in a namespace snapshot.
func lookupFlag(flags []types.Flag, key string) (any, bool) {
	for _, f := range flags {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// decodeRing decodes one stored record on top of the schema defaults.
func decodeRing(value any) (types.Ring, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return types.Ring{}, fmt.Errorf("%w: record is %T, not an object", types.ErrMalformedRecord, value)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return types.Ring{}, fmt.Errorf("%w: %v", types.ErrMalformedRecord, err)
	}
	return types.ParseRing(data)
}

// decodeList decodes a legacy V2 list in order. Every element yields a ring:
// fields that cannot be recovered keep their defaults and are reported, and
// an element without a usable id is left unassigned so it gets renumbered.
func decodeList(items []any) ([]types.Ring, []droppedRecord) {
	var issues []droppedRecord
	rings := make([]types.Ring, 0, len(items))
	for i, item := range items {
		key := fmt.Sprintf("[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			issues = append(issues, droppedRecord{key: key, err: fmt.Errorf("%w: record is %T, not an object", types.ErrMalformedRecord, item)})
			m = nil
		}
		r, fieldIssues := decodeLenient(m)
		for _, err := range fieldIssues {
			issues = append(issues, droppedRecord{key: key, err: err})
		}
		if id, ok := legacyID(m[string(types.FieldID)]); ok {
			r.ID = id
		}
		rings = append(rings, r)
	}
	return rings, issues
}

// decodeLenient builds a ring from a legacy record. Each field is converted
// the way SetField converts it, falling back to the string form of a scalar.
// A field that still cannot be set, or leaves the ring invalid, keeps its
// default. The id is left unassigned.
func decodeLenient(m map[string]any) (types.Ring, []error) {
	r := types.DefaultRing()
	var issues []error
	for _, f := range types.Fields() {
		v, present := m[string(f)]
		if f == types.FieldID || !present || v == nil {
			continue
		}
		next := r
		err := next.SetField(f, v)
		if err != nil {
			if s, ok := scalarString(v); ok {
				next = r
				err = next.SetField(f, s)
			}
		}
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			issues = append(issues, fmt.Errorf("%s kept its default: %w", f, err))
			continue
		}
		r = next
	}
	return r, issues
}

// legacyID reads a whole-number id stored as a number or numeric string.
func legacyID(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(n))
		return id, err == nil
	default:
		return 0, false
	}
}

func scalarString(v any) (string, bool) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(n), true
	default:
		return "", false
	}
}

// decodeContainer decodes an id-keyed mapping. A record whose key does not
// match its id is dropped so the returned container keeps keys and ids in step.
func decodeContainer(m map[string]any) (types.Container, []droppedRecord) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dropped []droppedRecord
	c := make(types.Container, len(m))
	for _, key := range keys {
		r, err := decodeRing(m[key])
		if err != nil {
			dropped = append(dropped, droppedRecord{key: key, err: err})
			continue
		}
		if r.Key() != key {
			dropped = append(dropped, droppedRecord{
				key: key,
				err: fmt.Errorf("%w: key %s holds id %d", types.ErrMalformedRecord, key, r.ID),
			})
			continue
		}
		c[key] = r
	}
	return c, dropped
}

// encodeContainer converts a container into the JSON-shaped flag value.
func encodeContainer(c types.Container) (any, error) {
	if c == nil {
		c = types.Container{}
	}
	return types.NormalizeFlagValue(c)
}

// encodeList converts an ordered ring list into the legacy V2 flag value.
func encodeList(rings []types.Ring) (any, error) {
	if rings == nil {
		rings = []types.Ring{}
	}
	return types.NormalizeFlagValue(rings)
}

// documentVersion reads the version tag from a namespace snapshot.
// A missing tag reports 0.
func documentVersion(flags []types.Flag) (int, error) {
	v, ok := lookupFlag(flags, types.VersionKey)
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) {
		return 0, fmt.Errorf("%w: version tag is %v", types.ErrShape, v)
	}
	return int(n), nil
}

// writeRings stores value under the rings key. Unless direct is set, the key
// is unset first so keys missing from value do not survive the host's
// object merge.
func writeRings(ctx context.Context, doc types.Document, value any, direct bool) error {
	if !direct {
		if err := doc.UnsetFlag(ctx, types.Namespace, types.RingsKey); err != nil {
			return fmt.Errorf("unsetting %s: %w", types.RingsKey, err)
		}
	}
	if err := doc.SetFlag(ctx, types.Namespace, types.RingsKey, value); err != nil {
		return fmt.Errorf("setting %s: %w", types.RingsKey, err)
	}
	return nil
}
