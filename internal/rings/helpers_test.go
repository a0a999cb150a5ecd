package rings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// fakeDoc is an in-memory document whose SetFlag merges objects the way
// real host stores do. Every write is recorded, and failOn can inject errors.
type fakeDoc struct {
	id     string
	owner  bool
	keys   map[string][]string
	values map[string]map[string]any
	writes []string
	failOn func(op, key string) error
}

func newFakeDoc(t *testing.T) *fakeDoc {
	t.Helper()
	return &fakeDoc{
		id:     "token-" + t.Name(),
		owner:  true,
		keys:   make(map[string][]string),
		values: make(map[string]map[string]any),
	}
}

// seed stores a raw value without recording a write.
func (d *fakeDoc) seed(t *testing.T, key string, value any) {
	t.Helper()
	v, err := types.NormalizeFlagValue(value)
	require.NoError(t, err)
	d.put(types.Namespace, key, v)
}

// raw returns the stored value of a key in the ring namespace.
func (d *fakeDoc) raw(key string) (any, bool) {
	v, ok := d.values[types.Namespace][key]
	return v, ok
}

// dump serializes the ring namespace for byte-level comparison.
func (d *fakeDoc) dump(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(d.values[types.Namespace])
	require.NoError(t, err)
	return string(data)
}

func (d *fakeDoc) put(namespace, key string, value any) {
	if d.values[namespace] == nil {
		d.values[namespace] = make(map[string]any)
	}
	if _, ok := d.values[namespace][key]; !ok {
		d.keys[namespace] = append(d.keys[namespace], key)
	}
	d.values[namespace][key] = value
}

func (d *fakeDoc) ID() string    { return d.id }
func (d *fakeDoc) Name() string  { return "Fake Token" }
func (d *fakeDoc) IsOwner() bool { return d.owner }

func (d *fakeDoc) Flags(namespace string) []types.Flag {
	flags := make([]types.Flag, 0, len(d.keys[namespace]))
	for _, k := range d.keys[namespace] {
		flags = append(flags, types.Flag{Key: k, Value: d.values[namespace][k]})
	}
	return flags
}

func (d *fakeDoc) GetFlag(_ context.Context, namespace, key string) (any, bool, error) {
	if err := d.fail("get", key); err != nil {
		return nil, false, err
	}
	v, ok := d.values[namespace][key]
	return v, ok, nil
}

func (d *fakeDoc) SetFlag(_ context.Context, namespace, key string, value any) error {
	if err := d.fail("set", key); err != nil {
		return err
	}
	v, err := types.NormalizeFlagValue(value)
	if err != nil {
		return err
	}
	d.writes = append(d.writes, "set "+key)
	d.put(namespace, key, types.MergeFlagValue(d.values[namespace][key], v))
	return nil
}

func (d *fakeDoc) UnsetFlag(_ context.Context, namespace, key string) error {
	if err := d.fail("unset", key); err != nil {
		return err
	}
	d.writes = append(d.writes, "unset "+key)
	if _, ok := d.values[namespace][key]; !ok {
		return nil
	}
	delete(d.values[namespace], key)
	keys := d.keys[namespace][:0]
	for _, k := range d.keys[namespace] {
		if k != key {
			keys = append(keys, k)
		}
	}
	d.keys[namespace] = keys
	return nil
}

func (d *fakeDoc) fail(op, key string) error {
	if d.failOn == nil {
		return nil
	}
	return d.failOn(op, key)
}

// failOnce returns a failOn hook that fails the first matching call only.
func failOnce(op, key string) func(string, string) error {
	done := false
	return func(gotOp, gotKey string) error {
		if done || gotOp != op || gotKey != key {
			return nil
		}
		done = true
		return fmt.Errorf("injected %s failure on %s", op, key)
	}
}

// quietLogger discards log output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore returns a store with a private signal and a quiet logger.
func newTestStore() *Store {
	return NewStore(WithLogger(quietLogger()), WithSignal(NewSignal(types.ChangeEvent)))
}

// ring builds a valid ring with the given id and name.
func ring(id int, name string) types.Ring {
	r := types.DefaultRing()
	r.ID = id
	r.Name = name
	return r
}

// countFires subscribes to s and returns a pointer to the fire count.
func countFires(t *testing.T, s *Signal) *int {
	t.Helper()
	n := new(int)
	unsubscribe := s.Subscribe(func() { *n++ })
	t.Cleanup(unsubscribe)
	return n
}
