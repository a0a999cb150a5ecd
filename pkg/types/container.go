package types

import (
	"sort"
	"strings"
)

// Container maps "ring<id>" keys to the rings of one document.
// Every key equals RingKey of its ring's id.
type Container map[string]Ring

// NewContainer returns a container holding the given rings keyed by id.
// Later rings overwrite earlier ones that share an id.
func NewContainer(rings ...Ring) Container {
	c := make(Container, len(rings))
	for _, r := range rings {
		c.Put(r)
	}
	return c
}

// Put stores the ring under the key derived from its id, replacing any
// ring with the same id.
func (c Container) Put(r Ring) {
	c[r.Key()] = r
}

// Lookup returns the ring stored under the given id.
func (c Container) Lookup(id int) (Ring, bool) {
	r, ok := c[RingKey(id)]
	return r, ok
}

// Remove deletes the ring with the given id and reports whether it existed.
func (c Container) Remove(id int) bool {
	key := RingKey(id)
	if _, ok := c[key]; !ok {
		return false
	}
	delete(c, key)
	return true
}

// Rings returns the rings in ascending id order, ties broken by key.
// This is the iteration order for lookups over a container.
func (c Container) Rings() []Ring {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c[keys[i]], c[keys[j]]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return keys[i] < keys[j]
	})
	out := make([]Ring, len(keys))
	for i, k := range keys {
		out[i] = c[k]
	}
	return out
}

// IDs returns the id of every ring in ascending order.
func (c Container) IDs() []int {
	rings := c.Rings()
	ids := make([]int, len(rings))
	for i, r := range rings {
		ids[i] = r.ID
	}
	return ids
}

// SortedByName returns the rings ordered by case-insensitive name, then id.
func (c Container) SortedByName() []Ring {
	rings := c.Rings()
	sort.SliceStable(rings, func(i, j int) bool {
		return strings.ToLower(rings[i].Name) < strings.ToLower(rings[j].Name)
	})
	return rings
}

// Clone returns a shallow copy; Ring values carry no references.
func (c Container) Clone() Container {
	out := make(Container, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
