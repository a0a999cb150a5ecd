package rings

import (
	"fmt"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// NextAvailableID returns the smallest id in 1..99 that no ring uses.
// It scans the id field of each ring, not container keys, so a record filed
// under a mismatched key still blocks its id. Returns ErrAllocationExhausted
// when all ids are taken. Nothing is reserved: the caller must persist the
// chosen id before allocating again.
func NextAvailableID(rings []types.Ring) (int, error) {
	used := make(map[int]bool, len(rings))
	for _, r := range rings {
		used[r.ID] = true
	}
	for id := types.MinRingID; id <= types.MaxRingID; id++ {
		if !used[id] {
			return id, nil
		}
	}
	return 0, fmt.Errorf("allocating ring id among %d rings: %w", len(rings), types.ErrAllocationExhausted)
}

// NextAvailableIDIn is NextAvailableID over the rings of a container.
func NextAvailableIDIn(c types.Container) (int, error) {
	rings := make([]types.Ring, 0, len(c))
	for _, r := range c {
		rings = append(rings, r)
	}
	return NextAvailableID(rings)
}
