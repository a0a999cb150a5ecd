package types

import (
	"encoding/json"
	"fmt"
)

// MergeFlagValue returns the value a host flag store keeps when incoming is
// written over existing. Objects merge recursively key by key, so keys absent
// from incoming survive; every other value replaces what was there.
// Neither argument is modified.
func MergeFlagValue(existing, incoming any) any {
	dst, ok := existing.(map[string]any)
	if !ok {
		return incoming
	}
	src, ok := incoming.(map[string]any)
	if !ok {
		return incoming
	}
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if prev, exists := out[k]; exists {
			out[k] = MergeFlagValue(prev, v)
			continue
		}
		out[k] = v
	}
	return out
}

// NormalizeFlagValue converts a Go value into its JSON-shaped equivalent by
// marshalling and decoding it again. Host stores apply it to every written
// value so typed structs and maps merge alike.
func NormalizeFlagValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding flag value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding flag value: %w", err)
	}
	return out, nil
}
