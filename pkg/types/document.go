package types

import "context"

// Flag storage layout for aura rings.
const (
	Namespace      = "token-aura-ring"
	RingsKey       = "aura-rings"
	VersionKey     = "version"
	CurrentVersion = 3
)

// ChangeEvent is the name of the broadcast fired after every durable mutation.
const ChangeEvent = "flags-updated"

// Flag is one key/value pair of a document namespace.
type Flag struct {
	Key   string
	Value any
}

// Document is an owning entity with a namespaced key/value flag store.
// Values are JSON-shaped: map[string]any, []any, float64, string, bool or nil.
//
// SetFlag merges an object value into an existing object value key by key
// (see MergeFlagValue); removing keys therefore requires UnsetFlag first.
type Document interface {
	// ID returns the stable identifier of the document.
	ID() string

	// Name returns the display name of the document.
	Name() string

	// IsOwner reports whether the caller may modify the document.
	IsOwner() bool

	// Flags returns a snapshot of the namespace in host key order.
	// The snapshot is read synchronously and is used for shape detection.
	Flags(namespace string) []Flag

	// GetFlag returns the value stored under namespace/key.
	GetFlag(ctx context.Context, namespace, key string) (any, bool, error)

	// SetFlag stores value under namespace/key, merging object values.
	SetFlag(ctx context.Context, namespace, key string, value any) error

	// UnsetFlag removes namespace/key. Removing an absent key succeeds.
	UnsetFlag(ctx context.Context, namespace, key string) error
}
