// Package rings provides the public API for storing aura rings on any host
// that implements types.Document. It exposes the store factory and its
// options while keeping the migration and codec internals private.
package rings

import (
	"log/slog"

	"github.com/mesh-intelligence/aurarings/internal/rings"
)

// Store is the CRUD surface over a document's ring container.
type Store = rings.Store

// Signal is a synchronous change notification.
type Signal = rings.Signal

// Option configures a Store.
type Option = rings.Option

// WriteOption configures a single Set call.
type WriteOption = rings.WriteOption

// DefaultSignal is the process-wide "flags-updated" signal.
var DefaultSignal = rings.DefaultSignal

// NewStore creates a ring store. Without options it logs to slog.Default()
// and fires DefaultSignal after every write.
//
// Example:
//
//	store := rings.NewStore(rings.WithLogger(logger))
//	ring, err := store.Create(ctx, doc)
func NewStore(opts ...Option) *Store {
	return rings.NewStore(opts...)
}

// NewSignal creates a signal with the given event name.
func NewSignal(name string) *Signal {
	return rings.NewSignal(name)
}

// WithLogger sets the store's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return rings.WithLogger(logger)
}

// WithSignal sets the signal fired after every mutation.
func WithSignal(signal *Signal) Option {
	return rings.WithSignal(signal)
}

// WithDirect writes without unsetting the rings key first.
func WithDirect() WriteOption {
	return rings.WithDirect()
}
