package rings

import (
	"sync"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// Signal is a named, parameterless broadcast point. Observers run
// synchronously inside Fire, in no particular order.
type Signal struct {
	name string

	mu        sync.Mutex
	next      uint64
	observers map[uint64]func()
}

// DefaultSignal is the process-wide "flags-updated" broadcast.
var DefaultSignal = NewSignal(types.ChangeEvent)

// NewSignal creates a signal with no observers.
func NewSignal(name string) *Signal {
	return &Signal{
		name:      name,
		observers: make(map[uint64]func()),
	}
}

// Name returns the event name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is safe to call more than once.
func (s *Signal) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.next
	s.next++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Fire calls every current observer. Observers may subscribe or unsubscribe
// while being notified; such changes apply from the next Fire.
func (s *Signal) Fire() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of subscribed observers.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}
