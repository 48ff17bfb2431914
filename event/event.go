package event

import (
	"sync"
)

// Handle identifies a registered listener. The zero Handle is never issued.
type Handle uint64

type listener[T any] struct {
	handle Handle
	fn     func(T)
}

// Event is a typed multicast delegate. Listeners run synchronously in registration order.
type Event[T any] struct {
	mu        sync.Mutex
	next      Handle
	listeners []listener[T]
}

func (e *Event[T]) Add(fn func(T)) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.listeners = append(e.listeners, listener[T]{handle: e.next, fn: fn})
	return e.next
}

// Remove unregisters the listener behind h and reports whether it was present.
func (e *Event[T]) Remove(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.handle == h {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Broadcast calls every listener with v. Listeners may add or remove listeners reentrantly; changes take effect
// on the next broadcast.
func (e *Event[T]) Broadcast(v T) {
	e.mu.Lock()
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}

func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *Event[T]) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
}
