// Package notify provides small synchronous observer lists.
//
// The playback and bridge packages fan state changes out to registered
// callbacks. Every list invokes its observers synchronously, in registration
// order, and is cleared exactly once on teardown.
package notify

import "sync"

// List is an ordered collection of observers of callback type T.
//
// Add returns a token that can later be passed to Remove. Each takes a
// snapshot of the current observers under the lock and invokes them outside
// it, so an observer may safely register or remove observers from within its
// own callback.
type List[T any] struct {
	mu     sync.Mutex
	nextID int64
	items  []entry[T]
}

type entry[T any] struct {
	id int64
	fn T
}

// Add registers fn and returns its removal token.
func (l *List[T]) Add(fn T) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.items = append(l.items, entry[T]{id: l.nextID, fn: fn})
	return l.nextID
}

// Remove unregisters the observer identified by id. Unknown ids are ignored.
func (l *List[T]) Remove(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.items {
		if e.id == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Each invokes visit for every registered observer, in registration order.
func (l *List[T]) Each(visit func(T)) {
	l.mu.Lock()
	snapshot := make([]entry[T], len(l.items))
	copy(snapshot, l.items)
	l.mu.Unlock()

	for _, e := range snapshot {
		visit(e.fn)
	}
}

// Clear drops every observer.
func (l *List[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// Len reports the number of registered observers.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
