// Package notify provides observer registrations with explicit unsubscribe handles.
package notify

import (
	"slices"
	"sync"
)

// Observers is a set of callbacks for values of type T. Safe for concurrent use.
// Callbacks run on the goroutine that calls Emit and must not block.
type Observers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

// Add registers fn and returns a function that removes it. Removing twice is a no-op.
func (o *Observers[T]) Add(fn func(T)) (remove func()) {
	if fn == nil {
		panic("notify: nil observer")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.fns, id)
	}
}

// Emit calls every registered observer in registration order.
func (o *Observers[T]) Emit(v T) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.fns))
	for id := range o.fns {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.fns)
}

