package event

import "sync"

// Handler receives a fired event value.
type Handler[T any] func(T)

// Emitter is a minimal thread-safe event multiplexer. Subscribers are invoked
// synchronously, in registration order, on the goroutine that calls Fire.
// Handlers must not block; anything slow belongs on the subscriber's own
// goroutine.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	order    []int
	handlers map[int]Handler[T]
}

// NewEmitter creates an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{handlers: make(map[int]Handler[T])}
}

// Subscribe registers a handler and returns a function that removes it.
// The returned function is idempotent.
func (e *Emitter[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = h
	e.order = append(e.order, id)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
			e.mu.Unlock()
		})
	}
}

// Fire delivers value to every current subscriber. The handler snapshot is
// taken under the lock but handlers run outside it, so a handler may
// subscribe or unsubscribe without deadlocking.
func (e *Emitter[T]) Fire(value T) {
	e.mu.Lock()
	snapshot := make([]Handler[T], 0, len(e.order))
	for _, id := range e.order {
		if h, ok := e.handlers[id]; ok {
			snapshot = append(snapshot, h)
		}
	}
	e.mu.Unlock()

	for _, h := range snapshot {
		h(value)
	}
}

// Len reports the number of active subscribers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
