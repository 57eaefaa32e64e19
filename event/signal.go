package event

import "sync"

// Signal is a single-fire latch. Listeners registered before Fire run when it
// fires; listeners registered after Fire run immediately on the registering
// goroutine. Fire is idempotent.
type Signal struct {
	mu        sync.Mutex
	fired     bool
	listeners []func()
}

// NewSignal creates an unfired signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Notify registers fn to run once the signal fires. If the signal already
// fired, fn runs synchronously before Notify returns.
func (s *Signal) Notify(fn func()) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		fn()
		return
	}
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Fire fires the signal, running all pending listeners in registration order.
// Subsequent calls are no-ops.
func (s *Signal) Fire() {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	pending := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
