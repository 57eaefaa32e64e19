package kvstore

import (
	"context"
	"sync"

	"github.com/c360/statestore/errors"
	"github.com/c360/statestore/event"
)

// MemoryStore is a thread-safe in-memory Store with no persistence. It is
// always available with zero setup and serves as the placeholder a storage
// lifecycle runs against before its durable store is ready.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]string
	closed  bool
	changes *event.Emitter[ChangeEvent]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[string]string),
		changes: event.NewEmitter[ChangeEvent](),
	}
}

// Init is a no-op; the memory store needs no open or migration step.
func (m *MemoryStore) Init(ctx context.Context) error {
	return nil
}

// Get returns the value for key, or fallback when absent.
func (m *MemoryStore) Get(key, fallback string) string {
	m.mu.RLock()
	value, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return fallback
	}
	return value
}

// GetBoolean returns the value for key as a bool, or fallback.
func (m *MemoryStore) GetBoolean(key string, fallback bool) bool {
	m.mu.RLock()
	value, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return fallback
	}
	return coerceBoolean(value, fallback)
}

// GetNumber returns the value for key as an int64, or fallback.
func (m *MemoryStore) GetNumber(key string, fallback int64) int64 {
	m.mu.RLock()
	value, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return fallback
	}
	return coerceNumber(value, fallback)
}

// Set stores value under key.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrStoreClosed, "kvstore", "Set", "write to closed store")
	}
	m.items[key] = value
	m.mu.Unlock()

	m.changes.Fire(ChangeEvent{Key: key})
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrStoreClosed, "kvstore", "Delete", "delete on closed store")
	}
	_, existed := m.items[key]
	delete(m.items, key)
	m.mu.Unlock()

	if existed {
		m.changes.Fire(ChangeEvent{Key: key, Deleted: true})
	}
	return nil
}

// Items returns a snapshot of all current key-value pairs.
func (m *MemoryStore) Items(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]string, len(m.items))
	for k, v := range m.items {
		snapshot[k] = v
	}
	return snapshot, nil
}

// OnDidChange registers a change handler.
func (m *MemoryStore) OnDidChange(h func(ChangeEvent)) (unsubscribe func()) {
	return m.changes.Subscribe(h)
}

// Close marks the store closed. Contents stay readable so a lifecycle that
// never swapped to durable storage can still serve late reads during
// shutdown.
func (m *MemoryStore) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
