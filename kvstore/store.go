package kvstore

import (
	"context"
	"strconv"
)

// InMemorySentinel is the path that routes a durable store to SQLite's
// in-memory database, used by test harnesses to avoid touching disk.
const InMemorySentinel = ":memory:"

// Hint tells a durable store what the caller already knows about the backing
// file, letting it skip work on open.
type Hint int

const (
	// HintNone means the store must probe for existing data itself.
	HintNone Hint = iota
	// HintDoesNotExist means the caller knows no prior data exists; the
	// store may skip existence probing and take its fast initial-write path.
	HintDoesNotExist
)

// ChangeEvent describes one committed write or delete.
type ChangeEvent struct {
	// Key is the affected key.
	Key string
	// Deleted is true when the change removed the key.
	Deleted bool
}

// Store is an ordered string-to-string mapping with typed accessors, change
// notification, and an explicit close. Implementations must be safe for
// concurrent use.
//
// Reads are synchronous against the store's in-memory view and never block on
// I/O. Writes may be deferred internally, but every write accepted before
// Close returns must be committed by the time Close returns.
type Store interface {
	// Get returns the value for key, or fallback when absent.
	Get(key, fallback string) string

	// GetBoolean returns the value for key coerced to bool, or fallback when
	// absent or not coercible.
	GetBoolean(key string, fallback bool) bool

	// GetNumber returns the value for key coerced to int64, or fallback when
	// absent or not coercible.
	GetNumber(key string, fallback int64) int64

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Items returns a snapshot of all current key-value pairs.
	Items(ctx context.Context) (map[string]string, error)

	// OnDidChange registers a handler for committed writes and deletes and
	// returns a function that removes it.
	OnDidChange(h func(ChangeEvent)) (unsubscribe func())

	// Init performs any asynchronous open or migration work. Must be called
	// once before reads and writes.
	Init(ctx context.Context) error

	// Close flushes all pending writes and releases the store.
	Close(ctx context.Context) error
}

// coerceBoolean parses a stored representation as a boolean.
func coerceBoolean(value string, fallback bool) bool {
	switch value {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}

// coerceNumber parses a stored representation as an integer.
func coerceNumber(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
