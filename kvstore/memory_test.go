package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetFallbacks(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Init(ctx))

	assert.Equal(t, "fallback", m.Get("missing", "fallback"))
	assert.True(t, m.GetBoolean("missing", true))
	assert.Equal(t, int64(7), m.GetNumber("missing", 7))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, "name", "torvalds"))
	require.NoError(t, m.Set(ctx, "enabled", "true"))
	require.NoError(t, m.Set(ctx, "count", "42"))

	assert.Equal(t, "torvalds", m.Get("name", ""))
	assert.True(t, m.GetBoolean("enabled", false))
	assert.Equal(t, int64(42), m.GetNumber("count", 0))
}

func TestMemoryStoreCoercionFallsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, "notBool", "yes"))
	require.NoError(t, m.Set(ctx, "notNumber", "forty-two"))

	assert.False(t, m.GetBoolean("notBool", false))
	assert.Equal(t, int64(-1), m.GetNumber("notNumber", -1))
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, "key", "value"))
	require.NoError(t, m.Delete(ctx, "key"))
	assert.Equal(t, "gone", m.Get("key", "gone"))

	// Deleting an absent key is not an error.
	require.NoError(t, m.Delete(ctx, "never-existed"))
}

func TestMemoryStoreChangeEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var events []ChangeEvent
	unsub := m.OnDidChange(func(ev ChangeEvent) { events = append(events, ev) })

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Delete(ctx, "a"))
	require.NoError(t, m.Delete(ctx, "a")) // absent, no event

	unsub()
	require.NoError(t, m.Set(ctx, "b", "2")) // after unsubscribe, no event

	require.Len(t, events, 2)
	assert.Equal(t, ChangeEvent{Key: "a"}, events[0])
	assert.Equal(t, ChangeEvent{Key: "a", Deleted: true}, events[1])
}

func TestMemoryStoreItems(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))

	items, err := m.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, items)

	// The snapshot is detached from the store.
	items["c"] = "3"
	assert.Equal(t, "absent", m.Get("c", "absent"))
}

func TestMemoryStoreClosedRejectsWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, "key", "value"))
	require.NoError(t, m.Close(ctx))

	assert.Error(t, m.Set(ctx, "key", "other"))
	assert.Error(t, m.Delete(ctx, "key"))

	// Late reads still work during shutdown.
	assert.Equal(t, "value", m.Get("key", ""))
}
