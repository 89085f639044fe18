package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/scout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8, 4)
	assert.Equal(t, core.TierL1, m.Level())

	entry, err := m.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: "a", Value: []byte("1"), TTL: time.Minute, InsertedAt: time.Now()}))
	entry, err = m.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, core.TierL1, entry.Tier)

	require.NoError(t, m.Delete(ctx, "a"))
	entry, err = m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemory_ExpiredEntriesAreMisses(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(1, 4)
	m.now = clock.Now

	require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: "a", TTL: time.Minute, InsertedAt: clock.Now()}))
	clock.Advance(time.Minute)
	entry, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemory_Eviction(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(1, 3)
	m.now = clock.Now

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: fmt.Sprintf("k%d", i), TTL: time.Hour, InsertedAt: clock.Now()}))
		clock.Advance(time.Second)
	}
	require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: "k3", TTL: time.Hour, InsertedAt: clock.Now()}))

	assert.Equal(t, 3, m.Len())
	oldest, _ := m.Get(ctx, "k0")
	assert.Nil(t, oldest, "oldest entry should have been evicted")
	newest, _ := m.Get(ctx, "k3")
	assert.NotNil(t, newest)

	t.Run("expired entries are evicted first", func(t *testing.T) {
		m := NewMemory(1, 2)
		m.now = clock.Now
		require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: "short", TTL: time.Second, InsertedAt: clock.Now()}))
		require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: "long", TTL: time.Hour, InsertedAt: clock.Now()}))
		clock.Advance(2 * time.Second)
		require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: "new", TTL: time.Hour, InsertedAt: clock.Now()}))

		long, _ := m.Get(ctx, "long")
		assert.NotNil(t, long)
		assert.Equal(t, 2, m.Len())
	})
}

func TestMemory_ShardsSpreadKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, 100)
	for i := 0; i < 200; i++ {
		require.NoError(t, m.Put(ctx, &core.CacheEntry{Key: fmt.Sprintf("key-%d", i), TTL: time.Hour, InsertedAt: time.Now()}))
	}
	assert.Equal(t, 200, m.Len())

	used := 0
	for _, s := range m.shards {
		if len(s.items) > 0 {
			used++
		}
	}
	assert.Greater(t, used, 8)
}
