package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/poiesic/scout/core"
)

// Memory is the in-process L1 tier. Keys are partitioned across shards by
// xxhash so writers to one shard never block readers of another.
type Memory struct {
	shards   []*memoryShard
	capacity int
	now      func() time.Time
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]*core.CacheEntry
}

var _ Tier = (*Memory)(nil)

// NewMemory creates an L1 tier with the given shard count and per-shard capacity.
func NewMemory(shards, capacity int) *Memory {
	if shards <= 0 {
		shards = 1
	}
	if capacity <= 0 {
		capacity = DefaultConfig().L1Capacity
	}
	m := &Memory{
		shards:   make([]*memoryShard, shards),
		capacity: capacity,
		now:      time.Now,
	}
	for i := range m.shards {
		m.shards[i] = &memoryShard{items: make(map[string]*core.CacheEntry)}
	}
	return m
}

func (m *Memory) shard(key string) *memoryShard {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

// Level implements Tier.
func (m *Memory) Level() core.CacheTier {
	return core.TierL1
}

// Get implements Tier.
func (m *Memory) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	s := m.shard(key)
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || entry.Expired(m.now()) {
		return nil, nil
	}
	return cloneEntry(entry), nil
}

// Put implements Tier. An older entry never replaces a newer one.
func (m *Memory) Put(_ context.Context, entry *core.CacheEntry) error {
	s := m.shard(entry.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[entry.Key]; ok && cur.InsertedAt.After(entry.InsertedAt) {
		return nil
	}
	if _, ok := s.items[entry.Key]; !ok && len(s.items) >= m.capacity {
		s.evict(m.now(), m.capacity)
	}
	cp := cloneEntry(entry)
	cp.Tier = core.TierL1
	s.items[entry.Key] = cp
	return nil
}

// Delete implements Tier.
func (m *Memory) Delete(_ context.Context, key string) error {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Purge removes every entry.
func (m *Memory) Purge() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]*core.CacheEntry)
		s.mu.Unlock()
	}
}

// evict drops expired entries, then the oldest one if the shard is still full.
// Caller holds the write lock.
func (s *memoryShard) evict(now time.Time, capacity int) {
	for k, e := range s.items {
		if e.Expired(now) {
			delete(s.items, k)
		}
	}
	if len(s.items) < capacity {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, e := range s.items {
		if oldestKey == "" || e.InsertedAt.Before(oldest) {
			oldestKey, oldest = k, e.InsertedAt
		}
	}
	delete(s.items, oldestKey)
}
