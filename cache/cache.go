// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/poiesic/scout/core"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoTiers is returned when a MultiTier is built without any tier.
	ErrNoTiers = errors.New("at least one cache tier is required")
	// ErrDuplicateTier is returned when two tiers report the same level.
	ErrDuplicateTier = errors.New("duplicate cache tier level")
)

// Tier is a single cache layer.
// Get returns (nil, nil) on a miss. Implementations must be safe for concurrent use
// and must apply writes atomically per key.
type Tier interface {
	Level() core.CacheTier
	Get(ctx context.Context, key string) (*core.CacheEntry, error)
	// Put stores the entry unless the tier already holds a newer one for the same key.
	Put(ctx context.Context, entry *core.CacheEntry) error
	Delete(ctx context.Context, key string) error
}

// Cache is the read-through/write-through contract used by discovery.
type Cache interface {
	// Get returns the entry and the tier that served it, or (nil, core.TierNone) on a miss.
	// Tier failures are treated as misses.
	Get(ctx context.Context, key string) (*core.CacheEntry, core.CacheTier)
	// Put writes to every tier. It only fails when no tier accepted the write.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes the key from every tier.
	Invalidate(ctx context.Context, key string) error
}

// Stats is a snapshot of MultiTier counters.
type Stats struct {
	Lookups    int64
	Hits       map[core.CacheTier]int64
	Misses     int64
	TierErrors int64
	Backfills  int64
}

// MultiTier probes tiers fastest first and backfills faster tiers on a hit.
type MultiTier struct {
	tiers   []Tier
	budgets map[core.CacheTier]time.Duration
	group   singleflight.Group
	now     func() time.Time
	logger  *slog.Logger

	lookups    atomic.Int64
	hits       [4]atomic.Int64
	misses     atomic.Int64
	tierErrors atomic.Int64
	backfills  atomic.Int64
}

var _ Cache = (*MultiTier)(nil)

// Option configures a MultiTier.
type Option func(*MultiTier)

// WithBudget sets the per-operation time budget for one tier level.
func WithBudget(level core.CacheTier, budget time.Duration) Option {
	return func(m *MultiTier) {
		m.budgets[level] = budget
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *MultiTier) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *MultiTier) {
		m.logger = logger
	}
}

// NewMultiTier builds a cache over the given tiers. Tiers are ordered by level.
func NewMultiTier(tiers []Tier, opts ...Option) (*MultiTier, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Level() < sorted[j].Level()
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Level() == sorted[i-1].Level() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTier, sorted[i].Level())
		}
	}

	m := &MultiTier{
		tiers: sorted,
		budgets: map[core.CacheTier]time.Duration{
			core.TierL1: DefaultL1Budget,
			core.TierL2: DefaultL2Budget,
			core.TierL3: DefaultL3Budget,
		},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "cache")
	return m, nil
}

// Get implements Cache. Concurrent lookups of the same key share one tier walk.
// The shared walk is detached from any single caller's cancellation and bounded
// by the per-tier budgets; a caller whose ctx ends first sees a miss.
func (m *MultiTier) Get(ctx context.Context, key string) (*core.CacheEntry, core.CacheTier) {
	m.lookups.Add(1)
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.probe(shared, key), nil
	})
	var entry *core.CacheEntry
	select {
	case res := <-ch:
		entry, _ = res.Val.(*core.CacheEntry)
	case <-ctx.Done():
	}
	if entry == nil {
		m.misses.Add(1)
		return nil, core.TierNone
	}
	m.hits[entry.Tier].Add(1)
	return cloneEntry(entry), entry.Tier
}

func (m *MultiTier) probe(ctx context.Context, key string) *core.CacheEntry {
	now := m.now()
	for i, tier := range m.tiers {
		if ctx.Err() != nil {
			return nil
		}
		tctx, cancel := context.WithTimeout(ctx, m.budget(tier.Level()))
		entry, err := tier.Get(tctx, key)
		cancel()
		if err != nil {
			m.tierErrors.Add(1)
			m.logger.Warn("cache tier read failed", "tier", tier.Level(), "error", err)
			continue
		}
		if entry == nil || entry.Expired(now) {
			continue
		}
		entry.Tier = tier.Level()
		if i > 0 {
			m.backfill(ctx, m.tiers[:i], entry)
		}
		return entry
	}
	return nil
}

// backfill copies a hit into faster tiers, keeping its original insertion time and TTL
// so the copy expires when the source does.
func (m *MultiTier) backfill(ctx context.Context, tiers []Tier, entry *core.CacheEntry) {
	for _, tier := range tiers {
		cp := cloneEntry(entry)
		cp.Tier = tier.Level()
		tctx, cancel := context.WithTimeout(ctx, m.budget(tier.Level()))
		err := tier.Put(tctx, cp)
		cancel()
		if err != nil {
			m.tierErrors.Add(1)
			m.logger.Warn("cache backfill failed", "tier", tier.Level(), "error", err)
			continue
		}
		m.backfills.Add(1)
	}
}

// Put implements Cache. All tiers are written concurrently.
func (m *MultiTier) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &core.CacheEntry{
		Key:        key,
		Value:      append([]byte(nil), value...),
		TTL:        ttl,
		InsertedAt: m.now(),
	}
	return m.eachTier(ctx, "write", func(tctx context.Context, tier Tier) error {
		cp := cloneEntry(entry)
		cp.Tier = tier.Level()
		return tier.Put(tctx, cp)
	})
}

// Invalidate implements Cache.
func (m *MultiTier) Invalidate(ctx context.Context, key string) error {
	m.group.Forget(key)
	return m.eachTier(ctx, "invalidate", func(tctx context.Context, tier Tier) error {
		return tier.Delete(tctx, key)
	})
}

func (m *MultiTier) eachTier(ctx context.Context, op string, fn func(context.Context, Tier) error) error {
	var failed atomic.Int64
	var g errgroup.Group
	for _, tier := range m.tiers {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, m.budget(tier.Level()))
			defer cancel()
			if err := fn(tctx, tier); err != nil {
				failed.Add(1)
				m.tierErrors.Add(1)
				m.logger.Warn("cache tier "+op+" failed", "tier", tier.Level(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if int(failed.Load()) == len(m.tiers) {
		return fmt.Errorf("%w: %s failed on all %d tiers", core.ErrCacheUnavailable, op, len(m.tiers))
	}
	return nil
}

// Stats returns a snapshot of the cache counters.
func (m *MultiTier) Stats() Stats {
	hits := make(map[core.CacheTier]int64, len(m.tiers))
	for _, tier := range m.tiers {
		hits[tier.Level()] = m.hits[tier.Level()].Load()
	}
	return Stats{
		Lookups:    m.lookups.Load(),
		Hits:       hits,
		Misses:     m.misses.Load(),
		TierErrors: m.tierErrors.Load(),
		Backfills:  m.backfills.Load(),
	}
}

// Tiers returns the configured tiers, fastest first.
func (m *MultiTier) Tiers() []Tier {
	return append([]Tier(nil), m.tiers...)
}

func (m *MultiTier) budget(level core.CacheTier) time.Duration {
	if b, ok := m.budgets[level]; ok && b > 0 {
		return b
	}
	return DefaultL3Budget
}

func cloneEntry(e *core.CacheEntry) *core.CacheEntry {
	cp := *e
	cp.Value = append([]byte(nil), e.Value...)
	return &cp
}
