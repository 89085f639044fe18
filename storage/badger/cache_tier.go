package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scout/cache"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/storage"
)

// CacheTier is the durable L3 cache tier. Expiry is delegated to badger's native TTL.
type CacheTier struct {
	backend *Backend
	now     func() time.Time
}

var _ cache.Tier = (*CacheTier)(nil)

// NewCacheTier creates an L3 tier on the backend.
func NewCacheTier(backend *Backend) *CacheTier {
	return &CacheTier{backend: backend, now: time.Now}
}

// Level implements cache.Tier.
func (c *CacheTier) Level() core.CacheTier {
	return core.TierL3
}

// Get implements cache.Tier.
func (c *CacheTier) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var entry *core.CacheEntry
	err := c.backend.View(func(tx *badger.Txn) error {
		var err error
		entry, err = readCacheEntry(tx, makeCacheKey(key))
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Expired(c.now()) {
		return nil, nil
	}
	entry.Tier = core.TierL3
	return entry, nil
}

// Put implements cache.Tier. The stored entry carries a badger TTL equal to
// its remaining lifetime; already-expired entries are not written.
func (c *CacheTier) Put(ctx context.Context, entry *core.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	var ttl time.Duration
	if entry.TTL > 0 {
		ttl = entry.ExpiresAt().Sub(c.now())
		if ttl <= 0 {
			return nil
		}
	}
	key := makeCacheKey(entry.Key)
	return c.backend.Update(func(tx *badger.Txn) error {
		existing, err := readCacheEntry(tx, key)
		if err != nil {
			return err
		}
		if existing != nil && existing.InsertedAt.After(entry.InsertedAt) {
			return nil
		}
		stored := *entry
		stored.Tier = core.TierL3
		e := badger.NewEntry(key, storage.MarshalCacheEntry(&stored))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return tx.SetEntry(e)
	})
}

// Delete implements cache.Tier.
func (c *CacheTier) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.backend.Update(func(tx *badger.Txn) error {
		return tx.Delete(makeCacheKey(key))
	})
}

// Purge removes every cache entry, leaving runs untouched.
func (c *CacheTier) Purge() error {
	if err := c.backend.DropPrefix(cacheEntryPrefix); err != nil {
		return fmt.Errorf("purge cache entries: %w", err)
	}
	return nil
}

func readCacheEntry(tx *badger.Txn, key []byte) (*core.CacheEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var entry *core.CacheEntry
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entry, unmarshalErr = storage.UnmarshalCacheEntry(val)
		return unmarshalErr
	})
	return entry, err
}
