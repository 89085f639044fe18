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

// Package postgres provides the shared L2 cache tier on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/scout/cache"
	"github.com/poiesic/scout/core"
)

//go:embed schema.sql
var schemaSQL string

const connectTimeout = 10 * time.Second

// CacheTier is the shared L2 tier. Each write is a single upsert statement,
// so readers never observe a partial entry.
type CacheTier struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ cache.Tier = (*CacheTier)(nil)

// NewCacheTier connects to dbURL and fails fast if the database is unreachable.
func NewCacheTier(ctx context.Context, dbURL string) (*CacheTier, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &CacheTier{pool: pool, now: time.Now}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (c *CacheTier) EnsureSchema(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, schemaSQL)
	return err
}

// Close shuts down the connection pool.
func (c *CacheTier) Close() {
	c.pool.Close()
}

// Level implements cache.Tier.
func (c *CacheTier) Level() core.CacheTier {
	return core.TierL2
}

// Get implements cache.Tier.
func (c *CacheTier) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		value      []byte
		ttlMicros  int64
		insertedAt time.Time
	)
	err := c.pool.QueryRow(ctx, `
		SELECT value, ttl_micros, inserted_at
		FROM scout_cache
		WHERE key = $1
		  AND (expires_at IS NULL OR expires_at > $2)
	`, key, c.now()).Scan(&value, &ttlMicros, &insertedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &core.CacheEntry{
		Key:        key,
		Value:      value,
		Tier:       core.TierL2,
		TTL:        time.Duration(ttlMicros) * time.Microsecond,
		InsertedAt: insertedAt.UTC(),
	}, nil
}

// Put implements cache.Tier. The conflict clause keeps whichever write was inserted last.
func (c *CacheTier) Put(ctx context.Context, entry *core.CacheEntry) error {
	var expiresAt *time.Time
	if entry.TTL > 0 {
		exp := entry.ExpiresAt()
		expiresAt = &exp
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO scout_cache (key, value, ttl_micros, inserted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    ttl_micros = EXCLUDED.ttl_micros,
		    inserted_at = EXCLUDED.inserted_at,
		    expires_at = EXCLUDED.expires_at
		WHERE scout_cache.inserted_at <= EXCLUDED.inserted_at
	`, entry.Key, entry.Value, entry.TTL.Microseconds(), entry.InsertedAt, expiresAt)
	return err
}

// Delete implements cache.Tier.
func (c *CacheTier) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM scout_cache WHERE key = $1`, key)
	return err
}

// DeleteExpired removes entries past their expiry and returns how many were removed.
func (c *CacheTier) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM scout_cache WHERE expires_at <= $1`, c.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Purge removes every entry.
func (c *CacheTier) Purge(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM scout_cache`)
	return err
}
