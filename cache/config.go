package cache

import (
	"errors"
	"time"

	"github.com/poiesic/scout/core"
)

const (
	DefaultL1Budget = 10 * time.Millisecond
	DefaultL2Budget = 50 * time.Millisecond
	DefaultL3Budget = 200 * time.Millisecond
)

// Config holds cache settings.
type Config struct {
	TTL        time.Duration // Lifetime of provider-result entries
	Freshness  time.Duration // Maximum age of a hit accepted by callers, 0 disables the filter
	L1Shards   int
	L1Capacity int // Maximum entries per L1 shard
	L1Budget   time.Duration
	L2Budget   time.Duration
	L3Budget   time.Duration
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		TTL:        30 * time.Minute,
		Freshness:  0,
		L1Shards:   32,
		L1Capacity: 512,
		L1Budget:   DefaultL1Budget,
		L2Budget:   DefaultL2Budget,
		L3Budget:   DefaultL3Budget,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return errors.New("cache TTL must be positive")
	}
	if c.Freshness < 0 {
		return errors.New("cache freshness must not be negative")
	}
	if c.L1Shards <= 0 {
		return errors.New("L1 shard count must be positive")
	}
	if c.L1Capacity <= 0 {
		return errors.New("L1 capacity must be positive")
	}
	if c.L1Budget <= 0 || c.L2Budget <= 0 || c.L3Budget <= 0 {
		return errors.New("tier budgets must be positive")
	}
	return nil
}

// Options converts budgets into MultiTier options.
func (c Config) Options() []Option {
	return []Option{
		WithBudget(core.TierL1, c.L1Budget),
		WithBudget(core.TierL2, c.L2Budget),
		WithBudget(core.TierL3, c.L3Budget),
	}
}
