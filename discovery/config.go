package discovery

import (
	"errors"
	"time"

	"github.com/poiesic/scout/provider"
)

// Config holds fan-out limits.
type Config struct {
	// MaxVariants caps the number of query variants per request.
	MaxVariants int

	// Concurrency is the size of the dispatch worker pool.
	Concurrency int

	// PerProviderConcurrency caps in-flight calls to any single provider so a
	// slow provider cannot hold every worker.
	PerProviderConcurrency int

	// ResultsPerQuery is passed to providers as the result limit.
	ResultsPerQuery int

	// MaxAdmitWait bounds how long a variant waits for the rate limiter when
	// the request has no deadline.
	MaxAdmitWait time.Duration

	// CacheTTL is the lifetime of cached provider responses.
	CacheTTL time.Duration

	// Freshness rejects cache hits older than this, independent of TTL. 0 disables it.
	Freshness time.Duration

	// Policy is the per-call timeout and retry policy.
	Policy provider.Policy
}

// DefaultConfig returns the fan-out defaults.
func DefaultConfig() Config {
	return Config{
		MaxVariants:            15,
		Concurrency:            12,
		PerProviderConcurrency: 4,
		ResultsPerQuery:        20,
		MaxAdmitWait:           10 * time.Second,
		CacheTTL:               30 * time.Minute,
		Policy:                 provider.DefaultPolicy(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxVariants < 1 {
		return errors.New("max variants must be at least 1")
	}
	if c.Concurrency < 1 {
		return errors.New("fan-out concurrency must be at least 1")
	}
	if c.PerProviderConcurrency < 1 {
		return errors.New("per-provider concurrency must be at least 1")
	}
	if c.ResultsPerQuery < 1 {
		return errors.New("results per query must be at least 1")
	}
	if c.MaxAdmitWait < 0 {
		return errors.New("max admit wait must not be negative")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache TTL must be positive")
	}
	if c.Freshness < 0 {
		return errors.New("freshness must not be negative")
	}
	return c.Policy.Validate()
}
