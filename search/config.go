package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/scout/cache"
	"github.com/poiesic/scout/discovery"
	"github.com/poiesic/scout/extraction"
	"github.com/poiesic/scout/prioritize"
	"github.com/poiesic/scout/quality"
	"github.com/poiesic/scout/ratelimit"
	"github.com/poiesic/scout/rerank"
)

// ConfigVersion is the Config layout this package understands.
const ConfigVersion = 1

// maxExpansionSteps bounds window expansion so every run terminates.
const maxExpansionSteps = 2

// ExpansionConfig controls date-window widening.
type ExpansionConfig struct {
	// MinResults is the accepted-candidate count below which the window is widened.
	MinResults int

	// MaxSteps is the number of widenings allowed, at most 2.
	MaxSteps int

	// Factor scales the original window length into the per-step widening.
	Factor float64

	// MinStep is the smallest per-step widening, applied on each side.
	MinStep time.Duration
}

// Config is the complete, versioned set of orchestration thresholds.
type Config struct {
	Version int

	// RateLimit is the profile for providers without an entry in ProviderRateLimits.
	RateLimit          ratelimit.Profile
	ProviderRateLimits map[string]ratelimit.Profile

	Cache      cache.Config
	Discovery  discovery.Config
	Rerank     rerank.Config
	Prioritize prioritize.Config
	Quality    quality.Config
	Validation extraction.Config
	Expansion  ExpansionConfig

	// ExtractionConcurrency caps concurrent page extractions.
	ExtractionConcurrency int

	// ExtractionTimeout bounds one page extraction.
	ExtractionTimeout time.Duration

	// Deadline is the overall budget of one run. 0 leaves it to the caller's context.
	Deadline time.Duration
}

// DefaultConfig returns the defaults of every stage.
func DefaultConfig() Config {
	return Config{
		Version:    ConfigVersion,
		RateLimit:  ratelimit.DefaultProfile(),
		Cache:      cache.DefaultConfig(),
		Discovery:  discovery.DefaultConfig(),
		Rerank:     rerank.DefaultConfig(),
		Prioritize: prioritize.DefaultConfig(),
		Quality:    quality.DefaultConfig(),
		Validation: extraction.DefaultConfig(),
		Expansion: ExpansionConfig{
			MinResults: 3,
			MaxSteps:   maxExpansionSteps,
			Factor:     1,
			MinStep:    7 * 24 * time.Hour,
		},
		ExtractionConcurrency: 6,
		ExtractionTimeout:     30 * time.Second,
		Deadline:              3 * time.Minute,
	}
}

// Validate checks the version and every stage configuration.
func (c Config) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedConfigVersion, c.Version)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	for name, p := range c.ProviderRateLimits {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("rate limit for %s: %w", name, err)
		}
	}
	checks := []struct {
		stage string
		err   error
	}{
		{"cache", c.Cache.Validate()},
		{"discovery", c.Discovery.Validate()},
		{"rerank", c.Rerank.Validate()},
		{"prioritize", c.Prioritize.Validate()},
		{"quality", c.Quality.Validate()},
		{"validation", c.Validation.Validate()},
		{"expansion", c.Expansion.Validate()},
	}
	for _, check := range checks {
		if check.err != nil {
			return fmt.Errorf("%s: %w", check.stage, check.err)
		}
	}
	if c.ExtractionConcurrency < 1 {
		return errors.New("extraction concurrency must be at least 1")
	}
	if c.ExtractionTimeout <= 0 {
		return errors.New("extraction timeout must be positive")
	}
	if c.Deadline < 0 {
		return errors.New("deadline must not be negative")
	}
	return nil
}

// Validate checks the expansion settings.
func (e ExpansionConfig) Validate() error {
	if e.MinResults < 0 {
		return errors.New("min results must not be negative")
	}
	if e.MaxSteps < 0 || e.MaxSteps > maxExpansionSteps {
		return fmt.Errorf("max steps must be between 0 and %d", maxExpansionSteps)
	}
	if e.Factor < 0 || e.MinStep < 0 {
		return errors.New("expansion step must not be negative")
	}
	if e.MaxSteps > 0 && e.Factor == 0 && e.MinStep == 0 {
		return errors.New("expansion step must be positive when expansion is enabled")
	}
	return nil
}

// LimiterOptions converts the rate-limit profiles into limiter options.
func (c Config) LimiterOptions() []ratelimit.Option {
	opts := []ratelimit.Option{ratelimit.WithDefaultProfile(c.RateLimit)}
	for name, p := range c.ProviderRateLimits {
		opts = append(opts, ratelimit.WithProfile(name, p))
	}
	return opts
}

// step returns the widening applied on each side for expansion n (1-based).
func (e ExpansionConfig) step(window time.Duration, n int) time.Duration {
	return time.Duration(n) * max(e.MinStep, time.Duration(e.Factor*float64(window)))
}
