package prioritize

import (
	"errors"
	"time"
)

// Config bounds the prioritization stage.
type Config struct {
	// BatchSize is the number of URLs per classification call. Small batches
	// keep each response within the model's output budget.
	BatchSize int

	// MaxURLs caps how many URLs are considered at all.
	MaxURLs int

	// BatchTimeout is the hard limit for one primary scoring call.
	BatchTimeout time.Duration

	// Concurrency is how many batches are scored at once.
	Concurrency int

	// KeepThreshold is the lexical score at or above which a URL is kept.
	KeepThreshold float64
}

// DefaultConfig returns the prioritizer defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     3,
		MaxURLs:       12,
		BatchTimeout:  10 * time.Second,
		Concurrency:   4,
		KeepThreshold: 0.3,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	if c.MaxURLs < 1 {
		return errors.New("max URLs must be at least 1")
	}
	if c.BatchTimeout <= 0 {
		return errors.New("batch timeout must be positive")
	}
	if c.Concurrency < 1 {
		return errors.New("prioritizer concurrency must be at least 1")
	}
	if c.KeepThreshold < 0 || c.KeepThreshold > 1 {
		return errors.New("keep threshold must be between 0 and 1")
	}
	return nil
}
