package ratelimit

import (
	"errors"
	"time"
)

// Profile holds the adaptation thresholds for one provider.
type Profile struct {
	// InitialRate is the allowed request rate (per second) before any adaptation.
	InitialRate float64

	// MinRate and MaxRate bound the adapted rate.
	MinRate float64
	MaxRate float64

	// Burst is the token bucket size.
	Burst int

	// FastThreshold: a window average below it raises the rate.
	FastThreshold time.Duration

	// SlowThreshold: a window average above it lowers the rate.
	SlowThreshold time.Duration

	// AdjustPercent is the relative step applied on each adjustment (0.2 = 20%).
	AdjustPercent float64

	// MinSamples is how many new samples must arrive before the average is recomputed.
	MinSamples int

	// Window is the sliding window of latency samples.
	Window time.Duration

	// FailureLatency is the latency recorded for hard failures (5xx, timeouts).
	// It should match the provider's call timeout.
	FailureLatency time.Duration
}

// DefaultProfile returns the profile used for providers without explicit configuration.
func DefaultProfile() Profile {
	return Profile{
		InitialRate:    2,
		MinRate:        0.2,
		MaxRate:        10,
		Burst:          2,
		FastThreshold:  800 * time.Millisecond,
		SlowThreshold:  3 * time.Second,
		AdjustPercent:  0.2,
		MinSamples:     3,
		Window:         60 * time.Second,
		FailureLatency: 30 * time.Second,
	}
}

// Validate checks the profile for internal consistency.
func (p Profile) Validate() error {
	if p.MinRate <= 0 || p.MaxRate < p.MinRate {
		return errors.New("ratelimit: require 0 < MinRate <= MaxRate")
	}
	if p.InitialRate < p.MinRate || p.InitialRate > p.MaxRate {
		return errors.New("ratelimit: InitialRate must be within [MinRate, MaxRate]")
	}
	if p.Burst < 1 {
		return errors.New("ratelimit: Burst must be at least 1")
	}
	if p.FastThreshold <= 0 || p.SlowThreshold <= p.FastThreshold {
		return errors.New("ratelimit: require 0 < FastThreshold < SlowThreshold")
	}
	if p.AdjustPercent <= 0 || p.AdjustPercent >= 1 {
		return errors.New("ratelimit: AdjustPercent must be in (0, 1)")
	}
	if p.MinSamples < 3 {
		return errors.New("ratelimit: MinSamples must be at least 3")
	}
	if p.Window <= 0 {
		return errors.New("ratelimit: Window must be positive")
	}
	return nil
}
