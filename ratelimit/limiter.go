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

// Package ratelimit provides per-provider admission control that adapts the
// allowed request rate to observed response latency.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type sample struct {
	at      time.Time
	latency time.Duration
}

// state is the RateLimitState of a single provider.
// It is only touched with its own mutex held.
type state struct {
	mu         sync.Mutex
	profile    Profile
	bucket     *rate.Limiter
	current    float64
	samples    []sample
	pending    int // samples since the last recomputation
	lastAdjust time.Time
}

// Limiter is an AdaptiveRateLimiter. It is safe for concurrent use by
// any number of requests; each provider's state is locked independently.
type Limiter struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	fallback Profile
	states   map[string]*state
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithProfile sets the profile for a named provider.
func WithProfile(provider string, p Profile) Option {
	return func(l *Limiter) {
		l.profiles[provider] = p
	}
}

// WithDefaultProfile sets the profile used for providers without their own.
func WithDefaultProfile(p Profile) Option {
	return func(l *Limiter) {
		l.fallback = p
	}
}

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
	}
}

// New creates a Limiter. Profiles are validated lazily; an invalid profile
// falls back to DefaultProfile with a warning.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		profiles: make(map[string]Profile),
		fallback: DefaultProfile(),
		states:   make(map[string]*state),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ratelimit")
	return l
}

func (l *Limiter) stateFor(provider string) *state {
	l.mu.RLock()
	st, ok := l.states[provider]
	l.mu.RUnlock()
	if ok {
		return st
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.states[provider]; ok {
		return st
	}
	profile, ok := l.profiles[provider]
	if !ok {
		profile = l.fallback
	}
	if err := profile.Validate(); err != nil {
		l.logger.Warn("invalid rate limit profile, using default", "provider", provider, "err", err)
		profile = DefaultProfile()
	}
	st = &state{
		profile:    profile,
		bucket:     rate.NewLimiter(rate.Limit(profile.InitialRate), profile.Burst),
		current:    profile.InitialRate,
		lastAdjust: l.now(),
	}
	l.states[provider] = st
	return st
}

// Admit checks, without blocking, whether a call to provider may proceed now.
// When denied, waitHint is how long until a token is expected to be available.
// Callers that are denied must wait or skip; they must not spin on Admit.
func (l *Limiter) Admit(provider string) (allowed bool, waitHint time.Duration) {
	st := l.stateFor(provider)
	now := l.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.bucket.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Duration(float64(time.Second) / st.current)
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, delay
}

// RecordResponse feeds one observed call into the provider's latency window.
// Failed calls are recorded at the profile's FailureLatency so sustained
// outages push the rate down. The limiter never retries on its own.
func (l *Limiter) RecordResponse(provider string, latency time.Duration, success bool) {
	st := l.stateFor(provider)
	now := l.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	if !success && latency < st.profile.FailureLatency {
		latency = st.profile.FailureLatency
	}
	st.samples = append(st.samples, sample{at: now, latency: latency})
	st.prune(now)
	st.pending++
	if st.pending < st.profile.MinSamples {
		return
	}
	st.pending = 0

	avg := st.average()
	previous := st.current
	switch {
	case avg < st.profile.FastThreshold:
		st.current = min(st.current*(1+st.profile.AdjustPercent), st.profile.MaxRate)
	case avg > st.profile.SlowThreshold:
		st.current = max(st.current*(1-st.profile.AdjustPercent), st.profile.MinRate)
	default:
		return
	}
	if st.current == previous {
		return
	}
	st.bucket.SetLimitAt(now, rate.Limit(st.current))
	st.lastAdjust = now
	l.logger.Debug("adjusted provider rate",
		"provider", provider,
		"average", avg,
		"from", previous,
		"to", st.current)
}

// Rate returns the provider's current allowed rate in requests per second.
func (l *Limiter) Rate(provider string) float64 {
	st := l.stateFor(provider)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// LastAdjustment returns when the provider's rate last changed.
func (l *Limiter) LastAdjustment(provider string) time.Time {
	st := l.stateFor(provider)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastAdjust
}

// prune drops samples older than the window. Must be called with lock held.
func (st *state) prune(now time.Time) {
	cutoff := now.Add(-st.profile.Window)
	i := 0
	for i < len(st.samples) && st.samples[i].at.Before(cutoff) {
		i++
	}
	st.samples = st.samples[i:]
}

// average returns the mean latency of the window. Must be called with lock held.
func (st *state) average() time.Duration {
	if len(st.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range st.samples {
		total += s.latency
	}
	return total / time.Duration(len(st.samples))
}
