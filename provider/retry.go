package provider

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Policy is the timeout and retry behavior for one provider.
type Policy struct {
	Timeout    time.Duration // Per-attempt timeout
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Backoff before the first retry, doubled each retry
	MaxDelay   time.Duration // Backoff cap
	Jitter     float64       // Fraction of the delay randomized, 0..1
}

// DefaultPolicy returns the policy used for providers without their own.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    20 * time.Second,
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Jitter:     0.3,
	}
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	if p.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if p.BaseDelay < 0 || p.MaxDelay < p.BaseDelay {
		return errors.New("provider backoff delays are inconsistent")
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return errors.New("provider jitter must be between 0 and 1")
	}
	return nil
}

// Backoff returns the delay before retry n (1-based), before jitter.
func (p Policy) Backoff(n int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(delay, p.MaxDelay)
}

func (p Policy) jittered(n int) time.Duration {
	delay := p.Backoff(n)
	if p.Jitter <= 0 || delay <= 0 {
		return delay
	}
	spread := float64(delay) * p.Jitter
	return time.Duration(float64(delay) - spread + rand.Float64()*2*spread)
}

// Attempt describes one finished call, for rate-limiter feedback.
type Attempt struct {
	Number  int
	Latency time.Duration
	Err     error
}

// RetryWithBackoff runs call until it succeeds, fails with a non-retryable
// error, or the retries are used up.
//
// Each attempt gets its own timeout derived from a context that ignores ctx's
// cancellation, so an in-flight call may outlive the request deadline. No new
// attempt starts once ctx is done. observe, if set, sees every attempt.
func RetryWithBackoff(ctx context.Context, p Policy, call func(ctx context.Context) error, observe func(Attempt)) error {
	if p.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	detached := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		actx, cancel := context.WithTimeout(detached, p.Timeout)
		start := time.Now()
		lastErr = Classify(call(actx))
		cancel()
		if observe != nil {
			observe(Attempt{Number: attempt, Latency: time.Since(start), Err: lastErr})
		}
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("provider call succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !IsRetryable(lastErr) || attempt == p.MaxRetries+1 {
			break
		}

		delay := p.jittered(attempt)
		slog.Debug("provider call failed, will retry", "attempt", attempt, "delay", delay, "error", lastErr)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
