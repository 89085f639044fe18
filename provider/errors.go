package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/poiesic/scout/core"
)

var (
	// ErrInvalidMaxRetries indicates a negative retry count.
	ErrInvalidMaxRetries = errors.New("max retries must not be negative")

	// ErrEndpointRequired indicates a provider built without a base URL.
	ErrEndpointRequired = errors.New("provider endpoint is required")
)

// StatusError is a non-2xx HTTP response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Code, e.Body)
}

// Is maps status codes onto the core taxonomy so errors.Is works on both.
func (e *StatusError) Is(target error) bool {
	switch target {
	case core.ErrProviderRateLimited:
		return e.Code == http.StatusTooManyRequests
	case core.ErrProviderTimeout:
		return e.Code == http.StatusGatewayTimeout || e.Code == http.StatusRequestTimeout
	}
	return false
}

// IsRetryable reports whether err is gateway or timeout class: 429, 502, 503, 504,
// network timeouts, and an expired per-call deadline. Other 4xx, malformed
// responses and caller cancellation are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable,
			http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, core.ErrProviderMalformedResponse) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, core.ErrProviderTimeout) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// Classify wraps err with the matching core taxonomy error for logging and metadata.
// Errors already in the taxonomy are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrProviderRateLimited),
		errors.Is(err, core.ErrProviderTimeout),
		errors.Is(err, core.ErrProviderMalformedResponse):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", core.ErrProviderTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", core.ErrProviderTimeout, err)
	}
	return err
}
