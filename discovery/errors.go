package discovery

import "errors"

var (
	// ErrProviderRequired is returned when a Fanout is built without a primary provider.
	ErrProviderRequired = errors.New("discovery provider required")

	// ErrLimiterRequired is returned when a Fanout is built without a rate limiter.
	ErrLimiterRequired = errors.New("rate limiter required")

	// errAdmissionDenied marks a variant dropped because waiting for the limiter
	// would overrun the request deadline.
	errAdmissionDenied = errors.New("rate limiter wait exceeds deadline")
)
