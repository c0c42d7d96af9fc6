package rate

import "errors"

var (
	// ErrRateLimited reports that the key exceeded its request budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable reports a rate-limit store backend failure.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
