package rate

import (
	"context"
	"time"
)

// Store holds the rate-limit windows. Implementations must be safe under
// concurrent mutation from many request-handling goroutines and must bound
// their own memory by discarding stale windows.
type Store interface {
	// AllowRolling atomically checks and records a hit against a rolling
	// window. Only accepted hits are recorded, so a denied burst does not
	// extend the lockout beyond the window of the accepted requests.
	AllowRolling(ctx context.Context, key string, max int, window time.Duration) (bool, error)

	// IncrBucket increments a fixed-window counter, arming the window TTL
	// on the first hit, and returns the running count.
	IncrBucket(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
