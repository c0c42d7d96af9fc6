package rate

import (
	"context"
	"time"
)

// Config holds limiter tuning parameters.
type Config struct {
	OtpMaxRequests int
	OtpWindow      time.Duration
	APIMaxRequests int
	APIWindow      time.Duration
}

// Limiter enforces the OTP rolling window and the generic per-client API
// bucket on top of a [Store].
type Limiter struct {
	store  Store
	config Config
}

// New creates a [Limiter] backed by the given store.
func New(store Store, cfg Config) *Limiter {
	return &Limiter{store: store, config: cfg}
}

// AllowOtp checks the per-phone OTP budget: at most OtpMaxRequests accepted
// requests in any rolling OtpWindow. Exceeding it fails hard; there is no
// silent degradation.
func (l *Limiter) AllowOtp(ctx context.Context, phone string) error {
	ok, err := l.store.AllowRolling(ctx, "otp:"+phone, l.config.OtpMaxRequests, l.config.OtpWindow)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

// AllowAPI checks the per-client fixed-window API budget.
func (l *Limiter) AllowAPI(ctx context.Context, clientID string) error {
	count, err := l.store.IncrBucket(ctx, "api:"+clientID, l.config.APIWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.APIMaxRequests) {
		return ErrRateLimited
	}
	return nil
}
