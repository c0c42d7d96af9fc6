package kitchenauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/AspireQ-pro/kitchenauth/internal"
)

const otpLockStripes = 64

// otpLifecycle owns the request/verify/clear cycle of per-identity codes.
// Attempt accounting is linearized per identity through striped mutexes so
// two concurrent verifications cannot both observe the same attempt count.
type otpLifecycle struct {
	cfg   OtpConfig
	store IdentityLookup
	locks [otpLockStripes]sync.Mutex
}

func newOtpLifecycle(cfg OtpConfig, store IdentityLookup) *otpLifecycle {
	return &otpLifecycle{cfg: cfg, store: store}
}

func (l *otpLifecycle) lock(identityID int64) *sync.Mutex {
	return &l.locks[uint64(identityID)%otpLockStripes]
}

// issue generates a fresh code, persists it on the identity, and returns the
// clear digits for out-of-band delivery. A still-live previous code is
// overwritten unconditionally: only the latest code can ever verify.
func (l *otpLifecycle) issue(ctx context.Context, identity *Identity, otpType OtpType) (string, error) {
	code, err := internal.NewOTP(l.cfg.Digits)
	if err != nil {
		return "", fmt.Errorf("otp generation: %w", err)
	}

	mu := l.lock(identity.ID)
	mu.Lock()
	defer mu.Unlock()

	expiry := time.Now().Add(l.cfg.TTLFor(otpType))
	identity.Otp.Code = l.atRest(code)
	identity.Otp.Type = otpType
	identity.Otp.ExpiresAt = &expiry
	identity.Otp.Attempts = 0
	identity.Otp.Used = false

	if err := l.store.SaveOtpFields(ctx, identity); err != nil {
		return "", err
	}
	return code, nil
}

// verify checks a submitted code against the identity's stored state. The
// identity is re-read under the stripe lock: stores that return a fresh copy
// per lookup would otherwise let concurrent attempts charge the same counter
// value. The caller's snapshot is synced to the persisted state on return.
// The gates run in a fixed order so the caller-visible error always names
// the earliest failed precondition. Expiry and attempt exhaustion clear the
// stored state. A match marks the code used and persists that; the caller
// clears the record explicitly once its own follow-up actions (token
// issuance, password assignment) are complete.
func (l *otpLifecycle) verify(ctx context.Context, identity *Identity, tenantID int64, otpType OtpType, submitted string) error {
	mu := l.lock(identity.ID)
	mu.Lock()
	defer mu.Unlock()

	fresh, err := l.store.FindByPhoneAndTenant(ctx, identity.Phone, tenantID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return ErrOtpNotRequested
	}
	defer func() { identity.Otp = fresh.Otp }()

	now := time.Now()
	state := &fresh.Otp

	if state.BlockedUntil != nil && now.Before(*state.BlockedUntil) {
		return ErrOtpAttemptsExceeded
	}
	if !state.Active() || state.Type != otpType {
		return ErrOtpNotRequested
	}
	if now.After(*state.ExpiresAt) {
		state.Clear()
		if err := l.store.SaveOtpFields(ctx, fresh); err != nil {
			return err
		}
		return ErrOtpExpired
	}
	if state.Attempts >= l.cfg.MaxAttempts {
		state.Clear()
		if err := l.store.SaveOtpFields(ctx, fresh); err != nil {
			return err
		}
		return ErrOtpAttemptsExceeded
	}

	// The attempt counter is append-only: a mismatch is charged even when
	// the subsequent persist fails, so retries after transient errors still
	// consume budget.
	if !constantTimeEqual(state.Code, l.atRest(submitted)) {
		state.Attempts++
		if err := l.store.SaveOtpFields(ctx, fresh); err != nil {
			return err
		}
		return ErrOtpInvalid
	}

	state.Used = true
	if err := l.store.SaveOtpFields(ctx, fresh); err != nil {
		return err
	}
	return nil
}

// blocked reports whether the identity is under an externally imposed
// verification block. The lifecycle only reads the field.
func (l *otpLifecycle) blocked(identity *Identity) bool {
	return identity.Otp.BlockedUntil != nil && time.Now().Before(*identity.Otp.BlockedUntil)
}

// clear wipes the identity's OTP fields after a completed flow.
func (l *otpLifecycle) clear(ctx context.Context, identity *Identity) error {
	mu := l.lock(identity.ID)
	mu.Lock()
	defer mu.Unlock()

	identity.Otp.Clear()
	return l.store.SaveOtpFields(ctx, identity)
}

// atRest maps clear digits to their stored representation.
func (l *otpLifecycle) atRest(code string) string {
	if !l.cfg.HashAtRest {
		return code
	}
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// constantTimeEqual compares two stored-form codes without leaking where
// they diverge. Lengths are public (digit count and hash width are both
// configuration, not secrets).
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
