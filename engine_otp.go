package kitchenauth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/AspireQ-pro/kitchenauth/internal"
	"github.com/AspireQ-pro/kitchenauth/internal/rate"
)

// RequestOTP generates and dispatches a fresh code for the identity behind
// (phone, tenant). A still-live previous code is superseded, never reused.
// The code is persisted before SMS dispatch, so a delivery failure surfaces
// as ErrServiceUnavailable while the code still exists server-side; the
// recovery path is simply requesting a new one.
func (e *Engine) RequestOTP(ctx context.Context, phone string, tenantID int64, otpType OtpType) error {
	if !e.ready() || e.sms == nil {
		return ErrEngineNotReady
	}
	phone = strings.TrimSpace(phone)
	if phone == "" || tenantID < 0 || otpType == "" {
		return ErrValidation
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.AllowOtp(ctx, phone); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metrics.Inc(MetricOtpRequestFailure)
				e.emitRateLimit(ctx, "otp_request", tenantID, phone)
				return ErrRateLimitExceeded
			}
			return ErrServiceUnavailable
		}
	}

	identity, err := e.identities.FindByPhoneAndTenant(ctx, phone, tenantID)
	if err != nil || identity == nil {
		e.failOtpRequest(ctx, tenantID, phone, ErrMobileNotRegistered)
		return ErrMobileNotRegistered
	}
	if !identity.Active || e.otp.blocked(identity) {
		e.failOtpRequest(ctx, tenantID, phone, ErrAccessDenied)
		return ErrAccessDenied
	}

	code, err := e.otp.issue(ctx, identity, otpType)
	if err != nil {
		e.failOtpRequest(ctx, tenantID, phone, ErrServiceUnavailable)
		return ErrServiceUnavailable
	}

	if !e.sms.Send(ctx, phone, code) {
		e.metrics.Inc(MetricSmsDispatchFailure)
		e.failOtpRequest(ctx, tenantID, phone, ErrServiceUnavailable)
		return ErrServiceUnavailable
	}

	e.metrics.Inc(MetricOtpRequested)
	e.emitAudit(ctx, auditEventOtpRequested, true, identity.ID, tenantID, phone, nil, func() map[string]string {
		return map[string]string{"otp_type": string(otpType)}
	})
	return nil
}

// VerifyOTP checks a submitted code and, on success, issues a token pair
// bound to the effective tenant. A password-reset verification additionally
// assigns a fresh random strong password: proving phone ownership is
// sufficient to replace a forgotten password, never to reveal the old one.
func (e *Engine) VerifyOTP(ctx context.Context, phone string, tenantID int64, otpType OtpType, code string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	phone = strings.TrimSpace(phone)
	if phone == "" || tenantID < 0 || code == "" {
		return nil, ErrValidation
	}

	identity, err := e.identities.FindByPhoneAndTenant(ctx, phone, tenantID)
	if err != nil || identity == nil {
		e.failOtpVerify(ctx, tenantID, phone, 0, ErrMobileNotRegistered)
		return nil, ErrMobileNotRegistered
	}
	if !identity.Active {
		e.failOtpVerify(ctx, tenantID, phone, identity.Otp.Attempts, ErrAccessDenied)
		return nil, ErrAccessDenied
	}

	if err := e.otp.verify(ctx, identity, tenantID, otpType, code); err != nil {
		if errors.Is(err, ErrOtpAttemptsExceeded) {
			e.metrics.Inc(MetricOtpAttemptsExceeded)
			e.emitAudit(ctx, auditEventOtpAttemptsExceeded, false, identity.ID, tenantID, phone, err, nil)
			return nil, err
		}
		e.failOtpVerify(ctx, tenantID, phone, identity.Otp.Attempts, err)
		return nil, err
	}

	if otpType == OtpPasswordReset {
		if err := e.assignRandomPassword(ctx, identity); err != nil {
			e.failOtpVerify(ctx, tenantID, phone, identity.Otp.Attempts, ErrServiceUnavailable)
			return nil, ErrServiceUnavailable
		}
		e.emitAudit(ctx, auditEventPasswordResetApplied, true, identity.ID, tenantID, phone, nil, nil)
	}

	effective := resolveEffectiveTenant(tenantID, identity.TenantID)
	pair, err := e.issuePair(ctx, identity.ID, effective)
	if err != nil {
		e.failOtpVerify(ctx, tenantID, phone, identity.Otp.Attempts, err)
		return nil, err
	}

	// The code is consumed only now that every side effect has landed.
	if err := e.otp.clear(ctx, identity); err != nil {
		return nil, ErrServiceUnavailable
	}

	e.metrics.Inc(MetricOtpVerified)
	e.emitAudit(ctx, auditEventOtpVerified, true, identity.ID, effective, phone, nil, func() map[string]string {
		return map[string]string{"otp_type": string(otpType)}
	})
	return pair, nil
}

func (e *Engine) failOtpRequest(ctx context.Context, tenantID int64, phone string, cause error) {
	e.metrics.Inc(MetricOtpRequestFailure)
	e.emitAudit(ctx, auditEventOtpRequestFailure, false, 0, tenantID, phone, cause, nil)
}

func (e *Engine) failOtpVerify(ctx context.Context, tenantID int64, phone string, attempts int, cause error) {
	e.metrics.Inc(MetricOtpVerifyFailure)
	e.emitAudit(ctx, auditEventOtpVerifyFailure, false, 0, tenantID, phone, cause, func() map[string]string {
		return map[string]string{"attempts": strconv.Itoa(attempts)}
	})
}

func (e *Engine) assignRandomPassword(ctx context.Context, identity *Identity) error {
	if e.passwordHash == nil {
		return ErrEngineNotReady
	}
	generated, err := internal.NewStrongPassword()
	if err != nil {
		return err
	}
	hashed, err := e.passwordHash.Hash(generated)
	if err != nil {
		return err
	}
	identity.PasswordHash = hashed
	return e.identities.SavePasswordHash(ctx, identity)
}
