package kitchenauth

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventOtpRequested         = "otp_requested"
	auditEventOtpRequestFailure    = "otp_request_failure"
	auditEventOtpVerified          = "otp_verified"
	auditEventOtpVerifyFailure     = "otp_verify_failure"
	auditEventOtpAttemptsExceeded  = "otp_attempts_exceeded"
	auditEventPasswordResetApplied = "password_reset_applied"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventLogout               = "logout"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
)

// AuditErrorCode is the stable machine-readable failure label carried on
// audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccessDenied       AuditErrorCode = "access_denied"
	auditErrNotRegistered      AuditErrorCode = "mobile_not_registered"
	auditErrOtpNotRequested    AuditErrorCode = "otp_not_requested"
	auditErrOtpExpired         AuditErrorCode = "otp_expired"
	auditErrOtpInvalid         AuditErrorCode = "otp_invalid"
	auditErrAttemptsExceeded   AuditErrorCode = "otp_attempts_exceeded"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID int64,
	tenantID int64,
	phone string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		TenantID:  strconv.FormatInt(tenantID, 10),
		Phone:     maskPhone(phone),
		IP:        sanitizeAuditField(clientIPFromContext(ctx)),
		UserAgent: sanitizeAuditField(userAgentFromContext(ctx)),
		Success:   success,
		Metadata:  metadata,
	}
	if subjectID != 0 {
		event.SubjectID = strconv.FormatInt(subjectID, 10)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, tenantID int64, phone string) {
	e.metrics.Inc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, 0, tenantID, phone, ErrRateLimitExceeded, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccessDenied):
		return auditErrAccessDenied
	case errors.Is(err, ErrMobileNotRegistered):
		return auditErrNotRegistered
	case errors.Is(err, ErrOtpNotRequested):
		return auditErrOtpNotRequested
	case errors.Is(err, ErrOtpExpired):
		return auditErrOtpExpired
	case errors.Is(err, ErrOtpInvalid):
		return auditErrOtpInvalid
	case errors.Is(err, ErrOtpAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrRateLimitExceeded):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrServiceUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
