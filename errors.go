package kitchenauth

import (
	"errors"
	"net/http"

	"github.com/AspireQ-pro/kitchenauth/token"
)

var (
	// ErrValidation reports malformed or missing input. It is returned
	// before any persistence call is made.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials reports a failed password login. The message
	// never reveals whether the phone or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccessDenied reports an authorization failure: inactive account,
	// wrong user category for the tenant path, or cross-tenant access.
	ErrAccessDenied = errors.New("access denied")
	// ErrMobileNotRegistered reports that no identity exists for the
	// requested phone and tenant.
	ErrMobileNotRegistered = errors.New("mobile number not registered")
	// ErrAlreadyExists reports a conflicting unique field.
	ErrAlreadyExists = errors.New("already exists")

	// ErrOtpNotRequested reports a verification attempt with no active code.
	ErrOtpNotRequested = errors.New("otp not requested")
	// ErrOtpExpired reports a verification attempt after the code's expiry.
	ErrOtpExpired = errors.New("otp expired")
	// ErrOtpInvalid reports a code mismatch. Each mismatch consumes an attempt.
	ErrOtpInvalid = errors.New("invalid otp")
	// ErrOtpAttemptsExceeded reports that the attempt budget is exhausted
	// and the code has been cleared.
	ErrOtpAttemptsExceeded = errors.New("otp attempts exceeded")

	// ErrRateLimitExceeded reports that a request exceeded its rate window.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrServiceUnavailable reports a downstream dependency failure, e.g.
	// SMS dispatch. The OTP may still have been persisted server-side.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTokenExpired reports a token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken reports any other token failure: malformed input,
	// bad signature, issuer/audience mismatch, revocation, or wrong type.
	// The causes are deliberately not distinguished to the caller.
	ErrInvalidToken = errors.New("invalid token")

	// ErrEngineNotReady reports use of an Engine that was not built through
	// the Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// HTTPStatus maps an engine error to the HTTP status code the boundary layer
// should respond with. Unknown errors map to 500 and must not leak detail.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrMobileNotRegistered),
		errors.Is(err, ErrOtpNotRequested):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrOtpExpired),
		errors.Is(err, ErrOtpInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrOtpAttemptsExceeded),
		errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// tokenError collapses token-layer parse failures into the public taxonomy.
// Expiry stays distinguishable and a revocation-store outage is a backend
// failure, not a verdict on the token; every other cause is ErrInvalidToken.
func tokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrStoreUnavailable):
		return ErrServiceUnavailable
	default:
		return ErrInvalidToken
	}
}
