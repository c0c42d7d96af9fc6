package kitchenauth

import (
	"context"
	"errors"
	"time"

	"github.com/AspireQ-pro/kitchenauth/internal/rate"
	"github.com/AspireQ-pro/kitchenauth/password"
	"github.com/AspireQ-pro/kitchenauth/token"
)

// Engine is the authentication facade. It owns no persistent state of its
// own: identities come from the injected [IdentityLookup], tokens from the
// token manager, and rate windows from the limiter store. Construct it
// through [Builder]; the zero value is not usable.
type Engine struct {
	config       Config
	identities   IdentityLookup
	roles        RoleLookup
	sms          SmsSender
	tokens       *token.Manager
	otp          *otpLifecycle
	rateLimiter  *rate.Limiter
	passwordHash *password.Hasher
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close drains and stops the audit dispatcher. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters at one point in time.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil || e.metrics == nil {
		return map[MetricID]uint64{}
	}
	snap := e.metrics.Snapshot()
	if len(snap) > 0 && e.audit != nil {
		snap[MetricAuditDropped] = e.audit.Dropped()
	}
	return snap
}

func (e *Engine) ready() bool {
	return e != nil && e.identities != nil && e.tokens != nil && e.otp != nil
}

// ValidateAccess verifies a presented access token and returns the identity
// and authorization claims it carries. No database round-trip is made: the
// roles and permissions are the ones sealed into the token at issue time.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ValidateAccess(ctx, accessToken)
	if err != nil {
		return nil, tokenError(err)
	}
	subjectID, err := claims.SubjectID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &AuthResult{
		SubjectID:   subjectID,
		TenantID:    claims.Tenant(),
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}, nil
}

// AllowClient checks the generic per-client API budget: a fixed per-minute
// bucket keyed by the caller-derived client identifier. Exceeding it returns
// ErrRateLimitExceeded; a store failure returns ErrServiceUnavailable.
func (e *Engine) AllowClient(ctx context.Context, clientID string) error {
	if e == nil || e.rateLimiter == nil {
		return ErrEngineNotReady
	}
	if err := e.rateLimiter.AllowAPI(ctx, clientID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.emitRateLimit(ctx, "api", 0, "")
			return ErrRateLimitExceeded
		}
		return ErrServiceUnavailable
	}
	return nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// access+refresh pair is issued. Rotation makes every refresh token
// single-use; presenting the same token twice fails the second time.
// Any parse failure surfaces as ErrInvalidCredentials so callers cannot
// probe the revocation set.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, token.ErrStoreUnavailable) {
			return nil, ErrServiceUnavailable
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, 0, 0, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}
	subjectID, err := claims.SubjectID()
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrInvalidCredentials
	}

	// Revoke before issuing: if revocation fails the old token must stay
	// valid rather than coexist with a fresh pair.
	if err := e.tokens.Revoke(ctx, refreshToken); err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, token.ErrStoreUnavailable) {
			return nil, ErrServiceUnavailable
		}
		return nil, ErrInvalidCredentials
	}

	pair, err := e.issuePair(ctx, subjectID, claims.Tenant())
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, subjectID, claims.Tenant(), "", nil, nil)
	return pair, nil
}

// Logout revokes the presented token for the remainder of its validity
// window. Best-effort: a failure is surfaced but leaves no partial state.
func (e *Engine) Logout(ctx context.Context, presentedToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.tokens.Revoke(ctx, presentedToken); err != nil {
		if errors.Is(err, token.ErrStoreUnavailable) {
			return ErrServiceUnavailable
		}
		return tokenError(err)
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, 0, 0, "", nil, nil)
	return nil
}

// issuePair creates an access+refresh pair for the subject in the effective
// tenant scope. Roles and permissions are resolved fresh and sealed into the
// access token only.
func (e *Engine) issuePair(ctx context.Context, subjectID, effectiveTenant int64) (*TokenPair, error) {
	var merchantID *int64
	if effectiveTenant != platformTenant {
		merchantID = &effectiveTenant
	}

	var roles, permissions []string
	if e.roles != nil {
		var err error
		if roles, err = e.roles.RolesFor(ctx, subjectID, effectiveTenant); err != nil {
			return nil, ErrServiceUnavailable
		}
		if permissions, err = e.roles.PermissionsFor(ctx, subjectID, effectiveTenant); err != nil {
			return nil, ErrServiceUnavailable
		}
	}

	access, err := e.tokens.IssueAccess(subjectID, merchantID, roles, permissions)
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.IssueRefresh(subjectID, merchantID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(e.config.Token.AccessTTL),
	}, nil
}
