package kitchenauth

import (
	"context"
	"log"
	"strings"
)

// Login authenticates a phone+password pair on a tenant path. The platform
// path (tenant 0) accepts admins and merchants; a concrete tenant path
// accepts only that tenant's customers. The returned pair is bound to the
// effective tenant resolved from the request and the identity's own record.
func (e *Engine) Login(ctx context.Context, phone, pass string, tenantID int64) (*TokenPair, error) {
	if !e.ready() || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	phone = strings.TrimSpace(phone)
	if phone == "" || pass == "" || tenantID < 0 {
		return nil, ErrValidation
	}

	identity, err := e.identities.FindByPhoneAndTenant(ctx, phone, tenantID)
	if err != nil || identity == nil {
		e.failLogin(ctx, tenantID, phone, ErrMobileNotRegistered)
		return nil, ErrMobileNotRegistered
	}

	if !allowedOnTenantPath(identity.Type, tenantID) || !identity.Active {
		e.failLogin(ctx, tenantID, phone, ErrAccessDenied)
		return nil, ErrAccessDenied
	}
	if identity.PasswordHash == "" {
		e.failLogin(ctx, tenantID, phone, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	match, err := e.passwordHash.Verify(pass, identity.PasswordHash)
	if err != nil || !match {
		e.failLogin(ctx, tenantID, phone, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	e.maybeRehash(ctx, identity, pass)

	effective := resolveEffectiveTenant(tenantID, identity.TenantID)
	pair, err := e.issuePair(ctx, identity.ID, effective)
	if err != nil {
		e.failLogin(ctx, tenantID, phone, err)
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, effective, phone, nil, nil)
	return pair, nil
}

func (e *Engine) failLogin(ctx context.Context, tenantID int64, phone string, cause error) {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, 0, tenantID, phone, cause, nil)
}

// maybeRehash transparently upgrades a stored hash produced under weaker
// parameters. Failure here never fails the login.
func (e *Engine) maybeRehash(ctx context.Context, identity *Identity, pass string) {
	stale, err := e.passwordHash.NeedsRehash(identity.PasswordHash)
	if err != nil || !stale {
		return
	}
	rehashed, err := e.passwordHash.Hash(pass)
	if err != nil {
		return
	}
	identity.PasswordHash = rehashed
	if err := e.identities.SavePasswordHash(ctx, identity); err != nil {
		log.Printf("kitchenauth: password rehash persist failed for subject %d: %v", identity.ID, err)
	}
}
