package token

import "errors"

var (
	// ErrMalformed reports input that is not a structurally valid token.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired reports a token past its expiry (after leeway).
	ErrExpired = errors.New("token expired")
	// ErrBadSignature reports a signature, issuer, or audience failure.
	// The three are deliberately indistinguishable to avoid oracle leakage.
	ErrBadSignature = errors.New("invalid token signature")
	// ErrRevoked reports a token whose jti is in the revocation set.
	ErrRevoked = errors.New("token revoked")
	// ErrWrongType reports a token presented on the wrong path, e.g. a
	// refresh token used as an access token.
	ErrWrongType = errors.New("wrong token type")
	// ErrNumberFormat reports a claim whose value is not the expected
	// numeric shape.
	ErrNumberFormat = errors.New("claim number format")
	// ErrStoreUnavailable reports a revocation store backend failure.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
)
