package token

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TypeAccess is the type claim value of access tokens.
	TypeAccess = "access"
	// TypeRefresh is the type claim value of refresh tokens.
	TypeRefresh = "refresh"
)

// Config holds the token envelope parameters. Issuer and Audience are
// mandatory claims; mismatches on parse are indistinguishable from signature
// failures.
type Config struct {
	// Secret is the HMAC-SHA256 key, at least 32 bytes.
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	// Leeway is the clock-skew tolerance on expiry checks.
	Leeway time.Duration
}

// Claims is the strongly-typed claim set. It is serialized exactly once at
// issue time and deserialized exactly once at parse time; callers never
// re-inspect loosely-typed maps.
type Claims struct {
	TokenType string `json:"type"`
	// MerchantID is the effective tenant. nil means platform-level.
	MerchantID  *int64   `json:"merchantId"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject claim as a numeric id.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrNumberFormat
	}
	return id, nil
}

// Tenant returns the effective tenant id, 0 for platform-level tokens.
func (c *Claims) Tenant() int64 {
	if c.MerchantID == nil {
		return 0
	}
	return *c.MerchantID
}

// Manager creates, parses, validates, and revokes signed session tokens.
// It owns the revocation set through the injected [RevocationStore].
type Manager struct {
	config  Config
	revoked RevocationStore
}

// NewManager validates the configuration and returns a Manager. A missing or
// short secret is a fatal configuration error, never degraded at runtime.
func NewManager(cfg Config, revoked RevocationStore) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("issuer and audience are required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if revoked == nil {
		revoked = NewMemoryRevocationStore()
	}

	return &Manager{config: cfg, revoked: revoked}, nil
}

// IssueAccess creates a signed access token for the subject in the given
// tenant scope. Roles and permissions ride in the token so downstream
// services can authorize without a lookup.
func (m *Manager) IssueAccess(subjectID int64, merchantID *int64, roles, permissions []string) (string, error) {
	return m.issue(TypeAccess, subjectID, merchantID, roles, permissions, m.config.AccessTTL)
}

// IssueRefresh creates a signed refresh token. The claim set omits roles and
// permissions; only the distinct type claim and identity survive.
func (m *Manager) IssueRefresh(subjectID int64, merchantID *int64) (string, error) {
	return m.issue(TypeRefresh, subjectID, merchantID, nil, nil, m.config.RefreshTTL)
}

func (m *Manager) issue(typ string, subjectID int64, merchantID *int64, roles, permissions []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType:   typ,
		MerchantID:  merchantID,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			Subject:   strconv.FormatInt(subjectID, 10),
			Audience:  jwt.ClaimStrings{m.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies and decodes a token. Failures are classified as
// ErrMalformed, ErrExpired, ErrBadSignature, or ErrRevoked. Revocation is
// checked as soon as the claims are available, before the result is trusted
// for any business decision; a forged jti still fails signature verification
// first, so the ordering only short-circuits revoked-but-otherwise-valid
// tokens.
func (m *Manager) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrBadSignature
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}
	if revoked {
		return nil, ErrRevoked
	}

	return claims, nil
}

// ValidateAccess parses the token and requires the access type claim.
func (m *Manager) ValidateAccess(ctx context.Context, tokenStr string) (*Claims, error) {
	return m.validateType(ctx, tokenStr, TypeAccess)
}

// ValidateRefresh parses the token and requires the refresh type claim.
func (m *Manager) ValidateRefresh(ctx context.Context, tokenStr string) (*Claims, error) {
	return m.validateType(ctx, tokenStr, TypeRefresh)
}

func (m *Manager) validateType(ctx context.Context, tokenStr, typ string) (*Claims, error) {
	claims, err := m.Parse(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != typ {
		return nil, ErrWrongType
	}
	return claims, nil
}

// Revoke adds the token's jti to the revocation set for the remainder of the
// token's own validity window. Revoking an already-expired token is a no-op.
// The signature is still verified so arbitrary input cannot grow the set.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrMalformed
	}

	ttl := time.Until(claims.ExpiresAt.Time) + m.config.Leeway
	if ttl <= 0 {
		return nil
	}

	if err := m.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// SubjectID parses the token and extracts the numeric subject id.
func (m *Manager) SubjectID(ctx context.Context, tokenStr string) (int64, error) {
	claims, err := m.Parse(ctx, tokenStr)
	if err != nil {
		return 0, err
	}
	return claims.SubjectID()
}

// TenantID parses the token and extracts the effective tenant id.
func (m *Manager) TenantID(ctx context.Context, tokenStr string) (int64, error) {
	claims, err := m.Parse(ctx, tokenStr)
	if err != nil {
		return 0, err
	}
	return claims.Tenant(), nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		// Signature, issuer, audience, nbf, and claim-shape failures all
		// collapse to one cause.
		return ErrBadSignature
	}
}
