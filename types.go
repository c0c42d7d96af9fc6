package kitchenauth

import (
	"context"
	"time"
)

// UserType is the category of an identity. The password-login tenant paths
// are restricted by category: the platform path (tenant 0) accepts admins and
// merchants, the tenant path accepts customers only.
type UserType uint8

const (
	// UserAdmin is a platform-level super-admin.
	UserAdmin UserType = iota
	// UserMerchant owns a tenant.
	UserMerchant
	// UserCustomer belongs to a single tenant.
	UserCustomer
)

func (t UserType) String() string {
	switch t {
	case UserAdmin:
		return "admin"
	case UserMerchant:
		return "merchant"
	case UserCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

// OtpType distinguishes the flows a code can be requested for. Expiry windows
// are configurable per type.
type OtpType string

const (
	// OtpLogin authenticates an existing identity.
	OtpLogin OtpType = "login"
	// OtpPasswordReset proves phone ownership; verification triggers a
	// random password assignment, never disclosure of the old one.
	OtpPasswordReset OtpType = "password_reset"
	// OtpVerification confirms a newly registered phone number.
	OtpVerification OtpType = "verification"
)

// OtpState is the per-identity OTP value object embedded in [Identity].
// Code is only meaningful while ExpiresAt is in the future and Used is false.
// Setting a new code resets Attempts and Used.
type OtpState struct {
	// Code holds the stored code: the raw digits in clear-text mode, or
	// the hex SHA-256 of the digits when Otp.HashAtRest is enabled.
	Code         string
	Type         OtpType
	ExpiresAt    *time.Time
	Attempts     int
	Used         bool
	BlockedUntil *time.Time
}

// Active reports whether a code exists that has not been consumed.
// It does not check expiry; the lifecycle manager gates on that separately
// so expiry surfaces as its own outcome.
func (s *OtpState) Active() bool {
	return s != nil && s.Code != "" && !s.Used && s.ExpiresAt != nil
}

// Clear nulls every OTP field except BlockedUntil, which outlives individual
// code cycles.
func (s *OtpState) Clear() {
	s.Code = ""
	s.Type = ""
	s.ExpiresAt = nil
	s.Attempts = 0
	s.Used = false
}

// Identity is the user record supplied by the persistence collaborator.
// The engine reads it and writes back only the OTP fields and, on an
// OTP-driven reset, the password hash.
type Identity struct {
	ID           int64
	Phone        string
	PasswordHash string
	Type         UserType
	// TenantID is nil for platform-level identities (admins, and merchants
	// not yet bound to a tenant).
	TenantID *int64
	Active   bool
	Otp      OtpState
}

// IdentityLookup is the persistence collaborator interface. Implementations
// are expected to be safe for concurrent use; SaveOtpFields must be a
// transactional read-modify-write on the identity's OTP columns.
type IdentityLookup interface {
	// FindByPhoneAndTenant resolves an identity by phone within a tenant
	// scope. tenantID 0 addresses the platform scope. A missing identity
	// is reported with ErrMobileNotRegistered.
	FindByPhoneAndTenant(ctx context.Context, phone string, tenantID int64) (*Identity, error)
	// SaveOtpFields persists the identity's OtpState.
	SaveOtpFields(ctx context.Context, identity *Identity) error
	// SavePasswordHash persists a newly assigned password hash.
	SavePasswordHash(ctx context.Context, identity *Identity) error
}

// RoleLookup resolves roles and permissions for token issuance. Refresh
// tokens never carry either.
type RoleLookup interface {
	RolesFor(ctx context.Context, subjectID, tenantID int64) ([]string, error)
	PermissionsFor(ctx context.Context, subjectID, tenantID int64) ([]string, error)
}

// SmsSender dispatches a code out-of-band. It is fire-and-forget: the engine
// only observes the boolean success signal, and a delivery failure never
// rolls back the persisted OTP.
type SmsSender interface {
	Send(ctx context.Context, phone, code string) bool
}

// TokenPair is the result of a successful login, OTP verification, or
// refresh rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthResult is returned by [Engine.ValidateAccess] for downstream
// authorization decisions.
type AuthResult struct {
	SubjectID   int64
	TenantID    int64
	Roles       []string
	Permissions []string
}
