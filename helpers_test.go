package kitchenauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AspireQ-pro/kitchenauth/internal/rate"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type mockIdentityStore struct {
	mu        sync.Mutex
	users     map[string]*Identity // phone -> identity
	otpSaves  int
	hashSaves int
	failSaves bool
}

func newMockIdentityStore(users ...*Identity) *mockIdentityStore {
	s := &mockIdentityStore{users: make(map[string]*Identity)}
	for _, u := range users {
		s.users[u.Phone] = u
	}
	return s
}

func (s *mockIdentityStore) FindByPhoneAndTenant(_ context.Context, phone string, tenantID int64) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[phone]
	if !ok {
		return nil, ErrMobileNotRegistered
	}
	if tenantID != 0 && (u.TenantID == nil || *u.TenantID != tenantID) {
		return nil, ErrMobileNotRegistered
	}
	return u, nil
}

func (s *mockIdentityStore) SaveOtpFields(_ context.Context, _ *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return ErrServiceUnavailable
	}
	s.otpSaves++
	return nil
}

func (s *mockIdentityStore) SavePasswordHash(_ context.Context, _ *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return ErrServiceUnavailable
	}
	s.hashSaves++
	return nil
}

// copyingIdentityStore returns a fresh copy from every lookup, the way a
// row-scanning store does, and merges writes back under its own lock.
type copyingIdentityStore struct {
	mu       sync.Mutex
	identity *Identity
}

func newCopyingIdentityStore(identity *Identity) *copyingIdentityStore {
	return &copyingIdentityStore{identity: identity}
}

func (s *copyingIdentityStore) FindByPhoneAndTenant(_ context.Context, phone string, tenantID int64) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.identity
	if u == nil || u.Phone != phone {
		return nil, ErrMobileNotRegistered
	}
	if tenantID != 0 && (u.TenantID == nil || *u.TenantID != tenantID) {
		return nil, ErrMobileNotRegistered
	}
	cp := *u
	return &cp, nil
}

func (s *copyingIdentityStore) SaveOtpFields(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.Otp = identity.Otp
	return nil
}

func (s *copyingIdentityStore) SavePasswordHash(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.PasswordHash = identity.PasswordHash
	return nil
}

func (s *copyingIdentityStore) snapshot() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.identity
}

type mockRoles struct{}

func (mockRoles) RolesFor(_ context.Context, _, _ int64) ([]string, error) {
	return []string{"member"}, nil
}

func (mockRoles) PermissionsFor(_ context.Context, _, _ int64) ([]string, error) {
	return []string{"orders:read"}, nil
}

// captureSender records dispatched codes; fail makes every send report
// delivery failure.
type captureSender struct {
	mu    sync.Mutex
	sent  []string
	codes []string
	fail  bool
}

func (s *captureSender) Send(_ context.Context, phone, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return false
	}
	s.sent = append(s.sent, phone)
	s.codes = append(s.codes, code)
	return true
}

func (s *captureSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.SigningSecret = testSecret
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, store IdentityLookup, sender *captureSender) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithIdentityLookup(store).
		WithRoleLookup(mockRoles{}).
		WithSmsSender(sender).
		WithRateLimitStore(rate.NewMemoryStore(cfg.RateLimit.SweepInterval)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func tenantPtr(id int64) *int64 {
	return &id
}

func merchantIdentity(id int64, phone string, hash string, tenant int64) *Identity {
	return &Identity{ID: id, Phone: phone, PasswordHash: hash, Type: UserMerchant, TenantID: tenantPtr(tenant), Active: true}
}

func customerIdentity(id int64, phone string, tenant int64) *Identity {
	return &Identity{ID: id, Phone: phone, Type: UserCustomer, TenantID: tenantPtr(tenant), Active: true}
}

func pastTime(d time.Duration) *time.Time {
	ts := time.Now().Add(-d)
	return &ts
}

func futureTime(d time.Duration) *time.Time {
	ts := time.Now().Add(d)
	return &ts
}
