package kitchenauth

import (
	"context"
	"errors"
	"testing"

	"github.com/AspireQ-pro/kitchenauth/password"
)

func testHash(t *testing.T, pass string) string {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	hash, err := hasher.Hash(pass)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	return hash
}

func TestLoginSuccessMerchantPlatformPath(t *testing.T) {
	ctx := context.Background()
	hash := testHash(t, "correct-horse")
	store := newMockIdentityStore(merchantIdentity(1, "5550001111", hash, 7))
	engine := newTestEngine(t, testConfig(), store, &captureSender{})

	pair, err := engine.Login(ctx, "5550001111", "correct-horse", 0)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	// The platform request resolves to the merchant's own tenant.
	res, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if res.SubjectID != 1 || res.TenantID != 7 {
		t.Fatalf("got subject %d tenant %d, want 1/7", res.SubjectID, res.TenantID)
	}
	if len(res.Roles) == 0 || len(res.Permissions) == 0 {
		t.Fatal("access token must carry roles and permissions")
	}
}

func TestLoginCustomerOnPlatformPathDenied(t *testing.T) {
	ctx := context.Background()
	hash := testHash(t, "correct-horse")
	customer := customerIdentity(2, "5550002222", 7)
	customer.PasswordHash = hash
	engine := newTestEngine(t, testConfig(), newMockIdentityStore(customer), &captureSender{})

	// The failure must not reveal whether the account exists.
	_, err := engine.Login(ctx, "5550002222", "correct-horse", 0)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("got %v, want ErrAccessDenied", err)
	}
}

func TestLoginMerchantOnTenantPathDenied(t *testing.T) {
	ctx := context.Background()
	hash := testHash(t, "correct-horse")
	engine := newTestEngine(t, testConfig(), newMockIdentityStore(merchantIdentity(1, "5550001111", hash, 7)), &captureSender{})

	_, err := engine.Login(ctx, "5550001111", "correct-horse", 7)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("got %v, want ErrAccessDenied", err)
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	hash := testHash(t, "correct-horse")

	inactive := merchantIdentity(3, "5550003333", hash, 7)
	inactive.Active = false

	store := newMockIdentityStore(
		merchantIdentity(1, "5550001111", hash, 7),
		inactive,
	)
	engine := newTestEngine(t, testConfig(), store, &captureSender{})

	cases := []struct {
		name     string
		phone    string
		pass     string
		tenantID int64
		want     error
	}{
		{"empty phone", "", "correct-horse", 0, ErrValidation},
		{"empty password", "5550001111", "", 0, ErrValidation},
		{"negative tenant", "5550001111", "correct-horse", -1, ErrValidation},
		{"unknown phone", "5559999999", "correct-horse", 0, ErrMobileNotRegistered},
		{"wrong password", "5550001111", "wrong-horse-battery", 0, ErrInvalidCredentials},
		{"inactive account", "5550003333", "correct-horse", 0, ErrAccessDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Login(ctx, tc.phone, tc.pass, tc.tenantID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoginCustomerTenantPath(t *testing.T) {
	ctx := context.Background()
	hash := testHash(t, "customer-pass-1")
	customer := customerIdentity(5, "5550005555", 7)
	customer.PasswordHash = hash
	engine := newTestEngine(t, testConfig(), newMockIdentityStore(customer), &captureSender{})

	pair, err := engine.Login(ctx, "5550005555", "customer-pass-1", 7)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	res, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if res.TenantID != 7 {
		t.Fatalf("got tenant %d, want 7", res.TenantID)
	}
}
