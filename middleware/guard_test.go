package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kitchenauth "github.com/AspireQ-pro/kitchenauth"
	"github.com/AspireQ-pro/kitchenauth/internal/rate"
)

type fixedIdentities struct {
	identity *kitchenauth.Identity
}

func (s fixedIdentities) FindByPhoneAndTenant(_ context.Context, phone string, _ int64) (*kitchenauth.Identity, error) {
	if s.identity != nil && s.identity.Phone == phone {
		return s.identity, nil
	}
	return nil, kitchenauth.ErrMobileNotRegistered
}

func (s fixedIdentities) SaveOtpFields(context.Context, *kitchenauth.Identity) error {
	return nil
}

func (s fixedIdentities) SavePasswordHash(context.Context, *kitchenauth.Identity) error {
	return nil
}

type captureSender struct {
	code string
}

func (s *captureSender) Send(_ context.Context, _, code string) bool {
	s.code = code
	return true
}

// newGuardTestEngine builds an engine and logs the seeded identity in via
// the OTP flow to obtain a real access token.
func newGuardTestEngine(t *testing.T) (*kitchenauth.Engine, string) {
	t.Helper()

	cfg := kitchenauth.DefaultConfig()
	cfg.Token.SigningSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.RateLimit.APIMaxRequests = 3

	tenant := int64(7)
	identity := &kitchenauth.Identity{
		ID:     1,
		Phone:  "5550001111",
		Type:   kitchenauth.UserCustomer,
		Active: true,
	}
	identity.TenantID = &tenant

	sender := &captureSender{}
	engine, err := kitchenauth.New().
		WithConfig(cfg).
		WithIdentityLookup(fixedIdentities{identity: identity}).
		WithSmsSender(sender).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	if err := engine.RequestOTP(ctx, "5550001111", 7, kitchenauth.OtpLogin); err != nil {
		t.Fatalf("RequestOTP failed: %v", err)
	}
	pair, err := engine.VerifyOTP(ctx, "5550001111", 7, kitchenauth.OtpLogin, sender.code)
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	return engine, pair.AccessToken
}

func okHandler(t *testing.T, hit *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardRejectsMissingAndBadTokens(t *testing.T) {
	engine, _ := newGuardTestEngine(t)
	var hit bool
	handler := Guard(engine)(okHandler(t, &hit))

	cases := []struct {
		name string
		auth string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if hit {
				t.Fatal("handler must not run")
			}
		})
	}
}

func TestGuardAdmitsValidToken(t *testing.T) {
	engine, access := newGuardTestEngine(t)
	var hit bool
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok || res.SubjectID != 1 || res.TenantID != 7 {
			t.Fatalf("auth result = %+v, %v", res, ok)
		}
		hit = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !hit {
		t.Fatalf("status = %d, hit = %v", rec.Code, hit)
	}
}

func TestThrottleLimitsClients(t *testing.T) {
	engine, _ := newGuardTestEngine(t)
	var hit bool
	handler := Throttle(engine)(okHandler(t, &hit))

	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("fourth request: status = %d, want 429", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != http.StatusText(http.StatusTooManyRequests) {
		t.Fatalf("body = %q, want the status text", got)
	}

	// A different forwarded client has its own bucket.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "5.6.7.8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status = %d", rec.Code)
	}
}

type failingRateStore struct{}

func (failingRateStore) AllowRolling(context.Context, string, int, time.Duration) (bool, error) {
	return false, rate.ErrStoreUnavailable
}

func (failingRateStore) IncrBucket(context.Context, string, time.Duration) (int64, error) {
	return 0, rate.ErrStoreUnavailable
}

func TestThrottleReportsStoreOutage(t *testing.T) {
	cfg := kitchenauth.DefaultConfig()
	cfg.Token.SigningSecret = []byte("0123456789abcdef0123456789abcdef")

	engine, err := kitchenauth.New().
		WithConfig(cfg).
		WithIdentityLookup(fixedIdentities{}).
		WithSmsSender(&captureSender{}).
		WithRateLimitStore(failingRateStore{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	var hit bool
	handler := Throttle(engine)(okHandler(t, &hit))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != http.StatusText(http.StatusServiceUnavailable) {
		t.Fatalf("body = %q, want the status text", got)
	}
	if hit {
		t.Fatal("handler must not run")
	}
}

func TestClientIDDerivation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 1.2.3.4 , 10.0.0.1")
	if got := ClientID(req); got != "1.2.3.4" {
		t.Fatalf("ClientID = %q, want first forwarded entry", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := ClientID(req); got != "192.0.2.1" {
		t.Fatalf("ClientID = %q, want socket host", got)
	}
}
