package kitchenauth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with secret", func(c *Config) {}, true},
		{"missing secret", func(c *Config) { c.Token.SigningSecret = nil }, false},
		{"short secret", func(c *Config) { c.Token.SigningSecret = []byte("short") }, false},
		{"refresh not exceeding access", func(c *Config) { c.Token.RefreshTTL = c.Token.AccessTTL }, false},
		{"missing issuer", func(c *Config) { c.Token.Issuer = "" }, false},
		{"missing audience", func(c *Config) { c.Token.Audience = "" }, false},
		{"excessive leeway", func(c *Config) { c.Token.Leeway = 5 * time.Minute }, false},
		{"too few digits", func(c *Config) { c.Otp.Digits = 3 }, false},
		{"too many digits", func(c *Config) { c.Otp.Digits = 11 }, false},
		{"zero max attempts", func(c *Config) { c.Otp.MaxAttempts = 0 }, false},
		{"bad per-type ttl", func(c *Config) { c.Otp.TTLByType = map[OtpType]time.Duration{OtpLogin: 0} }, false},
		{"zero otp rate window", func(c *Config) { c.RateLimit.OtpWindow = 0 }, false},
		{"tiny password memory", func(c *Config) { c.Password.Memory = 1024 }, false},
		{"audit enabled without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, false},
		{
			"clear-text otp in production",
			func(c *Config) { c.Otp.HashAtRest = false; c.Security.ProductionMode = true },
			false,
		},
		{
			"clear-text otp in development",
			func(c *Config) { c.Otp.HashAtRest = false },
			true,
		},
		{
			"production caps access ttl",
			func(c *Config) { c.Security.ProductionMode = true; c.Token.AccessTTL = 2 * time.Hour },
			false,
		},
		{
			"production caps attempts",
			func(c *Config) { c.Security.ProductionMode = true; c.Otp.MaxAttempts = 10 },
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestOtpTTLPerType(t *testing.T) {
	cfg := OtpConfig{
		TTL: 5 * time.Minute,
		TTLByType: map[OtpType]time.Duration{
			OtpPasswordReset: 10 * time.Minute,
		},
	}
	if got := cfg.TTLFor(OtpLogin); got != 5*time.Minute {
		t.Fatalf("login TTL = %v, want default", got)
	}
	if got := cfg.TTLFor(OtpPasswordReset); got != 10*time.Minute {
		t.Fatalf("reset TTL = %v, want override", got)
	}
}

func TestCloneConfigIsolatesSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Otp.TTLByType = map[OtpType]time.Duration{OtpLogin: time.Minute}

	clone := cloneConfig(cfg)
	clone.Token.SigningSecret[0] ^= 0xff
	clone.Otp.TTLByType[OtpLogin] = time.Hour

	if cfg.Token.SigningSecret[0] == clone.Token.SigningSecret[0] {
		t.Fatal("clone must not share the secret slice")
	}
	if cfg.Otp.TTLByType[OtpLogin] != time.Minute {
		t.Fatal("clone must not share the TTL map")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_SIGNING_SECRET", string(testSecret))
	t.Setenv("AUTH_ACCESS_TTL", "15m")
	t.Setenv("AUTH_OTP_MAX_ATTEMPTS", "5")
	t.Setenv("AUTH_OTP_HASH_AT_REST", "true")
	t.Setenv("AUTH_AUDIT_ENABLED", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Fatalf("AccessTTL = %v, want 15m", cfg.Token.AccessTTL)
	}
	if cfg.Otp.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d, want 5", cfg.Otp.MaxAttempts)
	}
	if !cfg.Audit.Enabled {
		t.Fatal("AuditEnabled not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config should validate: %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().
		WithConfig(testConfig()).
		WithIdentityLookup(newMockIdentityStore()).
		WithSmsSender(&captureSender{})

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

func TestBuilderRequiresIdentityLookup(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("Build without identity lookup must fail")
	}
}
