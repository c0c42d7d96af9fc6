package kitchenauth

import (
	"errors"
	"time"
)

// Config defines the engine's configuration surface. Validate is called by
// [Builder.Build]; a failing configuration is a fatal construction error,
// never a runtime fallback.
type Config struct {
	Token     TokenConfig
	Otp       OtpConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the signed token envelope.
type TokenConfig struct {
	// SigningSecret is the HMAC-SHA256 key. At least 32 bytes; absence or
	// a shorter key fails Validate.
	SigningSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	// Leeway is the clock-skew tolerance applied to expiry checks.
	Leeway time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OtpConfig controls code generation and the verification attempt budget.
type OtpConfig struct {
	Digits int
	TTL    time.Duration
	// TTLByType overrides TTL per flow; reset and verification flows may
	// use longer windows.
	TTLByType   map[OtpType]time.Duration
	MaxAttempts int
	// HashAtRest stores SHA-256 of the code instead of the clear digits.
	// Clear-text storage is a development-only posture: it is logged
	// loudly at startup and rejected outright in production mode.
	HashAtRest bool
}

// TTLFor returns the expiry window for an OTP type.
func (c OtpConfig) TTLFor(t OtpType) time.Duration {
	if ttl, ok := c.TTLByType[t]; ok && ttl > 0 {
		return ttl
	}
	return c.TTL
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the OTP rolling window and the generic API bucket.
type RateLimitConfig struct {
	OtpMaxRequests int
	OtpWindow      time.Duration
	APIMaxRequests int
	APIWindow      time.Duration
	// SweepInterval bounds how often stale windows are reaped. Sweeping is
	// opportunistic on the request path, not a background timer.
	SweepInterval time.Duration
}

// PasswordConfig holds the argon2id parameters used for stored hashes.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig carries deployment-posture flags.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the documented defaults: 30m/72h token TTLs, 4-digit
// codes with a 5m window and 3 attempts, 3 OTP requests per 30m, hashed OTP
// storage. The signing secret is left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 3 * 24 * time.Hour,
			Issuer:     "kitchenauth",
			Audience:   "kitchenauth-app",
			Leeway:     60 * time.Second,
		},
		Otp: OtpConfig{
			Digits:      4,
			TTL:         5 * time.Minute,
			MaxAttempts: 3,
			HashAtRest:  true,
		},
		RateLimit: RateLimitConfig{
			OtpMaxRequests: 3,
			OtpWindow:      30 * time.Minute,
			APIMaxRequests: 10,
			APIWindow:      time.Minute,
			SweepInterval:  5 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	if len(cfg.Otp.TTLByType) > 0 {
		out.Otp.TTLByType = make(map[OtpType]time.Duration, len(cfg.Otp.TTLByType))
		for k, v := range cfg.Otp.TTLByType {
			out.Otp.TTLByType[k] = v
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for fatal errors. A missing or short
// signing secret and a clear-text OTP posture in production are both
// unrecoverable.
func (c *Config) Validate() error {
	if len(c.Token.SigningSecret) == 0 {
		return errors.New("Token SigningSecret is required")
	}
	if len(c.Token.SigningSecret) < 32 {
		return errors.New("Token SigningSecret must be at least 32 bytes")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must exceed AccessTTL")
	}
	if c.Token.Issuer == "" {
		return errors.New("Token Issuer is required")
	}
	if c.Token.Audience == "" {
		return errors.New("Token Audience is required")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	if c.Otp.Digits < 4 || c.Otp.Digits > 10 {
		return errors.New("Otp Digits must be between 4 and 10")
	}
	if c.Otp.TTL <= 0 {
		return errors.New("Otp TTL must be > 0")
	}
	for t, ttl := range c.Otp.TTLByType {
		if ttl <= 0 {
			return errors.New("Otp TTLByType entry must be > 0 for type " + string(t))
		}
	}
	if c.Otp.MaxAttempts <= 0 {
		return errors.New("Otp MaxAttempts must be > 0")
	}
	if !c.Otp.HashAtRest && c.Security.ProductionMode {
		return errors.New("clear-text OTP storage is forbidden in production mode")
	}

	if c.RateLimit.OtpMaxRequests <= 0 {
		return errors.New("RateLimit OtpMaxRequests must be > 0")
	}
	if c.RateLimit.OtpWindow <= 0 {
		return errors.New("RateLimit OtpWindow must be > 0")
	}
	if c.RateLimit.APIMaxRequests <= 0 {
		return errors.New("RateLimit APIMaxRequests must be > 0")
	}
	if c.RateLimit.APIWindow <= 0 {
		return errors.New("RateLimit APIWindow must be > 0")
	}
	if c.RateLimit.SweepInterval <= 0 {
		return errors.New("RateLimit SweepInterval must be > 0")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.Token.AccessTTL > time.Hour {
			return errors.New("ProductionMode requires Token AccessTTL <= 1h")
		}
		if c.Token.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires Token RefreshTTL <= 30d")
		}
		if c.Otp.MaxAttempts > 5 {
			return errors.New("ProductionMode requires Otp MaxAttempts <= 5")
		}
		if c.Otp.TTLFor(OtpLogin) > 15*time.Minute {
			return errors.New("ProductionMode requires login Otp TTL <= 15m")
		}
	}

	return nil
}
