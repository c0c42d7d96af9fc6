package kitchenauth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	SigningSecret  string        `env:"AUTH_SIGNING_SECRET"`
	AccessTTL      time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"30m"`
	RefreshTTL     time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"72h"`
	Issuer         string        `env:"AUTH_ISSUER" envDefault:"kitchenauth"`
	Audience       string        `env:"AUTH_AUDIENCE" envDefault:"kitchenauth-app"`
	OtpDigits      int           `env:"AUTH_OTP_DIGITS" envDefault:"4"`
	OtpTTL         time.Duration `env:"AUTH_OTP_TTL" envDefault:"5m"`
	OtpMaxAttempts int           `env:"AUTH_OTP_MAX_ATTEMPTS" envDefault:"3"`
	OtpHashAtRest  bool          `env:"AUTH_OTP_HASH_AT_REST" envDefault:"true"`
	OtpRateMax     int           `env:"AUTH_OTP_RATE_MAX" envDefault:"3"`
	OtpRateWindow  time.Duration `env:"AUTH_OTP_RATE_WINDOW" envDefault:"30m"`
	APIRateMax     int           `env:"AUTH_API_RATE_MAX" envDefault:"10"`
	ProductionMode bool          `env:"AUTH_PRODUCTION" envDefault:"false"`
	AuditEnabled   bool          `env:"AUTH_AUDIT_ENABLED" envDefault:"false"`
}

// ConfigFromEnv loads configuration from environment variables on top of the
// package defaults. The result still goes through Validate at build time.
func ConfigFromEnv() (Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := defaultConfig()
	cfg.Token.SigningSecret = []byte(e.SigningSecret)
	cfg.Token.AccessTTL = e.AccessTTL
	cfg.Token.RefreshTTL = e.RefreshTTL
	cfg.Token.Issuer = e.Issuer
	cfg.Token.Audience = e.Audience
	cfg.Otp.Digits = e.OtpDigits
	cfg.Otp.TTL = e.OtpTTL
	cfg.Otp.MaxAttempts = e.OtpMaxAttempts
	cfg.Otp.HashAtRest = e.OtpHashAtRest
	cfg.RateLimit.OtpMaxRequests = e.OtpRateMax
	cfg.RateLimit.OtpWindow = e.OtpRateWindow
	cfg.RateLimit.APIMaxRequests = e.APIRateMax
	cfg.Security.ProductionMode = e.ProductionMode
	cfg.Audit.Enabled = e.AuditEnabled

	return cfg, nil
}
