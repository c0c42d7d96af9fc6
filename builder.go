package kitchenauth

import (
	"errors"
	"log"

	"github.com/AspireQ-pro/kitchenauth/internal/rate"
	"github.com/AspireQ-pro/kitchenauth/password"
	"github.com/AspireQ-pro/kitchenauth/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine] from configuration and collaborators. Each
// With method returns the builder for chaining; Build may be called once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identities IdentityLookup
	roles      RoleLookup
	sms        SmsSender
	auditSink  AuditSink

	revocation token.RevocationStore
	rateStore  rate.Store

	built bool
}

// New creates a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis switches the revocation set and the rate-limit windows to
// shared redis-backed stores, which horizontally scaled deployments need.
// Explicit stores set via WithRevocationStore or WithRateLimitStore win
// over this.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityLookup injects the persistence collaborator. Required.
func (b *Builder) WithIdentityLookup(lookup IdentityLookup) *Builder {
	b.identities = lookup
	return b
}

// WithRoleLookup injects the RBAC collaborator consulted at token issuance.
// Optional; without it tokens carry no roles or permissions.
func (b *Builder) WithRoleLookup(lookup RoleLookup) *Builder {
	b.roles = lookup
	return b
}

// WithSmsSender injects the out-of-band code dispatcher. Required for the
// OTP request flow.
func (b *Builder) WithSmsSender(sender SmsSender) *Builder {
	b.sms = sender
	return b
}

// WithAuditSink injects the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRevocationStore overrides the token revocation backend.
func (b *Builder) WithRevocationStore(store token.RevocationStore) *Builder {
	b.revocation = store
	return b
}

// WithRateLimitStore overrides the rate-limit window backend.
func (b *Builder) WithRateLimitStore(store rate.Store) *Builder {
	b.rateStore = store
	return b
}

// Build validates the configuration, wires the component graph, and returns
// a ready engine. Configuration errors are fatal here, never degraded at
// runtime.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.identities == nil {
		return nil, errors.New("identity lookup required")
	}

	if !cfg.Otp.HashAtRest {
		log.Printf("kitchenauth: WARNING: OTP codes are stored in CLEAR TEXT; this posture is for development only")
	}

	revocation := b.revocation
	if revocation == nil && b.redis != nil {
		revocation = token.NewRedisRevocationStore(b.redis, "")
	}

	tokens, err := token.NewManager(token.Config{
		Secret:     cfg.Token.SigningSecret,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		Leeway:     cfg.Token.Leeway,
	}, revocation)
	if err != nil {
		return nil, err
	}

	rateStore := b.rateStore
	if rateStore == nil {
		if b.redis != nil {
			rateStore = rate.NewRedisStore(b.redis, "")
		} else {
			rateStore = rate.NewMemoryStore(cfg.RateLimit.SweepInterval)
		}
	}
	limiter := rate.New(rateStore, rate.Config{
		OtpMaxRequests: cfg.RateLimit.OtpMaxRequests,
		OtpWindow:      cfg.RateLimit.OtpWindow,
		APIMaxRequests: cfg.RateLimit.APIMaxRequests,
		APIWindow:      cfg.RateLimit.APIWindow,
	})

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	b.built = true

	return &Engine{
		config:       cfg,
		identities:   b.identities,
		roles:        b.roles,
		sms:          b.sms,
		tokens:       tokens,
		otp:          newOtpLifecycle(cfg.Otp, b.identities),
		rateLimiter:  limiter,
		passwordHash: hasher,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}, nil
}
