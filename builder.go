package goGate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/InsightGuard/goGate/inference"
	"github.com/InsightGuard/goGate/internal/guard"
	"github.com/InsightGuard/goGate/jwt"
	"github.com/InsightGuard/goGate/password"
)

// Builder defines a public type used by goGate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory UserDirectory
	keys      KeyStore
	models    *inference.Registry
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory describes the withuserdirectory operation and its observable behavior.
//
// WithUserDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithKeyStore describes the withkeystore operation and its observable behavior.
//
// WithKeyStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithKeyStore(store KeyStore) *Builder {
	b.keys = store
	return b
}

// WithInferenceRegistry describes the withinferenceregistry operation and its observable behavior.
//
// WithInferenceRegistry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithInferenceRegistry(registry *inference.Registry) *Builder {
	b.models = registry
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- TOKEN MANAGER --------
	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Access: jwt.DomainConfig{
			TTL:        cfg.JWT.AccessTTL,
			Secret:     cfg.JWT.AccessSecret,
			PrivateKey: cfg.JWT.AccessPrivateKey,
			PublicKey:  cfg.JWT.AccessPublicKey,
		},
		Refresh: jwt.DomainConfig{
			TTL:        cfg.JWT.RefreshTTL,
			Secret:     cfg.JWT.RefreshSecret,
			PrivateKey: cfg.JWT.RefreshPrivateKey,
			PublicKey:  cfg.JWT.RefreshPublicKey,
		},
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
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

	// -------- COUNTER GUARDS --------
	jail := guard.NewLoginJail(b.redis, guard.JailConfig{
		Threshold: cfg.Jail.Threshold,
		JailTTL:   cfg.Jail.JailTTL,
	})
	limiter := guard.NewKeyLimiter(b.redis, guard.LimitConfig{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
	})

	engine := &Engine{
		config:    cfg,
		jail:      jail,
		limiter:   limiter,
		tokens:    tokens,
		hasher:    hasher,
		directory: b.directory,
		keys:      b.keys,
		models:    b.models,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}
