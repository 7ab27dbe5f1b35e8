package goGate

import (
	"bytes"
	"errors"
	"time"
)

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Jail      JailConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	Account   AccountConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goGate APIs.
//
// Access and refresh tokens are signed with distinct key material and carry
// distinct validity windows. A token signed in one domain never validates in
// the other.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional

	// hs256 key material.
	AccessSecret  []byte
	RefreshSecret []byte

	// ed25519 key material.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte
}

/*
====================================
JAIL CONFIG
====================================
*/

// JailConfig defines a public type used by goGate APIs.
//
// The jail tracks consecutive failed logins per client address. When the
// counter reaches Threshold, the address is jailed for JailTTL and the
// counter itself is deleted; the jail key self-expires.
type JailConfig struct {
	Threshold int
	JailTTL   time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by goGate APIs.
//
// Limit requests per Window are allowed per API key. The window TTL is
// refreshed on every increment (sliding refresh), so a steady stream of
// requests keeps the window alive without resetting the count.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goGate APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AccountConfig defines a public type used by goGate APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	Enabled   bool
	AutoLogin bool
}

// AuditConfig defines a public type used by goGate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goGate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Jail: JailConfig{
			Threshold: 5,
			JailTTL:   300 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Limit:  15000,
			Window: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Account: AccountConfig{
			Enabled:   true,
			AutoLogin: false,
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
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.AccessPrivateKey = cloneBytes(cfg.JWT.AccessPrivateKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
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

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be longer than AccessTTL")
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
			return errors.New("hs256 requires AccessSecret and RefreshSecret")
		}
		if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
			return errors.New("AccessSecret and RefreshSecret must differ")
		}
	case "ed25519":
		if len(c.JWT.AccessPrivateKey) == 0 || len(c.JWT.AccessPublicKey) == 0 {
			return errors.New("ed25519 requires access key pair")
		}
		if len(c.JWT.RefreshPrivateKey) == 0 || len(c.JWT.RefreshPublicKey) == 0 {
			return errors.New("ed25519 requires refresh key pair")
		}
		if bytes.Equal(c.JWT.AccessPrivateKey, c.JWT.RefreshPrivateKey) {
			return errors.New("access and refresh private keys must differ")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Jail
	if c.Jail.Threshold <= 0 {
		return errors.New("Jail Threshold must be > 0")
	}
	if c.Jail.JailTTL <= 0 {
		return errors.New("Jail JailTTL must be > 0")
	}

	// Rate limit
	if c.RateLimit.Limit <= 0 {
		return errors.New("RateLimit Limit must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}

	// Password
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

	// Account
	if c.Account.AutoLogin && !c.Account.Enabled {
		return errors.New("Account AutoLogin requires account creation enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
