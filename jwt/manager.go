package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines a public type used by goGate APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodHS256 is an exported constant or variable used by the gateway engine.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 is an exported constant or variable used by the gateway engine.
	MethodEd25519 SigningMethod = "ed25519"
)

// ErrTokenInvalid covers malformed, mis-signed, expired, and subject-less
// tokens. Callers never learn which; the distinction is not actionable.
var ErrTokenInvalid = errors.New("invalid token")

// DomainConfig holds the key material and validity window for one signing
// domain (access or refresh).
type DomainConfig struct {
	TTL        time.Duration
	Secret     []byte // hs256
	PrivateKey []byte // ed25519
	PublicKey  []byte // ed25519
}

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	SigningMethod SigningMethod
	Access        DomainConfig
	Refresh       DomainConfig
	Issuer        string
	Leeway        time.Duration

	// Now overrides the wall clock for both minting and validation.
	// Nil means time.Now.
	Now func() time.Time
}

// Manager mints and validates tokens in the access and refresh signing
// domains. It is immutable after construction and safe for concurrent use.
type Manager struct {
	config  Config
	access  domain
	refresh domain
}

type domain struct {
	ttl       time.Duration
	signKey   any
	verifyKey any
}

// Claims is the wire shape of every goGate token: sub and exp, plus iat and
// optional iss.
type Claims struct {
	jwt.RegisteredClaims
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Access.TTL <= 0 || cfg.Refresh.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	access, err := buildDomain(cfg.SigningMethod, cfg.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := buildDomain(cfg.SigningMethod, cfg.Refresh)
	if err != nil {
		return nil, err
	}

	return &Manager{
		config:  cfg,
		access:  access,
		refresh: refresh,
	}, nil
}

func buildDomain(method SigningMethod, cfg DomainConfig) (domain, error) {
	switch method {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return domain{}, errors.New("hs256 requires a secret")
		}
		return domain{ttl: cfg.TTL, signKey: cfg.Secret, verifyKey: cfg.Secret}, nil
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return domain{}, err
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return domain{}, err
		}
		return domain{ttl: cfg.TTL, signKey: priv, verifyKey: pub}, nil
	default:
		return domain{}, errors.New("unsupported signing method")
	}
}

// CreateAccess mints an access token asserting subject until the access TTL
// elapses.
func (m *Manager) CreateAccess(subject string) (string, error) {
	return m.create(m.access, subject)
}

// CreateRefresh mints a refresh token asserting subject until the refresh
// TTL elapses.
func (m *Manager) CreateRefresh(subject string) (string, error) {
	return m.create(m.refresh, subject)
}

// ParseAccess validates token against the access domain and returns its
// subject. It fails with [ErrTokenInvalid] for any malformed, mis-signed,
// expired, or subject-less token, including refresh tokens.
func (m *Manager) ParseAccess(token string) (string, error) {
	return m.parse(m.access, token)
}

// ParseRefresh validates token against the refresh domain and returns its
// subject. It fails with [ErrTokenInvalid] for any malformed, mis-signed,
// expired, or subject-less token, including access tokens.
func (m *Manager) ParseRefresh(token string) (string, error) {
	return m.parse(m.refresh, token)
}

func (m *Manager) create(d domain, subject string) (string, error) {
	if subject == "" {
		return "", ErrTokenInvalid
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(d.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(m.method(), claims).SignedString(d.signKey)
}

func (m *Manager) parse(d domain, tokenStr string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return d.verifyKey, nil
	})
	if err != nil {
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) now() time.Time {
	if m.config.Now != nil {
		return m.config.Now()
	}
	return time.Now()
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
