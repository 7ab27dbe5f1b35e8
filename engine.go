package goGate

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/InsightGuard/goGate/inference"
	"github.com/InsightGuard/goGate/internal/flows"
	"github.com/InsightGuard/goGate/internal/guard"
	"github.com/InsightGuard/goGate/jwt"
	"github.com/InsightGuard/goGate/password"
)

// Engine defines a public type used by goGate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	jail      *guard.LoginJail
	limiter   *guard.KeyLimiter
	tokens    *jwt.Manager
	hasher    *password.Hasher
	directory UserDirectory
	keys      KeyStore
	models    *inference.Registry
	audit     *auditDispatcher
	metrics   *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.models != nil {
		if err := e.models.Close(); err != nil {
			log.Printf("goGate: inference registry close: %v", err)
		}
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authorize describes the authorize operation and its observable behavior.
//
// Authorize may return an error when input validation, dependency calls, or security checks fail.
// Authorize does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authorize(ctx context.Context, identifier, passwd string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	result, err := flows.RunAuthorize(ctx, identifier, passwd, e.authorizeFlowDeps())
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	result, err := flows.RunRefresh(ctx, refreshToken, e.refreshFlowDeps())
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

// VerifyAccess validates an access token and returns its subject. This is
// the request hot path: pure local cryptography, no Redis, no directory.
func (e *Engine) VerifyAccess(token string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	subject, err := e.tokens.ParseAccess(token)
	if err != nil {
		e.metricInc(MetricAccessRejected)
		return "", ErrTokenInvalid
	}
	e.metricInc(MetricAccessVerified)
	return subject, nil
}

// FetchUser resolves identifier to a user record. The identifier is
// classified syntactically: "@" means email, a UUID shape means opaque ID,
// anything else means username.
func (e *Engine) FetchUser(ctx context.Context, identifier string) (UserRecord, error) {
	if e == nil || e.directory == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	user, found, err := e.lookup(ctx, ClassifyIdentifier(identifier))
	if err != nil {
		return UserRecord{}, err
	}
	if !found {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (e *Engine) lookup(ctx context.Context, identity Identity) (UserRecord, bool, error) {
	var (
		user  UserRecord
		found bool
		err   error
	)
	switch identity.Kind {
	case ByEmail:
		user, found, err = e.directory.FindByEmail(ctx, identity.Value)
	case ByID:
		user, found, err = e.directory.FindByID(ctx, identity.Value)
	default:
		user, found, err = e.directory.FindByUsername(ctx, identity.Value)
	}
	if err != nil {
		return UserRecord{}, false, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return user, found, nil
}

// issueTokenPair mints matching access and refresh tokens for subject.
func (e *Engine) issueTokenPair(subject string) (string, string, error) {
	access, err := e.tokens.CreateAccess(subject)
	if err != nil {
		return "", "", err
	}
	refresh, err := e.tokens.CreateRefresh(subject)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// translateGuardErr rewrites counter-layer errors into the public taxonomy.
func translateGuardErr(err error) error {
	if err == nil {
		return nil
	}
	if je, ok := guard.AsJailed(err); ok {
		return &JailedError{RetryAfter: je.RetryAfter}
	}
	if re, ok := guard.AsRateLimited(err); ok {
		return &RateLimitError{RetryAfter: re.RetryAfter}
	}
	if errors.Is(err, guard.ErrBackendUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func (e *Engine) authorizeFlowDeps() flows.AuthorizeDeps {
	return flows.AuthorizeDeps{
		ClientAddrFromContext: clientAddrFromContext,
		CheckJail: func(ctx context.Context, addr string) error {
			return translateGuardErr(e.jail.Check(ctx, addr))
		},
		RecordFailure: func(ctx context.Context, addr string) (int, error) {
			count, err := e.jail.RecordFailure(ctx, addr)
			return count, translateGuardErr(err)
		},
		ResetJail: func(ctx context.Context, addr string) error {
			return translateGuardErr(e.jail.Reset(ctx, addr))
		},
		LookupUser: func(ctx context.Context, identifier string) (flows.AuthUserRecord, bool, error) {
			user, found, err := e.lookup(ctx, ClassifyCredential(identifier))
			if err != nil || !found {
				return flows.AuthUserRecord{}, found, err
			}
			return flows.AuthUserRecord{
				ID:             user.ID,
				Username:       user.Username,
				Email:          user.Email,
				HashedPassword: user.HashedPassword,
			}, true, nil
		},
		VerifyPassword: func(hash, passwd string) (bool, error) {
			return e.hasher.Verify(passwd, hash)
		},
		IssueTokens: e.issueTokenPair,
		MetricInc:   func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, event string, success bool, subject string, err error, fields func() map[string]string) {
			e.emitAudit(ctx, event, success, subject, err, fields)
		},
		Warn: func(msg string, args ...any) {
			log.Printf("goGate: "+msg+" %v", args...)
		},
		Metrics: flows.AuthorizeMetrics{
			LoginSuccess: int(MetricLoginSuccess),
			LoginFailure: int(MetricLoginFailure),
			LoginJailed:  int(MetricLoginJailed),
			TokensIssued: int(MetricTokensIssued),
		},
		Events: flows.AuthorizeEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
			LoginJailed:  auditEventLoginJailed,
		},
		Errors: flows.AuthorizeErrors{
			EngineNotReady:    ErrEngineNotReady,
			MissingCredential: ErrMissingCredential,
			UserNotFound:      ErrUserNotFound,
			IncorrectPassword: ErrIncorrectPassword,
		},
	}
}

func (e *Engine) refreshFlowDeps() flows.RefreshDeps {
	return flows.RefreshDeps{
		ParseRefresh: func(token string) (string, error) {
			subject, err := e.tokens.ParseRefresh(token)
			if err != nil {
				return "", ErrTokenInvalid
			}
			return subject, nil
		},
		LookupUserID: func(ctx context.Context, id string) (flows.AuthUserRecord, bool, error) {
			user, found, err := e.directory.FindByID(ctx, id)
			if err != nil {
				return flows.AuthUserRecord{}, false, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
			}
			if !found {
				return flows.AuthUserRecord{}, false, nil
			}
			return flows.AuthUserRecord{ID: user.ID, Username: user.Username, Email: user.Email}, true, nil
		},
		IssueAccess: e.tokens.CreateAccess,
		MetricInc:   func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, event string, success bool, subject string, err error, fields func() map[string]string) {
			e.emitAudit(ctx, event, success, subject, err, fields)
		},
		Metrics: flows.RefreshMetrics{
			RefreshSuccess: int(MetricRefreshSuccess),
			RefreshFailure: int(MetricRefreshFailure),
		},
		Events: flows.RefreshEvents{
			RefreshSuccess: auditEventRefreshSuccess,
			RefreshFailure: auditEventRefreshInvalid,
		},
		Errors: flows.RefreshErrors{
			EngineNotReady: ErrEngineNotReady,
			UserNotFound:   ErrUserNotFound,
		},
	}
}
