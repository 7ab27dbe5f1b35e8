package flows

import (
	"context"
)

// AuthUserRecord is the flow-local user model used by authorize/refresh
// flows.
type AuthUserRecord struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
}

// AuthorizeResult is the flow-local token pair issued on success.
type AuthorizeResult struct {
	AccessToken  string
	RefreshToken string
}

// AuthorizeMetrics carries metric IDs needed by the authorize flow.
type AuthorizeMetrics struct {
	LoginSuccess int
	LoginFailure int
	LoginJailed  int
	TokensIssued int
}

// AuthorizeEvents carries audit event names used by the authorize flow.
type AuthorizeEvents struct {
	LoginSuccess string
	LoginFailure string
	LoginJailed  string
}

// AuthorizeErrors carries host-level sentinel errors used by the authorize
// flow.
type AuthorizeErrors struct {
	EngineNotReady    error
	MissingCredential error
	UserNotFound      error
	IncorrectPassword error
}

// AuthorizeDeps captures authorize flow dependencies.
type AuthorizeDeps struct {
	ClientAddrFromContext func(context.Context) string

	CheckJail     func(context.Context, string) error
	RecordFailure func(context.Context, string) (int, error)
	ResetJail     func(context.Context, string) error

	LookupUser     func(context.Context, string) (AuthUserRecord, bool, error)
	VerifyPassword func(hash, password string) (bool, error)
	IssueTokens    func(subject string) (access, refresh string, err error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, subject string, err error, fields func() map[string]string)
	Warn      func(string, ...any)

	Metrics AuthorizeMetrics
	Events  AuthorizeEvents
	Errors  AuthorizeErrors
}

// RunAuthorize executes the credential login flow. Order matters: the jail
// check runs before the directory lookup so a jailed client learns nothing
// about which identities exist, and the failure counter moves only on a
// wrong password so probing unknown identifiers cannot jail a shared
// address by itself.
func RunAuthorize(ctx context.Context, identifier, password string, deps AuthorizeDeps) (*AuthorizeResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientAddrFromContext == nil {
		deps.ClientAddrFromContext = func(context.Context) string { return "" }
	}
	if deps.LookupUser == nil || deps.VerifyPassword == nil || deps.IssueTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if identifier == "" || password == "" {
		return nil, deps.Errors.MissingCredential
	}

	// An empty address means the caller did not attribute the request to a
	// network peer. Jail state is keyed by address, so without one there is
	// nothing to check or count; sharing a single empty-string bucket would
	// let unrelated callers jail each other.
	addr := deps.ClientAddrFromContext(ctx)

	if addr != "" && deps.CheckJail != nil {
		if err := deps.CheckJail(ctx, addr); err != nil {
			deps.MetricInc(deps.Metrics.LoginJailed)
			deps.EmitAudit(ctx, deps.Events.LoginJailed, false, "", err, func() map[string]string {
				return map[string]string{"addr": addr}
			})
			return nil, err
		}
	}

	user, found, err := deps.LookupUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !found {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.UserNotFound, func() map[string]string {
			return map[string]string{"identifier": identifier, "addr": addr}
		})
		return nil, deps.Errors.UserNotFound
	}

	ok, err := deps.VerifyPassword(user.HashedPassword, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		if addr != "" && deps.RecordFailure != nil {
			if _, jailErr := deps.RecordFailure(ctx, addr); jailErr != nil {
				// The failing attempt itself crossed the threshold.
				deps.MetricInc(deps.Metrics.LoginJailed)
				deps.EmitAudit(ctx, deps.Events.LoginJailed, false, user.ID, jailErr, func() map[string]string {
					return map[string]string{"addr": addr}
				})
				return nil, jailErr
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, deps.Errors.IncorrectPassword, func() map[string]string {
			return map[string]string{"addr": addr}
		})
		return nil, deps.Errors.IncorrectPassword
	}

	if addr != "" && deps.ResetJail != nil {
		if err := deps.ResetJail(ctx, addr); err != nil {
			// The login itself succeeded. A missed reset only leaves stale
			// counter state, so log and continue.
			deps.Warn("login jail reset failed", "addr", addr, "err", err)
		}
	}

	access, refresh, err := deps.IssueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.MetricInc(deps.Metrics.TokensIssued)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, nil)

	return &AuthorizeResult{AccessToken: access, RefreshToken: refresh}, nil
}
