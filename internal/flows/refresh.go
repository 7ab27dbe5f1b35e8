package flows

import (
	"context"
)

// RefreshResult is the flow-local token pair returned by a refresh. The
// refresh token is the caller's own token handed back unchanged; refresh
// tokens are not rotated, they ride out their original expiry.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

// RefreshErrors carries host-level sentinel errors used by the refresh
// flow.
type RefreshErrors struct {
	EngineNotReady error
	UserNotFound   error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(token string) (subject string, err error)
	LookupUserID func(context.Context, string) (AuthUserRecord, bool, error)
	IssueAccess  func(subject string) (string, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, subject string, err error, fields func() map[string]string)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh executes the access token renewal flow. The refresh token's
// subject is re-validated against the directory on every call, so a token
// outlives its account by at most one access TTL.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (*RefreshResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.ParseRefresh == nil || deps.LookupUserID == nil || deps.IssueAccess == nil {
		return nil, deps.Errors.EngineNotReady
	}

	subject, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, "", err, nil)
		return nil, err
	}

	user, found, err := deps.LookupUserID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !found {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, subject, deps.Errors.UserNotFound, nil)
		return nil, deps.Errors.UserNotFound
	}

	access, err := deps.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, user.ID, nil, nil)

	return &RefreshResult{AccessToken: access, RefreshToken: refreshToken}, nil
}
