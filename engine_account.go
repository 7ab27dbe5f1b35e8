package goGate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// emailPattern accepts one "@" with a non-empty local part and a dotted
// domain ending in a two-letter-or-longer TLD. Deliverability is the mail
// system's problem, not the gateway's.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)

// CreateAccountResult defines a public type used by goGate APIs.
//
// Tokens is non-nil only when auto login is enabled.
type CreateAccountResult struct {
	User   UserRecord
	Tokens *TokenPair
}

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if e == nil || e.hasher == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		e.emitAudit(ctx, auditEventAccountRejected, false, "", ErrAccountCreationDisabled, func() map[string]string {
			return map[string]string{"reason": "feature_disabled"}
		})
		return nil, ErrAccountCreationDisabled
	}

	if req.Username == "" || req.Password == "" {
		e.emitAudit(ctx, auditEventAccountRejected, false, "", ErrMissingCredential, func() map[string]string {
			return map[string]string{"reason": "empty_credential"}
		})
		return nil, ErrMissingCredential
	}
	if !emailPattern.MatchString(req.Email) {
		e.emitAudit(ctx, auditEventAccountRejected, false, "", ErrInvalidEmail, func() map[string]string {
			return map[string]string{"username": req.Username, "reason": "invalid_email"}
		})
		return nil, ErrInvalidEmail
	}

	// The directory's uniqueness constraint is the final arbiter; these
	// lookups surface the friendly error for the common case.
	if _, found, err := e.lookup(ctx, Identity{Kind: ByUsername, Value: req.Username}); err != nil {
		return nil, err
	} else if found {
		e.metricInc(MetricAccountDuplicate)
		e.emitAudit(ctx, auditEventAccountRejected, false, "", ErrDuplicateIdentity, func() map[string]string {
			return map[string]string{"username": req.Username, "reason": "username_taken"}
		})
		return nil, ErrDuplicateIdentity
	}
	if _, found, err := e.lookup(ctx, Identity{Kind: ByEmail, Value: req.Email}); err != nil {
		return nil, err
	} else if found {
		e.metricInc(MetricAccountDuplicate)
		e.emitAudit(ctx, auditEventAccountRejected, false, "", ErrDuplicateIdentity, func() map[string]string {
			return map[string]string{"username": req.Username, "reason": "email_taken"}
		})
		return nil, ErrDuplicateIdentity
	}

	passwordHash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountRejected, false, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"username": req.Username, "reason": "hash_policy"}
		})
		return nil, ErrPasswordPolicy
	}

	created, err := e.directory.CreateUser(ctx, CreateUserInput{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: passwordHash,
		FullName:       req.FullName,
		Company:        req.Company,
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, created.ID, nil, func() map[string]string {
		return map[string]string{"username": created.Username}
	})

	result := &CreateAccountResult{User: created}

	if e.config.Account.AutoLogin {
		access, refresh, err := e.issueTokenPair(created.ID)
		if err != nil {
			// The account exists; the caller can log in normally.
			return result, nil
		}
		result.Tokens = &TokenPair{AccessToken: access, RefreshToken: refresh}
		e.metricInc(MetricTokensIssued)
	}

	return result, nil
}

// UpdateAccount describes the updateaccount operation and its observable behavior.
//
// Nil request fields are left unchanged; a new password is re-hashed before
// it reaches the directory. Username and email are login identities and
// cannot be changed here.
// UpdateAccount may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) UpdateAccount(ctx context.Context, userID string, req UpdateAccountRequest) (UserRecord, error) {
	if e == nil || e.hasher == nil || e.directory == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	current, found, err := e.lookup(ctx, Identity{Kind: ByID, Value: userID})
	if err != nil {
		return UserRecord{}, err
	}
	if !found {
		return UserRecord{}, ErrUserNotFound
	}

	input := UpdateUserInput{
		FullName: req.FullName,
		Company:  req.Company,
	}
	if req.Password != nil {
		if *req.Password == "" {
			return UserRecord{}, ErrMissingCredential
		}
		passwordHash, err := e.hasher.Hash(*req.Password)
		if err != nil {
			return UserRecord{}, ErrPasswordPolicy
		}
		input.HashedPassword = &passwordHash
	}

	if input.FullName == nil && input.Company == nil && input.HashedPassword == nil {
		return current, nil
	}

	updated, found, err := e.directory.UpdateUser(ctx, userID, input)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !found {
		return UserRecord{}, ErrUserNotFound
	}

	e.metricInc(MetricAccountUpdated)
	e.emitAudit(ctx, auditEventAccountUpdated, true, updated.ID, nil, func() map[string]string {
		return map[string]string{
			"username":         updated.Username,
			"password_changed": strconv.FormatBool(input.HashedPassword != nil),
		}
	})

	return updated, nil
}
