package goGate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventLoginJailed     = "login_jailed"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshInvalid  = "refresh_invalid"
	auditEventAccountCreated  = "account_created"
	auditEventAccountUpdated  = "account_updated"
	auditEventAccountRejected = "account_rejected"
	auditEventKeyCreated      = "key_created"
	auditEventKeyRejected     = "key_rejected"
	auditEventRateLimitHit    = "rate_limit_triggered"
	auditEventPredictSuccess  = "predict_success"
	auditEventPredictFailure  = "predict_failure"
)

// AuditErrorCode defines a public type used by goGate APIs.
type AuditErrorCode string

const (
	auditErrInvalidToken         AuditErrorCode = "invalid_token"
	auditErrUserNotFound         AuditErrorCode = "user_not_found"
	auditErrIncorrectPassword    AuditErrorCode = "incorrect_password"
	auditErrJailed               AuditErrorCode = "jailed"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrMissingCredential    AuditErrorCode = "missing_credential"
	auditErrDuplicate            AuditErrorCode = "duplicate_identity"
	auditErrInvalidEmail         AuditErrorCode = "invalid_email"
	auditErrPasswordPolicy       AuditErrorCode = "password_policy"
	auditErrKeyInvalid           AuditErrorCode = "key_invalid"
	auditErrKeyDisabled          AuditErrorCode = "key_disabled"
	auditErrLanguage             AuditErrorCode = "language_unsupported"
	auditErrPredictionFailed     AuditErrorCode = "prediction_failed"
	auditErrStoreUnavailable     AuditErrorCode = "store_unavailable"
	auditErrDirectoryUnavailable AuditErrorCode = "directory_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		UserID:     userID,
		ClientAddr: clientAddrFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, key string, metadataBuilder func() map[string]string) {
	e.metricInc(MetricRateLimitHit)
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  auditEventRateLimitHit,
		ClientAddr: clientAddrFromContext(ctx),
		APIKey:     key,
		Success:    false,
		Error:      string(auditErrRateLimited),
		Metadata:   metadata,
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrIncorrectPassword):
		return auditErrIncorrectPassword
	case errors.Is(err, ErrJailed):
		return auditErrJailed
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrMissingCredential):
		return auditErrMissingCredential
	case errors.Is(err, ErrDuplicateIdentity):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrKeyInvalid):
		return auditErrKeyInvalid
	case errors.Is(err, ErrKeyDisabled):
		return auditErrKeyDisabled
	case errors.Is(err, ErrLanguageUnsupported):
		return auditErrLanguage
	case errors.Is(err, ErrPredictionFailed):
		return auditErrPredictionFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrDirectoryUnavailable):
		return auditErrDirectoryUnavailable
	default:
		return auditErrInternal
	}
}
