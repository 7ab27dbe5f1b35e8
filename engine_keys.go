package goGate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// newAPIKey mints the opaque key string: a v4 UUID with the dashes removed,
// 32 lowercase hex characters.
func newAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateKey describes the createkey operation and its observable behavior.
//
// CreateKey may return an error when input validation, dependency calls, or security checks fail.
// CreateKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateKey(ctx context.Context, userID string) (APIKeyRecord, error) {
	if e == nil || e.keys == nil || e.directory == nil {
		return APIKeyRecord{}, ErrEngineNotReady
	}

	if _, found, err := e.lookup(ctx, Identity{Kind: ByID, Value: userID}); err != nil {
		return APIKeyRecord{}, err
	} else if !found {
		e.emitAudit(ctx, auditEventKeyRejected, false, userID, ErrUserNotFound, nil)
		return APIKeyRecord{}, ErrUserNotFound
	}

	record := APIKeyRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Key:    newAPIKey(),
	}
	if err := e.keys.Create(ctx, record); err != nil {
		return APIKeyRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricKeyCreated)
	e.emitAudit(ctx, auditEventKeyCreated, true, userID, nil, func() map[string]string {
		return map[string]string{"key_id": record.ID}
	})

	return record, nil
}

// UserKeys describes the userkeys operation and its observable behavior.
//
// UserKeys may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) UserKeys(ctx context.Context, userID string) ([]APIKeyRecord, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

// VerifyKey resolves key to its record, enforcing both the disabled flag
// and the per-key request quota. A rejected request does not move the usage
// counter.
func (e *Engine) VerifyKey(ctx context.Context, key string) (APIKeyRecord, error) {
	if e == nil || e.keys == nil || e.limiter == nil {
		return APIKeyRecord{}, ErrEngineNotReady
	}
	if key == "" {
		return APIKeyRecord{}, ErrMissingCredential
	}

	record, found, err := e.keys.GetByKey(ctx, key)
	if err != nil {
		return APIKeyRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		e.metricInc(MetricKeyRejected)
		return APIKeyRecord{}, ErrKeyInvalid
	}
	if record.Disabled {
		e.metricInc(MetricKeyRejected)
		e.emitAudit(ctx, auditEventKeyRejected, false, record.UserID, ErrKeyDisabled, nil)
		return APIKeyRecord{}, ErrKeyDisabled
	}

	if err := translateGuardErr(e.limiter.Allow(ctx, key)); err != nil {
		if _, limited := err.(*RateLimitError); limited {
			e.emitRateLimit(ctx, key, nil)
		}
		return APIKeyRecord{}, err
	}

	return record, nil
}

// recordKeyUse bumps the key's persistent usage counter. The counter is a
// reporting aid; a failed bump never fails the request it counts.
func (e *Engine) recordKeyUse(ctx context.Context, record APIKeyRecord) {
	if e == nil || e.keys == nil {
		return
	}
	_ = e.keys.IncrementUsage(ctx, record.ID)
}
