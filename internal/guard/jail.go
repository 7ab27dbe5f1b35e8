package guard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptPrefix = "login_attempts:"
	jailPrefix    = "jailed_users:"
)

var (
	// ErrJailed reports a jailed client address. Use [AsJailed] for the
	// remaining jail time.
	ErrJailed = errors.New("address jailed")
	// ErrBackendUnavailable indicates the counter store is unreachable.
	ErrBackendUnavailable = errors.New("counter store unavailable")
)

// JailedError carries the remaining jail TTL. It matches [ErrJailed] under
// errors.Is.
type JailedError struct {
	RetryAfter time.Duration
}

func (e *JailedError) Error() string {
	return fmt.Sprintf("address jailed, retry after %ds", int(e.RetryAfter.Seconds()))
}

// Is reports whether target is [ErrJailed].
func (e *JailedError) Is(target error) bool { return target == ErrJailed }

// JailConfig holds jail tuning parameters.
type JailConfig struct {
	Threshold int
	JailTTL   time.Duration
}

// LoginJail tracks consecutive failed login attempts per client address and
// jails an address once the threshold is reached. State lives entirely in
// the counter store; the jail exits only by TTL expiry.
type LoginJail struct {
	redis  redis.UniversalClient
	config JailConfig
}

// NewLoginJail creates a [LoginJail] backed by the given Redis client.
func NewLoginJail(redisClient redis.UniversalClient, cfg JailConfig) *LoginJail {
	return &LoginJail{redis: redisClient, config: cfg}
}

func attemptKey(addr string) string { return attemptPrefix + addr }
func jailKey(addr string) string    { return jailPrefix + addr }

// Check reports whether addr is currently jailed. It is the first guard in
// the authorization flow, evaluated before any directory lookup so a jailed
// client never learns whether an identity exists.
func (j *LoginJail) Check(ctx context.Context, addr string) error {
	ttl, err := j.redis.TTL(ctx, jailKey(addr)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	// TTL returns a negative duration when the key is absent or has no
	// expiry; jail markers always carry one.
	if ttl > 0 {
		return &JailedError{RetryAfter: ttl}
	}
	return nil
}

// RecordFailure increments the attempt counter for addr. When the counter
// reaches the threshold it sets the jail marker, deletes the counter, and
// returns a [JailedError] for the full jail TTL. Below the threshold it
// returns the current count.
//
// The decision is taken from the atomic INCR result, so racing failures
// from one address each observe a distinct count and exactly one of them
// trips the jail.
func (j *LoginJail) RecordFailure(ctx context.Context, addr string) (int, error) {
	count, err := j.redis.Incr(ctx, attemptKey(addr)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// First failure starts the counter's own expiry so an abandoned streak
	// does not linger in the store forever.
	if count == 1 {
		if err := j.redis.Expire(ctx, attemptKey(addr), j.config.JailTTL).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	if count < int64(j.config.Threshold) {
		return int(count), nil
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := j.redis.Set(ctx, jailKey(addr), now, j.config.JailTTL).Err(); err != nil {
		return int(count), fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := j.redis.Del(ctx, attemptKey(addr)).Err(); err != nil {
		return int(count), fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return int(count), &JailedError{RetryAfter: j.config.JailTTL}
}

// Reset returns addr to the clear state after a successful login. The jail
// marker is deleted too, defensively; a jailed address cannot normally reach
// a successful login.
func (j *LoginJail) Reset(ctx context.Context, addr string) error {
	if err := j.redis.Del(ctx, attemptKey(addr), jailKey(addr)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Attempts returns the current failed-attempt count for addr. Missing keys
// return zero.
func (j *LoginJail) Attempts(ctx context.Context, addr string) (int, error) {
	count, err := j.redis.Get(ctx, attemptKey(addr)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return int(count), nil
}
