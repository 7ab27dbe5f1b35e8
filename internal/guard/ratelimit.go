package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const apiPrefix = "api:"

// ErrRateLimited reports an API key over its request quota. Use
// [AsRateLimited] for the remaining window time.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError carries the remaining time until the key's window expires.
// It matches [ErrRateLimited] under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", int(e.RetryAfter.Seconds()))
}

// Is reports whether target is [ErrRateLimited].
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// LimitConfig holds request quota tuning parameters.
type LimitConfig struct {
	Limit  int
	Window time.Duration
}

// KeyLimiter enforces a per-API-key request quota. The window refreshes on
// every counted request, so a key must go fully idle for one window before
// its counter resets.
type KeyLimiter struct {
	redis  redis.UniversalClient
	config LimitConfig
}

// NewKeyLimiter creates a [KeyLimiter] backed by the given Redis client.
func NewKeyLimiter(redisClient redis.UniversalClient, cfg LimitConfig) *KeyLimiter {
	return &KeyLimiter{redis: redisClient, config: cfg}
}

func apiKey(key string) string { return apiPrefix + key }

// Allow counts one request against key. When the counter has already
// reached the limit it returns a [RateLimitError] with the counter's
// remaining TTL and does not count the request. Otherwise it increments the
// counter and refreshes its expiry.
//
// The check and the increment are separate commands; a burst racing past
// the check can briefly overshoot the limit by the number of in-flight
// requests. The quota is a coarse usage cap, not an admission contract, so
// the overshoot is accepted in exchange for avoiding a script round trip.
func (l *KeyLimiter) Allow(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, apiKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err == nil && count >= int64(l.config.Limit) {
		ttl, ttlErr := l.redis.TTL(ctx, apiKey(key)).Result()
		if ttlErr != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, ttlErr)
		}
		if ttl < 0 {
			ttl = l.config.Window
		}
		return &RateLimitError{RetryAfter: ttl}
	}

	if err := l.redis.Incr(ctx, apiKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := l.redis.Expire(ctx, apiKey(key), l.config.Window).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Usage returns the current request count for key within its window.
// Missing keys return zero.
func (l *KeyLimiter) Usage(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, apiKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return int(count), nil
}

// AsJailed extracts a [JailedError] from err, if present.
func AsJailed(err error) (*JailedError, bool) {
	var je *JailedError
	if errors.As(err, &je) {
		return je, true
	}
	return nil, false
}

// AsRateLimited extracts a [RateLimitError] from err, if present.
func AsRateLimited(err error) (*RateLimitError, bool) {
	var re *RateLimitError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
