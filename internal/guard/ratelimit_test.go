package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*KeyLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewKeyLimiter(rdb, LimitConfig{Limit: limit, Window: window}), mr
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, 60*time.Second)
	ctx := context.Background()

	if err := limiter.Allow(ctx, "abc123"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := limiter.Allow(ctx, "abc123"); err != nil {
		t.Fatalf("second request: %v", err)
	}

	err := limiter.Allow(ctx, "abc123")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third request: want ErrRateLimited, got %v", err)
	}
	re, ok := AsRateLimited(err)
	if !ok {
		t.Fatalf("third request: error is not *RateLimitError: %v", err)
	}
	if re.RetryAfter <= 0 || re.RetryAfter > 60*time.Second {
		t.Fatalf("RetryAfter = %v, want within (0, 60s]", re.RetryAfter)
	}

	// A rejected request is not counted.
	if count, _ := limiter.Usage(ctx, "abc123"); count != 2 {
		t.Fatalf("usage after rejection = %d, want 2", count)
	}
}

func TestLimiterWindowRefreshesOnEachRequest(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, 60*time.Second)
	ctx := context.Background()

	limiter.Allow(ctx, "k1")
	mr.FastForward(40 * time.Second)
	limiter.Allow(ctx, "k1")
	mr.FastForward(40 * time.Second)

	// 80 seconds since the first request, but the second one refreshed the
	// window, so the counter is still live with both requests on it.
	if count, _ := limiter.Usage(ctx, "k1"); count != 2 {
		t.Fatalf("usage = %d, want 2", count)
	}
}

func TestLimiterCounterExpiresAfterIdleWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, 60*time.Second)
	ctx := context.Background()

	limiter.Allow(ctx, "k2")
	limiter.Allow(ctx, "k2")
	if err := limiter.Allow(ctx, "k2"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}

	mr.FastForward(61 * time.Second)

	if err := limiter.Allow(ctx, "k2"); err != nil {
		t.Fatalf("after idle window: %v", err)
	}
	if count, _ := limiter.Usage(ctx, "k2"); count != 1 {
		t.Fatalf("usage after expiry = %d, want 1", count)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, 60*time.Second)
	ctx := context.Background()

	if err := limiter.Allow(ctx, "key-a"); err != nil {
		t.Fatalf("key-a: %v", err)
	}
	if err := limiter.Allow(ctx, "key-a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("key-a second: want ErrRateLimited, got %v", err)
	}
	if err := limiter.Allow(ctx, "key-b"); err != nil {
		t.Fatalf("key-b must be unaffected: %v", err)
	}
}

func TestLimiterRetryAfterTracksRemainingWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, 60*time.Second)
	ctx := context.Background()

	limiter.Allow(ctx, "k3")
	mr.FastForward(45 * time.Second)

	err := limiter.Allow(ctx, "k3")
	re, ok := AsRateLimited(err)
	if !ok {
		t.Fatalf("want *RateLimitError, got %v", err)
	}
	if re.RetryAfter != 15*time.Second {
		t.Fatalf("RetryAfter = %v, want 15s", re.RetryAfter)
	}
}

func TestLimiterBackendFailure(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	if err := limiter.Allow(context.Background(), "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("want ErrBackendUnavailable, got %v", err)
	}
}
