package goGate

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	jailed := error(&JailedError{RetryAfter: 120 * time.Second})
	if !errors.Is(jailed, ErrJailed) {
		t.Fatal("JailedError must match ErrJailed")
	}
	if errors.Is(jailed, ErrRateLimited) {
		t.Fatal("JailedError must not match ErrRateLimited")
	}

	limited := error(&RateLimitError{RetryAfter: 30 * time.Second})
	if !errors.Is(limited, ErrRateLimited) {
		t.Fatal("RateLimitError must match ErrRateLimited")
	}
	if errors.Is(limited, ErrJailed) {
		t.Fatal("RateLimitError must not match ErrJailed")
	}
}

func TestRetryAfterHelper(t *testing.T) {
	if got := RetryAfter(&JailedError{RetryAfter: 300 * time.Second}); got != 300*time.Second {
		t.Fatalf("jailed hint = %v", got)
	}
	if got := RetryAfter(&RateLimitError{RetryAfter: 45 * time.Second}); got != 45*time.Second {
		t.Fatalf("limited hint = %v", got)
	}

	// Wrapping preserves the hint.
	wrapped := fmt.Errorf("request denied: %w", &RateLimitError{RetryAfter: 45 * time.Second})
	if got := RetryAfter(wrapped); got != 45*time.Second {
		t.Fatalf("wrapped hint = %v", got)
	}

	if got := RetryAfter(ErrUserNotFound); got != 0 {
		t.Fatalf("plain sentinel hint = %v, want 0", got)
	}
	if got := RetryAfter(nil); got != 0 {
		t.Fatalf("nil hint = %v, want 0", got)
	}
}
