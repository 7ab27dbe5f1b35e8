package goGate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTokenInvalid is an exported constant or variable used by the gateway engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUserNotFound is an exported constant or variable used by the gateway engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrIncorrectPassword is an exported constant or variable used by the gateway engine.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrJailed is an exported constant or variable used by the gateway engine.
	ErrJailed = errors.New("login attempts jailed")
	// ErrRateLimited is an exported constant or variable used by the gateway engine.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrMissingCredential is an exported constant or variable used by the gateway engine.
	ErrMissingCredential = errors.New("credential not provided")
	// ErrDuplicateIdentity is an exported constant or variable used by the gateway engine.
	ErrDuplicateIdentity = errors.New("username or email already exists")
	// ErrKeyInvalid is an exported constant or variable used by the gateway engine.
	ErrKeyInvalid = errors.New("invalid api key")
	// ErrKeyDisabled is an exported constant or variable used by the gateway engine.
	ErrKeyDisabled = errors.New("api key disabled")
	// ErrLanguageUnsupported is an exported constant or variable used by the gateway engine.
	ErrLanguageUnsupported = errors.New("language not supported")
	// ErrInvalidEmail is an exported constant or variable used by the gateway engine.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordPolicy is an exported constant or variable used by the gateway engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPredictionFailed is an exported constant or variable used by the gateway engine.
	ErrPredictionFailed = errors.New("prediction failed")
	// ErrAccountCreationDisabled is an exported constant or variable used by the gateway engine.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrEngineNotReady is an exported constant or variable used by the gateway engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable is an exported constant or variable used by the gateway engine.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrDirectoryUnavailable is an exported constant or variable used by the gateway engine.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
)

// JailedError reports a jailed client address along with the time remaining
// until the jail marker expires. It matches [ErrJailed] under [errors.Is].
type JailedError struct {
	RetryAfter time.Duration
}

func (e *JailedError) Error() string {
	return fmt.Sprintf("login attempts jailed, retry after %ds", int(e.RetryAfter.Seconds()))
}

// Is reports whether target is [ErrJailed].
func (e *JailedError) Is(target error) bool { return target == ErrJailed }

// RateLimitError reports an exhausted rate window along with the time
// remaining until the window expires. It matches [ErrRateLimited] under
// [errors.Is].
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", int(e.RetryAfter.Seconds()))
}

// Is reports whether target is [ErrRateLimited].
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfter extracts the retry hint carried by a [JailedError] or
// [RateLimitError]. It returns zero when err carries no hint.
func RetryAfter(err error) time.Duration {
	var jailed *JailedError
	if errors.As(err, &jailed) {
		return jailed.RetryAfter
	}
	var limited *RateLimitError
	if errors.As(err, &limited) {
		return limited.RetryAfter
	}
	return 0
}
