package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	goGate "github.com/InsightGuard/goGate"
)

// APIKeyHeader is the request header carrying the caller's API key.
const APIKeyHeader = "X-API-KEY"

type keyRecordContextKey struct{}

// KeyFromContext returns the verified API key record injected by
// [RequireAPIKey].
func KeyFromContext(ctx context.Context) (goGate.APIKeyRecord, bool) {
	record, ok := ctx.Value(keyRecordContextKey{}).(goGate.APIKeyRecord)
	return record, ok
}

// RequireAPIKey returns middleware that rejects requests lacking a valid,
// enabled, in-quota API key. Quota rejections answer 429 with a Retry-After
// header holding the seconds until the key's window expires.
func RequireAPIKey(engine *goGate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				WriteError(w, goGate.ErrMissingCredential)
				return
			}

			record, err := engine.VerifyKey(r.Context(), key)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), keyRecordContextKey{}, record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteError maps an engine error onto an HTTP response. Quota and jail
// rejections carry a Retry-After header.
func WriteError(w http.ResponseWriter, err error) {
	if retry := goGate.RetryAfter(err); retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
	}
	http.Error(w, err.Error(), StatusForError(err))
}

// StatusForError maps the engine's error taxonomy onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goGate.ErrRateLimited), errors.Is(err, goGate.ErrJailed):
		return http.StatusTooManyRequests
	case errors.Is(err, goGate.ErrKeyDisabled):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrKeyInvalid),
		errors.Is(err, goGate.ErrTokenInvalid),
		errors.Is(err, goGate.ErrIncorrectPassword),
		errors.Is(err, goGate.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, goGate.ErrMissingCredential),
		errors.Is(err, goGate.ErrInvalidEmail),
		errors.Is(err, goGate.ErrPasswordPolicy),
		errors.Is(err, goGate.ErrLanguageUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, goGate.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, goGate.ErrAccountCreationDisabled):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrStoreUnavailable),
		errors.Is(err, goGate.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
