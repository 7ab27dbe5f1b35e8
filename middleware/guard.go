package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goGate "github.com/InsightGuard/goGate"
)

type subjectContextKey struct{}

// SubjectFromContext returns the verified token subject injected by
// [RequireAccess].
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey{}).(string)
	return subject, ok
}

// RequireAccess returns middleware that rejects requests lacking a valid
// bearer access token. The verified subject is injected into the request
// context for the wrapped handler.
func RequireAccess(engine *goGate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			subject, err := engine.VerifyAccess(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientAddr returns middleware that stamps the request's client address
// into the context. Login handlers depend on this; without an address the
// engine cannot attribute failures and bypasses the login jail.
func ClientAddr() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goGate.WithClientAddr(r.Context(), remoteHost(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
