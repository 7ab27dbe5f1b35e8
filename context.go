package goGate

import "context"

type clientAddrContextKey struct{}

// WithClientAddr attaches the caller's network address to ctx. The Engine
// uses it as the jail key for login attempts and for audit logging. Authorize
// calls without a client address skip the jail entirely.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrContextKey{}, addr)
}

func clientAddrFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	addr, _ := ctx.Value(clientAddrContextKey{}).(string)
	return addr
}
