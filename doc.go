// Package goGate provides the authentication and abuse-protection core for a
// multi-tenant ML inference gateway: JWT access/refresh token issuance, a
// Redis-backed login jail keyed by client address, and a per-API-key request
// rate limiter in front of the inference endpoints.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (TokenPair, UserRecord, APIKeyRecord, etc.). Counter mechanics,
// flow orchestration, and audit dispatch live under internal/ and are never
// exported. Persistence adapters (postgres) and the model registry
// (inference) are separate subpackages wired in through the Builder.
//
// # What this package must NOT do
//
//   - Expose Redis clients, counter key layouts, or signing keys in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Retry failed operations; retry policy belongs to the caller, guided by
//     the RetryAfter hints on [JailedError] and [RateLimitError].
//
// # Performance contract
//
// VerifyAccess is the hot path for bearer-token routes and completes without
// any Redis round-trip. Authorize, Refresh, and Predict are allowed one
// counter-store round-trip per guard they evaluate.
package goGate
