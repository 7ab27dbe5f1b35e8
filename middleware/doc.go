// Package middleware exposes HTTP adapters for the two gateway credential
// surfaces built on top of goGate.Engine.
//
// # Guards
//
//   - [RequireAccess] guards user-facing routes with a bearer access token.
//   - [RequireAPIKey] guards programmatic routes with an X-API-KEY header,
//     enforcing the per-key request quota and setting Retry-After on 429s.
//   - [ClientAddr] stamps the request's client address into the context so
//     the login jail can attribute failures.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to the
// engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the engine.
package middleware
