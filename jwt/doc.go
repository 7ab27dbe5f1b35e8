// Package jwt implements goGate's token authority: stateless, self-verifying
// access and refresh tokens signed in two separate domains.
//
// # Design
//
// A [Manager] owns two signing domains. Each domain has its own key material
// and TTL; claims are limited to the registered set (sub, exp, iat, iss). A
// token minted in one domain never parses in the other, which is what keeps
// an access token from being replayed as a refresh token.
//
// # What this package must NOT do
//
//   - Persist tokens or consult any store; verification is pure.
//   - Import goGate or any sibling package.
package jwt
