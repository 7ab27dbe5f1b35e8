// Package guard implements goGate's abuse throttles over the shared Redis
// counter store: the login jail keyed by client address and the fixed-window
// request limiter keyed by API key.
//
// # Key layout
//
//	login_attempts:{address}  consecutive failed login counter
//	jailed_users:{address}    jail marker, TTL-bounded
//	api:{key}                 per-key request counter for the current window
//
// Guard owns these prefixes exclusively; nothing else writes them.
//
// # Atomicity
//
// Jailing decisions are made from the return value of a single atomic INCR,
// so concurrent failures from one address cannot slip past the threshold.
// The request limiter keeps the original check-then-increment sequence; its
// looseness under concurrent bursts is documented on [KeyLimiter.Allow].
package guard
