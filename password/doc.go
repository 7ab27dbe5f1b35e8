// Package password provides one-way password hashing and verification for
// goGate using Argon2id in PHC string format, plus the strength scoring and
// generation helpers behind the gateway's password utility endpoints.
//
// The engine treats hashing as an opaque hash/verify capability; nothing
// outside this package inspects the encoded form.
package password
