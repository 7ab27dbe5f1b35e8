package goGate

import (
	"strings"

	"github.com/google/uuid"
)

// IdentityKind defines a public type used by goGate APIs.
//
// IdentityKind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IdentityKind uint8

const (
	// ByUsername is an exported constant or variable used by the gateway engine.
	ByUsername IdentityKind = iota
	// ByEmail is an exported constant or variable used by the gateway engine.
	ByEmail
	// ByID is an exported constant or variable used by the gateway engine.
	ByID
)

// Identity is the tagged classification of a caller-supplied identifier
// string. The classification is purely syntactic: a string containing "@" is
// an email, a string parsing as a UUID is an opaque identifier, anything
// else is a username. No validation that a non-"@" string is actually a
// registered username happens here; that ambiguity is this type's explicit
// contract.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// ClassifyIdentifier classifies s for the user-fetch flow. The "@" test wins
// over the UUID test, so an email can never be mistaken for an identifier.
func ClassifyIdentifier(s string) Identity {
	if strings.Contains(s, "@") {
		return Identity{Kind: ByEmail, Value: s}
	}
	if _, err := uuid.Parse(s); err == nil {
		return Identity{Kind: ByID, Value: s}
	}
	return Identity{Kind: ByUsername, Value: s}
}

// ClassifyCredential classifies s for the authorization flow, which accepts
// only login identities: "@" means email, everything else means username.
// A UUID-shaped string is looked up as a username here, not as an ID.
func ClassifyCredential(s string) Identity {
	if strings.Contains(s, "@") {
		return Identity{Kind: ByEmail, Value: s}
	}
	return Identity{Kind: ByUsername, Value: s}
}
