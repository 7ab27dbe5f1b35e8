// Package flows holds the request flow implementations behind the engine's
// public methods. Each flow receives its dependencies as a struct of
// functions so the flow logic stays free of engine internals and can be
// tested with plain fakes.
//
// Flows never touch Redis, the user directory, or the token manager
// directly. The engine wires those in when it builds the dependency sets.
package flows
