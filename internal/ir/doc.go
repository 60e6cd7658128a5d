// Package ir provides the protocol model types shared by the compiler, the
// run store and the exploration engine.
//
// A Model is a set of protocols (each an ordered list of roles, each role a
// static sequence of send and read events), the intruder's initial
// knowledge and key inverses, and the setup: which runs exist and which
// intruder goals are posed before the search starts.
//
// Role event lists are read-only templates. Runs copy them; nothing in
// this package is mutated by the search.
//
// Key design constraints:
//   - Declaration order is preserved everywhere (protocols, roles, events);
//     the engine's enumeration order is derived from it
//   - Content-addressed identity uses RFC 8785 canonical JSON and SHA-256
//     with domain separation (hash.go)
//   - ir imports only internal/term
package ir
