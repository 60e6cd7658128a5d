// Package engine implements the Arachne backward search over semistates.
//
// The engine starts from the model's setup runs and intruder goals and
// repeatedly picks the first unbound read (the goal) and tries every way
// to satisfy it: from a send of a live run, from a send of a freshly
// instantiated run, or through the intruder. Each candidate binding is
// committed, the search recurses, and the binding is undone before the
// next candidate is tried. A semistate with no goal left is terminal.
//
// ARCHITECTURE:
//
// Single-threaded depth-first search:
// All state lives in one system.System owned by the Engine. There are no
// goroutines and no locks; every mutation is made through a scoped guard
// of package system and undone when the guard's callback returns.
//
// Search step (iterate):
//  1. depth++; prune when Limits are exceeded (depth or live runs)
//  2. count and report the semistate
//  3. select the first goal in run-then-index order
//  4. no goal: terminal, count and report
//  5. otherwise dispatch to the binder for the goal's owner
//  6. depth-- on every path
//
// Binders:
//   - regular goal: every send of every role (declaration order),
//     existing runs then a new run, then the intruder-goal source
//   - intruder goal: subterm of a regular send, with every needed
//     decryption key posed as a further intruder goal; AND construction
//     from initial knowledge, tupling or encryption
//
// CRITICAL PATTERNS:
//
// Stack discipline:
// Runs are destroyed in exact reverse order of instantiation and every
// binding and length is restored on unwind, including when a branch
// aborts. The number of live runs before and after any iterate call is
// the same.
//
// Deterministic enumeration:
// Protocols, roles and events are enumerated in declaration order,
// unifiers in term.MguInTerm/SubtermMgu order, and existing runs by ID.
// Identical input and limits produce an identical sequence of explored
// semistates and an identical trace digest.
//
// Abort:
// A binder or reporter returning false stops the remaining enumeration.
// Cancellation of the Explore context is delivered the same way.
package engine
