// Package term provides symbolic message terms and most-general-unifier
// search for the exploration engine.
//
// Terms are constants, variables, right-nested tuples and encryptions.
// Variables are bound in place: unification writes a substitution pointer
// into each variable it binds and records the variable on a trail. Every
// enumeration entry point (Mgu, MguInTerm, SubtermMgu) undoes its trail
// before returning, so callers never observe a binding outside the
// continuation that received it.
//
// Continuations return a bool. Returning false aborts the enumeration and
// the false propagates to the caller; bindings made so far are still undone.
//
// Notation accepted by Parse:
//
//	k          constant (lower-case first letter)
//	X          variable (upper-case first letter)
//	(a, b, c)  tuple, stored as (a, (b, c))
//	{m}k       m encrypted with key k
//	{a, b}k    shorthand for {(a, b)}k
package term
