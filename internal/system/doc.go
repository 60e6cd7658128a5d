// Package system implements the run store the exploration engine works on.
//
// A System is an arena of runs owned by one search. Runs are instantiated
// by appending and destroyed strictly last-in first-out, so a run's ID is
// its index and stays valid until the run is destroyed.
//
// All mutation the search performs goes through scoped guards:
//
//   - WithRun instantiates a run, calls fn, destroys the run
//   - (*Run).WithLength exposes more events, calls fn, restores the length
//   - (*Event).WithBinding binds a read, calls fn, restores the old binding
//
// Each guard restores unconditionally, also when fn returns false to abort
// an enumeration or panics. This is what keeps sibling branches of the
// depth-first search isolated from each other.
package system
