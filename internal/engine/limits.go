package engine

import "fmt"

// Default limits: prune past depth 2 or beyond 5 runs.
const (
	DefaultMaxDepth = 2
	DefaultMaxRuns  = 5
)

// Limits bound the search. They are safety valves against unbounded
// search, not completeness guarantees: a pruned branch is neither a
// solution nor a refutation.
type Limits struct {
	// MaxDepth is the deepest iterate level that is still explored.
	MaxDepth int `toml:"max_depth" yaml:"max_depth" json:"max_depth"`

	// MaxRuns is the largest number of live runs that is still explored.
	MaxRuns int `toml:"max_runs" yaml:"max_runs" json:"max_runs"`
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{MaxDepth: DefaultMaxDepth, MaxRuns: DefaultMaxRuns}
}

// Validate rejects limits that would prune every state.
func (l Limits) Validate() error {
	if l.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", l.MaxDepth)
	}
	if l.MaxRuns < 0 {
		return fmt.Errorf("max runs must not be negative, got %d", l.MaxRuns)
	}
	return nil
}

// PruneReason tells why a state was not expanded.
type PruneReason int

const (
	// NotPruned means the state is explored.
	NotPruned PruneReason = iota
	// PrunedDepth means the search is deeper than MaxDepth.
	PrunedDepth
	// PrunedRuns means more than MaxRuns runs are live.
	PrunedRuns
)

// String returns a short description for logs.
func (r PruneReason) String() string {
	switch r {
	case NotPruned:
		return "not pruned"
	case PrunedDepth:
		return "too many iteration levels"
	case PrunedRuns:
		return "too many runs"
	default:
		return fmt.Sprintf("prune(%d)", int(r))
	}
}

// Check applies the prune policy to a state at the given depth with the
// given number of live runs. Depth is checked first.
func (l Limits) Check(depth, runs int) PruneReason {
	if depth > l.MaxDepth {
		return PrunedDepth
	}
	if runs > l.MaxRuns {
		return PrunedRuns
	}
	return NotPruned
}
