package term

import "fmt"

// Renamer produces the per-run copy of role template terms. Template
// variables become fresh variables and role-fresh constants become
// distinct constants, both suffixed with "#<run>". Variables are matched
// by name, so every occurrence of X in one role maps to the same copy.
type Renamer struct {
	suffix string
	fresh  map[string]bool
	vars   map[string]*Term
	consts map[string]*Term
}

// NewRenamer creates a renamer for run number run. fresh lists the
// constants generated anew by each run of the role.
func NewRenamer(run int, fresh []string) *Renamer {
	r := &Renamer{
		suffix: fmt.Sprintf("#%d", run),
		fresh:  make(map[string]bool, len(fresh)),
		vars:   make(map[string]*Term),
		consts: make(map[string]*Term),
	}
	for _, name := range fresh {
		r.fresh[name] = true
	}
	return r
}

// Apply returns the localized copy of a template term.
// Template terms are never bound, so t is walked without dereferencing.
func (r *Renamer) Apply(t *Term) *Term {
	if t == nil {
		return nil
	}
	switch t.kind {
	case Var:
		v, ok := r.vars[t.name]
		if !ok {
			v = NewVar(t.name + r.suffix)
			r.vars[t.name] = v
		}
		return v
	case Const:
		if !r.fresh[t.name] {
			return t
		}
		c, ok := r.consts[t.name]
		if !ok {
			c = NewConst(t.name + r.suffix)
			r.consts[t.name] = c
		}
		return c
	default:
		return &Term{kind: t.kind, left: r.Apply(t.left), right: r.Apply(t.right)}
	}
}
