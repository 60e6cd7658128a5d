package term

// unify computes a most general unifier of a and b, binding variables in
// place. Every variable it binds is appended to trail, including on
// failure, so the caller can always reset.
func unify(a, b *Term, trail *[]*Term) bool {
	a, b = Deref(a), Deref(b)
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind == Var {
		return bind(a, b, trail)
	}
	if b.kind == Var {
		return bind(b, a, trail)
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Const:
		return a.name == b.name
	case Tuple, Encrypt:
		return unify(a.left, b.left, trail) && unify(a.right, b.right, trail)
	default:
		return false
	}
}

func bind(v, t *Term, trail *[]*Term) bool {
	if occurs(v, t) {
		return false
	}
	v.subst = t
	*trail = append(*trail, v)
	return true
}

// occurs reports whether variable v appears in t.
func occurs(v, t *Term) bool {
	t = Deref(t)
	if t == nil {
		return false
	}
	switch t.kind {
	case Var:
		return t == v
	case Tuple, Encrypt:
		return occurs(v, t.left) || occurs(v, t.right)
	default:
		return false
	}
}

// reset unbinds the trail in reverse order.
func reset(trail []*Term) {
	for i := len(trail) - 1; i >= 0; i-- {
		trail[i].subst = nil
	}
}

// Unifiable reports whether a and b have a unifier. No binding survives
// the call.
func Unifiable(a, b *Term) bool {
	var trail []*Term
	ok := unify(a, b, &trail)
	reset(trail)
	return ok
}

// Mgu unifies a and b and, on success, calls fn with the unifier applied.
// The unifier is undone before Mgu returns. When a and b do not unify, fn
// is not called and Mgu returns true so that enumeration continues.
func Mgu(a, b *Term, fn func() bool) bool {
	var trail []*Term
	defer func() { reset(trail) }()
	if !unify(a, b, &trail) {
		return true
	}
	return fn()
}

// MguInTerm enumerates the unifiers of t1 with t2 and with every tuple
// component of t2, whole term first, then head before tail. fn is called
// once per unifier. A false from fn stops the enumeration and is returned.
func MguInTerm(t1, t2 *Term, fn func() bool) bool {
	t2 = Deref(t2)
	if t2 == nil {
		return true
	}
	if !Mgu(t1, t2, fn) {
		return false
	}
	if t2.kind == Tuple {
		return MguInTerm(t1, t2.left, fn) && MguInTerm(t1, t2.right, fn)
	}
	return true
}

// UnifiableInTerm reports whether MguInTerm would call its continuation at
// least once.
func UnifiableInTerm(t1, t2 *Term) bool {
	found := false
	MguInTerm(t1, t2, func() bool {
		found = true
		return false
	})
	return found
}

// SubtermMgu enumerates the unifiers of t1 with every subterm of t2 that
// can be reached through tuples and encryptions. Unbound variables in t2
// are never entered. For each unifier fn receives the keys needed to
// expose the subterm: the inverse of every encryption key traversed, outer
// encryption first.
func SubtermMgu(t1, t2 *Term, inv *Inverses, fn func(keys []*Term) bool) bool {
	return subtermMgu(t1, t2, inv, nil, fn)
}

func subtermMgu(t1, t2 *Term, inv *Inverses, keys []*Term, fn func(keys []*Term) bool) bool {
	t2 = Deref(t2)
	if t2 == nil || t2.kind == Var {
		return true
	}
	if !Mgu(t1, t2, func() bool { return fn(keys) }) {
		return false
	}
	switch t2.kind {
	case Tuple:
		return subtermMgu(t1, t2.left, inv, keys, fn) && subtermMgu(t1, t2.right, inv, keys, fn)
	case Encrypt:
		next := make([]*Term, len(keys), len(keys)+1)
		copy(next, keys)
		next = append(next, inv.Inverse(t2.right))
		return subtermMgu(t1, t2.left, inv, next, fn)
	default:
		return true
	}
}

// SubtermUnifiable reports whether t1 may unify with a subterm of t2.
// Unlike SubtermMgu, an unbound variable in t2 counts as a candidate,
// because a later binding may expose a matching subterm.
func SubtermUnifiable(t1, t2 *Term) bool {
	t2 = Deref(t2)
	if t2 == nil {
		return false
	}
	if t2.kind == Var || Unifiable(t1, t2) {
		return true
	}
	switch t2.kind {
	case Tuple:
		return SubtermUnifiable(t1, t2.left) || SubtermUnifiable(t1, t2.right)
	case Encrypt:
		return SubtermUnifiable(t1, t2.left)
	default:
		return false
	}
}
