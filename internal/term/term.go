package term

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a term.
type Kind int

const (
	// Const is an atomic constant such as an agent name, nonce or key.
	Const Kind = iota + 1
	// Var is a variable; it may be bound to another term during unification.
	Var
	// Tuple is a pair; longer tuples nest to the right.
	Tuple
	// Encrypt is a message encrypted with a key.
	Encrypt
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case Const:
		return "const"
	case Var:
		return "var"
	case Tuple:
		return "tuple"
	case Encrypt:
		return "encrypt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Term is a symbolic message.
//
// For a Tuple, left and right are the head and tail. For an Encrypt,
// left is the payload and right is the key. A bound Var carries its value
// in subst; use Deref to follow bindings.
type Term struct {
	kind  Kind
	name  string
	left  *Term
	right *Term
	subst *Term
}

// NewConst creates a constant.
func NewConst(name string) *Term {
	return &Term{kind: Const, name: name}
}

// NewVar creates an unbound variable.
func NewVar(name string) *Term {
	return &Term{kind: Var, name: name}
}

// NewTuple creates a right-nested tuple of the given parts.
// A single part is returned as is; NewTuple panics when called without parts.
func NewTuple(parts ...*Term) *Term {
	if len(parts) == 0 {
		panic("term: empty tuple")
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return &Term{kind: Tuple, left: parts[0], right: NewTuple(parts[1:]...)}
}

// NewEncrypt creates {msg}key.
func NewEncrypt(msg, key *Term) *Term {
	return &Term{kind: Encrypt, left: msg, right: key}
}

// Deref follows variable bindings until it reaches a non-variable or an
// unbound variable. Deref(nil) is nil.
func Deref(t *Term) *Term {
	for t != nil && t.kind == Var && t.subst != nil {
		t = t.subst
	}
	return t
}

// Kind returns the kind of the dereferenced term.
func (t *Term) Kind() Kind {
	return Deref(t).kind
}

// Name returns the name of a constant or variable; empty for compound terms.
func (t *Term) Name() string {
	return Deref(t).name
}

// Left returns the tuple head or the encrypted payload.
func (t *Term) Left() *Term {
	return Deref(t).left
}

// Right returns the tuple tail or the encryption key.
func (t *Term) Right() *Term {
	return Deref(t).right
}

// IsVariable reports whether t is an unbound variable.
func (t *Term) IsVariable() bool {
	d := Deref(t)
	return d != nil && d.kind == Var
}

// IsBound reports whether t is a variable that currently carries a value.
func (t *Term) IsBound() bool {
	return t != nil && t.kind == Var && t.subst != nil
}

// Equal reports structural equality after dereferencing. Two unbound
// variables are equal only when they are the same variable.
func Equal(a, b *Term) bool {
	a, b = Deref(a), Deref(b)
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Const:
		return a.name == b.name
	case Tuple, Encrypt:
		return Equal(a.left, b.left) && Equal(a.right, b.right)
	default:
		return false
	}
}

// Duplicate copies the tuple and encryption structure of t. Leaves are
// shared, so a variable in the copy is the same variable as in t.
func Duplicate(t *Term) *Term {
	if t == nil {
		return nil
	}
	switch t.kind {
	case Tuple, Encrypt:
		return &Term{kind: t.kind, left: Duplicate(t.left), right: Duplicate(t.right)}
	default:
		return t
	}
}

// Vars returns the distinct unbound variables of t in left-to-right order.
func Vars(t *Term) []*Term {
	var out []*Term
	seen := make(map[*Term]bool)
	var walk func(*Term)
	walk = func(t *Term) {
		t = Deref(t)
		if t == nil {
			return
		}
		switch t.kind {
		case Var:
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		case Tuple, Encrypt:
			walk(t.left)
			walk(t.right)
		}
	}
	walk(t)
	return out
}

// String renders t in Parse notation with all bindings applied.
func (t *Term) String() string {
	var b strings.Builder
	write(&b, t)
	return b.String()
}

func write(b *strings.Builder, t *Term) {
	t = Deref(t)
	if t == nil {
		b.WriteString("-")
		return
	}
	switch t.kind {
	case Const, Var:
		b.WriteString(t.name)
	case Tuple:
		b.WriteByte('(')
		for {
			write(b, t.left)
			next := Deref(t.right)
			if next.kind != Tuple {
				b.WriteString(", ")
				write(b, next)
				break
			}
			b.WriteString(", ")
			t = next
		}
		b.WriteByte(')')
	case Encrypt:
		b.WriteByte('{')
		write(b, t.left)
		b.WriteByte('}')
		write(b, t.right)
	}
}
