package term

// Inverses records which keys decrypt each other. A key without an entry
// is symmetric and is its own inverse. The zero value and nil are empty
// tables.
type Inverses struct {
	pairs [][2]*Term
}

// NewInverses creates an empty table.
func NewInverses() *Inverses {
	return &Inverses{}
}

// Add registers a and b as mutual inverses (e.g. a public and private key).
func (inv *Inverses) Add(a, b *Term) {
	inv.pairs = append(inv.pairs, [2]*Term{a, b})
}

// Len returns the number of registered pairs.
func (inv *Inverses) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.pairs)
}

// Inverse returns the key that decrypts messages encrypted with k.
func (inv *Inverses) Inverse(k *Term) *Term {
	if inv != nil {
		for _, p := range inv.pairs {
			if Equal(k, p[0]) {
				return p[1]
			}
			if Equal(k, p[1]) {
				return p[0]
			}
		}
	}
	return k
}
