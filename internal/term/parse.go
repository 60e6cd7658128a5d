package term

import (
	"fmt"
	"unicode"
)

// ParseError reports a malformed term with the byte offset of the problem.
type ParseError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("term %q: offset %d: %s", e.Input, e.Offset, e.Msg)
}

// Parse reads a term in the notation described in the package comment.
// Variables with the same name within one input are the same variable.
func Parse(s string) (*Term, error) {
	p := &parser{src: []rune(s), input: s, vars: make(map[string]*Term)}
	t, err := p.term()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", string(p.src[p.pos]))
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for literals known to be valid.
func MustParse(s string) *Term {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src   []rune
	input string
	pos   int
	vars  map[string]*Term
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Input: p.input, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) peek() rune {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(r rune) error {
	if p.peek() != r {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, got end of input", string(r))
		}
		return p.errorf("expected %q, got %q", string(r), string(p.src[p.pos]))
	}
	p.pos++
	return nil
}

func (p *parser) term() (*Term, error) {
	switch r := p.peek(); {
	case r == '(':
		p.pos++
		return p.list(')')
	case r == '{':
		p.pos++
		msg, err := p.list('}')
		if err != nil {
			return nil, err
		}
		key, err := p.term()
		if err != nil {
			return nil, err
		}
		return NewEncrypt(msg, key), nil
	case isIdentRune(r):
		return p.ident(), nil
	case r == 0:
		return nil, p.errorf("unexpected end of input")
	default:
		return nil, p.errorf("unexpected %q", string(r))
	}
}

// list reads comma-separated terms up to end as a right-nested tuple.
func (p *parser) list(end rune) (*Term, error) {
	var parts []*Term
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect(end); err != nil {
			return nil, err
		}
		return NewTuple(parts...), nil
	}
}

func (p *parser) ident() *Term {
	start := p.pos
	for p.pos < len(p.src) && isIdentRune(p.src[p.pos]) {
		p.pos++
	}
	name := string(p.src[start:p.pos])
	if unicode.IsUpper(p.src[start]) {
		if v, ok := p.vars[name]; ok {
			return v
		}
		v := NewVar(name)
		p.vars[name] = v
		return v
	}
	return NewConst(name)
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '#' || r == '\''
}
