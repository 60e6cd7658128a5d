package ir

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/arachne/internal/term"
)

// EventKind distinguishes role events.
type EventKind int

const (
	// Send emits a message.
	Send EventKind = iota + 1
	// Read receives a message; unbound reads are the goals of the search.
	Read
)

// String returns "send" or "read".
func (k EventKind) String() string {
	switch k {
	case Send:
		return "send"
	case Read:
		return "read"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// MarshalJSON encodes the kind as its name.
func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ParseEventKind maps "send" and "read" to their kinds.
func ParseEventKind(s string) (EventKind, error) {
	switch s {
	case "send":
		return Send, nil
	case "read":
		return Read, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q: must be send or read", s)
	}
}

// Event is one step of a role template.
type Event struct {
	Kind    EventKind
	Label   string
	Message *term.Term

	// Internal reads are bookkeeping steps; they are never goals.
	Internal bool
}

// Role is a static event sequence. Fresh lists constants that each run of
// the role generates anew (nonces, session keys).
type Role struct {
	Name   string
	Events []Event
	Fresh  []string
}

// Sends returns the indices of the role's send events in order.
func (r *Role) Sends() []int {
	var idx []int
	for i, ev := range r.Events {
		if ev.Kind == Send {
			idx = append(idx, i)
		}
	}
	return idx
}

// Protocol is an ordered list of roles.
type Protocol struct {
	Name  string
	Roles []*Role
}

// Role returns the role with the given name, or nil.
func (p *Protocol) Role(name string) *Role {
	for _, r := range p.Roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// RunSpec names a role instantiated during setup.
type RunSpec struct {
	Protocol string `json:"protocol" yaml:"protocol"`
	Role     string `json:"role" yaml:"role"`
}

// KeyPair declares two keys as mutual inverses.
type KeyPair struct {
	Key     *term.Term
	Inverse *term.Term
}

// Model is a compiled protocol model ready for exploration.
type Model struct {
	Name      string
	Protocols []*Protocol

	// Knowledge is the intruder's initial knowledge.
	Knowledge []*term.Term
	Inverses  []KeyPair

	// Runs are instantiated, fully exposed, before the search starts.
	Runs []RunSpec

	// Goals are terms the intruder must derive, posed as initial
	// intruder goal runs after Runs.
	Goals []*term.Term
}

// Protocol returns the protocol with the given name, or nil.
func (m *Model) Protocol(name string) *Protocol {
	for _, p := range m.Protocols {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Resolve finds the protocol and role named by spec.
func (m *Model) Resolve(spec RunSpec) (*Protocol, *Role, error) {
	p := m.Protocol(spec.Protocol)
	if p == nil {
		return nil, nil, fmt.Errorf("unknown protocol %q", spec.Protocol)
	}
	r := p.Role(spec.Role)
	if r == nil {
		return nil, nil, fmt.Errorf("protocol %q has no role %q", spec.Protocol, spec.Role)
	}
	return p, r, nil
}

// InverseTable builds the term-level key inverse table.
func (m *Model) InverseTable() *term.Inverses {
	inv := term.NewInverses()
	for _, kp := range m.Inverses {
		inv.Add(kp.Key, kp.Inverse)
	}
	return inv
}

// Canonical renders the model as plain maps and lists for MarshalCanonical.
func (m *Model) Canonical() map[string]any {
	protocols := make([]any, len(m.Protocols))
	for i, p := range m.Protocols {
		roles := make([]any, len(p.Roles))
		for j, r := range p.Roles {
			events := make([]any, len(r.Events))
			for k, ev := range r.Events {
				events[k] = map[string]any{
					"kind":     ev.Kind.String(),
					"label":    ev.Label,
					"message":  ev.Message.String(),
					"internal": ev.Internal,
				}
			}
			fresh := make([]any, len(r.Fresh))
			for k, f := range r.Fresh {
				fresh[k] = f
			}
			roles[j] = map[string]any{"name": r.Name, "events": events, "fresh": fresh}
		}
		protocols[i] = map[string]any{"name": p.Name, "roles": roles}
	}

	runs := make([]any, len(m.Runs))
	for i, r := range m.Runs {
		runs[i] = map[string]any{"protocol": r.Protocol, "role": r.Role}
	}
	inverses := make([]any, len(m.Inverses))
	for i, kp := range m.Inverses {
		inverses[i] = []any{kp.Key.String(), kp.Inverse.String()}
	}

	return map[string]any{
		"name":      m.Name,
		"protocols": protocols,
		"knowledge": termStrings(m.Knowledge),
		"inverses":  inverses,
		"runs":      runs,
		"goals":     termStrings(m.Goals),
	}
}

func termStrings(ts []*term.Term) []any {
	out := make([]any, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
