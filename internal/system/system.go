package system

import (
	"fmt"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/term"
)

// Invalid marks an unbound read.
const Invalid = -1

// Event is a run's live copy of a role event.
type Event struct {
	Kind     ir.EventKind
	Label    string
	Message  *term.Term
	Internal bool

	// BindRun and BindIndex locate the send that satisfies this read,
	// or are Invalid.
	BindRun   int
	BindIndex int
}

// IsGoal reports whether the event is a read the search must satisfy.
func (ev *Event) IsGoal() bool {
	return ev.Kind == ir.Read && !ev.Internal
}

// IsBound reports whether the event has a binding.
func (ev *Event) IsBound() bool {
	return ev.BindRun != Invalid
}

// WithBinding binds the event to (run, index), calls fn, and restores the
// previous binding (which may be Invalid) before returning fn's result.
func (ev *Event) WithBinding(run, index int, fn func() bool) bool {
	oldRun, oldIndex := ev.BindRun, ev.BindIndex
	ev.BindRun, ev.BindIndex = run, index
	defer func() {
		ev.BindRun, ev.BindIndex = oldRun, oldIndex
	}()
	return fn()
}

// Run is a live instantiation of a role.
type Run struct {
	ID       int
	Protocol *ir.Protocol
	Role     *ir.Role
	Events   []*Event

	// Length is the number of events currently exposed to the search.
	// INVARIANT: 0 <= Length <= len(Events).
	Length int
}

// SetLength sets the exposed length. It panics when n is out of range.
func (r *Run) SetLength(n int) {
	if n < 0 || n > len(r.Events) {
		panic(fmt.Sprintf("system: run %d length %d out of range [0, %d]", r.ID, n, len(r.Events)))
	}
	r.Length = n
}

// WithLength makes at least n events visible, calls fn, and restores the
// original length. A length already >= n is left unchanged.
func (r *Run) WithLength(n int, fn func() bool) bool {
	old := r.Length
	if n > old {
		r.SetLength(n)
	}
	defer func() { r.Length = old }()
	return fn()
}

// Active returns the exposed events.
func (r *Run) Active() []*Event {
	return r.Events[:r.Length]
}

// System is the run arena of one search.
type System struct {
	protocols []*ir.Protocol
	runs      []*Run
	inverses  *term.Inverses
}

// New creates an empty system over the given protocols. The order of
// protocols is the enumeration order used by the search.
func New(inverses *term.Inverses, protocols ...*ir.Protocol) *System {
	if inverses == nil {
		inverses = term.NewInverses()
	}
	return &System{protocols: protocols, inverses: inverses}
}

// Protocols returns the protocols in enumeration order.
func (s *System) Protocols() []*ir.Protocol {
	return s.protocols
}

// Inverses returns the key inverse table.
func (s *System) Inverses() *term.Inverses {
	return s.inverses
}

// Len returns the number of live runs.
func (s *System) Len() int {
	return len(s.runs)
}

// Run returns the run with the given ID.
func (s *System) Run(id int) *Run {
	return s.runs[id]
}

// Runs returns the live runs in ID order. The slice must not be modified.
func (s *System) Runs() []*Run {
	return s.runs
}

// Instantiate appends a new run of role r of protocol p with no events
// exposed. Template terms are localized: variables and role-fresh values
// are renamed for the new run.
func (s *System) Instantiate(p *ir.Protocol, r *ir.Role) *Run {
	id := len(s.runs)
	rename := term.NewRenamer(id, r.Fresh)

	events := make([]*Event, len(r.Events))
	for i, ev := range r.Events {
		events[i] = &Event{
			Kind:      ev.Kind,
			Label:     ev.Label,
			Message:   rename.Apply(ev.Message),
			Internal:  ev.Internal,
			BindRun:   Invalid,
			BindIndex: Invalid,
		}
	}

	run := &Run{ID: id, Protocol: p, Role: r, Events: events}
	s.runs = append(s.runs, run)
	return run
}

// DestroyLast removes run, which must be the most recently instantiated
// run. Destroying any other run is a contract violation and panics.
func (s *System) DestroyLast(run *Run) {
	n := len(s.runs)
	if n == 0 || s.runs[n-1] != run {
		panic(fmt.Sprintf("system: destroy of run %d is not LIFO (%d live runs)", run.ID, n))
	}
	s.runs[n-1] = nil
	s.runs = s.runs[:n-1]
}

// WithRun instantiates a run of (p, r), calls fn with it, and destroys
// the run before returning fn's result.
func (s *System) WithRun(p *ir.Protocol, r *ir.Role, fn func(run *Run) bool) bool {
	run := s.Instantiate(p, r)
	defer s.DestroyLast(run)
	return fn(run)
}
