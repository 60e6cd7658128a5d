package system

import (
	"fmt"
	"io"

	"github.com/roach88/arachne/internal/ir"
)

// Semistate is an immutable view of every run and its exposed events at
// one point of the search.
type Semistate struct {
	Seq   int64     `json:"seq" cbor:"seq"`
	Depth int       `json:"depth" cbor:"depth"`
	Runs  []RunView `json:"runs" cbor:"runs"`
}

// RunView is one run of a Semistate.
type RunView struct {
	ID       int         `json:"id" cbor:"id"`
	Protocol string      `json:"protocol" cbor:"protocol"`
	Role     string      `json:"role" cbor:"role"`
	Events   []EventView `json:"events" cbor:"events"`
}

// EventView is one exposed event of a RunView. Message has all current
// bindings applied.
type EventView struct {
	Index     int    `json:"index" cbor:"index"`
	Kind      string `json:"kind" cbor:"kind"`
	Label     string `json:"label,omitempty" cbor:"label,omitempty"`
	Message   string `json:"message" cbor:"message"`
	BindRun   int    `json:"bind_run" cbor:"bind_run"`
	BindIndex int    `json:"bind_index" cbor:"bind_index"`
}

// Snapshot captures the current semistate.
func (s *System) Snapshot(seq int64, depth int) Semistate {
	st := Semistate{Seq: seq, Depth: depth, Runs: make([]RunView, len(s.runs))}
	for i, run := range s.runs {
		rv := RunView{
			ID:       run.ID,
			Protocol: run.Protocol.Name,
			Role:     run.Role.Name,
			Events:   make([]EventView, run.Length),
		}
		for j, ev := range run.Active() {
			rv.Events[j] = EventView{
				Index:     j,
				Kind:      ev.Kind.String(),
				Label:     ev.Label,
				Message:   ev.Message.String(),
				BindRun:   ev.BindRun,
				BindIndex: ev.BindIndex,
			}
		}
		st.Runs[i] = rv
	}
	return st
}

// Bound reports whether the event is bound.
func (ev EventView) Bound() bool {
	return ev.BindRun != Invalid
}

// String renders the event the way the text reporter prints it.
func (ev EventView) String() string {
	s := fmt.Sprintf("%s(%s)", ev.Kind, ev.Message)
	if ev.Label != "" {
		s = ev.Label + ": " + s
	}
	if ev.Bound() {
		s += fmt.Sprintf(" <- #%d.%d", ev.BindRun, ev.BindIndex)
	}
	return s
}

// Canonical renders the semistate for canonical JSON hashing. Seq is
// excluded so that identical states reached at different points share an
// ID.
func (st Semistate) Canonical() map[string]any {
	runs := make([]any, len(st.Runs))
	for i, rv := range st.Runs {
		events := make([]any, len(rv.Events))
		for j, ev := range rv.Events {
			events[j] = map[string]any{
				"index":      ev.Index,
				"kind":       ev.Kind,
				"label":      ev.Label,
				"message":    ev.Message,
				"bind_run":   ev.BindRun,
				"bind_index": ev.BindIndex,
			}
		}
		runs[i] = map[string]any{
			"id":       rv.ID,
			"protocol": rv.Protocol,
			"role":     rv.Role,
			"events":   events,
		}
	}
	return map[string]any{"depth": st.Depth, "runs": runs}
}

// ID computes the content-addressed identity of the semistate.
func (st Semistate) ID() (string, error) {
	return ir.ContentHash(ir.DomainSemistate, st.Canonical())
}

// CanonicalBytes returns the canonical JSON encoding of the semistate.
func (st Semistate) CanonicalBytes() ([]byte, error) {
	return ir.MarshalCanonical(st.Canonical())
}

// Print writes the semistate as an indented run listing:
//
//	[ Run 0, R ]
//	\ 0 read(X) <- #1.0
func (st Semistate) Print(w io.Writer, prefix string) error {
	for _, rv := range st.Runs {
		if _, err := fmt.Fprintf(w, "%s[ Run %d, %s ]\n", prefix, rv.ID, rv.Role); err != nil {
			return err
		}
		for _, ev := range rv.Events {
			if _, err := fmt.Fprintf(w, "%s\\ %d %s\n", prefix, ev.Index, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run returns the view of run id, or false.
func (st Semistate) Run(id int) (RunView, bool) {
	if id < 0 || id >= len(st.Runs) {
		return RunView{}, false
	}
	return st.Runs[id], true
}
