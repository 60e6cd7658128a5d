package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/term"
)

// CompileModel parses a CUE value into a Model.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the root of a model file:
//
//	name: "echo"
//	protocol: Echo: role: R: {
//		fresh: ["n"]
//		events: [
//			{read: "(X, n)", label: "1"},
//			{send: "{X}k", label: "2"},
//		]
//	}
//	intruder: {
//		knowledge: ["k"]
//		inverses: [["pk", "sk"]]
//	}
//	setup: {
//		runs: [{protocol: "Echo", role: "R"}]
//		goals: ["n"]
//	}
//
// Protocols, roles and events keep their declaration order.
func CompileModel(v cue.Value) (*ir.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.Model{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.Name = name
	}

	protoVal := v.LookupPath(cue.ParsePath("protocol"))
	if !protoVal.Exists() {
		return nil, &CompileError{
			Field:   "protocol",
			Message: "at least one protocol is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := protoVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		p, err := CompileProtocol(iter.Value())
		if err != nil {
			return nil, err
		}
		m.Protocols = append(m.Protocols, p)
	}

	if err := compileIntruder(v.LookupPath(cue.ParsePath("intruder")), m); err != nil {
		return nil, err
	}
	if err := compileSetup(v.LookupPath(cue.ParsePath("setup")), m); err != nil {
		return nil, err
	}

	return m, nil
}

// CompileProtocol parses a CUE value into a Protocol. The protocol name is
// the last path selector, e.g. protocol.NS gives "NS".
func CompileProtocol(v cue.Value) (*ir.Protocol, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &ir.Protocol{Name: lastSelector(v)}

	roleVal := v.LookupPath(cue.ParsePath("role"))
	if !roleVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("protocol.%s.role", p.Name),
			Message: "at least one role is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := roleVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		r, err := compileRole(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		p.Roles = append(p.Roles, r)
	}

	return p, nil
}

func compileRole(name string, v cue.Value) (*ir.Role, error) {
	r := &ir.Role{Name: name}

	freshVal := v.LookupPath(cue.ParsePath("fresh"))
	if freshVal.Exists() {
		fresh, err := stringList(freshVal)
		if err != nil {
			return nil, err
		}
		r.Fresh = fresh
	}

	eventsVal := v.LookupPath(cue.ParsePath("events"))
	if !eventsVal.Exists() {
		return r, nil
	}
	list, err := eventsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for list.Next() {
		ev, err := compileEvent(list.Value())
		if err != nil {
			return nil, err
		}
		r.Events = append(r.Events, ev)
	}

	return r, nil
}

// compileEvent parses one event. Exactly one of send and read must be set.
func compileEvent(v cue.Value) (ir.Event, error) {
	var ev ir.Event

	sendVal := v.LookupPath(cue.ParsePath("send"))
	readVal := v.LookupPath(cue.ParsePath("read"))
	var msgVal cue.Value
	switch {
	case sendVal.Exists() && readVal.Exists():
		return ev, &CompileError{Field: "event", Message: "event has both send and read", Pos: v.Pos()}
	case sendVal.Exists():
		ev.Kind = ir.Send
		msgVal = sendVal
	case readVal.Exists():
		ev.Kind = ir.Read
		msgVal = readVal
	default:
		return ev, &CompileError{Field: "event", Message: "event needs send or read", Pos: v.Pos()}
	}

	msg, err := compileTerm(msgVal)
	if err != nil {
		return ev, err
	}
	ev.Message = msg

	if labelVal := v.LookupPath(cue.ParsePath("label")); labelVal.Exists() {
		label, err := labelVal.String()
		if err != nil {
			return ev, formatCUEError(err)
		}
		ev.Label = label
	}

	if internalVal := v.LookupPath(cue.ParsePath("internal")); internalVal.Exists() {
		internal, err := internalVal.Bool()
		if err != nil {
			return ev, formatCUEError(err)
		}
		ev.Internal = internal
	}

	return ev, nil
}

func compileIntruder(v cue.Value, m *ir.Model) error {
	if !v.Exists() {
		return nil
	}

	if kv := v.LookupPath(cue.ParsePath("knowledge")); kv.Exists() {
		terms, err := termList(kv)
		if err != nil {
			return err
		}
		m.Knowledge = terms
	}

	iv := v.LookupPath(cue.ParsePath("inverses"))
	if !iv.Exists() {
		return nil
	}
	list, err := iv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for list.Next() {
		pair, err := termList(list.Value())
		if err != nil {
			return err
		}
		if len(pair) != 2 {
			return &CompileError{
				Field:   "intruder.inverses",
				Message: fmt.Sprintf("inverse pair must have 2 keys, got %d", len(pair)),
				Pos:     list.Value().Pos(),
			}
		}
		m.Inverses = append(m.Inverses, ir.KeyPair{Key: pair[0], Inverse: pair[1]})
	}
	return nil
}

func compileSetup(v cue.Value, m *ir.Model) error {
	if !v.Exists() {
		return nil
	}

	if rv := v.LookupPath(cue.ParsePath("runs")); rv.Exists() {
		list, err := rv.List()
		if err != nil {
			return formatCUEError(err)
		}
		for list.Next() {
			var spec ir.RunSpec
			if err := list.Value().Decode(&spec); err != nil {
				return formatCUEError(err)
			}
			if spec.Protocol == "" || spec.Role == "" {
				return &CompileError{
					Field:   "setup.runs",
					Message: "run needs protocol and role",
					Pos:     list.Value().Pos(),
				}
			}
			m.Runs = append(m.Runs, spec)
		}
	}

	if gv := v.LookupPath(cue.ParsePath("goals")); gv.Exists() {
		terms, err := termList(gv)
		if err != nil {
			return err
		}
		m.Goals = terms
	}
	return nil
}

// compileTerm parses a string value in term notation.
func compileTerm(v cue.Value) (*term.Term, error) {
	s, err := v.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t, err := term.Parse(s)
	if err != nil {
		return nil, &CompileError{Field: "term", Message: err.Error(), Pos: v.Pos()}
	}
	return t, nil
}

func termList(v cue.Value) ([]*term.Term, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*term.Term
	for list.Next() {
		t, err := compileTerm(list.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func stringList(v cue.Value) ([]string, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func lastSelector(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1].String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
