package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/term"
)

// Validation error codes (E100-E199)
const (
	// Model errors (E101-E109)
	ErrNoProtocols      = "E101" // at least one protocol required
	ErrRoleNoEvents     = "E102" // role must have events
	ErrDuplicateName    = "E103" // duplicate protocol/role name
	ErrInvalidName      = "E104" // name is not an identifier
	ErrReservedName     = "E105" // name collides with the intruder
	ErrMissingMessage   = "E106" // event without message
	ErrUnusedFresh      = "E107" // fresh value not used by the role
	ErrUnknownRunTarget = "E108" // setup run names unknown protocol/role

	// Intruder errors (E110-E119)
	ErrNonGroundTerm = "E110" // knowledge, inverse or goal term has variables
)

// Reserved names of the built-in intruder protocol.
const (
	reservedProtocol   = "INTRUDER"
	reservedRolePrefix = "I_"
)

var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled model.
// Returns all errors found (does not fail-fast).
func Validate(m *ir.Model) []ValidationError {
	var errs []ValidationError

	if len(m.Protocols) == 0 {
		errs = append(errs, ValidationError{
			Field:   "protocol",
			Message: "at least one protocol is required",
			Code:    ErrNoProtocols,
		})
	}

	protocolNames := make(map[string]bool)
	for i, p := range m.Protocols {
		field := fmt.Sprintf("protocols[%d]", i)
		errs = append(errs, validateName(field+".name", p.Name)...)
		if p.Name == reservedProtocol {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("protocol name %q is reserved for the intruder", p.Name),
				Code:    ErrReservedName,
			})
		}
		if protocolNames[p.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate protocol name: %q", p.Name),
				Code:    ErrDuplicateName,
			})
		}
		protocolNames[p.Name] = true

		errs = append(errs, validateProtocol(field, p)...)
	}

	errs = append(errs, validateGround("intruder.knowledge", m.Knowledge)...)
	for i, kp := range m.Inverses {
		errs = append(errs, validateGround(fmt.Sprintf("intruder.inverses[%d]", i), []*term.Term{kp.Key, kp.Inverse})...)
	}
	errs = append(errs, validateGround("setup.goals", m.Goals)...)

	for i, spec := range m.Runs {
		if _, _, err := m.Resolve(spec); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("setup.runs[%d]", i),
				Message: err.Error(),
				Code:    ErrUnknownRunTarget,
			})
		}
	}

	return errs
}

func validateProtocol(field string, p *ir.Protocol) []ValidationError {
	var errs []ValidationError
	roleNames := make(map[string]bool)

	for i, r := range p.Roles {
		rf := fmt.Sprintf("%s.roles[%d]", field, i)
		errs = append(errs, validateName(rf+".name", r.Name)...)
		if strings.HasPrefix(r.Name, reservedRolePrefix) {
			errs = append(errs, ValidationError{
				Field:   rf + ".name",
				Message: fmt.Sprintf("role name %q uses the intruder prefix %q", r.Name, reservedRolePrefix),
				Code:    ErrReservedName,
			})
		}
		if roleNames[r.Name] {
			errs = append(errs, ValidationError{
				Field:   rf + ".name",
				Message: fmt.Sprintf("duplicate role name: %q", r.Name),
				Code:    ErrDuplicateName,
			})
		}
		roleNames[r.Name] = true

		if len(r.Events) == 0 {
			errs = append(errs, ValidationError{
				Field:   rf + ".events",
				Message: fmt.Sprintf("role %q must have at least one event", r.Name),
				Code:    ErrRoleNoEvents,
			})
		}

		used := make(map[string]bool)
		for j, ev := range r.Events {
			if ev.Message == nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.events[%d]", rf, j),
					Message: "event has no message",
					Code:    ErrMissingMessage,
				})
				continue
			}
			collectConstants(ev.Message, used)
		}
		for _, f := range r.Fresh {
			if !used[f] {
				errs = append(errs, ValidationError{
					Field:   rf + ".fresh",
					Message: fmt.Sprintf("fresh value %q is not used by role %q", f, r.Name),
					Code:    ErrUnusedFresh,
				})
			}
		}
	}

	return errs
}

func validateName(field, name string) []ValidationError {
	if identRe.MatchString(name) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("invalid name %q, expected an identifier", name),
		Code:    ErrInvalidName,
	}}
}

func validateGround(field string, terms []*term.Term) []ValidationError {
	var errs []ValidationError
	for i, t := range terms {
		if vars := term.Vars(t); len(vars) > 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("term %s must not contain variables", t),
				Code:    ErrNonGroundTerm,
			})
		}
	}
	return errs
}

func collectConstants(t *term.Term, out map[string]bool) {
	t = term.Deref(t)
	if t == nil {
		return
	}
	switch t.Kind() {
	case term.Const:
		out[t.Name()] = true
	case term.Tuple, term.Encrypt:
		collectConstants(t.Left(), out)
		collectConstants(t.Right(), out)
	}
}
