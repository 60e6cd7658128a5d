package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/arachne/internal/system"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type      string             // Assertion type for categorization
	Expected  string             // Human-readable expected outcome
	Actual    string             // Human-readable actual outcome
	Terminals []system.Semistate // Terminal states for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Terminals) > 0 {
		fmt.Fprintf(&buf, "\nTerminals:\n")
		for i, st := range e.Terminals {
			fmt.Fprintf(&buf, "  [%d] state %d\n", i+1, st.Seq)
			_ = st.Print(&buf, "    ")
		}
	}

	return buf.String()
}

// assertCount checks an exact or minimum count.
func assertCount(typ string, actual int64, a Assertion) error {
	switch {
	case a.Count != nil && actual != *a.Count:
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%d", *a.Count),
			Actual:   fmt.Sprintf("%d", actual),
		}
	case a.Min != nil && actual < *a.Min:
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("at least %d", *a.Min),
			Actual:   fmt.Sprintf("%d", actual),
		}
	}
	return nil
}

// assertTerminalRoles checks that some terminal has exactly the expected
// run roles in run order.
func assertTerminalRoles(terminals []system.Semistate, a Assertion) error {
	for _, st := range terminals {
		if equalRoles(st, a.Roles) {
			return nil
		}
	}
	return &AssertionError{
		Type:      AssertTerminalRoles,
		Expected:  fmt.Sprintf("a terminal with runs %v", a.Roles),
		Actual:    "not found",
		Terminals: terminals,
	}
}

func equalRoles(st system.Semistate, roles []string) bool {
	if len(st.Runs) != len(roles) {
		return false
	}
	for i, rv := range st.Runs {
		if rv.Role != roles[i] {
			return false
		}
	}
	return true
}

// assertTerminalBinding checks that in some terminal, the read labelled
// a.Label of a run of a.Role is bound to a send of a run of a.BoundTo.
func assertTerminalBinding(terminals []system.Semistate, a Assertion) error {
	for _, st := range terminals {
		for _, rv := range st.Runs {
			if rv.Role != a.Role {
				continue
			}
			for _, ev := range rv.Events {
				if ev.Label != a.Label || ev.Kind != "read" || !ev.Bound() {
					continue
				}
				if from, ok := st.Run(ev.BindRun); ok && from.Role == a.BoundTo {
					return nil
				}
			}
		}
	}
	return &AssertionError{
		Type:      AssertTerminalBinding,
		Expected:  fmt.Sprintf("read %s of %s bound to a send of %s", a.Label, a.Role, a.BoundTo),
		Actual:    "not found",
		Terminals: terminals,
	}
}

// assertTerminalMessage checks that some terminal has an event with the
// expected message, in a run of a.Role if set.
func assertTerminalMessage(terminals []system.Semistate, a Assertion) error {
	for _, st := range terminals {
		for _, rv := range st.Runs {
			if a.Role != "" && rv.Role != a.Role {
				continue
			}
			for _, ev := range rv.Events {
				if ev.Message == a.Message {
					return nil
				}
			}
		}
	}
	where := "any run"
	if a.Role != "" {
		where = "a run of " + a.Role
	}
	return &AssertionError{
		Type:      AssertTerminalMessage,
		Expected:  fmt.Sprintf("message %s in %s", a.Message, where),
		Actual:    "not found",
		Terminals: terminals,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStateCount:
			err = assertCount(assertion.Type, result.Outcome.States, assertion)
		case AssertTerminalCount:
			err = assertCount(assertion.Type, result.Outcome.Terminals, assertion)
		case AssertPrunedCount:
			err = assertCount(assertion.Type, result.Outcome.Pruned, assertion)
		case AssertStoredTerminals:
			err = assertCount(assertion.Type, result.StoredTerminals, assertion)
		case AssertTerminalRoles:
			err = assertTerminalRoles(result.Terminals, assertion)
		case AssertTerminalBinding:
			err = assertTerminalBinding(result.Terminals, assertion)
		case AssertTerminalMessage:
			err = assertTerminalMessage(result.Terminals, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
