package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/term"
)

func validModel() *ir.Model {
	return &ir.Model{
		Name: "ab",
		Protocols: []*ir.Protocol{{
			Name: "AB",
			Roles: []*ir.Role{
				{Name: "A", Fresh: []string{"n"}, Events: []ir.Event{
					{Kind: ir.Send, Message: term.MustParse("{n}k")},
				}},
				{Name: "B", Events: []ir.Event{
					{Kind: ir.Read, Message: term.MustParse("{X}k")},
				}},
			},
		}},
		Knowledge: []*term.Term{term.NewConst("e")},
		Inverses:  []ir.KeyPair{{Key: term.NewConst("pk"), Inverse: term.NewConst("sk")}},
		Runs:      []ir.RunSpec{{Protocol: "AB", Role: "B"}},
		Goals:     []*term.Term{term.NewConst("n#1")},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidModel(t *testing.T) {
	assert.Empty(t, Validate(validModel()))
}

func TestValidateNoProtocols(t *testing.T) {
	errs := Validate(&ir.Model{})

	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoProtocols, errs[0].Code)
}

func TestValidateDuplicateNames(t *testing.T) {
	m := validModel()
	m.Protocols[0].Roles[1].Name = "A"
	m.Runs = nil
	m.Protocols = append(m.Protocols, &ir.Protocol{Name: "AB", Roles: []*ir.Role{
		{Name: "C", Events: []ir.Event{{Kind: ir.Send, Message: term.NewConst("c")}}},
	}})

	assert.Equal(t, []string{ErrDuplicateName, ErrDuplicateName}, codes(Validate(m)))
}

func TestValidateReservedNames(t *testing.T) {
	m := validModel()
	m.Protocols[0].Name = "INTRUDER"
	m.Protocols[0].Roles[0].Name = "I_KNOW"
	m.Runs = nil

	errs := Validate(m)
	assert.Equal(t, []string{ErrReservedName, ErrReservedName}, codes(errs))
	assert.Contains(t, errs[1].Error(), `intruder prefix "I_"`)
}

func TestValidateInvalidName(t *testing.T) {
	m := validModel()
	m.Protocols[0].Roles[0].Name = "1st"

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidName, errs[0].Code)
	assert.Equal(t, "protocols[0].roles[0].name", errs[0].Field)
}

func TestValidateRoleWithoutEvents(t *testing.T) {
	m := validModel()
	m.Protocols[0].Roles[1].Events = nil

	assert.Equal(t, []string{ErrRoleNoEvents}, codes(Validate(m)))
}

func TestValidateMissingMessage(t *testing.T) {
	m := validModel()
	m.Protocols[0].Roles[1].Events[0].Message = nil

	assert.Equal(t, []string{ErrMissingMessage}, codes(Validate(m)))
}

func TestValidateUnusedFresh(t *testing.T) {
	m := validModel()
	m.Protocols[0].Roles[0].Fresh = []string{"n", "unused"}

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnusedFresh, errs[0].Code)
	assert.Contains(t, errs[0].Message, `"unused"`)
}

func TestValidateUnknownRunTarget(t *testing.T) {
	m := validModel()
	m.Runs = append(m.Runs, ir.RunSpec{Protocol: "AB", Role: "Z"}, ir.RunSpec{Protocol: "Q", Role: "A"})

	errs := Validate(m)
	assert.Equal(t, []string{ErrUnknownRunTarget, ErrUnknownRunTarget}, codes(errs))
	assert.Equal(t, "setup.runs[1]", errs[0].Field)
}

func TestValidateNonGroundTerms(t *testing.T) {
	m := validModel()
	m.Knowledge = append(m.Knowledge, term.MustParse("(a, X)"))
	m.Goals = []*term.Term{term.MustParse("Y")}

	errs := Validate(m)
	assert.Equal(t, []string{ErrNonGroundTerm, ErrNonGroundTerm}, codes(errs))
	assert.Equal(t, "intruder.knowledge[1]", errs[0].Field)
	assert.Equal(t, "setup.goals[0]", errs[1].Field)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	m := validModel()
	m.Protocols[0].Roles[1].Events = nil
	m.Runs = []ir.RunSpec{{Protocol: "nope", Role: "B"}}
	m.Goals = []*term.Term{term.MustParse("Z")}

	assert.Len(t, Validate(m), 3)
}
