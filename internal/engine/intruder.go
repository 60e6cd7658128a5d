package engine

import (
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/system"
	"github.com/roach88/arachne/internal/term"
)

// Intruder role names.
const (
	IntruderProtocol = "INTRUDER"

	RoleGoal    = "I_GOAL"
	RoleKnow    = "I_KNOW"
	RoleTee     = "I_TEE"
	RoleSplit   = "I_SPLIT"
	RoleTuple   = "I_TUPLE"
	RoleEncrypt = "I_ENCRYPT"
	RoleDecrypt = "I_DECRYPT"
)

// intruder is the built-in intruder protocol. Its roles are enumerated
// after every model protocol. I_GOAL and I_KNOW carry no message in the
// template; the message is set on each instance.
type intruder struct {
	protocol *ir.Protocol

	goal    *ir.Role
	know    *ir.Role
	tuple   *ir.Role
	encrypt *ir.Role
}

func newIntruder() *intruder {
	v, w := term.NewVar("V"), term.NewVar("W")
	k, l := term.NewVar("K"), term.NewVar("L")

	read := func(t *term.Term) ir.Event { return ir.Event{Kind: ir.Read, Message: t} }
	send := func(t *term.Term) ir.Event { return ir.Event{Kind: ir.Send, Message: t} }

	in := &intruder{
		goal:    &ir.Role{Name: RoleGoal, Events: []ir.Event{read(nil)}},
		know:    &ir.Role{Name: RoleKnow, Events: []ir.Event{send(nil)}},
		tuple:   &ir.Role{Name: RoleTuple, Events: []ir.Event{read(v), read(w), send(term.NewTuple(v, w))}},
		encrypt: &ir.Role{Name: RoleEncrypt, Events: []ir.Event{read(v), read(k), send(term.NewEncrypt(v, k))}},
	}

	// Not instantiated by the binders; kept so that models and reports
	// see the full intruder vocabulary.
	tee := &ir.Role{Name: RoleTee, Events: []ir.Event{read(v), send(v), send(v)}}
	split := &ir.Role{Name: RoleSplit, Events: []ir.Event{read(term.NewTuple(v, w)), send(v), send(w)}}
	decrypt := &ir.Role{Name: RoleDecrypt, Events: []ir.Event{read(term.NewEncrypt(v, k)), read(l), send(v)}}

	in.protocol = &ir.Protocol{
		Name:  IntruderProtocol,
		Roles: []*ir.Role{in.goal, in.know, tee, split, in.tuple, in.encrypt, decrypt},
	}
	return in
}

// withIntruderGoal poses t as an intruder goal: an I_GOAL run whose only
// event is a read of t. The run is destroyed when fn returns.
func (e *Engine) withIntruderGoal(t *term.Term, fn func(run *system.Run) bool) bool {
	return e.sys.WithRun(e.intruder.protocol, e.intruder.goal, func(run *system.Run) bool {
		run.Events[0].Message = term.Duplicate(t)
		run.SetLength(1)
		return fn(run)
	})
}

// withIntruderGoals poses every term of ts as an intruder goal, in order,
// and calls fn with all of them live. They are destroyed in reverse order.
func (e *Engine) withIntruderGoals(ts []*term.Term, fn func() bool) bool {
	if len(ts) == 0 {
		return fn()
	}
	return e.withIntruderGoal(ts[0], func(*system.Run) bool {
		return e.withIntruderGoals(ts[1:], fn)
	})
}

// withKnowledge instantiates an I_KNOW run sending t.
func (e *Engine) withKnowledge(t *term.Term, fn func(run *system.Run) bool) bool {
	return e.sys.WithRun(e.intruder.protocol, e.intruder.know, func(run *system.Run) bool {
		run.Events[0].Message = term.Duplicate(t)
		run.SetLength(1)
		return fn(run)
	})
}

// subtermMatch matches the goal against any subterm of the send. Every
// decryption key needed to reach the subterm is posed as a further
// intruder goal for the duration of the match.
func (e *Engine) subtermMatch(goal, send *term.Term, then func() bool) bool {
	return term.SubtermMgu(goal, send, e.sys.Inverses(), func(keys []*term.Term) bool {
		return e.withIntruderGoals(keys, then)
	})
}

// intruderToRegular binds an intruder goal to a subterm of a regular send,
// in a live run or in a new run.
func (b binder) intruderToRegular() bool {
	msg := b.goal.Event.Message
	return b.e.forEachRoleSend(func(p *ir.Protocol, r *ir.Role, index int) bool {
		if p == b.e.intruder.protocol {
			return true
		}
		if !term.SubtermUnifiable(msg, r.Events[index].Message) {
			return true
		}
		return b.existingRun(p, r, index, b.e.subtermMatch) &&
			b.newRun(p, r, index, b.e.subtermMatch)
	})
}

// intruderToConstruct lets the intruder build the goal itself:
//   - an unbound variable is anything the intruder chooses
//   - a term unifying with initial knowledge is known
//   - a tuple is built from its components
//   - an encryption is built from its plaintext and key
func (b binder) intruderToConstruct() bool {
	e := b.e
	msg := b.goal.Event.Message
	d := term.Deref(msg)
	if d == nil {
		return true
	}

	if d.IsVariable() {
		return e.withKnowledge(msg, func(run *system.Run) bool {
			return b.bind(run.ID, 0)
		})
	}

	for _, k := range e.model.Knowledge {
		ok := term.Mgu(msg, k, func() bool {
			return e.withKnowledge(k, func(run *system.Run) bool {
				return b.bind(run.ID, 0)
			})
		})
		if !ok {
			return false
		}
	}

	switch d.Kind() {
	case term.Tuple:
		return b.synthesize(e.intruder.tuple)
	case term.Encrypt:
		return b.synthesize(e.intruder.encrypt)
	default:
		return true
	}
}

// synthesize binds the goal to the final send of a new run of an intruder
// construction role. The role's reads become new intruder goals.
func (b binder) synthesize(r *ir.Role) bool {
	e := b.e
	return e.sys.WithRun(e.intruder.protocol, r, func(run *system.Run) bool {
		last := len(run.Events) - 1
		run.SetLength(len(run.Events))
		return term.Mgu(b.goal.Event.Message, run.Events[last].Message, func() bool {
			return b.bind(run.ID, last)
		})
	})
}
