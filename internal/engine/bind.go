package engine

import (
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/system"
	"github.com/roach88/arachne/internal/term"
)

// matcher unifies a goal message with the message of a candidate send
// and calls then once per unifier, with the unifier applied.
type matcher func(goal, send *term.Term, then func() bool) bool

// inTerm matches the goal against the send or one of its tuple components.
func inTerm(goal, send *term.Term, then func() bool) bool {
	return term.MguInTerm(goal, send, then)
}

// binder tries every way to satisfy one goal. Each candidate is committed
// through a scoped guard, the search recurses, and the candidate is
// undone before the next one is tried.
type binder struct {
	e    *Engine
	goal Goal
}

// bindGoal dispatches on the owner of the goal. An intruder goal must be
// explored both as a subterm of a regular send and as a construction.
func (e *Engine) bindGoal(g Goal) bool {
	b := binder{e: e, goal: g}
	if e.isIntruderGoal(g) {
		return b.intruderToRegular() && b.intruderToConstruct()
	}
	return b.regular()
}

// forEachRoleSend calls fn for every send of every role of every protocol,
// in declaration order. A false from fn stops the enumeration.
func (e *Engine) forEachRoleSend(fn func(p *ir.Protocol, r *ir.Role, index int) bool) bool {
	for _, p := range e.sys.Protocols() {
		for _, r := range p.Roles {
			for _, index := range r.Sends() {
				if !fn(p, r, index) {
					return false
				}
			}
		}
	}
	return true
}

// regular binds a regular goal to a send of a regular role, in a live run
// or in a new run, and finally to an intruder goal.
func (b binder) regular() bool {
	msg := b.goal.Event.Message
	ok := b.e.forEachRoleSend(func(p *ir.Protocol, r *ir.Role, index int) bool {
		if p == b.e.intruder.protocol {
			return true
		}
		if !term.UnifiableInTerm(msg, r.Events[index].Message) {
			return true
		}
		return b.existingRun(p, r, index, inTerm) && b.newRun(p, r, index, inTerm)
	})
	return ok && b.viaIntruderGoal()
}

// bind commits goal -> (run, index) and recurses.
func (b binder) bind(run, index int) bool {
	return b.goal.Event.WithBinding(run, index, b.e.iterate)
}

// existingRun binds the goal to send index of every live run of (p, r),
// exposing the run up to the send if needed. A run never supplies its
// own reads from a send at or after the read.
func (b binder) existingRun(p *ir.Protocol, r *ir.Role, index int, match matcher) bool {
	for id := 0; id < b.e.sys.Len(); id++ {
		run := b.e.sys.Run(id)
		if run.Protocol != p || run.Role != r {
			continue
		}
		if id == b.goal.Run && index >= b.goal.Index {
			continue
		}
		ok := run.WithLength(index+1, func() bool {
			return match(b.goal.Event.Message, run.Events[index].Message, func() bool {
				return b.bind(id, index)
			})
		})
		if !ok {
			return false
		}
	}
	return true
}

// newRun binds the goal to send index of a fresh run of (p, r).
func (b binder) newRun(p *ir.Protocol, r *ir.Role, index int, match matcher) bool {
	return b.e.sys.WithRun(p, r, func(run *system.Run) bool {
		run.SetLength(index + 1)
		return match(b.goal.Event.Message, run.Events[index].Message, func() bool {
			return b.bind(run.ID, index)
		})
	})
}

// viaIntruderGoal lets the intruder supply the goal: first from an intruder
// goal already posed for a unifiable term, then from a new intruder goal
// for the goal's message.
func (b binder) viaIntruderGoal() bool {
	e := b.e
	msg := b.goal.Event.Message
	for id := 0; id < e.sys.Len(); id++ {
		run := e.sys.Run(id)
		if run.Role != e.intruder.goal {
			continue
		}
		if !term.Mgu(msg, run.Events[0].Message, func() bool { return b.bind(id, 0) }) {
			return false
		}
	}
	return e.withIntruderGoal(msg, func(run *system.Run) bool {
		return b.bind(run.ID, 0)
	})
}
