package engine

import "github.com/roach88/arachne/internal/system"

// Goal is an unbound, non-internal read of a live run.
type Goal struct {
	Run   int
	Index int
	Event *system.Event
}

// Valid reports whether g names a goal.
func (g Goal) Valid() bool {
	return g.Run != system.Invalid
}

var noGoal = Goal{Run: system.Invalid, Index: system.Invalid}

// selectGoal returns the first goal in run order, then index order within
// the run's exposed events.
func (e *Engine) selectGoal() Goal {
	for _, run := range e.sys.Runs() {
		for i, ev := range run.Active() {
			if ev.IsGoal() && !ev.IsBound() {
				return Goal{Run: run.ID, Index: i, Event: ev}
			}
		}
	}
	return noGoal
}

// isIntruderGoal reports whether g belongs to an intruder run.
func (e *Engine) isIntruderGoal(g Goal) bool {
	return e.sys.Run(g.Run).Protocol == e.intruder.protocol
}
