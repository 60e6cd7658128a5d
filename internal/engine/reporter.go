package engine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/arachne/internal/system"
)

// Reporter receives semistates as the search visits them.
//
// Explored is called once per explored (not pruned) semistate, in
// enumeration order. Terminal is called after Explored for each explored
// semistate that has no goal left. The semistate is a snapshot and may be
// retained. A returned error aborts the exploration.
type Reporter interface {
	Explored(st system.Semistate) error
	Terminal(st system.Semistate) error
}

type nopReporter struct{}

func (nopReporter) Explored(system.Semistate) error { return nil }
func (nopReporter) Terminal(system.Semistate) error { return nil }

// MultiReporter fans out to every reporter in order. The first error
// stops the fan-out.
type MultiReporter []Reporter

// Explored implements Reporter.
func (m MultiReporter) Explored(st system.Semistate) error {
	for _, r := range m {
		if err := r.Explored(st); err != nil {
			return err
		}
	}
	return nil
}

// Terminal implements Reporter.
func (m MultiReporter) Terminal(st system.Semistate) error {
	for _, r := range m {
		if err := r.Terminal(st); err != nil {
			return err
		}
	}
	return nil
}

// LogReporter logs every semistate at debug level and every terminal
// semistate at info level.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Explored implements Reporter.
func (r LogReporter) Explored(st system.Semistate) error {
	r.logger().Debug("semistate explored", "seq", st.Seq, "depth", st.Depth, "runs", len(st.Runs))
	return nil
}

// Terminal implements Reporter.
func (r LogReporter) Terminal(st system.Semistate) error {
	r.logger().Info("terminal semistate", "seq", st.Seq, "depth", st.Depth, "runs", len(st.Runs))
	return nil
}

// TextReporter prints terminal semistates as indented run listings.
type TextReporter struct {
	W io.Writer

	// All also prints every explored semistate.
	All bool

	count int
}

// Explored implements Reporter.
func (r *TextReporter) Explored(st system.Semistate) error {
	if !r.All {
		return nil
	}
	if _, err := fmt.Fprintf(r.W, "State %d (depth %d)\n", st.Seq, st.Depth); err != nil {
		return err
	}
	return st.Print(r.W, "   ")
}

// Terminal implements Reporter.
func (r *TextReporter) Terminal(st system.Semistate) error {
	r.count++
	if _, err := fmt.Fprintf(r.W, "Terminal %d (state %d, depth %d)\n", r.count, st.Seq, st.Depth); err != nil {
		return err
	}
	return st.Print(r.W, ">> ")
}

// Recorder keeps every semistate it receives. It is used by tests and by
// commands that post-process a whole exploration.
type Recorder struct {
	States    []system.Semistate
	Terminals []system.Semistate
}

// Explored implements Reporter.
func (r *Recorder) Explored(st system.Semistate) error {
	r.States = append(r.States, st)
	return nil
}

// Terminal implements Reporter.
func (r *Recorder) Terminal(st system.Semistate) error {
	r.Terminals = append(r.Terminals, st)
	return nil
}
