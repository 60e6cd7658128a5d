package engine

import (
	"context"
	"fmt"
	"hash"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/system"
)

// Engine is the backward search over one compiled model.
//
// An Engine owns its run arena. Explore may be called repeatedly but not
// concurrently; every call starts from the model's setup and leaves the
// arena empty when it returns.
//
// INVARIANTS:
//   - the protocol enumeration order is the model's declaration order
//     followed by the intruder protocol, and never changes
//   - depth and the number of live runs are equal before and after
//     every iterate call
type Engine struct {
	model    *ir.Model
	sys      *system.System
	intruder *intruder
	limits   Limits
	reporter Reporter

	// Per-Explore state.
	ctx    context.Context
	depth  int
	seq    int64
	stats  Stats
	err    error
	digest hash.Hash
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits sets the prune limits.
//
// Default: DefaultMaxDepth and DefaultMaxRuns.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithReporter sets the reporter that receives explored and terminal
// semistates. Use MultiReporter to attach several.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// New creates an Engine for model. The model is not copied and must not
// be modified while the engine is in use.
func New(model *ir.Model, opts ...Option) *Engine {
	in := newIntruder()

	protocols := make([]*ir.Protocol, 0, len(model.Protocols)+1)
	protocols = append(protocols, model.Protocols...)
	protocols = append(protocols, in.protocol)

	e := &Engine{
		model:    model,
		sys:      system.New(model.InverseTable(), protocols...),
		intruder: in,
		limits:   DefaultLimits(),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats counts what one exploration visited.
type Stats struct {
	// States is the number of semistates explored (not pruned).
	States int64 `json:"states"`

	// Terminals is the number of explored semistates without a goal.
	Terminals int64 `json:"terminals"`

	// Pruned is the number of semistates cut off by the limits.
	Pruned int64 `json:"pruned"`
}

// Result is the outcome of a complete exploration.
type Result struct {
	Stats

	// Digest is the hex BLAKE3 hash over the canonical encoding of every
	// explored semistate in order. Equal models and limits give equal
	// digests.
	Digest string `json:"digest"`

	Limits Limits `json:"limits"`
}

// Limits returns the configured limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// System returns the engine's run arena. It is empty outside Explore.
func (e *Engine) System() *system.System {
	return e.sys
}

// Explore enumerates every semistate reachable from the model's setup
// within the limits, reporting each explored and terminal semistate.
//
// Explore returns a *RuntimeError when the limits or setup are invalid,
// when ctx ends, or when the reporter fails. On error, the partial Stats
// are still returned.
func (e *Engine) Explore(ctx context.Context) (Result, error) {
	if err := e.limits.Validate(); err != nil {
		return Result{Limits: e.limits}, &RuntimeError{
			Code:    ErrCodeInvalidLimits,
			Message: "invalid limits",
			Err:     err,
		}
	}

	e.ctx = ctx
	e.depth = 0
	e.seq = 0
	e.stats = Stats{}
	e.err = nil
	e.digest = blake3.New()
	defer func() { e.ctx = nil }()

	slog.Debug("exploration starting",
		"model", e.model.Name,
		"runs", len(e.model.Runs),
		"goals", len(e.model.Goals),
		"max_depth", e.limits.MaxDepth,
		"max_runs", e.limits.MaxRuns,
	)

	err := e.withSetup(func() bool {
		return e.iterate()
	})
	if err == nil {
		err = e.err
	}

	result := Result{
		Stats:  e.stats,
		Digest: fmt.Sprintf("%x", e.digest.Sum(nil)),
		Limits: e.limits,
	}
	if err != nil {
		slog.Warn("exploration aborted",
			"model", e.model.Name,
			"states", e.stats.States,
			"error", err,
		)
		return result, err
	}

	slog.Info("exploration finished",
		"model", e.model.Name,
		"states", e.stats.States,
		"terminals", e.stats.Terminals,
		"pruned", e.stats.Pruned,
	)
	return result, nil
}

// withSetup instantiates the setup runs fully exposed and poses the
// initial intruder goals, calls fn, and tears all of them down again.
func (e *Engine) withSetup(fn func() bool) error {
	type setupRun struct {
		spec ir.RunSpec
		p    *ir.Protocol
		r    *ir.Role
	}
	runs := make([]setupRun, len(e.model.Runs))
	for i, spec := range e.model.Runs {
		p, r, err := e.model.Resolve(spec)
		if err != nil {
			return NewSetupError(fmt.Sprintf("setup run %d", i), err)
		}
		runs[i] = setupRun{spec: spec, p: p, r: r}
	}

	var setup func(i int) bool
	setup = func(i int) bool {
		if i < len(runs) {
			return e.sys.WithRun(runs[i].p, runs[i].r, func(run *system.Run) bool {
				run.SetLength(len(run.Events))
				return setup(i + 1)
			})
		}
		return e.withIntruderGoals(e.model.Goals, fn)
	}
	setup(0)
	return nil
}

// iterate is one search step. It returns false when the enumeration must
// stop; the cause is recorded in e.err.
func (e *Engine) iterate() bool {
	e.depth++
	defer func() { e.depth-- }()

	if err := e.ctx.Err(); err != nil {
		return e.fail(NewCancelledError(e.stats.States, err))
	}

	if reason := e.limits.Check(e.depth, e.sys.Len()); reason != NotPruned {
		e.stats.Pruned++
		slog.Debug("pruned",
			"reason", reason.String(),
			"depth", e.depth,
			"runs", e.sys.Len(),
		)
		return true
	}

	e.stats.States++
	e.seq++
	st := e.sys.Snapshot(e.seq, e.depth)

	goal := e.selectGoal()
	terminal := !goal.Valid()
	if err := e.record(st, terminal); err != nil {
		return e.fail(NewReporterError(st.Seq, err))
	}
	if terminal {
		e.stats.Terminals++
		return true
	}

	slog.Debug("binding goal",
		"run", goal.Run,
		"index", goal.Index,
		"message", goal.Event.Message.String(),
		"depth", e.depth,
	)
	return e.bindGoal(goal)
}

// record feeds the digest and the reporter.
func (e *Engine) record(st system.Semistate, terminal bool) error {
	b, err := st.CanonicalBytes()
	if err != nil {
		return err
	}
	e.digest.Write(b)
	if terminal {
		e.digest.Write([]byte{'T', '\n'})
	} else {
		e.digest.Write([]byte{'E', '\n'})
	}

	if err := e.reporter.Explored(st); err != nil {
		return err
	}
	if terminal {
		return e.reporter.Terminal(st)
	}
	return nil
}

// fail records the first error and stops the enumeration.
func (e *Engine) fail(err error) bool {
	if e.err == nil {
		e.err = err
	}
	return false
}
