package engine

import (
	"context"
	"fmt"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/store"
	"github.com/roach88/arachne/internal/system"
)

// StoreReporter writes semistates of one session to a store.
// By default only terminal semistates are written.
type StoreReporter struct {
	ctx       context.Context
	store     *store.Store
	sessionID string

	// All also writes every explored, non-terminal semistate.
	All bool
}

// NewStoreReporter returns a reporter writing to session sessionID.
func NewStoreReporter(ctx context.Context, s *store.Store, sessionID string) *StoreReporter {
	return &StoreReporter{ctx: ctx, store: s, sessionID: sessionID}
}

// Explored implements Reporter. Terminal semistates are written by
// Terminal, which always follows.
func (r *StoreReporter) Explored(st system.Semistate) error {
	return nil
}

// Terminal implements Reporter.
func (r *StoreReporter) Terminal(st system.Semistate) error {
	return r.write(st, true)
}

func (r *StoreReporter) write(st system.Semistate, terminal bool) error {
	return r.store.WriteSemistate(r.ctx, store.SemistateRecord{
		SessionID: r.sessionID,
		Seq:       st.Seq,
		Depth:     st.Depth,
		Terminal:  terminal,
		State:     st,
	})
}

// allReporter writes every explored semistate, marking terminals.
type allReporter struct {
	*StoreReporter
	pending *system.Semistate
}

// Reporter returns the reporter to attach to the engine.
func (r *StoreReporter) Reporter() Reporter {
	if !r.All {
		return r
	}
	return &allReporter{StoreReporter: r}
}

// Explored defers the write by one call so that a terminal state is
// written once, flagged terminal.
func (r *allReporter) Explored(st system.Semistate) error {
	if err := r.flush(); err != nil {
		return err
	}
	r.pending = &st
	return nil
}

func (r *allReporter) Terminal(st system.Semistate) error {
	r.pending = nil
	return r.write(st, true)
}

func (r *allReporter) flush() error {
	if r.pending == nil {
		return nil
	}
	st := *r.pending
	r.pending = nil
	return r.write(st, false)
}

// ExploreSession runs an exploration as a stored session: the session row is
// written first, semistates are written as they are reported, and the
// outcome is recorded when Explore returns, also on failure.
//
// Store writes ignore cancellation of ctx; only the search observes it, so
// an interrupted run is reported as cancelled and its row as aborted.
func ExploreSession(
	ctx context.Context,
	s *store.Store,
	ids SessionIDGenerator,
	model *ir.Model,
	modelPath string,
	limits Limits,
	all bool,
	extra ...Reporter,
) (store.Session, Result, error) {
	hash, err := ir.ModelHash(model)
	if err != nil {
		return store.Session{}, Result{}, fmt.Errorf("hash model: %w", err)
	}

	sess := store.Session{
		ID:            ids.Generate(),
		ModelName:     model.Name,
		ModelHash:     hash,
		ModelPath:     modelPath,
		MaxDepth:      limits.MaxDepth,
		MaxRuns:       limits.MaxRuns,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	wctx := context.WithoutCancel(ctx)
	if err := s.WriteSession(wctx, sess); err != nil {
		return sess, Result{}, err
	}

	sr := NewStoreReporter(wctx, s, sess.ID)
	sr.All = all
	rep := sr.Reporter()
	reporters := append(MultiReporter{rep}, extra...)

	result, exploreErr := New(model, WithLimits(limits), WithReporter(reporters)).Explore(ctx)

	if ar, ok := rep.(*allReporter); ok && exploreErr == nil {
		exploreErr = ar.flush()
	}

	out := store.Outcome{
		Status:    store.StatusComplete,
		States:    result.States,
		Terminals: result.Terminals,
		Pruned:    result.Pruned,
		Digest:    result.Digest,
	}
	if exploreErr != nil {
		out.Status = store.StatusAborted
	}
	if err := s.FinishSession(wctx, sess.ID, out); err != nil && exploreErr == nil {
		exploreErr = err
	}

	sess.Status = out.Status
	sess.States = out.States
	sess.Terminals = out.Terminals
	sess.Pruned = out.Pruned
	sess.Digest = out.Digest
	return sess, result, exploreErr
}
