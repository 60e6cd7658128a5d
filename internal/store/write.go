package store

import (
	"context"
	"fmt"
)

// WriteSession inserts a session record with status running.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, model_name, model_hash, model_path, max_depth, max_runs, engine_version, ir_version, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.ModelName,
		sess.ModelHash,
		sess.ModelPath,
		sess.MaxDepth,
		sess.MaxRuns,
		sess.EngineVersion,
		sess.IRVersion,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// FinishSession records the outcome of a session.
// Returns an error if the session does not exist.
func (s *Store) FinishSession(ctx context.Context, id string, out Outcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, states = ?, terminals = ?, pruned = ?, digest = ?
		WHERE id = ?
	`,
		out.Status,
		out.States,
		out.Terminals,
		out.Pruned,
		out.Digest,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session: unknown session %q", id)
	}
	return nil
}

// WriteSemistate inserts a semistate of a session.
// Uses ON CONFLICT DO NOTHING for idempotency on (session_id, seq).
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteSemistate(ctx context.Context, rec SemistateRecord) error {
	body, err := marshalSemistate(rec.State)
	if err != nil {
		return fmt.Errorf("write semistate: %w", err)
	}

	stateID := rec.StateID
	if stateID == "" {
		stateID, err = rec.State.ID()
		if err != nil {
			return fmt.Errorf("write semistate: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO semistates
		(session_id, seq, state_id, depth, terminal, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		stateID,
		rec.Depth,
		boolToInt(rec.Terminal),
		body,
	)
	if err != nil {
		return fmt.Errorf("write semistate: %w", err)
	}
	return nil
}
