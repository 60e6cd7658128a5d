package store

import (
	"context"
	"database/sql"
	"fmt"
)

const sessionColumns = `id, model_name, model_hash, model_path, max_depth, max_runs,
	engine_version, ir_version, status, states, terminals, pruned, digest`

// ReadSession retrieves a single session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns all sessions ordered by ID (creation order for
// UUIDv7 IDs).
//
// Returns an empty slice (not nil) if there are no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSemistates returns the semistates of a session in search order.
// With terminalOnly, only terminal semistates are returned.
//
// Returns an empty slice (not nil) if no records exist.
func (s *Store) ReadSemistates(ctx context.Context, sessionID string, terminalOnly bool) ([]SemistateRecord, error) {
	query := `
		SELECT session_id, seq, state_id, depth, terminal, body
		FROM semistates
		WHERE session_id = ?`
	if terminalOnly {
		query += ` AND terminal = 1`
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query semistates: %w", err)
	}
	defer rows.Close()

	records := []SemistateRecord{}
	for rows.Next() {
		rec, err := scanSemistate(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semistates: %w", err)
	}
	return records, nil
}

// CountSemistates returns how many semistates of a session are stored.
func (s *Store) CountSemistates(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM semistates WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count semistates: %w", err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID,
		&sess.ModelName,
		&sess.ModelHash,
		&sess.ModelPath,
		&sess.MaxDepth,
		&sess.MaxRuns,
		&sess.EngineVersion,
		&sess.IRVersion,
		&sess.Status,
		&sess.States,
		&sess.Terminals,
		&sess.Pruned,
		&sess.Digest,
	)
	if err == sql.ErrNoRows {
		return Session{}, err
	}
	if err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

func scanSemistate(row scanner) (SemistateRecord, error) {
	var (
		rec      SemistateRecord
		terminal int
		body     string
	)
	if err := row.Scan(&rec.SessionID, &rec.Seq, &rec.StateID, &rec.Depth, &terminal, &body); err != nil {
		return SemistateRecord{}, fmt.Errorf("scan semistate: %w", err)
	}
	rec.Terminal = terminal != 0

	st, err := unmarshalSemistate(body, rec.Seq)
	if err != nil {
		return SemistateRecord{}, err
	}
	rec.State = st
	return rec, nil
}
