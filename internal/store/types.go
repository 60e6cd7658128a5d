package store

import "github.com/roach88/arachne/internal/system"

// Session statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusAborted  = "aborted"
)

// Session is one stored exploration.
type Session struct {
	ID            string `json:"id"`
	ModelName     string `json:"model_name"`
	ModelHash     string `json:"model_hash"`
	ModelPath     string `json:"model_path"`
	MaxDepth      int    `json:"max_depth"`
	MaxRuns       int    `json:"max_runs"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`

	// Outcome, set by FinishSession.
	Status    string `json:"status"`
	States    int64  `json:"states"`
	Terminals int64  `json:"terminals"`
	Pruned    int64  `json:"pruned"`
	Digest    string `json:"digest"`
}

// Outcome is the result recorded when a session ends.
type Outcome struct {
	Status    string
	States    int64
	Terminals int64
	Pruned    int64
	Digest    string
}

// SemistateRecord is one stored semistate of a session.
type SemistateRecord struct {
	SessionID string           `json:"session_id"`
	Seq       int64            `json:"seq"`
	StateID   string           `json:"state_id"`
	Depth     int              `json:"depth"`
	Terminal  bool             `json:"terminal"`
	State     system.Semistate `json:"state"`
}
