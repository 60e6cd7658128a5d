package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/arachne/internal/system"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a session with minimal required fields.
func createTestSession(id string) Session {
	return Session{
		ID:            id,
		ModelName:     "echo",
		ModelHash:     "test-hash",
		MaxDepth:      2,
		MaxRuns:       5,
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
}

// createTestSemistate creates a one-run semistate.
func createTestSemistate(seq int64, depth int, message string) system.Semistate {
	return system.Semistate{
		Seq:   seq,
		Depth: depth,
		Runs: []system.RunView{{
			ID:       0,
			Protocol: "Echo",
			Role:     "R",
			Events: []system.EventView{{
				Index:     0,
				Kind:      "read",
				Label:     "1",
				Message:   message,
				BindRun:   system.Invalid,
				BindIndex: system.Invalid,
			}},
		}},
	}
}
