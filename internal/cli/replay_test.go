package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arachne/internal/compiler"
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/store"
	"github.com/roach88/arachne/internal/system"
)

// recordSession explores the model at modelPath into a fresh database and
// returns the database path.
func recordSession(t *testing.T, modelPath string, ids ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "arachne.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	model, err := compiler.LoadValidModel(modelPath)
	require.NoError(t, err)

	gen := engine.NewFixedGenerator(ids...)
	for range ids {
		_, _, err := engine.ExploreSession(context.Background(), st, gen, model, modelPath,
			engine.Limits{MaxDepth: 10, MaxRuns: 2}, true)
		require.NoError(t, err)
	}
	return dbPath
}

type failingReporter struct{}

func (failingReporter) Explored(system.Semistate) error { return nil }
func (failingReporter) Terminal(system.Semistate) error { return errors.New("disk full") }

func TestReplayDeterministic(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)
	dbPath := recordSession(t, path, "s-1", "s-2")

	output, err := runSub(t, NewReplayCommand, "text", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, output, "Replay Summary: 2 session(s)")
	assert.Contains(t, output, "✓ Session: s-1 (ab)")
	assert.Contains(t, output, "✓ Session: s-2 (ab)")
	assert.Contains(t, output, "✓ All sessions verified deterministic")
}

func TestReplaySingleSessionJSON(t *testing.T) {
	path := writeModel(t, t.TempDir(), "echo.cue", echoModel)
	dbPath := recordSession(t, path, "s-1", "s-2")

	output, err := runSub(t, NewReplayCommand, "json", "--db", dbPath, "--session", "s-2")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Sessions, 1)
	assert.Equal(t, ReplaySessionResult{
		SessionID:     "s-2",
		Model:         "echo",
		States:        3,
		Terminals:     1,
		Deterministic: true,
	}, resp.Data.Sessions[0])
}

func TestReplayModelChanged(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)
	dbPath := recordSession(t, path, "s-1")

	require.NoError(t, os.WriteFile(path, []byte(echoModel), 0644))

	output, err := runSub(t, NewReplayCommand, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Session: s-1")
	assert.Contains(t, output, "model hash changed")
	assert.Contains(t, output, "✗ Determinism verification failed")
}

func TestReplayModelOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	dbPath := recordSession(t, path, "s-1")

	moved := filepath.Join(dir, "moved", "ab.cue")
	writeModel(t, dir, filepath.Join("moved", "ab.cue"), abModel)
	require.NoError(t, os.Remove(path))

	_, err := runSub(t, NewReplayCommand, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err), "recorded model path is gone")

	output, err := runSub(t, NewReplayCommand, "text", "--db", dbPath, "--model", moved)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Session: s-1")
}

func TestReplaySkipsAbortedSessions(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)
	dbPath := filepath.Join(t.TempDir(), "arachne.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	model, err := compiler.LoadValidModel(path)
	require.NoError(t, err)
	_, _, err = engine.ExploreSession(context.Background(), st, engine.NewFixedGenerator("s-1"), model, path,
		engine.Limits{MaxDepth: 10, MaxRuns: 2}, false, failingReporter{})
	require.Error(t, err)
	sess, err := st.ReadSession(context.Background(), "s-1")
	require.NoError(t, err)
	require.Equal(t, store.StatusAborted, sess.Status)
	require.NoError(t, st.Close())

	output, err := runSub(t, NewReplayCommand, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "No sessions found in database.")
}

func TestReplayEmptyDatabaseJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	output, err := runSub(t, NewReplayCommand, "json", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.TotalSessions)
	assert.Empty(t, resp.Data.Sessions)
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	_, err := runSub(t, NewReplayCommand, "text", "--db", dbPath, "--session", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read session missing")
}

func TestReplayRequiresDB(t *testing.T) {
	_, err := runSub(t, NewReplayCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"db" not set`)
}
