package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arachne/internal/codec"
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/store"
)

// runExploreCmd executes explore with a fixed session ID.
func runExploreCmd(t *testing.T, ctx context.Context, format string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newExploreCommand(&ExploreOptions{
		RootOptions: &RootOptions{Format: format},
		IDGenerator: engine.NewFixedGenerator("session-1"),
	})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestExploreText(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)

	output, err := runExploreCmd(t, context.Background(), "text", "--max-depth", "10", "--max-runs", "2", path)
	require.NoError(t, err)

	assert.Contains(t, output, "Terminal 1 (state 2, depth 2)")
	assert.Contains(t, output, ">> [ Run 0, B ]")
	assert.Contains(t, output, ">> [ Run 1, A ]")
	assert.Contains(t, output, "✓ Explored ab: 3 state(s), 1 terminal(s), 1 pruned")
	assert.Contains(t, output, "limits: depth 10, runs 2")
	assert.NotContains(t, output, "session:")
}

func TestExploreTraceAllStates(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)

	output, err := runExploreCmd(t, context.Background(), "text", "--max-depth", "10", "--max-runs", "2", "--trace", path)
	require.NoError(t, err)

	assert.Contains(t, output, "State 1 (depth 1)")
	assert.Contains(t, output, "State 3 (depth ")
}

func TestExploreJSON(t *testing.T) {
	path := writeModel(t, t.TempDir(), "echo.cue", echoModel)

	output, err := runExploreCmd(t, context.Background(), "json", "--max-depth", "10", "--max-runs", "2", path)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExploreResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "echo", resp.Data.Model)
	assert.Len(t, resp.Data.ModelHash, 64)
	assert.Empty(t, resp.Data.SessionID)
	assert.Equal(t, engine.Stats{States: 3, Terminals: 1, Pruned: 2}, resp.Data.Result.Stats)
	assert.NotEmpty(t, resp.Data.Result.Digest)
}

func TestExploreDigestStable(t *testing.T) {
	path := writeModel(t, t.TempDir(), "echo.cue", echoModel)

	first, err := runExploreCmd(t, context.Background(), "json", path)
	require.NoError(t, err)
	second, err := runExploreCmd(t, context.Background(), "json", path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExploreRecordsSession(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	dbPath := filepath.Join(dir, "arachne.db")

	output, err := runExploreCmd(t, context.Background(), "text",
		"--db", dbPath, "--max-depth", "10", "--max-runs", "2", path)
	require.NoError(t, err)
	assert.Contains(t, output, "session: session-1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.ReadSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusComplete, sess.Status)
	assert.Equal(t, path, sess.ModelPath)
	assert.Equal(t, int64(3), sess.States)

	recs, err := st.ReadSemistates(context.Background(), "session-1", false)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "only terminals without --all")
}

func TestExploreRecordsAllStates(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	dbPath := filepath.Join(dir, "arachne.db")

	_, err := runExploreCmd(t, context.Background(), "json",
		"--db", dbPath, "--all", "--max-depth", "10", "--max-runs", "2", path)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	recs, err := st.ReadSemistates(context.Background(), "session-1", false)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestExploreWritesExport(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	exportPath := filepath.Join(dir, "ab.cbor")

	_, err := runExploreCmd(t, context.Background(), "json",
		"--out", exportPath, "--all", "--max-depth", "10", "--max-runs", "2", path)
	require.NoError(t, err)

	x, err := codec.ReadExport(exportPath)
	require.NoError(t, err)
	assert.Equal(t, "ab", x.ModelName)
	assert.Len(t, x.Semistates, 3)
	assert.Equal(t, []int64{2}, x.TerminalSeqs)
	assert.Equal(t, int64(1), x.Result.Terminals)
}

func TestExploreConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	cfgPath := writeModel(t, dir, "arachne.toml", `
[limits]
max_depth = 10
max_runs = 2
`)

	output, err := runExploreCmd(t, context.Background(), "text", "--config", cfgPath, path)
	require.NoError(t, err)
	assert.Contains(t, output, "limits: depth 10, runs 2")

	// Flags override the file.
	output, err = runExploreCmd(t, context.Background(), "text", "--config", cfgPath, "--max-runs", "1", path)
	require.NoError(t, err)
	assert.Contains(t, output, "limits: depth 10, runs 1")
}

func TestExploreConfigUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	cfgPath := writeModel(t, dir, "arachne.toml", "max_dpeth = 3\n")

	output, err := runExploreCmd(t, context.Background(), "text", "--config", cfgPath, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, ErrCodeInvalidLimits)
	assert.Contains(t, output, "max_dpeth")
}

func TestExploreInvalidLimits(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)

	output, err := runExploreCmd(t, context.Background(), "text", "--max-depth", "0", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [E020]")
}

func TestExploreInvalidModel(t *testing.T) {
	path := writeModel(t, t.TempDir(), "bad.cue", `protocol: P: role: A: events: []
`)

	output, err := runExploreCmd(t, context.Background(), "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "✗ Compilation failed")
	assert.Contains(t, output, "E102")
}

func TestExploreCancelled(t *testing.T) {
	path := writeModel(t, t.TempDir(), "ab.cue", abModel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	output, err := runExploreCmd(t, ctx, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsCancelled(err))
	assert.Contains(t, output, "Error [E022]")
}

func TestExploreCancelledWithDatabase(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "ab.cue", abModel)
	dbPath := filepath.Join(dir, "arachne.db")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	output, err := runExploreCmd(t, ctx, "text", "--db", dbPath, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsCancelled(err))
	assert.Contains(t, output, "Error [E022]")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.ReadSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAborted, sess.Status)
}
