package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arachne/internal/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arachne.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
db = " runs.db "

[limits]
max_runs = 7
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "runs.db", cfg.Database)
	assert.False(t, cfg.AllStates)
	assert.Equal(t, engine.Limits{MaxDepth: engine.DefaultMaxDepth, MaxRuns: 7}, cfg.Limits)
}

func TestLoadAllKeys(t *testing.T) {
	path := writeConfig(t, `
db = "a.db"
all_states = true
export = "out.cbor"

[limits]
max_depth = 9
max_runs = 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Config{
		Limits:    engine.Limits{MaxDepth: 9, MaxRuns: 0},
		Database:  "a.db",
		AllStates: true,
		Export:    "out.cbor",
	}, cfg)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "max_depth = 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "max_depth"`)
}

func TestLoadRejectsInvalidLimits(t *testing.T) {
	_, err := Load(writeConfig(t, "[limits]\nmax_depth = 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max depth")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	assert.Equal(t, engine.DefaultLimits(), Default().Limits)
	assert.Empty(t, Default().Database)
}
