package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arachne/internal/compiler"
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/ir"
)

func loadTestdataScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_TestdataScenarios(t *testing.T) {
	for _, name := range []string{"ab_direct", "echo_intruder", "decrypt_key"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestdataScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_RecordsSession(t *testing.T) {
	s := loadTestdataScenario(t, "ab_direct")

	result, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, "scenario-ab_direct", result.SessionID)
	assert.NotEmpty(t, result.ModelHash)
	assert.NotEmpty(t, result.Outcome.Digest)
	assert.Equal(t, engine.Limits{MaxDepth: 10, MaxRuns: 2}, result.Outcome.Limits)
	assert.Equal(t, int64(1), result.StoredTerminals)
	require.Len(t, result.Terminals, 1)
	assert.Equal(t, int64(2), result.Terminals[0].Seq)
}

func TestRun_FixedSessionID(t *testing.T) {
	s := loadTestdataScenario(t, "ab_direct")
	s.SessionID = "fixed-id"

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", result.SessionID)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestdataScenario(t, "echo_intruder")

	a, err := Run(s)
	require.NoError(t, err)
	b, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, a.Outcome, b.Outcome)
	assert.Equal(t, a.Terminals, b.Terminals)
}

func TestRun_DefaultLimits(t *testing.T) {
	s := loadTestdataScenario(t, "ab_direct")
	s.Limits = nil
	s.Assertions = []Assertion{{Type: AssertTerminalCount, Min: count(0)}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultLimits(), result.Outcome.Limits)
}

func TestRun_FailingAssertion(t *testing.T) {
	s := loadTestdataScenario(t, "ab_direct")
	s.Assertions = []Assertion{
		{Type: AssertStateCount, Count: count(99)},
		{Type: AssertTerminalRoles, Roles: []string{"A", "B"}},
	}

	result, err := Run(s)
	require.NoError(t, err, "assertion failures are not execution errors")
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
}

func TestRun_MissingModel(t *testing.T) {
	s := &Scenario{
		Name:       "missing",
		Model:      filepath.Join(t.TempDir(), "nope.cue"),
		Assertions: []Assertion{{Type: AssertStateCount, Count: count(0)}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestRun_InvalidModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
protocol: P: role: A: events: []
`), 0644))

	s := &Scenario{
		Name:       "invalid",
		Model:      path,
		Assertions: []Assertion{{Type: AssertStateCount, Count: count(0)}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestRunContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, loadTestdataScenario(t, "ab_direct"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to explore")
	assert.True(t, engine.IsCancelled(err))
}

func TestRunModel_PrecompiledModel(t *testing.T) {
	s := loadTestdataScenario(t, "ab_direct")
	m, err := compiler.LoadValidModel(s.Model)
	require.NoError(t, err)

	result, err := RunModel(context.Background(), s, m)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, ir.MustModelHash(m), result.ModelHash)
}
