package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/arachne/internal/ir"
)

// Snapshot is the canonical JSON record of a scenario outcome that golden
// files hold: the counts and every terminal semistate. Hashes are left out
// so golden files stay readable; replay compares digests.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	terminals := make([]any, len(result.Terminals))
	for i, st := range result.Terminals {
		m := st.Canonical()
		m["seq"] = st.Seq
		terminals[i] = m
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name":   scenarioName,
		"states":          result.Outcome.States,
		"terminals":       result.Outcome.Terminals,
		"pruned":          result.Outcome.Pruned,
		"terminal_states": terminals,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
