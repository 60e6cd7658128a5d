package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// abModel has one direct solution: B's read bound to a fresh run of A.
const abModel = `name: "ab"

protocol: AB: role: {
	A: events: [{send: "m", label: "1"}]
	B: events: [{read: "m", label: "1"}]
}

setup: runs: [{protocol: "AB", role: "B"}]
`

// echoModel is solved by the intruder feeding k to R.
const echoModel = `name: "echo"

protocol: Echo: role: R: events: [
	{read: "X", label: "1"},
	{send: "X", label: "2"},
]

setup: {
	runs: [{protocol: "Echo", role: "R"}]
	goals: ["k"]
}
`

// writeModel writes src as name in dir and returns its path.
func writeModel(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// runRoot executes the root command with args and returns stdout.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// runSub executes a single subcommand built by newCmd.
func runSub(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
