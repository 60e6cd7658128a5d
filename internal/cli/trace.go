package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arachne/internal/codec"
	"github.com/roach88/arachne/internal/store"
	"github.com/roach88/arachne/internal/system"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Export    string
	SessionID string
	Role      string // optional - filter to states with a run of this role
}

// TraceState is one semistate in the trace output.
type TraceState struct {
	Seq      int64            `json:"seq"`
	Depth    int              `json:"depth"`
	Terminal bool             `json:"terminal"`
	StateID  string           `json:"state_id,omitempty"`
	State    system.Semistate `json:"state"`
}

// TraceResult holds the complete trace output of one session.
type TraceResult struct {
	SessionID string       `json:"session_id,omitempty"`
	Model     string       `json:"model"`
	States    []TraceState `json:"states"`
	Stats     TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Shown     int   `json:"shown"`
	Explored  int64 `json:"explored"`
	Terminals int64 `json:"terminals"`
	Pruned    int64 `json:"pruned"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded sessions and their semistates",
		Long: `Show recorded exploration sessions.

Without --session, lists every session in the database. With --session,
prints the semistates stored for it: the terminal states, or every
explored state when the session was recorded with --all. With --out,
reads a CBOR export instead of a database.

Examples:
  arachne trace --db ./arachne.db
  arachne trace --db ./arachne.db --session 0190...
  arachne trace --db ./arachne.db --session 0190... --role R --format json
  arachne trace --out ./ns.cbor`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Export, "out", "", "path to a CBOR export to read instead")
	cmd.MarkFlagsMutuallyExclusive("db", "out")
	cmd.MarkFlagsOneRequired("db", "out")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session to show")
	cmd.Flags().StringVar(&opts.Role, "role", "", "only show states with a run of this role")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Export != "" {
		x, err := codec.ReadExport(opts.Export)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read export", err)
		}
		result := TraceResult{
			SessionID: x.SessionID,
			Model:     x.ModelName,
			Stats: TraceStats{
				Explored:  x.Result.States,
				Terminals: x.Result.Terminals,
				Pruned:    x.Result.Pruned,
			},
		}
		for _, st := range x.Semistates {
			result.States = append(result.States, TraceState{
				Seq:      st.Seq,
				Depth:    st.Depth,
				Terminal: x.IsTerminal(st.Seq),
				State:    st,
			})
		}
		return outputTrace(cmd, opts, filterByRole(result, opts.Role))
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.SessionID == "" {
		return listSessions(ctx, st, opts, cmd)
	}

	sess, err := st.ReadSession(ctx, opts.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.SessionID), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	recs, err := st.ReadSemistates(ctx, sess.ID, false)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read semistates", err)
	}

	result := TraceResult{
		SessionID: sess.ID,
		Model:     sess.ModelName,
		States:    make([]TraceState, 0, len(recs)),
		Stats: TraceStats{
			Explored:  sess.States,
			Terminals: sess.Terminals,
			Pruned:    sess.Pruned,
		},
	}
	for _, rec := range recs {
		result.States = append(result.States, TraceState{
			Seq:      rec.Seq,
			Depth:    rec.Depth,
			Terminal: rec.Terminal,
			StateID:  rec.StateID,
			State:    rec.State,
		})
	}

	return outputTrace(cmd, opts, filterByRole(result, opts.Role))
}

// filterByRole keeps the states that contain a run of role.
func filterByRole(result TraceResult, role string) TraceResult {
	if role != "" {
		kept := result.States[:0]
		for _, ts := range result.States {
			for _, rv := range ts.State.Runs {
				if rv.Role == role {
					kept = append(kept, ts)
					break
				}
			}
		}
		result.States = kept
	}
	if result.States == nil {
		result.States = []TraceState{}
	}
	result.Stats.Shown = len(result.States)
	return result
}

func listSessions(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if sessions == nil {
		sessions = []store.Session{}
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: sessions})
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}
	fmt.Fprintf(w, "Sessions: %d\n\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-12s %-9s depth=%d runs=%d  states=%d terminals=%d pruned=%d\n",
			s.ID, s.ModelName, s.Status, s.MaxDepth, s.MaxRuns, s.States, s.Terminals, s.Pruned)
	}
	return nil
}

func outputTrace(cmd *cobra.Command, opts *TraceOptions, result TraceResult) error {
	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceText prints states the way the explore command reports them.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	header := result.Model
	if result.SessionID != "" {
		header = fmt.Sprintf("%s (session %s)", result.Model, result.SessionID)
	}
	fmt.Fprintf(w, "Trace: %s\n", header)
	fmt.Fprintf(w, "  explored=%d terminals=%d pruned=%d shown=%d\n\n",
		result.Stats.Explored, result.Stats.Terminals, result.Stats.Pruned, result.Stats.Shown)

	for _, ts := range result.States {
		kind, prefix := "State", "   "
		if ts.Terminal {
			kind, prefix = "Terminal", ">> "
		}
		fmt.Fprintf(w, "%s %d (depth %d)\n", kind, ts.Seq, ts.Depth)
		if verbose && ts.StateID != "" {
			fmt.Fprintf(w, "%sid %s\n", strings.Repeat(" ", len(prefix)), ts.StateID)
		}
		if err := ts.State.Print(w, prefix); err != nil {
			return err
		}
	}
	return nil
}
