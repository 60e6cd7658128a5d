package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/arachne/internal/compiler"
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
	ModelPath string // optional - overrides the recorded model path
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string `json:"session_id"`
	Model         string `json:"model"`
	States        int64  `json:"states"`
	Terminals     int64  `json:"terminals"`
	Deterministic bool   `json:"deterministic"`
	Reason        string `json:"reason,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded sessions and verify determinism",
		Long: `Re-run recorded exploration sessions and verify determinism.

Each completed session is explored again from its recorded model with its
recorded limits. The replay must reproduce the model hash, the counts, the
exploration digest and the IDs of every stored semistate.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  arachne replay --db ./arachne.db
  arachne replay --db ./arachne.db --session 0190...
  arachne replay --db ./arachne.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")
	cmd.Flags().StringVar(&opts.ModelPath, "model", "", "model path to use instead of the recorded one")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.SessionID != "" {
		sess, err := st.ReadSession(ctx, opts.SessionID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", opts.SessionID), err)
		}
		sessions = []store.Session{sess}
	} else {
		all, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, sess := range all {
			// Aborted sessions have no outcome to compare against.
			if sess.Status == store.StatusComplete {
				sessions = append(sessions, sess)
			}
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	if len(sessions) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}

	for _, sess := range sessions {
		sr, err := replaySession(ctx, st, sess, opts.ModelPath)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replaySession explores sess again and compares the outcome.
func replaySession(ctx context.Context, st *store.Store, sess store.Session, modelOverride string) (ReplaySessionResult, error) {
	out := ReplaySessionResult{
		SessionID: sess.ID,
		Model:     sess.ModelName,
		States:    sess.States,
		Terminals: sess.Terminals,
	}
	if sess.Status != store.StatusComplete {
		out.Reason = fmt.Sprintf("session is %s", sess.Status)
		return out, nil
	}

	path := sess.ModelPath
	if modelOverride != "" {
		path = modelOverride
	}
	if path == "" {
		return out, errors.New("session has no model path, use --model")
	}
	model, err := compiler.LoadValidModel(path)
	if err != nil {
		return out, err
	}

	hash, err := ir.ModelHash(model)
	if err != nil {
		return out, err
	}
	if hash != sess.ModelHash {
		out.Reason = fmt.Sprintf("model hash changed: recorded %s, now %s", shortHash(sess.ModelHash), shortHash(hash))
		return out, nil
	}

	limits := engine.Limits{MaxDepth: sess.MaxDepth, MaxRuns: sess.MaxRuns}
	rec := &engine.Recorder{}
	got, err := engine.New(model, engine.WithLimits(limits), engine.WithReporter(rec)).Explore(ctx)
	if err != nil {
		return out, err
	}

	want := engine.Stats{States: sess.States, Terminals: sess.Terminals, Pruned: sess.Pruned}
	switch {
	case got.Stats != want:
		out.Reason = fmt.Sprintf("counts differ: recorded %+v, replayed %+v", want, got.Stats)
		return out, nil
	case got.Digest != sess.Digest:
		out.Reason = fmt.Sprintf("digest differs: recorded %s, replayed %s", shortHash(sess.Digest), shortHash(got.Digest))
		return out, nil
	}

	stored, err := st.ReadSemistates(ctx, sess.ID, false)
	if err != nil {
		return out, err
	}
	for _, recd := range stored {
		idx := recd.Seq - 1
		if idx < 0 || idx >= int64(len(rec.States)) {
			out.Reason = fmt.Sprintf("stored state %d was not replayed", recd.Seq)
			return out, nil
		}
		id, err := rec.States[idx].ID()
		if err != nil {
			return out, err
		}
		if id != recd.StateID {
			out.Reason = fmt.Sprintf("state %d differs", recd.Seq)
			return out, nil
		}
	}

	out.Deterministic = true
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s (%s)\n", status, sess.SessionID, sess.Model)
		if verbose {
			fmt.Fprintf(w, "  States: %d\n", sess.States)
			fmt.Fprintf(w, "  Terminals: %d\n", sess.Terminals)
		}
		if sess.Reason != "" {
			fmt.Fprintf(w, "  Warning: %s\n", sess.Reason)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
