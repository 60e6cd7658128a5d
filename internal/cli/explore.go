package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/arachne/internal/codec"
	"github.com/roach88/arachne/internal/compiler"
	"github.com/roach88/arachne/internal/config"
	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/store"
)

// ExploreOptions holds flags for the explore command.
type ExploreOptions struct {
	*RootOptions
	ConfigPath string
	Database   string
	Export     string
	MaxDepth   int
	MaxRuns    int
	AllStates  bool
	Trace      bool

	// IDGenerator allows overriding the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.SessionIDGenerator
}

// ExploreResult is the JSON payload of the explore command.
type ExploreResult struct {
	Model     string        `json:"model"`
	ModelHash string        `json:"model_hash"`
	SessionID string        `json:"session_id,omitempty"`
	Result    engine.Result `json:"result"`
}

// NewExploreCommand creates the explore command.
func NewExploreCommand(rootOpts *RootOptions) *cobra.Command {
	return newExploreCommand(&ExploreOptions{RootOptions: rootOpts})
}

func newExploreCommand(opts *ExploreOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore <model>",
		Short: "Explore a model by backward search",
		Long: `Explore every semistate of a protocol model reachable within the limits.

Terminal semistates, in which every read is bound, are printed as they are
found. With --db the exploration is recorded as a session that trace and
replay can read back; with --out it is also written as a CBOR export.

Settings are read from --config first; flags given on the command line
override the file.

Example:
  arachne explore ./models/ns
  arachne explore --db ./arachne.db --max-depth 4 ./models/ns
  arachne explore --config arachne.toml --out ns.cbor ./models/ns`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to TOML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the session in")
	cmd.Flags().StringVar(&opts.Export, "out", "", "path to write a CBOR export to")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", engine.DefaultMaxDepth, "deepest search level explored")
	cmd.Flags().IntVar(&opts.MaxRuns, "max-runs", engine.DefaultMaxRuns, "largest number of runs explored")
	cmd.Flags().BoolVar(&opts.AllStates, "all", false, "record every explored state, not only terminals")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print every explored state")

	return cmd
}

// resolveConfig overlays the config file and the flags set on cmd.
func resolveConfig(opts *ExploreOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("out") {
		cfg.Export = opts.Export
	}
	if flags.Changed("max-depth") {
		cfg.Limits.MaxDepth = opts.MaxDepth
	}
	if flags.Changed("max-runs") {
		cfg.Limits.MaxRuns = opts.MaxRuns
	}
	if flags.Changed("all") {
		cfg.AllStates = opts.AllStates
	}
	return cfg, cfg.Limits.Validate()
}

func runExplore(opts *ExploreOptions, modelPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return outputCompileError(formatter, ErrCodeInvalidLimits, err.Error(), nil)
	}

	model, err := compiler.LoadValidModel(modelPath)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}
	hash, err := ir.ModelHash(model)
	if err != nil {
		return outputCompileError(formatter, compiler.ErrCodeGeneric, err.Error(), nil)
	}
	slog.Info("model loaded", "model", model.Name, "hash", hash, "protocols", len(model.Protocols))

	ctx, stop := signalContext(cmd)
	defer stop()

	var reporters engine.MultiReporter
	reporters = append(reporters, engine.LogReporter{})
	if opts.Format != "json" {
		reporters = append(reporters, &engine.TextReporter{W: formatter.Writer, All: opts.Trace})
	}
	var rec *engine.Recorder
	if cfg.Export != "" {
		rec = &engine.Recorder{}
		reporters = append(reporters, rec)
	}

	out := ExploreResult{Model: model.Name, ModelHash: hash}
	if cfg.Database != "" {
		ids := opts.IDGenerator
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		st, err := store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		sess, result, err := engine.ExploreSession(ctx, st, ids, model, modelPath, cfg.Limits, cfg.AllStates, reporters)
		out.SessionID = sess.ID
		out.Result = result
		if err != nil {
			return exploreFailure(formatter, err)
		}
	} else {
		result, err := engine.New(model, engine.WithLimits(cfg.Limits), engine.WithReporter(reporters)).Explore(ctx)
		out.Result = result
		if err != nil {
			return exploreFailure(formatter, err)
		}
	}

	if cfg.Export != "" {
		states := rec.Terminals
		if cfg.AllStates {
			states = rec.States
		}
		x, err := codec.NewExport(model, out.Result, states, rec.Terminals)
		if err != nil {
			return outputCompileError(formatter, compiler.ErrCodeGeneric, err.Error(), nil)
		}
		x.SessionID = out.SessionID
		if err := codec.WriteExport(cfg.Export, x); err != nil {
			return outputCompileError(formatter, compiler.ErrCodeWriteFailed, err.Error(), nil)
		}
		formatter.VerboseLog("Wrote export to %s", cfg.Export)
	}

	return outputExploreSuccess(formatter, out)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The command's context is used as parent if set (for testing).
func signalContext(cmd *cobra.Command) (context.Context, func()) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping exploration", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// exploreFailure maps an engine error to an exit error.
func exploreFailure(formatter *OutputFormatter, err error) error {
	code, exit := ErrCodeStore, ExitCommandError
	switch {
	case engine.IsCancelled(err):
		code, exit = ErrCodeCancelled, ExitFailure
	case engine.IsSetupError(err):
		code = ErrCodeInvalidLimits
	case engine.IsReporterError(err):
		code = ErrCodeReporter
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(exit, "exploration failed", err)
}

func outputExploreSuccess(formatter *OutputFormatter, out ExploreResult) error {
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	r := out.Result
	fmt.Fprintf(w, "✓ Explored %s: %d state(s), %d terminal(s), %d pruned\n",
		out.Model, r.States, r.Terminals, r.Pruned)
	fmt.Fprintf(w, "  limits: depth %d, runs %d\n", r.Limits.MaxDepth, r.Limits.MaxRuns)
	fmt.Fprintf(w, "  digest: %s\n", r.Digest)
	if out.SessionID != "" {
		fmt.Fprintf(w, "  session: %s\n", out.SessionID)
	}
	return nil
}
