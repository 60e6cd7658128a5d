package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/arachne/internal/compiler"
	"github.com/roach88/arachne/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled model in canonical form.
type CompilationResult struct {
	Name  string         `json:"name"`
	Hash  string         `json:"hash"`
	Model map[string]any `json:"model"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model>",
		Short: "Compile a CUE model to canonical IR",
		Long: `Compile a CUE protocol model to canonical IR.

The compiler parses the CUE files, checks every term, validates the model
and prints its content hash. The hash is recorded with every exploration
session so replays can detect a changed model.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, modelPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loaded, err := compiler.LoadModel(modelPath)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, modelPath)

	m := loaded.Model
	for _, p := range m.Protocols {
		formatter.VerboseLog("Compiled protocol: %s", p.Name)
	}

	if verrs := compiler.Validate(m); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return outputCompileErrors(formatter, errs)
	}

	hash, err := ir.ModelHash(m)
	if err != nil {
		return outputCompileError(formatter, compiler.ErrCodeGeneric, err.Error(), nil)
	}
	result := &CompilationResult{Name: m.Name, Hash: hash, Model: m.Canonical()}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeIRToFile(m, opts.Output); err != nil {
			return outputCompileError(formatter, compiler.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, m, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, m *ir.Model, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled model %s (%s)\n\n", result.Name, shortHash(result.Hash))

	fmt.Fprintln(w, "Protocols:")
	for _, p := range m.Protocols {
		fmt.Fprintf(w, "  %s: %d role(s)\n", p.Name, len(p.Roles))
		for _, r := range p.Roles {
			fmt.Fprintf(w, "    %s: %d event(s), %d fresh\n", r.Name, len(r.Events), len(r.Fresh))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Intruder: %d knowledge term(s), %d inverse pair(s)\n", len(m.Knowledge), len(m.Inverses))
	fmt.Fprintf(w, "Setup: %d run(s), %d goal(s)\n", len(m.Runs), len(m.Goals))

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote canonical IR to %s\n", outputFile)
	}

	return nil
}

// shortHash abbreviates a content hash for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		var ve compiler.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintf(formatter.Writer, "%s\n", ve.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve.Code, ve.Message
	}
	return compiler.ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the model in canonical JSON.
func writeIRToFile(m *ir.Model, filename string) error {
	data, err := ir.MarshalCanonical(m.Canonical())
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
