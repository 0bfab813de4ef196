package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/params"
	"github.com/roach88/aqlkit/internal/queryaql"
	"github.com/roach88/aqlkit/internal/queryir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is a compiled snapshot as reported by the CLI.
type CompilationResult struct {
	Source      string          `json:"source"`
	Query       string          `json:"query"`
	BindVars    json.RawMessage `json:"bindVars"`
	Fingerprint string          `json:"fingerprint"`
	// Missing lists the parameters the caller must still bind.
	Missing []string `json:"missing,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <snapshot>",
		Short: "Compile a query snapshot to AQL",
		Long: `Compile a JSON, YAML or CUE query snapshot to AQL text and bind variables.

Every literal in the snapshot becomes a bind variable. Parameters named in
the snapshot are left for the caller and listed as missing.

With --output the result is written as an ArangoDB cursor request body
({"query": ..., "bindVars": ...}).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the cursor request body to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	q, loadErr := LoadSnapshot(path)
	if loadErr != nil {
		return outputLoadError(formatter, loadErr)
	}

	compiled, err := queryaql.Compile(q)
	if err != nil {
		return outputCompileErrors(formatter, err)
	}

	result, err := newCompilationResult(path, compiled)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := writeCursorBody(compiled, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	logrus.WithFields(logrus.Fields{
		"source":      path,
		"fingerprint": result.Fingerprint,
	}).Info("compiled snapshot")

	return outputCompileSuccess(formatter, result, opts.Output)
}

func newCompilationResult(path string, compiled *queryaql.Result) (*CompilationResult, error) {
	vars, err := bindVarsJSON(compiled.BindVars)
	if err != nil {
		return nil, err
	}
	fp, err := compiled.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	return &CompilationResult{
		Source:      path,
		Query:       compiled.Query,
		BindVars:    vars,
		Fingerprint: fp,
		Missing:     params.Missing(compiled),
	}, nil
}

// bindVarsJSON encodes bind variables with sorted keys, keeping 1.0 and 1
// distinct.
func bindVarsJSON(vars map[string]any) (json.RawMessage, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	n, err := ir.Normalize(vars)
	if err != nil {
		return nil, fmt.Errorf("bind vars: %w", err)
	}
	data, err := ir.MarshalValue(n)
	if err != nil {
		return nil, fmt.Errorf("bind vars: %w", err)
	}
	return data, nil
}

// outputCompileSuccess outputs a successful compilation.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Compiled %s\n\n", formatter.Check(), result.Source)
	fmt.Fprintln(w, result.Query)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Bind variables: %s\n", result.BindVars)
	fmt.Fprintf(w, "Fingerprint:    %s\n", result.Fingerprint)
	if len(result.Missing) > 0 {
		fmt.Fprintf(w, "Missing params: %v\n", result.Missing)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote cursor request to %s\n", outputFile)
	}
	return nil
}

// outputLoadError reports a snapshot that could not be read.
func outputLoadError(formatter *OutputFormatter, loadErr *LoadError) error {
	details := map[string]any{"path": loadErr.Path}
	if loadErr.Line > 0 {
		details["line"] = loadErr.Line
		details["column"] = loadErr.Column
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)

	// Undecodable snapshots are invalid input; unreadable ones are command errors.
	code := ExitCommandError
	if loadErr.Code == ErrCodeLoadFailed || loadErr.Code == ErrCodeSerialization {
		code = ExitFailure
	}
	return NewExitError(code, loadErr.Error())
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs every configuration error in err.
func outputCompileErrors(formatter *OutputFormatter, err error) error {
	cliErrors := compileCLIErrors(err)

	if formatter.Format == "json" {
		if rerr := formatter.Respond(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); rerr != nil {
			return rerr
		}
		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(cliErrors)))
	}

	fmt.Fprintf(formatter.Writer, "%s Compilation failed\n\n", formatter.Cross())
	for _, ce := range cliErrors {
		if field, ok := ce.Details.(string); ok && field != "" {
			fmt.Fprintf(formatter.Writer, "%s\n", field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", ce.Code, ce.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(cliErrors)))
}

// compileCLIErrors flattens a compile error into CLI errors. The query
// field of each configuration error goes into Details.
func compileCLIErrors(err error) []CLIError {
	ces := queryir.ConfigurationErrors(err)
	if len(ces) == 0 {
		return []CLIError{{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	out := make([]CLIError, len(ces))
	for i, ce := range ces {
		out[i] = CLIError{
			Code:    MapConfigurationCode(ce.Code),
			Message: ce.Message,
			Details: ce.Field,
		}
	}
	return out
}

// writeCursorBody writes the compiled query as a cursor request body.
func writeCursorBody(compiled *queryaql.Result, filename string) error {
	vars, err := bindVarsJSON(compiled.BindVars)
	if err != nil {
		return err
	}
	body := struct {
		Query    string          `json:"query"`
		BindVars json.RawMessage `json:"bindVars"`
	}{compiled.Query, vars}

	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cursor body: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
