package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/aqlkit/internal/queryir"
)

// ValidationIssue is one problem found in a snapshot.
type ValidationIssue struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <snapshot|dir>...",
		Short: "Validate snapshots without compiling them",
		Long: `Validate query snapshots without producing AQL.

Reports every configuration problem in every snapshot: missing sources,
operations without a collection, negative limits, unsafe identifiers and
malformed literals. Directories are searched for .json, .yaml, .yml and
.cue files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	files, loadErr := expandSnapshotArgs(args)
	if loadErr != nil {
		return outputValidateError(formatter, loadErr.Code, loadErr.Message)
	}

	result := ValidationResult{Files: len(files)}
	for _, file := range files {
		logrus.WithField("file", file).Debug("validating snapshot")
		result.Errors = append(result.Errors, ValidateSnapshot(file)...)
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateSnapshot loads one snapshot and returns every problem in it.
func ValidateSnapshot(path string) []ValidationIssue {
	q, loadErr := LoadSnapshot(path)
	if loadErr != nil {
		return []ValidationIssue{{
			File:    path,
			Code:    loadErr.Code,
			Message: loadErr.Message,
			Line:    loadErr.Line,
		}}
	}

	vr := queryir.Validate(q)
	issues := make([]ValidationIssue, 0, len(vr.Errors))
	for _, ce := range vr.Errors {
		issues = append(issues, ValidationIssue{
			File:    path,
			Code:    MapConfigurationCode(ce.Code),
			Field:   ce.Field,
			Message: ce.Message,
		})
	}
	return issues
}

// expandSnapshotArgs replaces directory arguments with the snapshot files
// they contain.
func expandSnapshotArgs(args []string) ([]string, *LoadError) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", arg), Path: arg}
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, loadErr := FindSnapshotFiles(arg)
		if loadErr != nil {
			return nil, loadErr
		}
		files = append(files, found...)
	}
	return files, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s All %d snapshot(s) valid\n", formatter.Check(), result.Files)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every validation issue.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", formatter.Cross())
	for _, issue := range errs {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		if issue.Field != "" {
			loc += " " + issue.Field
		}
		fmt.Fprintln(formatter.Writer, loc)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
