package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aqlkit/internal/params"
)

// ParamsOptions holds flags for the params command.
type ParamsOptions struct {
	*RootOptions
	Text string // AQL text to scan instead of a snapshot
}

// ParamsResult lists the bind parameters of a query.
type ParamsResult struct {
	Source string   `json:"source,omitempty"`
	Params []string `json:"params"`
}

// NewParamsCommand creates the params command.
func NewParamsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParamsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "params [snapshot]",
		Short: "List the parameters a query expects",
		Long: `List the value parameters a caller must bind, in order of first use.

Generated placeholders (@value0, @inValues0, ...) are not listed because
the compiler supplies their values. Collection parameters (@@name) are
excluded. With --text, AQL text is scanned instead of a snapshot and every
value parameter in it is listed.

Examples:
  aqlkit params queries/by_owner.yaml
  aqlkit params --text 'FOR d IN @@c FILTER d.owner == @owner RETURN d'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParams(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Text, "text", "", "AQL text to scan")

	return cmd
}

func runParams(opts *ParamsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	var result ParamsResult
	switch {
	case len(args) == 1 && opts.Text != "":
		return outputCommandError(formatter, ErrCodeGeneric, "give either a snapshot or --text, not both")
	case len(args) == 1:
		q, loadErr := LoadSnapshot(args[0])
		if loadErr != nil {
			return outputLoadError(formatter, loadErr)
		}
		result = ParamsResult{Source: args[0], Params: params.FromQuery(q)}
	case opts.Text != "":
		result = ParamsResult{Params: params.FromText(opts.Text)}
	default:
		return outputCommandError(formatter, ErrCodeGeneric, "a snapshot or --text is required")
	}

	if result.Params == nil {
		result.Params = []string{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if len(result.Params) == 0 {
		fmt.Fprintln(formatter.Writer, "No parameters.")
		return nil
	}
	fmt.Fprintln(formatter.Writer, "@"+strings.Join(result.Params, "\n@"))
	return nil
}
