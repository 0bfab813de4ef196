package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/aqlkit/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    int    // -v count; raises the log level
	Format     string // "json" | "text"
	ConfigPath string
	DB         string // snapshot store path
	LogLevel   string
	NoColor    bool
	Color      bool // resolved in PersistentPreRunE
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.Formats

// NewRootCommand creates the root command for the aqlkit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aqlkit",
		Short: "aqlkit - parameterized AQL queries",
		Long: `Compile query snapshots to parameterized ArangoDB AQL.

Snapshots are JSON, YAML or CUE documents describing a query. Every literal
value is compiled to a bind variable, never spliced into the query text.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfig(cmd, opts)
		},
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true

	defaults := config.Default()

	// Global flags
	cmd.PersistentFlags().CountVarP(&opts.Verbose, "verbose", "v", "raise the log level (-v info, -vv debug, -vvv trace)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", defaults.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "config file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", defaults.DB, "snapshot store database path")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", defaults.LogLevel, "log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewParamsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))

	return cmd
}

// applyConfig merges the config file under the flags the user set and
// configures the global logger.
func applyConfig(cmd *cobra.Command, opts *RootOptions) error {
	flags := cmd.Flags()

	conf, err := config.Load(opts.ConfigPath, flags.Changed("config"))
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}

	if !flags.Changed("format") {
		opts.Format = conf.Format
	}
	if !flags.Changed("db") {
		opts.DB = conf.DB
	}
	if !flags.Changed("log-level") {
		opts.LogLevel = conf.LogLevel
	}

	if !isValidFormat(opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}

	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	level = raiseLevel(level, opts.Verbose)
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())

	switch {
	case opts.NoColor:
		opts.Color = false
	case conf.Color != nil:
		opts.Color = *conf.Color
	default:
		opts.Color = !color.NoColor
	}

	logrus.WithFields(logrus.Fields{
		"format": opts.Format,
		"db":     opts.DB,
		"level":  level.String(),
	}).Debug("configured cli")
	return nil
}

// raiseLevel applies the -v count: one for info, two for debug, three or
// more for trace. It never lowers an already more verbose level.
func raiseLevel(level logrus.Level, verbosity int) logrus.Level {
	if verbosity <= 0 {
		return level
	}
	v := logrus.InfoLevel + logrus.Level(verbosity-1)
	if v > logrus.TraceLevel {
		v = logrus.TraceLevel
	}
	if v > level {
		return v
	}
	return level
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return config.ValidFormat(format)
}
