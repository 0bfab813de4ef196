package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/aqlkit/internal/queryir"
	"github.com/roach88/aqlkit/internal/store"
)

// StoredQuery is a stored snapshot revision as reported by the CLI.
type StoredQuery struct {
	Name         string          `json:"name"`
	Revision     int64           `json:"revision"`
	Query        string          `json:"query"`
	BindVars     json.RawMessage `json:"bindVars"`
	Fingerprint  string          `json:"fingerprint"`
	SnapshotHash string          `json:"snapshotHash"`
	Raw          bool            `json:"raw"`
	// Snapshot is included by load --snapshot only.
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

// SaveResult reports a store save.
type SaveResult struct {
	StoredQuery
	Inserted bool `json:"inserted"`
}

// NewStoreCommand creates the store command group.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage named query snapshots",
		Long: `Keep named query snapshots in a local SQLite database (--db).

Saving compiles the snapshot first; invalid queries are never stored.
Saving a changed snapshot under an existing name adds a revision, saving an
identical one is a no-op.

Examples:
  aqlkit store save adults queries/adults.yaml
  aqlkit store load adults --revision 2
  aqlkit store list --format json`,
	}

	cmd.AddCommand(newStoreSaveCommand(rootOpts))
	cmd.AddCommand(newStoreLoadCommand(rootOpts))
	cmd.AddCommand(newStoreListCommand(rootOpts))
	cmd.AddCommand(newStoreHistoryCommand(rootOpts))
	cmd.AddCommand(newStoreFindCommand(rootOpts))
	cmd.AddCommand(newStoreRemoveCommand(rootOpts))

	return cmd
}

// withStore opens the store for one command and closes it afterwards.
func withStore(opts *RootOptions, formatter *OutputFormatter, fn func(*store.Store) error) error {
	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()
	return fn(st)
}

func newStoreSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "save <name> <snapshot>",
		Short:         "Compile a snapshot and store it under name",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout())
			name, path := args[0], args[1]

			q, loadErr := LoadSnapshot(path)
			if loadErr != nil {
				return outputLoadError(formatter, loadErr)
			}

			return withStore(rootOpts, formatter, func(st *store.Store) error {
				entry, inserted, err := st.Save(cmd.Context(), name, q)
				if err != nil {
					if queryir.IsConfigurationError(err) {
						return outputCompileErrors(formatter, err)
					}
					return outputStoreError(formatter, err)
				}
				logrus.WithFields(logrus.Fields{
					"name":     name,
					"revision": entry.Revision,
					"inserted": inserted,
				}).Info("stored snapshot")

				view, err := newStoredQuery(entry, false)
				if err != nil {
					return outputStoreError(formatter, err)
				}
				result := SaveResult{StoredQuery: view, Inserted: inserted}
				if formatter.Format == "json" {
					return formatter.Success(result)
				}
				verb := "Saved"
				if !inserted {
					verb = "Unchanged"
				}
				fmt.Fprintf(formatter.Writer, "%s %s %s@%d (%s)\n",
					formatter.Check(), verb, entry.Name, entry.Revision, entry.Fingerprint)
				return nil
			})
		},
	}
}

func newStoreLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var revision int64
	var withSnapshot bool

	cmd := &cobra.Command{
		Use:           "load <name>",
		Short:         "Show a stored query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout())
			name := args[0]

			return withStore(rootOpts, formatter, func(st *store.Store) error {
				var entry store.Entry
				var err error
				if revision > 0 {
					entry, err = st.LoadRevision(cmd.Context(), name, revision)
				} else {
					entry, err = st.Load(cmd.Context(), name)
				}
				if err != nil {
					return outputStoreError(formatter, err)
				}

				view, err := newStoredQuery(entry, withSnapshot)
				if err != nil {
					return outputStoreError(formatter, err)
				}
				if formatter.Format == "json" {
					return formatter.Success(view)
				}

				w := formatter.Writer
				fmt.Fprintf(w, "%s@%d\n\n", view.Name, view.Revision)
				fmt.Fprintln(w, view.Query)
				fmt.Fprintln(w)
				fmt.Fprintf(w, "Bind variables: %s\n", view.BindVars)
				fmt.Fprintf(w, "Fingerprint:    %s\n", view.Fingerprint)
				if withSnapshot {
					fmt.Fprintf(w, "Snapshot:       %s\n", view.Snapshot)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "load this revision instead of the latest")
	cmd.Flags().BoolVar(&withSnapshot, "snapshot", false, "include the stored JSON snapshot")

	return cmd
}

func newStoreListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the latest revision of every stored query",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout())
			return withStore(rootOpts, formatter, func(st *store.Store) error {
				entries, err := st.List(cmd.Context())
				if err != nil {
					return outputStoreError(formatter, err)
				}
				return outputEntries(formatter, entries, "No stored queries.")
			})
		},
	}
}

func newStoreHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <name>",
		Short:         "List every revision of a stored query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout())
			return withStore(rootOpts, formatter, func(st *store.Store) error {
				entries, err := st.History(cmd.Context(), args[0])
				if err != nil {
					return outputStoreError(formatter, err)
				}
				return outputEntries(formatter, entries, "")
			})
		},
	}
}

func newStoreFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "find <fingerprint>",
		Short:         "Find stored queries that compile to a fingerprint",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout())
			return withStore(rootOpts, formatter, func(st *store.Store) error {
				entries, err := st.FindByFingerprint(cmd.Context(), args[0])
				if err != nil {
					return outputStoreError(formatter, err)
				}
				return outputEntries(formatter, entries, "No matching queries.")
			})
		},
	}
}

func newStoreRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <name>",
		Short:         "Delete every revision of a stored query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout())
			return withStore(rootOpts, formatter, func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return outputStoreError(formatter, err)
				}
				if formatter.Format == "json" {
					return formatter.Success(map[string]string{"deleted": args[0]})
				}
				fmt.Fprintf(formatter.Writer, "%s Deleted %s\n", formatter.Check(), args[0])
				return nil
			})
		},
	}
}

func newStoredQuery(e store.Entry, withSnapshot bool) (StoredQuery, error) {
	vars, err := bindVarsJSON(e.BindVars)
	if err != nil {
		return StoredQuery{}, err
	}
	view := StoredQuery{
		Name:         e.Name,
		Revision:     e.Revision,
		Query:        e.Query,
		BindVars:     vars,
		Fingerprint:  e.Fingerprint,
		SnapshotHash: e.SnapshotHash,
		Raw:          e.Raw,
	}
	if withSnapshot {
		view.Snapshot = e.Snapshot
	}
	return view, nil
}

// outputEntries prints a list of revisions as a table or JSON array.
func outputEntries(formatter *OutputFormatter, entries []store.Entry, empty string) error {
	views := make([]StoredQuery, 0, len(entries))
	for _, e := range entries {
		view, err := newStoredQuery(e, false)
		if err != nil {
			return outputStoreError(formatter, err)
		}
		views = append(views, view)
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}
	if len(views) == 0 {
		fmt.Fprintln(formatter.Writer, empty)
		return nil
	}
	for _, v := range views {
		fp := v.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		fmt.Fprintf(formatter.Writer, "%-24s %4s  %s\n", v.Name, "@"+strconv.FormatInt(v.Revision, 10), fp)
	}
	return nil
}

// outputStoreError reports a store failure. A missing name is a failure
// (exit 1); anything else is a command error.
func outputStoreError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeStoreNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, ErrCodeStoreNotFound, err)
	}
	_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
}
