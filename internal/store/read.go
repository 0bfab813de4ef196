package store

import (
	"context"
	"fmt"

	"github.com/roach88/aqlkit/internal/queryir"
)

// Entry is one stored revision of a named query snapshot.
type Entry struct {
	Name            string
	Revision        int64
	Snapshot        []byte
	SnapshotHash    string
	Query           string
	BindVars        map[string]any
	Fingerprint     string
	Raw             bool
	SnapshotVersion string
	ToolVersion     string
}

// Restore decodes the stored snapshot back into a query.
func (e Entry) Restore() (*queryir.Query, error) {
	q, err := queryir.FromJSON(e.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore %s@%d: %w", e.Name, e.Revision, err)
	}
	return q, nil
}

const entryColumns = `name, revision, snapshot, snapshot_hash, query, bind_vars, fingerprint, raw, snapshot_version, tool_version`

// Load returns the latest revision stored under name.
// Returns ErrNotFound if the name has no revisions.
func (s *Store) Load(ctx context.Context, name string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM snapshots
		WHERE name = ?
		ORDER BY revision DESC
		LIMIT 1
	`, name)

	e, err := scanEntryRow(row)
	if err != nil {
		return Entry{}, fmt.Errorf("load snapshot %q: %w", name, notFound(err))
	}
	return e, nil
}

// LoadRevision returns a specific revision stored under name.
// Returns ErrNotFound if it does not exist.
func (s *Store) LoadRevision(ctx context.Context, name string, revision int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM snapshots
		WHERE name = ? AND revision = ?
	`, name, revision)

	e, err := scanEntryRow(row)
	if err != nil {
		return Entry{}, fmt.Errorf("load snapshot %q@%d: %w", name, revision, notFound(err))
	}
	return e, nil
}

// List returns the latest revision of every stored name, ordered by name
// COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, "list snapshots", `
		SELECT `+entryColumns+`
		FROM snapshots s
		WHERE revision = (SELECT MAX(revision) FROM snapshots WHERE name = s.name)
		ORDER BY name COLLATE BINARY ASC
	`)
}

// History returns every revision stored under name, oldest first.
// Returns ErrNotFound if the name has no revisions.
func (s *Store) History(ctx context.Context, name string) ([]Entry, error) {
	entries, err := s.queryEntries(ctx, "snapshot history", `
		SELECT `+entryColumns+`
		FROM snapshots
		WHERE name = ?
		ORDER BY revision ASC
	`, name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("snapshot history %q: %w", name, ErrNotFound)
	}
	return entries, nil
}

// FindByFingerprint returns every revision, under any name, whose compiled
// query has the given fingerprint. Ordered by name, then revision.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]Entry, error) {
	return s.queryEntries(ctx, "find by fingerprint", `
		SELECT `+entryColumns+`
		FROM snapshots
		WHERE fingerprint = ?
		ORDER BY name COLLATE BINARY ASC, revision ASC
	`, fingerprint)
}

func (s *Store) queryEntries(ctx context.Context, op, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}

	// Return empty slice instead of nil
	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntryRow(row rowScanner) (Entry, error) {
	var e Entry
	var snapshot, bindVarsJSON string

	err := row.Scan(
		&e.Name,
		&e.Revision,
		&snapshot,
		&e.SnapshotHash,
		&e.Query,
		&bindVarsJSON,
		&e.Fingerprint,
		&e.Raw,
		&e.SnapshotVersion,
		&e.ToolVersion,
	)
	if err != nil {
		return Entry{}, err
	}

	e.Snapshot = []byte(snapshot)
	e.BindVars, err = unmarshalBindVars(bindVarsJSON)
	if err != nil {
		return Entry{}, err
	}

	return e, nil
}
