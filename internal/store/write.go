package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryaql"
	"github.com/roach88/aqlkit/internal/queryir"
)

// Save stores q under name. The query is compiled first, so only valid
// queries are stored.
//
// Uses ON CONFLICT(name, snapshot_hash) DO NOTHING for idempotency: saving a
// snapshot identical to an existing revision returns that revision with
// inserted == false. A changed snapshot gets the next revision number.
func (s *Store) Save(ctx context.Context, name string, q *queryir.Query) (Entry, bool, error) {
	if name == "" {
		return Entry{}, false, fmt.Errorf("save snapshot: empty name")
	}

	res, err := queryaql.Compile(q)
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	snapshot, err := queryir.ToJSON(q)
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	hash, err := ir.SnapshotHash(snapshot)
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	fingerprint, err := res.Fingerprint()
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	bindVarsJSON, err := marshalBindVars(res.BindVars)
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(revision), 0) + 1 FROM snapshots WHERE name = ?
	`, name).Scan(&next); err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: next revision: %w", name, err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(name, revision, snapshot, snapshot_hash, query, bind_vars, fingerprint, raw, snapshot_version, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, snapshot_hash) DO NOTHING
	`,
		name,
		next,
		string(snapshot),
		hash,
		res.Query,
		bindVarsJSON,
		fingerprint,
		q.IsRaw(),
		ir.SnapshotVersion,
		ir.ToolVersion,
	)
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	entry, err := scanEntryRow(tx.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM snapshots
		WHERE name = ? AND snapshot_hash = ?
	`, name, hash))
	if err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("save snapshot %q: commit: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"name":     name,
		"revision": entry.Revision,
		"inserted": affected > 0,
	}).Debug("saved snapshot")

	return entry, affected > 0, nil
}

// Delete removes every revision stored under name.
// Returns ErrNotFound if the name has no revisions.
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete snapshot %q: %w", name, ErrNotFound)
	}
	logrus.WithFields(logrus.Fields{"name": name, "revisions": n}).Debug("deleted snapshot")
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
