package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/aqlkit/internal/queryir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestQuery returns FOR u IN users FILTER u.age >= <minAge> RETURN u.
func createTestQuery(minAge int64) *queryir.Query {
	return &queryir.Query{
		Collection: "users",
		Variable:   "u",
		Source:     queryir.CollectionSource{Name: "users"},
		Filters: []queryir.Expr{
			queryir.Binary{Op: queryir.OpGte, Left: queryir.Ref{Path: "u.age"}, Right: queryir.Literal{Value: minAge}},
		},
		ReturnValue: queryir.Ref{Path: "u"},
	}
}
