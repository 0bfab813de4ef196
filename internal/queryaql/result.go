package queryaql

import (
	"strings"

	"github.com/roach88/aqlkit/internal/ir"
)

// Result is a compiled query: AQL text plus the values of its bind
// variables. It is the shape ArangoDB's cursor API expects.
type Result struct {
	Query    string         `json:"query"`
	BindVars map[string]any `json:"bindVars"`
}

// Lines returns the query text split into clause lines.
func (r *Result) Lines() []string {
	if r.Query == "" {
		return nil
	}
	return strings.Split(r.Query, "\n")
}

// Fingerprint identifies the compiled query: equal text and equal bind
// values give the same fingerprint regardless of map order.
func (r *Result) Fingerprint() (string, error) {
	return ir.QueryFingerprint(r.Query, r.BindVars)
}
