// Package params finds the named value parameters (@name) a query refers
// to. Collection parameters (@@name) are not value parameters and are
// never reported.
//
// Names are deduplicated and listed in order of first appearance. For an
// AST the walk follows clause emission order, so FromQuery agrees with
// FromText on the compiled text for every caller-supplied parameter.
package params

import (
	"regexp"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryaql"
	"github.com/roach88/aqlkit/internal/queryir"
)

// tokenRe matches @name and @@name not preceded by a name character, so
// "bob@example.com" is not a parameter.
var tokenRe = regexp.MustCompile(`(^|[^A-Za-z0-9_@])(@@?)([A-Za-z0-9_]+)`)

// Extract dispatches on the kind of v: a compiled result, a query, an
// expression, a string, or a generic decoded JSON tree.
func Extract(v any) []string {
	c := newCollector()
	c.any(v)
	return c.names
}

// FromText returns the value parameters mentioned in query text.
func FromText(text string) []string {
	c := newCollector()
	c.text(text)
	return c.names
}

// FromResult returns every value parameter in the compiled text, the
// generated placeholders included.
func FromResult(r *queryaql.Result) []string {
	if r == nil {
		return nil
	}
	return FromText(r.Query)
}

// Missing returns the parameters referenced by r that have no value in
// r.BindVars: the ones a caller must still supply.
func Missing(r *queryaql.Result) []string {
	var out []string
	for _, name := range FromResult(r) {
		if _, ok := r.BindVars[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// FromQuery returns the caller-supplied value parameters of q. Raw
// queries are scanned as text.
func FromQuery(q *queryir.Query) []string {
	c := newCollector()
	c.query(q)
	return c.names
}

type collector struct {
	seen  map[string]bool
	names []string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(name string) {
	if !c.seen[name] {
		c.seen[name] = true
		c.names = append(c.names, name)
	}
}

func (c *collector) text(s string) {
	for _, m := range tokenRe.FindAllStringSubmatch(s, -1) {
		if m[2] == "@" {
			c.add(m[3])
		}
	}
}

func (c *collector) any(v any) {
	switch x := v.(type) {
	case nil:
	case string:
		c.text(x)
	case *queryaql.Result:
		if x != nil {
			c.text(x.Query)
		}
	case queryaql.Result:
		c.text(x.Query)
	case *queryir.Query:
		c.query(x)
	case queryir.Expr:
		c.expr(x)
	case []any:
		for _, el := range x {
			c.any(el)
		}
	case map[string]any:
		c.node(x)
	}
}

// node walks a decoded JSON object. Snapshot nodes are recognized by their
// type tag: literal values are data and are skipped, parameter nodes
// report their name.
func (c *collector) node(m map[string]any) {
	switch m["type"] {
	case "literal":
		return
	case "parameter":
		name, _ := m["name"].(string)
		if coll, _ := m["isCollectionParam"].(bool); !coll && name != "" {
			c.add(name)
		}
		return
	}
	for _, k := range ir.SortedKeys(m) {
		if k == "rawBindVars" {
			continue
		}
		c.any(m[k])
	}
}

func (c *collector) query(q *queryir.Query) {
	if q == nil {
		return
	}
	if q.IsRaw() {
		c.text(q.Raw)
		return
	}

	c.source(queryir.EffectiveSource(q))
	for _, j := range q.Joins {
		c.source(j.Source)
	}
	c.lets(q.LetsPreCollect)
	c.exprs(q.Searches)
	c.exprs(q.Filters)
	for _, col := range q.Collects {
		for _, a := range col.Variables {
			c.expr(a.Value)
		}
		c.aggregates(col.Aggregates)
	}
	for _, t := range q.Traversals {
		c.source(t.Source)
	}
	c.exprs(q.Prunes)
	c.lets(q.Lets)
	c.exprs(q.FiltersPostCollect)
	for _, s := range q.Sorts {
		c.expr(s.Field)
	}
	for _, w := range q.Windows {
		c.expr(w.Range)
		c.expr(w.Preceding)
		c.expr(w.Following)
		c.aggregates(w.Aggregates)
	}
	for _, op := range q.Operations {
		c.expr(op.Document)
		c.expr(op.Options)
	}
	for _, u := range q.Upserts {
		c.expr(u.Search)
		c.expr(u.Insert)
		c.expr(u.Update)
	}
	for _, u := range q.UpdatesEnhanced {
		// With both a variable and update fields the document is unused.
		if u.Variable == "" || u.UpdateFields == nil {
			c.expr(u.Document)
		}
		c.expr(u.UpdateFields)
	}
	c.expr(q.ReturnValue)
}

func (c *collector) source(src queryir.Source) {
	switch s := src.(type) {
	case queryir.RangeSource:
		c.expr(s.Start)
		c.expr(s.End)
	case *queryir.RangeSource:
		c.source(*s)
	case queryir.GraphSource:
		c.text(s.StartVertex)
		c.expr(s.Options)
	case *queryir.GraphSource:
		c.source(*s)
	}
}

func (c *collector) lets(lets []queryir.Let) {
	for _, l := range lets {
		c.expr(l.Expression)
	}
}

func (c *collector) aggregates(aggs []queryir.Aggregate) {
	for _, a := range aggs {
		c.expr(a.Expression)
	}
}

func (c *collector) exprs(es []queryir.Expr) {
	for _, e := range es {
		c.expr(e)
	}
}

func (c *collector) expr(e queryir.Expr) {
	switch n := e.(type) {
	case queryir.Param:
		if !n.Collection {
			c.add(n.Name)
		}
	case queryir.Binary:
		c.expr(n.Left)
		c.expr(n.Right)
	case queryir.Unary:
		c.expr(n.Operand)
	case queryir.Func:
		c.exprs(n.Args)
	case queryir.Ternary:
		c.expr(n.Cond)
		c.expr(n.Then)
		c.expr(n.Else)
	case queryir.Like:
		c.expr(n.Expr)
	case queryir.Regex:
		c.expr(n.Expr)
	case queryir.Quantifier:
		c.expr(n.Expr)
		c.expr(n.Cond)
	case queryir.Unset:
		c.expr(n.Object)
	case queryir.Object:
		for _, f := range n.Fields {
			c.expr(f.Value)
		}
	case queryir.Array:
		c.exprs(n.Elements)
	case queryir.Subquery:
		c.query(n.Query)
	}
}
