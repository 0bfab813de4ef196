// Package queryaql compiles queryir queries to parameterized AQL.
//
// Compilation is a pure function of the query. Clauses are emitted in a
// fixed order regardless of the order they were added in, and every
// literal is bound as a bind variable: the only text taken from the AST
// verbatim is names that passed validation (variables, reference paths,
// collections, functions) and caller-supplied @parameters.
package queryaql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryir"
)

// Bind variable namespaces. Each has its own counter for the whole query,
// subqueries included.
const (
	NSValue        = "value"
	NSArray        = "array"
	NSInValues     = "inValues"
	NSLikePattern  = "likePattern"
	NSRegexPattern = "regexPattern"
)

// Compile validates q and compiles it. Nothing is returned unless the
// whole query compiles.
func Compile(q *queryir.Query) (*Result, error) {
	if q == nil {
		return nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	if q.IsRaw() {
		logrus.WithFields(logrus.Fields{"raw": true, "bindVars": len(q.RawBindVars)}).Debug("compiled query")
		return &Result{Query: q.Raw, BindVars: q.RawBindVars}, nil
	}

	c := &compiler{bindVars: make(map[string]any), counters: make(map[string]int)}
	lines, err := c.query(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	logrus.WithFields(logrus.Fields{"lines": len(lines), "bindVars": len(c.bindVars)}).Debug("compiled query")
	return &Result{Query: strings.Join(lines, "\n"), BindVars: c.bindVars}, nil
}

// compiler holds the state threaded through one compilation.
type compiler struct {
	bindVars map[string]any
	counters map[string]int
}

// bind records v under the next name of namespace ns and returns its
// placeholder.
func (c *compiler) bind(ns string, v any) string {
	name := ns + strconv.Itoa(c.counters[ns])
	c.counters[ns]++
	c.bindVars[name] = v
	return "@" + name
}

// query emits the clauses of q in grammar order.
func (c *compiler) query(q *queryir.Query) ([]string, error) {
	var lines []string
	emit := func(clause string, format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		logrus.Tracef("emit %s: %s", clause, line)
		lines = append(lines, line)
	}

	if len(q.WithCollections) > 0 {
		emit("WITH", "WITH %s", strings.Join(q.WithCollections, ", "))
	}

	if src := queryir.EffectiveSource(q); src != nil {
		vars := q.Variable
		if q.MultipleLoopVars != nil {
			vars = strings.Join(q.MultipleLoopVars.Names(), ", ")
		}
		s, err := c.source(src)
		if err != nil {
			return nil, fmt.Errorf("compile source: %w", err)
		}
		emit("FOR", "FOR %s IN %s", vars, s)
	}

	for i, j := range q.Joins {
		s, err := c.source(j.Source)
		if err != nil {
			return nil, fmt.Errorf("compile joins[%d]: %w", i, err)
		}
		emit("FOR", "FOR %s IN %s", j.Variable, s)
	}

	if err := c.lets(q.LetsPreCollect, emit); err != nil {
		return nil, err
	}

	if len(q.Searches) > 0 {
		parts, err := c.exprs(q.Searches)
		if err != nil {
			return nil, fmt.Errorf("compile search: %w", err)
		}
		emit("SEARCH", "SEARCH %s", strings.Join(parts, " AND "))
	}

	if err := c.filters(q.Filters, emit); err != nil {
		return nil, err
	}

	for i, col := range q.Collects {
		if err := c.collect(col, emit); err != nil {
			return nil, fmt.Errorf("compile collects[%d]: %w", i, err)
		}
	}

	for i, t := range q.Traversals {
		s, err := c.source(t.Source)
		if err != nil {
			return nil, fmt.Errorf("compile traversals[%d]: %w", i, err)
		}
		emit("TRAVERSE", "FOR %s IN %s", strings.Join(t.Vars.Names(), ", "), s)
	}

	for _, p := range q.Prunes {
		s, err := c.expr(p)
		if err != nil {
			return nil, fmt.Errorf("compile prune: %w", err)
		}
		emit("PRUNE", "PRUNE %s", s)
	}

	if err := c.lets(q.Lets, emit); err != nil {
		return nil, err
	}
	if err := c.filters(q.FiltersPostCollect, emit); err != nil {
		return nil, err
	}

	if len(q.Sorts) > 0 {
		parts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			f, err := c.expr(s.Field)
			if err != nil {
				return nil, fmt.Errorf("compile sort: %w", err)
			}
			dir := s.Direction
			if dir == "" {
				dir = queryir.SortAsc
			}
			parts[i] = f + " " + dir
		}
		emit("SORT", "SORT %s", strings.Join(parts, ", "))
	}

	for i, w := range q.Windows {
		if err := c.window(w, emit); err != nil {
			return nil, fmt.Errorf("compile windows[%d]: %w", i, err)
		}
	}

	if q.Limit != nil {
		if q.Offset != nil {
			emit("LIMIT", "LIMIT %d, %d", *q.Offset, *q.Limit)
		} else {
			emit("LIMIT", "LIMIT %d", *q.Limit)
		}
	}

	for i, op := range q.Operations {
		line, err := c.operation(op)
		if err != nil {
			return nil, fmt.Errorf("compile operations[%d]: %w", i, err)
		}
		emit(string(op.Type), "%s", line)
	}

	for i, u := range q.Upserts {
		if err := c.upsert(u, emit); err != nil {
			return nil, fmt.Errorf("compile upserts[%d]: %w", i, err)
		}
	}

	for i, u := range q.UpdatesEnhanced {
		if err := c.enhancedUpdate(u, emit); err != nil {
			return nil, fmt.Errorf("compile updatesEnhanced[%d]: %w", i, err)
		}
	}

	if q.ReturnValue != nil {
		r, err := c.expr(q.ReturnValue)
		if err != nil {
			return nil, fmt.Errorf("compile return: %w", err)
		}
		if q.ReturnDistinct {
			emit("RETURN", "RETURN DISTINCT %s", r)
		} else {
			emit("RETURN", "RETURN %s", r)
		}
	}

	return lines, nil
}

type emitFunc func(clause string, format string, args ...any)

func (c *compiler) lets(lets []queryir.Let, emit emitFunc) error {
	for _, l := range lets {
		v, err := c.expr(l.Expression)
		if err != nil {
			return fmt.Errorf("compile let %s: %w", l.Name, err)
		}
		emit("LET", "LET %s = %s", l.Name, v)
	}
	return nil
}

func (c *compiler) filters(filters []queryir.Expr, emit emitFunc) error {
	for _, f := range filters {
		s, err := c.expr(f)
		if err != nil {
			return fmt.Errorf("compile filter: %w", err)
		}
		emit("FILTER", "FILTER %s", s)
	}
	return nil
}

func (c *compiler) collect(col queryir.Collect, emit emitFunc) error {
	vars := make([]string, len(col.Variables))
	for i, a := range col.Variables {
		v, err := c.expr(a.Value)
		if err != nil {
			return err
		}
		vars[i] = a.Key + " = " + v
	}
	if len(vars) > 0 {
		emit("COLLECT", "COLLECT %s", strings.Join(vars, ", "))
	} else {
		emit("COLLECT", "COLLECT")
	}

	if len(col.Aggregates) > 0 {
		aggs, err := c.aggregates(col.Aggregates)
		if err != nil {
			return err
		}
		emit("AGGREGATE", "  AGGREGATE %s", aggs)
	}
	if col.Into != "" {
		emit("INTO", "  INTO %s", col.Into)
	}
	if len(col.Keep) > 0 {
		emit("KEEP", "  KEEP %s", strings.Join(col.Keep, ", "))
	}
	return nil
}

func (c *compiler) aggregates(aggs []queryir.Aggregate) (string, error) {
	parts := make([]string, len(aggs))
	for i, a := range aggs {
		arg := "1"
		if a.Expression != nil {
			s, err := c.expr(a.Expression)
			if err != nil {
				return "", fmt.Errorf("aggregate %s: %w", a.Name, err)
			}
			arg = s
		}
		parts[i] = fmt.Sprintf("%s = %s(%s)", a.Name, a.Function, arg)
	}
	return strings.Join(parts, ", "), nil
}

func (c *compiler) window(w queryir.Window, emit emitFunc) error {
	var bounds []string
	if w.Preceding != nil {
		s, err := c.expr(w.Preceding)
		if err != nil {
			return err
		}
		bounds = append(bounds, "preceding: "+s)
	}
	if w.Following != nil {
		s, err := c.expr(w.Following)
		if err != nil {
			return err
		}
		bounds = append(bounds, "following: "+s)
	}
	spec := "{ " + strings.Join(bounds, ", ") + " }"

	if w.Range != nil {
		r, err := c.expr(w.Range)
		if err != nil {
			return err
		}
		emit("WINDOW", "WINDOW %s WITH %s", r, spec)
	} else {
		emit("WINDOW", "WINDOW %s", spec)
	}

	aggs, err := c.aggregates(w.Aggregates)
	if err != nil {
		return err
	}
	emit("AGGREGATE", "  AGGREGATE %s", aggs)
	return nil
}

func (c *compiler) operation(op queryir.Operation) (string, error) {
	doc, err := c.expr(op.Document)
	if err != nil {
		return "", err
	}

	var line string
	switch op.Type {
	case queryir.OpInsert:
		line = fmt.Sprintf("INSERT %s INTO %s", doc, op.Collection)
	case queryir.OpUpdate, queryir.OpReplace:
		if op.Variable != "" {
			line = fmt.Sprintf("%s %s WITH %s IN %s", op.Type, op.Variable, doc, op.Collection)
		} else {
			line = fmt.Sprintf("%s %s IN %s", op.Type, doc, op.Collection)
		}
	case queryir.OpRemove:
		line = fmt.Sprintf("REMOVE %s IN %s", doc, op.Collection)
	default:
		return "", fmt.Errorf("unsupported operation %q", op.Type)
	}

	if op.Options != nil {
		opts, err := c.expr(op.Options)
		if err != nil {
			return "", fmt.Errorf("options: %w", err)
		}
		line += " OPTIONS " + opts
	}
	return line, nil
}

func (c *compiler) upsert(u queryir.Upsert, emit emitFunc) error {
	search, err := c.expr(u.Search)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	insert, err := c.expr(u.Insert)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	update, err := c.expr(u.Update)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	verb := "UPDATE"
	if u.Replace {
		verb = "REPLACE"
	}
	emit("UPSERT", "UPSERT %s", search)
	emit("UPSERT", "INSERT %s", insert)
	emit("UPSERT", "%s %s IN %s", verb, update, u.Collection)
	return nil
}

func (c *compiler) enhancedUpdate(u queryir.EnhancedUpdate, emit emitFunc) error {
	target := u.Variable
	patch := u.UpdateFields
	if target == "" {
		doc, err := c.expr(u.Document)
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}
		target = doc
	} else if patch == nil {
		patch = u.Document
	}

	if patch != nil {
		with, err := c.expr(patch)
		if err != nil {
			return fmt.Errorf("update fields: %w", err)
		}
		emit("UPDATE", "UPDATE %s WITH %s IN %s", target, with, u.Collection)
	} else {
		emit("UPDATE", "UPDATE %s IN %s", target, u.Collection)
	}

	if u.OldReference != "" {
		emit("LET", "LET %s = OLD", u.OldReference)
	}
	return nil
}

// source renders the part of a FOR after IN.
func (c *compiler) source(src queryir.Source) (string, error) {
	switch s := src.(type) {
	case queryir.CollectionSource:
		return s.Name, nil
	case *queryir.CollectionSource:
		return s.Name, nil
	case queryir.RangeSource:
		return c.rangeSource(s)
	case *queryir.RangeSource:
		return c.rangeSource(*s)
	case queryir.GraphSource:
		return c.graph(s)
	case *queryir.GraphSource:
		return c.graph(*s)
	default:
		return "", fmt.Errorf("unsupported source type: %T", src)
	}
}

func (c *compiler) rangeSource(r queryir.RangeSource) (string, error) {
	start, err := c.expr(r.Start)
	if err != nil {
		return "", err
	}
	end, err := c.expr(r.End)
	if err != nil {
		return "", err
	}
	return start + ".." + end, nil
}

// graph renders "<min>..<max> <DIR> <start> GRAPH "<graph>"[ OPTIONS <doc>]",
// or the edge collection list in place of GRAPH.
func (c *compiler) graph(g queryir.GraphSource) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d..%d %s %s ", g.MinDepth, g.MaxDepth, g.Direction, startVertex(g.StartVertex))
	if g.Graph != "" {
		b.WriteString("GRAPH ")
		b.WriteString(ir.Quote(g.Graph))
	} else {
		b.WriteString(strings.Join(g.EdgeCollections, ", "))
	}
	if g.Options != nil {
		opts, err := c.expr(g.Options)
		if err != nil {
			return "", fmt.Errorf("graph options: %w", err)
		}
		b.WriteString(" OPTIONS ")
		b.WriteString(opts)
	}
	return b.String(), nil
}

// startVertex passes placeholders and bare variable paths through and
// quotes everything else. A value that is already a quoted string is
// decoded and quoted again so that it cannot close the quote early.
func startVertex(s string) string {
	switch {
	case strings.HasPrefix(s, "@"):
		return s
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			return ir.Quote(unquoted)
		}
		return ir.Quote(s)
	case !strings.Contains(s, "/") && queryir.IsRefPath(s):
		return s
	default:
		return ir.Quote(s)
	}
}

func (c *compiler) exprs(es []queryir.Expr) ([]string, error) {
	out := make([]string, len(es))
	for i, e := range es {
		s, err := c.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
