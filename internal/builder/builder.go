// Package builder assembles queryir.Query values through a fluent API.
//
// A Builder is an owned accumulator: every method mutates the receiver and
// returns it, so one chain builds one query. It is not safe for concurrent
// use. Mistakes that can only be detected once the chain is complete
// (a FOR without a source, an operation without Into) are reported by
// Build and Compile, never mid-chain.
//
//	res, err := builder.New().
//		For("u").In("users").
//		Filter(expr.Ref("u.age").Gte(18)).
//		Return("u").
//		Compile()
package builder

import (
	"errors"
	"fmt"

	"github.com/roach88/aqlkit/internal/expr"
	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryaql"
	"github.com/roach88/aqlkit/internal/queryir"
)

// Builder accumulates the clauses of one query.
type Builder struct {
	q        *queryir.Query
	errs     []error
	declared bool
	lastOp   int
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{q: &queryir.Query{}, lastOp: -1}
}

// From wraps an existing query so more clauses can be added to it.
func From(q *queryir.Query) *Builder {
	if q == nil {
		return New()
	}
	return &Builder{
		q:        q,
		declared: q.Variable != "" || q.MultipleLoopVars != nil,
		lastOp:   len(q.Operations) - 1,
	}
}

// Raw builds a passthrough query. The text and bind variables are returned
// unchanged by Compile.
func Raw(text string, bindVars map[string]any) *Builder {
	return &Builder{q: &queryir.Query{Raw: text, RawBindVars: bindVars}, lastOp: -1}
}

// FromJSON restores a builder from a ToJSON snapshot. The snapshot is not
// validated until Build or Compile.
func FromJSON(data []byte) (*Builder, error) {
	q, err := queryir.FromJSON(data)
	if err != nil {
		return nil, err
	}
	return From(q), nil
}

// AST returns the accumulated query. It is shared with the builder, so
// later chain calls are visible through it.
func (b *Builder) AST() *queryir.Query {
	return b.q
}

// ToJSON snapshots the accumulated query.
func (b *Builder) ToJSON() ([]byte, error) {
	return queryir.ToJSON(b.q)
}

// Build validates the query and returns it. All problems found are joined
// into the returned error.
func (b *Builder) Build() (*queryir.Query, error) {
	errs := append([]error(nil), b.errs...)
	if err := queryir.Validate(b.q).Err(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build query: %w", errors.Join(errs...))
	}
	return b.q, nil
}

// Compile builds the query and compiles it to AQL.
func (b *Builder) Compile() (*queryaql.Result, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build query: %w", errors.Join(b.errs...))
	}
	return queryaql.Compile(b.q)
}

func (b *Builder) misuse(field, format string, args ...any) {
	b.errs = append(b.errs, queryir.NewConfigurationError(queryir.ErrCodeBuilderMisuse, field, format, args...))
}

// For declares a loop variable. The first For is the main loop; each later
// one is a nested FOR (a join) with its own source.
func (b *Builder) For(variable string) *ForClause {
	if !b.declared {
		b.declared = true
		b.q.Variable = variable
		return &ForClause{b: b, join: -1}
	}
	b.q.Joins = append(b.q.Joins, queryir.Join{Variable: variable})
	return &ForClause{b: b, join: len(b.q.Joins) - 1}
}

// ForClause picks the source of a loop variable.
type ForClause struct {
	b    *Builder
	join int
}

func (f *ForClause) set(src queryir.Source) *Builder {
	if f.join < 0 {
		f.b.q.Source = src
	} else {
		f.b.q.Joins[f.join].Source = src
	}
	return f.b
}

// In iterates a collection. "@@name" binds the collection by parameter.
func (f *ForClause) In(collection string) *Builder {
	if f.join < 0 {
		f.b.q.Collection = collection
	}
	return f.set(queryir.CollectionSource{Name: collection})
}

// InRange iterates start..end.
func (f *ForClause) InRange(start, end any) *Builder {
	return f.set(queryir.RangeSource{Start: expr.Value(start).Node(), End: expr.Value(end).Node()})
}

// InGraph iterates a graph traversal with a single vertex variable.
func (f *ForClause) InGraph(opts GraphOptions) *Builder {
	return f.set(opts.source())
}

// GraphOptions configures a traversal.
type GraphOptions struct {
	// Graph names a named graph. Set Graph or EdgeCollections, not both.
	Graph           string
	EdgeCollections []string

	// Direction is OUTBOUND (the default), INBOUND or ANY.
	Direction string

	// StartVertex is a document id ("users/123"), a variable or a @param.
	StartVertex string

	// MinDepth defaults to 1 and MaxDepth to MinDepth.
	MinDepth *int
	MaxDepth *int

	// Options is passed through as the OPTIONS document.
	Options map[string]any
}

// Depth returns a pointer for GraphOptions.MinDepth and MaxDepth.
func Depth(n int) *int {
	return &n
}

func (o GraphOptions) source() queryir.GraphSource {
	src := queryir.GraphSource{
		Graph:           o.Graph,
		EdgeCollections: o.EdgeCollections,
		Direction:       o.Direction,
		StartVertex:     o.StartVertex,
		MinDepth:        1,
	}
	if src.Direction == "" {
		src.Direction = queryir.DirectionOutbound
	}
	if o.MinDepth != nil {
		src.MinDepth = *o.MinDepth
	}
	src.MaxDepth = src.MinDepth
	if o.MaxDepth != nil {
		src.MaxDepth = *o.MaxDepth
	}
	if o.Options != nil {
		src.Options = expr.Doc(o.Options).Node()
	}
	return src
}

// ForMultiple declares a vertex, edge and path loop over a graph. Edge and
// path may be empty. The first call configures the main loop; later calls
// add traversals nested inside it.
func (b *Builder) ForMultiple(vertex, edge, path string) *GraphClause {
	vars := queryir.LoopVars{Vertex: vertex, Edge: edge, Path: path}
	if !b.declared {
		b.declared = true
		b.q.MultipleLoopVars = &vars
		return &GraphClause{b: b, traversal: -1}
	}
	b.q.Traversals = append(b.q.Traversals, queryir.Traversal{Vars: vars})
	return &GraphClause{b: b, traversal: len(b.q.Traversals) - 1}
}

// GraphClause picks the graph of a multi-variable loop.
type GraphClause struct {
	b         *Builder
	traversal int
}

// InGraph sets the traversal.
func (g *GraphClause) InGraph(opts GraphOptions) *Builder {
	if g.traversal < 0 {
		g.b.q.Source = opts.source()
	} else {
		g.b.q.Traversals[g.traversal].Source = opts.source()
	}
	return g.b
}

// Traverse adds a nested multi-variable traversal.
func (b *Builder) Traverse(vars queryir.LoopVars, opts GraphOptions) *Builder {
	b.q.Traversals = append(b.q.Traversals, queryir.Traversal{Vars: vars, Source: opts.source()})
	return b
}

func (b *Builder) collected() bool {
	return len(b.q.Collects) > 0
}

// Filter adds a FILTER. Once a COLLECT has been added, filters apply to
// the groups and are emitted after it.
func (b *Builder) Filter(cond any) *Builder {
	e := expr.Value(cond).Node()
	if b.collected() {
		b.q.FiltersPostCollect = append(b.q.FiltersPostCollect, e)
	} else {
		b.q.Filters = append(b.q.Filters, e)
	}
	return b
}

// Let binds a variable. Like Filter, it moves after COLLECT once one has
// been added.
func (b *Builder) Let(name string, v any) *Builder {
	l := queryir.Let{Name: name, Expression: expr.Value(v).Node()}
	if b.collected() {
		b.q.Lets = append(b.q.Lets, l)
	} else {
		b.q.LetsPreCollect = append(b.q.LetsPreCollect, l)
	}
	return b
}

// Search adds a SEARCH condition for views.
func (b *Builder) Search(cond any) *Builder {
	b.q.Searches = append(b.q.Searches, expr.Value(cond).Node())
	return b
}

// Prune adds a PRUNE condition for traversals.
func (b *Builder) Prune(cond any) *Builder {
	b.q.Prunes = append(b.q.Prunes, expr.Value(cond).Node())
	return b
}

// With declares collections to read-lock (WITH a, b).
func (b *Builder) With(collections ...string) *Builder {
	b.q.WithCollections = append(b.q.WithCollections, collections...)
	return b
}

// Sort adds a SORT key. An empty direction sorts ascending.
func (b *Builder) Sort(field any, direction string) *Builder {
	b.q.Sorts = append(b.q.Sorts, queryir.Sort{Field: expr.RefOrValue(field).Node(), Direction: direction})
	return b
}

// Limit sets LIMIT.
func (b *Builder) Limit(n int) *Builder {
	v := int64(n)
	b.q.Limit = &v
	return b
}

// Offset sets the LIMIT offset. It requires Limit.
func (b *Builder) Offset(n int) *Builder {
	v := int64(n)
	b.q.Offset = &v
	return b
}

// Return sets RETURN. A string is a variable path; a map is a document.
func (b *Builder) Return(v any) *Builder {
	b.q.ReturnValue = docOrRef(v).Node()
	b.q.ReturnDistinct = false
	return b
}

// ReturnDistinct sets RETURN DISTINCT.
func (b *Builder) ReturnDistinct(v any) *Builder {
	b.q.ReturnValue = docOrRef(v).Node()
	b.q.ReturnDistinct = true
	return b
}

func docOrRef(v any) expr.Expr {
	if _, ok := v.(string); ok {
		return expr.RefOrValue(v)
	}
	return expr.Doc(v)
}

// Collect adds a COLLECT clause grouping by vars (name to path or
// expression). Filters and lets added afterwards apply to the groups.
func (b *Builder) Collect(vars map[string]any) *CollectBuilder {
	return b.collect(vars, nil)
}

// CollectKeep is Collect with a KEEP list. It needs Into.
func (b *Builder) CollectKeep(vars map[string]any, keep ...string) *CollectBuilder {
	return b.collect(vars, keep)
}

func (b *Builder) collect(vars map[string]any, keep []string) *CollectBuilder {
	c := queryir.Collect{Keep: keep}
	if len(vars) > 0 {
		for _, k := range ir.SortedKeys(vars) {
			c.Variables = append(c.Variables, queryir.Assignment{Key: k, Value: expr.RefOrValue(vars[k]).Node()})
		}
	}
	b.q.Collects = append(b.q.Collects, c)
	return &CollectBuilder{b: b, idx: len(b.q.Collects) - 1}
}

// CollectBuilder adds aggregates to the most recent COLLECT.
type CollectBuilder struct {
	b   *Builder
	idx int
}

func (c *CollectBuilder) add(name, fn string, v any) *CollectBuilder {
	col := &c.b.q.Collects[c.idx]
	col.Aggregates = append(col.Aggregates, aggregate(name, fn, v))
	return c
}

func aggregate(name, fn string, v any) queryir.Aggregate {
	a := queryir.Aggregate{Name: name, Function: fn}
	if v != nil {
		a.Expression = expr.RefOrValue(v).Node()
	}
	return a
}

// Count adds name = COUNT(1).
func (c *CollectBuilder) Count(name string) *CollectBuilder {
	return c.add(name, queryir.AggCount, nil)
}

// Sum adds name = SUM(v).
func (c *CollectBuilder) Sum(name string, v any) *CollectBuilder {
	return c.add(name, queryir.AggSum, v)
}

// Average adds name = AVERAGE(v).
func (c *CollectBuilder) Average(name string, v any) *CollectBuilder {
	return c.add(name, queryir.AggAverage, v)
}

// Min adds name = MIN(v).
func (c *CollectBuilder) Min(name string, v any) *CollectBuilder {
	return c.add(name, queryir.AggMin, v)
}

// Max adds name = MAX(v).
func (c *CollectBuilder) Max(name string, v any) *CollectBuilder {
	return c.add(name, queryir.AggMax, v)
}

// Length adds name = LENGTH(v).
func (c *CollectBuilder) Length(name string, v any) *CollectBuilder {
	return c.add(name, queryir.AggLength, v)
}

// Unique adds name = UNIQUE(v).
func (c *CollectBuilder) Unique(name string, v any) *CollectBuilder {
	return c.add(name, queryir.AggUnique, v)
}

// Build finishes the COLLECT without INTO.
func (c *CollectBuilder) Build() *Builder {
	return c.b
}

// Into captures each group's members under name.
func (c *CollectBuilder) Into(name string) *Builder {
	c.b.q.Collects[c.idx].Into = name
	return c.b
}

// WindowSpec bounds a WINDOW. Range, when set, makes it a range-based
// window over that expression.
type WindowSpec struct {
	Range     any
	Preceding any
	Following any
}

// Window adds a WINDOW clause.
func (b *Builder) Window(spec WindowSpec) *WindowBuilder {
	w := queryir.Window{}
	if spec.Range != nil {
		w.Range = expr.RefOrValue(spec.Range).Node()
	}
	if spec.Preceding != nil {
		w.Preceding = expr.Value(spec.Preceding).Node()
	}
	if spec.Following != nil {
		w.Following = expr.Value(spec.Following).Node()
	}
	b.q.Windows = append(b.q.Windows, w)
	return &WindowBuilder{b: b, idx: len(b.q.Windows) - 1}
}

// WindowBuilder adds aggregates to the most recent WINDOW.
type WindowBuilder struct {
	b   *Builder
	idx int
}

func (w *WindowBuilder) add(name, fn string, v any) *WindowBuilder {
	win := &w.b.q.Windows[w.idx]
	win.Aggregates = append(win.Aggregates, aggregate(name, fn, v))
	return w
}

func (w *WindowBuilder) Count(name string) *WindowBuilder          { return w.add(name, queryir.AggCount, nil) }
func (w *WindowBuilder) Sum(name string, v any) *WindowBuilder     { return w.add(name, queryir.AggSum, v) }
func (w *WindowBuilder) Average(name string, v any) *WindowBuilder { return w.add(name, queryir.AggAverage, v) }
func (w *WindowBuilder) Min(name string, v any) *WindowBuilder     { return w.add(name, queryir.AggMin, v) }
func (w *WindowBuilder) Max(name string, v any) *WindowBuilder     { return w.add(name, queryir.AggMax, v) }
func (w *WindowBuilder) Length(name string, v any) *WindowBuilder  { return w.add(name, queryir.AggLength, v) }
func (w *WindowBuilder) Unique(name string, v any) *WindowBuilder  { return w.add(name, queryir.AggUnique, v) }

// Build finishes the WINDOW.
func (w *WindowBuilder) Build() *Builder {
	return w.b
}
