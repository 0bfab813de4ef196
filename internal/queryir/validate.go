package queryir

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/aqlkit/internal/ir"
)

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	refPathRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*|\[(\d+|\*)\])*$`)
	collectionRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*|@@[A-Za-z0-9_]+)$`)
	paramNameRe  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	funcNameRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(::[A-Za-z_][A-Za-z0-9_]*)*$`)
)

var binaryOps = map[string]bool{
	OpEq: true, OpNeq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
	OpAnd: true, OpOr: true,
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpIn: true, OpNotIn: true,
}

var aggregateFuncs = map[string]bool{
	AggCount: true, AggSum: true, AggAverage: true, AggMin: true, AggMax: true,
	AggLength: true, AggUnique: true,
}

// IsIdentifier reports whether s is a plain variable name.
func IsIdentifier(s string) bool { return identifierRe.MatchString(s) }

// IsRefPath reports whether s is a variable followed by attribute and index
// accessors, such as "u.tags[0]" or "u.friends[*].name".
func IsRefPath(s string) bool { return refPathRe.MatchString(s) }

// IsCollectionName reports whether s can be emitted as a collection name.
func IsCollectionName(s string) bool { return collectionRe.MatchString(s) }

// IsParamName reports whether s is a valid bind parameter name (without @).
func IsParamName(s string) bool { return paramNameRe.MatchString(s) }

// ValidationResult lists every configuration problem found in a query.
type ValidationResult struct {
	Errors []*ConfigurationError
}

// Valid reports whether no problems were found.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins the problems into one error, or returns nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Validate checks that a query can be compiled.
//
// Rules:
//  1. A declared variable needs a source and a source needs a variable
//  2. Every data-modification operation needs a collection
//  3. LIMIT and OFFSET are non-negative and OFFSET needs LIMIT
//  4. Names emitted verbatim (variables, paths, collections, functions)
//     match a safe identifier grammar
//  5. Literals hold canonical values only
//
// Validate is a pure function with no side effects. It descends into
// subqueries.
func Validate(q *Query) ValidationResult {
	v := &validator{}
	v.validateQuery(q, "")
	return ValidationResult{Errors: v.errs}
}

// validator accumulates errors during traversal.
type validator struct {
	errs []*ConfigurationError
}

func (v *validator) add(code ConfigErrorCode, field, format string, args ...any) {
	v.errs = append(v.errs, NewConfigurationError(code, field, format, args...))
}

func at(prefix, format string, args ...any) string {
	return prefix + fmt.Sprintf(format, args...)
}

func (v *validator) validateQuery(q *Query, p string) {
	if q == nil {
		v.add(ErrCodeUnsupportedNode, strings.TrimSuffix(p, "."), "nil query")
		return
	}
	if q.IsRaw() {
		if _, err := ir.Normalize(q.RawBindVars); err != nil {
			v.add(ErrCodeInvalidValue, p+"rawBindVars", "%v", err)
		}
		return
	}

	src := EffectiveSource(q)
	hasVar := q.Variable != "" || q.MultipleLoopVars != nil

	if src == nil && q.ReturnValue == nil && len(q.Operations) == 0 &&
		len(q.Upserts) == 0 && len(q.UpdatesEnhanced) == 0 && !hasVar {
		v.add(ErrCodeEmptyQuery, p, "query has no FOR, data-modification or RETURN clause")
		return
	}

	if q.MultipleLoopVars != nil {
		v.validateLoopVars(*q.MultipleLoopVars, p+"multipleLoopVars")
	} else if q.Variable != "" && !IsIdentifier(q.Variable) {
		v.add(ErrCodeInvalidIdentifier, p+"variable", "invalid variable name %q", q.Variable)
	}
	switch {
	case hasVar && src == nil:
		v.add(ErrCodeMissingSource, p+"source", "variable %q has no source; call In, InRange or InGraph", forVariable(q))
	case !hasVar && src != nil:
		v.add(ErrCodeMissingVariable, p+"variable", "source has no loop variable")
	}
	if src != nil {
		v.validateSource(src, p+"source")
	}

	for i, j := range q.Joins {
		f := at(p, "joins[%d]", i)
		if !IsIdentifier(j.Variable) {
			v.add(ErrCodeInvalidIdentifier, f+".variable", "invalid variable name %q", j.Variable)
		}
		if j.Source == nil {
			v.add(ErrCodeMissingSource, f+".source", "variable %q has no source", j.Variable)
			continue
		}
		v.validateSource(j.Source, f+".source")
	}

	v.validateLets(q.LetsPreCollect, at(p, "letsPreCollect"))
	v.validateExprs(q.Searches, at(p, "searches"))
	v.validateExprs(q.Filters, at(p, "filters"))

	for i, c := range q.Collects {
		v.validateCollect(c, at(p, "collects[%d]", i))
	}

	for i, t := range q.Traversals {
		f := at(p, "traversals[%d]", i)
		v.validateLoopVars(t.Vars, f+".vars")
		switch t.Source.(type) {
		case GraphSource, *GraphSource:
			v.validateSource(t.Source, f+".source")
		case nil:
			v.add(ErrCodeMissingSource, f+".source", "traversal has no graph source")
		default:
			v.add(ErrCodeInvalidValue, f+".source", "traversal source must be a graph, got %T", t.Source)
		}
	}

	v.validateExprs(q.Prunes, at(p, "prunes"))
	v.validateLets(q.Lets, at(p, "lets"))
	v.validateExprs(q.FiltersPostCollect, at(p, "filtersPostCollect"))

	for i, s := range q.Sorts {
		f := at(p, "sorts[%d]", i)
		v.validateExpr(s.Field, f+".field")
		if s.Direction != "" && s.Direction != SortAsc && s.Direction != SortDesc {
			v.add(ErrCodeInvalidDirection, f+".direction", "sort direction must be ASC or DESC, got %q", s.Direction)
		}
	}

	for i, w := range q.Windows {
		v.validateWindow(w, at(p, "windows[%d]", i))
	}

	if q.Limit != nil && *q.Limit < 0 {
		v.add(ErrCodeNegativeLimit, p+"limit", "limit must be non-negative, got %d", *q.Limit)
	}
	if q.Offset != nil {
		if *q.Offset < 0 {
			v.add(ErrCodeNegativeOffset, p+"offset", "offset must be non-negative, got %d", *q.Offset)
		}
		if q.Limit == nil {
			v.add(ErrCodeOffsetWithoutLimit, p+"offset", "offset requires a limit")
		}
	}

	for i, op := range q.Operations {
		v.validateOperation(op, at(p, "operations[%d]", i))
	}

	for i, u := range q.Upserts {
		f := at(p, "upserts[%d]", i)
		v.validateExpr(u.Search, f+".searchDoc")
		v.validateExpr(u.Insert, f+".insertDoc")
		v.validateExpr(u.Update, f+".updateDoc")
		v.validateCollectionRef(u.Collection, f+".collection")
	}

	for i, u := range q.UpdatesEnhanced {
		f := at(p, "updatesEnhanced[%d]", i)
		switch {
		case u.Variable != "":
			if !IsRefPath(u.Variable) {
				v.add(ErrCodeInvalidIdentifier, f+".variable", "invalid variable %q", u.Variable)
			}
			if u.Document != nil {
				v.validateExpr(u.Document, f+".document")
			}
		case u.Document != nil:
			v.validateExpr(u.Document, f+".document")
		default:
			v.add(ErrCodeInvalidValue, f+".document", "update needs a document or a variable")
		}
		if u.UpdateFields != nil {
			v.validateExpr(u.UpdateFields, f+".updateFields")
		}
		v.validateCollectionRef(u.Collection, f+".collection")
		if u.OldReference != "" && !IsIdentifier(u.OldReference) {
			v.add(ErrCodeInvalidIdentifier, f+".oldReference", "invalid variable name %q", u.OldReference)
		}
	}

	for i, c := range q.WithCollections {
		if !IsCollectionName(c) {
			v.add(ErrCodeInvalidIdentifier, at(p, "withCollections[%d]", i), "invalid collection name %q", c)
		}
	}

	if q.ReturnValue != nil {
		v.validateExpr(q.ReturnValue, p+"returnValue")
	}
}

func forVariable(q *Query) string {
	if q.MultipleLoopVars != nil {
		return q.MultipleLoopVars.Vertex
	}
	return q.Variable
}

// EffectiveSource returns q.Source, falling back to a collection source
// built from q.Collection.
func EffectiveSource(q *Query) Source {
	if q.Source != nil {
		return q.Source
	}
	if q.Collection != "" {
		return CollectionSource{Name: q.Collection}
	}
	return nil
}

func (v *validator) validateLoopVars(lv LoopVars, f string) {
	if !IsIdentifier(lv.Vertex) {
		v.add(ErrCodeInvalidIdentifier, f+".vertex", "invalid variable name %q", lv.Vertex)
	}
	if lv.Edge != "" && !IsIdentifier(lv.Edge) {
		v.add(ErrCodeInvalidIdentifier, f+".edge", "invalid variable name %q", lv.Edge)
	}
	if lv.Path != "" {
		if !IsIdentifier(lv.Path) {
			v.add(ErrCodeInvalidIdentifier, f+".path", "invalid variable name %q", lv.Path)
		}
		if lv.Edge == "" {
			v.add(ErrCodeInvalidValue, f+".path", "path variable requires an edge variable")
		}
	}
}

func (v *validator) validateSource(src Source, f string) {
	switch s := src.(type) {
	case CollectionSource:
		v.validateCollectionName(s.Name, f)
	case *CollectionSource:
		v.validateCollectionName(s.Name, f)
	case RangeSource:
		v.validateExpr(s.Start, f+".start")
		v.validateExpr(s.End, f+".end")
	case *RangeSource:
		v.validateSource(*s, f)
	case GraphSource:
		v.validateGraph(s, f)
	case *GraphSource:
		v.validateGraph(*s, f)
	default:
		v.add(ErrCodeUnsupportedNode, f, "unknown source type %T", src)
	}
}

func (v *validator) validateGraph(g GraphSource, f string) {
	switch {
	case g.Graph == "" && len(g.EdgeCollections) == 0:
		v.add(ErrCodeMissingSource, f+".graph", "traversal needs a graph name or edge collections")
	case g.Graph != "" && len(g.EdgeCollections) > 0:
		v.add(ErrCodeInvalidValue, f+".graph", "traversal takes a graph name or edge collections, not both")
	}
	for i, c := range g.EdgeCollections {
		v.validateCollectionName(c, fmt.Sprintf("%s.edgeCollections[%d]", f, i))
	}
	switch g.Direction {
	case DirectionOutbound, DirectionInbound, DirectionAny:
	default:
		v.add(ErrCodeInvalidDirection, f+".direction", "direction must be OUTBOUND, INBOUND or ANY, got %q", g.Direction)
	}
	if g.StartVertex == "" {
		v.add(ErrCodeInvalidValue, f+".startVertex", "traversal needs a start vertex")
	} else if g.StartVertex[0] == '@' && !IsParamName(trimParam(g.StartVertex)) {
		v.add(ErrCodeInvalidIdentifier, f+".startVertex", "invalid parameter %q", g.StartVertex)
	}
	if g.MinDepth < 0 {
		v.add(ErrCodeInvalidValue, f+".minDepth", "minDepth must be non-negative, got %d", g.MinDepth)
	}
	if g.MaxDepth < g.MinDepth {
		v.add(ErrCodeInvalidValue, f+".maxDepth", "maxDepth %d is below minDepth %d", g.MaxDepth, g.MinDepth)
	}
	if g.Options != nil {
		v.validateExpr(g.Options, f+".options")
	}
}

func trimParam(s string) string {
	for len(s) > 0 && s[0] == '@' {
		s = s[1:]
	}
	return s
}

func (v *validator) validateCollectionName(name, f string) {
	if name == "" {
		v.add(ErrCodeMissingSource, f, "empty collection name")
		return
	}
	if !IsCollectionName(name) {
		v.add(ErrCodeInvalidIdentifier, f, "invalid collection name %q", name)
	}
}

// validateCollectionRef checks the target collection of a write.
func (v *validator) validateCollectionRef(name, f string) {
	if name == "" {
		v.add(ErrCodeMissingCollection, f, "no target collection; call Into")
		return
	}
	if !IsCollectionName(name) {
		v.add(ErrCodeInvalidIdentifier, f, "invalid collection name %q", name)
	}
}

func (v *validator) validateLets(lets []Let, f string) {
	for i, l := range lets {
		lf := fmt.Sprintf("%s[%d]", f, i)
		if !IsIdentifier(l.Name) {
			v.add(ErrCodeInvalidIdentifier, lf+".name", "invalid variable name %q", l.Name)
		}
		v.validateExpr(l.Expression, lf+".expression")
	}
}

func (v *validator) validateExprs(exprs []Expr, f string) {
	for i, e := range exprs {
		v.validateExpr(e, fmt.Sprintf("%s[%d]", f, i))
	}
}

func (v *validator) validateCollect(c Collect, f string) {
	for i, a := range c.Variables {
		af := fmt.Sprintf("%s.variables[%d]", f, i)
		if !IsIdentifier(a.Key) {
			v.add(ErrCodeInvalidIdentifier, af+".key", "invalid variable name %q", a.Key)
		}
		v.validateExpr(a.Value, af+".value")
	}
	v.validateAggregates(c.Aggregates, f+".aggregate")
	if c.Into != "" && !IsIdentifier(c.Into) {
		v.add(ErrCodeInvalidIdentifier, f+".into", "invalid variable name %q", c.Into)
	}
	if len(c.Keep) > 0 && c.Into == "" {
		v.add(ErrCodeKeepWithoutInto, f+".keep", "KEEP requires INTO")
	}
	for i, k := range c.Keep {
		if !IsIdentifier(k) {
			v.add(ErrCodeInvalidIdentifier, fmt.Sprintf("%s.keep[%d]", f, i), "invalid variable name %q", k)
		}
	}
}

func (v *validator) validateAggregates(aggs []Aggregate, f string) {
	for i, a := range aggs {
		af := fmt.Sprintf("%s[%d]", f, i)
		if !IsIdentifier(a.Name) {
			v.add(ErrCodeInvalidIdentifier, af+".name", "invalid variable name %q", a.Name)
		}
		if !aggregateFuncs[a.Function] {
			v.add(ErrCodeInvalidOperator, af+".function", "unknown aggregate function %q", a.Function)
		}
		if a.Expression != nil {
			v.validateExpr(a.Expression, af+".expression")
		}
	}
}

func (v *validator) validateWindow(w Window, f string) {
	if w.Preceding == nil && w.Following == nil {
		v.add(ErrCodeInvalidValue, f, "window needs preceding or following")
	}
	if w.Range != nil {
		v.validateExpr(w.Range, f+".range")
	}
	if w.Preceding != nil {
		v.validateExpr(w.Preceding, f+".preceding")
	}
	if w.Following != nil {
		v.validateExpr(w.Following, f+".following")
	}
	if len(w.Aggregates) == 0 {
		v.add(ErrCodeInvalidValue, f+".aggregate", "window needs at least one aggregate")
	}
	v.validateAggregates(w.Aggregates, f+".aggregate")
}

func (v *validator) validateOperation(op Operation, f string) {
	switch op.Type {
	case OpInsert, OpRemove:
		if op.Variable != "" {
			v.add(ErrCodeInvalidValue, f+".variable", "%s does not take a key variable", op.Type)
		}
	case OpUpdate, OpReplace:
		if op.Variable != "" && !IsRefPath(op.Variable) {
			v.add(ErrCodeInvalidIdentifier, f+".variable", "invalid variable %q", op.Variable)
		}
	default:
		v.add(ErrCodeInvalidOperator, f+".type", "unknown operation %q", op.Type)
	}
	v.validateExpr(op.Document, f+".document")
	v.validateCollectionRef(op.Collection, f+".collection")
	if op.Options != nil {
		v.validateExpr(op.Options, f+".options")
	}
}

// validateExpr recursively validates an expression node.
func (v *validator) validateExpr(e Expr, f string) {
	switch n := e.(type) {
	case nil:
		v.add(ErrCodeUnsupportedNode, f, "missing expression")
	case Literal:
		if !ir.IsCanonical(n.Value) {
			v.add(ErrCodeInvalidValue, f, "unsupported literal value of type %T", n.Value)
		}
	case Ref:
		if !IsRefPath(n.Path) {
			v.add(ErrCodeInvalidIdentifier, f, "invalid reference %q", n.Path)
		}
	case Param:
		if !IsParamName(n.Name) {
			v.add(ErrCodeInvalidIdentifier, f, "invalid parameter name %q", n.Name)
		}
	case Binary:
		if !binaryOps[n.Op] {
			v.add(ErrCodeInvalidOperator, f+".op", "unknown binary operator %q", n.Op)
		}
		v.validateExpr(n.Left, f+".left")
		v.validateExpr(n.Right, f+".right")
	case Unary:
		if n.Op != OpNot && n.Op != OpNegate {
			v.add(ErrCodeInvalidOperator, f+".op", "unknown unary operator %q", n.Op)
		}
		v.validateExpr(n.Operand, f+".operand")
	case Func:
		if !funcNameRe.MatchString(n.Name) {
			v.add(ErrCodeInvalidIdentifier, f+".name", "invalid function name %q", n.Name)
		}
		for i, a := range n.Args {
			v.validateExpr(a, fmt.Sprintf("%s.args[%d]", f, i))
		}
	case Ternary:
		v.validateExpr(n.Cond, f+".condition")
		v.validateExpr(n.Then, f+".thenValue")
		v.validateExpr(n.Else, f+".elseValue")
	case Like:
		v.validateExpr(n.Expr, f+".expr")
	case Regex:
		v.validateExpr(n.Expr, f+".expr")
		if n.Flags != "" && n.Flags != "i" {
			v.add(ErrCodeInvalidValue, f+".flags", "unsupported regex flags %q", n.Flags)
		}
	case Old:
		if n.Path != "" && !IsRefPath(n.Path) {
			v.add(ErrCodeInvalidIdentifier, f, "invalid OLD path %q", n.Path)
		}
	case Quantifier:
		if n.Kind != QuantifierAll && n.Kind != QuantifierAny {
			v.add(ErrCodeInvalidOperator, f, "unknown quantifier %q", n.Kind)
		}
		v.validateExpr(n.Expr, f+".expr")
		v.validateExpr(n.Cond, f+".condition")
	case Unset:
		v.validateExpr(n.Object, f+".object")
		if len(n.Fields) == 0 {
			v.add(ErrCodeInvalidValue, f+".fields", "UNSET needs at least one field")
		}
	case Object:
		seen := make(map[string]bool, len(n.Fields))
		for i, fld := range n.Fields {
			if seen[fld.Key] {
				v.add(ErrCodeInvalidValue, fmt.Sprintf("%s.fields[%d]", f, i), "duplicate key %q", fld.Key)
			}
			seen[fld.Key] = true
			v.validateExpr(fld.Value, fmt.Sprintf("%s.fields[%d].value", f, i))
		}
	case Array:
		for i, el := range n.Elements {
			v.validateExpr(el, fmt.Sprintf("%s.elements[%d]", f, i))
		}
	case Subquery:
		if n.Query != nil && n.Query.IsRaw() {
			v.add(ErrCodeInvalidValue, f+".query", "raw queries cannot be nested")
			return
		}
		v.validateQuery(n.Query, f+".query.")
	default:
		v.add(ErrCodeUnsupportedNode, f, "unknown expression type %T", e)
	}
}
