package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/aqlkit/internal/ir"
)

// Node discriminators written to the "type" field of every expression.
const (
	TypeLiteral   = "literal"
	TypeReference = "reference"
	TypeParameter = "parameter"
	TypeBinary    = "binary"
	TypeUnary     = "unary"
	TypeFunction  = "function"
	TypeTernary   = "ternary"
	TypeLike      = "like"
	TypeRegex     = "regex"
	TypeOld       = "old"
	TypeAll       = "all"
	TypeAny       = "any"
	TypeUnset     = "unset"
	TypeObject    = "object"
	TypeArray     = "array"
	TypeSubquery  = "subquery"
)

// Source discriminators. A collection source is written as a bare string.
const (
	sourceRange = "range"
	sourceGraph = "graph"
)

// ToJSON snapshots q as JSON. Every expression node carries its "type"
// discriminator and literal numbers keep their integer or float identity.
func ToJSON(q *Query) ([]byte, error) {
	if q == nil {
		return nil, fmt.Errorf("ToJSON: nil query")
	}
	data, err := marshalNoEscape(q)
	if err != nil {
		return nil, fmt.Errorf("ToJSON: %w", err)
	}
	return data, nil
}

// FromJSON restores a query snapshot produced by ToJSON. The result is not
// validated; Validate or the compiler reports configuration problems.
func FromJSON(data []byte) (*Query, error) {
	return decodeQuery(data, "")
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Wire shapes shared by encoding (E = Expr, S = Source) and decoding
// (E = S = json.RawMessage).

type wireQuery[E, S any] struct {
	Collection         string               `json:"collection,omitempty"`
	Variable           string               `json:"variable,omitempty"`
	Source             S                    `json:"source,omitempty"`
	MultipleLoopVars   *LoopVars            `json:"multipleLoopVars,omitempty"`
	Joins              []wireJoin[S]        `json:"joins,omitempty"`
	Filters            []E                  `json:"filters,omitempty"`
	FiltersPostCollect []E                  `json:"filtersPostCollect,omitempty"`
	Lets               []wireLet[E]         `json:"lets,omitempty"`
	LetsPreCollect     []wireLet[E]         `json:"letsPreCollect,omitempty"`
	Collects           []wireCollect[E]     `json:"collects,omitempty"`
	Sorts              []wireSort[E]        `json:"sorts,omitempty"`
	ReturnValue        E                    `json:"returnValue,omitempty"`
	ReturnDistinct     bool                 `json:"returnDistinct,omitempty"`
	Limit              *int64               `json:"limit,omitempty"`
	Offset             *int64               `json:"offset,omitempty"`
	Operations         []wireOperation[E]   `json:"operations,omitempty"`
	Upserts            []wireUpsert[E]      `json:"upserts,omitempty"`
	UpdatesEnhanced    []wireEnhanced[E]    `json:"updatesEnhanced,omitempty"`
	Searches           []E                  `json:"searches,omitempty"`
	Traversals         []wireTraversal[S]   `json:"traversals,omitempty"`
	Prunes             []E                  `json:"prunes,omitempty"`
	Windows            []wireWindow[E]      `json:"windows,omitempty"`
	WithCollections    []string             `json:"withCollections,omitempty"`
	Raw                string               `json:"raw,omitempty"`
	RawBindVars        json.RawMessage      `json:"rawBindVars,omitempty"`
}

type wireJoin[S any] struct {
	Variable string `json:"variable"`
	Source   S      `json:"source"`
}

type wireLet[E any] struct {
	Name       string `json:"name"`
	Expression E      `json:"expression"`
}

type wireAssignment[E any] struct {
	Key   string `json:"key"`
	Value E      `json:"value"`
}

type wireAggregate[E any] struct {
	Name       string `json:"name"`
	Function   string `json:"function"`
	Expression E      `json:"expression,omitempty"`
}

type wireCollect[E any] struct {
	Variables []wireAssignment[E] `json:"variables"`
	Into      string              `json:"into,omitempty"`
	Aggregate []wireAggregate[E]  `json:"aggregate,omitempty"`
	Keep      []string            `json:"keep,omitempty"`
}

type wireSort[E any] struct {
	Field     E      `json:"field"`
	Direction string `json:"direction,omitempty"`
}

type wireOperation[E any] struct {
	Type       OperationType `json:"type"`
	Document   E             `json:"document"`
	Collection string        `json:"collection,omitempty"`
	Variable   string        `json:"variable,omitempty"`
	Options    E             `json:"options,omitempty"`
}

type wireUpsert[E any] struct {
	SearchDoc  E      `json:"searchDoc"`
	InsertDoc  E      `json:"insertDoc"`
	UpdateDoc  E      `json:"updateDoc"`
	Collection string `json:"collection,omitempty"`
	Replace    bool   `json:"replace,omitempty"`
}

type wireEnhanced[E any] struct {
	Document     E      `json:"document,omitempty"`
	UpdateFields E      `json:"updateFields,omitempty"`
	Collection   string `json:"collection,omitempty"`
	Variable     string `json:"variable,omitempty"`
	OldReference string `json:"oldReference,omitempty"`
}

type wireTraversal[S any] struct {
	Vars   LoopVars `json:"vars"`
	Source S        `json:"source"`
}

type wireWindow[E any] struct {
	Range     E                  `json:"range,omitempty"`
	Preceding E                  `json:"preceding,omitempty"`
	Following E                  `json:"following,omitempty"`
	Aggregate []wireAggregate[E] `json:"aggregate"`
}

// MarshalJSON implements json.Marshaler.
func (q Query) MarshalJSON() ([]byte, error) {
	w := wireQuery[Expr, Source]{
		Collection:         q.Collection,
		Variable:           q.Variable,
		Source:             q.Source,
		MultipleLoopVars:   q.MultipleLoopVars,
		Filters:            q.Filters,
		FiltersPostCollect: q.FiltersPostCollect,
		ReturnValue:        q.ReturnValue,
		ReturnDistinct:     q.ReturnDistinct,
		Limit:              q.Limit,
		Offset:             q.Offset,
		Searches:           q.Searches,
		Prunes:             q.Prunes,
		WithCollections:    q.WithCollections,
		Raw:                q.Raw,
	}
	for _, j := range q.Joins {
		w.Joins = append(w.Joins, wireJoin[Source]{Variable: j.Variable, Source: j.Source})
	}
	w.Lets = lets2wire(q.Lets)
	w.LetsPreCollect = lets2wire(q.LetsPreCollect)
	for _, c := range q.Collects {
		wc := wireCollect[Expr]{
			Variables: []wireAssignment[Expr]{},
			Into:      c.Into,
			Aggregate: aggs2wire(c.Aggregates),
			Keep:      c.Keep,
		}
		for _, a := range c.Variables {
			wc.Variables = append(wc.Variables, wireAssignment[Expr]{Key: a.Key, Value: a.Value})
		}
		w.Collects = append(w.Collects, wc)
	}
	for _, s := range q.Sorts {
		w.Sorts = append(w.Sorts, wireSort[Expr]{Field: s.Field, Direction: s.Direction})
	}
	for _, op := range q.Operations {
		w.Operations = append(w.Operations, wireOperation[Expr]{
			Type: op.Type, Document: op.Document, Collection: op.Collection,
			Variable: op.Variable, Options: op.Options,
		})
	}
	for _, u := range q.Upserts {
		w.Upserts = append(w.Upserts, wireUpsert[Expr]{
			SearchDoc: u.Search, InsertDoc: u.Insert, UpdateDoc: u.Update,
			Collection: u.Collection, Replace: u.Replace,
		})
	}
	for _, u := range q.UpdatesEnhanced {
		w.UpdatesEnhanced = append(w.UpdatesEnhanced, wireEnhanced[Expr]{
			Document: u.Document, UpdateFields: u.UpdateFields, Collection: u.Collection,
			Variable: u.Variable, OldReference: u.OldReference,
		})
	}
	for _, t := range q.Traversals {
		w.Traversals = append(w.Traversals, wireTraversal[Source]{Vars: t.Vars, Source: t.Source})
	}
	for _, win := range q.Windows {
		w.Windows = append(w.Windows, wireWindow[Expr]{
			Range: win.Range, Preceding: win.Preceding, Following: win.Following,
			Aggregate: aggs2wire(win.Aggregates),
		})
	}
	if q.RawBindVars != nil {
		vars, err := ir.Normalize(q.RawBindVars)
		if err != nil {
			return nil, fmt.Errorf("rawBindVars: %w", err)
		}
		raw, err := ir.MarshalValue(vars)
		if err != nil {
			return nil, fmt.Errorf("rawBindVars: %w", err)
		}
		w.RawBindVars = raw
	}
	return marshalNoEscape(w)
}

func lets2wire(lets []Let) []wireLet[Expr] {
	var out []wireLet[Expr]
	for _, l := range lets {
		out = append(out, wireLet[Expr]{Name: l.Name, Expression: l.Expression})
	}
	return out
}

func aggs2wire(aggs []Aggregate) []wireAggregate[Expr] {
	var out []wireAggregate[Expr]
	for _, a := range aggs {
		out = append(out, wireAggregate[Expr]{Name: a.Name, Function: a.Function, Expression: a.Expression})
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Query) UnmarshalJSON(data []byte) error {
	decoded, err := decodeQuery(data, "")
	if err != nil {
		return err
	}
	*q = *decoded
	return nil
}

// Expression encoders. Each writes its discriminator first.

func (n Literal) MarshalJSON() ([]byte, error) {
	v, err := ir.Normalize(n.Value)
	if err != nil {
		return nil, err
	}
	raw, err := ir.MarshalValue(v)
	if err != nil {
		return nil, err
	}
	return marshalNoEscape(struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}{TypeLiteral, raw})
}

func (n Ref) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{TypeReference, n.Path})
}

func (n Param) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type              string `json:"type"`
		Name              string `json:"name"`
		IsCollectionParam bool   `json:"isCollectionParam,omitempty"`
	}{TypeParameter, n.Name, n.Collection})
}

func (n Binary) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type  string `json:"type"`
		Op    string `json:"op"`
		Left  Expr   `json:"left"`
		Right Expr   `json:"right"`
	}{TypeBinary, n.Op, n.Left, n.Right})
}

func (n Unary) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type    string `json:"type"`
		Op      string `json:"op"`
		Operand Expr   `json:"operand"`
	}{TypeUnary, n.Op, n.Operand})
}

func (n Func) MarshalJSON() ([]byte, error) {
	args := n.Args
	if args == nil {
		args = []Expr{}
	}
	return marshalNoEscape(struct {
		Type string `json:"type"`
		Name string `json:"name"`
		Args []Expr `json:"args"`
	}{TypeFunction, n.Name, args})
}

func (n Ternary) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type      string `json:"type"`
		Condition Expr   `json:"condition"`
		ThenValue Expr   `json:"thenValue"`
		ElseValue Expr   `json:"elseValue"`
	}{TypeTernary, n.Cond, n.Then, n.Else})
}

func (n Like) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type            string `json:"type"`
		Expr            Expr   `json:"expr"`
		Pattern         string `json:"pattern"`
		CaseInsensitive bool   `json:"caseInsensitive,omitempty"`
	}{TypeLike, n.Expr, n.Pattern, n.CaseInsensitive})
}

func (n Regex) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type    string `json:"type"`
		Expr    Expr   `json:"expr"`
		Pattern string `json:"pattern"`
		Flags   string `json:"flags,omitempty"`
	}{TypeRegex, n.Expr, n.Pattern, n.Flags})
}

func (n Old) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}{TypeOld, n.Path})
}

func (n Quantifier) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type      string `json:"type"`
		Expr      Expr   `json:"expr"`
		Condition Expr   `json:"condition"`
	}{string(n.Kind), n.Expr, n.Cond})
}

func (n Unset) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type   string   `json:"type"`
		Object Expr     `json:"object"`
		Fields []string `json:"fields"`
	}{TypeUnset, n.Object, n.Fields})
}

func (n Object) MarshalJSON() ([]byte, error) {
	fields := make([]wireAssignment[Expr], len(n.Fields))
	for i, f := range n.Fields {
		fields[i] = wireAssignment[Expr]{Key: f.Key, Value: f.Value}
	}
	return marshalNoEscape(struct {
		Type   string                 `json:"type"`
		Fields []wireAssignment[Expr] `json:"fields"`
	}{TypeObject, fields})
}

func (n Array) MarshalJSON() ([]byte, error) {
	elems := n.Elements
	if elems == nil {
		elems = []Expr{}
	}
	return marshalNoEscape(struct {
		Type     string `json:"type"`
		Elements []Expr `json:"elements"`
	}{TypeArray, elems})
}

func (n Subquery) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type  string `json:"type"`
		Query *Query `json:"query"`
	}{TypeSubquery, n.Query})
}

// Source encoders.

func (s CollectionSource) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(s.Name)
}

func (s RangeSource) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type  string `json:"type"`
		Start Expr   `json:"start"`
		End   Expr   `json:"end"`
	}{sourceRange, s.Start, s.End})
}

func (s GraphSource) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Type            string   `json:"type"`
		Graph           string   `json:"graph,omitempty"`
		EdgeCollections []string `json:"edgeCollections,omitempty"`
		Direction       string   `json:"direction"`
		StartVertex     string   `json:"startVertex"`
		MinDepth        int      `json:"minDepth"`
		MaxDepth        int      `json:"maxDepth"`
		Options         Expr     `json:"options,omitempty"`
	}{sourceGraph, s.Graph, s.EdgeCollections, s.Direction, s.StartVertex, s.MinDepth, s.MaxDepth, s.Options})
}

// Decoding.

func serr(path, format string, args ...any) *SerializationError {
	return &SerializationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func decodeQuery(data []byte, path string) (*Query, error) {
	var w wireQuery[json.RawMessage, json.RawMessage]
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &SerializationError{Path: path, Message: "malformed query", Err: err}
	}

	q := &Query{
		Collection:       w.Collection,
		Variable:         w.Variable,
		MultipleLoopVars: w.MultipleLoopVars,
		ReturnDistinct:   w.ReturnDistinct,
		Limit:            w.Limit,
		Offset:           w.Offset,
		WithCollections:  w.WithCollections,
		Raw:              w.Raw,
	}

	var err error
	d := &decoder{}
	q.Source = d.source(w.Source, join(path, "source"))
	for i, j := range w.Joins {
		p := fmt.Sprintf("%s[%d]", join(path, "joins"), i)
		q.Joins = append(q.Joins, Join{Variable: j.Variable, Source: d.source(j.Source, join(p, "source"))})
	}
	q.Filters = d.exprs(w.Filters, join(path, "filters"))
	q.FiltersPostCollect = d.exprs(w.FiltersPostCollect, join(path, "filtersPostCollect"))
	q.Lets = d.lets(w.Lets, join(path, "lets"))
	q.LetsPreCollect = d.lets(w.LetsPreCollect, join(path, "letsPreCollect"))
	for i, c := range w.Collects {
		p := fmt.Sprintf("%s[%d]", join(path, "collects"), i)
		col := Collect{Into: c.Into, Keep: c.Keep, Aggregates: d.aggregates(c.Aggregate, join(p, "aggregate"))}
		for k, a := range c.Variables {
			col.Variables = append(col.Variables, Assignment{
				Key:   a.Key,
				Value: d.expr(a.Value, fmt.Sprintf("%s.variables[%d].value", p, k)),
			})
		}
		q.Collects = append(q.Collects, col)
	}
	for i, s := range w.Sorts {
		p := fmt.Sprintf("%s[%d]", join(path, "sorts"), i)
		q.Sorts = append(q.Sorts, Sort{Field: d.expr(s.Field, join(p, "field")), Direction: s.Direction})
	}
	q.ReturnValue = d.optExpr(w.ReturnValue, join(path, "returnValue"))
	for i, op := range w.Operations {
		p := fmt.Sprintf("%s[%d]", join(path, "operations"), i)
		q.Operations = append(q.Operations, Operation{
			Type:       op.Type,
			Document:   d.expr(op.Document, join(p, "document")),
			Collection: op.Collection,
			Variable:   op.Variable,
			Options:    d.optExpr(op.Options, join(p, "options")),
		})
	}
	for i, u := range w.Upserts {
		p := fmt.Sprintf("%s[%d]", join(path, "upserts"), i)
		q.Upserts = append(q.Upserts, Upsert{
			Search:     d.expr(u.SearchDoc, join(p, "searchDoc")),
			Insert:     d.expr(u.InsertDoc, join(p, "insertDoc")),
			Update:     d.expr(u.UpdateDoc, join(p, "updateDoc")),
			Collection: u.Collection,
			Replace:    u.Replace,
		})
	}
	for i, u := range w.UpdatesEnhanced {
		p := fmt.Sprintf("%s[%d]", join(path, "updatesEnhanced"), i)
		q.UpdatesEnhanced = append(q.UpdatesEnhanced, EnhancedUpdate{
			Document:     d.optExpr(u.Document, join(p, "document")),
			UpdateFields: d.optExpr(u.UpdateFields, join(p, "updateFields")),
			Collection:   u.Collection,
			Variable:     u.Variable,
			OldReference: u.OldReference,
		})
	}
	q.Searches = d.exprs(w.Searches, join(path, "searches"))
	for i, t := range w.Traversals {
		p := fmt.Sprintf("%s[%d]", join(path, "traversals"), i)
		q.Traversals = append(q.Traversals, Traversal{Vars: t.Vars, Source: d.source(t.Source, join(p, "source"))})
	}
	q.Prunes = d.exprs(w.Prunes, join(path, "prunes"))
	for i, win := range w.Windows {
		p := fmt.Sprintf("%s[%d]", join(path, "windows"), i)
		q.Windows = append(q.Windows, Window{
			Range:      d.optExpr(win.Range, join(p, "range")),
			Preceding:  d.optExpr(win.Preceding, join(p, "preceding")),
			Following:  d.optExpr(win.Following, join(p, "following")),
			Aggregates: d.aggregates(win.Aggregate, join(p, "aggregate")),
		})
	}
	if !isAbsent(w.RawBindVars) {
		var v any
		v, err = ir.DecodeValue(w.RawBindVars)
		if err != nil {
			d.fail(&SerializationError{Path: join(path, "rawBindVars"), Message: "malformed bind variables", Err: err})
		} else if m, ok := v.(map[string]any); ok {
			q.RawBindVars = m
		} else {
			d.fail(serr(join(path, "rawBindVars"), "bind variables must be an object"))
		}
	}

	if d.err != nil {
		return nil, d.err
	}
	return q, nil
}

// decoder keeps the first error so the conversion code reads straight
// through.
type decoder struct {
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) exprs(raws []json.RawMessage, path string) []Expr {
	var out []Expr
	for i, r := range raws {
		out = append(out, d.expr(r, fmt.Sprintf("%s[%d]", path, i)))
	}
	return out
}

func (d *decoder) lets(raws []wireLet[json.RawMessage], path string) []Let {
	var out []Let
	for i, l := range raws {
		p := fmt.Sprintf("%s[%d]", path, i)
		out = append(out, Let{Name: l.Name, Expression: d.expr(l.Expression, join(p, "expression"))})
	}
	return out
}

func (d *decoder) aggregates(raws []wireAggregate[json.RawMessage], path string) []Aggregate {
	var out []Aggregate
	for i, a := range raws {
		p := fmt.Sprintf("%s[%d]", path, i)
		out = append(out, Aggregate{
			Name:       a.Name,
			Function:   a.Function,
			Expression: d.optExpr(a.Expression, join(p, "expression")),
		})
	}
	return out
}

// optExpr decodes an optional expression; absent stays nil.
func (d *decoder) optExpr(raw json.RawMessage, path string) Expr {
	if isAbsent(raw) {
		return nil
	}
	return d.expr(raw, path)
}

// expr decodes a required expression; absent is an error.
func (d *decoder) expr(raw json.RawMessage, path string) Expr {
	if d.err != nil {
		return nil
	}
	if isAbsent(raw) {
		d.fail(serr(path, "missing expression"))
		return nil
	}
	e, err := decodeExpr(raw, path)
	if err != nil {
		d.fail(err)
		return nil
	}
	return e
}

func (d *decoder) source(raw json.RawMessage, path string) Source {
	if d.err != nil || isAbsent(raw) {
		return nil
	}
	s, err := decodeSource(raw, path)
	if err != nil {
		d.fail(err)
		return nil
	}
	return s
}

// nodeIn is the union of every expression node's fields.
type nodeIn struct {
	Type              *string           `json:"type"`
	Value             json.RawMessage   `json:"value"`
	Name              string            `json:"name"`
	IsCollectionParam bool              `json:"isCollectionParam"`
	Op                string            `json:"op"`
	Left              json.RawMessage   `json:"left"`
	Right             json.RawMessage   `json:"right"`
	Operand           json.RawMessage   `json:"operand"`
	Args              []json.RawMessage `json:"args"`
	Condition         json.RawMessage   `json:"condition"`
	ThenValue         json.RawMessage   `json:"thenValue"`
	ElseValue         json.RawMessage   `json:"elseValue"`
	Expr              json.RawMessage   `json:"expr"`
	Pattern           string            `json:"pattern"`
	CaseInsensitive   bool              `json:"caseInsensitive"`
	Flags             string            `json:"flags"`
	Path              string            `json:"path"`
	Object            json.RawMessage   `json:"object"`
	Fields            json.RawMessage   `json:"fields"`
	Elements          []json.RawMessage `json:"elements"`
	Query             json.RawMessage   `json:"query"`
}

func decodeExpr(raw json.RawMessage, path string) (Expr, error) {
	var n nodeIn
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, &SerializationError{Path: path, Message: "malformed expression node", Err: err}
	}
	if n.Type == nil || *n.Type == "" {
		return nil, serr(path, "missing node discriminator \"type\"")
	}

	d := &decoder{}
	var e Expr
	switch *n.Type {
	case TypeLiteral:
		var v any
		if !isAbsent(n.Value) {
			var err error
			v, err = ir.DecodeValue(n.Value)
			if err != nil {
				return nil, &SerializationError{Path: join(path, "value"), Message: "malformed literal", Err: err}
			}
		}
		e = Literal{Value: v}
	case TypeReference:
		e = Ref{Path: n.Name}
	case TypeParameter:
		e = Param{Name: n.Name, Collection: n.IsCollectionParam}
	case TypeBinary:
		e = Binary{Op: n.Op, Left: d.expr(n.Left, join(path, "left")), Right: d.expr(n.Right, join(path, "right"))}
	case TypeUnary:
		e = Unary{Op: n.Op, Operand: d.expr(n.Operand, join(path, "operand"))}
	case TypeFunction:
		args := d.exprs(n.Args, join(path, "args"))
		if args == nil {
			args = []Expr{}
		}
		e = Func{Name: n.Name, Args: args}
	case TypeTernary:
		e = Ternary{
			Cond: d.expr(n.Condition, join(path, "condition")),
			Then: d.expr(n.ThenValue, join(path, "thenValue")),
			Else: d.expr(n.ElseValue, join(path, "elseValue")),
		}
	case TypeLike:
		e = Like{Expr: d.expr(n.Expr, join(path, "expr")), Pattern: n.Pattern, CaseInsensitive: n.CaseInsensitive}
	case TypeRegex:
		e = Regex{Expr: d.expr(n.Expr, join(path, "expr")), Pattern: n.Pattern, Flags: n.Flags}
	case TypeOld:
		e = Old{Path: n.Path}
	case TypeAll, TypeAny:
		e = Quantifier{
			Kind: QuantifierKind(*n.Type),
			Expr: d.expr(n.Expr, join(path, "expr")),
			Cond: d.expr(n.Condition, join(path, "condition")),
		}
	case TypeUnset:
		var fields []string
		if !isAbsent(n.Fields) {
			if err := json.Unmarshal(n.Fields, &fields); err != nil {
				return nil, &SerializationError{Path: join(path, "fields"), Message: "unset fields must be strings", Err: err}
			}
		}
		e = Unset{Object: d.expr(n.Object, join(path, "object")), Fields: fields}
	case TypeObject:
		var fields []wireAssignment[json.RawMessage]
		if !isAbsent(n.Fields) {
			if err := json.Unmarshal(n.Fields, &fields); err != nil {
				return nil, &SerializationError{Path: join(path, "fields"), Message: "malformed object fields", Err: err}
			}
		}
		obj := Object{Fields: []Field{}}
		for i, f := range fields {
			obj.Fields = append(obj.Fields, Field{
				Key:   f.Key,
				Value: d.expr(f.Value, fmt.Sprintf("%s.fields[%d].value", path, i)),
			})
		}
		e = obj
	case TypeArray:
		elems := d.exprs(n.Elements, join(path, "elements"))
		if elems == nil {
			elems = []Expr{}
		}
		e = Array{Elements: elems}
	case TypeSubquery:
		if isAbsent(n.Query) {
			return nil, serr(join(path, "query"), "subquery has no query")
		}
		sub, err := decodeQuery(n.Query, join(path, "query"))
		if err != nil {
			return nil, err
		}
		e = Subquery{Query: sub}
	default:
		return nil, serr(path, "unknown node type %q", *n.Type)
	}

	if d.err != nil {
		return nil, d.err
	}
	return e, nil
}

type sourceIn struct {
	Type            *string         `json:"type"`
	Start           json.RawMessage `json:"start"`
	End             json.RawMessage `json:"end"`
	Graph           string          `json:"graph"`
	EdgeCollections []string        `json:"edgeCollections"`
	Direction       string          `json:"direction"`
	StartVertex     string          `json:"startVertex"`
	MinDepth        int             `json:"minDepth"`
	MaxDepth        int             `json:"maxDepth"`
	Options         json.RawMessage `json:"options"`
}

func decodeSource(raw json.RawMessage, path string) (Source, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return nil, &SerializationError{Path: path, Message: "malformed collection source", Err: err}
		}
		return CollectionSource{Name: name}, nil
	}

	var s sourceIn
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &SerializationError{Path: path, Message: "malformed source", Err: err}
	}
	if s.Type == nil {
		return nil, serr(path, "missing source discriminator \"type\"")
	}

	d := &decoder{}
	var src Source
	switch *s.Type {
	case sourceRange:
		src = RangeSource{Start: d.expr(s.Start, join(path, "start")), End: d.expr(s.End, join(path, "end"))}
	case sourceGraph:
		src = GraphSource{
			Graph:           s.Graph,
			EdgeCollections: s.EdgeCollections,
			Direction:       s.Direction,
			StartVertex:     s.StartVertex,
			MinDepth:        s.MinDepth,
			MaxDepth:        s.MaxDepth,
			Options:         d.optExpr(s.Options, join(path, "options")),
		}
	default:
		return nil, serr(path, "unknown source type %q", *s.Type)
	}
	if d.err != nil {
		return nil, d.err
	}
	return src, nil
}
