package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(r ValidationResult) []ConfigErrorCode {
	var out []ConfigErrorCode
	for _, e := range r.Errors {
		out = append(out, e.Code)
	}
	return out
}

func TestValidate_SimpleQuery(t *testing.T) {
	q := &Query{
		Collection: "users",
		Variable:   "u",
		Source:     CollectionSource{Name: "users"},
		Filters: []Expr{
			Binary{Op: OpGte, Left: Ref{Path: "u.age"}, Right: Literal{Value: int64(18)}},
		},
		ReturnValue: Ref{Path: "u"},
	}

	result := Validate(q)

	assert.True(t, result.Valid())
	assert.NoError(t, result.Err())
}

func TestValidate_ReturnOnly(t *testing.T) {
	result := Validate(&Query{ReturnValue: Literal{Value: int64(1)}})
	assert.True(t, result.Valid())
}

func TestValidate_EmptyQuery(t *testing.T) {
	result := Validate(&Query{})
	assert.Equal(t, []ConfigErrorCode{ErrCodeEmptyQuery}, codes(result))
}

func TestValidate_NilQuery(t *testing.T) {
	result := Validate(nil)
	assert.Equal(t, []ConfigErrorCode{ErrCodeUnsupportedNode}, codes(result))
}

func TestValidate_MissingSource(t *testing.T) {
	result := Validate(&Query{Variable: "u", ReturnValue: Ref{Path: "u"}})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeMissingSource, result.Errors[0].Code)
	assert.Equal(t, "source", result.Errors[0].Field)
	assert.True(t, IsConfigurationError(result.Err()))
}

func TestValidate_MissingVariable(t *testing.T) {
	result := Validate(&Query{Source: CollectionSource{Name: "users"}, ReturnValue: Ref{Path: "x"}})
	assert.Equal(t, []ConfigErrorCode{ErrCodeMissingVariable}, codes(result))
}

func TestValidate_MissingCollection(t *testing.T) {
	q := &Query{
		Operations: []Operation{
			{Type: OpInsert, Document: Object{Fields: []Field{{Key: "a", Value: Literal{Value: int64(1)}}}}},
		},
	}

	result := Validate(q)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeMissingCollection, result.Errors[0].Code)
	assert.Equal(t, "operations[0].collection", result.Errors[0].Field)
}

func TestValidate_LimitOffset(t *testing.T) {
	tests := []struct {
		name   string
		limit  *int64
		offset *int64
		want   []ConfigErrorCode
	}{
		{"valid", i64(10), i64(5), nil},
		{"zero", i64(0), i64(0), nil},
		{"negative limit", i64(-1), nil, []ConfigErrorCode{ErrCodeNegativeLimit}},
		{"negative offset", i64(1), i64(-1), []ConfigErrorCode{ErrCodeNegativeOffset}},
		{"offset without limit", nil, i64(3), []ConfigErrorCode{ErrCodeOffsetWithoutLimit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &Query{
				Variable:    "u",
				Source:      CollectionSource{Name: "users"},
				Limit:       tt.limit,
				Offset:      tt.offset,
				ReturnValue: Ref{Path: "u"},
			}
			assert.Equal(t, tt.want, codes(Validate(q)))
		})
	}
}

func TestValidate_MultipleViolationsJoined(t *testing.T) {
	q := &Query{
		Variable: "u",
		Limit:    i64(-5),
		Operations: []Operation{
			{Type: OpRemove, Document: Ref{Path: "u"}},
		},
	}

	result := Validate(q)

	assert.Equal(t, []ConfigErrorCode{ErrCodeMissingSource, ErrCodeNegativeLimit, ErrCodeMissingCollection}, codes(result))
	err := result.Err()
	assert.True(t, HasCode(err, ErrCodeNegativeLimit))
	assert.Len(t, ConfigurationErrors(err), 3)
}

func TestValidate_Identifiers(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
		field string
	}{
		{
			name:  "variable",
			query: &Query{Variable: "u x", Source: CollectionSource{Name: "users"}, ReturnValue: Ref{Path: "u"}},
			field: "variable",
		},
		{
			name:  "collection",
			query: &Query{Variable: "u", Source: CollectionSource{Name: "users; REMOVE"}, ReturnValue: Ref{Path: "u"}},
			field: "source",
		},
		{
			name:  "reference",
			query: &Query{ReturnValue: Ref{Path: "u.name) RETURN (1"}},
			field: "returnValue",
		},
		{
			name:  "function",
			query: &Query{ReturnValue: Func{Name: "LENGTH()", Args: nil}},
			field: "returnValue.name",
		},
		{
			name:  "parameter",
			query: &Query{ReturnValue: Param{Name: "a b"}},
			field: "returnValue",
		},
		{
			name:  "let name",
			query: &Query{LetsPreCollect: []Let{{Name: "1x", Expression: Literal{Value: int64(1)}}}, ReturnValue: Ref{Path: "x"}},
			field: "letsPreCollect[0].name",
		},
		{
			name:  "with collection",
			query: &Query{WithCollections: []string{"a b"}, ReturnValue: Ref{Path: "x"}},
			field: "withCollections[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, ErrCodeInvalidIdentifier, result.Errors[0].Code)
			assert.Equal(t, tt.field, result.Errors[0].Field)
		})
	}
}

func TestValidate_Operators(t *testing.T) {
	q := &Query{
		Filters: []Expr{
			Binary{Op: "LIKE", Left: Ref{Path: "a"}, Right: Ref{Path: "b"}},
			Unary{Op: "!", Operand: Ref{Path: "a"}},
		},
		ReturnValue: Ref{Path: "a"},
	}

	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidOperator, ErrCodeInvalidOperator}, codes(Validate(q)))
}

func TestValidate_NonCanonicalLiteral(t *testing.T) {
	result := Validate(&Query{ReturnValue: Literal{Value: []string{"a"}}})
	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidValue}, codes(result))
}

func TestValidate_NilExpression(t *testing.T) {
	q := &Query{
		Filters:     []Expr{Binary{Op: OpEq, Left: Ref{Path: "a"}}},
		ReturnValue: Ref{Path: "a"},
	}

	result := Validate(q)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeUnsupportedNode, result.Errors[0].Code)
	assert.Equal(t, "filters[0].right", result.Errors[0].Field)
}

func TestValidate_Graph(t *testing.T) {
	valid := GraphSource{Graph: "social", Direction: DirectionOutbound, StartVertex: "users/1", MinDepth: 1, MaxDepth: 3}

	tests := []struct {
		name   string
		mutate func(g *GraphSource)
		want   []ConfigErrorCode
	}{
		{"valid", func(g *GraphSource) {}, nil},
		{"edge collections", func(g *GraphSource) { g.Graph = ""; g.EdgeCollections = []string{"knows"} }, nil},
		{"no graph", func(g *GraphSource) { g.Graph = "" }, []ConfigErrorCode{ErrCodeMissingSource}},
		{"both", func(g *GraphSource) { g.EdgeCollections = []string{"knows"} }, []ConfigErrorCode{ErrCodeInvalidValue}},
		{"direction", func(g *GraphSource) { g.Direction = "SIDEWAYS" }, []ConfigErrorCode{ErrCodeInvalidDirection}},
		{"depth order", func(g *GraphSource) { g.MaxDepth = 0 }, []ConfigErrorCode{ErrCodeInvalidValue}},
		{"start vertex", func(g *GraphSource) { g.StartVertex = "" }, []ConfigErrorCode{ErrCodeInvalidValue}},
		{"start param", func(g *GraphSource) { g.StartVertex = "@bad name" }, []ConfigErrorCode{ErrCodeInvalidIdentifier}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid
			tt.mutate(&g)
			q := &Query{Variable: "v", Source: g, ReturnValue: Ref{Path: "v"}}
			assert.Equal(t, tt.want, codes(Validate(q)))
		})
	}
}

func TestValidate_MultipleLoopVars(t *testing.T) {
	g := GraphSource{Graph: "social", Direction: DirectionAny, StartVertex: "users/1", MinDepth: 1, MaxDepth: 1}

	ok := &Query{MultipleLoopVars: &LoopVars{Vertex: "v", Edge: "e", Path: "p"}, Source: g, ReturnValue: Ref{Path: "p"}}
	assert.True(t, Validate(ok).Valid())

	noEdge := &Query{MultipleLoopVars: &LoopVars{Vertex: "v", Path: "p"}, Source: g, ReturnValue: Ref{Path: "p"}}
	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidValue}, codes(Validate(noEdge)))

	noSource := &Query{MultipleLoopVars: &LoopVars{Vertex: "v"}, ReturnValue: Ref{Path: "v"}}
	assert.Equal(t, []ConfigErrorCode{ErrCodeMissingSource}, codes(Validate(noSource)))
}

func TestValidate_Traversals(t *testing.T) {
	q := &Query{
		Variable: "u",
		Source:   CollectionSource{Name: "users"},
		Traversals: []Traversal{
			{Vars: LoopVars{Vertex: "f"}, Source: CollectionSource{Name: "users"}},
			{Vars: LoopVars{Vertex: "g"}},
		},
		ReturnValue: Ref{Path: "u"},
	}

	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidValue, ErrCodeMissingSource}, codes(Validate(q)))
}

func TestValidate_Collect(t *testing.T) {
	q := &Query{
		Variable: "o",
		Source:   CollectionSource{Name: "orders"},
		Collects: []Collect{{
			Variables:  []Assignment{{Key: "status", Value: Ref{Path: "o.status"}}},
			Aggregates: []Aggregate{{Name: "c", Function: "MEDIAN"}},
			Keep:       []string{"o"},
		}},
		ReturnValue: Ref{Path: "status"},
	}

	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidOperator, ErrCodeKeepWithoutInto}, codes(Validate(q)))
}

func TestValidate_Window(t *testing.T) {
	q := &Query{
		Variable:    "t",
		Source:      CollectionSource{Name: "temps"},
		Windows:     []Window{{}},
		ReturnValue: Ref{Path: "t"},
	}

	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidValue, ErrCodeInvalidValue}, codes(Validate(q)))
}

func TestValidate_OperationVariable(t *testing.T) {
	q := &Query{
		Variable: "u",
		Source:   CollectionSource{Name: "users"},
		Operations: []Operation{
			{Type: OpInsert, Document: Ref{Path: "u"}, Collection: "backup", Variable: "u"},
			{Type: OpUpdate, Document: Object{}, Collection: "users", Variable: "u"},
			{Type: "MERGE", Document: Ref{Path: "u"}, Collection: "users"},
		},
	}

	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidValue, ErrCodeInvalidOperator}, codes(Validate(q)))
}

func TestValidate_UpsertsAndEnhancedUpdates(t *testing.T) {
	q := &Query{
		Upserts: []Upsert{{Search: Object{}, Insert: Object{}, Update: Object{}}},
		UpdatesEnhanced: []EnhancedUpdate{
			{Collection: "users"},
			{Variable: "u", UpdateFields: Object{}, Collection: "users", OldReference: "prev"},
		},
	}

	assert.Equal(t, []ConfigErrorCode{ErrCodeMissingCollection, ErrCodeInvalidValue}, codes(Validate(q)))
}

func TestValidate_Subquery(t *testing.T) {
	sub := &Query{Variable: "o", Limit: i64(-1), ReturnValue: Ref{Path: "o"}}
	q := &Query{
		Variable:       "u",
		Source:         CollectionSource{Name: "users"},
		LetsPreCollect: []Let{{Name: "orders", Expression: Subquery{Query: sub}}},
		ReturnValue:    Ref{Path: "u"},
	}

	result := Validate(q)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, "letsPreCollect[0].expression.query.source", result.Errors[0].Field)
	assert.Equal(t, "letsPreCollect[0].expression.query.limit", result.Errors[1].Field)
}

func TestValidate_NestedRawRejected(t *testing.T) {
	q := &Query{ReturnValue: Subquery{Query: &Query{Raw: "FOR x IN y RETURN x"}}}
	assert.Equal(t, []ConfigErrorCode{ErrCodeInvalidValue}, codes(Validate(q)))
}

func TestValidate_RawQuery(t *testing.T) {
	assert.True(t, Validate(&Query{Raw: "RETURN @x", RawBindVars: map[string]any{"x": 1}}).Valid())
	assert.False(t, Validate(&Query{Raw: "RETURN @x", RawBindVars: map[string]any{"x": func() {}}}).Valid())
}

func TestValidate_Idempotent(t *testing.T) {
	q := &Query{Variable: "u", Limit: i64(-1)}

	first := Validate(q)
	second := Validate(q)

	assert.Equal(t, first, second)
}
