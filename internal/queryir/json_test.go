package queryir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON_Shape(t *testing.T) {
	q := &Query{
		Variable: "u",
		Source:   CollectionSource{Name: "users"},
		Filters: []Expr{
			Binary{Op: OpGte, Left: Ref{Path: "u.age"}, Right: Literal{Value: int64(18)}},
		},
		ReturnValue: Ref{Path: "u"},
	}

	data, err := ToJSON(q)
	require.NoError(t, err)

	expected := `{"variable":"u","source":"users","filters":[{"type":"binary","op":">=",` +
		`"left":{"type":"reference","name":"u.age"},"right":{"type":"literal","value":18}}],` +
		`"returnValue":{"type":"reference","name":"u"}}`
	assert.Equal(t, expected, string(data))
}

func TestToJSON_LiteralKeepsNumericIdentity(t *testing.T) {
	data, err := ToJSON(&Query{ReturnValue: Array{Elements: []Expr{
		Literal{Value: int64(2)},
		Literal{Value: 2.0},
	}}})
	require.NoError(t, err)

	assert.Contains(t, string(data), `{"type":"literal","value":2}`)
	assert.Contains(t, string(data), `{"type":"literal","value":2.0}`)

	back, err := FromJSON(data)
	require.NoError(t, err)
	elems := back.ReturnValue.(Array).Elements
	assert.Equal(t, Literal{Value: int64(2)}, elems[0])
	assert.Equal(t, Literal{Value: 2.0}, elems[1])
}

func TestToJSON_NoHTMLEscaping(t *testing.T) {
	data, err := ToJSON(&Query{ReturnValue: Literal{Value: "<b>&</b>"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"<b>&</b>"`)
}

func TestToJSON_Nil(t *testing.T) {
	_, err := ToJSON(nil)
	assert.Error(t, err)
}

func fullQuery() *Query {
	return &Query{
		Collection: "users",
		Variable:   "u",
		Source:     CollectionSource{Name: "users"},
		Joins: []Join{
			{Variable: "i", Source: RangeSource{Start: Literal{Value: int64(1)}, End: Literal{Value: int64(3)}}},
		},
		LetsPreCollect: []Let{{Name: "n", Expression: Func{Name: "LENGTH", Args: []Expr{Ref{Path: "u.friends"}}}}},
		Searches:       []Expr{Func{Name: "PHRASE", Args: []Expr{Ref{Path: "u.bio"}, Literal{Value: "go"}}}},
		Filters: []Expr{
			Binary{Op: OpAnd,
				Left:  Like{Expr: Ref{Path: "u.name"}, Pattern: "A%", CaseInsensitive: true},
				Right: Regex{Expr: Ref{Path: "u.email"}, Pattern: "@example\\.com$", Flags: "i"},
			},
			Quantifier{Kind: QuantifierAny, Expr: Ref{Path: "u.tags"}, Cond: Binary{Op: OpEq, Left: Ref{Path: "CURRENT"}, Right: Literal{Value: "go"}}},
			Unary{Op: OpNot, Operand: Binary{Op: OpIn, Left: Ref{Path: "u.role"}, Right: Literal{Value: []any{"banned", "muted"}}}},
		},
		Collects: []Collect{{
			Variables:  []Assignment{{Key: "city", Value: Ref{Path: "u.city"}}},
			Aggregates: []Aggregate{{Name: "c", Function: AggCount}, {Name: "avg", Function: AggAverage, Expression: Ref{Path: "u.age"}}},
			Into:       "members",
			Keep:       []string{"u"},
		}},
		Traversals: []Traversal{{
			Vars:   LoopVars{Vertex: "v", Edge: "e"},
			Source: GraphSource{EdgeCollections: []string{"knows"}, Direction: DirectionAny, StartVertex: "u", MinDepth: 1, MaxDepth: 2},
		}},
		Prunes:             []Expr{Binary{Op: OpEq, Left: Ref{Path: "v.blocked"}, Right: Literal{Value: true}}},
		Lets:               []Let{{Name: "label", Expression: Ternary{Cond: Binary{Op: OpGt, Left: Ref{Path: "c"}, Right: Literal{Value: int64(10)}}, Then: Literal{Value: "big"}, Else: Literal{Value: "small"}}}},
		FiltersPostCollect: []Expr{Binary{Op: OpGt, Left: Ref{Path: "c"}, Right: Literal{Value: 1.5}}},
		Sorts:              []Sort{{Field: Ref{Path: "c"}, Direction: SortDesc}},
		Windows: []Window{{
			Preceding:  Literal{Value: "unbounded"},
			Following:  Literal{Value: int64(0)},
			Aggregates: []Aggregate{{Name: "running", Function: AggSum, Expression: Ref{Path: "c"}}},
		}},
		Limit:  i64(10),
		Offset: i64(20),
		Operations: []Operation{{
			Type:       OpUpdate,
			Variable:   "u",
			Document:   Object{Fields: []Field{{Key: "visits", Value: Binary{Op: OpAdd, Left: Old{Path: "visits"}, Right: Literal{Value: int64(1)}}}}},
			Collection: "users",
			Options:    Object{Fields: []Field{{Key: "keepNull", Value: Literal{Value: false}}}},
		}},
		Upserts: []Upsert{{
			Search:     Object{Fields: []Field{{Key: "_key", Value: Param{Name: "key"}}}},
			Insert:     Object{Fields: []Field{{Key: "n", Value: Literal{Value: int64(1)}}}},
			Update:     Unset{Object: Ref{Path: "OLD"}, Fields: []string{"tmp"}},
			Collection: "@@counters",
			Replace:    true,
		}},
		UpdatesEnhanced: []EnhancedUpdate{{
			Variable:     "u",
			UpdateFields: Object{Fields: []Field{{Key: "seen", Value: Literal{Value: map[string]any{"at": "now", "n": int64(2)}}}}},
			Collection:   "users",
			OldReference: "previous",
		}},
		WithCollections: []string{"users", "knows"},
		ReturnValue: Object{Fields: []Field{
			{Key: "user", Value: Ref{Path: "u"}},
			{Key: "orders", Value: Subquery{Query: &Query{
				Variable:    "o",
				Source:      CollectionSource{Name: "orders"},
				Filters:     []Expr{Binary{Op: OpEq, Left: Ref{Path: "o.userId"}, Right: Ref{Path: "u._key"}}},
				ReturnValue: Ref{Path: "o"},
			}}},
			{Key: "coll", Value: Param{Name: "coll", Collection: true}},
			{Key: "ids", Value: Array{Elements: []Expr{Literal{Value: nil}, Literal{Value: int64(1)}}}},
		}},
		ReturnDistinct: true,
	}
}

func TestJSON_RoundTripIsStructural(t *testing.T) {
	q := fullQuery()

	data, err := ToJSON(q)
	require.NoError(t, err)

	back, err := FromJSON(data)
	require.NoError(t, err)

	if diff := cmp.Diff(q, back, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := ToJSON(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "snapshot of a restored query must be identical")
}

func TestJSON_GraphSourceRoundTrip(t *testing.T) {
	q := &Query{
		MultipleLoopVars: &LoopVars{Vertex: "v", Edge: "e", Path: "p"},
		Source: GraphSource{
			Graph: "social", Direction: DirectionOutbound, StartVertex: "users/123", MinDepth: 1, MaxDepth: 3,
			Options: Object{Fields: []Field{{Key: "uniqueVertices", Value: Literal{Value: "path"}}}},
		},
		ReturnValue: Ref{Path: "p"},
	}

	data, err := ToJSON(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source":{"type":"graph","graph":"social","direction":"OUTBOUND","startVertex":"users/123","minDepth":1,"maxDepth":3`)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(q, back, cmpopts.EquateEmpty()))
}

func TestJSON_RawRoundTrip(t *testing.T) {
	q := &Query{Raw: "FOR u IN users FILTER u.score > @min RETURN u", RawBindVars: map[string]any{"min": 1.0, "n": 3}}

	data, err := ToJSON(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rawBindVars":{"min":1.0,"n":3}`)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, q.Raw, back.Raw)
	assert.Equal(t, map[string]any{"min": 1.0, "n": int64(3)}, back.RawBindVars)
}

func TestJSON_QueryUnmarshalJSON(t *testing.T) {
	var q Query
	err := q.UnmarshalJSON([]byte(`{"variable":"u","source":"users","returnValue":{"type":"reference","name":"u"}}`))
	require.NoError(t, err)

	assert.Equal(t, "u", q.Variable)
	assert.Equal(t, CollectionSource{Name: "users"}, q.Source)
	assert.Equal(t, Ref{Path: "u"}, q.ReturnValue)
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		path    string
		message string
	}{
		{
			name:    "malformed",
			input:   `{"variable":`,
			message: "malformed query",
		},
		{
			name:    "missing discriminator",
			input:   `{"returnValue":{"name":"u"}}`,
			path:    "returnValue",
			message: `missing node discriminator "type"`,
		},
		{
			name:    "missing nested discriminator",
			input:   `{"filters":[{"type":"binary","op":"==","left":{"type":"reference","name":"a"},"right":{"value":1}}]}`,
			path:    "filters[0].right",
			message: `missing node discriminator "type"`,
		},
		{
			name:    "unknown discriminator",
			input:   `{"returnValue":{"type":"lambda"}}`,
			path:    "returnValue",
			message: `unknown node type "lambda"`,
		},
		{
			name:    "missing required child",
			input:   `{"returnValue":{"type":"unary","op":"NOT"}}`,
			path:    "returnValue.operand",
			message: "missing expression",
		},
		{
			name:    "source without discriminator",
			input:   `{"variable":"i","source":{"start":1,"end":2}}`,
			path:    "source",
			message: `missing source discriminator "type"`,
		},
		{
			name:    "subquery discriminator",
			input:   `{"returnValue":{"type":"subquery","query":{"returnValue":{"name":"x"}}}}`,
			path:    "returnValue.query.returnValue",
			message: `missing node discriminator "type"`,
		},
		{
			name:    "raw bind vars not object",
			input:   `{"raw":"RETURN 1","rawBindVars":[1]}`,
			path:    "rawBindVars",
			message: "bind variables must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.input))
			require.Error(t, err)

			var se *SerializationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
			assert.Equal(t, tt.message, se.Message)
		})
	}
}

func TestFromJSON_NullLiteral(t *testing.T) {
	q, err := FromJSON([]byte(`{"returnValue":{"type":"literal","value":null}}`))
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: nil}, q.ReturnValue)
}
