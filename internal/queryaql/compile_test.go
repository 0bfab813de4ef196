package queryaql

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryir"
)

func i64(n int64) *int64 { return &n }

func lit(v any) queryir.Literal { return queryir.Literal{Value: ir.MustNormalize(v)} }

func ref(p string) queryir.Ref { return queryir.Ref{Path: p} }

func bin(op string, l, r queryir.Expr) queryir.Binary {
	return queryir.Binary{Op: op, Left: l, Right: r}
}

func users() *queryir.Query {
	return &queryir.Query{Collection: "users", Variable: "u", Source: queryir.CollectionSource{Name: "users"}}
}

// assertGolden compares the query text and canonical bind variables with
// testdata/golden/<name>.golden.
func assertGolden(t *testing.T, name string, res *Result) {
	t.Helper()

	bindVars, err := ir.MarshalCanonical(res.BindVars)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(res.Query+"\n\n"+string(bindVars)+"\n"))
}

func TestCompile_ForFilterReturn(t *testing.T) {
	q := users()
	q.Filters = []queryir.Expr{bin(queryir.OpGte, ref("u.age"), lit(18))}
	q.ReturnValue = ref("u")

	res, err := Compile(q)
	require.NoError(t, err)

	assert.Equal(t, []string{"FOR u IN users", "FILTER (u.age >= @value0)", "RETURN u"}, res.Lines())
	assert.Equal(t, map[string]any{"value0": int64(18)}, res.BindVars)
}

func TestCompile_CollectAggregate(t *testing.T) {
	q := &queryir.Query{
		Collection: "orders", Variable: "o", Source: queryir.CollectionSource{Name: "orders"},
		Collects: []queryir.Collect{{
			Variables: []queryir.Assignment{{Key: "status", Value: ref("o.status")}},
			Aggregates: []queryir.Aggregate{
				{Name: "c", Function: queryir.AggCount},
				{Name: "t", Function: queryir.AggSum, Expression: ref("o.amount")},
			},
		}},
		ReturnValue: ref("status"),
	}

	res, err := Compile(q)
	require.NoError(t, err)

	lines := res.Lines()
	require.Len(t, lines, 4)
	assert.Equal(t, "COLLECT status = o.status", lines[1])
	assert.Equal(t, "  AGGREGATE c = COUNT(1), t = SUM(o.amount)", lines[2])
}

func TestCompile_CollectWithoutVariables(t *testing.T) {
	q := users()
	q.Collects = []queryir.Collect{{Aggregates: []queryir.Aggregate{{Name: "n", Function: queryir.AggCount}}}}
	q.ReturnValue = ref("n")

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"FOR u IN users", "COLLECT", "  AGGREGATE n = COUNT(1)", "RETURN n"}, res.Lines())
}

func TestCompile_CollectIntoKeep(t *testing.T) {
	q := users()
	q.LetsPreCollect = []queryir.Let{{Name: "name", Expression: ref("u.name")}}
	q.Collects = []queryir.Collect{{
		Variables: []queryir.Assignment{{Key: "city", Value: ref("u.city")}},
		Into:      "groups",
		Keep:      []string{"name"},
	}}
	q.ReturnValue = ref("groups")

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FOR u IN users",
		"LET name = u.name",
		"COLLECT city = u.city",
		"  INTO groups",
		"  KEEP name",
		"RETURN groups",
	}, res.Lines())
}

func TestCompile_InArrayUsesInValuesNamespace(t *testing.T) {
	q := &queryir.Query{
		Variable: "x", Collection: "xs", Source: queryir.CollectionSource{Name: "xs"},
		Filters: []queryir.Expr{
			bin(queryir.OpIn, ref("x"), lit([]any{"a", "b"})),
			bin(queryir.OpNotIn, ref("x.tag"), lit([]any{"c"})),
		},
		ReturnValue: lit([]any{int64(1), int64(2)}),
	}

	res, err := Compile(q)
	require.NoError(t, err)

	assert.Contains(t, res.Query, "(x IN @inValues0)")
	assert.Contains(t, res.Query, "(x.tag NOT IN @inValues1)")
	assert.Contains(t, res.Query, "RETURN @array0")
	assert.Equal(t, map[string]any{
		"inValues0": []any{"a", "b"},
		"inValues1": []any{"c"},
		"array0":    []any{int64(1), int64(2)},
	}, res.BindVars)
}

func TestCompile_InExpressionRightSide(t *testing.T) {
	q := users()
	q.Filters = []queryir.Expr{bin(queryir.OpIn, lit("admin"), ref("u.roles"))}
	q.ReturnValue = ref("u")

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Contains(t, res.Query, "FILTER (@value0 IN u.roles)")
}

func TestCompile_PatternNamespaces(t *testing.T) {
	q := users()
	q.Filters = []queryir.Expr{
		queryir.Like{Expr: ref("u.name"), Pattern: "A%"},
		queryir.Like{Expr: ref("u.city"), Pattern: "%berg", CaseInsensitive: true},
		queryir.Regex{Expr: ref("u.email"), Pattern: `^[a-z]+@`},
		queryir.Regex{Expr: ref("u.email"), Pattern: `\.COM$`, Flags: "i"},
	}
	q.ReturnValue = ref("u")

	res, err := Compile(q)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FOR u IN users",
		"FILTER (u.name LIKE @likePattern0)",
		"FILTER LIKE(u.city, @likePattern1, true)",
		"FILTER (u.email =~ @regexPattern0)",
		"FILTER REGEX_TEST(u.email, @regexPattern1, true)",
		"RETURN u",
	}, res.Lines())
	assert.Equal(t, "A%", res.BindVars["likePattern0"])
	assert.Equal(t, `\.COM$`, res.BindVars["regexPattern1"])
}

func TestCompile_InjectionSafety(t *testing.T) {
	hostile := `" RETURN 1 //`
	q := users()
	q.Filters = []queryir.Expr{
		bin(queryir.OpEq, ref("u.name"), lit(hostile)),
		queryir.Like{Expr: ref("u.bio"), Pattern: hostile},
		bin(queryir.OpIn, ref("u.tag"), lit([]any{hostile})),
	}
	q.Operations = []queryir.Operation{{
		Type:       queryir.OpUpdate,
		Variable:   "u",
		Document:   queryir.Object{Fields: []queryir.Field{{Key: "note", Value: lit(map[string]any{"text": hostile})}}},
		Collection: "users",
	}}

	res, err := Compile(q)
	require.NoError(t, err)

	assert.NotContains(t, res.Query, hostile)
	assert.NotContains(t, res.Query, "RETURN 1")
	assert.Equal(t, hostile, res.BindVars["value0"])
	assert.Equal(t, hostile, res.BindVars["likePattern0"])
	assert.Equal(t, []any{hostile}, res.BindVars["inValues0"])
	assert.Equal(t, map[string]any{"text": hostile}, res.BindVars["value1"])
}

func TestCompile_AlwaysParameterizesScalars(t *testing.T) {
	q := users()
	q.Filters = []queryir.Expr{
		bin(queryir.OpEq, ref("u.active"), lit(true)),
		bin(queryir.OpEq, ref("u.deleted"), lit(nil)),
		bin(queryir.OpGt, ref("u.score"), lit(2.5)),
	}
	q.ReturnValue = ref("u")

	res, err := Compile(q)
	require.NoError(t, err)

	assert.NotContains(t, res.Query, "true")
	assert.NotContains(t, res.Query, "null")
	assert.NotContains(t, res.Query, "2.5")
	assert.Equal(t, map[string]any{"value0": true, "value1": nil, "value2": 2.5}, res.BindVars)
}

func TestCompile_GraphTraversal(t *testing.T) {
	q := &queryir.Query{
		Variable: "v",
		Source: queryir.GraphSource{
			Graph: "g", Direction: queryir.DirectionOutbound, StartVertex: "users/123", MinDepth: 1, MaxDepth: 3,
		},
		ReturnValue: ref("v"),
	}

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `FOR v IN 1..3 OUTBOUND "users/123" GRAPH "g"`, res.Lines()[0])
}

func TestCompile_EdgeCollectionTraversal(t *testing.T) {
	q := &queryir.Query{
		MultipleLoopVars: &queryir.LoopVars{Vertex: "v", Edge: "e"},
		Source: queryir.GraphSource{
			EdgeCollections: []string{"knows", "follows"}, Direction: queryir.DirectionAny, StartVertex: "@start", MinDepth: 2, MaxDepth: 2,
		},
		ReturnValue: ref("v"),
	}

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "FOR v, e IN 2..2 ANY @start knows, follows", res.Lines()[0])
}

func TestStartVertex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users/123", `"users/123"`},
		{"@start", "@start"},
		{"u", "u"},
		{"u._id", "u._id"},
		{`"users/1"`, `"users/1"`},
		{`"a" GRAPH "x"`, `"\"a\" GRAPH \"x\""`},
		{"u RETURN 1", `"u RETURN 1"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, startVertex(tt.in))
		})
	}
}

func TestCompile_Operations(t *testing.T) {
	doc := queryir.Object{Fields: []queryir.Field{{Key: "name", Value: lit("Ann")}}}

	tests := []struct {
		name string
		op   queryir.Operation
		want string
	}{
		{
			name: "insert",
			op:   queryir.Operation{Type: queryir.OpInsert, Document: doc, Collection: "users"},
			want: `INSERT {"name": @value0} INTO users`,
		},
		{
			name: "update with key document",
			op:   queryir.Operation{Type: queryir.OpUpdate, Document: ref("u"), Collection: "users"},
			want: "UPDATE u IN users",
		},
		{
			name: "update variable",
			op:   queryir.Operation{Type: queryir.OpUpdate, Variable: "u", Document: doc, Collection: "users"},
			want: `UPDATE u WITH {"name": @value0} IN users`,
		},
		{
			name: "replace variable",
			op:   queryir.Operation{Type: queryir.OpReplace, Variable: "u", Document: doc, Collection: "@@coll"},
			want: `REPLACE u WITH {"name": @value0} IN @@coll`,
		},
		{
			name: "remove with options",
			op: queryir.Operation{
				Type: queryir.OpRemove, Document: ref("u._key"), Collection: "users",
				Options: queryir.Object{Fields: []queryir.Field{{Key: "ignoreErrors", Value: lit(true)}}},
			},
			want: `REMOVE u._key IN users OPTIONS {"ignoreErrors": @value0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(&queryir.Query{Operations: []queryir.Operation{tt.op}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Query)
		})
	}
}

func TestCompile_EnhancedUpdate(t *testing.T) {
	q := users()
	q.UpdatesEnhanced = []queryir.EnhancedUpdate{{
		Variable:     "u",
		UpdateFields: queryir.Object{Fields: []queryir.Field{{Key: "tmp", Value: lit(nil)}}},
		Collection:   "users",
		OldReference: "before",
	}}
	q.ReturnValue = ref("before")

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FOR u IN users",
		`UPDATE u WITH {"tmp": @value0} IN users`,
		"LET before = OLD",
		"RETURN before",
	}, res.Lines())
}

func TestCompile_EnhancedUpdateDocumentTarget(t *testing.T) {
	q := &queryir.Query{UpdatesEnhanced: []queryir.EnhancedUpdate{{
		Document:   queryir.Object{Fields: []queryir.Field{{Key: "_key", Value: queryir.Param{Name: "key"}}}},
		Collection: "users",
	}}}

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE {"_key": @key} IN users`, res.Query)
}

func TestCompile_Window(t *testing.T) {
	q := users()
	q.Sorts = []queryir.Sort{{Field: ref("u.time")}}
	q.Windows = []queryir.Window{
		{
			Preceding:  lit("unbounded"),
			Following:  lit(0),
			Aggregates: []queryir.Aggregate{{Name: "total", Function: queryir.AggSum, Expression: ref("u.value")}},
		},
		{
			Range:      ref("u.time"),
			Preceding:  lit(3600),
			Aggregates: []queryir.Aggregate{{Name: "n", Function: queryir.AggCount}},
		},
	}
	q.ReturnValue = ref("total")

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FOR u IN users",
		"SORT u.time ASC",
		"WINDOW { preceding: @value0, following: @value1 }",
		"  AGGREGATE total = SUM(u.value)",
		"WINDOW u.time WITH { preceding: @value2 }",
		"  AGGREGATE n = COUNT(1)",
		"RETURN total",
	}, res.Lines())
}

func TestCompile_ExpressionForms(t *testing.T) {
	tests := []struct {
		name string
		e    queryir.Expr
		want string
	}{
		{"not", queryir.Unary{Op: queryir.OpNot, Operand: ref("u.active")}, "NOT u.active"},
		{"negate", queryir.Unary{Op: queryir.OpNegate, Operand: ref("u.n")}, "-u.n"},
		{"function", queryir.Func{Name: "CONCAT", Args: []queryir.Expr{ref("u.a"), ref("u.b")}}, "CONCAT(u.a, u.b)"},
		{"namespaced function", queryir.Func{Name: "GEO::DISTANCE", Args: nil}, "GEO::DISTANCE()"},
		{"old", queryir.Old{Path: "visits"}, "OLD.visits"},
		{"bare old", queryir.Old{}, "OLD"},
		{"param", queryir.Param{Name: "p"}, "@p"},
		{"collection param", queryir.Param{Name: "c", Collection: true}, "@@c"},
		{"all", queryir.Quantifier{Kind: queryir.QuantifierAll, Expr: ref("u.xs"), Cond: bin(queryir.OpGt, ref("CURRENT"), ref("u.min"))}, "u.xs[? ALL FILTER (CURRENT > u.min)]"},
		{"any", queryir.Quantifier{Kind: queryir.QuantifierAny, Expr: ref("u.xs"), Cond: ref("CURRENT.ok")}, "u.xs[? ANY FILTER CURRENT.ok]"},
		{"unset", queryir.Unset{Object: ref("u"), Fields: []string{"_rev"}}, "UNSET(u, @value0)"},
		{"empty object", queryir.Object{}, "{}"},
		{"array", queryir.Array{Elements: []queryir.Expr{ref("a"), ref("b")}}, "[a, b]"},
		{"quoted key", queryir.Object{Fields: []queryir.Field{{Key: `a"b`, Value: ref("x")}}}, `{"a\"b": x}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(&queryir.Query{ReturnValue: tt.e})
			require.NoError(t, err)
			assert.Equal(t, "RETURN "+tt.want, res.Query)
		})
	}
}

func TestCompile_ReturnDistinctWithAndLimit(t *testing.T) {
	q := users()
	q.WithCollections = []string{"users", "groups"}
	q.Limit = i64(5)
	q.ReturnValue = ref("u.city")
	q.ReturnDistinct = true

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"WITH users, groups", "FOR u IN users", "LIMIT 5", "RETURN DISTINCT u.city"}, res.Lines())
}

func TestCompile_SearchAndTraversals(t *testing.T) {
	q := &queryir.Query{
		Variable: "d", Source: queryir.CollectionSource{Name: "docsView"},
		Searches: []queryir.Expr{
			queryir.Func{Name: "PHRASE", Args: []queryir.Expr{ref("d.text"), lit("graph")}},
			bin(queryir.OpEq, ref("d.lang"), lit("en")),
		},
		Traversals: []queryir.Traversal{{
			Vars:   queryir.LoopVars{Vertex: "a", Edge: "l"},
			Source: queryir.GraphSource{EdgeCollections: []string{"links"}, Direction: queryir.DirectionInbound, StartVertex: "d", MinDepth: 1, MaxDepth: 1},
		}},
		Prunes:      []queryir.Expr{bin(queryir.OpEq, ref("a.hidden"), lit(true))},
		ReturnValue: ref("a"),
	}

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FOR d IN docsView",
		"SEARCH PHRASE(d.text, @value0) AND (d.lang == @value1)",
		"FOR a, l IN 1..1 INBOUND d links",
		"PRUNE (a.hidden == @value2)",
		"RETURN a",
	}, res.Lines())
}

func TestCompile_Raw(t *testing.T) {
	vars := map[string]any{"min": 1}
	q := &queryir.Query{Raw: "FOR u IN users FILTER u.score > @min RETURN u", RawBindVars: vars}

	res, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, q.Raw, res.Query)
	assert.Equal(t, vars, res.BindVars)
}

func TestCompile_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		q    *queryir.Query
		code queryir.ConfigErrorCode
	}{
		{"variable without source", &queryir.Query{Variable: "u", ReturnValue: ref("u")}, queryir.ErrCodeMissingSource},
		{"operation without collection", &queryir.Query{Operations: []queryir.Operation{{Type: queryir.OpInsert, Document: lit(map[string]any{})}}}, queryir.ErrCodeMissingCollection},
		{"negative limit", func() *queryir.Query { q := users(); q.Limit = i64(-1); return q }(), queryir.ErrCodeNegativeLimit},
		{"negative offset", func() *queryir.Query { q := users(); q.Limit = i64(1); q.Offset = i64(-1); return q }(), queryir.ErrCodeNegativeOffset},
		{"empty", &queryir.Query{}, queryir.ErrCodeEmptyQuery},
		{"injected ref", &queryir.Query{ReturnValue: ref("u RETURN 1")}, queryir.ErrCodeInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.q)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, queryir.HasCode(err, tt.code), "want %s in %v", tt.code, err)
		})
	}
}

func TestCompile_Nil(t *testing.T) {
	_, err := Compile(nil)
	assert.Error(t, err)
}

func TestCompile_Idempotent(t *testing.T) {
	q := clauseOrderQuery()

	first, err := Compile(q)
	require.NoError(t, err)
	second, err := Compile(q)
	require.NoError(t, err)

	assert.Equal(t, first.Query, second.Query)
	assert.Empty(t, cmp.Diff(first.BindVars, second.BindVars))
}

func TestCompile_SnapshotRoundTrip(t *testing.T) {
	for name, q := range map[string]*queryir.Query{
		"clause order": clauseOrderQuery(),
		"subquery":     subqueryQuery(),
		"graph":        graphQuery(),
	} {
		t.Run(name, func(t *testing.T) {
			before, err := Compile(q)
			require.NoError(t, err)

			data, err := queryir.ToJSON(q)
			require.NoError(t, err)
			restored, err := queryir.FromJSON(data)
			require.NoError(t, err)

			after, err := Compile(restored)
			require.NoError(t, err)

			assert.Equal(t, before.Query, after.Query)
			assert.Empty(t, cmp.Diff(before.BindVars, after.BindVars))
		})
	}
}

func TestCompile_BindNamesUniqueAndIncreasing(t *testing.T) {
	res, err := Compile(clauseOrderQuery())
	require.NoError(t, err)

	for i := 0; i < len(res.BindVars); i++ {
		name := "value" + string(rune('0'+i))
		assert.Contains(t, res.BindVars, name)
		assert.Equal(t, 1, strings.Count(res.Query, "@"+name), name)
	}
}

func TestResult_Fingerprint(t *testing.T) {
	a, err := Compile(clauseOrderQuery())
	require.NoError(t, err)
	b, err := Compile(clauseOrderQuery())
	require.NoError(t, err)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)

	b.BindVars["value0"] = int64(2)
	fc, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestResult_Lines(t *testing.T) {
	assert.Nil(t, (&Result{}).Lines())
	assert.Equal(t, []string{"a", "b"}, (&Result{Query: "a\nb"}).Lines())
}

func clauseOrderQuery() *queryir.Query {
	q := users()
	q.WithCollections = []string{"users"}
	q.Joins = []queryir.Join{{Variable: "i", Source: queryir.RangeSource{Start: lit(1), End: lit(3)}}}
	q.LetsPreCollect = []queryir.Let{{Name: "n", Expression: queryir.Func{Name: "LENGTH", Args: []queryir.Expr{ref("u.friends")}}}}
	q.Filters = []queryir.Expr{bin(queryir.OpGte, ref("u.age"), lit(18))}
	q.Collects = []queryir.Collect{{
		Variables: []queryir.Assignment{{Key: "city", Value: ref("u.city")}},
		Aggregates: []queryir.Aggregate{
			{Name: "c", Function: queryir.AggCount},
			{Name: "avgAge", Function: queryir.AggAverage, Expression: ref("u.age")},
		},
		Into: "members",
	}}
	q.Lets = []queryir.Let{{Name: "label", Expression: queryir.Ternary{
		Cond: bin(queryir.OpGt, ref("c"), lit(10)),
		Then: lit("big"),
		Else: lit("small"),
	}}}
	q.FiltersPostCollect = []queryir.Expr{bin(queryir.OpGt, ref("c"), lit(1))}
	q.Sorts = []queryir.Sort{{Field: ref("c"), Direction: queryir.SortDesc}, {Field: ref("city")}}
	q.Limit = i64(10)
	q.Offset = i64(20)
	q.ReturnValue = queryir.Object{Fields: []queryir.Field{
		{Key: "city", Value: ref("city")},
		{Key: "count", Value: ref("c")},
		{Key: "label", Value: ref("label")},
	}}
	return q
}

func subqueryQuery() *queryir.Query {
	q := users()
	q.Filters = []queryir.Expr{bin(queryir.OpEq, ref("u.active"), lit(true))}
	q.ReturnValue = queryir.Object{Fields: []queryir.Field{
		{Key: "user", Value: ref("u")},
		{Key: "orders", Value: queryir.Subquery{Query: &queryir.Query{
			Collection: "orders", Variable: "o", Source: queryir.CollectionSource{Name: "orders"},
			Filters: []queryir.Expr{
				bin(queryir.OpEq, ref("o.userId"), ref("u._key")),
				bin(queryir.OpGt, ref("o.total"), lit(100)),
			},
			ReturnValue: ref("o"),
		}}},
	}}
	return q
}

func graphQuery() *queryir.Query {
	return &queryir.Query{
		MultipleLoopVars: &queryir.LoopVars{Vertex: "v", Edge: "e", Path: "p"},
		Source: queryir.GraphSource{
			Graph: "g", Direction: queryir.DirectionOutbound, StartVertex: "users/123", MinDepth: 1, MaxDepth: 3,
			Options: queryir.Object{Fields: []queryir.Field{{Key: "uniqueVertices", Value: lit("path")}}},
		},
		Prunes:      []queryir.Expr{bin(queryir.OpEq, ref("v.blocked"), lit(true))},
		ReturnValue: ref("p"),
	}
}

func TestCompile_Golden(t *testing.T) {
	mutations := users()
	mutations.Filters = []queryir.Expr{queryir.Like{Expr: ref("u.email"), Pattern: "%@example.com"}}
	mutations.Operations = []queryir.Operation{{
		Type:     queryir.OpUpdate,
		Variable: "u",
		Document: queryir.Object{Fields: []queryir.Field{
			{Key: "visits", Value: bin(queryir.OpAdd, queryir.Old{Path: "visits"}, lit(1))},
		}},
		Collection: "users",
		Options:    queryir.Object{Fields: []queryir.Field{{Key: "keepNull", Value: lit(false)}}},
	}}
	mutations.ReturnValue = ref("NEW")

	upsert := &queryir.Query{
		Upserts: []queryir.Upsert{{
			Search: queryir.Object{Fields: []queryir.Field{{Key: "_key", Value: queryir.Param{Name: "key"}}}},
			Insert: queryir.Object{Fields: []queryir.Field{
				{Key: "_key", Value: queryir.Param{Name: "key"}},
				{Key: "hits", Value: lit(1)},
			}},
			Update: queryir.Object{Fields: []queryir.Field{
				{Key: "hits", Value: bin(queryir.OpAdd, queryir.Old{Path: "hits"}, lit(1))},
			}},
			Collection: "@@counters",
		}},
		ReturnValue: ref("NEW"),
	}

	tests := []struct {
		name string
		q    *queryir.Query
	}{
		{"clause_order", clauseOrderQuery()},
		{"subquery", subqueryQuery()},
		{"graph_traversal", graphQuery()},
		{"mutations", mutations},
		{"upsert", upsert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.q)
			require.NoError(t, err)
			assertGolden(t, tt.name, res)
		})
	}
}
