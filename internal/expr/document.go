package expr

import (
	"reflect"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryir"
)

// FieldSpec is one key of a document built with Fields.
type FieldSpec struct {
	Key   string
	Value any
}

// F pairs a key with a value for Fields.
func F(key string, v any) FieldSpec {
	return FieldSpec{Key: key, Value: v}
}

// Fields builds a document with the given key order. Values are coerced
// with Value, so references and parameters can be mixed with literals.
func Fields(fields ...FieldSpec) Expr {
	out := make([]queryir.Field, len(fields))
	for i, f := range fields {
		out[i] = queryir.Field{Key: f.Key, Value: Value(f.Value).node}
	}
	return Expr{node: queryir.Object{Fields: out}}
}

// Doc builds a document field by field from a map or struct, in sorted key
// order. Nested maps become nested documents; every other value is coerced
// with Value. Anything that is not a map is returned as Value(v).
func Doc(v any) Expr {
	m, ok := asMap(v)
	if !ok {
		return Value(v)
	}
	keys := ir.SortedKeys(m)
	out := make([]queryir.Field, len(keys))
	for i, k := range keys {
		out[i] = queryir.Field{Key: k, Value: Doc(m[k]).node}
	}
	return Expr{node: queryir.Object{Fields: out}}
}

// asMap returns the fields of v without normalizing map values, so
// expressions nested in a map keep their identity.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil, string, Expr, queryir.Expr, *queryir.Query, AST, Pending:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, true
	}

	n, err := ir.Normalize(v)
	if err != nil {
		return nil, false
	}
	m, ok := n.(map[string]any)
	return m, ok
}
