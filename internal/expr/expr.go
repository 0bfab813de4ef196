// Package expr builds queryir expression nodes fluently.
//
// Every combinator returns a new Expr; the receiver is never modified, so
// sub-expressions can be shared freely:
//
//	adult := expr.Ref("u.age").Gte(18)
//	active := expr.Ref("u.status").Eq("active")
//	q.Filter(adult.And(active))
//
// Plain Go values passed to a combinator become literals, and literals are
// always bound by the compiler. The strings "@name" and "@@name" become
// caller-supplied parameters instead.
package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryir"
)

// Expr wraps an expression node with fluent combinators.
type Expr struct {
	node queryir.Expr
}

// Node returns the underlying AST node.
func (e Expr) Node() queryir.Expr {
	return e.node
}

// String renders the node for debugging.
func (e Expr) String() string {
	return fmt.Sprintf("%#v", e.node)
}

// Wrap lifts an AST node into an Expr.
func Wrap(n queryir.Expr) Expr {
	return Expr{node: n}
}

// AST is implemented by query builders so they can be embedded as
// subqueries.
type AST interface {
	AST() *queryir.Query
}

// Ref references a variable or attribute path, emitted verbatim.
func Ref(path string) Expr {
	return Expr{node: queryir.Ref{Path: path}}
}

// Path builds a reference from a root variable and accessors. String parts
// become attribute accessors, integers become indexes and "*" expands an
// array: Path("u", "friends", "*", "name") is u.friends[*].name.
func Path(root string, parts ...any) Expr {
	var b strings.Builder
	b.WriteString(root)
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			if v == "*" {
				b.WriteString("[*]")
			} else {
				b.WriteString(".")
				b.WriteString(v)
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			// Leaves an invalid path for the validator to report.
			fmt.Fprintf(&b, ".%v", v)
		}
	}
	return Ref(b.String())
}

// Current is the array element inside All, Any and inline filters.
func Current() Expr {
	return Ref("CURRENT")
}

// Old accesses the previous revision in UPDATE and REPLACE:
// Old("visits") is OLD.visits and Old() is OLD.
func Old(path ...string) Expr {
	return Expr{node: queryir.Old{Path: strings.Join(path, ".")}}
}

// Lit makes a literal. Values that cannot be represented are kept as is
// and reported by validation.
func Lit(v any) Expr {
	n, err := ir.Normalize(v)
	if err != nil {
		return Expr{node: queryir.Literal{Value: v}}
	}
	return Expr{node: queryir.Literal{Value: n}}
}

// Param references a caller-supplied bind parameter (@name).
func Param(name string) Expr {
	return Expr{node: queryir.Param{Name: name}}
}

// CollectionParam references a collection bind parameter (@@name).
func CollectionParam(name string) Expr {
	return Expr{node: queryir.Param{Name: name, Collection: true}}
}

// Fn calls an AQL function. Arguments are coerced with Value.
func Fn(name string, args ...any) Expr {
	nodes := make([]queryir.Expr, len(args))
	for i, a := range args {
		nodes[i] = Value(a).node
	}
	return Expr{node: queryir.Func{Name: name, Args: nodes}}
}

// Sub embeds a query as a subquery expression.
func Sub(q *queryir.Query) Expr {
	return Expr{node: queryir.Subquery{Query: q}}
}

// Not negates a condition.
func Not(v any) Expr {
	return Expr{node: queryir.Unary{Op: queryir.OpNot, Operand: Value(v).node}}
}

// Neg negates a number.
func Neg(v any) Expr {
	return Expr{node: queryir.Unary{Op: queryir.OpNegate, Operand: Value(v).node}}
}

// Unset removes fields from a document: UNSET(obj, "a", "b").
func Unset(obj any, fields ...string) Expr {
	return Expr{node: queryir.Unset{Object: RefOrValue(obj).node, Fields: fields}}
}

// Array builds an array expression element by element. Unlike a literal
// slice, elements may be references or other expressions.
func Array(elems ...any) Expr {
	nodes := make([]queryir.Expr, len(elems))
	for i, el := range elems {
		nodes[i] = Value(el).node
	}
	return Expr{node: queryir.Array{Elements: nodes}}
}

// And joins conditions with &&. It returns a true literal when given none.
func And(conds ...any) Expr {
	return fold(queryir.OpAnd, true, conds)
}

// Or joins conditions with ||. It returns a false literal when given none.
func Or(conds ...any) Expr {
	return fold(queryir.OpOr, false, conds)
}

func fold(op string, empty bool, conds []any) Expr {
	if len(conds) == 0 {
		return Lit(empty)
	}
	acc := Value(conds[0])
	for _, c := range conds[1:] {
		acc = acc.binary(op, c)
	}
	return acc
}

// Value coerces a Go value into an expression:
//   - Expr and queryir.Expr pass through
//   - *queryir.Query and AST become subqueries
//   - "@name" and "@@name" become parameters
//   - anything else becomes a literal
func Value(v any) Expr {
	switch x := v.(type) {
	case Expr:
		return x
	case queryir.Expr:
		return Expr{node: x}
	case *queryir.Query:
		return Sub(x)
	case AST:
		return Sub(x.AST())
	case string:
		if p, ok := paramString(x); ok {
			return p
		}
		return Lit(x)
	default:
		return Lit(v)
	}
}

// RefOrValue is Value except that a plain string is a reference. It is
// used where an argument names a path, such as RETURN or COLLECT keys.
func RefOrValue(v any) Expr {
	if s, ok := v.(string); ok {
		if p, ok := paramString(s); ok {
			return p
		}
		return Ref(s)
	}
	return Value(v)
}

func paramString(s string) (Expr, bool) {
	switch {
	case strings.HasPrefix(s, "@@") && queryir.IsParamName(s[2:]):
		return CollectionParam(s[2:]), true
	case strings.HasPrefix(s, "@") && queryir.IsParamName(s[1:]):
		return Param(s[1:]), true
	}
	return Expr{}, false
}

func (e Expr) binary(op string, v any) Expr {
	return Expr{node: queryir.Binary{Op: op, Left: e.node, Right: Value(v).node}}
}

// Comparison.

func (e Expr) Eq(v any) Expr  { return e.binary(queryir.OpEq, v) }
func (e Expr) Neq(v any) Expr { return e.binary(queryir.OpNeq, v) }
func (e Expr) Lt(v any) Expr  { return e.binary(queryir.OpLt, v) }
func (e Expr) Lte(v any) Expr { return e.binary(queryir.OpLte, v) }
func (e Expr) Gt(v any) Expr  { return e.binary(queryir.OpGt, v) }
func (e Expr) Gte(v any) Expr { return e.binary(queryir.OpGte, v) }

// Logical.

func (e Expr) And(v any) Expr { return e.binary(queryir.OpAnd, v) }
func (e Expr) Or(v any) Expr  { return e.binary(queryir.OpOr, v) }

// Arithmetic.

func (e Expr) Add(v any) Expr   { return e.binary(queryir.OpAdd, v) }
func (e Expr) Sub(v any) Expr   { return e.binary(queryir.OpSub, v) }
func (e Expr) Times(v any) Expr { return e.binary(queryir.OpMul, v) }
func (e Expr) Div(v any) Expr   { return e.binary(queryir.OpDiv, v) }
func (e Expr) Mod(v any) Expr   { return e.binary(queryir.OpMod, v) }

// In tests membership. A slice argument is bound as one array value.
func (e Expr) In(v any) Expr { return e.binary(queryir.OpIn, v) }

// NotIn is the negation of In.
func (e Expr) NotIn(v any) Expr { return e.binary(queryir.OpNotIn, v) }

// Not negates e.
func (e Expr) Not() Expr { return Not(e) }

// Like matches a LIKE pattern (% and _ wildcards).
func (e Expr) Like(pattern string, caseInsensitive bool) Expr {
	return Expr{node: queryir.Like{Expr: e.node, Pattern: pattern, CaseInsensitive: caseInsensitive}}
}

// Regex matches a regular expression. flags is "" or "i".
func (e Expr) Regex(pattern, flags string) Expr {
	return Expr{node: queryir.Regex{Expr: e.node, Pattern: pattern, Flags: flags}}
}

// All requires cond to hold for every element of the array e. Use
// Current() for the element.
func (e Expr) All(cond any) Expr {
	return Expr{node: queryir.Quantifier{Kind: queryir.QuantifierAll, Expr: e.node, Cond: Value(cond).node}}
}

// Any requires cond to hold for at least one element of the array e.
func (e Expr) Any(cond any) Expr {
	return Expr{node: queryir.Quantifier{Kind: queryir.QuantifierAny, Expr: e.node, Cond: Value(cond).node}}
}

// Then starts a ternary with e as the condition. The result only offers
// Else.
func (e Expr) Then(v any) Pending {
	return Pending{cond: e.node, then: Value(v).node}
}

// Pending is a ternary waiting for its else branch.
type Pending struct {
	cond queryir.Expr
	then queryir.Expr
}

// Else completes the ternary.
func (p Pending) Else(v any) Expr {
	return Expr{node: queryir.Ternary{Cond: p.cond, Then: p.then, Else: Value(v).node}}
}
