package queryir

// Expr represents an expression node in the query AST.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler and the serializer.
//
// Expression nodes are immutable values. Combinators in package expr always
// build new nodes, so a sub-expression can be shared between queries.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Source represents what a FOR loop iterates over.
//
// Source types:
//   - CollectionSource: a named collection (or @@param)
//   - RangeSource: an integer range start..end
//   - GraphSource: a graph traversal
type Source interface {
	sourceNode()
}

// Binary operators.
const (
	OpEq    = "=="
	OpNeq   = "!="
	OpLt    = "<"
	OpLte   = "<="
	OpGt    = ">"
	OpGte   = ">="
	OpAnd   = "&&"
	OpOr    = "||"
	OpAdd   = "+"
	OpSub   = "-"
	OpMul   = "*"
	OpDiv   = "/"
	OpMod   = "%"
	OpIn    = "IN"
	OpNotIn = "NOT IN"
)

// Unary operators.
const (
	OpNot    = "NOT"
	OpNegate = "-"
)

// Traversal directions.
const (
	DirectionOutbound = "OUTBOUND"
	DirectionInbound  = "INBOUND"
	DirectionAny      = "ANY"
)

// Sort directions.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Literal is a constant value. Value is one of the canonical types of
// package ir: nil, bool, string, int64, float64, []any, map[string]any.
// Literals are never written into query text; the compiler binds them.
type Literal struct {
	Value any
}

func (Literal) exprNode() {}

// Ref is a variable or attribute path emitted verbatim (e.g. "u.address.city").
type Ref struct {
	Path string
}

func (Ref) exprNode() {}

// Param is a caller-supplied bind parameter (@name or @@name).
type Param struct {
	Name string

	// Collection marks a collection parameter (@@name).
	Collection bool
}

func (Param) exprNode() {}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

func (Binary) exprNode() {}

// Unary applies Op to Operand.
type Unary struct {
	Op      string
	Operand Expr
}

func (Unary) exprNode() {}

// Func is a function call such as LENGTH(u.friends).
type Func struct {
	Name string
	Args []Expr
}

func (Func) exprNode() {}

// Ternary is Cond ? Then : Else.
type Ternary struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (Ternary) exprNode() {}

// Like matches Expr against a LIKE pattern. The pattern is always bound.
type Like struct {
	Expr            Expr
	Pattern         string
	CaseInsensitive bool
}

func (Like) exprNode() {}

// Regex matches Expr against a regular expression. The pattern is always
// bound. Flags is "" or "i".
type Regex struct {
	Expr    Expr
	Pattern string
	Flags   string
}

func (Regex) exprNode() {}

// Old refers to the previous revision of a document inside UPDATE or
// REPLACE (OLD.path). An empty Path refers to OLD itself.
type Old struct {
	Path string
}

func (Old) exprNode() {}

// QuantifierKind selects ALL or ANY.
type QuantifierKind string

const (
	QuantifierAll QuantifierKind = "all"
	QuantifierAny QuantifierKind = "any"
)

// Quantifier tests Cond against every element of the array Expr. Inside
// Cond the element is CURRENT.
type Quantifier struct {
	Kind QuantifierKind
	Expr Expr
	Cond Expr
}

func (Quantifier) exprNode() {}

// Unset removes Fields from Object.
type Unset struct {
	Object Expr
	Fields []string
}

func (Unset) exprNode() {}

// Field is one key of an Object.
type Field struct {
	Key   string
	Value Expr
}

// Object is a document built field by field. Field order is preserved.
type Object struct {
	Fields []Field
}

func (Object) exprNode() {}

// Array is an array built element by element.
type Array struct {
	Elements []Expr
}

func (Array) exprNode() {}

// Subquery embeds a complete query as an expression.
type Subquery struct {
	Query *Query
}

func (Subquery) exprNode() {}

// CollectionSource iterates a collection.
type CollectionSource struct {
	Name string
}

func (CollectionSource) sourceNode() {}

// RangeSource iterates Start..End.
type RangeSource struct {
	Start Expr
	End   Expr
}

func (RangeSource) sourceNode() {}

// GraphSource is a traversal. Exactly one of Graph or EdgeCollections is
// set. StartVertex is a document id, a reference or a @param.
type GraphSource struct {
	Graph           string
	EdgeCollections []string
	Direction       string
	StartVertex     string
	MinDepth        int
	MaxDepth        int

	// Options is rendered as an inline document (usually an Object).
	Options Expr
}

func (GraphSource) sourceNode() {}

// Query accumulates the clauses of one AQL query.
//
// Every field is optional. The compiler emits clauses in a fixed order that
// does not depend on the order in which they were added.
type Query struct {
	Collection string
	Variable   string
	Source     Source

	// MultipleLoopVars replaces Variable for a multi-variable graph FOR.
	MultipleLoopVars *LoopVars

	Joins              []Join
	Filters            []Expr
	FiltersPostCollect []Expr
	Lets               []Let
	LetsPreCollect     []Let
	Collects           []Collect
	Sorts              []Sort
	ReturnValue        Expr
	ReturnDistinct     bool
	Limit              *int64
	Offset             *int64
	Operations         []Operation
	Upserts            []Upsert
	UpdatesEnhanced    []EnhancedUpdate
	Searches           []Expr
	Traversals         []Traversal
	Prunes             []Expr
	Windows            []Window
	WithCollections    []string

	// Raw bypasses the AST. When Raw is set the compiler returns Raw and
	// RawBindVars unchanged.
	Raw         string
	RawBindVars map[string]any
}

// IsRaw reports whether q is a raw passthrough query.
func (q *Query) IsRaw() bool {
	return q.Raw != ""
}

// LoopVars names the variables of a multi-variable graph FOR. Path is
// positional, so it requires Edge.
type LoopVars struct {
	Vertex string `json:"vertex"`
	Edge   string `json:"edge,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Names returns the declared variable names in FOR order.
func (lv LoopVars) Names() []string {
	names := []string{lv.Vertex}
	if lv.Edge != "" {
		names = append(names, lv.Edge)
	}
	if lv.Path != "" {
		names = append(names, lv.Path)
	}
	return names
}

// Join is an additional FOR nested inside the first one.
type Join struct {
	Variable string
	Source   Source
}

// Let binds Name to Expression.
type Let struct {
	Name       string
	Expression Expr
}

// Assignment is one COLLECT grouping variable.
type Assignment struct {
	Key   string
	Value Expr
}

// Aggregate functions accepted by COLLECT ... AGGREGATE and WINDOW.
const (
	AggCount   = "COUNT"
	AggSum     = "SUM"
	AggAverage = "AVERAGE"
	AggMin     = "MIN"
	AggMax     = "MAX"
	AggLength  = "LENGTH"
	AggUnique  = "UNIQUE"
)

// Aggregate is one Name = Function(Expression) entry. A nil Expression
// renders as Function(1), which is how COUNT counts rows.
type Aggregate struct {
	Name       string
	Function   string
	Expression Expr
}

// Collect is one COLLECT clause.
type Collect struct {
	Variables  []Assignment
	Into       string
	Aggregates []Aggregate
	Keep       []string
}

// Sort is one SORT key.
type Sort struct {
	Field     Expr
	Direction string
}

// OperationType is a data-modification verb.
type OperationType string

const (
	OpInsert  OperationType = "INSERT"
	OpUpdate  OperationType = "UPDATE"
	OpReplace OperationType = "REPLACE"
	OpRemove  OperationType = "REMOVE"
)

// Operation is one data-modification statement. Variable, when set, is
// the key expression for UPDATE/REPLACE ("UPDATE u WITH doc IN c").
type Operation struct {
	Type       OperationType
	Document   Expr
	Collection string
	Variable   string
	Options    Expr
}

// Upsert is UPSERT search INSERT insert UPDATE|REPLACE update IN collection.
type Upsert struct {
	Search     Expr
	Insert     Expr
	Update     Expr
	Collection string
	Replace    bool
}

// EnhancedUpdate is UPDATE target WITH fields IN collection, optionally
// capturing the previous revision as LET OldReference = OLD.
type EnhancedUpdate struct {
	Document     Expr
	UpdateFields Expr
	Collection   string
	Variable     string
	OldReference string
}

// Traversal is an additional multi-variable graph FOR.
type Traversal struct {
	Vars   LoopVars
	Source Source
}

// Window is a WINDOW clause. Range is nil for a row-based window.
type Window struct {
	Range      Expr
	Preceding  Expr
	Following  Expr
	Aggregates []Aggregate
}
