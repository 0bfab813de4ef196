// Package queryir provides the query AST that sits between the fluent
// builder and the AQL compiler.
//
// ARCHITECTURE:
//
//	[builder / expr] → [queryir.Query] → [queryaql.Compile] → {query, bindVars}
//	                         ↕
//	                  [ToJSON / FromJSON]
//
// The AST is plain data. The builder accumulates clauses into a Query, the
// compiler turns it into text, and the serializer snapshots it for storage
// or transport. None of them share state beyond the Query value itself.
//
// SEALED INTERFACES:
//
// Expr and Source are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which keeps the type
// switches in the compiler, the validator and the serializer exhaustive.
//
//	switch n := e.(type) {
//	case Literal:
//	    // bind n.Value
//	case Ref:
//	    // emit n.Path verbatim
//	default:
//	    // UNSUPPORTED_NODE
//	}
//
// LITERALS:
//
// Literal values use the canonical representation of package ir. They are
// never written into query text; the compiler replaces every literal with
// a bind parameter. Only references and caller-supplied parameters are
// emitted verbatim, and Validate checks both against a safe grammar.
//
// SNAPSHOTS:
//
// Every expression node is written with a "type" discriminator. A node
// without one, or with an unknown one, fails to decode with a
// SerializationError. Restoring a snapshot never validates it; that happens
// when the query is compiled.
package queryir
