package builder

import (
	"github.com/roach88/aqlkit/internal/expr"
	"github.com/roach88/aqlkit/internal/queryir"
)

func (b *Builder) push(op queryir.Operation) *Builder {
	b.q.Operations = append(b.q.Operations, op)
	b.lastOp = len(b.q.Operations) - 1
	return b
}

// Insert adds INSERT doc. Call Into to name the collection.
func (b *Builder) Insert(doc any) *Builder {
	return b.push(queryir.Operation{Type: queryir.OpInsert, Document: docOrRef(doc).Node()})
}

// Update adds UPDATE doc, where doc carries the _key.
func (b *Builder) Update(doc any) *Builder {
	return b.push(queryir.Operation{Type: queryir.OpUpdate, Document: docOrRef(doc).Node()})
}

// UpdateVar adds UPDATE variable WITH doc.
func (b *Builder) UpdateVar(variable string, doc any) *Builder {
	return b.push(queryir.Operation{Type: queryir.OpUpdate, Variable: variable, Document: docOrRef(doc).Node()})
}

// Replace adds REPLACE doc, where doc carries the _key.
func (b *Builder) Replace(doc any) *Builder {
	return b.push(queryir.Operation{Type: queryir.OpReplace, Document: docOrRef(doc).Node()})
}

// ReplaceVar adds REPLACE variable WITH doc.
func (b *Builder) ReplaceVar(variable string, doc any) *Builder {
	return b.push(queryir.Operation{Type: queryir.OpReplace, Variable: variable, Document: docOrRef(doc).Node()})
}

// Remove adds REMOVE target. A string target is a variable path.
func (b *Builder) Remove(target any) *Builder {
	return b.push(queryir.Operation{Type: queryir.OpRemove, Document: docOrRef(target).Node()})
}

// Into sets the collection of the most recent operation.
func (b *Builder) Into(collection string) *Builder {
	if b.lastOp < 0 {
		b.misuse("operations", "Into(%q) called before Insert, Update, Replace or Remove", collection)
		return b
	}
	b.q.Operations[b.lastOp].Collection = collection
	return b
}

// Options sets the OPTIONS document of the most recent operation.
func (b *Builder) Options(opts map[string]any) *Builder {
	if b.lastOp < 0 {
		b.misuse("operations", "Options called before Insert, Update, Replace or Remove")
		return b
	}
	b.q.Operations[b.lastOp].Options = expr.Doc(opts).Node()
	return b
}

// Upsert starts UPSERT search INSERT doc UPDATE doc IN collection. Each
// stage only offers the next legal call.
func (b *Builder) Upsert(search any) *UpsertSearch {
	return &UpsertSearch{b: b, up: queryir.Upsert{Search: docOrRef(search).Node()}}
}

// UpsertSearch waits for the INSERT document.
type UpsertSearch struct {
	b  *Builder
	up queryir.Upsert
}

// Insert sets the document inserted when nothing matches.
func (s *UpsertSearch) Insert(doc any) *UpsertInsert {
	up := s.up
	up.Insert = docOrRef(doc).Node()
	return &UpsertInsert{b: s.b, up: up}
}

// UpsertInsert waits for the UPDATE or REPLACE document.
type UpsertInsert struct {
	b  *Builder
	up queryir.Upsert
}

// Update sets the patch applied when a document matches.
func (s *UpsertInsert) Update(doc any) *UpsertUpdate {
	up := s.up
	up.Update = docOrRef(doc).Node()
	return &UpsertUpdate{b: s.b, up: up}
}

// Replace sets the replacement used when a document matches.
func (s *UpsertInsert) Replace(doc any) *UpsertUpdate {
	up := s.up
	up.Update = docOrRef(doc).Node()
	up.Replace = true
	return &UpsertUpdate{b: s.b, up: up}
}

// UpsertUpdate waits for the collection.
type UpsertUpdate struct {
	b  *Builder
	up queryir.Upsert
}

// Into completes the UPSERT.
func (s *UpsertUpdate) Into(collection string) *Builder {
	up := s.up
	up.Collection = collection
	s.b.q.Upserts = append(s.b.q.Upserts, up)
	return s.b
}

// EnhancedUpdate describes UPDATE target WITH fields IN collection.
type EnhancedUpdate struct {
	// Variable is the document to update (a path such as "u"). When it is
	// empty Document is the target instead.
	Variable string
	Document any

	// Fields is the patch. Without it Document is the patch.
	Fields any

	Collection string

	// OldReference, when set, captures the previous revision:
	// LET <OldReference> = OLD.
	OldReference string
}

// UpdateEnhanced adds an enhanced UPDATE.
func (b *Builder) UpdateEnhanced(u EnhancedUpdate) *Builder {
	eu := queryir.EnhancedUpdate{
		Variable:     u.Variable,
		Collection:   u.Collection,
		OldReference: u.OldReference,
	}
	if u.Document != nil {
		eu.Document = docOrRef(u.Document).Node()
	}
	if u.Fields != nil {
		eu.UpdateFields = expr.Doc(u.Fields).Node()
	}
	b.q.UpdatesEnhanced = append(b.q.UpdatesEnhanced, eu)
	return b
}
