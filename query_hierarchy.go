package alnav

import (
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/workspace"
)

// ObjectHierarchy relates an object to the interfaces it implements, the
// codeunits implementing it, its base object and its extensions.
type ObjectHierarchy struct {
	Object        SymbolResult
	Implements    []SymbolResult // interfaces named by the implements clause
	Unresolved    []string       // implemented interfaces with no declaration
	ImplementedBy []SymbolResult // codeunits implementing this interface
	Extends       *SymbolResult  // base object of an extension
	ExtendedBy    []SymbolResult // extensions of this object
}

// ObjectHierarchy returns the hierarchy of the named object, or nil if no
// object of that kind is declared.
func (q *QueryBuilder) ObjectHierarchy(kind Kind, name string) *ObjectHierarchy {
	e, ok := q.snap.Object(kind, name)
	if !ok {
		return nil
	}
	return q.hierarchy(e)
}

// HierarchyAt returns the hierarchy of the object enclosing the given
// position, or of the object named there.
func (q *QueryBuilder) HierarchyAt(file string, line, col int) *ObjectHierarchy {
	uri := documentURI(file)
	if res, ok := q.nav.SymbolAt(uri, point(line, col)); ok && res.Symbol.Kind.IsObject() {
		return q.hierarchy(workspace.Entry{Doc: q.snap.DocumentOf(res.Table), Symbol: res.Symbol})
	}
	doc := q.snap.Document(uri)
	if doc == nil {
		return nil
	}
	t := doc.Table
	obj := t.EnclosingObject(t.ScopeAt(doc.Lines.Offset(point(line, col))))
	if obj == nil {
		return nil
	}
	return q.hierarchy(workspace.Entry{Doc: doc, Symbol: obj})
}

func (q *QueryBuilder) hierarchy(e workspace.Entry) *ObjectHierarchy {
	h := &ObjectHierarchy{
		Object:        symbolResult(e.Resolved()),
		Implements:    []SymbolResult{},
		ImplementedBy: []SymbolResult{},
		ExtendedBy:    []SymbolResult{},
	}
	s := e.Symbol
	for _, iface := range s.Implements {
		if ie, ok := q.snap.Object(symbols.KindInterface, iface); ok {
			h.Implements = append(h.Implements, symbolResult(ie.Resolved()))
		} else {
			h.Unresolved = append(h.Unresolved, iface)
		}
	}
	if s.Kind == symbols.KindInterface {
		for _, impl := range q.snap.Implementors(s.Name) {
			h.ImplementedBy = append(h.ImplementedBy, symbolResult(impl.Resolved()))
		}
	}
	if s.Kind.IsExtension() && s.Extends != "" {
		if base, ok := q.snap.Object(s.Kind.BaseKind(), s.Extends); ok {
			sr := symbolResult(base.Resolved())
			h.Extends = &sr
		}
	}
	if !s.Kind.IsExtension() {
		for _, ext := range q.snap.Extensions(s.Kind, s.Name) {
			h.ExtendedBy = append(h.ExtendedBy, symbolResult(ext.Resolved()))
		}
	}
	return h
}
