package symbols

import (
	"sort"

	"github.com/jward/alnav/internal/syntax"
)

// Role says how an identifier occurrence relates to the symbol it names.
type Role int

const (
	RoleUsage       Role = iota // plain name resolved through the scope chain
	RoleDeclaration             // the name token of a declaration
	RoleMember                  // right side of '.', resolved against the receiver's type
	RoleObjectRef               // names an object of kind Occurrence.Object
	RoleQualified               // right side of EnumName::Value
)

func (r Role) String() string {
	switch r {
	case RoleDeclaration:
		return "declaration"
	case RoleMember:
		return "member"
	case RoleObjectRef:
		return "object"
	case RoleQualified:
		return "qualified"
	}
	return "usage"
}

// Occurrence is one identifier token in a document.
type Occurrence struct {
	Key       string
	Span      syntax.Span
	Start     syntax.Point
	End       syntax.Point
	Scope     ScopeID
	Role      Role
	Decl      SymbolID // set for RoleDeclaration
	Object    Kind     // set for RoleObjectRef
	Qualifier string   // enum name key for RoleQualified
	Write     bool     // assignment target or loop variable
	Node      *syntax.Node
}

// Receiver returns the expression a member occurrence is accessed on.
func (o *Occurrence) Receiver() *syntax.Node {
	if o.Role != RoleMember || o.Node == nil || o.Node.Parent == nil {
		return nil
	}
	return o.Node.Parent.ChildByField("object")
}

// Table is the symbol table of one document version.
type Table struct {
	URI         string
	Symbols     []Symbol
	Scopes      []Scope
	Root        ScopeID
	Objects     []SymbolID
	Occurrences []Occurrence // sorted by start offset
	Skipped     int          // declarations dropped for a missing name or type

	byKey map[string][]int
}

// Symbol returns the symbol with the given id, or nil.
func (t *Table) Symbol(id SymbolID) *Symbol {
	if id < 0 || int(id) >= len(t.Symbols) {
		return nil
	}
	return &t.Symbols[id]
}

// Scope returns the scope with the given id, or nil.
func (t *Table) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(t.Scopes) {
		return nil
	}
	return &t.Scopes[id]
}

// ObjectSymbols returns the document's top-level objects in source order.
func (t *Table) ObjectSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.Objects))
	for _, id := range t.Objects {
		out = append(out, &t.Symbols[id])
	}
	return out
}

// Children returns the symbols whose Parent is id, in declaration order.
func (t *Table) Children(id SymbolID) []*Symbol {
	var out []*Symbol
	for i := range t.Symbols {
		if t.Symbols[i].Parent == id {
			out = append(out, &t.Symbols[i])
		}
	}
	return out
}

// OccurrenceAt returns the identifier occurrence covering off. A cursor
// directly after the last character of an identifier still hits it.
func (t *Table) OccurrenceAt(off int) *Occurrence {
	i := sort.Search(len(t.Occurrences), func(i int) bool {
		return t.Occurrences[i].Span.Start > off
	})
	if i == 0 {
		return nil
	}
	o := &t.Occurrences[i-1]
	if !o.Span.Contains(off) {
		return nil
	}
	return o
}

// OccurrencesOf returns every occurrence whose key equals key.
func (t *Table) OccurrencesOf(key string) []*Occurrence {
	idx := t.byKey[key]
	out := make([]*Occurrence, 0, len(idx))
	for _, i := range idx {
		out = append(out, &t.Occurrences[i])
	}
	return out
}

// DeclarationOf returns the declaration occurrence of a symbol.
func (t *Table) DeclarationOf(id SymbolID) *Occurrence {
	s := t.Symbol(id)
	if s == nil {
		return nil
	}
	o := t.OccurrenceAt(s.NameSpan.Start)
	if o == nil || o.Role != RoleDeclaration || o.Decl != id {
		return nil
	}
	return o
}
