package symbols

import "github.com/jward/alnav/internal/syntax"

// ScopeKind classifies a lexical region.
type ScopeKind int

const (
	ScopeDocument ScopeKind = iota // synthetic root holding the document's objects
	ScopeObject
	ScopeProcedure
	ScopeTrigger
	ScopeBlock
	ScopeWith
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeObject:
		return "object"
	case ScopeProcedure:
		return "procedure"
	case ScopeTrigger:
		return "trigger"
	case ScopeBlock:
		return "block"
	case ScopeWith:
		return "with"
	}
	return "document"
}

// Scope is a lexical region and the symbols declared directly in it.
type Scope struct {
	ID      ScopeID
	Kind    ScopeKind
	Parent  ScopeID
	Symbols []SymbolID // declaration order
	Span    syntax.Span
	Owner   SymbolID     // object, procedure or trigger introducing the scope
	With    *syntax.Node // record expression of a with statement
}

// Resolved pairs a symbol with the table that owns it. Lookups through a
// with statement or an extension can land in another document's table.
type Resolved struct {
	Table  *Table
	Symbol *Symbol
}

// Valid reports whether r refers to a symbol.
func (r Resolved) Valid() bool { return r.Table != nil && r.Symbol != nil }

// MemberSource supplies the synthetic scopes that depend on other documents.
type MemberSource interface {
	// WithMembers returns the fields of the record named by a with scope.
	WithMembers(t *Table, s *Scope) []Resolved
	// ImplicitMembers returns members visible unqualified inside obj that it
	// does not declare itself, such as the base table fields of a table
	// extension or the source table fields of a page.
	ImplicitMembers(t *Table, obj *Symbol) []Resolved
}

// addressable reports whether a symbol can be named by a plain identifier.
// Key, field group and trigger names live in their own namespaces.
func addressable(s *Symbol) bool {
	switch s.Kind {
	case KindKey, KindFieldGroup, KindTrigger:
		return false
	}
	return true
}

// Lookup resolves key from scope outward and returns the nearest
// declaration. Within one scope the first declaration wins.
func (t *Table) Lookup(scope ScopeID, key string, src MemberSource) (Resolved, bool) {
	for id := scope; id != NoScope; id = t.Scopes[id].Parent {
		sc := &t.Scopes[id]
		if sc.Kind == ScopeWith {
			if src != nil {
				for _, m := range src.WithMembers(t, sc) {
					if m.Symbol.Key == key {
						return m, true
					}
				}
			}
			continue
		}
		for _, sid := range sc.Symbols {
			sym := &t.Symbols[sid]
			if sym.Key == key && addressable(sym) {
				return Resolved{Table: t, Symbol: sym}, true
			}
		}
		if sc.Kind == ScopeObject && sc.Owner != NoSymbol && src != nil {
			for _, m := range src.ImplicitMembers(t, &t.Symbols[sc.Owner]) {
				if m.Symbol.Key == key && addressable(m.Symbol) {
					return m, true
				}
			}
		}
	}
	return Resolved{}, false
}

// Visible enumerates every symbol reachable from scope, nearest first, with
// one entry per name key.
func (t *Table) Visible(scope ScopeID, src MemberSource) []Resolved {
	seen := make(map[string]bool)
	var out []Resolved
	add := func(r Resolved) {
		if !addressable(r.Symbol) || seen[r.Symbol.Key] {
			return
		}
		seen[r.Symbol.Key] = true
		out = append(out, r)
	}
	for id := scope; id != NoScope; id = t.Scopes[id].Parent {
		sc := &t.Scopes[id]
		if sc.Kind == ScopeWith {
			if src != nil {
				for _, m := range src.WithMembers(t, sc) {
					add(m)
				}
			}
			continue
		}
		for _, sid := range sc.Symbols {
			add(Resolved{Table: t, Symbol: &t.Symbols[sid]})
		}
		if sc.Kind == ScopeObject && sc.Owner != NoSymbol && src != nil {
			for _, m := range src.ImplicitMembers(t, &t.Symbols[sc.Owner]) {
				add(m)
			}
		}
	}
	return out
}

// ScopeAt returns the innermost scope containing off.
func (t *Table) ScopeAt(off int) ScopeID {
	best := t.Root
	for i := range t.Scopes {
		sc := &t.Scopes[i]
		if !sc.Span.Contains(off) {
			continue
		}
		cur := &t.Scopes[best]
		if sc.Span.Len() < cur.Span.Len() || (sc.Span.Len() == cur.Span.Len() && sc.ID > cur.ID) {
			best = sc.ID
		}
	}
	return best
}

// Chain returns scope and its ancestors, innermost first.
func (t *Table) Chain(scope ScopeID) []ScopeID {
	var out []ScopeID
	for id := scope; id != NoScope; id = t.Scopes[id].Parent {
		out = append(out, id)
	}
	return out
}

// EnclosingObject returns the object symbol whose scope contains scope.
func (t *Table) EnclosingObject(scope ScopeID) *Symbol {
	for id := scope; id != NoScope; id = t.Scopes[id].Parent {
		sc := &t.Scopes[id]
		if sc.Kind == ScopeObject && sc.Owner != NoSymbol {
			return &t.Symbols[sc.Owner]
		}
	}
	return nil
}

// Members returns the symbols declared directly in an object's body, in
// declaration order.
func (t *Table) Members(obj *Symbol) []*Symbol {
	if obj == nil || obj.Body == NoScope {
		return nil
	}
	ids := t.Scopes[obj.Body].Symbols
	out := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		out = append(out, &t.Symbols[id])
	}
	return out
}

// Parameters returns a procedure's parameters in declaration order.
func (t *Table) Parameters(proc *Symbol) []*Symbol {
	if proc == nil || proc.Body == NoScope {
		return nil
	}
	var out []*Symbol
	for _, id := range t.Scopes[proc.Body].Symbols {
		if s := &t.Symbols[id]; s.Kind == KindParameter {
			out = append(out, s)
		}
	}
	return out
}
