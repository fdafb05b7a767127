// Package nav answers navigation queries against one workspace snapshot.
//
// A Resolver is bound to the snapshot it was created with and never looks at
// any other, so every query sees a consistent set of documents even while
// edits are being published. Positions are zero-based rows and byte columns.
package nav

import (
	"errors"
	"sync"

	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

var log = logging.Logger("nav")

// ErrCancelled reports that a workspace-wide scan observed cancellation. It
// is returned instead of a partial result.
var ErrCancelled = errors.New("nav: cancelled")

// Location is a range in a document.
type Location struct {
	URI   string       `json:"uri"`
	Span  syntax.Span  `json:"span"`
	Start syntax.Point `json:"start"`
	End   syntax.Point `json:"end"`
}

// Resolver runs queries over a single snapshot. It is safe for concurrent
// use.
type Resolver struct {
	snap *workspace.Snapshot

	// withs caches the record members of each with scope, keyed by withKey.
	// A cached scope always has its enclosing with scopes cached too.
	withs sync.Map
}

type withKey struct {
	t     *symbols.Table
	scope symbols.ScopeID
}

// New binds a resolver to snap.
func New(snap *workspace.Snapshot) *Resolver {
	return &Resolver{snap: snap}
}

// Snapshot returns the snapshot the resolver reads.
func (r *Resolver) Snapshot() *workspace.Snapshot { return r.snap }

// symbolKey identifies a symbol across the snapshot.
type symbolKey struct {
	uri string
	id  symbols.SymbolID
}

func keyOf(res symbols.Resolved) symbolKey {
	return symbolKey{uri: res.Table.URI, id: res.Symbol.ID}
}

func nameLocation(res symbols.Resolved) Location {
	s := res.Symbol
	return Location{URI: res.Table.URI, Span: s.NameSpan, Start: s.NameStart, End: s.NameEnd}
}

func occurrenceLocation(uri string, o *symbols.Occurrence) Location {
	return Location{URI: uri, Span: o.Span, Start: o.Start, End: o.End}
}

func spanLocation(doc *workspace.Document, span syntax.Span) Location {
	return Location{
		URI:   doc.URI,
		Span:  span,
		Start: doc.Lines.Point(span.Start),
		End:   doc.Lines.Point(span.End),
	}
}

// cursor maps a position to a byte offset in an open document.
func (r *Resolver) cursor(uri string, pos syntax.Point) (*workspace.Document, int, bool) {
	doc := r.snap.Document(uri)
	if doc == nil {
		return nil, 0, false
	}
	return doc, doc.Lines.Offset(pos), true
}

// target resolves the identifier under the cursor.
func (r *Resolver) target(uri string, pos syntax.Point) (*workspace.Document, *symbols.Occurrence, symbols.Resolved, bool) {
	doc, off, ok := r.cursor(uri, pos)
	if !ok {
		return nil, nil, symbols.Resolved{}, false
	}
	occ := doc.Table.OccurrenceAt(off)
	if occ == nil {
		return doc, nil, symbols.Resolved{}, false
	}
	res, ok := r.resolveOcc(doc, occ)
	return doc, occ, res, ok
}

// resolveOcc resolves one occurrence to the declaration it names.
func (r *Resolver) resolveOcc(doc *workspace.Document, occ *symbols.Occurrence) (symbols.Resolved, bool) {
	switch occ.Role {
	case symbols.RoleDeclaration:
		s := doc.Table.Symbol(occ.Decl)
		return symbols.Resolved{Table: doc.Table, Symbol: s}, s != nil
	case symbols.RoleObjectRef:
		e, ok := r.snap.Object(occ.Object, occ.Node.Text(doc.Text))
		if !ok {
			return symbols.Resolved{}, false
		}
		return e.Resolved(), true
	case symbols.RoleQualified:
		return r.enumValue(occ.Qualifier, occ.Key)
	case symbols.RoleMember:
		owner, ok := r.typeOf(doc, occ.Scope, occ.Receiver())
		if !ok {
			return symbols.Resolved{}, false
		}
		return r.member(owner, occ.Key)
	}
	return r.lookup(doc, occ.Scope, occ.Key)
}

// lookup resolves a plain name from scope outward. Rec and xRec fall back
// to the record the enclosing object works on.
func (r *Resolver) lookup(doc *workspace.Document, scope symbols.ScopeID, key string) (symbols.Resolved, bool) {
	if res, ok := doc.Table.Lookup(scope, key, r); ok {
		return res, true
	}
	if key == "rec" || key == "xrec" {
		if e, ok := r.implicitRecord(doc.Table, scope); ok {
			return e.Resolved(), true
		}
	}
	return symbols.Resolved{}, false
}

func (r *Resolver) enumValue(enum, key string) (symbols.Resolved, bool) {
	if enum == "" {
		return symbols.Resolved{}, false
	}
	e, ok := r.snap.Object(symbols.KindEnum, enum)
	if !ok {
		return symbols.Resolved{}, false
	}
	for _, m := range r.snap.ObjectMembers(e) {
		if m.Symbol.Kind == symbols.KindEnumValue && m.Symbol.Key == key {
			return m, true
		}
	}
	return symbols.Resolved{}, false
}

// memberKind reports whether a symbol can be reached with '.' from outside
// its object.
func memberKind(s *symbols.Symbol) bool {
	switch s.Kind {
	case symbols.KindProcedure, symbols.KindField, symbols.KindEnumValue:
		return true
	}
	return false
}

func (r *Resolver) members(owner workspace.Entry) []symbols.Resolved {
	var out []symbols.Resolved
	for _, m := range r.snap.ObjectMembers(owner) {
		if memberKind(m.Symbol) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Resolver) member(owner workspace.Entry, key string) (symbols.Resolved, bool) {
	for _, m := range r.members(owner) {
		if m.Symbol.Key == key {
			return m, true
		}
	}
	return symbols.Resolved{}, false
}

// typeEntry returns the object a resolved symbol's value belongs to: the
// object itself for object symbols, the declared type for variables, and the
// return type for procedures.
func (r *Resolver) typeEntry(res symbols.Resolved) (workspace.Entry, bool) {
	s := res.Symbol
	if s.Kind.IsObject() {
		doc := r.snap.DocumentOf(res.Table)
		return workspace.Entry{Doc: doc, Symbol: s}, doc != nil
	}
	tr := s.Type
	if tr == nil {
		tr = s.Return
	}
	if tr == nil || tr.Object == symbols.KindUnknown || tr.Name == "" {
		return workspace.Entry{}, false
	}
	return r.snap.Object(tr.Object, tr.Name)
}

// typeOf resolves the object type of a receiver expression such as
// Cust, Rec."No.", GetProvider().Address or Lines[1]. The receiver chain is
// unwound onto a stack and evaluated from its root outward.
func (r *Resolver) typeOf(doc *workspace.Document, scope symbols.ScopeID, expr *syntax.Node) (workspace.Entry, bool) {
	var chain []*syntax.Node
	for n := expr; n != nil; {
		chain = append(chain, n)
		switch n.Kind {
		case "member_expression", "method_call", "subscript_expression":
			n = n.ChildByField("object")
		case "parenthesized_expression":
			named := n.NamedChildren()
			if len(named) == 0 {
				n = nil
			} else {
				n = named[0]
			}
		default:
			n = nil
		}
	}
	if len(chain) == 0 {
		return workspace.Entry{}, false
	}

	var cur workspace.Entry
	var ok bool
	root := chain[len(chain)-1]
	switch root.Kind {
	case "identifier", "quoted_identifier":
		if root.Missing {
			return workspace.Entry{}, false
		}
		res, found := r.lookup(doc, scope, symbols.NameKey(root.Text(doc.Text)))
		if !found {
			return workspace.Entry{}, false
		}
		cur, ok = r.typeEntry(res)
	case "function_call":
		name := root.ChildByField("name")
		if name == nil || name.Missing {
			return workspace.Entry{}, false
		}
		res, found := r.lookup(doc, scope, symbols.NameKey(name.Text(doc.Text)))
		if !found {
			return workspace.Entry{}, false
		}
		cur, ok = r.typeEntry(res)
	}
	if !ok {
		return workspace.Entry{}, false
	}

	for i := len(chain) - 2; i >= 0; i-- {
		n := chain[i]
		var name *syntax.Node
		switch n.Kind {
		case "member_expression":
			name = n.ChildByField("member")
		case "method_call":
			name = n.ChildByField("method")
		default:
			continue
		}
		if name == nil || name.Missing {
			return workspace.Entry{}, false
		}
		m, found := r.member(cur, symbols.NameKey(name.Text(doc.Text)))
		if !found {
			return workspace.Entry{}, false
		}
		if cur, ok = r.typeEntry(m); !ok {
			return workspace.Entry{}, false
		}
	}
	return cur, true
}

// implicitRecord returns the table behind Rec inside the object enclosing
// scope: the table itself, the base of a table extension, or the source
// table of a page or page extension.
func (r *Resolver) implicitRecord(t *symbols.Table, scope symbols.ScopeID) (workspace.Entry, bool) {
	obj := t.EnclosingObject(scope)
	if obj == nil {
		return workspace.Entry{}, false
	}
	switch obj.Kind {
	case symbols.KindTable:
		doc := r.snap.DocumentOf(t)
		return workspace.Entry{Doc: doc, Symbol: obj}, doc != nil
	case symbols.KindTableExtension:
		return r.snap.Object(symbols.KindTable, obj.Extends)
	case symbols.KindPage:
		if obj.SourceTable != "" {
			return r.snap.Object(symbols.KindTable, obj.SourceTable)
		}
	case symbols.KindPageExtension:
		base, ok := r.snap.Object(symbols.KindPage, obj.Extends)
		if ok && base.Symbol.SourceTable != "" {
			return r.snap.Object(symbols.KindTable, base.Symbol.SourceTable)
		}
	}
	return workspace.Entry{}, false
}

// WithMembers implements symbols.MemberSource.
//
// Uncached with scopes on the chain are resolved outermost first, so the
// record lookup of each one only meets enclosing with scopes that are
// already cached. Nesting depth therefore costs a loop, not recursion.
func (r *Resolver) WithMembers(t *symbols.Table, sc *symbols.Scope) []symbols.Resolved {
	if sc.With == nil {
		return nil
	}
	if v, ok := r.withs.Load(withKey{t, sc.ID}); ok {
		return v.([]symbols.Resolved)
	}
	doc := r.snap.DocumentOf(t)
	if doc == nil {
		return nil
	}

	var pending []*symbols.Scope // innermost first
	for id := sc.ID; id != symbols.NoScope; id = t.Scopes[id].Parent {
		s := &t.Scopes[id]
		if s.Kind != symbols.ScopeWith || s.With == nil {
			continue
		}
		if _, ok := r.withs.Load(withKey{t, id}); ok {
			break
		}
		pending = append(pending, s)
	}

	var members []symbols.Resolved
	for i := len(pending) - 1; i >= 0; i-- {
		s := pending[i]
		members = nil
		if e, ok := r.typeOf(doc, s.Parent, s.With); ok {
			members = r.members(e)
		}
		r.withs.Store(withKey{t, s.ID}, members)
	}
	return members
}

// ImplicitMembers implements symbols.MemberSource.
func (r *Resolver) ImplicitMembers(_ *symbols.Table, obj *symbols.Symbol) []symbols.Resolved {
	var tables []string
	var out []symbols.Resolved
	switch obj.Kind {
	case symbols.KindTableExtension:
		tables = append(tables, obj.Extends)
	case symbols.KindPage:
		if obj.SourceTable != "" {
			tables = append(tables, obj.SourceTable)
		}
	case symbols.KindPageExtension:
		if base, ok := r.snap.Object(symbols.KindPage, obj.Extends); ok {
			out = append(out, r.members(base)...)
			if base.Symbol.SourceTable != "" {
				tables = append(tables, base.Symbol.SourceTable)
			}
		}
	}
	for _, name := range tables {
		for _, m := range r.snap.RecordMembers(name) {
			if memberKind(m.Symbol) {
				out = append(out, m)
			}
		}
	}
	return out
}

// interfaceMethods returns the interface methods a concrete procedure
// implements, matched by name key through its object's implements clause.
func (r *Resolver) interfaceMethods(res symbols.Resolved) []symbols.Resolved {
	s := res.Symbol
	if s.Kind != symbols.KindProcedure || s.IsInterfaceMethod() {
		return nil
	}
	obj := res.Table.EnclosingObject(s.Scope)
	if obj == nil {
		return nil
	}
	var out []symbols.Resolved
	for _, iface := range obj.Implements {
		e, ok := r.snap.Object(symbols.KindInterface, iface)
		if !ok {
			continue
		}
		if m, ok := r.member(e, s.Key); ok && m.Symbol.Kind == symbols.KindProcedure {
			out = append(out, m)
		}
	}
	return out
}

// implementors returns the procedures implementing an interface method.
func (r *Resolver) implementors(method symbols.Resolved) []symbols.Resolved {
	iface := method.Table.EnclosingObject(method.Symbol.Scope)
	if iface == nil {
		return nil
	}
	var out []symbols.Resolved
	for _, impl := range r.snap.Implementors(iface.Name) {
		for _, m := range impl.Doc.Table.Members(impl.Symbol) {
			if m.Kind == symbols.KindProcedure && m.Key == method.Symbol.Key {
				out = append(out, symbols.Resolved{Table: impl.Doc.Table, Symbol: m})
			}
		}
	}
	return out
}

// family returns the set of declarations that references and renames treat
// as one symbol. For interface methods and their implementations that is
// the interface method plus every implementing procedure.
func (r *Resolver) family(res symbols.Resolved) []symbols.Resolved {
	var methods []symbols.Resolved
	switch {
	case res.Symbol.IsInterfaceMethod():
		methods = []symbols.Resolved{res}
	default:
		methods = r.interfaceMethods(res)
	}
	if len(methods) == 0 {
		return []symbols.Resolved{res}
	}

	seen := make(map[symbolKey]bool)
	var out []symbols.Resolved
	add := func(m symbols.Resolved) {
		if k := keyOf(m); !seen[k] {
			seen[k] = true
			out = append(out, m)
		}
	}
	for _, m := range methods {
		add(m)
		for _, impl := range r.implementors(m) {
			add(impl)
		}
	}
	add(res)
	return out
}

// SymbolAt resolves the identifier at pos to its declaration.
func (r *Resolver) SymbolAt(uri string, pos syntax.Point) (symbols.Resolved, bool) {
	_, _, res, ok := r.target(uri, pos)
	return res, ok
}

// MembersOf returns what '.' reaches on a value of res's type: the fields
// and procedures of the object, including those added by extensions.
func (r *Resolver) MembersOf(res symbols.Resolved) []symbols.Resolved {
	e, ok := r.typeEntry(res)
	if !ok {
		return nil
	}
	return r.members(e)
}

// Resolve resolves one occurrence of doc to the declaration it names.
func (r *Resolver) Resolve(doc *workspace.Document, occ *symbols.Occurrence) (symbols.Resolved, bool) {
	return r.resolveOcc(doc, occ)
}

// InterfaceMethods returns the interface methods a procedure implements.
func (r *Resolver) InterfaceMethods(res symbols.Resolved) []symbols.Resolved {
	return r.interfaceMethods(res)
}

// Describe renders the hover line of a declaration without markdown.
func (r *Resolver) Describe(res symbols.Resolved) string {
	return r.describe(res)
}
