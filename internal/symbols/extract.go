package symbols

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jward/alnav/internal/syntax"
)

// frame is one pending node of the extraction walk together with the
// context it inherits from its ancestors.
type frame struct {
	node    *syntax.Node
	scope   ScopeID
	owner   SymbolID // nearest enclosing declaration
	object  SymbolID
	section string
}

type builder struct {
	t          *Table
	src        []byte
	decls      map[*syntax.Node]SymbolID
	objectRefs map[*syntax.Node]Kind
	stack      []frame
}

// Extract builds the symbol table of one parsed document. Declarations whose
// name or type is missing after error recovery are skipped and counted in
// Table.Skipped; everything around them is still extracted.
func Extract(uri string, tree *syntax.Tree) *Table {
	t := &Table{URI: uri, Root: 0}
	t.Scopes = append(t.Scopes, Scope{
		ID:     0,
		Kind:   ScopeDocument,
		Parent: NoScope,
		Owner:  NoSymbol,
	})
	if tree == nil || tree.Root == nil {
		t.byKey = map[string][]int{}
		return t
	}
	t.Scopes[0].Span = tree.Root.Span()

	b := &builder{
		t:          t,
		src:        tree.Source,
		decls:      make(map[*syntax.Node]SymbolID),
		objectRefs: make(map[*syntax.Node]Kind),
	}
	b.stack = append(b.stack, frame{node: tree.Root, scope: 0, owner: NoSymbol, object: NoSymbol})
	for len(b.stack) > 0 {
		f := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		if f.node.Missing || f.node.Error {
			continue
		}
		b.visit(f)
	}

	sort.SliceStable(t.Occurrences, func(i, j int) bool {
		return t.Occurrences[i].Span.Start < t.Occurrences[j].Span.Start
	})
	t.byKey = make(map[string][]int)
	for i := range t.Occurrences {
		k := t.Occurrences[i].Key
		t.byKey[k] = append(t.byKey[k], i)
	}
	return t
}

// push schedules children so that they are visited in source order.
func (b *builder) push(f frame, kids []*syntax.Node) {
	for i := len(kids) - 1; i >= 0; i-- {
		c := f
		c.node = kids[i]
		b.stack = append(b.stack, c)
	}
}

func (b *builder) visit(f frame) {
	n := f.node
	if kind, ok := ObjectKindForNode(n.Kind); ok {
		b.object(f, kind)
		return
	}
	switch n.Kind {
	case "procedure_declaration", "interface_method":
		b.routine(f, KindProcedure, ScopeProcedure)
	case "trigger_declaration":
		b.routine(f, KindTrigger, ScopeTrigger)
	case "parameter":
		b.variables(f, KindParameter)
	case "variable_declaration":
		b.variables(f, KindVariable)
	case "return_type":
		b.returnValue(f)
	case "fields_section":
		f.section = "fields"
		b.push(f, n.Children)
	case "keys_section":
		f.section = "keys"
		b.push(f, n.Children)
	case "fieldgroups_section":
		f.section = "fieldgroups"
		b.push(f, n.Children)
	case "field_declaration":
		b.member(f, KindField)
	case "key_declaration":
		b.member(f, KindKey)
	case "fieldgroup_declaration":
		b.member(f, KindFieldGroup)
	case "enum_value_declaration":
		b.member(f, KindEnumValue)
	case "property":
		b.property(f)
	case "block":
		b.block(f)
	case "with_statement":
		b.with(f)
	case "section_arguments":
		// The first argument of a page control or area names the control.
		kids := n.Children
		for i, c := range kids {
			if c.Named {
				if c.Kind == "identifier" || c.Kind == "quoted_identifier" {
					kids = append(append([]*syntax.Node{}, kids[:i]...), kids[i+1:]...)
				}
				break
			}
		}
		b.push(f, kids)
	case "identifier", "quoted_identifier":
		b.occurrence(f)
	case "attribute", "comment":
	default:
		b.push(f, n.Children)
	}
}

func (b *builder) newScope(kind ScopeKind, parent ScopeID, span syntax.Span, owner SymbolID) ScopeID {
	id := ScopeID(len(b.t.Scopes))
	b.t.Scopes = append(b.t.Scopes, Scope{
		ID:     id,
		Kind:   kind,
		Parent: parent,
		Span:   span,
		Owner:  owner,
	})
	return id
}

// validName reports whether n is a usable declaration name.
func (b *builder) validName(n *syntax.Node) bool {
	if n == nil || n.Missing || (n.Kind != "identifier" && n.Kind != "quoted_identifier") {
		return false
	}
	return strings.TrimSpace(Unquote(n.Text(b.src))) != ""
}

func validType(n *syntax.Node) bool {
	return n != nil && !n.Missing && n.Kind == "type_reference"
}

func (b *builder) declare(kind Kind, name, decl *syntax.Node, scope ScopeID, parent SymbolID) SymbolID {
	text := name.Text(b.src)
	id := SymbolID(len(b.t.Symbols))
	b.t.Symbols = append(b.t.Symbols, Symbol{
		ID:         id,
		Kind:       kind,
		Name:       Unquote(text),
		Key:        NameKey(text),
		Quoted:     strings.HasPrefix(text, `"`),
		Span:       decl.Span(),
		NameSpan:   name.Span(),
		StartPoint: decl.StartPoint,
		EndPoint:   decl.EndPoint,
		NameStart:  name.StartPoint,
		NameEnd:    name.EndPoint,
		Scope:      scope,
		Body:       NoScope,
		Parent:     parent,
	})
	sc := &b.t.Scopes[scope]
	sc.Symbols = append(sc.Symbols, id)
	b.decls[name] = id
	return id
}

func (b *builder) objectID(n *syntax.Node) int {
	idNode := n.ChildByField("id")
	if idNode == nil || idNode.Missing {
		return 0
	}
	v, err := strconv.Atoi(idNode.Text(b.src))
	if err != nil {
		return 0
	}
	return v
}

func (b *builder) object(f frame, kind Kind) {
	n := f.node
	scope := b.newScope(ScopeObject, f.scope, n.Span(), NoSymbol)
	id := NoSymbol

	name := n.ChildByField("name")
	if b.validName(name) {
		id = b.declare(kind, name, n, f.scope, NoSymbol)
		s := &b.t.Symbols[id]
		s.Body = scope
		s.ObjectID = b.objectID(n)
		if base := n.ChildByField("base"); b.validName(base) {
			s.Extends = Unquote(base.Text(b.src))
		}
		if impl := n.ChildByField("implements"); impl != nil {
			for _, iface := range impl.ChildrenByField("interface") {
				if b.validName(iface) {
					s.Implements = append(s.Implements, Unquote(iface.Text(b.src)))
				}
			}
		}
		b.t.Scopes[scope].Owner = id
		b.t.Objects = append(b.t.Objects, id)
	} else {
		b.t.Skipped++
	}

	b.push(frame{scope: scope, owner: id, object: id}, n.Children)
}

func (b *builder) routine(f frame, kind Kind, scopeKind ScopeKind) {
	n := f.node
	scope := b.newScope(scopeKind, f.scope, n.Span(), NoSymbol)
	id := NoSymbol

	name := n.ChildByField("name")
	if b.validName(name) {
		id = b.declare(kind, name, n, f.scope, f.owner)
		s := &b.t.Symbols[id]
		s.Body = scope
		s.interfaceDecl = n.Kind == "interface_method"
		if acc := n.ChildByField("access"); acc != nil {
			switch strings.ToLower(acc.Text(b.src)) {
			case "local":
				s.Access = AccessLocal
			case "internal":
				s.Access = AccessInternal
			case "protected":
				s.Access = AccessProtected
			}
		}
		if rt := n.ChildByField("return_type"); rt != nil {
			if tn := rt.ChildByField("type"); validType(tn) {
				s.Return = b.typeRef(tn)
			}
		}
		b.t.Scopes[scope].Owner = id
	} else {
		b.t.Skipped++
	}

	c := f
	c.scope = scope
	if id != NoSymbol {
		c.owner = id
	}
	b.push(c, n.Children)
}

func (b *builder) variables(f frame, kind Kind) {
	n := f.node
	names := n.ChildrenByField("name")
	tn := n.ChildByField("type")
	if !validType(tn) {
		b.t.Skipped += len(names)
		b.push(f, n.Children)
		return
	}
	tr := b.typeRef(tn)
	byRef := n.ChildByField("modifier") != nil
	for _, name := range names {
		if !b.validName(name) {
			b.t.Skipped++
			continue
		}
		id := b.declare(kind, name, n, f.scope, f.owner)
		b.t.Symbols[id].Type = tr
		b.t.Symbols[id].VarParam = byRef
	}
	b.push(f, n.Children)
}

// returnValue declares a named return value in the procedure scope.
func (b *builder) returnValue(f frame) {
	n := f.node
	if name := n.ChildByField("name"); name != nil {
		if tn := n.ChildByField("type"); b.validName(name) && validType(tn) {
			id := b.declare(KindVariable, name, n, f.scope, f.owner)
			b.t.Symbols[id].Type = b.typeRef(tn)
		}
	}
	b.push(f, n.Children)
}

func (b *builder) member(f frame, kind Kind) {
	n := f.node
	name := n.ChildByField("name")
	tn := n.ChildByField("type")
	id := NoSymbol
	switch {
	case !b.validName(name):
		b.t.Skipped++
	case kind == KindField && !validType(tn):
		b.t.Skipped++
	default:
		id = b.declare(kind, name, n, f.scope, f.owner)
		s := &b.t.Symbols[id]
		s.Section = f.section
		s.ObjectID = b.objectID(n)
		if kind == KindField {
			s.Type = b.typeRef(tn)
		}
	}
	c := f
	if id != NoSymbol {
		c.owner = id
	}
	b.push(c, n.Children)
}

func (b *builder) property(f frame) {
	n := f.node
	name := n.ChildByField("name")
	if f.object != NoSymbol && strings.EqualFold(name.Text(b.src), "SourceTable") {
		for _, v := range n.ChildByField("value").NamedChildren() {
			if v.Kind == "identifier" || v.Kind == "quoted_identifier" {
				b.t.Symbols[f.object].SourceTable = Unquote(v.Text(b.src))
				b.objectRefs[v] = KindTable
				break
			}
		}
	}
	b.push(f, n.Children)
}

func (b *builder) block(f frame) {
	n := f.node
	if p := n.Parent; n.Field == "body" && p != nil &&
		(p.Kind == "procedure_declaration" || p.Kind == "trigger_declaration") {
		b.push(f, n.Children)
		return
	}
	c := f
	c.scope = b.newScope(ScopeBlock, f.scope, n.Span(), f.owner)
	b.push(c, n.Children)
}

// with gives the statement body a synthetic scope whose members are the
// fields of the record expression.
func (b *builder) with(f frame) {
	n := f.node
	rec := n.ChildByField("record")
	if body := n.ChildByField("body"); body != nil {
		c := f
		c.scope = b.newScope(ScopeWith, f.scope, body.Span(), f.owner)
		b.t.Scopes[c.scope].With = rec
		b.push(c, []*syntax.Node{body})
	}
	if rec != nil {
		b.push(f, []*syntax.Node{rec})
	}
}

func (b *builder) typeRef(n *syntax.Node) *TypeRef {
	tr := &TypeRef{Text: n.Text(b.src)}
	kw := n.ChildByField("kind")
	if kw == nil {
		return tr
	}
	keyword := strings.ToLower(kw.Text(b.src))
	if keyword == "array" {
		if el := n.ChildByField("element"); validType(el) {
			inner := b.typeRef(el)
			tr.Object, tr.Name, tr.Key = inner.Object, inner.Name, inner.Key
		}
		return tr
	}
	if k, ok := ObjectKindForType(keyword); ok {
		tr.Object = k
		if name := n.ChildByField("name"); b.validName(name) {
			tr.Name = Unquote(name.Text(b.src))
			tr.Key = NameKey(name.Text(b.src))
		}
	}
	return tr
}

func (b *builder) occurrence(f frame) {
	n := f.node
	text := n.Text(b.src)
	key := NameKey(text)
	if key == "" {
		return
	}
	occ := Occurrence{
		Key:   key,
		Span:  n.Span(),
		Start: n.StartPoint,
		End:   n.EndPoint,
		Scope: f.scope,
		Role:  RoleUsage,
		Decl:  NoSymbol,
		Node:  n,
	}
	p := n.Parent

	if id, ok := b.decls[n]; ok {
		occ.Role = RoleDeclaration
		occ.Decl = id
		b.t.Occurrences = append(b.t.Occurrences, occ)
		return
	}
	if k, ok := b.objectRefs[n]; ok {
		occ.Role = RoleObjectRef
		occ.Object = k
		b.t.Occurrences = append(b.t.Occurrences, occ)
		return
	}

	switch {
	case p == nil:
	case (p.Kind == "member_expression" && n.Field == "member") || (p.Kind == "method_call" && n.Field == "method"):
		occ.Role = RoleMember
		occ.Write = isAssignTarget(p)
	case p.Kind == "type_reference" && n.Field == "name":
		k, ok := ObjectKindForType(p.ChildByField("kind").Text(b.src))
		if !ok {
			return
		}
		occ.Role = RoleObjectRef
		occ.Object = k
	case p.Kind == "implements_clause":
		occ.Role = RoleObjectRef
		occ.Object = KindInterface
	case n.Field == "base":
		k, ok := ObjectKindForNode(p.Kind)
		if !ok {
			return
		}
		occ.Role = RoleObjectRef
		occ.Object = k.BaseKind()
	case p.Kind == "qualified_expression" && n.Field == "qualifier":
		if _, ok := ObjectKindForQualifier(text); ok && n.Kind == "identifier" {
			return
		}
		occ.Role = RoleObjectRef
		occ.Object = KindEnum
	case p.Kind == "qualified_expression" && n.Field == "member":
		q := p.ChildByField("qualifier")
		if q != nil && q.Kind == "identifier" {
			if k, ok := ObjectKindForQualifier(q.Text(b.src)); ok {
				occ.Role = RoleObjectRef
				occ.Object = k
				break
			}
		}
		occ.Role = RoleQualified
		if q != nil && (q.Kind == "identifier" || q.Kind == "quoted_identifier") {
			occ.Qualifier = NameKey(q.Text(b.src))
		}
	default:
		occ.Write = isAssignTarget(n) || (n.Field == "variable" && p.Kind == "for_statement")
	}
	b.t.Occurrences = append(b.t.Occurrences, occ)
}

func isAssignTarget(n *syntax.Node) bool {
	return n.Field == "left" && n.Parent != nil && n.Parent.Kind == "assignment_statement"
}
