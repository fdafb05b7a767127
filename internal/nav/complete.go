package nav

import (
	"strings"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Label      string       `json:"label"`
	Kind       symbols.Kind `json:"kind"`
	Detail     string       `json:"detail,omitempty"`
	InsertText string       `json:"insertText"`
	Keyword    bool         `json:"keyword,omitempty"`
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// prefixAt returns the partial identifier ending at off and where it starts.
// An open double quote before the identifier belongs to the prefix.
func prefixAt(text []byte, off int) (string, int) {
	start := off
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	if start > 0 && text[start-1] == '"' {
		start--
	}
	return string(text[start:off]), start
}

// Completion lists candidates at pos. After a '.' the members of the
// receiver's type are listed; otherwise every visible name, nearest declaration first, merged with the
// object names and keywords. Candidates are filtered by the identifier
// prefix under the cursor.
func (r *Resolver) Completion(uri string, pos syntax.Point, trigger string) []CompletionItem {
	doc, off, ok := r.cursor(uri, pos)
	if !ok {
		return nil
	}
	prefix, start := prefixAt(doc.Text, off)
	if start > 0 && doc.Text[start-1] == '.' {
		return filter(r.memberCompletion(doc, start-1), prefix)
	}
	if trigger == "." {
		return nil
	}

	scope := doc.Table.ScopeAt(off)
	seen := make(map[string]bool)
	var items []CompletionItem
	add := func(it CompletionItem) {
		key := symbols.NameKey(it.Label)
		if seen[key] {
			return
		}
		seen[key] = true
		items = append(items, it)
	}
	for _, res := range doc.Table.Visible(scope, r) {
		add(symbolItem(res.Symbol))
	}
	if e, ok := r.implicitRecord(doc.Table, scope); ok {
		detail := "Record " + symbols.Render(e.Symbol.Name)
		add(CompletionItem{Label: "Rec", Kind: symbols.KindVariable, Detail: detail, InsertText: "Rec"})
		add(CompletionItem{Label: "xRec", Kind: symbols.KindVariable, Detail: detail, InsertText: "xRec"})
	}
	for _, e := range r.snap.AllObjects() {
		add(symbolItem(e.Symbol))
	}
	for _, kw := range symbols.Keywords {
		add(CompletionItem{Label: kw, InsertText: kw, Keyword: true})
	}
	return filter(items, prefix)
}

func symbolItem(s *symbols.Symbol) CompletionItem {
	return CompletionItem{
		Label:      s.Name,
		Kind:       s.Kind,
		Detail:     s.Detail(),
		InsertText: symbols.Render(s.Name),
	}
}

func filter(items []CompletionItem, prefix string) []CompletionItem {
	p := strings.ToLower(strings.TrimPrefix(prefix, `"`))
	if p == "" {
		return items
	}
	var out []CompletionItem
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Label), p) {
			out = append(out, it)
		}
	}
	return out
}

// memberCompletion lists the members of the receiver left of the '.' at dot.
func (r *Resolver) memberCompletion(doc *workspace.Document, dot int) []CompletionItem {
	recv := receiverBefore(doc.Tree.Root, dot)
	if recv == nil {
		return nil
	}
	owner, ok := r.typeOf(doc, doc.Table.ScopeAt(dot), recv)
	if !ok {
		return nil
	}
	var items []CompletionItem
	seen := make(map[string]bool)
	for _, m := range r.members(owner) {
		if seen[m.Symbol.Key] {
			continue
		}
		seen[m.Symbol.Key] = true
		items = append(items, symbolItem(m.Symbol))
	}
	return items
}

// receiverBefore finds the object expression of the member access whose '.'
// starts at dot.
func receiverBefore(root *syntax.Node, dot int) *syntax.Node {
	var recv *syntax.Node
	root.Walk(func(n *syntax.Node) bool {
		if recv != nil || n.Start > dot || n.End <= dot {
			return false
		}
		if n.Kind == "." && n.Start == dot && n.Parent != nil {
			switch n.Parent.Kind {
			case "member_expression", "method_call":
				recv = n.Parent.ChildByField("object")
			}
		}
		return true
	})
	return recv
}

// SignatureHelp describes the call around the cursor.
type SignatureHelp struct {
	Label      string   `json:"label"`
	Parameters []string `json:"parameters"`
	// ActiveParameter is nil once more arguments were typed than the
	// procedure declares.
	ActiveParameter *int `json:"activeParameter,omitempty"`
}

// SignatureHelp finds the innermost argument list around pos, resolves the
// callee to a procedure and counts the commas before pos.
func (r *Resolver) SignatureHelp(uri string, pos syntax.Point) *SignatureHelp {
	doc, off, ok := r.cursor(uri, pos)
	if !ok {
		return nil
	}
	args := argumentListAt(doc.Tree.Root, off)
	if args == nil || args.Parent == nil {
		return nil
	}
	var callee *syntax.Node
	switch args.Parent.Kind {
	case "function_call":
		callee = args.Parent.ChildByField("name")
	case "method_call":
		callee = args.Parent.ChildByField("method")
	}
	if callee == nil || callee.Missing {
		return nil
	}
	occ := doc.Table.OccurrenceAt(callee.Start)
	if occ == nil {
		return nil
	}
	res, ok := r.resolveOcc(doc, occ)
	if !ok || res.Symbol.Kind != symbols.KindProcedure {
		return nil
	}

	params := res.Table.Parameters(res.Symbol)
	help := &SignatureHelp{Label: Signature(res), Parameters: make([]string, len(params))}
	for i, p := range params {
		help.Parameters[i] = paramLabel(p)
	}
	active := 0
	for _, c := range args.Children {
		if c.Kind == "," && c.Start < off {
			active++
		}
	}
	if active < len(params) {
		help.ActiveParameter = &active
	}
	return help
}

// argumentListAt returns the innermost argument list whose parentheses
// enclose off. An unclosed list extends to its missing ')'.
func argumentListAt(root *syntax.Node, off int) *syntax.Node {
	var best *syntax.Node
	root.Walk(func(n *syntax.Node) bool {
		if n.Start > off || n.End < off {
			return false
		}
		if n.Kind == "argument_list" && len(n.Children) > 0 && off > n.Start {
			closing := n.Children[len(n.Children)-1]
			if closing.Missing || off <= closing.Start {
				best = n
			}
		}
		return true
	})
	return best
}
