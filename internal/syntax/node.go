// Package syntax defines the immutable concrete syntax tree the rest of alnav
// consumes, and the Provider seam through which trees are produced.
//
// Trees are plain Go values. A tree-sitter CST is converted once at parse
// time (see FromSitter), and the native AL parser builds the same shape
// directly. Nothing in a Tree is mutated after Parse returns, so a Tree can be
// shared freely between concurrent readers.
package syntax

import "context"

// Point is a zero-based row and byte column.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Less reports whether p sorts before q.
func (p Point) Less(q Point) bool {
	return p.Row < q.Row || (p.Row == q.Row && p.Column < q.Column)
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether off lies within the span. The end offset is
// inclusive so a cursor placed just after a token still hits it.
func (s Span) Contains(off int) bool {
	return s.Start <= off && off <= s.End
}

// Encloses reports whether o lies entirely within s.
func (s Span) Encloses(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Len returns the width of the span in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Node is a single node of a concrete syntax tree.
type Node struct {
	Kind    string // grammar node kind, e.g. "procedure_declaration"
	Field   string // field name in the parent, empty if none
	Named   bool
	Error   bool // an ERROR node produced by error recovery
	Missing bool // a zero-width node inserted by error recovery

	Start      int
	End        int
	StartPoint Point
	EndPoint   Point

	Parent   *Node
	Children []*Node
}

// Span returns the node's byte range.
func (n *Node) Span() Span { return Span{Start: n.Start, End: n.End} }

// Text returns the source text covered by the node.
func (n *Node) Text(src []byte) string {
	if n == nil || n.Start < 0 || n.End > len(src) || n.Start > n.End {
		return ""
	}
	return string(src[n.Start:n.End])
}

// ChildByField returns the first child carrying the given field name.
func (n *Node) ChildByField(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// ChildrenByField returns every child carrying the given field name, in order.
func (n *Node) ChildrenByField(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Field == name {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildren returns the named children in order.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		}
	}
	return out
}

// ChildOfKind returns the first child with the given kind.
func (n *Node) ChildOfKind(kind string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Ancestor returns the nearest proper ancestor whose kind is one of kinds.
func (n *Node) Ancestor(kinds ...string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, k := range kinds {
			if p.Kind == k {
				return p
			}
		}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children. The traversal keeps its own stack, so tree depth
// is bounded only by memory.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// DescendantAt returns the deepest node whose span contains off. When named
// is true only named nodes are considered.
func (n *Node) DescendantAt(off int, named bool) *Node {
	if n == nil || !n.Span().Contains(off) {
		return nil
	}
	best := n
	for {
		var next *Node
		for _, c := range best.Children {
			if c.Missing || !c.Span().Contains(off) {
				continue
			}
			if named && !c.Named {
				continue
			}
			next = c
			// Prefer a child that starts exactly at off over one ending there.
			if c.Start <= off && off < c.End {
				break
			}
		}
		if next == nil {
			return best
		}
		best = next
	}
}

// Tree is an immutable parse result for one document version.
type Tree struct {
	Root     *Node
	Source   []byte
	Comments []*Node
}

// Provider produces syntax trees from source text.
type Provider interface {
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, src []byte) (*Tree, error)

// Parse calls f(ctx, src).
func (f ProviderFunc) Parse(ctx context.Context, src []byte) (*Tree, error) {
	return f(ctx, src)
}
