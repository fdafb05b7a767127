package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SitterProvider parses with a tree-sitter grammar and converts the result
// into an immutable Tree. Hosts that ship a compiled tree-sitter-al grammar
// plug it in here; the native parser is used otherwise.
type SitterProvider struct {
	lang *sitter.Language
}

// NewSitterProvider returns a Provider backed by the given grammar.
func NewSitterProvider(lang *sitter.Language) *SitterProvider {
	return &SitterProvider{lang: lang}
}

// Parse implements Provider.
func (p *SitterProvider) Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: tree-sitter parse: %w", err)
	}
	defer tree.Close()

	return FromSitter(tree.RootNode(), src), nil
}

// commentKinds are the node kinds collected into Tree.Comments.
var commentKinds = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
}

// FromSitter copies a tree-sitter CST into a Tree. The copy is iterative so
// deeply nested input cannot exhaust the goroutine stack.
func FromSitter(root *sitter.Node, src []byte) *Tree {
	t := &Tree{Source: src}
	if root == nil {
		return t
	}

	type frame struct {
		from *sitter.Node
		to   *Node
	}

	t.Root = convertSitterNode(root, "", nil)
	stack := []frame{{from: root, to: t.Root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count := int(f.from.ChildCount())
		if count == 0 {
			continue
		}
		f.to.Children = make([]*Node, 0, count)
		for i := 0; i < count; i++ {
			child := f.from.Child(i)
			if child == nil {
				continue
			}
			n := convertSitterNode(child, f.from.FieldNameForChild(i), f.to)
			f.to.Children = append(f.to.Children, n)
			if commentKinds[n.Kind] {
				t.Comments = append(t.Comments, n)
			}
			stack = append(stack, frame{from: child, to: n})
		}
	}
	return t
}

func convertSitterNode(sn *sitter.Node, field string, parent *Node) *Node {
	sp, ep := sn.StartPoint(), sn.EndPoint()
	return &Node{
		Kind:       sn.Type(),
		Field:      field,
		Named:      sn.IsNamed(),
		Error:      sn.Type() == "ERROR",
		Missing:    sn.IsMissing(),
		Start:      int(sn.StartByte()),
		End:        int(sn.EndByte()),
		StartPoint: Point{Row: int(sp.Row), Column: int(sp.Column)},
		EndPoint:   Point{Row: int(ep.Row), Column: int(ep.Column)},
		Parent:     parent,
	}
}
