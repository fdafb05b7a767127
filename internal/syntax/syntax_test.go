package syntax

import (
	"context"
	"testing"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leaf builds a terminal node for hand-assembled test trees.
func leaf(kind, field string, named bool, start, end int) *Node {
	return &Node{Kind: kind, Field: field, Named: named, Start: start, End: end}
}

func adopt(parent *Node, children ...*Node) *Node {
	for _, c := range children {
		c.Parent = parent
	}
	parent.Children = children
	parent.Start = children[0].Start
	parent.End = children[len(children)-1].End
	return parent
}

// "var Counter: Integer;"
func sampleTree() *Node {
	name := leaf("identifier", "name", true, 4, 11)
	typ := leaf("type_reference", "type", true, 13, 20)
	decl := adopt(&Node{Kind: "variable_declaration", Named: true},
		name, leaf(":", "", false, 11, 12), typ, leaf(";", "", false, 20, 21))
	return adopt(&Node{Kind: "var_section", Named: true}, leaf("var", "", false, 0, 3), decl)
}

// =============================================================================
// Node
// =============================================================================

func TestNode_ChildByField(t *testing.T) {
	t.Parallel()
	root := sampleTree()
	decl := root.ChildOfKind("variable_declaration")
	require.NotNil(t, decl)

	src := []byte("var Counter: Integer;")
	assert.Equal(t, "Counter", decl.ChildByField("name").Text(src))
	assert.Equal(t, "Integer", decl.ChildByField("type").Text(src))
	assert.Nil(t, decl.ChildByField("missing"))
	assert.Len(t, decl.NamedChildren(), 2)
}

func TestNode_WalkPreOrder(t *testing.T) {
	t.Parallel()
	var kinds []string
	sampleTree().Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != "variable_declaration"
	})
	assert.Equal(t, []string{"var_section", "var", "variable_declaration"}, kinds)
}

func TestNode_DescendantAt(t *testing.T) {
	t.Parallel()
	root := sampleTree()

	n := root.DescendantAt(6, true)
	require.NotNil(t, n)
	assert.Equal(t, "identifier", n.Kind)

	// End offset of an identifier still resolves to it.
	n = root.DescendantAt(11, true)
	require.NotNil(t, n)
	assert.Equal(t, "identifier", n.Kind)

	assert.Nil(t, root.DescendantAt(99, true))
	assert.Equal(t, "variable_declaration", root.ChildOfKind("variable_declaration").DescendantAt(12, true).Kind)
}

func TestNode_Ancestor(t *testing.T) {
	t.Parallel()
	root := sampleTree()
	name := root.ChildOfKind("variable_declaration").ChildByField("name")
	assert.Same(t, root, name.Ancestor("var_section"))
	assert.Nil(t, name.Ancestor("procedure_declaration"))
}

func TestTree_Errors(t *testing.T) {
	t.Parallel()
	root := sampleTree()
	decl := root.ChildOfKind("variable_declaration")
	decl.Children[3] = &Node{Kind: ";", Missing: true, Start: 20, End: 20, Parent: decl}
	bad := &Node{Kind: "ERROR", Error: true, Start: 0, End: 3, Parent: root}
	root.Children[0] = bad

	tree := &Tree{Root: root, Source: []byte("var Counter: Integer;")}
	errs := tree.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "Syntax error: unexpected `var`", errs[0].Message)
	assert.Equal(t, "Expected `;`", errs[1].Message)
}

// =============================================================================
// Lines
// =============================================================================

func TestLines_PointAndOffset(t *testing.T) {
	t.Parallel()
	l := NewLines([]byte("ab\r\ncd\nef"))
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, Point{Row: 0, Column: 1}, l.Point(1))
	assert.Equal(t, Point{Row: 1, Column: 0}, l.Point(4))
	assert.Equal(t, Point{Row: 2, Column: 2}, l.Point(9))
	assert.Equal(t, 5, l.Offset(Point{Row: 1, Column: 1}))
	// Column past the line end clamps before the CRLF.
	assert.Equal(t, 2, l.Offset(Point{Row: 0, Column: 10}))
	assert.Equal(t, 9, l.Offset(Point{Row: 7, Column: 0}))
}

func TestLines_UTF16(t *testing.T) {
	t.Parallel()
	// "é" is two bytes and one UTF-16 unit; "𝄞" is four bytes and two units.
	src := []byte("é𝄞x")
	l := NewLines(src)
	assert.Equal(t, 2, l.OffsetUTF16(0, 1))
	assert.Equal(t, 6, l.OffsetUTF16(0, 3))
	row, char := l.PointUTF16(6)
	assert.Equal(t, 0, row)
	assert.Equal(t, 3, char)
}

// =============================================================================
// tree-sitter adapter
// =============================================================================

func TestSitterProvider_ConvertsFieldsAndKinds(t *testing.T) {
	t.Parallel()
	src := []byte("package main\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	tree, err := NewSitterProvider(golang.GetLanguage()).Parse(context.Background(), src)
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.Equal(t, "source_file", tree.Root.Kind)

	var fn *Node
	tree.Root.Walk(func(n *Node) bool {
		if n.Kind == "function_declaration" {
			fn = n
			return false
		}
		return true
	})
	require.NotNil(t, fn)
	assert.Equal(t, "Add", fn.ChildByField("name").Text(src))
	assert.NotNil(t, fn.ChildByField("parameters"))
	assert.Same(t, tree.Root, fn.Parent)
	assert.Equal(t, 2, fn.StartPoint.Row)
	assert.Empty(t, tree.Errors())
}

func TestSitterProvider_ReportsErrors(t *testing.T) {
	t.Parallel()
	src := []byte("package main\n\nfunc (\n")
	tree, err := NewSitterProvider(golang.GetLanguage()).Parse(context.Background(), src)
	require.NoError(t, err)
	assert.NotEmpty(t, tree.Errors())
}
