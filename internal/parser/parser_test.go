package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
	"github.com/jward/alnav/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	return tree
}

func findKind(root *syntax.Node, kind string) []*syntax.Node {
	var out []*syntax.Node
	root.Walk(func(n *syntax.Node) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

// =============================================================================
// Lexer
// =============================================================================

func TestLex_TokensAndComments(t *testing.T) {
	t.Parallel()
	src := []byte("x := \"No.\" + 'it''s'; // done\n/* block */ y::z 0D 1.5")
	toks, comments := lex(src)

	var texts []string
	for _, tk := range toks {
		if tk.kind != tokEOF {
			texts = append(texts, tk.text)
		}
	}
	assert.Equal(t, []string{"x", ":=", `"No."`, "+", "'it''s'", ";", "y", "::", "z", "0D", "1.5"}, texts)
	require.Len(t, comments, 2)
	assert.False(t, comments[0].block)
	assert.True(t, comments[1].block)
	assert.Equal(t, tokDecimal, toks[len(toks)-2].kind)
}

func TestLex_KeywordsAreCaseInsensitive(t *testing.T) {
	t.Parallel()
	toks, _ := lex([]byte("BEGIN End"))
	assert.True(t, toks[0].is("begin"))
	assert.True(t, toks[1].is("end"))
}

// =============================================================================
// Declarations
// =============================================================================

func TestParse_InterfaceAndImplements(t *testing.T) {
	t.Parallel()
	tree := parse(t, altest.Interface+altest.Provider)
	src := tree.Source

	ifaces := findKind(tree.Root, "interface_declaration")
	require.Len(t, ifaces, 1)
	assert.Equal(t, "IAddressProvider", ifaces[0].ChildByField("name").Text(src))

	methods := findKind(ifaces[0], "interface_method")
	require.Len(t, methods, 2)
	assert.Equal(t, "GetAddress", methods[0].ChildByField("name").Text(src))
	rt := methods[0].ChildByField("return_type")
	require.NotNil(t, rt)
	assert.Equal(t, "Text", rt.ChildByField("type").Text(src))

	cu := findKind(tree.Root, "codeunit_declaration")
	require.Len(t, cu, 1)
	assert.Equal(t, "50200", cu[0].ChildByField("id").Text(src))
	impl := cu[0].ChildByField("implements")
	require.NotNil(t, impl)
	names := impl.ChildrenByField("interface")
	require.Len(t, names, 1)
	assert.Equal(t, "IAddressProvider", names[0].Text(src))

	assert.Empty(t, tree.Errors())
}

func TestParse_ProcedureShape(t *testing.T) {
	t.Parallel()
	tree := parse(t, altest.Shadow)
	src := tree.Source

	procs := findKind(tree.Root, "procedure_declaration")
	require.Len(t, procs, 4)

	sum := procs[2]
	assert.Equal(t, "Sum", sum.ChildByField("name").Text(src))
	assert.Equal(t, "local", sum.ChildByField("access").Text(src))
	params := findKind(sum.ChildByField("parameters"), "parameter")
	require.Len(t, params, 2)
	assert.Equal(t, "B", params[1].ChildByField("name").Text(src))
	assert.Equal(t, "block", sum.ChildByField("body").Kind)

	inner := procs[1]
	vars := inner.ChildByField("vars")
	require.NotNil(t, vars)
	decls := findKind(vars, "variable_declaration")
	require.Len(t, decls, 1)
	assert.Equal(t, "Counter", decls[0].ChildByField("name").Text(src))

	calls := findKind(tree.Root, "function_call")
	require.Len(t, calls, 1)
	assert.Equal(t, "Sum", calls[0].ChildByField("name").Text(src))
	assert.Empty(t, tree.Errors())
}

func TestParse_TableSections(t *testing.T) {
	t.Parallel()
	tree := parse(t, altest.Customer)
	src := tree.Source

	fields := findKind(tree.Root, "field_declaration")
	require.Len(t, fields, 5)
	assert.Equal(t, `"No."`, fields[0].ChildByField("name").Text(src))
	assert.Equal(t, "quoted_identifier", fields[0].ChildByField("name").Kind)
	assert.Equal(t, "Code[20]", fields[0].ChildByField("type").Text(src))

	keys := findKind(tree.Root, "key_declaration")
	require.Len(t, keys, 2)
	assert.Equal(t, "PK", keys[0].ChildByField("name").Text(src))
	assert.Len(t, keys[1].ChildrenByField("field"), 2)

	groups := findKind(tree.Root, "fieldgroup_declaration")
	require.Len(t, groups, 1)

	triggers := findKind(fields[1], "trigger_declaration")
	require.Len(t, triggers, 1)
	assert.Equal(t, "OnValidate", triggers[0].ChildByField("name").Text(src))

	props := findKind(tree.Root, "property")
	require.NotEmpty(t, props)
	assert.Equal(t, "Caption", props[0].ChildByField("name").Text(src))
	assert.Empty(t, tree.Errors())
}

func TestParse_PageAndStatements(t *testing.T) {
	t.Parallel()
	tree := parse(t, altest.Card)
	src := tree.Source

	require.Len(t, findKind(tree.Root, "page_declaration"), 1)
	assert.Len(t, findKind(tree.Root, "layout_section"), 1)
	assert.Len(t, findKind(tree.Root, "page_field"), 2)

	withs := findKind(tree.Root, "with_statement")
	require.Len(t, withs, 1)
	assert.Equal(t, "Cust", withs[0].ChildByField("record").Text(src))
	assert.Equal(t, "assignment_statement", withs[0].ChildByField("body").Kind)

	quals := findKind(tree.Root, "qualified_expression")
	require.Len(t, quals, 1)
	assert.Equal(t, "Color", quals[0].ChildByField("qualifier").Text(src))
	assert.Equal(t, "Red", quals[0].ChildByField("member").Text(src))

	calls := findKind(tree.Root, "method_call")
	require.NotEmpty(t, calls)
	assert.Equal(t, "Get", calls[0].ChildByField("method").Text(src))

	typeRefs := findKind(tree.Root, "type_reference")
	var recordType *syntax.Node
	for _, tr := range typeRefs {
		if strings.HasPrefix(tr.Text(src), "Record") {
			recordType = tr
		}
	}
	require.NotNil(t, recordType)
	assert.Equal(t, "Customer", recordType.ChildByField("name").Text(src))
	assert.Empty(t, tree.Errors())
}

func TestParse_ExtensionAndEnum(t *testing.T) {
	t.Parallel()
	tree := parse(t, altest.CustomerExt+altest.Color)
	src := tree.Source

	ext := findKind(tree.Root, "table_extension_declaration")
	require.Len(t, ext, 1)
	assert.Equal(t, "Customer", ext[0].ChildByField("base").Text(src))

	values := findKind(tree.Root, "enum_value_declaration")
	require.Len(t, values, 2)
	assert.Equal(t, `"Light Blue"`, values[1].ChildByField("name").Text(src))
	assert.Empty(t, tree.Errors())
}

func TestParse_PointsAndParents(t *testing.T) {
	t.Parallel()
	tree := parse(t, altest.Interface)
	methods := findKind(tree.Root, "interface_method")
	require.NotEmpty(t, methods)
	name := methods[0].ChildByField("name")
	assert.Equal(t, syntax.Point{Row: 2, Column: 14}, name.StartPoint)
	assert.Same(t, methods[0], name.Parent)
	assert.Same(t, tree.Root, methods[0].Parent.Parent)
}

func TestParse_Comments(t *testing.T) {
	t.Parallel()
	tree := parse(t, "// header\ncodeunit 1 A\n{\n    /* multi\n       line */\n}\n")
	require.Len(t, tree.Comments, 2)
	assert.Equal(t, 3, tree.Comments[1].StartPoint.Row)
	assert.Equal(t, 4, tree.Comments[1].EndPoint.Row)
}

// =============================================================================
// Error recovery
// =============================================================================

func TestParse_MissingProcedureNameIsRecovered(t *testing.T) {
	t.Parallel()
	src := "codeunit 1 Broken\n{\n    procedure (A: Integer)\n    begin\n    end;\n\n    procedure Good()\n    begin\n    end;\n}\n"
	tree := parse(t, src)
	procs := findKind(tree.Root, "procedure_declaration")
	require.Len(t, procs, 2)
	assert.True(t, procs[0].ChildByField("name").Missing)
	assert.Equal(t, "Good", procs[1].ChildByField("name").Text(tree.Source))
	assert.NotEmpty(t, tree.Errors())
}

func TestParse_GarbageDoesNotStopParsing(t *testing.T) {
	t.Parallel()
	src := "@@ junk\ncodeunit 1 A\n{\n    ??? stray;\n    procedure P()\n    begin\n        x := ;\n        if then\n    end;\n}\n"
	tree := parse(t, src)
	require.Len(t, findKind(tree.Root, "codeunit_declaration"), 1)
	procs := findKind(tree.Root, "procedure_declaration")
	require.Len(t, procs, 1)
	assert.Equal(t, "P", procs[0].ChildByField("name").Text(tree.Source))
	assert.NotEmpty(t, tree.Errors())
}

func TestParse_UnclosedCallKeepsArguments(t *testing.T) {
	t.Parallel()
	src := "codeunit 1 A\n{\n    procedure P()\n    begin\n        Sum(1, \n    end;\n}\n"
	tree := parse(t, src)
	calls := findKind(tree.Root, "function_call")
	require.Len(t, calls, 1)
	args := calls[0].ChildByField("arguments")
	require.NotNil(t, args)
	closing := args.Children[len(args.Children)-1]
	assert.True(t, closing.Missing)
	assert.Equal(t, strings.Index(src, "end;"), closing.Start)
}

func TestParse_DeepNestingIsBounded(t *testing.T) {
	t.Parallel()
	depth := 5000
	src := "codeunit 1 A\n{\n    procedure P()\n    begin\n        x := " +
		strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + ";\n    end;\n}\n"
	tree, err := New(WithMaxDepth(64)).Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.NotEmpty(t, tree.Errors())
	require.Len(t, findKind(tree.Root, "procedure_declaration"), 1)
}

func TestParse_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Parse(ctx, []byte("codeunit 1 A { }"))
	require.ErrorIs(t, err, context.Canceled)
}
