// Package parser is the built-in AL syntax provider. It produces trees with
// the node kinds and field names of the tree-sitter-al grammar, so consumers
// cannot tell the two providers apart.
//
// The parser never fails on malformed input. Unexpected tokens are wrapped in
// ERROR nodes and absent tokens become zero-width MISSING nodes.
package parser

import (
	"context"
	"fmt"

	"github.com/jward/alnav/internal/syntax"
)

const defaultMaxDepth = 256

// Parser implements syntax.Provider for AL source.
type Parser struct {
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth limits statement and expression nesting. Deeper input is
// reported as syntax errors instead of being parsed.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// New returns a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse implements syntax.Provider.
func (p *Parser) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	toks, comments := lex(src)
	s := &state{src: src, toks: toks, maxDepth: p.maxDepth}
	root := s.sourceFile()

	lines := syntax.NewLines(src)
	finalize(root, lines)

	tree := &syntax.Tree{Root: root, Source: src}
	for _, c := range comments {
		tree.Comments = append(tree.Comments, &syntax.Node{
			Kind:       "comment",
			Named:      true,
			Start:      c.start,
			End:        c.end,
			StartPoint: lines.Point(c.start),
			EndPoint:   lines.Point(c.end),
		})
	}
	return tree, nil
}

// finalize links parents and fills in row/column points.
func finalize(root *syntax.Node, lines *syntax.Lines) {
	stack := []*syntax.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.StartPoint = lines.Point(n.Start)
		n.EndPoint = lines.Point(n.End)
		for _, c := range n.Children {
			c.Parent = n
			stack = append(stack, c)
		}
	}
}

// reserved words can never be identifiers in expression or name position.
var reserved = map[string]bool{
	"and": true, "or": true, "xor": true, "not": true, "div": true, "mod": true,
	"in": true, "if": true, "then": true, "else": true, "begin": true, "end": true,
	"while": true, "do": true, "repeat": true, "until": true, "for": true,
	"foreach": true, "to": true, "downto": true, "case": true, "of": true,
	"with": true, "exit": true, "var": true, "procedure": true, "trigger": true,
	"local": true, "internal": true, "protected": true, "asserterror": true,
}

// memberStart words begin a new object member and stop error recovery.
var memberStart = map[string]bool{
	"procedure": true, "trigger": true, "var": true, "local": true,
	"internal": true, "protected": true,
}

type state struct {
	src      []byte
	toks     []token
	pos      int
	depth    int
	maxDepth int
}

func (s *state) cur() token { return s.toks[s.pos] }

func (s *state) peek(k int) token {
	if s.pos+k >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[s.pos+k]
}

func (s *state) advance() token {
	t := s.toks[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

func (s *state) eof() bool { return s.cur().kind == tokEOF }

func (s *state) at(text string) bool { return s.cur().is(text) }

func (s *state) atAny(texts ...string) bool {
	for _, t := range texts {
		if s.at(t) {
			return true
		}
	}
	return false
}

func (s *state) prevEnd() int {
	if s.pos == 0 {
		return 0
	}
	return s.toks[s.pos-1].end
}

func isName(t token) bool {
	return t.kind == tokQuoted || (t.kind == tokIdent && !reserved[t.lower])
}

func (s *state) leaf(kind string, named bool) *syntax.Node {
	t := s.advance()
	return &syntax.Node{Kind: kind, Named: named, Start: t.start, End: t.end}
}

// anon consumes the current token as an anonymous node named after its text.
func (s *state) anon() *syntax.Node {
	t := s.cur()
	kind := t.text
	if t.kind == tokIdent {
		kind = t.lower
	}
	return s.leaf(kind, false)
}

func (s *state) missingAt(kind string, off int) *syntax.Node {
	return &syntax.Node{Kind: kind, Missing: true, Start: off, End: off}
}

func (s *state) missing(kind string) *syntax.Node {
	return s.missingAt(kind, s.prevEnd())
}

// expect consumes text if present, or yields a MISSING node for it.
func (s *state) expect(text string) *syntax.Node {
	if s.at(text) {
		return s.anon()
	}
	return s.missing(text)
}

// name consumes an identifier or quoted identifier into the given field.
func (s *state) name(fieldName string) *syntax.Node {
	t := s.cur()
	switch {
	case t.kind == tokQuoted:
		return field(s.leaf("quoted_identifier", true), fieldName)
	case isName(t):
		return field(s.leaf("identifier", true), fieldName)
	}
	return field(s.missing("identifier"), fieldName)
}

func (s *state) errorToken() *syntax.Node {
	t := s.advance()
	return &syntax.Node{Kind: "ERROR", Named: true, Error: true, Start: t.start, End: t.end}
}

// errorUntil wraps tokens into an ERROR node up to and including the next
// ';', or up to the next '}' or member keyword. At least one token is taken.
func (s *state) errorUntil() *syntax.Node {
	first := s.pos
	start := s.cur().start
	end := start
	for !s.eof() {
		t := s.cur()
		if s.pos > first && (t.is("}") || (t.kind == tokIdent && memberStart[t.lower])) {
			break
		}
		s.advance()
		end = t.end
		if t.is(";") {
			break
		}
	}
	return &syntax.Node{Kind: "ERROR", Named: true, Error: true, Start: start, End: end}
}

// mk builds a named node from the non-nil children.
func (s *state) mk(kind string, children ...*syntax.Node) *syntax.Node {
	n := &syntax.Node{Kind: kind, Named: true}
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	if len(n.Children) == 0 {
		n.Start, n.End = s.prevEnd(), s.prevEnd()
		return n
	}
	n.Start = n.Children[0].Start
	n.End = n.Children[len(n.Children)-1].End
	return n
}

func field(n *syntax.Node, name string) *syntax.Node {
	if n != nil {
		n.Field = name
	}
	return n
}

// enter guards nesting depth. It returns false when the limit is reached.
func (s *state) enter() bool {
	if s.depth >= s.maxDepth {
		return false
	}
	s.depth++
	return true
}

func (s *state) leave() { s.depth-- }
