package nav

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// DocumentSymbol is one node of a document outline.
type DocumentSymbol struct {
	Name      string           `json:"name"`
	Kind      symbols.Kind     `json:"kind"`
	Detail    string           `json:"detail,omitempty"`
	Range     Location         `json:"range"`
	Selection Location         `json:"selection"`
	Children  []DocumentSymbol `json:"children,omitempty"`
}

// DocumentSymbols returns the outline of a document: objects, then their
// members in declaration order, then the parameters and locals of each
// routine. Fields, keys and field groups are grouped under a section node
// named after their section.
func (r *Resolver) DocumentSymbols(uri string) []DocumentSymbol {
	doc := r.snap.Document(uri)
	if doc == nil {
		return nil
	}
	t := doc.Table
	var out []DocumentSymbol
	for _, obj := range t.ObjectSymbols() {
		node := outlineNode(doc, obj)
		node.Children = objectOutline(doc, obj)
		out = append(out, node)
	}
	return out
}

func outlineNode(doc *workspace.Document, s *symbols.Symbol) DocumentSymbol {
	return DocumentSymbol{
		Name:      s.Name,
		Kind:      s.Kind,
		Detail:    s.Detail(),
		Range:     Location{URI: doc.URI, Span: s.Span, Start: s.StartPoint, End: s.EndPoint},
		Selection: nameLocation(symbols.Resolved{Table: doc.Table, Symbol: s}),
	}
}

func objectOutline(doc *workspace.Document, obj *symbols.Symbol) []DocumentSymbol {
	t := doc.Table
	var out []DocumentSymbol
	sections := make(map[string]int)
	for _, m := range t.Members(obj) {
		if m.Parent != obj.ID {
			continue
		}
		node := outlineNode(doc, m)
		node.Children = memberOutline(doc, m)
		if m.Section == "" {
			out = append(out, node)
			continue
		}
		i, ok := sections[m.Section]
		if !ok {
			i = len(out)
			sections[m.Section] = i
			out = append(out, DocumentSymbol{
				Name:      m.Section,
				Kind:      symbols.KindSection,
				Range:     node.Range,
				Selection: node.Range,
			})
		}
		sec := &out[i]
		sec.Children = append(sec.Children, node)
		if m.Span.End > sec.Range.Span.End {
			sec.Range.Span.End = m.Span.End
			sec.Range.End = m.EndPoint
			sec.Selection = sec.Range
		}
	}
	return out
}

func memberOutline(doc *workspace.Document, m *symbols.Symbol) []DocumentSymbol {
	t := doc.Table
	var kids []*symbols.Symbol
	switch m.Kind {
	case symbols.KindProcedure, symbols.KindTrigger:
		if sc := t.Scope(m.Body); sc != nil {
			for _, id := range sc.Symbols {
				kids = append(kids, t.Symbol(id))
			}
		}
	default:
		kids = t.Children(m.ID)
	}
	var out []DocumentSymbol
	for _, k := range kids {
		node := outlineNode(doc, k)
		node.Children = memberOutline(doc, k)
		out = append(out, node)
	}
	return out
}

// SymbolInformation is one workspace symbol search hit.
type SymbolInformation struct {
	Name      string       `json:"name"`
	Kind      symbols.Kind `json:"kind"`
	Container string       `json:"container,omitempty"`
	Location  Location     `json:"location"`
}

// WorkspaceSymbols matches query case-insensitively as a substring of every
// declaration name outside routine bodies. An empty query matches all of
// them. The scan polls ctx between documents.
func (r *Resolver) WorkspaceSymbols(ctx context.Context, query string) ([]SymbolInformation, error) {
	q := strings.ToLower(symbols.Unquote(query))
	var out []SymbolInformation
	for _, doc := range r.snap.Documents() {
		if err := ctx.Err(); err != nil {
			log.Debugf("workspace symbol scan for %q cancelled", query)
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		t := doc.Table
		for i := range t.Symbols {
			s := &t.Symbols[i]
			if sc := t.Scope(s.Scope); sc != nil && (sc.Kind != symbols.ScopeDocument && sc.Kind != symbols.ScopeObject) {
				continue
			}
			if !strings.Contains(s.Key, q) {
				continue
			}
			info := SymbolInformation{
				Name:     s.Name,
				Kind:     s.Kind,
				Location: nameLocation(symbols.Resolved{Table: t, Symbol: s}),
			}
			if p := t.Symbol(s.Parent); p != nil {
				info.Container = p.Name
			}
			out = append(out, info)
		}
	}
	return out, nil
}

// FoldingRange is a foldable line range.
type FoldingRange struct {
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Kind      string `json:"kind,omitempty"` // "comment" or "region"
}

func foldable(kind string) bool {
	switch {
	case kind == "block", kind == "case_branch":
		return true
	case strings.HasSuffix(kind, "_declaration"), strings.HasSuffix(kind, "_section"):
		return kind != "variable_declaration"
	case strings.HasSuffix(kind, "_statement"):
		return kind != "assignment_statement" && kind != "exit_statement"
	}
	return false
}

// FoldingRanges returns one range per multi-line declaration, section,
// compound statement and comment, at most one per start line.
func (r *Resolver) FoldingRanges(uri string) []FoldingRange {
	doc := r.snap.Document(uri)
	if doc == nil {
		return nil
	}
	byLine := make(map[int]FoldingRange)
	add := func(start, end syntax.Point, kind string) {
		if end.Row <= start.Row {
			return
		}
		if prev, ok := byLine[start.Row]; ok && prev.EndLine >= end.Row {
			return
		}
		byLine[start.Row] = FoldingRange{StartLine: start.Row, EndLine: end.Row, Kind: kind}
	}
	doc.Tree.Root.Walk(func(n *syntax.Node) bool {
		if n.Missing || n.Error {
			return false
		}
		if foldable(n.Kind) {
			add(n.StartPoint, n.EndPoint, "region")
		}
		return true
	})
	for _, c := range doc.Tree.Comments {
		add(c.StartPoint, c.EndPoint, "comment")
	}

	out := make([]FoldingRange, 0, len(byLine))
	for _, fr := range byLine {
		out = append(out, fr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out
}

// Diagnostic is a recovered syntax problem.
type Diagnostic struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// Diagnostics returns the syntax errors of a document.
func (r *Resolver) Diagnostics(uri string) []Diagnostic {
	doc := r.snap.Document(uri)
	if doc == nil {
		return nil
	}
	var out []Diagnostic
	for _, e := range doc.Tree.Errors() {
		out = append(out, Diagnostic{
			Location: Location{URI: uri, Span: e.Span, Start: e.Start, End: e.End},
			Message:  e.Message,
		})
	}
	return out
}
