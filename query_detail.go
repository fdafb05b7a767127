package alnav

import (
	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/symbols"
)

// SymbolDetail bundles a declaration with its parameters and, for object
// types, the members reachable through '.'.
type SymbolDetail struct {
	Symbol     SymbolResult
	Signature  string         // procedures only
	Parameters []SymbolResult // procedure parameters in order (empty otherwise)
	Members    []SymbolResult // fields and procedures of the symbol's object type
}

// SymbolDetailAt resolves the identifier at the given position and returns
// its detail. Returns nil if nothing resolvable is there.
func (q *QueryBuilder) SymbolDetailAt(file string, line, col int) *SymbolDetail {
	res, ok := q.nav.SymbolAt(documentURI(file), point(line, col))
	if !ok {
		return nil
	}
	d := &SymbolDetail{
		Symbol:     symbolResult(res),
		Parameters: []SymbolResult{},
		Members:    []SymbolResult{},
	}
	if res.Symbol.Kind == symbols.KindProcedure {
		for _, p := range res.Table.Parameters(res.Symbol) {
			d.Parameters = append(d.Parameters, symbolResult(symbols.Resolved{Table: res.Table, Symbol: p}))
		}
		d.Signature = nav.Signature(res)
	}
	for _, m := range q.nav.MembersOf(res) {
		d.Members = append(d.Members, symbolResult(m))
	}
	return d
}

// HoverAt describes the identifier at the given position.
func (q *QueryBuilder) HoverAt(file string, line, col int) *Hover {
	return q.nav.Hover(documentURI(file), point(line, col))
}

// CompletionAt lists completion candidates at the given position. trigger
// is the character that triggered completion, or empty.
func (q *QueryBuilder) CompletionAt(file string, line, col int, trigger string) []CompletionItem {
	return q.nav.Completion(documentURI(file), point(line, col), trigger)
}

// SignatureAt describes the call enclosing the given position.
func (q *QueryBuilder) SignatureAt(file string, line, col int) *SignatureHelp {
	return q.nav.SignatureHelp(documentURI(file), point(line, col))
}

// Diagnostic is a syntax problem found while parsing.
type Diagnostic struct {
	Location Location
	Message  string
}

// Diagnostics returns the syntax errors of an open document.
func (q *QueryBuilder) Diagnostics(file string) []Diagnostic {
	var out []Diagnostic
	for _, d := range q.nav.Diagnostics(documentURI(file)) {
		out = append(out, Diagnostic{Location: toLocation(d.Location), Message: d.Message})
	}
	return out
}

// FoldingRanges returns the foldable regions of an open document.
func (q *QueryBuilder) FoldingRanges(file string) []FoldingRange {
	return q.nav.FoldingRanges(documentURI(file))
}

// ScopeInfo describes one lexical scope.
type ScopeInfo struct {
	Kind     string // document, object, procedure, trigger, block or with
	Owner    string // object, procedure or trigger introducing the scope
	Location Location
	Symbols  []string // declared directly in the scope
}

// ScopeAt returns the scope chain at the given position, innermost first.
func (q *QueryBuilder) ScopeAt(file string, line, col int) []ScopeInfo {
	doc := q.snap.Document(documentURI(file))
	if doc == nil {
		return nil
	}
	t := doc.Table
	off := doc.Lines.Offset(point(line, col))
	var out []ScopeInfo
	for _, id := range t.Chain(t.ScopeAt(off)) {
		sc := t.Scope(id)
		info := ScopeInfo{
			Kind: sc.Kind.String(),
			Location: toLocation(nav.Location{
				URI:   doc.URI,
				Start: doc.Lines.Point(sc.Span.Start),
				End:   doc.Lines.Point(sc.Span.End),
			}),
			Symbols: []string{},
		}
		if owner := t.Symbol(sc.Owner); owner != nil {
			info.Owner = owner.Name
		}
		for _, sid := range sc.Symbols {
			info.Symbols = append(info.Symbols, t.Symbol(sid).Name)
		}
		out = append(out, info)
	}
	return out
}
