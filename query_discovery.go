package alnav

import (
	"context"
	"sort"
	"strings"

	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/symbols"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results. The zero value keeps document
// open order, then declaration order.
type SortField string

const (
	SortByName SortField = "name"
	SortByKind SortField = "kind"
	SortByFile SortField = "file"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// SymbolResult is a declaration with its location.
type SymbolResult struct {
	Name      string
	Kind      Kind
	Detail    string // declared type or return type
	Container string // enclosing object or member, empty for objects
	Location  Location
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// SymbolFilter specifies which symbols to include.
type SymbolFilter struct {
	Kinds      []Kind // match any of these kinds
	PathPrefix string // restrict to documents under this path
}

func (f SymbolFilter) match(s SymbolResult) bool {
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if s.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.PathPrefix != "" && !strings.HasPrefix(s.Location.File, normalizePathPrefix(f.PathPrefix)) {
		return false
	}
	return true
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" so "src/sales"
// does not match "src/salesorder".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

func symbolResult(res symbols.Resolved) SymbolResult {
	s := res.Symbol
	sr := SymbolResult{
		Name:   s.Name,
		Kind:   s.Kind,
		Detail: s.Detail(),
		Location: Location{
			File:      PathFromURI(res.Table.URI),
			StartLine: s.NameStart.Row,
			StartCol:  s.NameStart.Column,
			EndLine:   s.NameEnd.Row,
			EndCol:    s.NameEnd.Column,
		},
	}
	if p := res.Table.Symbol(s.Parent); p != nil {
		sr.Container = p.Name
	}
	return sr
}

func sortSymbols(items []SymbolResult, by Sort) {
	var less func(a, b SymbolResult) bool
	switch by.Field {
	case SortByName:
		less = func(a, b SymbolResult) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByKind:
		less = func(a, b SymbolResult) bool { return a.Kind.String() < b.Kind.String() }
	case SortByFile:
		less = func(a, b SymbolResult) bool { return a.Location.File < b.Location.File }
	default:
		if by.Order == Desc {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
		}
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if by.Order == Desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func paginate[T any](items []T, page Pagination) *PagedResult[T] {
	page = page.normalize()
	total := len(items)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return &PagedResult[T]{Items: out, TotalCount: total}
}

// --- Enumeration Endpoints ---

// Symbols lists every workspace-level declaration: objects and their
// members, but not the parameters and locals of routines.
func (q *QueryBuilder) Symbols(ctx context.Context, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	return q.SearchSymbols(ctx, "", filter, sort, page)
}

// SearchSymbols matches query case-insensitively as a substring of
// workspace-level declaration names. It returns ErrCancelled if ctx is
// cancelled mid-scan.
func (q *QueryBuilder) SearchSymbols(ctx context.Context, query string, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	hits, err := q.nav.WorkspaceSymbols(ctx, query)
	if err != nil {
		return nil, err
	}
	items := []SymbolResult{}
	for _, h := range hits {
		sr := fromSymbolInformation(h)
		if filter.match(sr) {
			items = append(items, sr)
		}
	}
	sortSymbols(items, sort)
	return paginate(items, page), nil
}

func fromSymbolInformation(h nav.SymbolInformation) SymbolResult {
	return SymbolResult{
		Name:      h.Name,
		Kind:      h.Kind,
		Container: h.Container,
		Location:  toLocation(h.Location),
	}
}

// DocumentInfo summarizes one open document.
type DocumentInfo struct {
	File    string
	URI     string
	Version int32
	Lines   int
	Objects []string
	Symbols int
	Errors  int
	Skipped int // declarations dropped for malformed syntax
}

// Documents lists the open documents in open order.
func (q *QueryBuilder) Documents(pathPrefix string, page Pagination) *PagedResult[DocumentInfo] {
	prefix := normalizePathPrefix(pathPrefix)
	items := []DocumentInfo{}
	for _, doc := range q.snap.Documents() {
		file := PathFromURI(doc.URI)
		if prefix != "" && !strings.HasPrefix(file, prefix) {
			continue
		}
		info := DocumentInfo{
			File:    file,
			URI:     doc.URI,
			Version: doc.Version,
			Lines:   doc.Lines.Count(),
			Objects: []string{},
			Symbols: len(doc.Table.Symbols),
			Errors:  len(doc.Tree.Errors()),
			Skipped: doc.Table.Skipped,
		}
		for _, obj := range doc.Table.ObjectSymbols() {
			info.Objects = append(info.Objects, obj.Kind.String()+" "+symbols.Render(obj.Name))
		}
		items = append(items, info)
	}
	return paginate(items, page)
}

// Outline returns the nested declaration outline of an open document.
func (q *QueryBuilder) Outline(file string) []DocumentSymbol {
	return q.nav.DocumentSymbols(documentURI(file))
}
