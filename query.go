package alnav

import (
	"context"
	"sort"

	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// QueryBuilder runs queries against one workspace snapshot. Documents are
// addressed by URI or by filesystem path; lines and columns are 0-based and
// columns count bytes.
type QueryBuilder struct {
	snap *workspace.Snapshot
	nav  *nav.Resolver
}

func newQueryBuilder(snap *workspace.Snapshot) *QueryBuilder {
	return &QueryBuilder{snap: snap, nav: nav.New(snap)}
}

// Snapshot returns the snapshot the builder reads.
func (q *QueryBuilder) Snapshot() *Snapshot {
	return q.snap
}

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

func toLocation(l nav.Location) Location {
	return Location{
		File:      PathFromURI(l.URI),
		StartLine: l.Start.Row,
		StartCol:  l.Start.Column,
		EndLine:   l.End.Row,
		EndCol:    l.End.Column,
	}
}

func toLocations(locs []nav.Location) []Location {
	if len(locs) == 0 {
		return nil
	}
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, toLocation(l))
	}
	return out
}

func point(line, col int) syntax.Point {
	return syntax.Point{Row: line, Column: col}
}

// DefinitionAt finds the declaration of the identifier at the given
// position. On the name of a procedure implementing an interface method the
// interface method is returned.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) []Location {
	return toLocations(q.nav.Definition(documentURI(file), point(line, col)))
}

// TypeDefinitionAt finds the object named by the declared type of the
// variable, parameter, field or procedure at the given position.
func (q *QueryBuilder) TypeDefinitionAt(file string, line, col int) []Location {
	return toLocations(q.nav.TypeDefinition(documentURI(file), point(line, col)))
}

// Implementations finds the implementing procedures of an interface method,
// or the implementing codeunits of an interface, at the given position.
func (q *QueryBuilder) Implementations(file string, line, col int) []Location {
	return toLocations(q.nav.Implementations(documentURI(file), point(line, col)))
}

// ReferencesTo finds every location referencing the symbol at the given
// position across all open documents. It returns ErrCancelled if ctx is
// cancelled mid-scan.
func (q *QueryBuilder) ReferencesTo(ctx context.Context, file string, line, col int, includeDeclaration bool) ([]Location, error) {
	locs, err := q.nav.References(ctx, documentURI(file), point(line, col), includeDeclaration)
	if err != nil {
		return nil, err
	}
	return toLocations(locs), nil
}

// Highlight is a same-document reference.
type Highlight struct {
	Location Location
	Write    bool
}

// HighlightsAt returns the references to the symbol at the given position
// inside its own document.
func (q *QueryBuilder) HighlightsAt(file string, line, col int) []Highlight {
	var out []Highlight
	for _, h := range q.nav.DocumentHighlights(documentURI(file), point(line, col)) {
		out = append(out, Highlight{Location: toLocation(h.Location), Write: h.Write})
	}
	return out
}

// TextEdit replaces the text at Location with NewText.
type TextEdit struct {
	Location Location
	NewText  string
}

// FileEdits are the edits of one file, in document order.
type FileEdits struct {
	File  string
	Edits []TextEdit
}

// RenameAt computes the edits renaming the symbol at the given position.
// Failures are *RenameError values; renaming to the current name yields no
// edits and no error.
func (q *QueryBuilder) RenameAt(ctx context.Context, file string, line, col int, newName string) ([]FileEdits, error) {
	edit, err := q.nav.Rename(ctx, documentURI(file), point(line, col), newName)
	if err != nil || edit == nil {
		return nil, err
	}
	out := make([]FileEdits, 0, len(edit.Changes))
	for uri, edits := range edit.Changes {
		fe := FileEdits{File: PathFromURI(uri)}
		for _, te := range edits {
			fe.Edits = append(fe.Edits, TextEdit{Location: toLocation(te.Location), NewText: te.NewText})
		}
		out = append(out, fe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// PrepareRenameAt returns the range and current name of the renamable
// symbol at the given position, or nil.
func (q *QueryBuilder) PrepareRenameAt(file string, line, col int) (*Location, string) {
	loc, name := q.nav.PrepareRename(documentURI(file), point(line, col))
	if loc == nil {
		return nil, ""
	}
	l := toLocation(*loc)
	return &l, name
}
