package nav

import (
	"context"
	"fmt"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// References returns every occurrence that resolves to the symbol at pos.
// Each candidate occurrence is resolved through its own scope chain, so a
// shadowing declaration with the same name is never counted. For interface
// methods the interface declaration, every implementation and every call
// through any of them are one symbol.
//
// The scan polls ctx between documents and returns ErrCancelled instead of a
// partial result.
func (r *Resolver) References(ctx context.Context, uri string, pos syntax.Point, includeDeclaration bool) ([]Location, error) {
	_, _, res, ok := r.target(uri, pos)
	if !ok {
		return nil, nil
	}
	return r.references(ctx, r.snap.Documents(), res, includeDeclaration)
}

type referenceHit struct {
	doc *workspace.Document
	occ *symbols.Occurrence
}

func (r *Resolver) references(ctx context.Context, docs []*workspace.Document, res symbols.Resolved, includeDeclaration bool) ([]Location, error) {
	hits, err := r.referenceHits(ctx, docs, res, includeDeclaration)
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(hits))
	for _, h := range hits {
		out = append(out, occurrenceLocation(h.doc.URI, h.occ))
	}
	return out, nil
}

func (r *Resolver) referenceHits(ctx context.Context, docs []*workspace.Document, res symbols.Resolved, includeDeclaration bool) ([]referenceHit, error) {
	want := make(map[symbolKey]bool)
	for _, m := range r.family(res) {
		want[keyOf(m)] = true
	}
	key := res.Symbol.Key

	var out []referenceHit
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			log.Debugf("reference scan for %q cancelled", key)
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		for _, occ := range doc.Table.OccurrencesOf(key) {
			if occ.Role == symbols.RoleDeclaration && !includeDeclaration {
				continue
			}
			got, ok := r.resolveOcc(doc, occ)
			if ok && want[keyOf(got)] {
				out = append(out, referenceHit{doc: doc, occ: occ})
			}
		}
	}
	return out, nil
}

// Highlight is one same-document reference.
type Highlight struct {
	Location Location `json:"location"`
	Write    bool     `json:"write"`
}

// DocumentHighlights returns the references to the symbol at pos within the
// same document. Declarations and assignment targets are writes.
func (r *Resolver) DocumentHighlights(uri string, pos syntax.Point) []Highlight {
	doc, _, res, ok := r.target(uri, pos)
	if !ok {
		return nil
	}
	hits, err := r.referenceHits(context.Background(), []*workspace.Document{doc}, res, true)
	if err != nil {
		return nil
	}
	out := make([]Highlight, 0, len(hits))
	for _, h := range hits {
		out = append(out, Highlight{
			Location: occurrenceLocation(doc.URI, h.occ),
			Write:    h.occ.Role == symbols.RoleDeclaration || h.occ.Write,
		})
	}
	return out
}
