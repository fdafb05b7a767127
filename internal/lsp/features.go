package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// request captures one snapshot for the lifetime of a request.
type request struct {
	ctx  context.Context
	snap *workspace.Snapshot
	nav  *nav.Resolver
}

func (s *Server) request() request {
	snap := s.engine.Snapshot()
	return request{ctx: s.ctx, snap: snap, nav: nav.New(snap)}
}

func (r request) point(p protocol.TextDocumentPositionParams) (string, syntax.Point) {
	return p.TextDocument.URI, toPoint(r.snap, p.TextDocument.URI, p.Position)
}

func (s *Server) definition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	return toLocations(r.snap, r.nav.Definition(uri, pos)), nil
}

func (s *Server) typeDefinition(_ *glsp.Context, params *protocol.TypeDefinitionParams) (any, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	return toLocations(r.snap, r.nav.TypeDefinition(uri, pos)), nil
}

func (s *Server) implementation(_ *glsp.Context, params *protocol.ImplementationParams) (any, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	return toLocations(r.snap, r.nav.Implementations(uri, pos)), nil
}

func (s *Server) references(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	locs, err := r.nav.References(r.ctx, uri, pos, params.Context.IncludeDeclaration)
	if err != nil {
		return nil, err
	}
	return toLocations(r.snap, locs), nil
}

func (s *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	h := r.nav.Hover(uri, pos)
	if h == nil {
		return nil, nil
	}
	rng := toRange(r.snap, h.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: h.Contents},
		Range:    &rng,
	}, nil
}

func (s *Server) completion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	var trigger string
	if params.Context != nil && params.Context.TriggerCharacter != nil {
		trigger = *params.Context.TriggerCharacter
	}
	items := []protocol.CompletionItem{}
	for _, it := range r.nav.Completion(uri, pos, trigger) {
		kind := completionKind(it)
		item := protocol.CompletionItem{Label: it.Label, Kind: &kind}
		if it.Detail != "" {
			detail := it.Detail
			item.Detail = &detail
		}
		if it.InsertText != "" && it.InsertText != it.Label {
			insert := it.InsertText
			item.InsertText = &insert
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Server) signatureHelp(_ *glsp.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	h := r.nav.SignatureHelp(uri, pos)
	if h == nil {
		return nil, nil
	}
	sig := protocol.SignatureInformation{Label: h.Label}
	for _, p := range h.Parameters {
		sig.Parameters = append(sig.Parameters, protocol.ParameterInformation{Label: p})
	}
	active := protocol.UInteger(0)
	help := &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{sig},
		ActiveSignature: &active,
	}
	if h.ActiveParameter != nil {
		param := protocol.UInteger(*h.ActiveParameter)
		help.ActiveParameter = &param
	}
	return help, nil
}

func (s *Server) documentHighlight(_ *glsp.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	out := []protocol.DocumentHighlight{}
	for _, h := range r.nav.DocumentHighlights(uri, pos) {
		kind := protocol.DocumentHighlightKindRead
		if h.Write {
			kind = protocol.DocumentHighlightKindWrite
		}
		out = append(out, protocol.DocumentHighlight{Range: toRange(r.snap, h.Location), Kind: &kind})
	}
	return out, nil
}

func (s *Server) documentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	r := s.request()
	return r.documentSymbols(r.nav.DocumentSymbols(params.TextDocument.URI)), nil
}

func (r request) documentSymbols(in []nav.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(in))
	for _, ds := range in {
		sym := protocol.DocumentSymbol{
			Name:           ds.Name,
			Kind:           symbolKind(ds.Kind),
			Range:          toRange(r.snap, ds.Range),
			SelectionRange: toRange(r.snap, ds.Selection),
		}
		if ds.Detail != "" {
			detail := ds.Detail
			sym.Detail = &detail
		}
		if len(ds.Children) > 0 {
			sym.Children = r.documentSymbols(ds.Children)
		}
		out = append(out, sym)
	}
	return out
}

func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	r := s.request()
	hits, err := r.nav.WorkspaceSymbols(r.ctx, params.Query)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.SymbolInformation, 0, len(hits))
	for _, h := range hits {
		info := protocol.SymbolInformation{
			Name:     h.Name,
			Kind:     symbolKind(h.Kind),
			Location: toLocation(r.snap, h.Location),
		}
		if h.Container != "" {
			container := h.Container
			info.ContainerName = &container
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Server) foldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	r := s.request()
	out := []protocol.FoldingRange{}
	for _, f := range r.nav.FoldingRanges(params.TextDocument.URI) {
		out = append(out, protocol.FoldingRange{
			StartLine: protocol.UInteger(f.StartLine),
			EndLine:   protocol.UInteger(f.EndLine),
		})
	}
	return out, nil
}

func (s *Server) rename(_ *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	edit, err := r.nav.Rename(r.ctx, uri, pos, params.NewName)
	if err != nil {
		return nil, err
	}
	if edit == nil {
		return nil, nil
	}
	changes := make(map[protocol.DocumentUri][]protocol.TextEdit, len(edit.Changes))
	for docURI, edits := range edit.Changes {
		out := make([]protocol.TextEdit, 0, len(edits))
		for _, te := range edits {
			out = append(out, protocol.TextEdit{Range: toRange(r.snap, te.Location), NewText: te.NewText})
		}
		changes[docURI] = out
	}
	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// placeholderRange is the prepareRename result carrying the current name.
type placeholderRange struct {
	Range       protocol.Range `json:"range"`
	Placeholder string         `json:"placeholder"`
}

func (s *Server) prepareRename(_ *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	r := s.request()
	uri, pos := r.point(params.TextDocumentPositionParams)
	loc, name := r.nav.PrepareRename(uri, pos)
	if loc == nil {
		return nil, nil
	}
	return placeholderRange{Range: toRange(r.snap, *loc), Placeholder: name}, nil
}
