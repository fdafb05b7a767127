package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/alnav"
	"github.com/jward/alnav/internal/docstore"
	"github.com/jward/alnav/internal/nav"
)

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := params.TextDocument
	if err := s.engine.Open(context.Background(), doc.URI, int32(doc.Version), []byte(doc.Text)); err != nil {
		log.Errorf("open %s: %v", doc.URI, err)
		return err
	}
	s.publishDiagnostics(ctx, doc.URI)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := params.TextDocument.URI
	cur := s.engine.Snapshot().Document(uri)
	if cur == nil {
		log.Warningf("change for %s, which is not open", uri)
		return nil
	}

	text := cur.Text
	edits := make([]alnav.Edit, 0, len(params.ContentChanges))
	for _, change := range params.ContentChanges {
		edit, ok := toEdit(text, change)
		if !ok {
			log.Warningf("%s: unsupported content change %T", uri, change)
			continue
		}
		text = docstore.Apply(text, edit)
		edits = append(edits, edit)
	}
	if err := s.engine.Change(context.Background(), uri, int32(params.TextDocument.Version), edits...); err != nil {
		log.Errorf("change %s: %v", uri, err)
		return err
	}
	s.publishDiagnostics(ctx, uri)
	return nil
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Close(params.TextDocument.URI)
	notify(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// diagnostics converts the syntax errors of an open document.
func (s *Server) diagnostics(uri string) []protocol.Diagnostic {
	snap := s.engine.Snapshot()
	severity := protocol.DiagnosticSeverityError
	source := DiagnosticSource
	out := []protocol.Diagnostic{}
	for _, d := range nav.New(snap).Diagnostics(uri) {
		out = append(out, protocol.Diagnostic{
			Range:    toRange(snap, d.Location),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	notify(ctx, uri, s.diagnostics(uri))
}

func notify(ctx *glsp.Context, uri string, diags []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}
