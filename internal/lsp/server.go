// Package lsp serves the navigation engine over the Language Server
// Protocol. Handlers translate protocol positions (UTF-16) to engine
// positions (bytes) and back, and publish syntax diagnostics after every
// document change.
//
// Workspace-wide scans (references, workspace symbols, rename) run under the
// server's lifetime context and stop with nav.ErrCancelled once the server is
// shut down or closed. glsp answers requests one at a time and does not pass
// request ids to handlers, so $/cancelRequest cannot reach a running scan;
// per-request cancellation is available through the Go API.
package lsp

import (
	"context"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/jward/alnav"
	"github.com/jward/alnav/internal/logging"
)

var log = logging.Logger("lsp")

// DiagnosticSource labels the diagnostics published by the server.
const DiagnosticSource = "alnav"

// Server adapts an Engine to protocol handlers.
type Server struct {
	engine  *alnav.Engine
	name    string
	version string
	handler protocol.Handler

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes document synchronization so that incremental edits
	// are converted against the text they were computed for.
	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the server name reported to the client.
func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

// WithVersion sets the server version reported to the client.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithContext bounds the server's scans by ctx.
func WithContext(ctx context.Context) Option {
	return func(s *Server) { s.ctx = ctx }
}

// New creates a Server answering from engine.
func New(engine *alnav.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, name: "alnav", ctx: context.Background()}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.ctx)
	s.handler = protocol.Handler{
		Initialize:    s.initialize,
		Initialized:   s.initialized,
		Shutdown:      s.shutdown,
		Exit:          s.exit,
		SetTrace:      s.setTrace,
		CancelRequest: s.cancelRequest,

		TextDocumentDidOpen:   s.didOpen,
		TextDocumentDidChange: s.didChange,
		TextDocumentDidClose:  s.didClose,

		TextDocumentDefinition:        s.definition,
		TextDocumentTypeDefinition:    s.typeDefinition,
		TextDocumentImplementation:    s.implementation,
		TextDocumentReferences:        s.references,
		TextDocumentHover:             s.hover,
		TextDocumentCompletion:        s.completion,
		TextDocumentSignatureHelp:     s.signatureHelp,
		TextDocumentDocumentHighlight: s.documentHighlight,
		TextDocumentDocumentSymbol:    s.documentSymbol,
		TextDocumentFoldingRange:      s.foldingRange,
		TextDocumentRename:            s.rename,
		TextDocumentPrepareRename:     s.prepareRename,
		WorkspaceSymbol:               s.workspaceSymbol,
	}
	return s
}

// Handler returns the protocol handler table.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// Close cancels scans in progress and makes later ones fail with
// nav.ErrCancelled.
func (s *Server) Close() {
	s.cancel()
}

// RunStdio serves the protocol over stdin and stdout until the client
// exits.
func (s *Server) RunStdio() error {
	log.Infof("%s serving on stdio", s.name)
	return server.NewServer(&s.handler, s.name, false).RunStdio()
}

func (s *Server) capabilities() protocol.ServerCapabilities {
	caps := s.handler.CreateServerCapabilities()
	caps.TextDocumentSync = protocol.TextDocumentSyncKindIncremental
	caps.CompletionProvider = &protocol.CompletionOptions{TriggerCharacters: []string{"."}}
	caps.SignatureHelpProvider = &protocol.SignatureHelpOptions{TriggerCharacters: []string{"(", ","}}
	prepare := true
	caps.RenameProvider = &protocol.RenameOptions{PrepareProvider: &prepare}
	return caps
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.RootURI != nil {
		log.Infof("initialize %s", *params.RootURI)
	}
	info := &protocol.InitializeResultServerInfo{Name: s.name}
	if s.version != "" {
		info.Version = &s.version
	}
	return protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo:   info,
	}, nil
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.Close()
	return nil
}

func (s *Server) exit(_ *glsp.Context) error {
	s.Close()
	return nil
}

// cancelRequest acknowledges $/cancelRequest. By the time it is dispatched
// the request it names has already been answered.
func (s *Server) cancelRequest(_ *glsp.Context, params *protocol.CancelParams) error {
	log.Debugf("cancel request %v", params.ID.Value)
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
