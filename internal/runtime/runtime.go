// Package runtime embeds a Risor VM so that users can script queries over a
// workspace snapshot. Scripts see navigation host functions bound to one
// snapshot and, when an export store is attached, read-only SQL access.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/store"
	"github.com/jward/alnav/internal/workspace"
)

var log = logging.Logger("runtime")

// Runtime embeds a Risor VM and exposes a snapshot, and optionally an
// export Store, to scripts.
type Runtime struct {
	snap       *workspace.Snapshot
	resolver   *nav.Resolver
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithStore exposes an export database to scripts through db_query and the
// stored-symbol functions.
func WithStore(s *store.Store) RuntimeOption {
	return func(r *Runtime) {
		r.store = s
	}
}

// NewRuntime creates a Runtime over snap. A nil snap behaves as an empty
// workspace. Relative script paths resolve against scriptsDir.
func NewRuntime(snap *workspace.Snapshot, scriptsDir string, opts ...RuntimeOption) *Runtime {
	if snap == nil {
		snap = workspace.Empty()
	}
	r := &Runtime{
		snap:       snap,
		resolver:   nav.New(snap),
		scriptsDir: scriptsDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	_, err := r.EvalScript(ctx, scriptPath, extraGlobals)
	return err
}

// EvalScript is RunScript returning the value of the script's last
// expression converted to Go.
func (r *Runtime) EvalScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	_, err := r.eval(ctx, source, "<inline>", extraGlobals)
	return err
}

// EvalSource is RunSource returning the script's result.
func (r *Runtime) EvalSource(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (any, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	log.Debugf("eval %s", label)
	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil || result == object.Nil {
		return nil, nil
	}
	return result.Interface(), nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"documents":    makeDocumentsFn(r.snap),
		"objects":      makeObjectsFn(r.snap),
		"members":      makeMembersFn(r.snap),
		"symbols":      makeSymbolsFn(r.snap),
		"implementors": makeImplementorsFn(r.snap),
		"extensions":   makeExtensionsFn(r.snap),
		"definition":   makeDefinitionFn(r.resolver),
		"references":   makeReferencesFn(r.resolver),
		"hover":        makeHoverFn(r.resolver),
		"search":       makeSearchFn(r.resolver),
		"diagnostics":  makeDiagnosticsFn(r.resolver),
		"nodes":        makeNodesFn(r.snap),
		"node_at":      makeNodeAtFn(r.snap),
		"log":          mustProxy(&logObject{}),
	}

	// Stored-symbol functions need an export database.
	if r.store != nil {
		globals["stored_symbols"] = makeStoredSymbolsFn(r.store)
		globals["stored_objects"] = makeStoredObjectsFn(r.store)
		globals["stored_implementors"] = makeStoredImplementorsFn(r.store)
		globals["stored_search"] = makeStoredSearchFn(r.store)
		globals["stored_children"] = makeStoredChildrenFn(r.store)
		globals["stored_document"] = makeStoredDocumentFn(r.store)
		globals["stored_references"] = makeStoredReferencesFn(r.store)
		globals["stored_runs"] = makeStoredRunsFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
