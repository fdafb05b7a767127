package alnav

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jward/alnav/internal/docstore"
	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

var log = logging.Logger("engine")

// Engine owns the open documents and hands out queries over consistent
// workspace snapshots.
type Engine struct {
	docs     *docstore.Store
	provider syntax.Provider
	workers  int
	skipDirs map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider replaces the native AL parser, for example with a
// tree-sitter provider built by syntax.NewSitterProvider.
func WithProvider(p syntax.Provider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithWorkers bounds the worker pools used by OpenAll and LoadDirectory.
// Zero or less means one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithSkipDirs adds directory names that LoadDirectory never descends into
// when it has to walk the filesystem.
func WithSkipDirs(names ...string) Option {
	return func(e *Engine) {
		for _, n := range names {
			e.skipDirs[n] = true
		}
	}
}

// New creates an Engine with no open documents.
func New(opts ...Option) *Engine {
	e := &Engine{
		skipDirs: map[string]bool{
			".alpackages":  true,
			".snapshots":   true,
			"node_modules": true,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	storeOpts := []docstore.Option{docstore.WithWorkers(e.workers)}
	if e.provider != nil {
		storeOpts = append(storeOpts, docstore.WithProvider(e.provider))
	}
	e.docs = docstore.New(storeOpts...)
	return e
}

// Snapshot returns the current workspace snapshot. It never changes; later
// edits publish new snapshots.
func (e *Engine) Snapshot() *Snapshot {
	return e.docs.Snapshot()
}

// Query returns a QueryBuilder bound to the current snapshot.
func (e *Engine) Query() *QueryBuilder {
	return newQueryBuilder(e.docs.Snapshot())
}

// Open parses and indexes a document. Re-opening an open document replaces
// its text.
func (e *Engine) Open(ctx context.Context, uri string, version int32, text []byte) error {
	if _, err := e.docs.Open(ctx, uri, version, text); err != nil {
		return fmt.Errorf("alnav: open: %w", err)
	}
	return nil
}

// Change applies edits to an open document and reindexes it.
func (e *Engine) Change(ctx context.Context, uri string, version int32, edits ...Edit) error {
	if _, err := e.docs.Change(ctx, uri, version, edits...); err != nil {
		return fmt.Errorf("alnav: change: %w", err)
	}
	return nil
}

// Close drops a document and everything it contributed to the workspace.
func (e *Engine) Close(uri string) {
	e.docs.Close(uri)
}

// OpenAll opens many documents at once and publishes them in a single
// snapshot. Documents that fail are reported; the rest stay open.
func (e *Engine) OpenAll(ctx context.Context, sources []Source) error {
	if _, err := e.docs.OpenAll(ctx, sources); err != nil {
		return fmt.Errorf("alnav: %w", err)
	}
	return nil
}

// URIFromPath returns the file URI of a filesystem path.
func URIFromPath(path string) string { return workspace.URIFromPath(path) }

// PathFromURI returns the filesystem path of a file URI. Other strings are
// returned unchanged.
func PathFromURI(uri string) string { return workspace.PathFromURI(uri) }

// documentURI accepts either a URI or a filesystem path.
func documentURI(file string) string {
	if strings.Contains(file, "://") {
		return file
	}
	return URIFromPath(file)
}

// IsALFile reports whether path has the .al extension.
func IsALFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".al")
}

// LoadDirectory opens every .al file under root and returns how many
// documents were opened or replaced. If root is inside a git repository,
// git ls-files is used to respect .gitignore; otherwise the filesystem is
// walked, skipping hidden directories and the configured skip list.
// Documents whose text is unchanged since they were opened are skipped.
func (e *Engine) LoadDirectory(ctx context.Context, root string) (int, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		log.Debugf("%s: %v, walking the directory instead", root, err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return 0, err
		}
	}
	return e.LoadFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) .al files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsALFile(line) {
			paths = append(paths, filepath.Join(root, line))
		}
	}
	return paths, nil
}

// walkListFiles discovers .al files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || e.skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsALFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
