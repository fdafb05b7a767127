// Package docstore owns the lifecycle of open documents and publishes
// workspace snapshots.
//
// Writers to one document are serialized by a per-document mutex; parsing
// and extraction run under that lock only. Publishing the new document into
// the workspace takes a short publish lock that serializes the copy-on-write
// of the Snapshot, which is then installed atomically. Readers never block:
// they load the current Snapshot once and work on it.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/parser"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

var log = logging.Logger("docstore")

// ErrNotOpen is returned when changing a document that is not open.
var ErrNotOpen = errors.New("docstore: document not open")

// Range is a byte-column range in a document. The protocol adapter converts
// UTF-16 positions before building edits.
type Range struct {
	Start syntax.Point
	End   syntax.Point
}

// Edit replaces Range with Text. A nil Range replaces the whole document.
type Edit struct {
	Range *Range
	Text  string
}

// Source is one document handed to OpenAll.
type Source struct {
	URI     string
	Version int32
	Text    []byte
}

// Store holds the open documents.
type Store struct {
	provider syntax.Provider
	workers  int

	mu    sync.Mutex // guards locks and seq
	locks map[string]*docLock
	seq   uint64

	publish sync.Mutex
	snap    atomic.Pointer[workspace.Snapshot]
}

// Option configures a Store.
type Option func(*Store)

// WithProvider replaces the native AL parser.
func WithProvider(p syntax.Provider) Option {
	return func(s *Store) { s.provider = p }
}

// WithWorkers bounds the worker pool of OpenAll. Zero or less means NumCPU.
func WithWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		provider: parser.New(),
		locks:    make(map[string]*docLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(workspace.Empty())
	return s
}

// Snapshot returns the current workspace snapshot.
func (s *Store) Snapshot() *workspace.Snapshot {
	return s.snap.Load()
}

// docLock is the writer mutex of one document. refs counts the writers
// holding or waiting for it; the entry is dropped when it reaches zero.
type docLock struct {
	mu   sync.Mutex
	refs int
}

// acquire takes the writer lock of uri and returns its release function.
func (s *Store) acquire(uri string) (release func()) {
	s.mu.Lock()
	l, ok := s.locks[uri]
	if !ok {
		l = &docLock{}
		s.locks[uri] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		defer s.mu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, uri)
		}
	}
}

func (s *Store) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// update applies fn to the current snapshot under the publish lock.
func (s *Store) update(fn func(*workspace.Snapshot) *workspace.Snapshot) *workspace.Snapshot {
	s.publish.Lock()
	defer s.publish.Unlock()
	next := fn(s.snap.Load())
	s.snap.Store(next)
	return next
}

func (s *Store) build(ctx context.Context, uri string, version int32, seq uint64, text []byte) (*workspace.Document, error) {
	tree, err := s.provider.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("docstore: parse %s: %w", uri, err)
	}
	doc := workspace.NewDocument(uri, version, seq, text, tree)
	if doc.Table.Skipped > 0 {
		log.Infof("%s: skipped %d malformed declaration(s)", uri, doc.Table.Skipped)
	}
	return doc, nil
}

// Open parses and indexes a document. Opening a document that is already
// open replaces it but keeps its original open order.
func (s *Store) Open(ctx context.Context, uri string, version int32, text []byte) (*workspace.Document, error) {
	defer s.acquire(uri)()

	var seq uint64
	if prev := s.Snapshot().Document(uri); prev != nil {
		seq = prev.Seq
	} else {
		seq = s.nextSeq()
	}
	doc, err := s.build(ctx, uri, version, seq, text)
	if err != nil {
		return nil, err
	}
	s.update(func(w *workspace.Snapshot) *workspace.Snapshot { return w.With(doc) })
	log.Debugf("open %s v%d (%d symbols)", uri, version, len(doc.Table.Symbols))
	return doc, nil
}

// Change applies edits in order to the current text of an open document and
// reindexes it.
func (s *Store) Change(ctx context.Context, uri string, version int32, edits ...Edit) (*workspace.Document, error) {
	defer s.acquire(uri)()

	prev := s.Snapshot().Document(uri)
	if prev == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	text := prev.Text
	for _, e := range edits {
		text = Apply(text, e)
	}
	doc, err := s.build(ctx, uri, version, prev.Seq, text)
	if err != nil {
		return nil, err
	}
	s.update(func(w *workspace.Snapshot) *workspace.Snapshot { return w.With(doc) })
	log.Debugf("reindex %s v%d", uri, version)
	return doc, nil
}

// Close removes a document and all of its workspace contributions. Closing
// a document that is not open does nothing.
func (s *Store) Close(uri string) {
	defer s.acquire(uri)()
	s.update(func(w *workspace.Snapshot) *workspace.Snapshot { return w.Without(uri) })
	log.Debugf("close %s", uri)
}

// Apply returns text with one edit applied. Positions past the end of a line
// or of the document are clamped.
func Apply(text []byte, e Edit) []byte {
	if e.Range == nil {
		return []byte(e.Text)
	}
	lines := syntax.NewLines(text)
	start := lines.Offset(e.Range.Start)
	end := lines.Offset(e.Range.End)
	if end < start {
		start, end = end, start
	}
	out := make([]byte, 0, len(text)-(end-start)+len(e.Text))
	out = append(out, text[:start]...)
	out = append(out, e.Text...)
	out = append(out, text[end:]...)
	return out
}

// OpenAll opens many documents using a three-phase pipeline:
//
//	Phase A (serial):   assign open order.
//	Phase B (parallel): parse and extract via a worker pool.
//	Phase C (serial):   publish every document in one snapshot.
//
// Documents that fail to parse are reported together; the rest are still
// published.
func (s *Store) OpenAll(ctx context.Context, sources []Source) (*workspace.Snapshot, error) {
	if len(sources) == 0 {
		return s.Snapshot(), nil
	}

	// ---- Phase A: Serial preparation ----
	// Writer locks are taken in URI order so concurrent bulk opens cannot
	// deadlock.
	uris := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if !seen[src.URI] {
			seen[src.URI] = true
			uris = append(uris, src.URI)
		}
	}
	sort.Strings(uris)
	for _, uri := range uris {
		defer s.acquire(uri)()
	}

	type workItem struct {
		idx int
		src Source
		seq uint64
	}
	cur := s.Snapshot()
	items := make([]workItem, len(sources))
	for i, src := range sources {
		var seq uint64
		if prev := cur.Document(src.URI); prev != nil {
			seq = prev.Seq
		} else {
			seq = s.nextSeq()
		}
		items[i] = workItem{idx: i, src: src, seq: seq}
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := s.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, len(items))

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		doc  *workspace.Document
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				doc, err := s.build(ctx, item.src.URI, item.src.Version, item.seq, item.src.Text)
				resultCh <- result{item: item, doc: doc, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial publish ----
	docs := make([]*workspace.Document, len(items))
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("open %s: %w", res.item.src.URI, res.err))
			continue
		}
		docs[res.item.idx] = res.doc
	}
	var batch []*workspace.Document
	for _, d := range docs {
		if d != nil {
			batch = append(batch, d)
		}
	}

	snap := s.Snapshot()
	if len(batch) > 0 {
		snap = s.update(func(w *workspace.Snapshot) *workspace.Snapshot { return w.WithAll(batch) })
	}
	log.Debugf("opened %d document(s) with %d worker(s)", len(batch), numWorkers)

	if len(errs) > 0 {
		return snap, fmt.Errorf("docstore: open had %d error(s): %w", len(errs), errs[0])
	}
	return snap, nil
}
