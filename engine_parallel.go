package alnav

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/jward/alnav/internal/workspace"
)

// readItem is one file for the parallel reader.
type readItem struct {
	idx  int
	path string
	uri  string
}

// LoadFiles opens the given .al files using a three-phase pipeline:
//
//	Phase A (serial):   filter and map paths to document URIs.
//	Phase B (parallel): read and hash files via a worker pool, dropping the
//	                    ones whose text matches the open document.
//	Phase C (serial):   open every changed document in one snapshot.
//
// It returns the number of documents opened or replaced. Unreadable files
// are reported together; the rest are still opened.
func (e *Engine) LoadFiles(ctx context.Context, paths []string) (int, error) {
	// ---- Phase A: Serial preparation ----
	var items []readItem
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if !IsALFile(path) {
			continue
		}
		uri := URIFromPath(path)
		if seen[uri] {
			continue
		}
		seen[uri] = true
		items = append(items, readItem{idx: len(items), path: path, uri: uri})
	}
	if len(items) == 0 {
		return 0, nil
	}

	// ---- Phase B: Parallel read ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, len(items))

	workCh := make(chan readItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item      readItem
		text      []byte
		unchanged bool
		err       error
	}
	resultCh := make(chan result, len(items))

	snap := e.Snapshot()
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
				text, err := os.ReadFile(item.path)
				if err != nil {
					resultCh <- result{item: item, err: fmt.Errorf("read file: %w", err)}
					continue
				}
				prev := snap.Document(item.uri)
				unchanged := prev != nil && prev.Hash == workspace.HashText(text)
				resultCh <- result{item: item, text: text, unchanged: unchanged}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial open ----
	sources := make([]*Source, len(items))
	var errs []error
	skipped := 0
	for res := range resultCh {
		switch {
		case res.err != nil:
			errs = append(errs, fmt.Errorf("load %s: %w", res.item.path, res.err))
		case res.unchanged:
			skipped++
		default:
			sources[res.item.idx] = &Source{URI: res.item.uri, Text: res.text}
		}
	}
	var batch []Source
	for _, s := range sources {
		if s != nil {
			batch = append(batch, *s)
		}
	}
	log.Debugf("loading %d file(s), %d unchanged", len(batch), skipped)

	if len(batch) > 0 {
		if err := e.OpenAll(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return len(batch), fmt.Errorf("alnav: loading had %d error(s): %w", len(errs), errs[0])
	}
	return len(batch), nil
}
