package store

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/workspace"
)

// BuildBatch converts one document version into export rows.
func BuildBatch(doc *workspace.Document, runID string, now time.Time) *Batch {
	t := doc.Table
	b := NewBatch(Document{
		URI:       doc.URI,
		Path:      workspace.PathFromURI(doc.URI),
		Version:   doc.Version,
		Hash:      doc.Hash,
		LineCount: doc.Lines.Count(),
		Skipped:   t.Skipped,
		Errors:    len(doc.Tree.Errors()),
		RunID:     runID,
		IndexedAt: now,
	})

	ids := make(map[symbols.SymbolID]int64, len(t.Symbols))
	for i := range t.Symbols {
		s := &t.Symbols[i]
		row := &Symbol{
			Name:          s.Name,
			NameKey:       s.Key,
			Kind:          s.Kind.String(),
			Detail:        s.Detail(),
			Access:        s.Access.String(),
			ObjectID:      s.ObjectID,
			Section:       s.Section,
			Extends:       s.Extends,
			SourceTable:   s.SourceTable,
			SignatureHash: ComputeSignatureHash(s.Key, s.Kind.String(), s.Access.String(), s.Detail(), parameterList(t, s)),
			StartLine:     s.StartPoint.Row,
			StartCol:      s.StartPoint.Column,
			EndLine:       s.EndPoint.Row,
			EndCol:        s.EndPoint.Column,
			NameLine:      s.NameStart.Row,
			NameCol:       s.NameStart.Column,
		}
		if pid, ok := ids[s.Parent]; ok {
			row.ParentSymbolID = &pid
		}
		ids[s.ID] = b.InsertSymbol(row)

		for _, iface := range s.Implements {
			b.InsertImplementation(&Implementation{
				ObjectSymbolID: ids[s.ID],
				InterfaceName:  iface,
				InterfaceKey:   symbols.NameKey(iface),
			})
		}
	}

	for i := range t.Occurrences {
		occ := &t.Occurrences[i]
		b.InsertReference(&Reference{
			NameKey:   occ.Key,
			Role:      occ.Role.String(),
			Write:     occ.Write,
			StartLine: occ.Start.Row,
			StartCol:  occ.Start.Column,
			EndLine:   occ.End.Row,
			EndCol:    occ.End.Column,
		})
	}
	return b
}

func parameterList(t *symbols.Table, s *symbols.Symbol) []string {
	if s.Kind != symbols.KindProcedure && s.Kind != symbols.KindTrigger {
		return nil
	}
	var out []string
	for _, p := range t.Parameters(s) {
		text := p.Name + ": " + p.Detail()
		if p.VarParam {
			text = "var " + text
		}
		out = append(out, text)
	}
	return out
}

// ExportOptions configures Export.
type ExportOptions struct {
	Workers int  // conversion workers; zero or less means one per CPU
	Force   bool // rewrite documents whose stored hash matches
}

// Export writes snap to the database using a three-phase pipeline:
//
//	Phase A (serial):   compare content hashes with the stored documents.
//	Phase B (parallel): convert changed documents into batches.
//	Phase C (serial):   commit each batch in its own transaction, then
//	                    delete documents that are no longer in snap.
//
// The run is recorded in index_runs under a fresh UUID.
func (s *Store) Export(ctx context.Context, snap *workspace.Snapshot, opts ExportOptions) (*IndexRun, error) {
	run := &IndexRun{ID: uuid.NewString(), StartedAt: time.Now().UTC()}

	// ---- Phase A: Serial preparation ----
	stored, err := s.DocumentHashes()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	var changed []*workspace.Document
	live := make(map[string]bool, snap.Len())
	for _, doc := range snap.Documents() {
		live[doc.URI] = true
		if !opts.Force && stored[doc.URI] == doc.Hash {
			run.Unchanged++
			continue
		}
		changed = append(changed, doc)
	}

	// ---- Phase B: Parallel conversion ----
	batches := make([]*Batch, len(changed))
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(changed)))

	workCh := make(chan int, len(changed))
	for i := range changed {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if ctx.Err() != nil {
					continue
				}
				batches[i] = BuildBatch(changed[i], run.ID, run.StartedAt)
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	// ---- Phase C: Serial commit ----
	for _, b := range batches {
		if _, err := s.CommitBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		run.Documents++
		run.Symbols += len(b.Symbols)
	}
	for uri := range stored {
		if live[uri] {
			continue
		}
		if err := s.DeleteDocument(ctx, uri); err != nil {
			return nil, fmt.Errorf("export: remove %s: %w", uri, err)
		}
		run.Removed++
	}

	run.FinishedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO index_runs (id, started_at, finished_at, documents, unchanged, removed, symbols)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Documents, run.Unchanged, run.Removed, run.Symbols,
	); err != nil {
		return nil, fmt.Errorf("export: record run: %w", err)
	}
	log.Infof("export %s: %d written, %d unchanged, %d removed", run.ID, run.Documents, run.Unchanged, run.Removed)
	return run, nil
}
