package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CommitBatch replaces a document with the buffered contents of batch in a
// single transaction. Rows previously stored for the same URI are deleted
// first. Fake (negative) IDs are remapped to real IDs, and all references
// within the batch are rewritten using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Document
//  2. Symbols (parents precede children)
//  3. Implementations (depend on symbol ids)
//  4. References (depend on the document id)
//
// It returns the real document id.
func (s *Store) CommitBatch(ctx context.Context, batch *Batch) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentTx(ctx, tx, batch.Document.URI); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	// 1. Document
	docID, err := insertDocumentTx(ctx, tx, &batch.Document)
	if err != nil {
		return 0, fmt.Errorf("commit batch: document %s: %w", batch.Document.URI, err)
	}

	fakeToReal := make(map[int64]int64, len(batch.Symbols))

	// 2. Symbols
	for _, sym := range batch.Symbols {
		sym.DocumentID = docID
		if sym.ParentSymbolID != nil && *sym.ParentSymbolID < 0 {
			realID, ok := fakeToReal[*sym.ParentSymbolID]
			if !ok {
				return 0, fmt.Errorf("commit batch: symbol %q has parent %d not in fakeToReal map", sym.Name, *sym.ParentSymbolID)
			}
			sym.ParentSymbolID = &realID
		}
		realID, err := insertSymbolTx(ctx, tx, &sym)
		if err != nil {
			return 0, fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
		fakeToReal[sym.ID] = realID
	}

	// 3. Implementations
	for _, impl := range batch.Implementations {
		if impl.ObjectSymbolID < 0 {
			impl.ObjectSymbolID = fakeToReal[impl.ObjectSymbolID]
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO implementations (object_symbol_id, interface_name, interface_key) VALUES (?, ?, ?)",
			impl.ObjectSymbolID, impl.InterfaceName, impl.InterfaceKey,
		); err != nil {
			return 0, fmt.Errorf("commit batch: implementation %q: %w", impl.InterfaceName, err)
		}
	}

	// 4. References
	if len(batch.References) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO references_ (document_id, name_key, role, is_write, start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("commit batch: prepare references: %w", err)
		}
		defer stmt.Close()
		for _, ref := range batch.References {
			if _, err := stmt.ExecContext(ctx, docID, ref.NameKey, ref.Role, ref.Write,
				ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol); err != nil {
				return 0, fmt.Errorf("commit batch: reference %q: %w", ref.NameKey, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: commit: %w", err)
	}
	batch.Document.ID = docID
	return docID, nil
}

func insertDocumentTx(ctx context.Context, tx *sql.Tx, d *Document) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (uri, path, version, hash, line_count, skipped, errors, run_id, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.URI, d.Path, d.Version, d.Hash, d.LineCount, d.Skipped, d.Errors, d.RunID, d.IndexedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertSymbolTx(ctx context.Context, tx *sql.Tx, sym *Symbol) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO symbols (document_id, parent_symbol_id, name, name_key, kind, detail, access,
			object_id, section, extends, source_table, signature_hash,
			start_line, start_col, end_line, end_col, name_line, name_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.DocumentID, sym.ParentSymbolID, sym.Name, sym.NameKey, sym.Kind, sym.Detail, sym.Access,
		sym.ObjectID, sym.Section, sym.Extends, sym.SourceTable, sym.SignatureHash,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol, sym.NameLine, sym.NameCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
