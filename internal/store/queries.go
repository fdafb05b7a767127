package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// --- Document queries ---

const documentCols = `id, uri, path, version, hash, line_count, skipped, errors, run_id, indexed_at`

func scanDocument(scanner interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	err := scanner.Scan(&d.ID, &d.URI, &d.Path, &d.Version, &d.Hash, &d.LineCount,
		&d.Skipped, &d.Errors, &d.RunID, &d.IndexedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DocumentByURI returns the stored document, or nil if there is none.
func (s *Store) DocumentByURI(uri string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow("SELECT "+documentCols+" FROM documents WHERE uri = ?", uri))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by uri: %w", err)
	}
	return d, nil
}

// Documents returns every stored document ordered by path.
func (s *Store) Documents() ([]*Document, error) {
	rows, err := s.db.Query("SELECT " + documentCols + " FROM documents ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DocumentHashes maps every stored URI to its content hash.
func (s *Store) DocumentHashes() (map[string]string, error) {
	rows, err := s.db.Query("SELECT uri, hash FROM documents")
	if err != nil {
		return nil, fmt.Errorf("document hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var uri, hash string
		if err := rows.Scan(&uri, &hash); err != nil {
			return nil, fmt.Errorf("scan document hash: %w", err)
		}
		out[uri] = hash
	}
	return out, rows.Err()
}

// --- Symbol queries ---

// SymbolCols is the column list for symbol queries joined with documents
// as d.
const SymbolCols = `s.id, s.document_id, s.parent_symbol_id, s.name, s.name_key, s.kind,
	COALESCE(s.detail, ''), COALESCE(s.access, ''), COALESCE(s.object_id, 0), COALESCE(s.section, ''),
	COALESCE(s.extends, ''), COALESCE(s.source_table, ''), COALESCE(s.signature_hash, ''),
	s.start_line, s.start_col, s.end_line, s.end_col, s.name_line, s.name_col, d.uri`

const symbolFrom = ` FROM symbols s JOIN documents d ON d.id = s.document_id `

// ScanSymbolRow scans a row selected with SymbolCols.
func ScanSymbolRow(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	err := scanner.Scan(
		&sym.ID, &sym.DocumentID, &sym.ParentSymbolID, &sym.Name, &sym.NameKey, &sym.Kind,
		&sym.Detail, &sym.Access, &sym.ObjectID, &sym.Section,
		&sym.Extends, &sym.SourceTable, &sym.SignatureHash,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol, &sym.NameLine, &sym.NameCol, &sym.URI,
	)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := ScanSymbolRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SymbolsByDocument returns a document's symbols in declaration order.
func (s *Store) SymbolsByDocument(uri string) ([]*Symbol, error) {
	syms, err := s.querySymbols("SELECT "+SymbolCols+symbolFrom+"WHERE d.uri = ? ORDER BY s.id", uri)
	if err != nil {
		return nil, fmt.Errorf("symbols by document: %w", err)
	}
	return syms, nil
}

// SymbolsByName matches names case-insensitively and ignoring quotes.
func (s *Store) SymbolsByName(nameKey string) ([]*Symbol, error) {
	syms, err := s.querySymbols("SELECT "+SymbolCols+symbolFrom+"WHERE s.name_key = ? ORDER BY d.path, s.id", nameKey)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	return syms, nil
}

// Objects returns the stored objects of one kind, or of every kind when
// kind is empty.
func (s *Store) Objects(kind string) ([]*Symbol, error) {
	q := "SELECT " + SymbolCols + symbolFrom + "WHERE s.parent_symbol_id IS NULL"
	var args []any
	if kind != "" {
		q += " AND s.kind = ?"
		args = append(args, kind)
	}
	syms, err := s.querySymbols(q+" ORDER BY d.path, s.id", args...)
	if err != nil {
		return nil, fmt.Errorf("objects: %w", err)
	}
	return syms, nil
}

// Children returns the direct children of a symbol.
func (s *Store) Children(symbolID int64) ([]*Symbol, error) {
	syms, err := s.querySymbols("SELECT "+SymbolCols+symbolFrom+"WHERE s.parent_symbol_id = ? ORDER BY s.id", symbolID)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	return syms, nil
}

// Implementors returns the objects whose implements clause names the
// interface.
func (s *Store) Implementors(interfaceKey string) ([]*Symbol, error) {
	syms, err := s.querySymbols(
		"SELECT "+SymbolCols+symbolFrom+
			"JOIN implementations i ON i.object_symbol_id = s.id WHERE i.interface_key = ? ORDER BY d.path, s.id",
		interfaceKey)
	if err != nil {
		return nil, fmt.Errorf("implementors: %w", err)
	}
	return syms, nil
}

// SearchSymbols performs glob-style search on symbol names. '*' is the
// wildcard; matching is case-insensitive. kinds restricts the result when
// non-empty, and limit <= 0 means no limit.
func (s *Store) SearchSymbols(pattern string, kinds []string, limit int) ([]*Symbol, error) {
	var where []string
	var args []any

	// Escape literal % and _ first, then convert * to %.
	if pattern != "" && pattern != "*" {
		likePattern := escapeLike(strings.ToLower(pattern))
		likePattern = strings.ReplaceAll(likePattern, "*", "%")
		where = append(where, "s.name_key LIKE ? ESCAPE '\\'")
		args = append(args, likePattern)
	}
	if len(kinds) > 0 {
		where = append(where, "s.kind IN ("+placeholderList(len(kinds))+")")
		for _, k := range kinds {
			args = append(args, k)
		}
	}

	q := "SELECT " + SymbolCols + symbolFrom
	if len(where) > 0 {
		q += "WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY s.name_key, d.path, s.id"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	syms, err := s.querySymbols(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	return syms, nil
}

// --- Reference queries ---

// ReferencesByName returns every occurrence of a name key with the URI of
// its document.
func (s *Store) ReferencesByName(nameKey string) ([]*Reference, []string, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.document_id, r.name_key, r.role, r.is_write,
			r.start_line, r.start_col, r.end_line, r.end_col, d.uri
		 FROM references_ r JOIN documents d ON d.id = r.document_id
		 WHERE r.name_key = ? ORDER BY d.path, r.start_line, r.start_col`, nameKey)
	if err != nil {
		return nil, nil, fmt.Errorf("references by name: %w", err)
	}
	defer rows.Close()
	var refs []*Reference
	var uris []string
	for rows.Next() {
		r := &Reference{}
		var uri string
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.NameKey, &r.Role, &r.Write,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol, &uri); err != nil {
			return nil, nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, r)
		uris = append(uris, uri)
	}
	return refs, uris, rows.Err()
}

// --- Index runs ---

// Runs returns the recorded export runs, newest first.
func (s *Store) Runs() ([]*IndexRun, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, documents, unchanged, removed, symbols
		 FROM index_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("index runs: %w", err)
	}
	defer rows.Close()
	var runs []*IndexRun
	for rows.Next() {
		r := &IndexRun{}
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Documents, &r.Unchanged, &r.Removed, &r.Symbols); err != nil {
			return nil, fmt.Errorf("scan index run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
