// Package store persists workspace snapshots to SQLite. The database is an
// export artifact for external tools and the CLI's --db mode; the engine
// never reads it back.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/alnav/internal/logging"
)

var log = logging.Logger("store")

// Store is the SQLite data access layer for the export tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  uri             TEXT NOT NULL UNIQUE,
  path            TEXT NOT NULL,
  version         INTEGER,
  hash            TEXT,
  line_count      INTEGER,
  skipped         INTEGER DEFAULT 0,
  errors          INTEGER DEFAULT 0,
  run_id          TEXT,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  parent_symbol_id INTEGER REFERENCES symbols(id),
  name            TEXT NOT NULL,
  name_key        TEXT NOT NULL,
  kind            TEXT NOT NULL,
  detail          TEXT,
  access          TEXT,
  object_id       INTEGER,
  section         TEXT,
  extends         TEXT,
  source_table    TEXT,
  signature_hash  TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  name_line       INTEGER,
  name_col        INTEGER
);

CREATE TABLE IF NOT EXISTS implementations (
  id              INTEGER PRIMARY KEY,
  object_symbol_id INTEGER NOT NULL REFERENCES symbols(id),
  interface_name  TEXT NOT NULL,
  interface_key   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS references_ (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  name_key        TEXT NOT NULL,
  role            TEXT NOT NULL,
  is_write        BOOLEAN DEFAULT FALSE,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS index_runs (
  id              TEXT PRIMARY KEY,
  started_at      TIMESTAMP,
  finished_at     TIMESTAMP,
  documents       INTEGER DEFAULT 0,
  unchanged       INTEGER DEFAULT 0,
  removed         INTEGER DEFAULT 0,
  symbols         INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_symbols_document ON symbols(document_id);
CREATE INDEX IF NOT EXISTS idx_symbols_key ON symbols(name_key);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_symbol_id);
CREATE INDEX IF NOT EXISTS idx_symbols_hash ON symbols(signature_hash);
CREATE INDEX IF NOT EXISTS idx_implementations_object ON implementations(object_symbol_id);
CREATE INDEX IF NOT EXISTS idx_implementations_interface ON implementations(interface_key);
CREATE INDEX IF NOT EXISTS idx_references_document ON references_(document_id);
CREATE INDEX IF NOT EXISTS idx_references_key ON references_(name_key);
`

// DeleteDocument transactionally removes a document and everything it
// contributed. Deleting a document that is not stored does nothing.
func (s *Store) DeleteDocument(ctx context.Context, uri string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentTx(ctx, tx, uri); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteDocumentTx deletes in reverse-dependency order to respect FK
// constraints.
func deleteDocumentTx(ctx context.Context, tx *sql.Tx, uri string) error {
	var docID int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM documents WHERE uri = ?", uri).Scan(&docID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query document: %w", err)
	}

	for _, q := range []string{
		"DELETE FROM implementations WHERE object_symbol_id IN (SELECT id FROM symbols WHERE document_id = ?)",
		"DELETE FROM references_ WHERE document_id = ?",
		// Children point at parents in the same document.
		"UPDATE symbols SET parent_symbol_id = NULL WHERE document_id = ?",
		"DELETE FROM symbols WHERE document_id = ?",
		"DELETE FROM documents WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, docID); err != nil {
			return fmt.Errorf("delete document data: %w", err)
		}
	}
	return nil
}
