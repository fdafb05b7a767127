// Package workspace holds immutable snapshots of the open documents and the
// cross-document object index built over them.
//
// A Snapshot is never modified after construction. Every change to the set
// of documents produces a new Snapshot that shares unchanged documents with
// its predecessor, so readers holding an old Snapshot keep a consistent view.
package workspace

import (
	"net/url"
	"path/filepath"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
)

// Document is one version of an open document.
type Document struct {
	URI     string
	Version int32
	Seq     uint64 // open order; lower was opened first
	Text    []byte
	Hash    string
	Tree    *syntax.Tree
	Lines   *syntax.Lines
	Table   *symbols.Table
}

// NewDocument bundles a parsed document version.
func NewDocument(uri string, version int32, seq uint64, text []byte, tree *syntax.Tree) *Document {
	return &Document{
		URI:     uri,
		Version: version,
		Seq:     seq,
		Text:    text,
		Hash:    HashText(text),
		Tree:    tree,
		Lines:   syntax.NewLines(text),
		Table:   symbols.Extract(uri, tree),
	}
}

// Entry locates an object declaration in a document.
type Entry struct {
	Doc    *Document
	Symbol *symbols.Symbol
}

// Resolved converts e to the symbols package pairing.
func (e Entry) Resolved() symbols.Resolved {
	return symbols.Resolved{Table: e.Doc.Table, Symbol: e.Symbol}
}

// ObjectKey identifies an object by kind and name key.
type ObjectKey struct {
	Kind symbols.Kind
	Key  string
}

// KeyOf returns the index key of an object declaration.
func KeyOf(kind symbols.Kind, name string) ObjectKey {
	return ObjectKey{Kind: kind, Key: symbols.NameKey(name)}
}

// URIFromPath returns the file URI of a filesystem path.
func URIFromPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// PathFromURI returns the filesystem path of a file URI. Other strings are
// returned unchanged.
func PathFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}
