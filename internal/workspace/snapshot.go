package workspace

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"slices"

	"github.com/jward/alnav/internal/symbols"
)

// HashText returns the content hash recorded for a document version.
func HashText(text []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(text))
}

// Snapshot is an immutable view of the open documents and their index.
type Snapshot struct {
	Generation uint64

	docs         map[string]*Document
	order        []*Document // by Seq
	objects      map[ObjectKey][]Entry
	implementors map[string][]Entry   // interface name key -> implementing objects
	extensions   map[ObjectKey][]Entry // base object -> extension objects
}

// Empty returns a snapshot without documents.
func Empty() *Snapshot {
	return &Snapshot{
		docs:         map[string]*Document{},
		objects:      map[ObjectKey][]Entry{},
		implementors: map[string][]Entry{},
		extensions:   map[ObjectKey][]Entry{},
	}
}

// With returns a new snapshot in which doc replaces any previous version of
// the same URI. Every index entry contributed by the previous version is
// dropped. Only the entries of doc's URI are touched.
func (s *Snapshot) With(doc *Document) *Snapshot {
	next := s.next()
	next.remove(doc.URI)
	next.add(doc)
	return next
}

// WithAll is With for a batch of documents.
func (s *Snapshot) WithAll(batch []*Document) *Snapshot {
	next := s.next()
	for _, d := range batch {
		next.remove(d.URI)
		next.add(d)
	}
	return next
}

// Without returns a new snapshot with uri removed. The receiver is returned
// unchanged when uri is not present.
func (s *Snapshot) Without(uri string) *Snapshot {
	if _, ok := s.docs[uri]; !ok {
		return s
	}
	next := s.next()
	next.remove(uri)
	return next
}

// next returns a shallow copy of s for the following generation. The order
// slice is owned by the copy; entry lists reachable from the maps are shared
// with s, so remove and add replace them instead of writing into them.
func (s *Snapshot) next() *Snapshot {
	return &Snapshot{
		Generation:   s.Generation + 1,
		docs:         maps.Clone(s.docs),
		order:        slices.Clone(s.order),
		objects:      maps.Clone(s.objects),
		implementors: maps.Clone(s.implementors),
		extensions:   maps.Clone(s.extensions),
	}
}

// openedBefore orders documents by open sequence, then URI.
func openedBefore(a, b *Document) bool {
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.URI < b.URI
}

func (s *Snapshot) remove(uri string) {
	old, ok := s.docs[uri]
	if !ok {
		return
	}
	delete(s.docs, uri)
	if i := slices.Index(s.order, old); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	for _, obj := range old.Table.ObjectSymbols() {
		dropEntries(s.objects, ObjectKey{Kind: obj.Kind, Key: obj.Key}, old)
		for _, iface := range obj.Implements {
			dropEntries(s.implementors, symbols.NameKey(iface), old)
		}
		if obj.Kind.IsExtension() && obj.Extends != "" {
			dropEntries(s.extensions, KeyOf(obj.Kind.BaseKind(), obj.Extends), old)
		}
	}
}

func (s *Snapshot) add(d *Document) {
	s.docs[d.URI] = d
	i, _ := slices.BinarySearchFunc(s.order, d, func(e, t *Document) int {
		if openedBefore(e, t) {
			return -1
		}
		return 1
	})
	s.order = slices.Insert(s.order, i, d)
	for _, obj := range d.Table.ObjectSymbols() {
		e := Entry{Doc: d, Symbol: obj}
		insertEntry(s.objects, ObjectKey{Kind: obj.Kind, Key: obj.Key}, e)
		for _, iface := range obj.Implements {
			insertEntry(s.implementors, symbols.NameKey(iface), e)
		}
		if obj.Kind.IsExtension() && obj.Extends != "" {
			insertEntry(s.extensions, KeyOf(obj.Kind.BaseKind(), obj.Extends), e)
		}
	}
}

// insertEntry adds e to m[k] after every entry from a document opened no
// later than e's, keeping each list in open order and, within a document,
// in declaration order.
func insertEntry[K comparable](m map[K][]Entry, k K, e Entry) {
	list := m[k]
	i := len(list)
	for i > 0 && openedBefore(e.Doc, list[i-1].Doc) {
		i--
	}
	m[k] = slices.Insert(slices.Clip(list), i, e)
}

func dropEntries[K comparable](m map[K][]Entry, k K, d *Document) {
	list, ok := m[k]
	if !ok {
		return
	}
	kept := slices.DeleteFunc(slices.Clone(list), func(e Entry) bool { return e.Doc == d })
	if len(kept) == 0 {
		delete(m, k)
		return
	}
	m[k] = kept
}

// Document returns the open document with the given URI, or nil.
func (s *Snapshot) Document(uri string) *Document {
	return s.docs[uri]
}

// Documents returns the open documents in the order they were opened.
func (s *Snapshot) Documents() []*Document {
	return s.order
}

// Len returns the number of open documents.
func (s *Snapshot) Len() int { return len(s.order) }

// Objects returns every declaration of the named object, earliest opened
// first.
func (s *Snapshot) Objects(kind symbols.Kind, name string) []Entry {
	return s.objects[KeyOf(kind, name)]
}

// Object resolves an object name that may be declared more than once. A
// declaration whose name matches name exactly, case included, wins;
// otherwise the one from the earliest opened document is returned.
func (s *Snapshot) Object(kind symbols.Kind, name string) (Entry, bool) {
	cands := s.Objects(kind, name)
	if len(cands) == 0 {
		return Entry{}, false
	}
	want := symbols.Unquote(name)
	for _, c := range cands {
		if c.Symbol.Name == want {
			return c, true
		}
	}
	return cands[0], true
}

// ObjectAnyKind resolves name against every object kind, preferring kinds
// in declaration order of symbols.Kind.
func (s *Snapshot) ObjectAnyKind(name string) (Entry, bool) {
	for k := symbols.KindTable; k <= symbols.KindControlAddIn; k++ {
		if e, ok := s.Object(k, name); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// AllObjects returns every object declaration, in document open order.
func (s *Snapshot) AllObjects() []Entry {
	var out []Entry
	for _, d := range s.order {
		for _, obj := range d.Table.ObjectSymbols() {
			out = append(out, Entry{Doc: d, Symbol: obj})
		}
	}
	return out
}

// Implementors returns the objects whose implements clause names iface.
func (s *Snapshot) Implementors(iface string) []Entry {
	return s.implementors[symbols.NameKey(iface)]
}

// Extensions returns the extension objects of the given base object.
func (s *Snapshot) Extensions(kind symbols.Kind, name string) []Entry {
	return s.extensions[KeyOf(kind, name)]
}

// DocumentOf returns the document that owns table.
func (s *Snapshot) DocumentOf(t *symbols.Table) *Document {
	if t == nil {
		return nil
	}
	return s.docs[t.URI]
}

// RecordMembers returns the members of a table together with those added by
// its table extensions: the table's own members first, then each
// extension's in open order.
func (s *Snapshot) RecordMembers(table string) []symbols.Resolved {
	var out []symbols.Resolved
	if e, ok := s.Object(symbols.KindTable, table); ok {
		for _, m := range e.Doc.Table.Members(e.Symbol) {
			out = append(out, symbols.Resolved{Table: e.Doc.Table, Symbol: m})
		}
	}
	for _, ext := range s.Extensions(symbols.KindTable, table) {
		for _, m := range ext.Doc.Table.Members(ext.Symbol) {
			out = append(out, symbols.Resolved{Table: ext.Doc.Table, Symbol: m})
		}
	}
	return out
}

// ObjectMembers returns the members of an object and, for tables and enums,
// those added by extensions.
func (s *Snapshot) ObjectMembers(e Entry) []symbols.Resolved {
	if e.Symbol.Kind == symbols.KindTable {
		return s.RecordMembers(e.Symbol.Name)
	}
	var out []symbols.Resolved
	for _, m := range e.Doc.Table.Members(e.Symbol) {
		out = append(out, symbols.Resolved{Table: e.Doc.Table, Symbol: m})
	}
	if e.Symbol.Kind == symbols.KindEnum {
		for _, ext := range s.Extensions(symbols.KindEnum, e.Symbol.Name) {
			for _, m := range ext.Doc.Table.Members(ext.Symbol) {
				out = append(out, symbols.Resolved{Table: ext.Doc.Table, Symbol: m})
			}
		}
	}
	return out
}
