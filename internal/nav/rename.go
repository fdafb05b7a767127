package nav

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
)

// RenameReason says why a rename was refused.
type RenameReason int

const (
	// RenameEmptyName means the new name is empty after trimming quotes.
	RenameEmptyName RenameReason = iota + 1
	// RenameCollision means another declaration in the same scope already
	// has the new name.
	RenameCollision
	// RenameIllegalName means the name cannot be written even quoted.
	RenameIllegalName
	// RenameNotRenamable means the symbol under the cursor has a fixed name.
	RenameNotRenamable
)

func (r RenameReason) String() string {
	switch r {
	case RenameEmptyName:
		return "empty name"
	case RenameCollision:
		return "collision"
	case RenameIllegalName:
		return "illegal name"
	case RenameNotRenamable:
		return "not renamable"
	}
	return "unknown"
}

// RenameError is the typed failure of Rename.
type RenameError struct {
	Reason   RenameReason
	Name     string
	Conflict *Location // the colliding declaration, for RenameCollision
}

func (e *RenameError) Error() string {
	if e.Name == "" {
		return "nav: rename: " + e.Reason.String()
	}
	return fmt.Sprintf("nav: rename to %q: %s", e.Name, e.Reason)
}

// TextEdit replaces the text at Location.
type TextEdit struct {
	Location Location `json:"location"`
	NewText  string   `json:"newText"`
}

// WorkspaceEdit holds edits per document URI, in document order.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes"`
}

// Len returns the total number of edits.
func (w *WorkspaceEdit) Len() int {
	n := 0
	for _, edits := range w.Changes {
		n += len(edits)
	}
	return n
}

// PrepareRename returns the range and current name of the renamable symbol
// at pos, or nil.
func (r *Resolver) PrepareRename(uri string, pos syntax.Point) (*Location, string) {
	doc, occ, res, ok := r.target(uri, pos)
	if !ok || res.Symbol.Kind == symbols.KindTrigger {
		return nil, ""
	}
	loc := occurrenceLocation(doc.URI, occ)
	return &loc, res.Symbol.Name
}

// Rename computes the edits that rename the symbol at pos to newName. The
// occurrence set is exactly that of References including declarations. A
// name that does not lex as a bare identifier is written quoted at every
// occurrence. Renaming to the current name yields an empty edit.
//
// A nil edit and nil error mean nothing renamable is under the cursor.
func (r *Resolver) Rename(ctx context.Context, uri string, pos syntax.Point, newName string) (*WorkspaceEdit, error) {
	_, _, res, ok := r.target(uri, pos)
	if !ok {
		return nil, nil
	}
	if res.Symbol.Kind == symbols.KindTrigger {
		return nil, &RenameError{Reason: RenameNotRenamable, Name: res.Symbol.Name}
	}

	name := symbols.Unquote(strings.TrimSpace(newName))
	switch {
	case name == "":
		return nil, &RenameError{Reason: RenameEmptyName}
	case strings.ContainsAny(name, "\"\r\n"):
		return nil, &RenameError{Reason: RenameIllegalName, Name: name}
	}

	edit := &WorkspaceEdit{Changes: map[string][]TextEdit{}}
	if name == res.Symbol.Name {
		return edit, nil
	}
	if key := symbols.NameKey(name); key != res.Symbol.Key {
		if conflict, found := r.collision(res, key, name); found {
			return nil, &RenameError{Reason: RenameCollision, Name: name, Conflict: &conflict}
		}
	}

	locs, err := r.references(ctx, r.snap.Documents(), res, true)
	if err != nil {
		return nil, err
	}
	text := symbols.Render(name)
	for _, loc := range locs {
		edit.Changes[loc.URI] = append(edit.Changes[loc.URI], TextEdit{Location: loc, NewText: text})
	}
	for _, edits := range edit.Changes {
		sort.Slice(edits, func(i, j int) bool { return edits[i].Location.Span.Start < edits[j].Location.Span.Start })
	}
	log.Debugf("rename %s -> %s: %d edit(s)", res.Symbol.Name, text, edit.Len())
	return edit, nil
}

// collision finds a declaration other than the renamed ones that already
// uses key in the scope of any declaration being renamed. Objects collide
// with objects of the same kind anywhere in the workspace.
func (r *Resolver) collision(res symbols.Resolved, key, name string) (Location, bool) {
	family := r.family(res)
	renamed := make(map[symbolKey]bool, len(family))
	for _, m := range family {
		renamed[keyOf(m)] = true
	}
	if res.Symbol.Kind.IsObject() {
		for _, e := range r.snap.Objects(res.Symbol.Kind, name) {
			if other := e.Resolved(); !renamed[keyOf(other)] {
				return nameLocation(other), true
			}
		}
		return Location{}, false
	}
	for _, m := range family {
		sc := m.Table.Scope(m.Symbol.Scope)
		if sc == nil {
			continue
		}
		for _, id := range sc.Symbols {
			other := symbols.Resolved{Table: m.Table, Symbol: m.Table.Symbol(id)}
			if other.Symbol.Key == key && !renamed[keyOf(other)] {
				return nameLocation(other), true
			}
		}
	}
	return Location{}, false
}
