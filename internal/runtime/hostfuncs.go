package runtime

import (
	"context"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// Positions passed to and returned from host functions are zero-based lines
// and byte columns. Every list-returning function returns an empty list
// rather than nil.

func listOf(items []object.Object) object.Object {
	if items == nil {
		items = []object.Object{}
	}
	return object.NewList(items)
}

func pointMap(prefix string, p syntax.Point, m map[string]object.Object) {
	m[prefix+"_line"] = object.NewInt(int64(p.Row))
	m[prefix+"_col"] = object.NewInt(int64(p.Column))
}

func locationToMap(loc nav.Location) object.Object {
	m := map[string]object.Object{
		"uri":  object.NewString(loc.URI),
		"path": object.NewString(workspace.PathFromURI(loc.URI)),
	}
	pointMap("start", loc.Start, m)
	pointMap("end", loc.End, m)
	return object.NewMap(m)
}

func locationsToList(locs []nav.Location) object.Object {
	var out []object.Object
	for _, l := range locs {
		out = append(out, locationToMap(l))
	}
	return listOf(out)
}

func resolvedToMap(res symbols.Resolved) object.Object {
	s := res.Symbol
	m := map[string]object.Object{
		"name":   object.NewString(s.Name),
		"kind":   object.NewString(s.Kind.String()),
		"detail": object.NewString(s.Detail()),
		"access": object.NewString(s.Access.String()),
		"uri":    object.NewString(res.Table.URI),
	}
	pointMap("start", s.NameStart, m)
	pointMap("end", s.NameEnd, m)
	if s.ObjectID != 0 {
		m["id"] = object.NewInt(int64(s.ObjectID))
	}
	if s.Extends != "" {
		m["extends"] = object.NewString(s.Extends)
	}
	if len(s.Implements) > 0 {
		impl := make([]object.Object, len(s.Implements))
		for i, n := range s.Implements {
			impl[i] = object.NewString(n)
		}
		m["implements"] = object.NewList(impl)
	}
	if p := res.Table.Symbol(s.Parent); p != nil {
		m["container"] = object.NewString(p.Name)
	}
	return object.NewMap(m)
}

func entriesToList(entries []workspace.Entry) object.Object {
	var out []object.Object
	for _, e := range entries {
		out = append(out, resolvedToMap(e.Resolved()))
	}
	return listOf(out)
}

// positionArgs reads (uri, line, col) from the first three arguments.
func positionArgs(name string, args []object.Object) (string, syntax.Point, *object.Error) {
	uri, err := toString(args[0])
	if err != nil {
		return "", syntax.Point{}, object.Errorf("%s: uri: %v", name, err)
	}
	line, err := toInt64(args[1])
	if err != nil {
		return "", syntax.Point{}, object.Errorf("%s: line: %v", name, err)
	}
	col, err := toInt64(args[2])
	if err != nil {
		return "", syntax.Point{}, object.Errorf("%s: col: %v", name, err)
	}
	return documentURI(uri), syntax.Point{Row: int(line), Column: int(col)}, nil
}

// documentURI accepts either a file URI or a filesystem path.
func documentURI(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	return workspace.URIFromPath(s)
}

// makeDocumentsFn creates "documents".
//
// documents() → [{uri, path, version, lines, errors}]
func makeDocumentsFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("documents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("documents", 0, len(args))
		}
		var out []object.Object
		for _, d := range snap.Documents() {
			out = append(out, object.NewMap(map[string]object.Object{
				"uri":     object.NewString(d.URI),
				"path":    object.NewString(workspace.PathFromURI(d.URI)),
				"version": object.NewInt(int64(d.Version)),
				"lines":   object.NewInt(int64(d.Lines.Count())),
				"errors":  object.NewInt(int64(len(d.Tree.Errors()))),
			}))
		}
		return listOf(out)
	})
}

// makeObjectsFn creates "objects".
//
// objects([kind]) → [symbol]
func makeObjectsFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("objects", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.NewArgsRangeError("objects", 0, 1, len(args))
		}
		kind := symbols.KindUnknown
		if len(args) == 1 {
			s, err := toString(args[0])
			if err != nil {
				return object.Errorf("objects: %v", err)
			}
			if kind = symbols.ParseKind(s); !kind.IsObject() {
				return object.Errorf("objects: %q is not an object kind", s)
			}
		}
		var out []object.Object
		for _, e := range snap.AllObjects() {
			if kind != symbols.KindUnknown && e.Symbol.Kind != kind {
				continue
			}
			out = append(out, resolvedToMap(e.Resolved()))
		}
		return listOf(out)
	})
}

func objectArgs(name string, args []object.Object) (symbols.Kind, string, *object.Error) {
	if len(args) != 2 {
		return 0, "", object.NewArgsError(name, 2, len(args))
	}
	k, err := toString(args[0])
	if err != nil {
		return 0, "", object.Errorf("%s: kind: %v", name, err)
	}
	n, err := toString(args[1])
	if err != nil {
		return 0, "", object.Errorf("%s: name: %v", name, err)
	}
	kind := symbols.ParseKind(k)
	if !kind.IsObject() {
		return 0, "", object.Errorf("%s: %q is not an object kind", name, k)
	}
	return kind, n, nil
}

// makeMembersFn creates "members", which includes members contributed by
// extensions.
//
// members(kind, name) → [symbol]
func makeMembersFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("members", func(ctx context.Context, args ...object.Object) object.Object {
		kind, name, errObj := objectArgs("members", args)
		if errObj != nil {
			return errObj
		}
		e, ok := snap.Object(kind, name)
		if !ok {
			return listOf(nil)
		}
		var out []object.Object
		for _, m := range snap.ObjectMembers(e) {
			out = append(out, resolvedToMap(m))
		}
		return listOf(out)
	})
}

// makeSymbolsFn creates "symbols".
//
// symbols(uri) → [symbol] in declaration order
func makeSymbolsFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols", 1, len(args))
		}
		uri, err := toString(args[0])
		if err != nil {
			return object.Errorf("symbols: %v", err)
		}
		doc := snap.Document(documentURI(uri))
		if doc == nil {
			return listOf(nil)
		}
		var out []object.Object
		for i := range doc.Table.Symbols {
			out = append(out, resolvedToMap(symbols.Resolved{Table: doc.Table, Symbol: &doc.Table.Symbols[i]}))
		}
		return listOf(out)
	})
}

// makeImplementorsFn creates "implementors".
//
// implementors(interface_name) → [symbol]
func makeImplementorsFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("implementors", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("implementors", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("implementors: %v", err)
		}
		return entriesToList(snap.Implementors(name))
	})
}

// makeExtensionsFn creates "extensions".
//
// extensions(kind, name) → [symbol]
func makeExtensionsFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("extensions", func(ctx context.Context, args ...object.Object) object.Object {
		kind, name, errObj := objectArgs("extensions", args)
		if errObj != nil {
			return errObj
		}
		return entriesToList(snap.Extensions(kind, name))
	})
}

// makeDefinitionFn creates "definition".
//
// definition(uri, line, col) → [location]
func makeDefinitionFn(r *nav.Resolver) *object.Builtin {
	return object.NewBuiltin("definition", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("definition", 3, len(args))
		}
		uri, pos, errObj := positionArgs("definition", args)
		if errObj != nil {
			return errObj
		}
		return locationsToList(r.Definition(uri, pos))
	})
}

// makeReferencesFn creates "references".
//
// references(uri, line, col[, include_declaration]) → [location]
func makeReferencesFn(r *nav.Resolver) *object.Builtin {
	return object.NewBuiltin("references", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 3 || len(args) > 4 {
			return object.NewArgsRangeError("references", 3, 4, len(args))
		}
		uri, pos, errObj := positionArgs("references", args)
		if errObj != nil {
			return errObj
		}
		include := true
		if len(args) == 4 {
			include = args[3].IsTruthy()
		}
		locs, err := r.References(ctx, uri, pos, include)
		if err != nil {
			return object.Errorf("references: %v", err)
		}
		return locationsToList(locs)
	})
}

// makeHoverFn creates "hover".
//
// hover(uri, line, col) → string or nil
func makeHoverFn(r *nav.Resolver) *object.Builtin {
	return object.NewBuiltin("hover", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("hover", 3, len(args))
		}
		uri, pos, errObj := positionArgs("hover", args)
		if errObj != nil {
			return errObj
		}
		h := r.Hover(uri, pos)
		if h == nil {
			return object.Nil
		}
		return object.NewString(h.Contents)
	})
}

// makeSearchFn creates "search", a case-insensitive substring search over
// declaration names outside routine bodies.
//
// search(query) → [{name, kind, container, uri, start_line, ...}]
func makeSearchFn(r *nav.Resolver) *object.Builtin {
	return object.NewBuiltin("search", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("search", 1, len(args))
		}
		q, err := toString(args[0])
		if err != nil {
			return object.Errorf("search: %v", err)
		}
		hits, err := r.WorkspaceSymbols(ctx, q)
		if err != nil {
			return object.Errorf("search: %v", err)
		}
		var out []object.Object
		for _, h := range hits {
			m := map[string]object.Object{
				"name":      object.NewString(h.Name),
				"kind":      object.NewString(h.Kind.String()),
				"container": object.NewString(h.Container),
				"uri":       object.NewString(h.Location.URI),
			}
			pointMap("start", h.Location.Start, m)
			pointMap("end", h.Location.End, m)
			out = append(out, object.NewMap(m))
		}
		return listOf(out)
	})
}

// makeDiagnosticsFn creates "diagnostics".
//
// diagnostics(uri) → [{message, start_line, ...}]
func makeDiagnosticsFn(r *nav.Resolver) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("diagnostics", 1, len(args))
		}
		uri, err := toString(args[0])
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		var out []object.Object
		for _, d := range r.Diagnostics(documentURI(uri)) {
			m := map[string]object.Object{"message": object.NewString(d.Message)}
			pointMap("start", d.Location.Start, m)
			pointMap("end", d.Location.End, m)
			out = append(out, object.NewMap(m))
		}
		return listOf(out)
	})
}

func nodeToMap(n *syntax.Node, src []byte) object.Object {
	m := map[string]object.Object{
		"kind":  object.NewString(n.Kind),
		"field": object.NewString(n.Field),
		"text":  object.NewString(n.Text(src)),
		"error": object.NewBool(n.Error || n.Missing),
	}
	pointMap("start", n.StartPoint, m)
	pointMap("end", n.EndPoint, m)
	return object.NewMap(m)
}

// makeNodesFn creates "nodes", returning every syntax node of a kind in
// source order.
//
// nodes(uri, kind) → [{kind, field, text, error, start_line, ...}]
func makeNodesFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("nodes", 2, len(args))
		}
		uri, err := toString(args[0])
		if err != nil {
			return object.Errorf("nodes: %v", err)
		}
		kind, err := toString(args[1])
		if err != nil {
			return object.Errorf("nodes: %v", err)
		}
		doc := snap.Document(documentURI(uri))
		if doc == nil {
			return listOf(nil)
		}
		var out []object.Object
		doc.Tree.Root.Walk(func(n *syntax.Node) bool {
			if n.Kind == kind {
				out = append(out, nodeToMap(n, doc.Text))
			}
			return true
		})
		return listOf(out)
	})
}

// makeNodeAtFn creates "node_at", returning the deepest named node at a
// position.
//
// node_at(uri, line, col) → node or nil
func makeNodeAtFn(snap *workspace.Snapshot) *object.Builtin {
	return object.NewBuiltin("node_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("node_at", 3, len(args))
		}
		uri, pos, errObj := positionArgs("node_at", args)
		if errObj != nil {
			return errObj
		}
		doc := snap.Document(uri)
		if doc == nil {
			return object.Nil
		}
		n := doc.Tree.Root.DescendantAt(doc.Lines.Offset(pos), true)
		if n == nil {
			return object.Nil
		}
		return nodeToMap(n, doc.Text)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct{}

func (l *logObject) Info(msg string)  { log.Info(msg) }
func (l *logObject) Warn(msg string)  { log.Warning(msg) }
func (l *logObject) Error(msg string) { log.Error(msg) }
