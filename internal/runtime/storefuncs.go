package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/risor-io/risor/object"

	"github.com/jward/alnav/internal/store"
	"github.com/jward/alnav/internal/symbols"
)

// Bridge functions over the export database. Risor cannot hold Go struct
// pointers usefully, so rows are converted to maps on the Go side.

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

func toStringList(obj object.Object) ([]string, error) {
	l, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected list, got %s", obj.Type())
	}
	var out []string
	for _, item := range l.Value() {
		s, err := toString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// makeStoredSymbolsFn creates "stored_symbols".
//
// stored_symbols(name) → [row]; matching ignores case and quotes
func makeStoredSymbolsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("stored_symbols", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("stored_symbols: %v", err)
		}
		syms, queryErr := s.SymbolsByName(symbols.NameKey(name))
		if queryErr != nil {
			return object.Errorf("stored_symbols: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// makeStoredObjectsFn creates "stored_objects".
//
// stored_objects([kind]) → [row]
func makeStoredObjectsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_objects", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.NewArgsRangeError("stored_objects", 0, 1, len(args))
		}
		var kind string
		if len(args) == 1 {
			k, err := toString(args[0])
			if err != nil {
				return object.Errorf("stored_objects: %v", err)
			}
			kind = strings.ToLower(k)
		}
		syms, queryErr := s.Objects(kind)
		if queryErr != nil {
			return object.Errorf("stored_objects: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// makeStoredImplementorsFn creates "stored_implementors".
//
// stored_implementors(interface_name) → [row]
func makeStoredImplementorsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_implementors", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("stored_implementors", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("stored_implementors: %v", err)
		}
		syms, queryErr := s.Implementors(symbols.NameKey(name))
		if queryErr != nil {
			return object.Errorf("stored_implementors: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// makeStoredSearchFn creates "stored_search", a glob search where '*' is
// the wildcard.
//
// stored_search(pattern[, kinds[, limit]]) → [row]
func makeStoredSearchFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_search", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 3 {
			return object.NewArgsRangeError("stored_search", 1, 3, len(args))
		}
		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("stored_search: %v", err)
		}
		var kinds []string
		if len(args) >= 2 && args[1] != object.Nil {
			if kinds, err = toStringList(args[1]); err != nil {
				return object.Errorf("stored_search: kinds: %v", err)
			}
		}
		var limit int64
		if len(args) == 3 {
			if limit, err = toInt64(args[2]); err != nil {
				return object.Errorf("stored_search: limit: %v", err)
			}
		}
		syms, queryErr := s.SearchSymbols(pattern, kinds, int(limit))
		if queryErr != nil {
			return object.Errorf("stored_search: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// makeStoredChildrenFn creates "stored_children".
//
// stored_children(id) → [row]
func makeStoredChildrenFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("stored_children", 1, len(args))
		}
		id, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("stored_children: %v", err)
		}
		syms, queryErr := s.Children(id)
		if queryErr != nil {
			return object.Errorf("stored_children: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// makeStoredDocumentFn creates "stored_document". The result is nil when the
// URI was never exported.
//
// stored_document(uri) → {uri, path, version, hash, lines, errors, skipped, run_id, symbols}
func makeStoredDocumentFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_document", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("stored_document", 1, len(args))
		}
		uri, err := toString(args[0])
		if err != nil {
			return object.Errorf("stored_document: %v", err)
		}
		doc, queryErr := s.DocumentByURI(uri)
		if queryErr != nil {
			return object.Errorf("stored_document: %v", queryErr)
		}
		if doc == nil {
			return object.Nil
		}
		syms, queryErr := s.SymbolsByDocument(uri)
		if queryErr != nil {
			return object.Errorf("stored_document: %v", queryErr)
		}
		return object.NewMap(map[string]object.Object{
			"uri":     object.NewString(doc.URI),
			"path":    object.NewString(doc.Path),
			"version": object.NewInt(int64(doc.Version)),
			"hash":    object.NewString(doc.Hash),
			"lines":   object.NewInt(int64(doc.LineCount)),
			"errors":  object.NewInt(int64(doc.Errors)),
			"skipped": object.NewInt(int64(doc.Skipped)),
			"run_id":  object.NewString(doc.RunID),
			"symbols": symbolsToList(syms),
		})
	})
}

// makeStoredReferencesFn creates "stored_references".
//
// stored_references(name) → [{uri, role, write, start_line, start_col, end_line, end_col}]
func makeStoredReferencesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_references", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("stored_references", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("stored_references: %v", err)
		}
		refs, uris, queryErr := s.ReferencesByName(symbols.NameKey(name))
		if queryErr != nil {
			return object.Errorf("stored_references: %v", queryErr)
		}
		results := make([]object.Object, 0, len(refs))
		for i, r := range refs {
			results = append(results, object.NewMap(map[string]object.Object{
				"uri":        object.NewString(uris[i]),
				"role":       object.NewString(r.Role),
				"write":      object.NewBool(r.Write),
				"start_line": object.NewInt(int64(r.StartLine)),
				"start_col":  object.NewInt(int64(r.StartCol)),
				"end_line":   object.NewInt(int64(r.EndLine)),
				"end_col":    object.NewInt(int64(r.EndCol)),
			}))
		}
		return listOf(results)
	})
}

// makeStoredRunsFn creates "stored_runs", newest first.
//
// stored_runs() → [{id, started_at, finished_at, documents, unchanged, removed, symbols}]
func makeStoredRunsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("stored_runs", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("stored_runs", 0, len(args))
		}
		runs, err := s.Runs()
		if err != nil {
			return object.Errorf("stored_runs: %v", err)
		}
		results := make([]object.Object, 0, len(runs))
		for _, r := range runs {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":          object.NewString(r.ID),
				"started_at":  object.NewString(r.StartedAt.Format(time.RFC3339)),
				"finished_at": object.NewString(r.FinishedAt.Format(time.RFC3339)),
				"documents":   object.NewInt(int64(r.Documents)),
				"unchanged":   object.NewInt(int64(r.Unchanged)),
				"removed":     object.NewInt(int64(r.Removed)),
				"symbols":     object.NewInt(int64(r.Symbols)),
			}))
		}
		return listOf(results)
	})
}

// makeDBQueryFn creates a db_query bridge that executes arbitrary read-only SQL.
// Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return listOf(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

// symbolsToList converts stored symbols to a Risor list of maps.
func symbolsToList(syms []*store.Symbol) object.Object {
	var results []object.Object
	for _, sym := range syms {
		m := map[string]object.Object{
			"id":         object.NewInt(sym.ID),
			"name":       object.NewString(sym.Name),
			"kind":       object.NewString(sym.Kind),
			"detail":     object.NewString(sym.Detail),
			"access":     object.NewString(sym.Access),
			"uri":        object.NewString(sym.URI),
			"start_line": object.NewInt(int64(sym.StartLine)),
			"start_col":  object.NewInt(int64(sym.StartCol)),
			"end_line":   object.NewInt(int64(sym.EndLine)),
			"end_col":    object.NewInt(int64(sym.EndCol)),
			"signature":  object.NewString(sym.SignatureHash),
		}
		if sym.ParentSymbolID != nil {
			m["parent_symbol_id"] = object.NewInt(*sym.ParentSymbolID)
		}
		results = append(results, object.NewMap(m))
	}
	return listOf(results)
}
