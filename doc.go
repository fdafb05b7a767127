// Package alnav provides scope-aware code navigation for AL, the language
// of Microsoft Dynamics 365 Business Central extensions. It keeps an
// in-memory index of open documents and answers editor queries against
// consistent snapshots of that index.
//
// # Pipeline
//
// Every document goes through the same steps when it is opened or changed:
//
//  1. Parse: the native AL parser (or a tree-sitter provider, see
//     [WithProvider]) produces an immutable syntax tree. Malformed regions
//     become error nodes; parsing never fails on bad input.
//
//  2. Extract: declarations, lexical scopes and identifier occurrences are
//     collected into a per-document symbol table. Declarations with a
//     missing name or type are skipped and counted.
//
//  3. Publish: the document replaces its previous version in a new
//     workspace snapshot, which rebuilds the object index keyed by
//     (kind, name) and the interface to implementor map.
//
// # Usage
//
//	e := alnav.New()
//	ctx := context.Background()
//	n, err := e.LoadDirectory(ctx, "path/to/app")
//
//	q := e.Query()
//	locs := q.DefinitionAt("src/Sales.Codeunit.al", 10, 5)
//	refs, err := q.ReferencesTo(ctx, "src/Sales.Codeunit.al", 10, 5, true)
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads one snapshot:
//
//   - [QueryBuilder.DefinitionAt] and [QueryBuilder.TypeDefinitionAt] jump
//     to declarations.
//   - [QueryBuilder.ReferencesTo] finds references across documents,
//     treating an interface method and its implementations as one symbol.
//   - [QueryBuilder.Implementations] lists implementing procedures and
//     codeunits.
//   - [QueryBuilder.RenameAt] computes workspace edits, quoting names that
//     need it.
//   - [QueryBuilder.CompletionAt], [QueryBuilder.SignatureAt] and
//     [QueryBuilder.HoverAt] serve the editing surface.
//   - [QueryBuilder.Outline], [QueryBuilder.Symbols] and
//     [QueryBuilder.SearchSymbols] enumerate declarations.
//
// Lines and columns are 0-based and columns count bytes. The language
// server in internal/lsp converts UTF-16 protocol positions.
//
// # Cancellation
//
// Workspace-wide scans poll their context between documents and return
// [ErrCancelled] instead of a partial result.
package alnav
