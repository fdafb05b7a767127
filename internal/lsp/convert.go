package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/alnav/internal/docstore"
	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
	"github.com/jward/alnav/internal/workspace"
)

// The engine counts columns in bytes; the protocol counts UTF-16 code units.
// Conversions go through the line index of the document the position
// belongs to. Positions in documents that are not open pass through as is.

func toPoint(snap *workspace.Snapshot, uri string, pos protocol.Position) syntax.Point {
	doc := snap.Document(uri)
	if doc == nil {
		return syntax.Point{Row: int(pos.Line), Column: int(pos.Character)}
	}
	return doc.Lines.Point(doc.Lines.OffsetUTF16(int(pos.Line), int(pos.Character)))
}

func fromPoint(lines *syntax.Lines, p syntax.Point) protocol.Position {
	if lines == nil {
		return protocol.Position{Line: protocol.UInteger(p.Row), Character: protocol.UInteger(p.Column)}
	}
	row, char := lines.PointUTF16(lines.Offset(p))
	return protocol.Position{Line: protocol.UInteger(row), Character: protocol.UInteger(char)}
}

func linesOf(snap *workspace.Snapshot, uri string) *syntax.Lines {
	if doc := snap.Document(uri); doc != nil {
		return doc.Lines
	}
	return nil
}

func toRange(snap *workspace.Snapshot, loc nav.Location) protocol.Range {
	lines := linesOf(snap, loc.URI)
	return protocol.Range{Start: fromPoint(lines, loc.Start), End: fromPoint(lines, loc.End)}
}

func toLocation(snap *workspace.Snapshot, loc nav.Location) protocol.Location {
	return protocol.Location{URI: loc.URI, Range: toRange(snap, loc)}
}

func toLocations(snap *workspace.Snapshot, locs []nav.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, toLocation(snap, l))
	}
	return out
}

// toEdit converts one content change against text, the document as it is
// before the change.
func toEdit(text []byte, change any) (docstore.Edit, bool) {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return docstore.Edit{Text: c.Text}, true
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			return docstore.Edit{Text: c.Text}, true
		}
		lines := syntax.NewLines(text)
		start := lines.Point(lines.OffsetUTF16(int(c.Range.Start.Line), int(c.Range.Start.Character)))
		end := lines.Point(lines.OffsetUTF16(int(c.Range.End.Line), int(c.Range.End.Character)))
		return docstore.Edit{Range: &docstore.Range{Start: start, End: end}, Text: c.Text}, true
	}
	return docstore.Edit{}, false
}

func symbolKind(k symbols.Kind) protocol.SymbolKind {
	switch k {
	case symbols.KindTable, symbols.KindTableExtension:
		return protocol.SymbolKindStruct
	case symbols.KindPage, symbols.KindPageExtension, symbols.KindReport, symbols.KindXmlPort, symbols.KindQuery:
		return protocol.SymbolKindObject
	case symbols.KindCodeunit, symbols.KindControlAddIn, symbols.KindPermissionSet:
		return protocol.SymbolKindClass
	case symbols.KindEnum, symbols.KindEnumExtension:
		return protocol.SymbolKindEnum
	case symbols.KindInterface:
		return protocol.SymbolKindInterface
	case symbols.KindProcedure:
		return protocol.SymbolKindMethod
	case symbols.KindTrigger:
		return protocol.SymbolKindEvent
	case symbols.KindVariable:
		return protocol.SymbolKindVariable
	case symbols.KindParameter:
		return protocol.SymbolKindTypeParameter
	case symbols.KindField:
		return protocol.SymbolKindField
	case symbols.KindEnumValue:
		return protocol.SymbolKindEnumMember
	case symbols.KindKey, symbols.KindFieldGroup:
		return protocol.SymbolKindKey
	case symbols.KindSection:
		return protocol.SymbolKindNamespace
	}
	return protocol.SymbolKindNull
}

func completionKind(it nav.CompletionItem) protocol.CompletionItemKind {
	if it.Keyword {
		return protocol.CompletionItemKindKeyword
	}
	switch it.Kind {
	case symbols.KindProcedure, symbols.KindTrigger:
		return protocol.CompletionItemKindMethod
	case symbols.KindVariable, symbols.KindParameter:
		return protocol.CompletionItemKindVariable
	case symbols.KindField:
		return protocol.CompletionItemKindField
	case symbols.KindEnumValue:
		return protocol.CompletionItemKindEnumMember
	case symbols.KindEnum, symbols.KindEnumExtension:
		return protocol.CompletionItemKindEnum
	case symbols.KindInterface:
		return protocol.CompletionItemKindInterface
	case symbols.KindTable, symbols.KindTableExtension:
		return protocol.CompletionItemKindStruct
	}
	if it.Kind.IsObject() {
		return protocol.CompletionItemKindClass
	}
	return protocol.CompletionItemKindText
}
