package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDETAIL\tCONTAINER\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.Name, s.Kind, s.Detail, s.Container, s.File, s.StartLine)
	}
	tw.Flush()
}

func formatHighlightsText(w io.Writer, hs []CLIHighlight) {
	for _, h := range hs {
		access := "read"
		if h.Write {
			access = "write"
		}
		fmt.Fprintf(w, "%s:%d:%d\t%s\n", h.File, h.StartLine, h.StartCol, access)
	}
}

func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s\n", d.File, d.StartLine, d.StartCol, d.Message)
	}
}

func formatCompletionsText(w io.Writer, items []CLICompletion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tKIND\tDETAIL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Label, it.Kind, it.Detail)
	}
	tw.Flush()
}

func formatFoldingText(w io.Writer, ranges []CLIFoldingRange) {
	for _, f := range ranges {
		if f.Kind != "" {
			fmt.Fprintf(w, "%d-%d\t%s\n", f.StartLine, f.EndLine, f.Kind)
			continue
		}
		fmt.Fprintf(w, "%d-%d\n", f.StartLine, f.EndLine)
	}
}

// formatOutlineText prints the outline as an indented tree.
func formatOutlineText(w io.Writer, nodes []CLIOutlineNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s %s", strings.Repeat("  ", depth), n.Kind, n.Name)
		if n.Detail != "" {
			fmt.Fprintf(w, ": %s", n.Detail)
		}
		fmt.Fprintf(w, " [%d-%d]\n", n.StartLine, n.EndLine)
		formatOutlineText(w, n.Children, depth+1)
	}
}

func formatEditsText(w io.Writer, files []CLIFileEdits) {
	for _, f := range files {
		fmt.Fprintf(w, "%s\n", f.File)
		for _, e := range f.Edits {
			fmt.Fprintf(w, "  %d:%d-%d:%d -> %s\n", e.StartLine, e.StartCol, e.EndLine, e.EndCol, e.NewText)
		}
	}
}

func formatScopesText(w io.Writer, scopes []CLIScope) {
	for _, sc := range scopes {
		fmt.Fprintf(w, "%s", sc.Kind)
		if sc.Owner != "" {
			fmt.Fprintf(w, " %s", sc.Owner)
		}
		fmt.Fprintf(w, " [%d-%d]", sc.Location.StartLine, sc.Location.EndLine)
		if len(sc.Symbols) > 0 {
			fmt.Fprintf(w, ": %s", strings.Join(sc.Symbols, ", "))
		}
		fmt.Fprintln(w)
	}
}

func formatDetailText(w io.Writer, d CLISymbolDetail) {
	formatSymbolsText(w, []CLISymbol{d.Symbol})
	if d.Signature != "" {
		fmt.Fprintf(w, "\nSignature: %s\n", d.Signature)
	}
	if len(d.Parameters) > 0 {
		fmt.Fprintln(w, "\nParameters:")
		for _, p := range d.Parameters {
			fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Detail)
		}
	}
	if len(d.Members) > 0 {
		fmt.Fprintln(w, "\nMembers:")
		for _, m := range d.Members {
			fmt.Fprintf(w, "  %s %s\n", m.Kind, m.Name)
		}
	}
}

// formatHierarchyText formats CLIHierarchy as readable text.
func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "%s %s (%s:%d)\n", h.Object.Kind, h.Object.Name, h.Object.File, h.Object.StartLine)
	section := func(title string, syms []CLISymbol) {
		if len(syms) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, s := range syms {
			fmt.Fprintf(w, "  %s %s (%s:%d)\n", s.Kind, s.Name, s.File, s.StartLine)
		}
	}
	if h.Extends != nil {
		section("Extends", []CLISymbol{*h.Extends})
	}
	section("Implements", h.Implements)
	if len(h.Unresolved) > 0 {
		fmt.Fprintf(w, "\nUnresolved: %s\n", strings.Join(h.Unresolved, ", "))
	}
	section("Implemented by", h.ImplementedBy)
	section("Extended by", h.ExtendedBy)
}

// formatDocumentsText formats CLIDocument results as aligned columns.
func formatDocumentsText(w io.Writer, docs []CLIDocument) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINES\tSYMBOLS\tERRORS\tOBJECTS")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
			d.File, d.Lines, d.Symbols, d.Errors, strings.Join(d.Objects, ", "))
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLIHighlight:
		formatHighlightsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLICompletion:
		formatCompletionsText(w, v)
	case []CLIFoldingRange:
		formatFoldingText(w, v)
	case []CLIOutlineNode:
		formatOutlineText(w, v, 0)
	case []CLIFileEdits:
		formatEditsText(w, v)
	case []CLIScope:
		formatScopesText(w, v)
	case []CLIDocument:
		formatDocumentsText(w, v)
	case CLISymbolDetail:
		formatDetailText(w, v)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case CLIHover:
		fmt.Fprintln(w, v.Contents)
	case CLISignature:
		fmt.Fprintln(w, v.Label)
	case CLIRenameTarget:
		fmt.Fprintf(w, "%s:%d:%d\t%s\n", v.Range.File, v.Range.StartLine, v.Range.StartCol, v.Placeholder)
	case CLIExport:
		fmt.Fprintf(w, "%s: %d documents, %d symbols\n", v.Output, v.Documents, v.Symbols)
	case nil:
		// No output for nil results (e.g., hover with no match).
	default:
		// Script results have no fixed shape.
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("unsupported result type for text format: %T", v)
		}
		fmt.Fprintln(w, string(data))
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}

	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLIDocument:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
