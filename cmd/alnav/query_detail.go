package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/alnav"
)

var hoverCmd = &cobra.Command{
	Use:   "hover <file> <line> <col>",
	Short: "Describe the identifier at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			h := q.HoverAt(file, line, col)
			if h == nil {
				return nil, nil
			}
			rng := navLocationToCLI(h.Range)
			return CLIHover{Contents: h.Contents, Range: &rng}, nil
		})
	},
}

var detailCmd = &cobra.Command{
	Use:   "detail <file> <line> <col>",
	Short: "Show the symbol at a position with its parameters and members",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			d := q.SymbolDetailAt(file, line, col)
			if d == nil {
				return nil, nil
			}
			return CLISymbolDetail{
				Symbol:     symbolResultToCLI(d.Symbol),
				Signature:  d.Signature,
				Parameters: symbolResultsToCLI(d.Parameters),
				Members:    symbolResultsToCLI(d.Members),
			}, nil
		})
	},
}

var flagTrigger string

var completionCmd = &cobra.Command{
	Use:   "completion <file> <line> <col>",
	Short: "List completion candidates at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			items := q.CompletionAt(file, line, col, flagTrigger)
			out := make([]CLICompletion, 0, len(items))
			for _, it := range items {
				kind := it.Kind.String()
				if it.Keyword {
					kind = "keyword"
				}
				c := CLICompletion{Label: it.Label, Kind: kind, Detail: it.Detail}
				if it.InsertText != it.Label {
					c.InsertText = it.InsertText
				}
				out = append(out, c)
			}
			return out, nil
		})
	},
}

func init() {
	completionCmd.Flags().StringVar(&flagTrigger, "trigger", "", "character that triggered completion, e.g. '.'")
}

var signatureCmd = &cobra.Command{
	Use:   "signature <file> <line> <col>",
	Short: "Describe the call enclosing a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			h := q.SignatureAt(file, line, col)
			if h == nil {
				return nil, nil
			}
			params := h.Parameters
			if params == nil {
				params = []string{}
			}
			return CLISignature{Label: h.Label, Parameters: params, ActiveParameter: h.ActiveParameter}, nil
		})
	},
}

var scopeCmd = &cobra.Command{
	Use:   "scope <file> <line> <col>",
	Short: "Show the scope chain at a position, innermost first",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			scopes := q.ScopeAt(file, line, col)
			out := make([]CLIScope, 0, len(scopes))
			for _, sc := range scopes {
				syms := sc.Symbols
				if syms == nil {
					syms = []string{}
				}
				out = append(out, CLIScope{
					Kind:     sc.Kind,
					Owner:    sc.Owner,
					Location: locationToCLI(sc.Location),
					Symbols:  syms,
				})
			}
			return out, nil
		})
	},
}

// fileQuery runs fn for the <file> argument of a command and writes its
// result.
func fileQuery(cmd *cobra.Command, args []string, fn func(q *alnav.QueryBuilder, file string) any) error {
	command := cmd.Name()
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError(command, err)
	}
	q, err := openQuery(cmd.Context(), file)
	if err != nil {
		return outputError(command, err)
	}
	return outputResult(CLIResult{Command: command, Results: fn(q, file)})
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <file>",
	Short: "List the syntax errors of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fileQuery(cmd, args, func(q *alnav.QueryBuilder, file string) any {
			diags := q.Diagnostics(file)
			out := make([]CLIDiagnostic, 0, len(diags))
			for _, d := range diags {
				out = append(out, CLIDiagnostic{CLILocation: locationToCLI(d.Location), Message: d.Message})
			}
			return out
		})
	},
}

var foldingCmd = &cobra.Command{
	Use:   "folding <file>",
	Short: "List the foldable regions of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fileQuery(cmd, args, func(q *alnav.QueryBuilder, file string) any {
			ranges := q.FoldingRanges(file)
			out := make([]CLIFoldingRange, 0, len(ranges))
			for _, f := range ranges {
				out = append(out, CLIFoldingRange{StartLine: f.StartLine, EndLine: f.EndLine, Kind: f.Kind})
			}
			return out
		})
	},
}

var flagObject string

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy [<file> <line> <col>]",
	Short: "Show the interfaces and extensions around an object",
	Long:  "Show the interfaces an object implements, the codeunits implementing it, its base object and its extensions. The object is the one at the position, or the one named by --object kind:name.",
	Args:  cobra.RangeArgs(0, 3),
	RunE:  runHierarchy,
}

func init() {
	hierarchyCmd.Flags().StringVar(&flagObject, "object", "", "object as kind:name, e.g. interface:IAddressProvider")
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	if flagObject == "" {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			return hierarchyToCLI(q.HierarchyAt(file, line, col)), nil
		})
	}

	kind, name, err := parseObjectRef(flagObject)
	if err != nil {
		return outputError("hierarchy", err)
	}
	q, err := openQuery(cmd.Context())
	if err != nil {
		return outputError("hierarchy", err)
	}
	return outputResult(CLIResult{Command: "hierarchy", Results: hierarchyToCLI(q.ObjectHierarchy(kind, name))})
}

// parseObjectRef splits "kind:name" into an object kind and name.
func parseObjectRef(ref string) (alnav.Kind, string, error) {
	label, name, ok := strings.Cut(ref, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return alnav.KindUnknown, "", fmt.Errorf("invalid object %q: want kind:name", ref)
	}
	kind := alnav.ParseKind(strings.TrimSpace(label))
	if !kind.IsObject() {
		return alnav.KindUnknown, "", fmt.Errorf("invalid object kind %q", label)
	}
	return kind, strings.TrimSpace(name), nil
}

// hierarchyToCLI converts h; a nil hierarchy stays a nil result.
func hierarchyToCLI(h *alnav.ObjectHierarchy) any {
	if h == nil {
		return nil
	}
	out := CLIHierarchy{
		Object:        symbolResultToCLI(h.Object),
		Implements:    symbolResultsToCLI(h.Implements),
		Unresolved:    h.Unresolved,
		ImplementedBy: symbolResultsToCLI(h.ImplementedBy),
		ExtendedBy:    symbolResultsToCLI(h.ExtendedBy),
	}
	if h.Extends != nil {
		base := symbolResultToCLI(*h.Extends)
		out.Extends = &base
	}
	return out
}

var flagPathPrefix string

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List the open documents of the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQuery(cmd.Context())
		if err != nil {
			return outputError("documents", err)
		}
		page := q.Documents(flagPathPrefix, buildPagination())
		out := make([]CLIDocument, 0, len(page.Items))
		for _, d := range page.Items {
			out = append(out, CLIDocument{
				File:    d.File,
				Version: d.Version,
				Lines:   d.Lines,
				Objects: d.Objects,
				Symbols: d.Symbols,
				Errors:  d.Errors,
				Skipped: d.Skipped,
			})
		}
		total := page.TotalCount
		return outputResult(CLIResult{Command: "documents", Results: out, TotalCount: &total})
	},
}

func init() {
	documentsCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "only documents under this path")
	documentsCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	documentsCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
}
