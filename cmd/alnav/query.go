package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/alnav"
	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/store"
)

var (
	flagRoot   string
	flagLimit  int
	flagOffset int
	flagSort   string
	flagOrder  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the AL sources of a workspace",
	Long:  "Open every .al file of the workspace and run a navigation query. All line and column numbers are 0-based; columns count bytes.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "workspace directory (default: repo root of the working directory)")

	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(typeDefinitionCmd)
	queryCmd.AddCommand(implementationsCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(highlightsCmd)
	queryCmd.AddCommand(renameCmd)
	queryCmd.AddCommand(prepareRenameCmd)
	queryCmd.AddCommand(hoverCmd)
	queryCmd.AddCommand(detailCmd)
	queryCmd.AddCommand(completionCmd)
	queryCmd.AddCommand(signatureCmd)
	queryCmd.AddCommand(scopeCmd)
	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(foldingCmd)
	queryCmd.AddCommand(hierarchyCmd)
	queryCmd.AddCommand(documentsCmd)
}

// addPageFlags registers the pagination and sort flags on cmd.
func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	cmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&flagSort, "sort", "", "sort field: name|kind|file")
	cmd.Flags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")
}

// --- Helpers ---

// workspaceRoot returns the --root directory, or the repo root of the
// working directory.
func workspaceRoot() (string, error) {
	if flagRoot != "" {
		return resolveTargetDir([]string{flagRoot})
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return findRepoRoot(cwd), nil
}

// openQuery loads the workspace and makes sure every file in files is open,
// including files outside the workspace root.
func openQuery(ctx context.Context, files ...string) (*alnav.QueryBuilder, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	engine, _, err := loadWorkspace(ctx, root)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, f := range files {
		if engine.Snapshot().Document(alnav.URIFromPath(f)) == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		if _, err := engine.LoadFiles(ctx, missing); err != nil {
			return nil, fmt.Errorf("loading %v: %w", missing, err)
		}
	}
	return engine.Query(), nil
}

// openStore opens the export database from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'alnav index' first)", dbPath)
	}

	return store.NewStore(dbPath)
}

// resolveFilePath converts a file argument to an absolute path.
// If the path is already absolute, it's returned as-is.
// Otherwise, it's resolved relative to the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// positionArgs parses <file> <line> <col>.
func positionArgs(args []string) (string, int, int, error) {
	if len(args) < 3 {
		return "", 0, 0, fmt.Errorf("requires <file> <line> <col> arguments")
	}
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// positionQuery runs fn for the <file> <line> <col> arguments of a command
// and writes its result.
func positionQuery(cmd *cobra.Command, args []string, fn func(ctx context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error)) error {
	command := cmd.Name()
	file, line, col, err := positionArgs(args)
	if err != nil {
		return outputError(command, err)
	}
	q, err := openQuery(cmd.Context(), file)
	if err != nil {
		return outputError(command, err)
	}
	results, err := fn(cmd.Context(), q, file, line, col)
	if err != nil {
		return outputError(command, err)
	}
	return outputResult(CLIResult{Command: command, Results: results})
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() alnav.Pagination {
	return alnav.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

// buildSort creates a Sort from CLI flags.
func buildSort() alnav.Sort {
	var field alnav.SortField
	switch flagSort {
	case "kind":
		field = alnav.SortByKind
	case "file":
		field = alnav.SortByFile
	default:
		field = alnav.SortByName
	}

	var order alnav.SortOrder
	switch flagOrder {
	case "desc":
		order = alnav.Desc
	default:
		order = alnav.Asc
	}

	return alnav.Sort{Field: field, Order: order}
}

// --- Conversions ---

func locationToCLI(l alnav.Location) CLILocation {
	return CLILocation{
		File:      l.File,
		StartLine: l.StartLine,
		StartCol:  l.StartCol,
		EndLine:   l.EndLine,
		EndCol:    l.EndCol,
	}
}

func locationsToCLI(locs []alnav.Location) []CLILocation {
	out := make([]CLILocation, 0, len(locs))
	for _, l := range locs {
		out = append(out, locationToCLI(l))
	}
	return out
}

func navLocationToCLI(l nav.Location) CLILocation {
	return CLILocation{
		File:      alnav.PathFromURI(l.URI),
		StartLine: l.Start.Row,
		StartCol:  l.Start.Column,
		EndLine:   l.End.Row,
		EndCol:    l.End.Column,
	}
}

func symbolResultToCLI(s alnav.SymbolResult) CLISymbol {
	return CLISymbol{
		Name:      s.Name,
		Kind:      s.Kind.String(),
		Detail:    s.Detail,
		Container: s.Container,
		File:      s.Location.File,
		StartLine: s.Location.StartLine,
		StartCol:  s.Location.StartCol,
		EndLine:   s.Location.EndLine,
		EndCol:    s.Location.EndCol,
	}
}

func symbolResultsToCLI(in []alnav.SymbolResult) []CLISymbol {
	out := make([]CLISymbol, 0, len(in))
	for _, s := range in {
		out = append(out, symbolResultToCLI(s))
	}
	return out
}

// storedSymbolToCLI converts a symbol row of the export database.
func storedSymbolToCLI(sym *store.Symbol) CLISymbol {
	return CLISymbol{
		Name:      sym.Name,
		Kind:      sym.Kind,
		Detail:    sym.Detail,
		ObjectID:  sym.ObjectID,
		File:      alnav.PathFromURI(sym.URI),
		StartLine: sym.StartLine,
		StartCol:  sym.StartCol,
		EndLine:   sym.EndLine,
		EndCol:    sym.EndCol,
	}
}

// --- Navigation commands ---

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the declaration of the identifier at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			return locationsToCLI(q.DefinitionAt(file, line, col)), nil
		})
	},
}

var typeDefinitionCmd = &cobra.Command{
	Use:   "type-definition <file> <line> <col>",
	Short: "Find the object declaration named by the declared type at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			return locationsToCLI(q.TypeDefinitionAt(file, line, col)), nil
		})
	},
}

var implementationsCmd = &cobra.Command{
	Use:   "implementations <file> <line> <col>",
	Short: "Find the implementations of an interface or interface procedure",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			return locationsToCLI(q.Implementations(file, line, col)), nil
		})
	},
}

var flagNoDeclaration bool

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line> <col>",
	Short: "Find every reference to the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(ctx context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			locs, err := q.ReferencesTo(ctx, file, line, col, !flagNoDeclaration)
			if err != nil {
				return nil, err
			}
			return locationsToCLI(locs), nil
		})
	},
}

func init() {
	referencesCmd.Flags().BoolVar(&flagNoDeclaration, "no-declaration", false, "omit the declaration itself")
}

var highlightsCmd = &cobra.Command{
	Use:   "highlights <file> <line> <col>",
	Short: "List the occurrences of the symbol at a position within its document",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			hs := q.HighlightsAt(file, line, col)
			out := make([]CLIHighlight, 0, len(hs))
			for _, h := range hs {
				out = append(out, CLIHighlight{CLILocation: locationToCLI(h.Location), Write: h.Write})
			}
			return out, nil
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <file> <line> <col> <new-name>",
	Short: "Compute the edits renaming the symbol at a position",
	Long:  "Compute the edits renaming the symbol at a position. Nothing is written to disk.",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		newName := args[3]
		return positionQuery(cmd, args, func(ctx context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			files, err := q.RenameAt(ctx, file, line, col, newName)
			if err != nil {
				return nil, err
			}
			out := make([]CLIFileEdits, 0, len(files))
			for _, fe := range files {
				ce := CLIFileEdits{File: fe.File, Edits: make([]CLITextEdit, 0, len(fe.Edits))}
				for _, te := range fe.Edits {
					ce.Edits = append(ce.Edits, CLITextEdit{CLILocation: locationToCLI(te.Location), NewText: te.NewText})
				}
				out = append(out, ce)
			}
			return out, nil
		})
	},
}

var prepareRenameCmd = &cobra.Command{
	Use:   "prepare-rename <file> <line> <col>",
	Short: "Report the renamable name at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return positionQuery(cmd, args, func(_ context.Context, q *alnav.QueryBuilder, file string, line, col int) (any, error) {
			loc, name := q.PrepareRenameAt(file, line, col)
			if loc == nil {
				return nil, nil
			}
			return CLIRenameTarget{Range: locationToCLI(*loc), Placeholder: name}, nil
		})
	},
}
