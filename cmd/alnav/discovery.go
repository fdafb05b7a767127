package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/alnav"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Print the declaration outline of an AL file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError("outline", err)
		}
		engine := newEngine()
		if _, err := engine.LoadFiles(cmd.Context(), []string{file}); err != nil {
			return outputError("outline", fmt.Errorf("loading %s: %w", file, err))
		}
		if engine.Snapshot().Document(alnav.URIFromPath(file)) == nil {
			return outputError("outline", fmt.Errorf("not an AL file: %s", file))
		}
		return outputResult(CLIResult{Command: "outline", Results: outlineToCLI(engine.Query().Outline(file))})
	},
}

func outlineToCLI(in []alnav.DocumentSymbol) []CLIOutlineNode {
	out := make([]CLIOutlineNode, 0, len(in))
	for _, ds := range in {
		node := CLIOutlineNode{
			Name:      ds.Name,
			Kind:      ds.Kind.String(),
			Detail:    ds.Detail,
			StartLine: ds.Range.Start.Row,
			EndLine:   ds.Range.End.Row,
		}
		if len(ds.Children) > 0 {
			node.Children = outlineToCLI(ds.Children)
		}
		out = append(out, node)
	}
	return out
}

var (
	flagKinds      string
	flagSymbolPath string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [query]",
	Short: "List the declarations of the workspace",
	Long:  "List object and member declarations of every .al file in the workspace. With a query, only names containing it (case-insensitive) are listed. Locals and parameters are not included.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := buildSymbolFilter()
		if err != nil {
			return outputError("symbols", err)
		}
		q, err := openQuery(cmd.Context())
		if err != nil {
			return outputError("symbols", err)
		}
		var page *alnav.PagedResult[alnav.SymbolResult]
		if len(args) == 1 {
			page, err = q.SearchSymbols(cmd.Context(), args[0], filter, buildSort(), buildPagination())
		} else {
			page, err = q.Symbols(cmd.Context(), filter, buildSort(), buildPagination())
		}
		if err != nil {
			return outputError("symbols", err)
		}
		total := page.TotalCount
		return outputResult(CLIResult{Command: "symbols", Results: symbolResultsToCLI(page.Items), TotalCount: &total})
	},
}

func init() {
	symbolsCmd.Flags().StringVar(&flagKinds, "kind", "", "comma-separated kind filter (e.g. codeunit,procedure)")
	symbolsCmd.Flags().StringVar(&flagSymbolPath, "path-prefix", "", "only declarations in files under this path")
	symbolsCmd.Flags().StringVar(&flagRoot, "root", "", "workspace directory (default: repo root of the working directory)")
	addPageFlags(symbolsCmd)
}

// parseKinds splits a comma-separated kind list.
func parseKinds(list string) ([]alnav.Kind, error) {
	var kinds []alnav.Kind
	for _, label := range strings.Split(list, ",") {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		k := alnav.ParseKind(label)
		if k == alnav.KindUnknown {
			return nil, fmt.Errorf("unknown kind %q", label)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func buildSymbolFilter() (alnav.SymbolFilter, error) {
	kinds, err := parseKinds(flagKinds)
	if err != nil {
		return alnav.SymbolFilter{}, err
	}
	filter := alnav.SymbolFilter{Kinds: kinds}
	if flagSymbolPath != "" {
		prefix, err := resolveFilePath(flagSymbolPath)
		if err != nil {
			return alnav.SymbolFilter{}, err
		}
		filter.PathPrefix = prefix
	}
	return filter, nil
}

var (
	flagSearchKinds string
	flagSearchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search the exported index by name",
	Long:  "Search symbol names in the SQLite index written by 'alnav index'. '*' matches any run of characters; matching ignores case.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds, err := parseKinds(flagSearchKinds)
		if err != nil {
			return outputError("search", err)
		}
		labels := make([]string, 0, len(kinds))
		for _, k := range kinds {
			labels = append(labels, k.String())
		}

		s, err := openStore()
		if err != nil {
			return outputError("search", err)
		}
		defer s.Close()

		syms, err := s.SearchSymbols(args[0], labels, flagSearchLimit)
		if err != nil {
			return outputError("search", err)
		}
		out := make([]CLISymbol, 0, len(syms))
		for _, sym := range syms {
			out = append(out, storedSymbolToCLI(sym))
		}
		total := len(out)
		return outputResult(CLIResult{Command: "search", Results: out, TotalCount: &total})
	},
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchKinds, "kind", "", "comma-separated kind filter (e.g. procedure)")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 50, "maximum results")
}
