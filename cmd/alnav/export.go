package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/alnav/internal/scip"
)

var (
	flagOutput   string
	flagPackage  string
	flagCompress bool
)

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write a SCIP index of the AL sources of a directory",
	Long:  "Opens every .al file under the directory and writes a SCIP index for code-intelligence tools. Output ending in " + scip.CompressedSuffix + " is zstd-compressed.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default: .alnav/index.scip relative to repo root)")
	exportCmd.Flags().StringVar(&flagPackage, "package", "", "package name used in symbol strings")
	exportCmd.Flags().BoolVar(&flagCompress, "compress", false, "zstd-compress the output")
}

func runExport(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("export", err)
	}
	compress := settings.Export.Compress
	if cmd.Flags().Changed("compress") {
		compress = flagCompress
	}

	output := flagOutput
	if output == "" {
		output = filepath.Join(findRepoRoot(targetDir), ".alnav", "index.scip")
		if compress {
			output += scip.CompressedSuffix
		}
	}
	output, err = resolveFilePath(output)
	if err != nil {
		return outputError("export", err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return outputError("export", fmt.Errorf("creating %s: %w", filepath.Dir(output), err))
	}

	ctx := cmd.Context()
	engine, _, err := loadWorkspace(ctx, targetDir)
	if err != nil {
		return outputError("export", err)
	}
	idx, err := scip.Build(ctx, engine.Snapshot(), scip.Options{
		ProjectRoot: targetDir,
		Package:     flagPackage,
		Version:     version,
	})
	if err != nil {
		return outputError("export", err)
	}
	if err := scip.WriteFile(output, idx, compress); err != nil {
		return outputError("export", err)
	}

	summary := CLIExport{Output: output, Documents: len(idx.Documents), Compressed: compress || filepath.Ext(output) == scip.CompressedSuffix}
	for _, doc := range idx.Documents {
		summary.Symbols += len(doc.Symbols)
	}
	fmt.Fprintf(os.Stderr, "Exported %s in %s\n", targetDir, time.Since(start).Round(time.Millisecond))
	return outputResult(CLIResult{Command: "export", Results: summary})
}
