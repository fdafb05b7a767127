package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/alnav/internal/runtime"
	"github.com/jward/alnav/internal/store"
	"github.com/jward/alnav/scripts"
)

var (
	flagEval    string
	flagReport  string
	flagNoStore bool
)

var scriptCmd = &cobra.Command{
	Use:   "script [file.risor]",
	Short: "Run a Risor script over the workspace",
	Long: `Run a Risor script with host functions bound to the loaded workspace:
documents, objects, members, symbols, implementors, extensions, definition,
references, hover, search, diagnostics, nodes and node_at. When the SQLite
index exists, stored_symbols, stored_objects, stored_implementors,
stored_search and db_query read it. The value of the last expression is the
command result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

var reportsHelp = "run a built-in report: " + strings.Join(scripts.Reports(), "|")

func init() {
	scriptCmd.Flags().StringVarP(&flagEval, "eval", "e", "", "evaluate this source instead of a file")
	scriptCmd.Flags().StringVar(&flagReport, "report", "", reportsHelp)
	scriptCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "do not expose the SQLite index")
	scriptCmd.Flags().StringVar(&flagRoot, "root", "", "workspace directory (default: repo root of the working directory)")
}

func runScript(cmd *cobra.Command, args []string) error {
	if flagEval == "" && flagReport == "" && len(args) == 0 {
		return outputError("script", fmt.Errorf("requires a script file, --eval or --report"))
	}

	root, err := workspaceRoot()
	if err != nil {
		return outputError("script", err)
	}
	ctx := cmd.Context()
	engine, _, err := loadWorkspace(ctx, root)
	if err != nil {
		return outputError("script", err)
	}

	var opts []runtime.RuntimeOption
	if !flagNoStore {
		dbPath := resolveDBPath(root)
		if _, statErr := os.Stat(dbPath); statErr == nil {
			s, err := store.NewStore(dbPath)
			if err != nil {
				return outputError("script", fmt.Errorf("opening database: %w", err))
			}
			defer s.Close()
			opts = append(opts, runtime.WithStore(s))
		} else {
			log.Debugf("no index at %s; stored functions disabled", dbPath)
		}
	}

	var result any
	switch {
	case flagEval != "":
		rt := runtime.NewRuntime(engine.Snapshot(), root, opts...)
		result, err = rt.EvalSource(ctx, flagEval, nil)
	case flagReport != "":
		if !slices.Contains(scripts.Reports(), flagReport) {
			return outputError("script", fmt.Errorf("unknown report %q (%s)", flagReport, strings.Join(scripts.Reports(), ", ")))
		}
		rt := runtime.NewRuntime(engine.Snapshot(), "", append(opts, runtime.WithRuntimeFS(scripts.FS))...)
		result, err = rt.EvalScript(ctx, scripts.Path(flagReport), nil)
	default:
		script, pathErr := resolveFilePath(args[0])
		if pathErr != nil {
			return outputError("script", pathErr)
		}
		rt := runtime.NewRuntime(engine.Snapshot(), filepath.Dir(script), opts...)
		result, err = rt.EvalScript(ctx, filepath.Base(script), nil)
	}
	if err != nil {
		return outputError("script", err)
	}
	return outputResult(CLIResult{Command: "script", Results: result})
}
