package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/lsp"
)

var (
	flagLogFile string
	flagPreload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Language Server Protocol over stdio",
	Long:  "Serve the Language Server Protocol over stdin and stdout. Documents are the ones the client opens; --preload additionally opens every .al file of the workspace so cross-file navigation works before the client opens them.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	serveCmd.Flags().BoolVar(&flagPreload, "preload", false, "open every .al file under --root before serving")
	serveCmd.Flags().StringVar(&flagRoot, "root", "", "workspace directory for --preload (default: repo root of the working directory)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol; logs go to stderr or --log-file.
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		atexit.Register(func() { f.Close() })
		if err := logging.Setup(settings.Log.Level, f); err != nil {
			return err
		}
	}

	engine := newEngine()
	if flagPreload {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		n, err := engine.LoadDirectory(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("preloading %s: %w", root, err)
		}
		log.Infof("preloaded %d documents from %s", n, root)
	}

	srv := lsp.New(engine,
		lsp.WithName(settings.Serve.Name),
		lsp.WithVersion(version),
		lsp.WithContext(cmd.Context()))
	atexit.Register(srv.Close)
	atexit.Register(func() { log.Infof("%s stopped", settings.Serve.Name) })
	return srv.RunStdio()
}
