package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/jward/alnav"
	"github.com/jward/alnav/internal/config"
	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/store"
)

var log = logging.Logger("cli")

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagDB       string
	flagFormat   string
	flagLogLevel string
	flagWorkers  int
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// settings holds the loaded configuration with flag overrides applied.
var settings = config.DefaultConfig()

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

var rootCmd = &cobra.Command{
	Use:           "alnav",
	Short:         "Scope-aware navigation for AL (Business Central) sources",
	Long:          "alnav parses AL sources into a live semantic model and answers definition, reference, rename, hover and completion queries. It can also export the model to SQLite or SCIP and serve it over the Language Server Protocol.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadSettings(cmd)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: "+config.DefaultDB+" relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warning|error|critical")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parse workers (default: one per CPU)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadSettings reads alnav.yaml from the working directory or the repo root,
// applies flag overrides and installs the log backend on stderr.
func loadSettings(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	cfg, err := config.Load(cwd, findRepoRoot(cwd))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if cmd.Flags().Changed("workers") {
		cfg.Index.Workers = flagWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings = cfg
	if err := logging.Setup(cfg.Log.Level, os.Stderr); err != nil {
		return err
	}
	if cfg.File != "" {
		log.Debugf("config: %s", cfg.File)
	}
	return nil
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Export the AL sources of a directory to the SQLite index",
	Long:  "Opens every .al file under the directory, resolves the workspace and writes documents, symbols, implementations and references to the SQLite database. Unchanged documents are skipped unless --force is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	ctx := cmd.Context()

	loadStart := time.Now()
	engine, n, err := loadWorkspace(ctx, targetDir)
	if err != nil {
		return err
	}
	loadDuration := time.Since(loadStart)

	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	exportStart := time.Now()
	run, err := s.Export(ctx, engine.Snapshot(), store.ExportOptions{
		Workers: settings.Index.Workers,
		Force:   flagForce,
	})
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	exportDuration := time.Since(exportStart)

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (load: %s, export: %s)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		loadDuration.Round(time.Millisecond),
		exportDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(os.Stderr, "Documents: %d loaded, %d written, %d unchanged, %d removed (%d symbols)\n",
		n, run.Documents, run.Unchanged, run.Removed, run.Symbols)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// newEngine creates an engine configured from settings.
func newEngine() *alnav.Engine {
	return alnav.New(
		alnav.WithWorkers(settings.Index.Workers),
		alnav.WithSkipDirs(settings.Index.SkipDirs...),
	)
}

// loadWorkspace opens every .al file under dir in a fresh engine.
func loadWorkspace(ctx context.Context, dir string) (*alnav.Engine, int, error) {
	engine := newEngine()
	n, err := engine.LoadDirectory(ctx, dir)
	if err != nil {
		return nil, 0, fmt.Errorf("loading %s: %w", dir, err)
	}
	log.Infof("loaded %d documents from %s", n, dir)
	return engine, n, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the config
// file, or the default, relative to repoRoot unless absolute.
func resolveDBPath(repoRoot string) string {
	db := flagDB
	if db == "" {
		db = settings.Index.DB
	}
	if db == "" {
		db = config.DefaultDB
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(repoRoot, db)
}
