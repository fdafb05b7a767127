package main_test

import (
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
	"github.com/jward/alnav/internal/scip"
)

// buildBinary compiles the alnav binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "alnav"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "alnav")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the alnav project by walking up from
// the test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// fixtureName returns the file name of a fixture URI.
func fixtureName(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

// createALFixture creates a temporary directory with a .git dir and every
// AL fixture document. Returns the temp directory path.
func createALFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Create .git directory so findRepoRoot works.
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	for _, doc := range altest.AllDocs() {
		path := filepath.Join(dir, fixtureName(doc.URI))
		require.NoError(t, os.WriteFile(path, []byte(doc.Text), 0o644))
	}
	return dir
}

// openDB opens the SQLite database at the given path for verification.
func openDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestIndex_WritesDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	cmd := exec.Command(bin, "index", dir)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))
	assert.Contains(t, string(out), "Indexed")
	assert.Contains(t, string(out), "9 loaded, 9 written")

	dbPath := filepath.Join(dir, ".alnav", "index.db")
	require.FileExists(t, dbPath)

	db := openDB(t, dbPath)
	assert.Equal(t, 9, countRows(t, db, "SELECT COUNT(*) FROM documents"))
	assert.Equal(t, 2, countRows(t, db,
		"SELECT COUNT(*) FROM implementations WHERE interface_key = ?", "iaddressprovider"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM index_runs"))
}

func TestIndex_SkipsUnchangedDocuments(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	first := exec.Command(bin, "index", dir)
	first.Dir = dir
	out, err := first.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))

	second := exec.Command(bin, "index", dir)
	second.Dir = dir
	out, err = second.CombinedOutput()
	require.NoError(t, err, "reindex failed: %s", string(out))
	assert.Contains(t, string(out), "0 written, 9 unchanged")

	require.NoError(t, os.Remove(filepath.Join(dir, fixtureName(altest.ShadowURI))))
	third := exec.Command(bin, "index", dir)
	third.Dir = dir
	out, err = third.CombinedOutput()
	require.NoError(t, err, "reindex failed: %s", string(out))
	assert.Contains(t, string(out), "1 removed")

	db := openDB(t, filepath.Join(dir, ".alnav", "index.db"))
	assert.Equal(t, 8, countRows(t, db, "SELECT COUNT(*) FROM documents"))
	assert.Equal(t, 3, countRows(t, db, "SELECT COUNT(*) FROM index_runs"))
}

func TestIndex_ForceClearsDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	for range 2 {
		cmd := exec.Command(bin, "index", "--force", dir)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "index failed: %s", string(out))
	}

	db := openDB(t, filepath.Join(dir, ".alnav", "index.db"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM index_runs"))
}

func TestIndex_CustomDBFromConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alnav.yaml"),
		[]byte("index:\n  db: build/al.db\n"), 0o644))

	cmd := exec.Command(bin, "index", dir)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))
	assert.FileExists(t, filepath.Join(dir, "build", "al.db"))
	assert.NoFileExists(t, filepath.Join(dir, ".alnav", "index.db"))
}

func TestIndex_NotADirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	cmd := exec.Command(bin, "index", filepath.Join(dir, fixtureName(altest.CustomerURI)))
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), "not a directory")
}

func TestExport_WritesSCIP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	for _, name := range []string{"index.scip", "index.scip" + scip.CompressedSuffix} {
		output := filepath.Join(dir, "out", name)
		cmd := exec.Command(bin, "export", dir, "-o", output)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "export failed: %s", string(out))

		idx, err := scip.ReadFile(output)
		require.NoError(t, err)
		assert.Len(t, idx.Documents, 9)
		paths := make([]string, 0, len(idx.Documents))
		for _, doc := range idx.Documents {
			paths = append(paths, doc.RelativePath)
		}
		assert.Contains(t, paths, fixtureName(altest.CustomerURI))
	}
}
