package alnav

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
)

// newTestEngine returns an Engine with every fixture document open.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(WithWorkers(2))
	var sources []Source
	for _, d := range altest.AllDocs() {
		sources = append(sources, Source{URI: d.URI, Version: 1, Text: []byte(d.Text)})
	}
	require.NoError(t, e.OpenAll(context.Background(), sources))
	return e
}

// lineCol returns the 0-based line and byte column delta bytes after the
// nth occurrence of needle in src.
func lineCol(src, needle string, nth, delta int) (int, int) {
	off := altest.Offset(src, needle, nth) + delta
	line := altest.Line(src, off)
	return line, off - (strings.LastIndex(src[:off], "\n") + 1)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_Empty(t *testing.T) {
	e := New()
	assert.Equal(t, 0, e.Snapshot().Len())
	assert.NotNil(t, e.Query())
	assert.True(t, e.skipDirs[".alpackages"])
}

func TestWithSkipDirs(t *testing.T) {
	e := New(WithSkipDirs("vendor", "out"))
	assert.True(t, e.skipDirs["vendor"])
	assert.True(t, e.skipDirs["out"])
	assert.True(t, e.skipDirs["node_modules"])
}

func TestOpenChangeClose(t *testing.T) {
	e := New()
	ctx := context.Background()
	uri := "file:///ws/A.Codeunit.al"
	src := "codeunit 1 A\n{\n    procedure Run()\n    begin\n    end;\n}\n"

	require.NoError(t, e.Open(ctx, uri, 1, []byte(src)))
	before := e.Snapshot()
	require.NotNil(t, before.Document(uri))
	_, ok := before.Object(KindCodeunit, "a")
	assert.True(t, ok)

	// Rename the object through an edit of its name token.
	name := strings.Index(src, "A\n")
	err := e.Change(ctx, uri, 2, Edit{
		Range: &Range{Start: point(0, name), End: point(0, name+1)},
		Text:  "B",
	})
	require.NoError(t, err)

	after := e.Snapshot()
	assert.Equal(t, int32(2), after.Document(uri).Version)
	_, ok = after.Object(KindCodeunit, "A")
	assert.False(t, ok, "reindex replaces the old declaration")
	_, ok = after.Object(KindCodeunit, "B")
	assert.True(t, ok)

	// The earlier snapshot is untouched.
	_, ok = before.Object(KindCodeunit, "A")
	assert.True(t, ok)

	e.Close(uri)
	assert.Nil(t, e.Snapshot().Document(uri))
	assert.Empty(t, e.Snapshot().AllObjects())
}

func TestChange_NotOpen(t *testing.T) {
	e := New()
	err := e.Change(context.Background(), "file:///ws/Missing.al", 1, Edit{Text: "x"})
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestOpen_Cancelled(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Open(ctx, "file:///ws/A.al", 1, []byte(altest.Shadow))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, e.Snapshot().Document("file:///ws/A.al"))
}

func TestOpenAll_SingleSnapshot(t *testing.T) {
	e := newTestEngine(t)
	snap := e.Snapshot()
	assert.Equal(t, len(altest.AllDocs()), snap.Len())
	assert.Len(t, snap.Implementors("IAddressProvider"), 2)
	assert.Len(t, snap.Extensions(KindTable, "Customer"), 1)
}

func TestLoadDirectory_WalksAndSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Shadow.Codeunit.al"), altest.Shadow)
	writeFile(t, filepath.Join(root, "src", "tables", "Customer.Table.al"), altest.Customer)
	writeFile(t, filepath.Join(root, "README.md"), "# not AL")
	writeFile(t, filepath.Join(root, ".alpackages", "Base.Table.al"), "table 18 Customer { }")
	writeFile(t, filepath.Join(root, ".hidden", "X.al"), "codeunit 9 X { }")

	e := New()
	paths, err := e.walkListFiles(root)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	n, err := e.LoadDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok := e.Snapshot().Object(KindCodeunit, "Shadow")
	assert.True(t, ok)
	assert.Len(t, e.Snapshot().Objects(KindTable, "Customer"), 1)
}

func TestLoadFiles_SkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	shadow := filepath.Join(root, "Shadow.Codeunit.al")
	color := filepath.Join(root, "Color.Enum.al")
	writeFile(t, shadow, altest.Shadow)
	writeFile(t, color, altest.Color)

	e := New()
	ctx := context.Background()
	n, err := e.LoadFiles(ctx, []string{shadow, color, shadow, filepath.Join(root, "notes.txt")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.LoadFiles(ctx, []string{shadow, color})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "unchanged files are not reopened")

	writeFile(t, color, strings.Replace(altest.Color, "Red", "Crimson", 1))
	n, err = e.LoadFiles(ctx, []string{shadow, color})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := e.Snapshot().Object(KindEnum, "Color")
	assert.True(t, ok)
}

func TestLoadFiles_ReportsUnreadable(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "Shadow.Codeunit.al")
	writeFile(t, good, altest.Shadow)

	e := New()
	n, err := e.LoadFiles(context.Background(), []string{good, filepath.Join(root, "Missing.al")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error(s)")
	assert.Equal(t, 1, n)
	assert.NotNil(t, e.Snapshot().Document(URIFromPath(good)))
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "My Table.Table.al")
	uri := URIFromPath(path)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.Contains(t, uri, "My%20Table")
	assert.Equal(t, path, PathFromURI(uri))
	assert.Equal(t, "untitled:1", PathFromURI("untitled:1"))
	assert.Equal(t, "file:///ws/A.al", documentURI("file:///ws/A.al"))
}

func TestIsALFile(t *testing.T) {
	assert.True(t, IsALFile("x/Customer.Table.al"))
	assert.True(t, IsALFile("X.AL"))
	assert.False(t, IsALFile("app.json"))
}
