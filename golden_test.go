package alnav

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Definitions     []goldenDef  `json:"definitions,omitempty"`
	References      []goldenRef  `json:"references,omitempty"`
	Implementations []goldenImpl `json:"implementations,omitempty"`
	Extensions      []goldenExt  `json:"extensions,omitempty"`
}

type goldenDef struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type goldenRef struct {
	From goldenLoc    `json:"from"`
	To   goldenTarget `json:"to"`
}

type goldenLoc struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

type goldenTarget struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type goldenImpl struct {
	Object    string `json:"object"`
	Interface string `json:"interface"`
}

type goldenExt struct {
	Object string `json:"object"`
	Base   string `json:"base"`
}

// TestGolden walks testdata/al/ and runs every case that has a src/
// directory and a golden.json.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "al")
	levels, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, level := range levels {
		if !level.IsDir() {
			continue
		}
		testDir := filepath.Join(root, level.Name())
		goldenPath := filepath.Join(testDir, "golden.json")
		srcDir := filepath.Join(testDir, "src")

		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		if _, err := os.Stat(srcDir); err != nil {
			continue
		}

		t.Run(level.Name(), func(t *testing.T) {
			runGoldenTest(t, srcDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	srcEntries, err := os.ReadDir(srcDir)
	require.NoError(t, err)
	var paths []string
	for _, e := range srcEntries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(srcDir, e.Name()))
		}
	}
	engine := New()
	_, err = engine.LoadFiles(context.Background(), paths)
	require.NoError(t, err)
	q := engine.Query()

	if len(golden.Definitions) > 0 {
		t.Run("definitions", func(t *testing.T) {
			verifyDefinitions(t, q, golden.Definitions)
		})
	}
	if len(golden.References) > 0 {
		t.Run("references", func(t *testing.T) {
			verifyReferences(t, q, srcDir, golden.References)
		})
	}
	if len(golden.Implementations) > 0 {
		t.Run("implementations", func(t *testing.T) {
			verifyImplementations(t, q, golden.Implementations)
		})
	}
	if len(golden.Extensions) > 0 {
		t.Run("extensions", func(t *testing.T) {
			verifyExtensions(t, q, golden.Extensions)
		})
	}
}

func verifyDefinitions(t *testing.T, q *QueryBuilder, expected []goldenDef) {
	t.Helper()

	type defKey struct {
		Name string
		Kind string
		File string
		Line int
	}
	actual := make(map[defKey]bool)
	all, err := q.Symbols(context.Background(), SymbolFilter{}, Sort{}, Pagination{Limit: maxLimit})
	require.NoError(t, err)
	for _, s := range all.Items {
		actual[defKey{s.Name, s.Kind.String(), filepath.Base(s.Location.File), s.Location.StartLine}] = true
	}

	for _, exp := range expected {
		key := defKey{exp.Name, exp.Kind, exp.File, exp.Line}
		assert.True(t, actual[key], "missing definition: %+v", exp)
	}
}

func verifyReferences(t *testing.T, q *QueryBuilder, srcDir string, expected []goldenRef) {
	t.Helper()

	for _, exp := range expected {
		fromFile := filepath.Join(srcDir, exp.From.File)
		locs := q.DefinitionAt(fromFile, exp.From.Line, exp.From.Col)

		found := false
		for _, loc := range locs {
			if filepath.Base(loc.File) != exp.To.File || loc.StartLine != exp.To.Line {
				continue
			}
			d := q.SymbolDetailAt(loc.File, loc.StartLine, loc.StartCol)
			if d != nil && d.Symbol.Name == exp.To.Name {
				found = true
				break
			}
		}
		assert.True(t, found, "reference from %s:%d:%d should resolve to %s in %s:%d (got %d locations)",
			exp.From.File, exp.From.Line, exp.From.Col, exp.To.Name, exp.To.File, exp.To.Line, len(locs))
	}
}

func verifyImplementations(t *testing.T, q *QueryBuilder, expected []goldenImpl) {
	t.Helper()

	for _, exp := range expected {
		h := q.ObjectHierarchy(KindInterface, exp.Interface)
		require.NotNil(t, h, "interface %s not declared", exp.Interface)
		assert.Contains(t, resultNames(h.ImplementedBy), exp.Object,
			"missing implementation: %s implements %s", exp.Object, exp.Interface)
	}
}

func verifyExtensions(t *testing.T, q *QueryBuilder, expected []goldenExt) {
	t.Helper()

	for _, exp := range expected {
		found := false
		for _, e := range q.Snapshot().AllObjects() {
			if e.Symbol.Name != exp.Base || e.Symbol.Kind.IsExtension() {
				continue
			}
			h := q.ObjectHierarchy(e.Symbol.Kind, exp.Base)
			if h != nil && slices.Contains(resultNames(h.ExtendedBy), exp.Object) {
				found = true
			}
		}
		assert.True(t, found, "missing extension: %s extends %s", exp.Object, exp.Base)
	}
}
