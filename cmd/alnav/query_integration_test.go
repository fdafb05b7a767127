package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
)

// indexFixture builds the binary and indexes the AL fixture, returning the
// binary path and fixture directory. The fixture is ready for query commands.
func indexFixture(t *testing.T) (bin, fixtureDir string) {
	t.Helper()
	bin = buildBinary(t)
	fixtureDir = createALFixture(t)

	cmd := exec.Command(bin, "index", fixtureDir)
	cmd.Dir = fixtureDir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))
	require.FileExists(t, filepath.Join(fixtureDir, ".alnav", "index.db"))

	return bin, fixtureDir
}

// run executes an alnav command and returns the parsed CLIResult.
func run(t *testing.T, bin, fixtureDir string, args ...string) map[string]any {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = fixtureDir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	stdout, err := cmd.Output()
	// Allow non-zero exit for error cases, but we always expect JSON on stdout.
	if err != nil && len(stdout) == 0 {
		t.Fatalf("command failed with no output: %v", err)
	}

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

// runQuery executes an alnav query subcommand.
func runQuery(t *testing.T, bin, fixtureDir string, args ...string) map[string]any {
	t.Helper()
	return run(t, bin, fixtureDir, append([]string{"query"}, args...)...)
}

// position returns the file, line and col arguments addressing the nth
// occurrence of needle in a fixture document.
func position(uri, src, needle string, nth int) []string {
	off := altest.Offset(src, needle, nth)
	col := off - (strings.LastIndex(src[:off], "\n") + 1)
	return []string{fixtureName(uri), strconv.Itoa(altest.Line(src, off)), strconv.Itoa(col)}
}

func results(t *testing.T, result map[string]any) []any {
	t.Helper()
	assert.Empty(t, result["error"])
	items, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array: %v", result["results"])
	return items
}

func TestQuery_Definition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	args := append([]string{"definition"}, position(altest.ProviderURI, altest.Provider, "GetAddress", 1)...)
	result := runQuery(t, bin, dir, args...)

	assert.Equal(t, "definition", result["command"])
	locs := results(t, result)
	require.Len(t, locs, 1)
	loc := locs[0].(map[string]any)
	assert.Equal(t, filepath.Join(dir, fixtureName(altest.InterfaceURI)), loc["file"])
	assert.EqualValues(t, 2, loc["start_line"])
}

func TestQuery_Definition_NoSymbol(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "definition", fixtureName(altest.ProviderURI), "99999", "0")
	assert.Equal(t, "definition", result["command"])
	assert.Empty(t, results(t, result))
}

func TestQuery_Implementations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	args := append([]string{"implementations"}, position(altest.InterfaceURI, altest.Interface, "GetAddress", 0)...)
	locs := results(t, runQuery(t, bin, dir, args...))
	require.Len(t, locs, 2)

	files := []any{locs[0].(map[string]any)["file"], locs[1].(map[string]any)["file"]}
	assert.ElementsMatch(t, []any{
		filepath.Join(dir, fixtureName(altest.ProviderURI)),
		filepath.Join(dir, fixtureName(altest.Provider2URI)),
	}, files)
}

func TestQuery_References(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	pos := position(altest.ProviderURI, altest.Provider, "GetAddress", 0)
	all := results(t, runQuery(t, bin, dir, append([]string{"references"}, pos...)...))
	assert.Len(t, all, 6)

	usages := results(t, runQuery(t, bin, dir, append([]string{"references", "--no-declaration"}, pos...)...))
	assert.Len(t, usages, 3)
}

func TestQuery_Rename(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	pos := position(altest.InterfaceURI, altest.Interface, "GetAddress", 0)
	files := results(t, runQuery(t, bin, dir, append(append([]string{"rename"}, pos...), "Get Address")...))
	require.Len(t, files, 3)
	total := 0
	for _, f := range files {
		for _, e := range f.(map[string]any)["edits"].([]any) {
			assert.Equal(t, `"Get Address"`, e.(map[string]any)["new_text"])
			total++
		}
	}
	assert.Equal(t, 6, total)

	// Nothing on disk changes.
	data, err := os.ReadFile(filepath.Join(dir, fixtureName(altest.InterfaceURI)))
	require.NoError(t, err)
	assert.Equal(t, altest.Interface, string(data))
}

func TestQuery_Rename_Collision(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	pos := position(altest.InterfaceURI, altest.Interface, "GetAddress", 0)
	result := runQuery(t, bin, dir, append(append([]string{"rename"}, pos...), "SetAddress")...)
	assert.Equal(t, "rename", result["command"])
	assert.Contains(t, result["error"], "collision")
}

func TestQuery_Hover(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	args := append([]string{"hover"}, position(altest.CustExtURI, altest.CustomerExt, "Describe", 0)...)
	result := runQuery(t, bin, dir, args...)
	hover, ok := result["results"].(map[string]any)
	require.True(t, ok, "results should be a hover object")
	assert.Contains(t, hover["contents"], "Describe(Prefix: Text): Text")
}

func TestQuery_Hierarchy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "hierarchy", "--object", "interface:IAddressProvider")
	h, ok := result["results"].(map[string]any)
	require.True(t, ok, "results should be a hierarchy object")
	assert.Len(t, h["implemented_by"], 2)

	result = runQuery(t, bin, dir, "hierarchy", "--object", "table:Customer")
	h = result["results"].(map[string]any)
	require.Len(t, h["extended_by"], 1)
	assert.Equal(t, "CustomerExt", h["extended_by"].([]any)[0].(map[string]any)["name"])
}

func TestQuery_Documents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	result := runQuery(t, bin, dir, "documents", "--limit", "5")
	assert.EqualValues(t, 9, result["total_count"])
	assert.Len(t, results(t, result), 5)
}

func TestOutline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	nodes := results(t, run(t, bin, dir, "outline", fixtureName(altest.CustomerURI)))
	require.Len(t, nodes, 1)
	table := nodes[0].(map[string]any)
	assert.Equal(t, "Customer", table["name"])
	assert.Equal(t, "table", table["kind"])
	assert.NotEmpty(t, table["children"])
}

func TestSymbols_KindFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	result := run(t, bin, dir, "symbols", "--kind", "codeunit")
	assert.Equal(t, "symbols", result["command"])
	assert.EqualValues(t, 4, result["total_count"])
	for _, r := range results(t, result) {
		assert.Equal(t, "codeunit", r.(map[string]any)["kind"])
	}

	result = run(t, bin, dir, "symbols", "setaddr")
	assert.EqualValues(t, 3, result["total_count"])
}

func TestSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	result := run(t, bin, dir, "search", "*Address", "--kind", "procedure", "--limit", "2")
	assert.Equal(t, "search", result["command"])
	syms := results(t, result)
	assert.Len(t, syms, 2)
	for _, r := range syms {
		assert.True(t, strings.HasSuffix(strings.ToLower(r.(map[string]any)["name"].(string)), "address"))
	}
}

func TestSearch_NoDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	result := run(t, bin, dir, "search", "*")
	assert.Contains(t, result["error"], "database not found")
}

func TestScript_Eval(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	result := run(t, bin, dir, "script", "-e", `len(objects("codeunit"))`)
	assert.EqualValues(t, 4, result["results"])

	result = run(t, bin, dir, "script", "-e", `db_query("SELECT COUNT(*) AS n FROM documents")[0]["n"]`)
	assert.EqualValues(t, 9, result["results"])
}

func TestScript_File(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	script := filepath.Join(t.TempDir(), "count.risor")
	require.NoError(t, os.WriteFile(script, []byte(`len(documents())`), 0o644))

	result := run(t, bin, dir, "script", script)
	assert.EqualValues(t, 9, result["results"])
}

func TestQuery_InvalidFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	cmd := exec.Command(bin, "--format", "yaml", "symbols")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), `invalid format "yaml"`)
}

func TestQuery_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir := indexFixture(t)

	args := append([]string{"--format", "text", "query", "definition"}, position(altest.ProviderURI, altest.Provider, "GetAddress", 1)...)
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, fixtureName(altest.InterfaceURI))+":2:14\n", string(out))
}

func TestScript_Report(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createALFixture(t)

	rows := results(t, run(t, bin, dir, "script", "--report", "implementors"))
	require.Len(t, rows, 1)
	assert.Equal(t, "IAddressProvider", rows[0].(map[string]any)["interface"])

	result := run(t, bin, dir, "script", "--report", "nope")
	assert.Contains(t, result["error"], `unknown report "nope"`)
}
