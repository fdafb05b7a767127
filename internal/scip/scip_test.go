package scip

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/jward/alnav/internal/altest"
	"github.com/jward/alnav/internal/parser"
	"github.com/jward/alnav/internal/workspace"
)

func snapshotOf(t *testing.T, docs []altest.Doc) *workspace.Snapshot {
	t.Helper()
	snap := workspace.Empty()
	for i, d := range docs {
		tree, err := parser.New().Parse(context.Background(), []byte(d.Text))
		require.NoError(t, err)
		snap = snap.With(workspace.NewDocument(d.URI, 1, uint64(i+1), []byte(d.Text), tree))
	}
	return snap
}

func buildIndex(t *testing.T) *scippb.Index {
	t.Helper()
	idx, err := Build(context.Background(), snapshotOf(t, altest.AllDocs()), Options{ProjectRoot: "/ws", Version: "test"})
	require.NoError(t, err)
	return idx
}

func docByPath(t *testing.T, idx *scippb.Index, rel string) *scippb.Document {
	t.Helper()
	for _, d := range idx.Documents {
		if d.RelativePath == rel {
			return d
		}
	}
	require.Failf(t, "document not found", "%s", rel)
	return nil
}

func info(doc *scippb.Document, symbol string) *scippb.SymbolInformation {
	for _, s := range doc.Symbols {
		if s.Symbol == symbol {
			return s
		}
	}
	return nil
}

const (
	ifaceSym    = "alnav . . . interface/IAddressProvider#"
	getAddrSym  = "alnav . . . interface/IAddressProvider#GetAddress()."
	providerSym = "alnav . . . codeunit/CompanyAddressProvider#"
)

func TestBuild_Metadata(t *testing.T) {
	idx := buildIndex(t)
	require.NotNil(t, idx.Metadata)
	assert.Equal(t, "alnav", idx.Metadata.ToolInfo.Name)
	assert.Equal(t, "test", idx.Metadata.ToolInfo.Version)
	assert.Equal(t, "file:///ws", idx.Metadata.ProjectRoot)
	assert.Len(t, idx.Documents, len(altest.AllDocs()))

	doc := docByPath(t, idx, "CompanyAddressProvider.Codeunit.al")
	assert.Equal(t, "al", doc.Language)
}

func TestBuild_ObjectSymbols(t *testing.T) {
	idx := buildIndex(t)

	iface := info(docByPath(t, idx, "IAddressProvider.Interface.al"), ifaceSym)
	require.NotNil(t, iface)
	assert.Equal(t, scippb.SymbolInformation_Interface, iface.Kind)

	provider := info(docByPath(t, idx, "CompanyAddressProvider.Codeunit.al"), providerSym)
	require.NotNil(t, provider)
	assert.Equal(t, scippb.SymbolInformation_Class, provider.Kind)
	require.Len(t, provider.Relationships, 1)
	assert.Equal(t, ifaceSym, provider.Relationships[0].Symbol)
	assert.True(t, provider.Relationships[0].IsImplementation)

	card := info(docByPath(t, idx, "CustomerCard.Page.al"), "alnav . . . page/`Customer Card`#")
	require.NotNil(t, card)
	assert.Equal(t, "Customer Card", card.DisplayName)
}

func TestBuild_MethodImplementsInterface(t *testing.T) {
	idx := buildIndex(t)
	doc := docByPath(t, idx, "CompanyAddressProvider.Codeunit.al")

	get := info(doc, providerSym+"GetAddress().")
	require.NotNil(t, get)
	assert.Equal(t, providerSym, get.EnclosingSymbol)
	assert.Equal(t, scippb.SymbolInformation_Method, get.Kind)
	require.Len(t, get.Relationships, 1)
	assert.Equal(t, getAddrSym, get.Relationships[0].Symbol)
	assert.True(t, get.Relationships[0].IsImplementation)
	require.NotEmpty(t, get.Documentation)
	assert.Contains(t, get.Documentation[0], "GetAddress(): Text")
}

func TestBuild_Occurrences(t *testing.T) {
	idx := buildIndex(t)
	doc := docByPath(t, idx, "CompanyAddressProvider.Codeunit.al")

	var ifaceCalls, defs int
	for _, occ := range doc.Occurrences {
		if occ.Symbol == getAddrSym {
			ifaceCalls++
			assert.Equal(t, int32(scippb.SymbolRole_ReadAccess), occ.SymbolRoles)
		}
		if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
			defs++
		}
		assert.Contains(t, []int{3, 4}, len(occ.Range))
	}
	assert.Equal(t, 1, ifaceCalls, "AddressProvider.GetAddress() resolves to the interface method")
	assert.Positive(t, defs)
}

func TestBuild_LocalsAndWrites(t *testing.T) {
	idx := buildIndex(t)
	doc := docByPath(t, idx, "Unrelated.Codeunit.al")

	var local *scippb.SymbolInformation
	for _, s := range doc.Symbols {
		if s.DisplayName == "GetAddress" {
			local = s
		}
	}
	require.NotNil(t, local)
	assert.True(t, strings.HasPrefix(local.Symbol, "local "))
	assert.Empty(t, local.EnclosingSymbol)

	var writes int
	for _, occ := range doc.Occurrences {
		if occ.Symbol == local.Symbol && occ.SymbolRoles == int32(scippb.SymbolRole_WriteAccess) {
			writes++
		}
	}
	assert.Equal(t, 1, writes)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, snapshotOf(t, altest.AddressDocs()), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteDecode(t *testing.T) {
	idx := buildIndex(t)
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, idx, compress))
		assert.Equal(t, compress, bytes.HasPrefix(buf.Bytes(), zstdMagic))

		got, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.True(t, proto.Equal(idx, got))
	}
}

func TestWriteFile_SuffixCompresses(t *testing.T) {
	idx := buildIndex(t)
	path := filepath.Join(t.TempDir(), "index.scip"+CompressedSuffix)
	require.NoError(t, WriteFile(path, idx, false))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Documents, len(idx.Documents))
}

func TestEscaping(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Customer", "Customer"},
		{"Customer Card", "`Customer Card`"},
		{"Sales-Post", "Sales-Post"},
		{"a`b", "`a``b`"},
		{"No.", "`No.`"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeName(tt.in), tt.in)
	}
	assert.Equal(t, "my  pkg", escapePackage("my pkg"))
}

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "src/A.al", relativePath("/ws", "file:///ws/src/A.al"))
	assert.Equal(t, "other/A.al", relativePath("/ws", "file:///other/A.al"))
	assert.Equal(t, "ws/A.al", relativePath("", "file:///ws/A.al"))
}
