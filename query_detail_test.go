package alnav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
)

func TestSymbolDetailAt_Procedure(t *testing.T) {
	q := newTestEngine(t).Query()
	line, col := lineCol(altest.Shadow, "Sum(1", 0, 0)
	d := q.SymbolDetailAt(altest.ShadowURI, line, col)
	require.NotNil(t, d)
	assert.Equal(t, "Sum", d.Symbol.Name)
	assert.Equal(t, KindProcedure, d.Symbol.Kind)
	assert.Equal(t, "Shadow", d.Symbol.Container)
	assert.Equal(t, "Sum(A: Integer; B: Integer): Integer", d.Signature)
	assert.Equal(t, []string{"A", "B"}, resultNames(d.Parameters))
	assert.Empty(t, d.Members)
}

func TestSymbolDetailAt_RecordVariable(t *testing.T) {
	q := newTestEngine(t).Query()
	line, col := lineCol(altest.Card, "Cust.Get", 0, 0)
	d := q.SymbolDetailAt(altest.CardURI, line, col)
	require.NotNil(t, d)
	assert.Equal(t, "Record Customer", d.Symbol.Detail)
	assert.Subset(t, resultNames(d.Members), []string{"No.", "Name", "Describe", "Loyalty"})

	assert.Nil(t, q.SymbolDetailAt(altest.CardURI, 0, 0))
}

func TestHoverAt(t *testing.T) {
	q := newTestEngine(t).Query()
	line, col := lineCol(altest.Card, "Cust.Describe", 0, 0)
	h := q.HoverAt(altest.CardURI, line, col)
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "Record Customer")
}

func TestCompletionAt(t *testing.T) {
	q := newTestEngine(t).Query()
	line, col := lineCol(altest.CustomerExt, "Rec.Loyalty", 0, len("Rec.Loy"))
	items := q.CompletionAt(altest.CustExtURI, line, col, "")
	require.Len(t, items, 1)
	assert.Equal(t, "Loyalty", items[0].Label)
}

func TestSignatureAt(t *testing.T) {
	q := newTestEngine(t).Query()
	line, col := lineCol(altest.Shadow, "Sum(1, 2)", 0, len("Sum(1, "))
	sig := q.SignatureAt(altest.ShadowURI, line, col)
	require.NotNil(t, sig)
	require.NotNil(t, sig.ActiveParameter)
	assert.Equal(t, 1, *sig.ActiveParameter)
}

func TestDiagnosticsAndFolding(t *testing.T) {
	q := newTestEngine(t).Query()
	assert.Empty(t, q.Diagnostics(altest.ShadowURI))
	assert.NotEmpty(t, q.FoldingRanges(altest.ShadowURI))
	assert.Empty(t, q.Diagnostics("file:///ws/NotOpen.al"))
}

func TestScopeAt(t *testing.T) {
	q := newTestEngine(t).Query()
	line, col := lineCol(altest.Shadow, "Counter := 2", 0, 0)
	chain := q.ScopeAt(altest.ShadowURI, line, col)
	require.GreaterOrEqual(t, len(chain), 3)

	assert.Equal(t, "procedure", chain[0].Kind)
	assert.Equal(t, "Inner", chain[0].Owner)
	assert.Subset(t, chain[0].Symbols, []string{"Amount", "Counter"})

	last := chain[len(chain)-1]
	assert.Equal(t, "document", last.Kind)

	assert.Nil(t, q.ScopeAt("file:///ws/NotOpen.al", 0, 0))
}
