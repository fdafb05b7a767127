package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
	"github.com/jward/alnav/internal/parser"
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
)

func openAll(t *testing.T, s *Store, docs []altest.Doc) {
	t.Helper()
	ctx := context.Background()
	for _, d := range docs {
		_, err := s.Open(ctx, d.URI, 1, []byte(d.Text))
		require.NoError(t, err)
	}
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	openAll(t, s, altest.AddressDocs())

	before := s.Snapshot()
	require.Len(t, before.Implementors("IAddressProvider"), 2)

	doc, err := s.Change(ctx, altest.ProviderURI, 2, Edit{Text: "codeunit 50200 CompanyAddressProvider\n{\n}\n"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), doc.Version)

	after := s.Snapshot()
	assert.Len(t, after.Implementors("IAddressProvider"), 1)
	assert.Len(t, before.Implementors("IAddressProvider"), 2, "captured snapshot must not change")
	assert.Equal(t, before.Document(altest.ProviderURI).Seq, doc.Seq, "open order survives a change")

	s.Close(altest.InterfaceURI)
	closed := s.Snapshot()
	assert.Nil(t, closed.Document(altest.InterfaceURI))
	_, ok := closed.Object(symbols.KindInterface, "IAddressProvider")
	assert.False(t, ok)

	s.Close("file:///never-opened.al")
	assert.Same(t, closed, s.Snapshot())
}

func TestStore_ChangeRequiresOpenDocument(t *testing.T) {
	t.Parallel()
	_, err := New().Change(context.Background(), "file:///nope.al", 1, Edit{Text: "x"})
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestStore_IncrementalEdits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	_, err := s.Open(ctx, altest.ColorURI, 1, []byte(altest.Color))
	require.NoError(t, err)

	// Rename the Red value in place: row 2, "    value(0; Red) { }".
	edit := Edit{
		Range: &Range{Start: syntax.Point{Row: 2, Column: 13}, End: syntax.Point{Row: 2, Column: 16}},
		Text:  "Crimson",
	}
	doc, err := s.Change(ctx, altest.ColorURI, 2, edit)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Text), "value(0; Crimson)")

	var values []string
	for _, sym := range doc.Table.Symbols {
		if sym.Kind == symbols.KindEnumValue {
			values = append(values, sym.Name)
		}
	}
	assert.Equal(t, []string{"Crimson", "Light Blue"}, values)
}

func TestApply(t *testing.T) {
	t.Parallel()
	text := []byte("ab\r\ncd\nef")
	tests := []struct {
		name string
		edit Edit
		want string
	}{
		{"full", Edit{Text: "zz"}, "zz"},
		{"insert", Edit{Range: &Range{Start: syntax.Point{Row: 1, Column: 1}, End: syntax.Point{Row: 1, Column: 1}}, Text: "X"}, "ab\r\ncXd\nef"},
		{"across lines", Edit{Range: &Range{Start: syntax.Point{Row: 0, Column: 1}, End: syntax.Point{Row: 2, Column: 1}}, Text: "-"}, "a-f"},
		{"clamped", Edit{Range: &Range{Start: syntax.Point{Row: 2, Column: 99}, End: syntax.Point{Row: 9, Column: 0}}, Text: "!"}, "ab\r\ncd\nef!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Apply(text, tt.edit)))
		})
	}
}

func TestStore_OpenAllKeepsSourceOrder(t *testing.T) {
	t.Parallel()
	s := New(WithWorkers(3))
	var sources []Source
	for _, d := range altest.AllDocs() {
		sources = append(sources, Source{URI: d.URI, Version: 1, Text: []byte(d.Text)})
	}
	snap, err := s.OpenAll(context.Background(), sources)
	require.NoError(t, err)

	var got []string
	for _, d := range snap.Documents() {
		got = append(got, d.URI)
	}
	var want []string
	for _, d := range altest.AllDocs() {
		want = append(want, d.URI)
	}
	assert.Equal(t, want, got)
	assert.Same(t, snap, s.Snapshot())
}

func TestStore_OpenAllReportsFailuresAndPublishesTheRest(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	native := parser.New()
	provider := syntax.ProviderFunc(func(ctx context.Context, src []byte) (*syntax.Tree, error) {
		if strings.Contains(string(src), "enum") {
			return nil, boom
		}
		return native.Parse(ctx, src)
	})
	s := New(WithProvider(provider))
	snap, err := s.OpenAll(context.Background(), []Source{
		{URI: altest.ColorURI, Text: []byte(altest.Color)},
		{URI: altest.ShadowURI, Text: []byte(altest.Shadow)},
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, snap.Document(altest.ColorURI))
	assert.NotNil(t, snap.Document(altest.ShadowURI))
}

func TestStore_OpenCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	_, err := s.Open(ctx, altest.ColorURI, 1, []byte(altest.Color))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Snapshot().Len())
}

func lockCount(s *Store) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func TestStore_WriterLocksAreReleased(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	for i := range 100 {
		uri := fmt.Sprintf("file:///cu%d.al", i)
		_, err := s.Open(ctx, uri, 1, []byte(fmt.Sprintf("codeunit %d Cu%d\n{\n}\n", i, i)))
		require.NoError(t, err)
		_, err = s.Change(ctx, uri, 2, Edit{Text: fmt.Sprintf("codeunit %d Cu%d\n{\n}\n", i, i)})
		require.NoError(t, err)
		s.Close(uri)
	}
	assert.Zero(t, s.Snapshot().Len())
	assert.Zero(t, lockCount(s))

	openAll(t, s, altest.AddressDocs())
	_, err := s.OpenAll(ctx, []Source{{URI: altest.ColorURI, Version: 1, Text: []byte(altest.Color)}})
	require.NoError(t, err)
	assert.Zero(t, lockCount(s))
}

func TestStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	const docs = 8
	const edits = 20

	var wg sync.WaitGroup
	for d := range docs {
		uri := fmt.Sprintf("file:///cu%d.al", d)
		_, err := s.Open(ctx, uri, 0, []byte(fmt.Sprintf("codeunit %d Cu%d\n{\n}\n", d, d)))
		require.NoError(t, err)
		for e := 1; e <= edits; e++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				text := fmt.Sprintf("codeunit %d Cu%d\n{\n    procedure P%d()\n    begin\n    end;\n}\n", d, d, e)
				_, err := s.Change(ctx, uri, int32(e), Edit{Text: text})
				assert.NoError(t, err)
			}()
		}
	}

	// Readers run against whatever snapshot is current.
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				snap := s.Snapshot()
				for _, d := range snap.Documents() {
					assert.Len(t, d.Table.Objects, 1)
				}
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, docs, snap.Len())
	for d := range docs {
		doc := snap.Document(fmt.Sprintf("file:///cu%d.al", d))
		require.NotNil(t, doc)
		procs := 0
		for _, sym := range doc.Table.Symbols {
			if sym.Kind == symbols.KindProcedure {
				procs++
			}
		}
		assert.Equal(t, 1, procs, "each change replaces the document wholesale")
		_, ok := snap.Object(symbols.KindCodeunit, fmt.Sprintf("Cu%d", d))
		assert.True(t, ok)
	}
	assert.Zero(t, lockCount(s))
}
