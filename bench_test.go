package alnav

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jward/alnav/internal/altest"
)

// benchSources builds n codeunits implementing IAddressProvider plus the
// fixture documents, so workspace-wide scans have real work to do.
func benchSources(n int) []Source {
	var out []Source
	for _, d := range altest.AllDocs() {
		out = append(out, Source{URI: d.URI, Version: 1, Text: []byte(d.Text)})
	}
	for i := range n {
		text := strings.NewReplacer(
			"50201", fmt.Sprint(60000+i),
			"CompanyAddressProvider2", fmt.Sprintf("BenchProvider%d", i),
		).Replace(altest.Provider2)
		out = append(out, Source{URI: fmt.Sprintf("file:///bench/Provider%d.Codeunit.al", i), Version: 1, Text: []byte(text)})
	}
	return out
}

func BenchmarkOpenAll(b *testing.B) {
	ctx := context.Background()
	sources := benchSources(200)

	b.ResetTimer()
	for b.Loop() {
		e := New()
		if err := e.OpenAll(ctx, sources); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChange(b *testing.B) {
	ctx := context.Background()
	e := New()
	if err := e.OpenAll(ctx, benchSources(200)); err != nil {
		b.Fatal(err)
	}
	line, col := lineCol(altest.Shadow, "Counter := 1", 0, len("Counter := "))

	b.ResetTimer()
	var version int32 = 1
	for b.Loop() {
		version++
		err := e.Change(ctx, altest.ShadowURI, version, Edit{
			Range: &Range{Start: point(line, col), End: point(line, col+1)},
			Text:  "1",
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReferencesTo(b *testing.B) {
	ctx := context.Background()
	e := New()
	if err := e.OpenAll(ctx, benchSources(200)); err != nil {
		b.Fatal(err)
	}
	q := e.Query()
	line, col := lineCol(altest.Interface, "GetAddress", 0, 0)

	b.ResetTimer()
	for b.Loop() {
		if _, err := q.ReferencesTo(ctx, altest.InterfaceURI, line, col, true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDefinitionAt(b *testing.B) {
	e := New()
	if err := e.OpenAll(context.Background(), benchSources(50)); err != nil {
		b.Fatal(err)
	}
	q := e.Query()
	line, col := lineCol(altest.CustomerExt, "Rec.Describe", 0, len("Rec."))

	b.ResetTimer()
	for b.Loop() {
		if locs := q.DefinitionAt(altest.CustExtURI, line, col); len(locs) == 0 {
			b.Fatal("no definition")
		}
	}
}
