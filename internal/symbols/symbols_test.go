package symbols

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/alnav/internal/altest"
	"github.com/jward/alnav/internal/parser"
)

func extract(t *testing.T, uri, src string) *Table {
	t.Helper()
	tree, err := parser.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return Extract(uri, tree)
}

func names(syms []*Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func findSymbol(t *testing.T, tab *Table, kind Kind, name string) *Symbol {
	t.Helper()
	for i := range tab.Symbols {
		if tab.Symbols[i].Kind == kind && tab.Symbols[i].Name == name {
			return &tab.Symbols[i]
		}
	}
	t.Fatalf("no %s named %q", kind, name)
	return nil
}

// fieldSource serves every field of one table for with scopes and implicit
// members.
type fieldSource struct{ table *Table }

func (f fieldSource) fields() []Resolved {
	var out []Resolved
	for i := range f.table.Symbols {
		if f.table.Symbols[i].Kind == KindField {
			out = append(out, Resolved{Table: f.table, Symbol: &f.table.Symbols[i]})
		}
	}
	return out
}

func (f fieldSource) WithMembers(*Table, *Scope) []Resolved      { return f.fields() }
func (f fieldSource) ImplicitMembers(*Table, *Symbol) []Resolved { return nil }

// =============================================================================
// Declarations
// =============================================================================

func TestExtract_ObjectMembersInDeclarationOrder(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.ShadowURI, altest.Shadow)

	objs := tab.ObjectSymbols()
	require.Len(t, objs, 1)
	assert.Equal(t, KindCodeunit, objs[0].Kind)
	assert.Equal(t, 50400, objs[0].ObjectID)
	assert.Equal(t, []string{"Counter", "Total", "Outer", "Inner", "Sum", "CallSum"}, names(tab.Members(objs[0])))

	sum := findSymbol(t, tab, KindProcedure, "Sum")
	assert.Equal(t, AccessLocal, sum.Access)
	require.NotNil(t, sum.Return)
	assert.Equal(t, "Integer", sum.Return.Text)
	assert.Equal(t, []string{"A", "B"}, names(tab.Parameters(sum)))
	assert.Equal(t, 0, tab.Skipped)
}

func TestExtract_TableSectionsAndTriggers(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.CustomerURI, altest.Customer)

	no := findSymbol(t, tab, KindField, "No.")
	assert.Equal(t, "no.", no.Key)
	assert.True(t, no.Quoted)
	assert.Equal(t, "fields", no.Section)
	assert.Equal(t, 1, no.ObjectID)
	assert.Equal(t, "Code[20]", no.Detail())

	pk := findSymbol(t, tab, KindKey, "PK")
	assert.Equal(t, "keys", pk.Section)
	dropDown := findSymbol(t, tab, KindFieldGroup, "DropDown")
	assert.Equal(t, "fieldgroups", dropDown.Section)

	name := findSymbol(t, tab, KindField, "Name")
	trig := findSymbol(t, tab, KindTrigger, "OnValidate")
	assert.Equal(t, name.ID, trig.Parent)
	assert.Equal(t, []string{"OnValidate"}, names(tab.Children(name.ID)))
}

func TestExtract_ObjectHeaders(t *testing.T) {
	t.Parallel()
	prov := extract(t, altest.ProviderURI, altest.Provider)
	cu := prov.ObjectSymbols()[0]
	assert.Equal(t, []string{"IAddressProvider"}, cu.Implements)

	iface := extract(t, altest.InterfaceURI, altest.Interface)
	get := findSymbol(t, iface, KindProcedure, "GetAddress")
	assert.True(t, get.IsInterfaceMethod())
	assert.False(t, findSymbol(t, prov, KindProcedure, "GetAddress").IsInterfaceMethod())

	ext := extract(t, altest.CustExtURI, altest.CustomerExt)
	assert.Equal(t, "Customer", ext.ObjectSymbols()[0].Extends)

	card := extract(t, altest.CardURI, altest.Card)
	page := card.ObjectSymbols()[0]
	assert.Equal(t, "Customer Card", page.Name)
	assert.Equal(t, "customer card", page.Key)
	assert.Equal(t, "Customer", page.SourceTable)

	cust := findSymbol(t, card, KindVariable, "Cust")
	require.NotNil(t, cust.Type)
	assert.Equal(t, KindTable, cust.Type.Object)
	assert.Equal(t, "customer", cust.Type.Key)
}

func TestExtract_SkipsMalformedDeclarations(t *testing.T) {
	t.Parallel()
	src := "codeunit 1 Broken\n{\n    procedure (A: Integer)\n    begin\n    end;\n\n    procedure Good()\n    var\n        X: ;\n    begin\n    end;\n}\n"
	tab := extract(t, "file:///broken.al", src)
	assert.GreaterOrEqual(t, tab.Skipped, 2)
	good := findSymbol(t, tab, KindProcedure, "Good")
	assert.Empty(t, tab.Children(good.ID))
	for _, s := range tab.Symbols {
		assert.NotEqual(t, "X", s.Name)
	}
}

// =============================================================================
// Scopes and lookup
// =============================================================================

func TestLookup_LocalShadowsGlobal(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.ShadowURI, altest.Shadow)

	inInner := tab.ScopeAt(altest.Offset(altest.Shadow, "Counter := 2", 0))
	r, ok := tab.Lookup(inInner, "counter", nil)
	require.True(t, ok)
	inner := findSymbol(t, tab, KindProcedure, "Inner")
	assert.Equal(t, inner.Body, r.Symbol.Scope)

	inOuter := tab.ScopeAt(altest.Offset(altest.Shadow, "Counter := 1", 0))
	r, ok = tab.Lookup(inOuter, "counter", nil)
	require.True(t, ok)
	assert.Equal(t, ScopeObject, tab.Scopes[r.Symbol.Scope].Kind)

	r, ok = tab.Lookup(inInner, "total", nil)
	require.True(t, ok)
	assert.Equal(t, "Total", r.Symbol.Name)

	_, ok = tab.Lookup(inInner, "nosuchthing", nil)
	assert.False(t, ok)
}

func TestLookup_KeysAreNotExpressionNames(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.CustomerURI, altest.Customer)
	at := tab.ScopeAt(altest.Offset(altest.Customer, "exit(Prefix", 0))
	r, ok := tab.Lookup(at, "name", nil)
	require.True(t, ok)
	assert.Equal(t, KindField, r.Symbol.Kind)
}

func TestLookup_WithScopeUsesMemberSource(t *testing.T) {
	t.Parallel()
	cust := extract(t, altest.CustomerURI, altest.Customer)
	card := extract(t, altest.CardURI, altest.Card)

	off := altest.Offset(altest.Card, "Name := 'Adatum'", 0)
	occ := card.OccurrenceAt(off)
	require.NotNil(t, occ)
	assert.Equal(t, ScopeWith, card.Scopes[occ.Scope].Kind)
	assert.True(t, occ.Write)

	_, ok := card.Lookup(occ.Scope, "name", nil)
	assert.False(t, ok)

	r, ok := card.Lookup(occ.Scope, "name", fieldSource{cust})
	require.True(t, ok)
	assert.Same(t, cust, r.Table)
	assert.Equal(t, KindField, r.Symbol.Kind)

	// The record expression itself is outside the with scope.
	rec := card.OccurrenceAt(altest.Offset(altest.Card, "Cust do", 0))
	require.NotNil(t, rec)
	assert.NotEqual(t, ScopeWith, card.Scopes[rec.Scope].Kind)
}

func TestVisible_NearestFirstAndDeduplicated(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.ShadowURI, altest.Shadow)
	at := tab.ScopeAt(altest.Offset(altest.Shadow, "Counter := 2", 0))
	vis := tab.Visible(at, nil)

	var got []string
	counters := 0
	for _, r := range vis {
		got = append(got, r.Symbol.Name)
		if r.Symbol.Key == "counter" {
			counters++
			assert.Equal(t, KindVariable, r.Symbol.Kind)
			assert.NotEqual(t, ScopeObject, tab.Scopes[r.Symbol.Scope].Kind)
		}
	}
	assert.Equal(t, 1, counters)
	assert.Equal(t, "Amount", got[0])
	assert.Contains(t, got, "CallSum")
}

func TestChain_EndsAtDocument(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.ShadowURI, altest.Shadow)
	chain := tab.Chain(tab.ScopeAt(altest.Offset(altest.Shadow, "exit(A + B)", 0)))
	require.Len(t, chain, 3)
	assert.Equal(t, ScopeProcedure, tab.Scopes[chain[0]].Kind)
	assert.Equal(t, ScopeObject, tab.Scopes[chain[1]].Kind)
	assert.Equal(t, ScopeDocument, tab.Scopes[chain[2]].Kind)
}

// =============================================================================
// Occurrences
// =============================================================================

func TestOccurrences_Roles(t *testing.T) {
	t.Parallel()
	card := extract(t, altest.CardURI, altest.Card)
	src := altest.Card

	color := card.OccurrenceAt(altest.Offset(src, "Color::Red", 0))
	require.NotNil(t, color)
	assert.Equal(t, RoleObjectRef, color.Role)
	assert.Equal(t, KindEnum, color.Object)

	red := card.OccurrenceAt(altest.Offset(src, "Red;", 0))
	require.NotNil(t, red)
	assert.Equal(t, RoleQualified, red.Role)
	assert.Equal(t, "color", red.Qualifier)

	describe := card.OccurrenceAt(altest.Offset(src, "Describe", 0))
	require.NotNil(t, describe)
	assert.Equal(t, RoleMember, describe.Role)
	require.NotNil(t, describe.Receiver())
	assert.Equal(t, "Cust", describe.Receiver().Text([]byte(src)))

	source := card.OccurrenceAt(altest.Offset(src, "Customer;", 0))
	require.NotNil(t, source)
	assert.Equal(t, RoleObjectRef, source.Role)
	assert.Equal(t, KindTable, source.Object)

	decl := card.OccurrenceAt(altest.Offset(src, "Cust:", 0))
	require.NotNil(t, decl)
	assert.Equal(t, RoleDeclaration, decl.Role)
	assert.Equal(t, "Cust", card.Symbols[decl.Decl].Name)
}

func TestOccurrences_ControlNamesAreSkipped(t *testing.T) {
	t.Parallel()
	card := extract(t, altest.CardURI, altest.Card)
	off := altest.Offset(altest.Card, `field("No."`, 0) + len("field(")
	assert.Nil(t, card.OccurrenceAt(off+1))
	member := card.OccurrenceAt(altest.Offset(altest.Card, `Rec."No."`, 0) + len("Rec."))
	require.NotNil(t, member)
	assert.Equal(t, RoleMember, member.Role)
}

func TestOccurrences_ByKeyAndDeclaration(t *testing.T) {
	t.Parallel()
	tab := extract(t, altest.ShadowURI, altest.Shadow)
	occs := tab.OccurrencesOf("counter")
	// two declarations and four usages
	assert.Len(t, occs, 6)

	sum := findSymbol(t, tab, KindProcedure, "Sum")
	decl := tab.DeclarationOf(sum.ID)
	require.NotNil(t, decl)
	assert.Equal(t, sum.NameSpan, decl.Span)

	call := tab.OccurrenceAt(altest.Offset(altest.Shadow, "Sum(1", 0) + 3)
	require.NotNil(t, call)
	assert.Equal(t, RoleUsage, call.Role)
	assert.Equal(t, "sum", call.Key)
}

// =============================================================================
// Names
// =============================================================================

func TestNames_QuotingRules(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "no.", NameKey(`"No."`))
	assert.Equal(t, NameKey("Customer"), NameKey(`"customer"`))
	assert.True(t, NeedsQuotes("Phone No."))
	assert.True(t, NeedsQuotes("1st"))
	assert.True(t, NeedsQuotes("begin"))
	assert.False(t, NeedsQuotes("Customer"))
	assert.Equal(t, `"New Name"`, Render("New Name"))
	assert.Equal(t, "Plain", Render("Plain"))
}

func TestKinds_Labels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "tableextension", KindTableExtension.String())
	assert.Equal(t, KindPageExtension, ParseKind("PageExtension"))
	assert.Equal(t, KindTable, KindTableExtension.BaseKind())
	assert.True(t, KindInterface.IsObject())
	assert.False(t, KindField.IsObject())
	k, ok := ObjectKindForQualifier("Database")
	require.True(t, ok)
	assert.Equal(t, KindTable, k)
}
