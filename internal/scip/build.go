// Package scip converts a workspace snapshot into a SCIP index so that
// external code-intelligence tools can consume the resolved AL symbols.
//
// Objects become global symbols named by kind and object name, their members
// hang off the object descriptor, and parameters and locals become
// document-local symbols.
package scip

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/jward/alnav/internal/logging"
	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/workspace"
)

var log = logging.Logger("scip")

const (
	scheme   = "alnav"
	language = "al"
)

// Options configures Build.
type Options struct {
	ProjectRoot string // documents are written relative to this directory
	Package     string // package name in symbol strings; "." when empty
	Version     string // tool version recorded in the metadata
}

// Build converts every document of snap into a SCIP index. It polls ctx
// between documents.
func Build(ctx context.Context, snap *workspace.Snapshot, opts Options) (*scippb.Index, error) {
	r := nav.New(snap)
	b := &builder{r: r, opts: opts}

	root, projectRoot := opts.ProjectRoot, ""
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		projectRoot = workspace.URIFromPath(root)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	idx := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:      scheme,
				Version:   version,
				Arguments: []string{"--run", uuid.NewString()},
			},
			ProjectRoot:          projectRoot,
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	for _, doc := range snap.Documents() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scip: %w", err)
		}
		idx.Documents = append(idx.Documents, b.document(doc, root))
	}
	log.Debugf("scip: %d documents", len(idx.Documents))
	return idx, nil
}

type builder struct {
	r    *nav.Resolver
	opts Options
}

func (b *builder) document(doc *workspace.Document, root string) *scippb.Document {
	out := &scippb.Document{
		Language:         language,
		RelativePath:     relativePath(root, doc.URI),
		PositionEncoding: scippb.PositionEncoding_UTF8CodeUnitOffsetFromLineStart,
	}

	t := doc.Table
	for i := range t.Symbols {
		res := symbols.Resolved{Table: t, Symbol: &t.Symbols[i]}
		out.Symbols = append(out.Symbols, b.information(res))
	}

	for i := range t.Occurrences {
		occ := &t.Occurrences[i]
		res, ok := b.r.Resolve(doc, occ)
		if !ok {
			continue
		}
		var roles int32
		switch {
		case occ.Role == symbols.RoleDeclaration:
			roles = int32(scippb.SymbolRole_Definition)
		case occ.Write:
			roles = int32(scippb.SymbolRole_WriteAccess)
		default:
			roles = int32(scippb.SymbolRole_ReadAccess)
		}
		out.Occurrences = append(out.Occurrences, &scippb.Occurrence{
			Range:       scipRange(occ.Start.Row, occ.Start.Column, occ.End.Row, occ.End.Column),
			Symbol:      b.symbol(res),
			SymbolRoles: roles,
		})
	}
	return out
}

func (b *builder) information(res symbols.Resolved) *scippb.SymbolInformation {
	s := res.Symbol
	info := &scippb.SymbolInformation{
		Symbol:        b.symbol(res),
		DisplayName:   s.Name,
		Kind:          symbolKind(s.Kind),
		Documentation: []string{"```al\n" + b.r.Describe(res) + "\n```"},
	}
	if parent := res.Table.Symbol(s.Parent); parent != nil && !isLocal(res) {
		info.EnclosingSymbol = b.symbol(symbols.Resolved{Table: res.Table, Symbol: parent})
	}

	snap := b.r.Snapshot()
	for _, iface := range s.Implements {
		if e, ok := snap.Object(symbols.KindInterface, iface); ok {
			info.Relationships = append(info.Relationships, &scippb.Relationship{
				Symbol:           b.symbol(e.Resolved()),
				IsImplementation: true,
			})
		}
	}
	if s.Kind.IsExtension() {
		if e, ok := snap.Object(s.Kind.BaseKind(), s.Extends); ok {
			info.Relationships = append(info.Relationships, &scippb.Relationship{
				Symbol:      b.symbol(e.Resolved()),
				IsReference: true,
			})
		}
	}
	for _, m := range b.r.InterfaceMethods(res) {
		info.Relationships = append(info.Relationships, &scippb.Relationship{
			Symbol:           b.symbol(m),
			IsImplementation: true,
			IsReference:      true,
		})
	}
	return info
}

// isLocal reports whether res lives inside a routine: parameters, locals and
// named return values.
func isLocal(res symbols.Resolved) bool {
	for p := res.Table.Symbol(res.Symbol.Parent); p != nil; p = res.Table.Symbol(p.Parent) {
		if p.Kind == symbols.KindProcedure || p.Kind == symbols.KindTrigger {
			return true
		}
	}
	return false
}

// symbol returns the SCIP symbol string of a declaration.
func (b *builder) symbol(res symbols.Resolved) string {
	s := res.Symbol
	if isLocal(res) {
		return "local " + strconv.Itoa(int(s.ID))
	}

	var chain []*symbols.Symbol
	for p := s; p != nil; p = res.Table.Symbol(p.Parent) {
		chain = append(chain, p)
	}

	pkg := b.opts.Package
	if pkg == "" {
		pkg = "."
	}
	var sb strings.Builder
	sb.WriteString(scheme + " . " + escapePackage(pkg) + " . ")
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		switch {
		case c.Kind.IsObject():
			sb.WriteString(c.Kind.String() + "/" + escapeName(c.Name) + "#")
		case c.Kind == symbols.KindProcedure || c.Kind == symbols.KindTrigger:
			sb.WriteString(escapeName(c.Name) + "().")
		default:
			sb.WriteString(escapeName(c.Name) + ".")
		}
	}
	return sb.String()
}

func symbolKind(k symbols.Kind) scippb.SymbolInformation_Kind {
	switch {
	case k == symbols.KindInterface:
		return scippb.SymbolInformation_Interface
	case k == symbols.KindEnum || k == symbols.KindEnumExtension:
		return scippb.SymbolInformation_Enum
	case k.IsObject():
		return scippb.SymbolInformation_Class
	}
	switch k {
	case symbols.KindProcedure, symbols.KindTrigger:
		return scippb.SymbolInformation_Method
	case symbols.KindVariable:
		return scippb.SymbolInformation_Variable
	case symbols.KindParameter:
		return scippb.SymbolInformation_Parameter
	case symbols.KindField, symbols.KindKey, symbols.KindFieldGroup:
		return scippb.SymbolInformation_Field
	case symbols.KindEnumValue:
		return scippb.SymbolInformation_EnumMember
	}
	return scippb.SymbolInformation_UnspecifiedKind
}

// scipRange encodes a range in the compact three-element form when it
// fits on one line.
func scipRange(sl, sc, el, ec int) []int32 {
	if sl == el {
		return []int32{int32(sl), int32(sc), int32(ec)}
	}
	return []int32{int32(sl), int32(sc), int32(el), int32(ec)}
}

func relativePath(root, uri string) string {
	path := workspace.PathFromURI(uri)
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(path), "/")
}

func isSimpleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '+' || c == '-' || c == '$':
		default:
			return false
		}
	}
	return true
}

// escapeName backtick-quotes descriptor names that are not simple
// identifiers, doubling embedded backticks.
func escapeName(name string) string {
	if isSimpleIdent(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// escapePackage doubles spaces, the package-field escape.
func escapePackage(s string) string {
	return strings.ReplaceAll(s, " ", "  ")
}
