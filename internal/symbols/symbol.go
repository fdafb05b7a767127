// Package symbols extracts declarations, scopes and identifier occurrences
// from an AL syntax tree and implements shadow-correct name lookup over them.
//
// A Table is built once per document version and never modified afterwards.
// Symbols refer to each other by SymbolID and ScopeID, which are indexes into
// the owning Table; they are meaningless outside it.
package symbols

import (
	"strings"

	"github.com/jward/alnav/internal/syntax"
)

// SymbolID indexes Table.Symbols.
type SymbolID int

// ScopeID indexes Table.Scopes.
type ScopeID int

// NoSymbol and NoScope mark absent links.
const (
	NoSymbol SymbolID = -1
	NoScope  ScopeID  = -1
)

// Access is a declaration's access modifier.
type Access int

const (
	AccessPublic Access = iota
	AccessLocal
	AccessInternal
	AccessProtected
)

func (a Access) String() string {
	switch a {
	case AccessLocal:
		return "local"
	case AccessInternal:
		return "internal"
	case AccessProtected:
		return "protected"
	}
	return "public"
}

// TypeRef is a declared type, kept unresolved. Object is set when the type
// names an AL object (Record Customer, Codeunit "Sales-Post", ...).
type TypeRef struct {
	Text   string `json:"text"`
	Object Kind   `json:"object,omitempty"`
	Name   string `json:"name,omitempty"`
	Key    string `json:"key,omitempty"`
}

// Symbol is a single declaration.
type Symbol struct {
	ID     SymbolID
	Kind   Kind
	Name   string // display name without quotes
	Key    string // lookup key: lowercase, unquoted
	Quoted bool

	Span          syntax.Span // whole declaration
	NameSpan      syntax.Span // name token, including quotes
	StartPoint    syntax.Point
	EndPoint      syntax.Point
	NameStart     syntax.Point
	NameEnd       syntax.Point
	Type          *TypeRef
	Return        *TypeRef
	Scope         ScopeID // scope the symbol is declared in
	Body          ScopeID // scope the symbol introduces, or NoScope
	Parent        SymbolID
	Access        Access
	ObjectID      int
	Implements    []string
	Extends       string
	SourceTable   string
	Section       string
	VarParam      bool
	interfaceDecl bool
}

// IsInterfaceMethod reports whether s is a method declared by an interface.
func (s *Symbol) IsInterfaceMethod() bool { return s.interfaceDecl }

// Detail renders the declared type for hovers and outlines.
func (s *Symbol) Detail() string {
	switch {
	case s.Type != nil:
		return s.Type.Text
	case s.Return != nil:
		return s.Return.Text
	}
	return ""
}

// NameKey returns the lookup key of an identifier as written in source:
// surrounding double quotes are removed and the result is lowercased.
func NameKey(ident string) string {
	return strings.ToLower(Unquote(ident))
}

// Unquote strips one pair of surrounding double quotes.
func Unquote(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return ident[1 : len(ident)-1]
	}
	return ident
}

// NeedsQuotes reports whether name must be written as a quoted identifier.
func NeedsQuotes(name string) bool {
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return IsKeyword(name)
}

// Render returns name as it must appear in source.
func Render(name string) string {
	if NeedsQuotes(name) {
		return `"` + name + `"`
	}
	return name
}
