package symbols

import "strings"

// Kind classifies a declaration.
type Kind int

const (
	KindUnknown Kind = iota

	// Object kinds.
	KindTable
	KindTableExtension
	KindPage
	KindPageExtension
	KindCodeunit
	KindReport
	KindEnum
	KindEnumExtension
	KindXmlPort
	KindQuery
	KindInterface
	KindPermissionSet
	KindControlAddIn

	// Member kinds.
	KindProcedure
	KindTrigger
	KindVariable
	KindParameter
	KindField
	KindEnumValue
	KindKey
	KindFieldGroup

	// KindSection groups fields, keys and field groups in outlines only.
	KindSection
)

var kindLabels = map[Kind]string{
	KindTable:          "table",
	KindTableExtension: "tableextension",
	KindPage:           "page",
	KindPageExtension:  "pageextension",
	KindCodeunit:       "codeunit",
	KindReport:         "report",
	KindEnum:           "enum",
	KindEnumExtension:  "enumextension",
	KindXmlPort:        "xmlport",
	KindQuery:          "query",
	KindInterface:      "interface",
	KindPermissionSet:  "permissionset",
	KindControlAddIn:   "controladdin",
	KindProcedure:      "procedure",
	KindTrigger:        "trigger",
	KindVariable:       "variable",
	KindParameter:      "parameter",
	KindField:          "field",
	KindEnumValue:      "enumvalue",
	KindKey:            "key",
	KindFieldGroup:     "fieldgroup",
	KindSection:        "section",
}

// String returns the lowercase AL label of the kind.
func (k Kind) String() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) Kind {
	s = strings.ToLower(s)
	for k, l := range kindLabels {
		if l == s {
			return k
		}
	}
	return KindUnknown
}

// IsObject reports whether k is a top-level object kind.
func (k Kind) IsObject() bool {
	return k >= KindTable && k <= KindControlAddIn
}

// IsExtension reports whether k extends another object by name.
func (k Kind) IsExtension() bool {
	return k == KindTableExtension || k == KindPageExtension || k == KindEnumExtension
}

// BaseKind returns the kind of object an extension kind extends.
func (k Kind) BaseKind() Kind {
	switch k {
	case KindTableExtension:
		return KindTable
	case KindPageExtension:
		return KindPage
	case KindEnumExtension:
		return KindEnum
	}
	return k
}

// declarationKinds maps object declaration node kinds to object kinds.
var declarationKinds = map[string]Kind{
	"table_declaration":           KindTable,
	"table_extension_declaration": KindTableExtension,
	"page_declaration":            KindPage,
	"page_extension_declaration":  KindPageExtension,
	"codeunit_declaration":        KindCodeunit,
	"report_declaration":          KindReport,
	"enum_declaration":            KindEnum,
	"enum_extension_declaration":  KindEnumExtension,
	"xmlport_declaration":         KindXmlPort,
	"query_declaration":           KindQuery,
	"interface_declaration":       KindInterface,
	"permissionset_declaration":   KindPermissionSet,
	"controladdin_declaration":    KindControlAddIn,
}

// ObjectKindForNode returns the object kind for a declaration node kind.
func ObjectKindForNode(nodeKind string) (Kind, bool) {
	k, ok := declarationKinds[nodeKind]
	return k, ok
}

// typeKeywords maps declared-type keywords to the object kind they name.
var typeKeywords = map[string]Kind{
	"record":          KindTable,
	"codeunit":        KindCodeunit,
	"page":            KindPage,
	"testpage":        KindPage,
	"report":          KindReport,
	"testrequestpage": KindReport,
	"query":           KindQuery,
	"xmlport":         KindXmlPort,
	"enum":            KindEnum,
	"interface":       KindInterface,
	"controladdin":    KindControlAddIn,
}

// ObjectKindForType returns the object kind a type keyword refers to.
func ObjectKindForType(keyword string) (Kind, bool) {
	k, ok := typeKeywords[strings.ToLower(keyword)]
	return k, ok
}

// qualifierKinds maps the left side of Kind::Name expressions to object kinds.
var qualifierKinds = map[string]Kind{
	"database": KindTable,
	"codeunit": KindCodeunit,
	"page":     KindPage,
	"report":   KindReport,
	"query":    KindQuery,
	"xmlport":  KindXmlPort,
	"enum":     KindEnum,
}

// ObjectKindForQualifier resolves the qualifier of Database::Customer,
// Codeunit::"Sales-Post" and similar.
func ObjectKindForQualifier(name string) (Kind, bool) {
	k, ok := qualifierKinds[strings.ToLower(name)]
	return k, ok
}
