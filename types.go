package alnav

import (
	"github.com/jward/alnav/internal/docstore"
	"github.com/jward/alnav/internal/nav"
	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/workspace"
)

// Public type aliases for the internal types that appear in the Engine and
// QueryBuilder APIs. They are identical to the internal types at compile
// time, so no conversion is needed.

type Snapshot = workspace.Snapshot
type Document = workspace.Document
type Kind = symbols.Kind
type Edit = docstore.Edit
type Range = docstore.Range
type Source = docstore.Source
type Hover = nav.Hover
type CompletionItem = nav.CompletionItem
type SignatureHelp = nav.SignatureHelp
type DocumentSymbol = nav.DocumentSymbol
type FoldingRange = nav.FoldingRange
type RenameError = nav.RenameError
type RenameReason = nav.RenameReason

// Declaration kinds.
const (
	KindUnknown        = symbols.KindUnknown
	KindTable          = symbols.KindTable
	KindTableExtension = symbols.KindTableExtension
	KindPage           = symbols.KindPage
	KindPageExtension  = symbols.KindPageExtension
	KindCodeunit       = symbols.KindCodeunit
	KindReport         = symbols.KindReport
	KindEnum           = symbols.KindEnum
	KindEnumExtension  = symbols.KindEnumExtension
	KindXmlPort        = symbols.KindXmlPort
	KindQuery          = symbols.KindQuery
	KindInterface      = symbols.KindInterface
	KindPermissionSet  = symbols.KindPermissionSet
	KindControlAddIn   = symbols.KindControlAddIn
	KindProcedure      = symbols.KindProcedure
	KindTrigger        = symbols.KindTrigger
	KindVariable       = symbols.KindVariable
	KindParameter      = symbols.KindParameter
	KindField          = symbols.KindField
	KindEnumValue      = symbols.KindEnumValue
	KindKey            = symbols.KindKey
	KindFieldGroup     = symbols.KindFieldGroup
)

// ParseKind maps a kind label such as "codeunit" to its Kind.
func ParseKind(s string) Kind { return symbols.ParseKind(s) }

// Rename failure reasons.
const (
	RenameEmptyName    = nav.RenameEmptyName
	RenameCollision    = nav.RenameCollision
	RenameIllegalName  = nav.RenameIllegalName
	RenameNotRenamable = nav.RenameNotRenamable
)

// ErrCancelled is returned by workspace-wide queries that observed
// cancellation before finishing. It is never wrapped around a partial result.
var ErrCancelled = nav.ErrCancelled

// ErrNotOpen is returned by Change for a document that is not open.
var ErrNotOpen = docstore.ErrNotOpen
