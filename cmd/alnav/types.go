package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a JSON-friendly source range. Lines and columns are 0-based;
// columns count bytes.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLISymbol is a JSON-friendly symbol representation.
type CLISymbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	Container string `json:"container,omitempty"`
	ObjectID  int    `json:"object_id,omitempty"`
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIHighlight is a same-document occurrence.
type CLIHighlight struct {
	CLILocation
	Write bool `json:"write"`
}

type CLIHover struct {
	Contents string       `json:"contents"`
	Range    *CLILocation `json:"range,omitempty"`
}

type CLICompletion struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

type CLISignature struct {
	Label           string   `json:"label"`
	Parameters      []string `json:"parameters"`
	ActiveParameter *int     `json:"active_parameter,omitempty"`
}

type CLIDiagnostic struct {
	CLILocation
	Message string `json:"message"`
}

type CLIFoldingRange struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Kind      string `json:"kind,omitempty"`
}

// CLIOutlineNode is one entry of a document outline.
type CLIOutlineNode struct {
	Name      string           `json:"name"`
	Kind      string           `json:"kind"`
	Detail    string           `json:"detail,omitempty"`
	StartLine int              `json:"start_line"`
	EndLine   int              `json:"end_line"`
	Children  []CLIOutlineNode `json:"children,omitempty"`
}

type CLITextEdit struct {
	CLILocation
	NewText string `json:"new_text"`
}

// CLIFileEdits groups the rename edits of one file.
type CLIFileEdits struct {
	File  string        `json:"file"`
	Edits []CLITextEdit `json:"edits"`
}

// CLIRenameTarget is the prepare-rename answer.
type CLIRenameTarget struct {
	Range       CLILocation `json:"range"`
	Placeholder string      `json:"placeholder"`
}

type CLIScope struct {
	Kind     string      `json:"kind"`
	Owner    string      `json:"owner,omitempty"`
	Location CLILocation `json:"location"`
	Symbols  []string    `json:"symbols"`
}

// CLISymbolDetail is a symbol with its signature and members.
type CLISymbolDetail struct {
	Symbol     CLISymbol   `json:"symbol"`
	Signature  string      `json:"signature,omitempty"`
	Parameters []CLISymbol `json:"parameters,omitempty"`
	Members    []CLISymbol `json:"members,omitempty"`
}

// CLIHierarchy describes the interfaces and extensions around an object.
type CLIHierarchy struct {
	Object        CLISymbol   `json:"object"`
	Implements    []CLISymbol `json:"implements,omitempty"`
	Unresolved    []string    `json:"unresolved,omitempty"`
	ImplementedBy []CLISymbol `json:"implemented_by,omitempty"`
	Extends       *CLISymbol  `json:"extends,omitempty"`
	ExtendedBy    []CLISymbol `json:"extended_by,omitempty"`
}

// CLIDocument is a JSON-friendly open document summary.
type CLIDocument struct {
	File    string   `json:"file"`
	Version int32    `json:"version"`
	Lines   int      `json:"lines"`
	Objects []string `json:"objects"`
	Symbols int      `json:"symbols"`
	Errors  int      `json:"errors"`
	Skipped int      `json:"skipped"`
}

// CLIExport summarizes a SCIP export.
type CLIExport struct {
	Output     string `json:"output"`
	Documents  int    `json:"documents"`
	Symbols    int    `json:"symbols"`
	Compressed bool   `json:"compressed"`
}
