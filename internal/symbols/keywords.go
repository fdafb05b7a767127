package symbols

import "strings"

// Keywords are offered by completion alongside in-scope symbols.
var Keywords = []string{
	"begin", "end", "if", "then", "else", "for", "to", "downto", "do", "while",
	"repeat", "until", "case", "of", "with", "exit", "var", "procedure",
	"trigger", "local", "internal", "protected", "true", "false", "not", "and",
	"or", "xor", "mod", "div", "in", "array", "temporary", "record", "codeunit",
	"table", "page", "report", "query", "xmlport", "enum", "tableextension",
	"pageextension", "enumextension", "field", "key", "fieldgroup",
}

// reservedWords cannot be used as bare identifiers.
var reservedWords = map[string]bool{
	"and": true, "or": true, "xor": true, "not": true, "div": true, "mod": true,
	"in": true, "if": true, "then": true, "else": true, "begin": true, "end": true,
	"while": true, "do": true, "repeat": true, "until": true, "for": true,
	"foreach": true, "to": true, "downto": true, "case": true, "of": true,
	"with": true, "exit": true, "var": true, "procedure": true, "trigger": true,
	"local": true, "internal": true, "protected": true, "asserterror": true,
	"true": true, "false": true,
}

// IsKeyword reports whether name is a reserved word.
func IsKeyword(name string) bool {
	return reservedWords[strings.ToLower(name)]
}
