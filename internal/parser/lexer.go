package parser

import "strings"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuoted
	tokString
	tokInteger
	tokDecimal
	tokPunct
	tokInvalid
)

type token struct {
	kind  tokenKind
	text  string
	lower string // lowercased text for identifiers, used for keyword tests
	start int
	end   int
}

// is reports whether t is the given punctuation or (case-insensitive) keyword.
func (t token) is(s string) bool {
	switch t.kind {
	case tokPunct:
		return t.text == s
	case tokIdent:
		return t.lower == s
	}
	return false
}

type comment struct {
	start, end int
	block      bool
}

// multi-character punctuation, longest first.
var punctuation = []string{"::", ":=", "+=", "-=", "*=", "/=", "<>", "<=", ">=", ".."}

const singlePunct = "{}()[];:,.=<>+-*/@&|#?"

// lex splits src into tokens. Comments are returned separately; they never
// appear in the token stream.
func lex(src []byte) ([]token, []comment) {
	var (
		toks     []token
		comments []comment
		i        int
	)
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			i++

		case c == '/' && i+1 < n && src[i+1] == '/':
			start := i
			for i < n && src[i] != '\n' {
				i++
			}
			end := i
			if end > start && src[end-1] == '\r' {
				end--
			}
			comments = append(comments, comment{start: start, end: end})

		case c == '/' && i+1 < n && src[i+1] == '*':
			start := i
			i += 2
			for i < n && !(src[i] == '*' && i+1 < n && src[i+1] == '/') {
				i++
			}
			if i < n {
				i += 2
			}
			comments = append(comments, comment{start: start, end: i, block: true})

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			text := string(src[start:i])
			toks = append(toks, token{kind: tokIdent, text: text, lower: strings.ToLower(text), start: start, end: i})

		case c == '"':
			start := i
			i++
			for i < n && src[i] != '"' && src[i] != '\n' {
				i++
			}
			if i < n && src[i] == '"' {
				i++
				toks = append(toks, token{kind: tokQuoted, text: string(src[start:i]), start: start, end: i})
			} else {
				toks = append(toks, token{kind: tokInvalid, text: string(src[start:i]), start: start, end: i})
			}

		case c == '\'':
			start := i
			i++
			for i < n {
				if src[i] == '\'' {
					if i+1 < n && src[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			toks = append(toks, token{kind: tokString, text: string(src[start:i]), start: start, end: i})

		case isDigit(c):
			start := i
			kind := tokInteger
			for i < n && isDigit(src[i]) {
				i++
			}
			if i+1 < n && src[i] == '.' && isDigit(src[i+1]) {
				kind = tokDecimal
				i++
				for i < n && isDigit(src[i]) {
					i++
				}
			}
			// Date, time and datetime literals such as 0D, 0T and 0DT.
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: kind, text: string(src[start:i]), start: start, end: i})

		default:
			start := i
			matched := false
			for _, p := range punctuation {
				if i+len(p) <= n && string(src[i:i+len(p)]) == p {
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				i++
			}
			kind := tokPunct
			if !matched && !strings.ContainsRune(singlePunct, rune(c)) {
				kind = tokInvalid
			}
			toks = append(toks, token{kind: kind, text: string(src[start:i]), start: start, end: i})
		}
	}
	toks = append(toks, token{kind: tokEOF, start: n, end: n})
	return toks, comments
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
