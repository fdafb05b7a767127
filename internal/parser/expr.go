package parser

import "github.com/jward/alnav/internal/syntax"

// binary operator precedence levels, loosest first.
var operatorLevels = [][]string{
	{"=", "<>", "<", ">", "<=", ">=", "in"},
	{"+", "-", "or", "xor"},
	{"*", "/", "div", "mod", "and"},
}

func (s *state) atExpressionStart() bool {
	t := s.cur()
	switch t.kind {
	case tokIdent:
		return !reserved[t.lower] || t.lower == "not"
	case tokQuoted, tokString, tokInteger, tokDecimal:
		return true
	case tokPunct:
		return t.text == "(" || t.text == "-" || t.text == "+" || t.text == "["
	}
	return false
}

func (s *state) expression() *syntax.Node {
	return s.binary(0)
}

func (s *state) binary(level int) *syntax.Node {
	if level == len(operatorLevels) {
		return s.unary()
	}
	left := s.binary(level + 1)
	for s.atAny(operatorLevels[level]...) {
		op := s.anon()
		right := s.binary(level + 1)
		left = s.mk("binary_expression", field(left, "left"), op, field(right, "right"))
	}
	return left
}

func (s *state) unary() *syntax.Node {
	if !s.atAny("not", "-", "+") {
		return s.postfix()
	}
	if !s.enter() {
		return s.errorToken()
	}
	defer s.leave()
	op := s.anon()
	return s.mk("unary_expression", op, field(s.unary(), "operand"))
}

// postfix parses a primary followed by member access, calls, indexing and
// '::' qualification.
func (s *state) postfix() *syntax.Node {
	expr := s.primary()
	for {
		switch {
		case s.at("."):
			dot := s.anon()
			member := s.memberName()
			if s.at("(") {
				expr = s.mk("method_call", field(expr, "object"), dot, field(member, "method"),
					field(s.arguments(), "arguments"))
			} else {
				expr = s.mk("member_expression", field(expr, "object"), dot, field(member, "member"))
			}
		case s.at("(") && (expr.Kind == "identifier" || expr.Kind == "quoted_identifier"):
			expr = s.mk("function_call", field(expr, "name"), field(s.arguments(), "arguments"))
		case s.at("["):
			kids := []*syntax.Node{field(expr, "object"), s.anon()}
			for !s.eof() && !s.at("]") {
				if s.at(",") {
					kids = append(kids, s.anon())
					continue
				}
				if !s.atExpressionStart() {
					break
				}
				kids = append(kids, field(s.expression(), "index"))
			}
			kids = append(kids, s.expect("]"))
			expr = s.mk("subscript_expression", kids...)
		case s.at("::"):
			op := s.anon()
			expr = s.mk("qualified_expression", field(expr, "qualifier"), op, field(s.memberName(), "member"))
		default:
			return expr
		}
	}
}

// memberName accepts any identifier after '.' or '::', reserved or not.
func (s *state) memberName() *syntax.Node {
	switch t := s.cur(); t.kind {
	case tokIdent:
		return s.leaf("identifier", true)
	case tokQuoted:
		return s.leaf("quoted_identifier", true)
	}
	return s.missing("identifier")
}

func (s *state) primary() *syntax.Node {
	t := s.cur()
	switch t.kind {
	case tokIdent:
		if t.lower == "true" || t.lower == "false" {
			return s.leaf("boolean", true)
		}
		if reserved[t.lower] {
			return s.missing("identifier")
		}
		return s.leaf("identifier", true)
	case tokQuoted:
		return s.leaf("quoted_identifier", true)
	case tokString:
		return s.leaf("string_literal", true)
	case tokInteger:
		return s.leaf("integer", true)
	case tokDecimal:
		return s.leaf("decimal", true)
	case tokPunct:
		switch t.text {
		case "(":
			if !s.enter() {
				return s.errorToken()
			}
			defer s.leave()
			open := s.anon()
			inner := s.expression()
			return s.mk("parenthesized_expression", open, inner, s.expect(")"))
		case "[":
			kids := []*syntax.Node{s.anon()}
			for !s.eof() && !s.at("]") {
				if s.atAny(",", "..") {
					kids = append(kids, s.anon())
					continue
				}
				if !s.atExpressionStart() {
					break
				}
				kids = append(kids, s.expression())
			}
			kids = append(kids, s.expect("]"))
			return s.mk("list_expression", kids...)
		}
	}
	return s.missing("identifier")
}

// arguments parses '(' expr {',' expr} ')'. An unclosed list gets a MISSING
// ')' placed at the next token, so the list spans up to where typing resumes.
func (s *state) arguments() *syntax.Node {
	kids := []*syntax.Node{s.anon()}
	for !s.eof() && !s.at(")") {
		if s.at(",") {
			kids = append(kids, s.anon())
			continue
		}
		if !s.atExpressionStart() {
			break
		}
		kids = append(kids, s.expression())
	}
	if s.at(")") {
		kids = append(kids, s.anon())
	} else {
		kids = append(kids, s.missingAt(")", s.cur().start))
	}
	return s.mk("argument_list", kids...)
}
