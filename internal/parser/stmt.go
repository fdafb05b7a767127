package parser

import "github.com/jward/alnav/internal/syntax"

// routineEnd words stop a statement list that is missing its 'end'.
var routineEnd = []string{"procedure", "trigger", "local", "internal", "protected", "var"}

func (s *state) block() *syntax.Node {
	kids := []*syntax.Node{s.anon()}
	kids = append(kids, s.statements("end")...)
	kids = append(kids, s.expect("end"))
	return s.mk("block", kids...)
}

func (s *state) statements(terminators ...string) []*syntax.Node {
	var out []*syntax.Node
	for !s.eof() && !s.atAny(terminators...) && !s.atAny(routineEnd...) && !s.at("}") {
		if s.at(";") {
			out = append(out, s.anon())
			continue
		}
		start := s.pos
		if n := s.statement(); n != nil {
			out = append(out, n)
		}
		if s.pos == start {
			out = append(out, s.errorToken())
		}
	}
	return out
}

// statement parses one statement, or returns nil for an empty statement.
func (s *state) statement() *syntax.Node {
	if !s.enter() {
		return s.errorToken()
	}
	defer s.leave()

	switch t := s.cur(); {
	case t.is("begin"):
		return s.block()
	case t.is("if"):
		return s.ifStatement()
	case t.is("while"):
		kids := []*syntax.Node{s.anon(), field(s.expression(), "condition"), s.expect("do")}
		kids = append(kids, field(s.statement(), "body"))
		return s.mk("while_statement", kids...)
	case t.is("repeat"):
		kids := []*syntax.Node{s.anon()}
		kids = append(kids, s.statements("until")...)
		kids = append(kids, s.expect("until"), field(s.expression(), "condition"))
		return s.mk("repeat_statement", kids...)
	case t.is("for"):
		return s.forStatement()
	case t.is("foreach"):
		kids := []*syntax.Node{s.anon(), field(s.postfix(), "variable"), s.expect("in")}
		kids = append(kids, field(s.expression(), "collection"), s.expect("do"))
		kids = append(kids, field(s.statement(), "body"))
		return s.mk("foreach_statement", kids...)
	case t.is("case"):
		return s.caseStatement()
	case t.is("with"):
		kids := []*syntax.Node{s.anon(), field(s.expression(), "record"), s.expect("do")}
		kids = append(kids, field(s.statement(), "body"))
		return s.mk("with_statement", kids...)
	case t.is("exit"):
		kids := []*syntax.Node{s.anon()}
		if s.at("(") {
			kids = append(kids, s.anon())
			if !s.at(")") {
				kids = append(kids, field(s.expression(), "value"))
			}
			kids = append(kids, s.expect(")"))
		}
		return s.mk("exit_statement", kids...)
	case t.is("asserterror"):
		return s.mk("asserterror_statement", s.anon(), field(s.statement(), "body"))
	case t.is("break"), t.is("continue"):
		return s.mk(t.lower+"_statement", s.anon())
	case t.is(";"), t.is("end"), t.is("else"), t.is("until"):
		return nil
	}

	if !s.atExpressionStart() {
		return nil
	}
	left := s.expression()
	if s.atAny(":=", "+=", "-=", "*=", "/=") {
		op := s.anon()
		return s.mk("assignment_statement", field(left, "left"), op, field(s.expression(), "right"))
	}
	return left
}

func (s *state) ifStatement() *syntax.Node {
	kids := []*syntax.Node{s.anon(), field(s.expression(), "condition"), s.expect("then")}
	kids = append(kids, field(s.statement(), "consequence"))
	if s.at("else") {
		kids = append(kids, s.anon(), field(s.statement(), "alternative"))
	}
	return s.mk("if_statement", kids...)
}

func (s *state) forStatement() *syntax.Node {
	kids := []*syntax.Node{s.anon(), field(s.postfix(), "variable"), s.expect(":=")}
	kids = append(kids, field(s.expression(), "start"))
	if s.atAny("to", "downto") {
		kids = append(kids, s.anon())
	} else {
		kids = append(kids, s.missing("to"))
	}
	kids = append(kids, field(s.expression(), "end"), s.expect("do"))
	kids = append(kids, field(s.statement(), "body"))
	return s.mk("for_statement", kids...)
}

func (s *state) caseStatement() *syntax.Node {
	kids := []*syntax.Node{s.anon(), field(s.expression(), "value"), s.expect("of")}
	for !s.eof() && !s.atAny("end", "else") && !s.atAny(routineEnd...) {
		if s.at(";") {
			kids = append(kids, s.anon())
			continue
		}
		start := s.pos
		if s.atExpressionStart() {
			kids = append(kids, s.caseBranch())
		}
		if s.pos == start {
			kids = append(kids, s.errorToken())
		}
	}
	if s.at("else") {
		elseKids := []*syntax.Node{s.anon()}
		elseKids = append(elseKids, s.statements("end")...)
		kids = append(kids, s.mk("case_else", elseKids...))
	}
	kids = append(kids, s.expect("end"))
	return s.mk("case_statement", kids...)
}

func (s *state) caseBranch() *syntax.Node {
	var kids []*syntax.Node
	for {
		kids = append(kids, field(s.expression(), "pattern"))
		if s.at("..") {
			kids = append(kids, s.anon(), field(s.expression(), "pattern"))
		}
		if !s.at(",") {
			break
		}
		kids = append(kids, s.anon())
	}
	kids = append(kids, s.expect(":"), field(s.statement(), "body"))
	return s.mk("case_branch", kids...)
}
