package parser

import "github.com/jward/alnav/internal/syntax"

// objectDeclarations maps object keywords to declaration node kinds.
var objectDeclarations = map[string]string{
	"table":          "table_declaration",
	"tableextension": "table_extension_declaration",
	"page":           "page_declaration",
	"pageextension":  "page_extension_declaration",
	"codeunit":       "codeunit_declaration",
	"report":         "report_declaration",
	"enum":           "enum_declaration",
	"enumextension":  "enum_extension_declaration",
	"xmlport":        "xmlport_declaration",
	"query":          "query_declaration",
	"interface":      "interface_declaration",
	"permissionset":  "permissionset_declaration",
	"controladdin":   "controladdin_declaration",
}

// objectTypes are the type keywords followed by an object name.
var objectTypes = map[string]bool{
	"record": true, "codeunit": true, "page": true, "report": true,
	"query": true, "xmlport": true, "enum": true, "interface": true,
	"testpage": true, "testrequestpage": true, "controladdin": true,
}

func (s *state) isObjectStart() bool {
	t := s.cur()
	if t.kind != tokIdent || objectDeclarations[t.lower] == "" {
		return false
	}
	next := s.peek(1)
	return next.kind == tokInteger || isName(next)
}

func (s *state) sourceFile() *syntax.Node {
	var kids []*syntax.Node
	for !s.eof() {
		switch {
		case s.isObjectStart():
			kids = append(kids, s.object())
		case s.at("namespace"), s.at("using"):
			kids = append(kids, s.directive())
		default:
			kids = append(kids, s.topLevelError())
		}
	}
	root := s.mk("source_file", kids...)
	root.Start, root.End = 0, len(s.src)
	return root
}

// directive parses namespace and using lines up to their ';'.
func (s *state) directive() *syntax.Node {
	kind := "namespace_declaration"
	if s.at("using") {
		kind = "using_directive"
	}
	kids := []*syntax.Node{s.anon()}
	for !s.eof() && !s.at(";") && !s.isObjectStart() {
		kids = append(kids, s.anon())
	}
	kids = append(kids, s.expect(";"))
	return s.mk(kind, kids...)
}

func (s *state) topLevelError() *syntax.Node {
	start := s.cur().start
	end := s.advance().end
	for !s.eof() && !s.isObjectStart() && !s.at("namespace") && !s.at("using") {
		end = s.advance().end
	}
	return &syntax.Node{Kind: "ERROR", Named: true, Error: true, Start: start, End: end}
}

func (s *state) object() *syntax.Node {
	keyword := s.cur().lower
	kids := []*syntax.Node{s.anon()}
	if s.cur().kind == tokInteger {
		kids = append(kids, field(s.leaf("integer", true), "id"))
	}
	kids = append(kids, s.name("name"))
	if s.at("extends") {
		kids = append(kids, s.anon(), s.name("base"))
	}
	if s.at("implements") {
		kids = append(kids, field(s.implementsClause(), "implements"))
	}
	bodyless := keyword == "interface" || keyword == "controladdin"
	kids = append(kids, s.braced(bodyless)...)
	return s.mk(objectDeclarations[keyword], kids...)
}

func (s *state) implementsClause() *syntax.Node {
	kids := []*syntax.Node{s.anon()}
	kids = append(kids, s.name("interface"))
	for s.at(",") {
		kids = append(kids, s.anon(), s.name("interface"))
	}
	return s.mk("implements_clause", kids...)
}

// braced parses '{' members '}'.
func (s *state) braced(bodyless bool) []*syntax.Node {
	if !s.at("{") {
		return []*syntax.Node{s.missing("{")}
	}
	kids := []*syntax.Node{s.anon()}
	kids = append(kids, s.members(bodyless)...)
	kids = append(kids, s.expect("}"))
	return kids
}

func (s *state) members(bodyless bool) []*syntax.Node {
	var out []*syntax.Node
	for !s.eof() && !s.at("}") {
		start := s.pos
		if n := s.member(bodyless); n != nil {
			out = append(out, n)
		}
		if s.pos == start {
			out = append(out, s.errorUntil())
		}
	}
	return out
}

func (s *state) member(bodyless bool) *syntax.Node {
	t := s.cur()
	next := s.peek(1)
	switch {
	case t.is(";"):
		return s.anon()
	case t.is("["):
		return s.attribute()
	case t.is("local"), t.is("internal"), t.is("protected"):
		if next.is("procedure") {
			return s.procedure(bodyless)
		}
		if t.is("protected") && next.is("var") {
			return s.varSection()
		}
		return nil
	case t.is("procedure"):
		return s.procedure(bodyless)
	case t.is("trigger"):
		return s.trigger()
	case t.is("var"):
		return s.varSection()
	case t.is("fields") && next.is("{"):
		return s.declSection("fields_section", "field", s.fieldDeclaration)
	case t.is("keys") && next.is("{"):
		return s.declSection("keys_section", "key", func() *syntax.Node {
			return s.keyLike("key_declaration")
		})
	case t.is("fieldgroups") && next.is("{"):
		return s.declSection("fieldgroups_section", "fieldgroup", func() *syntax.Node {
			return s.keyLike("fieldgroup_declaration")
		})
	case t.is("value") && next.is("("):
		return s.enumValue()
	case isName(t) && next.is("="):
		return s.property()
	case t.kind == tokIdent && (next.is("(") || next.is("{")):
		return s.section()
	}
	return nil
}

// attribute consumes a bracketed attribute such as [EventSubscriber(...)].
func (s *state) attribute() *syntax.Node {
	start := s.cur().start
	end := start
	depth := 0
	for !s.eof() {
		t := s.advance()
		end = t.end
		if t.is("[") {
			depth++
		} else if t.is("]") {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	return &syntax.Node{Kind: "attribute", Named: true, Start: start, End: end}
}

func (s *state) accessModifier() *syntax.Node {
	if s.atAny("local", "internal", "protected") {
		return field(s.mk("access_modifier", s.anon()), "access")
	}
	return nil
}

func (s *state) procedure(bodyless bool) *syntax.Node {
	kids := []*syntax.Node{s.accessModifier(), s.anon()}
	kids = append(kids, s.name("name"))
	kids = append(kids, field(s.parameterList(), "parameters"))
	kids = append(kids, field(s.returnType(), "return_type"))
	if bodyless {
		kids = append(kids, s.expect(";"))
		return s.mk("interface_method", kids...)
	}
	kids = append(kids, s.routineBody()...)
	return s.mk("procedure_declaration", kids...)
}

func (s *state) trigger() *syntax.Node {
	kids := []*syntax.Node{s.anon(), s.name("name")}
	kids = append(kids, field(s.parameterList(), "parameters"))
	kids = append(kids, s.routineBody()...)
	return s.mk("trigger_declaration", kids...)
}

// routineBody parses the optional var section and the begin..end block of a
// procedure or trigger.
func (s *state) routineBody() []*syntax.Node {
	var kids []*syntax.Node
	if s.at(";") {
		kids = append(kids, s.anon())
	}
	if s.at("var") {
		kids = append(kids, field(s.varSection(), "vars"))
	}
	if s.at("begin") {
		kids = append(kids, field(s.block(), "body"))
	} else {
		kids = append(kids, field(s.missing("begin"), "body"))
	}
	if s.at(";") {
		kids = append(kids, s.anon())
	}
	return kids
}

func (s *state) parameterList() *syntax.Node {
	if !s.at("(") {
		return s.mk("parameter_list", s.missing("("))
	}
	kids := []*syntax.Node{s.anon()}
	for !s.eof() && !s.at(")") {
		if s.at(";") {
			kids = append(kids, s.anon())
			continue
		}
		if !s.at("var") && !isName(s.cur()) {
			break
		}
		kids = append(kids, s.parameter())
	}
	kids = append(kids, s.expect(")"))
	return s.mk("parameter_list", kids...)
}

func (s *state) parameter() *syntax.Node {
	var kids []*syntax.Node
	if s.at("var") {
		kids = append(kids, field(s.anon(), "modifier"))
	}
	kids = append(kids, s.name("name"))
	for s.at(",") {
		kids = append(kids, s.anon(), s.name("name"))
	}
	kids = append(kids, s.expect(":"), field(s.typeReference(), "type"))
	return s.mk("parameter", kids...)
}

func (s *state) returnType() *syntax.Node {
	switch {
	case s.at(":"):
		return s.mk("return_type", s.anon(), field(s.typeReference(), "type"))
	case isName(s.cur()) && s.peek(1).is(":"):
		return s.mk("return_type", s.name("name"), s.anon(), field(s.typeReference(), "type"))
	}
	return nil
}

func (s *state) varSection() *syntax.Node {
	var kids []*syntax.Node
	if s.at("protected") {
		kids = append(kids, s.anon())
	}
	kids = append(kids, s.anon())
	for isName(s.cur()) && (s.peek(1).is(":") || s.peek(1).is(",")) {
		kids = append(kids, s.variableDeclaration())
	}
	return s.mk("var_section", kids...)
}

func (s *state) variableDeclaration() *syntax.Node {
	kids := []*syntax.Node{s.name("name")}
	for s.at(",") {
		kids = append(kids, s.anon(), s.name("name"))
	}
	kids = append(kids, s.expect(":"), field(s.typeReference(), "type"), s.expect(";"))
	return s.mk("variable_declaration", kids...)
}

// typeReference parses a declared type such as Integer, Code[20],
// Record "Sales Header" temporary or array[10] of Text.
func (s *state) typeReference() *syntax.Node {
	t := s.cur()
	if t.kind != tokIdent && t.kind != tokQuoted {
		return s.missing("type_reference")
	}
	if !s.enter() {
		return s.errorToken()
	}
	defer s.leave()

	kids := []*syntax.Node{field(s.leaf("type_name", true), "kind")}
	switch keyword := t.lower; {
	case keyword == "array":
		kids = append(kids, s.balanced("[", "]")...)
		if s.at("of") {
			kids = append(kids, s.anon(), field(s.typeReference(), "element"))
		}
	case objectTypes[keyword]:
		if s.cur().kind == tokInteger {
			kids = append(kids, field(s.leaf("integer", true), "id"))
		} else if isName(s.cur()) {
			kids = append(kids, s.name("name"))
		}
	case keyword == "label":
		for !s.eof() && !s.at(";") && !s.at(")") {
			kids = append(kids, s.anon())
		}
	case keyword == "option":
		for !s.eof() && !s.at(";") && !s.at(")") && !s.at("}") {
			kids = append(kids, s.anon())
		}
	case keyword == "list" || keyword == "dictionary":
		if s.at("of") {
			kids = append(kids, s.anon())
		}
		kids = append(kids, s.balanced("[", "]")...)
	case keyword == "dotnet":
		if s.cur().kind == tokQuoted || s.cur().kind == tokIdent {
			kids = append(kids, s.anon())
		}
	default:
		kids = append(kids, s.balanced("[", "]")...)
	}
	if s.at("temporary") {
		kids = append(kids, s.anon())
	}
	return s.mk("type_reference", kids...)
}

// balanced consumes a bracketed token run as anonymous nodes, if present.
func (s *state) balanced(open, close string) []*syntax.Node {
	if !s.at(open) {
		return nil
	}
	var kids []*syntax.Node
	depth := 0
	for !s.eof() {
		t := s.cur()
		kids = append(kids, s.anon())
		if t.is(open) {
			depth++
		} else if t.is(close) {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	return kids
}

// declSection parses fields, keys and fieldgroups sections. Items that are
// not the section's declaration keyword (modify, addafter, ...) are parsed
// as ordinary members.
func (s *state) declSection(kind, item string, parseItem func() *syntax.Node) *syntax.Node {
	kids := []*syntax.Node{s.anon(), s.expect("{")}
	for !s.eof() && !s.at("}") {
		start := s.pos
		if s.at(item) && s.peek(1).is("(") {
			kids = append(kids, parseItem())
		} else if n := s.member(false); n != nil {
			kids = append(kids, n)
		}
		if s.pos == start {
			kids = append(kids, s.errorUntil())
		}
	}
	kids = append(kids, s.expect("}"))
	return s.mk(kind, kids...)
}

func (s *state) fieldDeclaration() *syntax.Node {
	kids := []*syntax.Node{s.anon(), s.expect("(")}
	if s.cur().kind == tokInteger {
		kids = append(kids, field(s.leaf("integer", true), "id"))
	} else {
		kids = append(kids, field(s.missing("integer"), "id"))
	}
	kids = append(kids, s.expect(";"), s.name("name"), s.expect(";"))
	kids = append(kids, field(s.typeReference(), "type"), s.expect(")"))
	if s.at("{") {
		kids = append(kids, s.braced(false)...)
	}
	return s.mk("field_declaration", kids...)
}

// keyLike parses key(Name; Field1, Field2) and fieldgroup(Name; Field1, ...).
func (s *state) keyLike(kind string) *syntax.Node {
	kids := []*syntax.Node{s.anon(), s.expect("("), s.name("name"), s.expect(";")}
	if isName(s.cur()) {
		kids = append(kids, s.name("field"))
		for s.at(",") {
			kids = append(kids, s.anon(), s.name("field"))
		}
	}
	kids = append(kids, s.expect(")"))
	if s.at("{") {
		kids = append(kids, s.braced(false)...)
	}
	return s.mk(kind, kids...)
}

func (s *state) enumValue() *syntax.Node {
	kids := []*syntax.Node{s.anon(), s.anon()}
	if s.cur().kind == tokInteger {
		kids = append(kids, field(s.leaf("integer", true), "id"))
	} else {
		kids = append(kids, field(s.missing("integer"), "id"))
	}
	kids = append(kids, s.expect(";"), s.name("name"), s.expect(")"))
	if s.at("{") {
		kids = append(kids, s.braced(false)...)
	}
	return s.mk("enum_value_declaration", kids...)
}

// property parses Name = value; with the value kept as a flat token run.
// Identifiers in the value stay named so object references such as
// SourceTable = Customer can be resolved.
func (s *state) property() *syntax.Node {
	kids := []*syntax.Node{field(s.leaf("property_name", true), "name"), s.anon()}
	var value []*syntax.Node
	depth := 0
	for !s.eof() {
		t := s.cur()
		if depth == 0 && (t.is(";") || t.is("}")) {
			break
		}
		switch {
		case t.is("(") || t.is("["):
			depth++
		case (t.is(")") || t.is("]")) && depth > 0:
			depth--
		}
		afterDot := s.pos > 0 && s.toks[s.pos-1].is(".")
		switch {
		case t.kind == tokIdent && (t.lower == "true" || t.lower == "false"):
			value = append(value, s.leaf("boolean", true))
		case t.kind == tokIdent && !afterDot:
			value = append(value, s.leaf("identifier", true))
		case t.kind == tokQuoted && !afterDot:
			value = append(value, s.leaf("quoted_identifier", true))
		case t.kind == tokString:
			value = append(value, s.leaf("string_literal", true))
		default:
			value = append(value, s.anon())
		}
	}
	if len(value) > 0 {
		kids = append(kids, field(s.mk("property_value", value...), "value"))
	}
	kids = append(kids, s.expect(";"))
	return s.mk("property", kids...)
}

// section parses page, report and query building blocks such as
// layout { area(Content) { field("No."; Rec."No.") { } } }.
func (s *state) section() *syntax.Node {
	keyword := s.cur().lower
	kids := []*syntax.Node{s.anon()}
	if s.at("(") {
		kids = append(kids, field(s.sectionArguments(), "arguments"))
	}
	if s.at("{") {
		kids = append(kids, s.braced(false)...)
	}
	return s.mk(sectionKind(keyword), kids...)
}

func sectionKind(keyword string) string {
	switch keyword {
	case "field":
		return "page_field"
	case "action":
		return "page_action"
	}
	return keyword + "_section"
}

func (s *state) sectionArguments() *syntax.Node {
	kids := []*syntax.Node{s.anon()}
	for !s.eof() && !s.at(")") {
		if s.at(";") || s.at(",") {
			kids = append(kids, s.anon())
			continue
		}
		if !s.atExpressionStart() {
			break
		}
		kids = append(kids, s.expression())
	}
	kids = append(kids, s.expect(")"))
	return s.mk("section_arguments", kids...)
}
