package nav

import (
	"strconv"
	"strings"

	"github.com/jward/alnav/internal/symbols"
	"github.com/jward/alnav/internal/syntax"
)

// Definition returns the declaration of the identifier at pos. A call
// through an interface-typed variable resolves to the interface method. On
// the name of a procedure that implements an interface method, the interface
// method is returned. Nil means nothing resolvable is under the cursor.
func (r *Resolver) Definition(uri string, pos syntax.Point) []Location {
	_, occ, res, ok := r.target(uri, pos)
	if !ok {
		return nil
	}
	if occ.Role == symbols.RoleDeclaration {
		if ifaces := r.interfaceMethods(res); len(ifaces) > 0 {
			out := make([]Location, 0, len(ifaces))
			for _, m := range ifaces {
				out = append(out, nameLocation(m))
			}
			return out
		}
	}
	return []Location{nameLocation(res)}
}

// Implementations returns the implementing procedures of the interface method
// at pos, or the implementing objects of the interface at pos.
func (r *Resolver) Implementations(uri string, pos syntax.Point) []Location {
	_, _, res, ok := r.target(uri, pos)
	if !ok {
		return nil
	}
	var out []Location
	switch {
	case res.Symbol.IsInterfaceMethod():
		for _, impl := range r.implementors(res) {
			out = append(out, nameLocation(impl))
		}
	case res.Symbol.Kind == symbols.KindInterface:
		for _, e := range r.snap.Implementors(res.Symbol.Name) {
			out = append(out, nameLocation(e.Resolved()))
		}
	}
	return out
}

// TypeDefinition returns the object declaration named by the declared type
// of the variable, parameter, field or procedure at pos.
func (r *Resolver) TypeDefinition(uri string, pos syntax.Point) []Location {
	_, _, res, ok := r.target(uri, pos)
	if !ok {
		return nil
	}
	e, ok := r.typeEntry(res)
	if !ok {
		return nil
	}
	return []Location{nameLocation(e.Resolved())}
}

// Hover describes the symbol under the cursor.
type Hover struct {
	Contents string   `json:"contents"` // markdown
	Range    Location `json:"range"`
}

// Hover renders kind, name and declared type of the identifier at pos.
func (r *Resolver) Hover(uri string, pos syntax.Point) *Hover {
	doc, occ, res, ok := r.target(uri, pos)
	if !ok {
		return nil
	}
	return &Hover{
		Contents: "```al\n" + r.describe(res) + "\n```",
		Range:    occurrenceLocation(doc.URI, occ),
	}
}

func (r *Resolver) describe(res symbols.Resolved) string {
	s := res.Symbol
	name := symbols.Render(s.Name)
	switch {
	case s.Kind.IsObject():
		var b strings.Builder
		b.WriteString("(" + s.Kind.String())
		if s.ObjectID != 0 {
			b.WriteString(" " + strconv.Itoa(s.ObjectID))
		}
		b.WriteString(") " + name)
		if s.Extends != "" {
			b.WriteString(" extends " + symbols.Render(s.Extends))
		}
		if len(s.Implements) > 0 {
			impl := make([]string, len(s.Implements))
			for i, n := range s.Implements {
				impl[i] = symbols.Render(n)
			}
			b.WriteString(" implements " + strings.Join(impl, ", "))
		}
		return b.String()
	case s.Kind == symbols.KindProcedure || s.Kind == symbols.KindTrigger:
		prefix := ""
		if s.Access != symbols.AccessPublic {
			prefix = s.Access.String() + " "
		}
		return "(" + prefix + s.Kind.String() + ") " + Signature(res)
	case s.Kind == symbols.KindParameter:
		return "(parameter) " + paramLabel(s)
	case s.Type != nil:
		return "(" + s.Kind.String() + ") " + name + ": " + s.Type.Text
	}
	return "(" + s.Kind.String() + ") " + name
}

// Signature renders Name(a: T; var b: U): R.
func Signature(res symbols.Resolved) string {
	params := res.Table.Parameters(res.Symbol)
	labels := make([]string, len(params))
	for i, p := range params {
		labels[i] = paramLabel(p)
	}
	sig := symbols.Render(res.Symbol.Name) + "(" + strings.Join(labels, "; ") + ")"
	if res.Symbol.Return != nil {
		sig += ": " + res.Symbol.Return.Text
	}
	return sig
}

func paramLabel(p *symbols.Symbol) string {
	label := symbols.Render(p.Name)
	if p.Type != nil {
		label += ": " + p.Type.Text
	}
	if p.VarParam {
		label = "var " + label
	}
	return label
}
