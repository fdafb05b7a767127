package syntax

import "fmt"

// SyntaxError is a recovered parse problem reported by ERROR or MISSING nodes.
type SyntaxError struct {
	Span    Span   `json:"span"`
	Start   Point  `json:"start"`
	End     Point  `json:"end"`
	Message string `json:"message"`
}

const maxErrorText = 40

// Errors collects one SyntaxError per ERROR or MISSING node, in source order.
// Children of an ERROR node are not reported separately.
func (t *Tree) Errors() []SyntaxError {
	if t == nil || t.Root == nil {
		return nil
	}
	var out []SyntaxError
	t.Root.Walk(func(n *Node) bool {
		switch {
		case n.Error:
			text := n.Text(t.Source)
			if len(text) > maxErrorText {
				text = text[:maxErrorText] + "..."
			}
			out = append(out, SyntaxError{
				Span:    n.Span(),
				Start:   n.StartPoint,
				End:     n.EndPoint,
				Message: fmt.Sprintf("Syntax error: unexpected `%s`", text),
			})
			return false
		case n.Missing:
			out = append(out, SyntaxError{
				Span:    n.Span(),
				Start:   n.StartPoint,
				End:     n.EndPoint,
				Message: fmt.Sprintf("Expected `%s`", n.Kind),
			})
			return false
		}
		return true
	})
	return out
}
