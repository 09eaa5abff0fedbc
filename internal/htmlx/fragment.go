package htmlx

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses an HTML fragment as the contents of a <div>, returning
// the top-level nodes fully detached (nil parent, nil siblings).
func ParseFragment(r io.Reader) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	return html.ParseFragment(r, ctx)
}

// ParseFragmentString is ParseFragment over an in-memory string.
func ParseFragmentString(s string) ([]*html.Node, error) {
	return ParseFragment(strings.NewReader(s))
}

// RenderFragment writes each top-level node of the fragment in order.
func RenderFragment(w io.Writer, body []*html.Node) error {
	for _, n := range body {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

// RenderFragmentString renders a fragment to a string.
func RenderFragmentString(body []*html.Node) (string, error) {
	var b strings.Builder
	if err := RenderFragment(&b, body); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Clone deep-copies a node and its subtree. The copy is detached: nil parent,
// nil siblings, freshly linked children.
func Clone(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// CloneFragment deep-copies every top-level node of a fragment.
func CloneFragment(body []*html.Node) []*html.Node {
	if body == nil {
		return nil
	}
	out := make([]*html.Node, len(body))
	for i, n := range body {
		out[i] = Clone(n)
	}
	return out
}

// Replace substitutes old with the given nodes inside old's parent. The
// replacement nodes must be detached. Top-level fragment nodes have no
// parent; callers splice those in their own slice instead.
func Replace(old *html.Node, with ...*html.Node) {
	p := old.Parent
	if p == nil {
		return
	}
	for _, n := range with {
		p.InsertBefore(n, old)
	}
	p.RemoveChild(old)
}

// ReplaceInFragment replaces old wherever it sits: spliced into the top-level
// sequence when old is one of body's own nodes, via Replace when it is
// nested. Returns the updated top-level sequence.
func ReplaceInFragment(body []*html.Node, old *html.Node, with ...*html.Node) []*html.Node {
	if old.Parent != nil {
		Replace(old, with...)
		return body
	}
	for i, n := range body {
		if n == old {
			out := make([]*html.Node, 0, len(body)-1+len(with))
			out = append(out, body[:i]...)
			out = append(out, with...)
			out = append(out, body[i+1:]...)
			return out
		}
	}
	return body
}
