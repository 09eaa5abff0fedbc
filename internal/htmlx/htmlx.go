// Package htmlx carries the small set of x/net/html node helpers shared by
// the body enhancers: attribute and class lookup, text extraction, fragment
// parse/render, deep cloning, and in-tree node replacement.
package htmlx

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Classes returns the whitespace-split class list of an element node.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// IsElement reports whether n is an element node with the given tag name.
func IsElement(n *html.Node, name string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == name
}

// Text returns the concatenated text content of n and its descendants.
// No whitespace normalization is applied; code spans need exact content.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(Text(c))
	}
	return b.String()
}

// FindAll collects, in document order, every node in the fragment for which
// match returns true. Matches are collected before any caller mutation, so
// the returned nodes may be replaced or rewritten without upsetting the walk.
func FindAll(body []*html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range body {
		walk(n)
	}
	return out
}

// HasAncestor reports whether any ancestor of n satisfies match. The walk
// stops at the fragment boundary (nodes with a nil parent).
func HasAncestor(n *html.Node, match func(*html.Node) bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return true
		}
	}
	return false
}
