// Package doclink turns identifier mentions into links to reference
// documentation.
//
// The annotator asks a Resolver for each candidate identifier. Inline code
// spans are candidates when their whole text resolves; running prose can be
// tokenized too, though that is off unless asked for. Code blocks, existing
// links and anything the resolver does not know stay untouched.
package doclink

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/internal/htmlx"
)

// StageName is the pipeline identifier for this enhancer.
const StageName = "doc-link"

// Resolver maps an identifier to its documentation URL.
type Resolver interface {
	Resolve(ident string) (url string, ok bool)
}

// StaticResolver resolves from a fixed table. Handy for tests and for small
// hand-maintained glossaries.
type StaticResolver map[string]string

func (r StaticResolver) Resolve(ident string) (string, bool) {
	u, ok := r[ident]
	return u, ok
}

// Options select which content gets annotated.
type Options struct {
	// Code annotates inline code spans whose entire text is a known
	// identifier.
	Code bool

	// Prose annotates bare identifiers inside running text. Noisy on
	// ordinary words, so off by default.
	Prose bool
}

// DefaultOptions returns the stock configuration: code spans yes, prose no.
func DefaultOptions() Options {
	return Options{Code: true, Prose: false}
}

// Annotator is the body enhancer.
type Annotator struct {
	resolver Resolver
	opts     Options
}

// New builds the enhancer around a resolver.
func New(resolver Resolver, opts Options) *Annotator {
	return &Annotator{resolver: resolver, opts: opts}
}

func (a *Annotator) Name() string { return StageName }

// Enhance adds documentation links. It never fails: an identifier the
// resolver does not know is simply left alone.
func (a *Annotator) Enhance(_ context.Context, body enhance.Body) (enhance.Body, error) {
	if a.opts.Code {
		a.annotateCodeSpans(body)
	}
	if a.opts.Prose {
		body = a.annotateProse(body)
	}
	return body, nil
}

func (a *Annotator) annotateCodeSpans(body enhance.Body) {
	spans := htmlx.FindAll(body, func(n *html.Node) bool {
		return htmlx.IsElement(n, "code") && !skipContext(n)
	})
	for _, code := range spans {
		ident := htmlx.Text(code)
		url, ok := a.resolver.Resolve(ident)
		if !ok {
			continue
		}
		anchor := newAnchor(url)
		for c := code.FirstChild; c != nil; c = code.FirstChild {
			code.RemoveChild(c)
			anchor.AppendChild(c)
		}
		code.AppendChild(anchor)
	}
}

func (a *Annotator) annotateProse(body enhance.Body) enhance.Body {
	texts := htmlx.FindAll(body, func(n *html.Node) bool {
		if n.Type != html.TextNode {
			return false
		}
		// Prose annotation additionally keeps out of inline code; the code
		// pass owns those.
		return !skipContext(n) && !htmlx.HasAncestor(n, func(p *html.Node) bool {
			return htmlx.IsElement(p, "code")
		})
	})
	for _, tn := range texts {
		if repl := a.annotateTokens(tn.Data); repl != nil {
			body = htmlx.ReplaceInFragment(body, tn, repl...)
		}
	}
	return body
}

var tokenRe = regexp.MustCompile(`\S+`)

// annotateTokens splits text into whitespace-delimited tokens and links the
// ones the resolver knows, trailing punctuation excluded. Returns nil when
// nothing matched.
func (a *Annotator) annotateTokens(text string) []*html.Node {
	var (
		out     []*html.Node
		last    int
		matched bool
	)
	for _, loc := range tokenRe.FindAllStringIndex(text, -1) {
		tok := text[loc[0]:loc[1]]
		ident := strings.TrimRight(tok, `.,;:!?"')`)
		if ident == "" {
			continue
		}
		url, ok := a.resolver.Resolve(ident)
		if !ok {
			continue
		}
		matched = true
		end := loc[0] + len(ident)
		if loc[0] > last {
			out = append(out, textNode(text[last:loc[0]]))
		}
		anchor := newAnchor(url)
		anchor.AppendChild(textNode(ident))
		out = append(out, anchor)
		last = end
	}
	if !matched {
		return nil
	}
	if last < len(text) {
		out = append(out, textNode(text[last:]))
	}
	return out
}

// skipContext reports whether n sits where annotation would be wrong: inside
// an existing link, a code block, or non-content elements.
func skipContext(n *html.Node) bool {
	return htmlx.HasAncestor(n, func(p *html.Node) bool {
		switch {
		case htmlx.IsElement(p, "a"), htmlx.IsElement(p, "pre"):
			return true
		case htmlx.IsElement(p, "script"), htmlx.IsElement(p, "style"):
			return true
		}
		return false
	})
}

func newAnchor(url string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr:     []html.Attribute{{Key: "href", Val: url}},
	}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
