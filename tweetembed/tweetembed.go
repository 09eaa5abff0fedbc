// Package tweetembed replaces bare tweet links with embedded tweets.
//
// A paragraph whose only content is an auto-linked tweet permalink (the
// anchor text repeats the URL, nothing else in the paragraph) is treated as
// an embed marker. The enhancer swaps each marker for the markup returned by
// a Client, typically the publish.twitter.com oEmbed endpoint. Paragraphs
// that merely mention a tweet inline keep their link.
package tweetembed

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/internal/htmlx"
)

// StageName is the pipeline identifier for this enhancer.
const StageName = "tweet-embed"

// Status permalinks, old and new hostnames, old /statuses/ form included.
var tweetURL = regexp.MustCompile(`^https?://(?:www\.)?(?:twitter\.com|x\.com)/[A-Za-z0-9_]+/status(?:es)?/[0-9]+(?:\?\S*)?$`)

// Options configure marker discovery.
type Options struct {
	// ScanParents also matches markers nested inside parent elements
	// (blockquotes, list items, divs). When false only top-level paragraphs
	// of the body are considered.
	ScanParents bool
}

// DefaultOptions returns the stock configuration: nested markers are
// embedded too.
func DefaultOptions() Options {
	return Options{ScanParents: true}
}

// Client fetches embeddable markup for one tweet permalink.
type Client interface {
	Embed(ctx context.Context, tweetURL string) (string, error)
}

// Embedder is the body enhancer.
type Embedder struct {
	client Client
	opts   Options
}

// New builds the enhancer around a client.
func New(client Client, opts Options) *Embedder {
	return &Embedder{client: client, opts: opts}
}

func (e *Embedder) Name() string { return StageName }

// Enhance replaces every embed marker with the client's markup. A client
// failure aborts the body; the service being down is not a reason to publish
// a page that silently lost its tweets.
func (e *Embedder) Enhance(ctx context.Context, body enhance.Body) (enhance.Body, error) {
	for _, m := range markers(body, e.opts.ScanParents) {
		embedded, err := e.client.Embed(ctx, m.url)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", m.url, err)
		}
		repl, err := htmlx.ParseFragmentString(embedded)
		if err != nil {
			return nil, fmt.Errorf("parse embed for %s: %w", m.url, err)
		}
		body = htmlx.ReplaceInFragment(body, m.node, repl...)
	}
	return body, nil
}

type marker struct {
	node *html.Node
	url  string
}

func markers(body enhance.Body, scanParents bool) []marker {
	var out []marker
	add := func(n *html.Node) {
		if url, ok := markerURL(n); ok {
			out = append(out, marker{node: n, url: url})
		}
	}
	if scanParents {
		for _, n := range htmlx.FindAll(body, func(n *html.Node) bool { return htmlx.IsElement(n, "p") }) {
			add(n)
		}
		return out
	}
	for _, n := range body {
		if htmlx.IsElement(n, "p") {
			add(n)
		}
	}
	return out
}

// markerURL reports whether p is an embed marker: its sole element child is
// an anchor whose text repeats its href, the href is a tweet permalink, and
// any other children are whitespace.
func markerURL(p *html.Node) (string, bool) {
	var anchor *html.Node
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && htmlx.IsElement(c, "a") && anchor == nil:
			anchor = c
		default:
			return "", false
		}
	}
	if anchor == nil {
		return "", false
	}
	href := htmlx.Attr(anchor, "href")
	if !tweetURL.MatchString(href) {
		return "", false
	}
	if strings.TrimSpace(htmlx.Text(anchor)) != href {
		return "", false
	}
	return href, true
}
