// Package highlight rewrites fenced code blocks into marked-up,
// syntax-highlighted HTML.
//
// The enhancer scans a body for <pre><code> blocks carrying a language
// marker and hands the block's exact text to an Engine. Blocks without a
// marker, and blocks in languages the engine does not know, pass through
// untouched. Two engines are provided: PygmentsEngine drives an external
// Python interpreter, ChromaEngine highlights in-process.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/internal/htmlx"
)

// StageName is the pipeline identifier for this enhancer.
const StageName = "syntax-highlight"

var (
	// ErrEngineUnavailable reports that the highlighting engine cannot run,
	// e.g. the configured interpreter is not on PATH.
	ErrEngineUnavailable = errors.New("highlight engine unavailable")

	// ErrUnknownLanguage reports a language marker the engine has no lexer
	// for. The enhancer treats it as "leave the block alone".
	ErrUnknownLanguage = errors.New("unknown language")
)

// Options configure how highlighted blocks are rendered.
type Options struct {
	// Executable is the interpreter PygmentsEngine invokes.
	Executable string

	// LineNumbers turns on a line-number gutter.
	LineNumbers bool

	// CSSClass is the class of the wrapper element around each block.
	CSSClass string
}

// DefaultOptions returns the stock configuration: pygments driven by
// "python", no line numbers, blocks wrapped in class "source".
func DefaultOptions() Options {
	return Options{Executable: "python", LineNumbers: false, CSSClass: "source"}
}

// Engine turns source text into highlighted HTML. Implementations return
// ErrUnknownLanguage (possibly wrapped) when they have no lexer for lang.
type Engine interface {
	Highlight(ctx context.Context, lang, code string) (string, error)
}

// Highlighter is the body enhancer. It owns no rendering itself; the engine
// decides what the replacement markup looks like.
type Highlighter struct {
	engine Engine
}

// New builds the enhancer around an engine.
func New(engine Engine) *Highlighter {
	return &Highlighter{engine: engine}
}

func (h *Highlighter) Name() string { return StageName }

// Enhance replaces each marked code block with the engine's rendering of the
// block's exact text (entities decoded, whitespace preserved). A pre holding
// several marked blocks is replaced by their renderings in order. Engine
// failures other than ErrUnknownLanguage abort the body.
func (h *Highlighter) Enhance(ctx context.Context, body enhance.Body) (enhance.Body, error) {
	pres := htmlx.FindAll(body, func(n *html.Node) bool {
		return htmlx.IsElement(n, "pre")
	})

	for _, pre := range pres {
		blocks, selfContained := markedBlocks(pre)
		if len(blocks) == 0 || !selfContained {
			continue
		}

		repl, err := h.renderBlocks(ctx, blocks)
		if err != nil {
			return nil, err
		}
		if repl == nil {
			continue
		}
		body = htmlx.ReplaceInFragment(body, pre, repl...)
	}
	return body, nil
}

// renderBlocks highlights each block and parses the results into one
// replacement fragment. A nil fragment with nil error means some block's
// language has no lexer and the pre should stay as it is.
func (h *Highlighter) renderBlocks(ctx context.Context, blocks []block) ([]*html.Node, error) {
	var repl []*html.Node
	for _, b := range blocks {
		rendered, err := h.engine.Highlight(ctx, b.lang, htmlx.Text(b.code))
		if errors.Is(err, ErrUnknownLanguage) {
			slog.Debug("no lexer for code block, leaving as-is", "language", b.lang)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("highlight %s block: %w", b.lang, err)
		}

		nodes, err := htmlx.ParseFragmentString(rendered)
		if err != nil {
			return nil, fmt.Errorf("parse highlighted %s block: %w", b.lang, err)
		}
		repl = append(repl, nodes...)
	}
	return repl, nil
}

type block struct {
	code *html.Node
	lang string
}

// markedBlocks collects pre's marked code children in document order.
// selfContained reports whether the pre holds nothing besides those blocks
// and whitespace; a pre mixing marked blocks with other content is left
// alone rather than partially rewritten.
func markedBlocks(pre *html.Node) (blocks []block, selfContained bool) {
	selfContained = true
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case htmlx.IsElement(c, "code"):
			if lang := languageOf(pre, c); lang != "" {
				blocks = append(blocks, block{code: c, lang: lang})
			} else {
				selfContained = false
			}
		default:
			selfContained = false
		}
	}
	return blocks, selfContained
}

// languageOf extracts the block's language marker. Markdown converters emit
// class="language-xyz" on the code element; older bodies mark the pre (or
// code) element with class="brush: xyz".
func languageOf(pre, code *html.Node) string {
	for _, c := range htmlx.Classes(code) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok && lang != "" {
			return lang
		}
	}
	for _, n := range []*html.Node{code, pre} {
		if lang, ok := strings.CutPrefix(htmlx.Attr(n, "class"), "brush:"); ok {
			if lang = strings.TrimSpace(lang); lang != "" {
				return lang
			}
		}
	}
	return ""
}
