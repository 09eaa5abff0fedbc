package highlight

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// ChromaEngine highlights in-process with the Chroma library. It emits
// class-based markup (no inline styles) wrapped in a div carrying the
// configured CSS class, so one stylesheet covers every block.
type ChromaEngine struct {
	opts      Options
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

// NewChromaEngine builds the engine. The Executable option is ignored;
// nothing external runs.
func NewChromaEngine(opts Options) *ChromaEngine {
	if opts.CSSClass == "" {
		opts.CSSClass = DefaultOptions().CSSClass
	}
	fopts := []chromahtml.Option{chromahtml.WithClasses(true)}
	if opts.LineNumbers {
		fopts = append(fopts, chromahtml.WithLineNumbers(true))
	}
	return &ChromaEngine{
		opts:      opts,
		formatter: chromahtml.New(fopts...),
		style:     styles.Fallback,
	}
}

func (e *ChromaEngine) Highlight(_ context.Context, lang, code string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", fmt.Errorf("%s: %w", lang, ErrUnknownLanguage)
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", lang, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class=%q>`, e.opts.CSSClass)
	if err := e.formatter.Format(&b, e.style, it); err != nil {
		return "", fmt.Errorf("format %s: %w", lang, err)
	}
	b.WriteString("</div>")
	return b.String(), nil
}

// WriteCSS emits the stylesheet matching the class-based markup Highlight
// produces.
func (e *ChromaEngine) WriteCSS(w io.Writer) error {
	return e.formatter.WriteCSS(w, e.style)
}
