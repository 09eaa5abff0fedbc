package highlight_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marstrand/bodywork/highlight"
)

func TestChromaEngineHighlightsGo(t *testing.T) {
	eng := highlight.NewChromaEngine(highlight.DefaultOptions())

	out, err := eng.Highlight(context.Background(), "go", "package main\n")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<div class="source">`), "wrapper class, got: %s", out)
	assert.Contains(t, out, "chroma")
	assert.Contains(t, out, "package")
}

func TestChromaEngineUnknownLanguage(t *testing.T) {
	eng := highlight.NewChromaEngine(highlight.DefaultOptions())

	_, err := eng.Highlight(context.Background(), "not-a-language-anyone-knows", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, highlight.ErrUnknownLanguage)
}

func TestChromaEngineWriteCSS(t *testing.T) {
	eng := highlight.NewChromaEngine(highlight.DefaultOptions())

	var b strings.Builder
	require.NoError(t, eng.WriteCSS(&b))
	assert.Contains(t, b.String(), ".chroma")
}
