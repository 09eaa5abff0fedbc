package enhance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/internal/htmlx"
)

type fakeEnhancer struct {
	name string
	fn   func(ctx context.Context, body enhance.Body) (enhance.Body, error)
}

func (f fakeEnhancer) Name() string { return f.name }

func (f fakeEnhancer) Enhance(ctx context.Context, body enhance.Body) (enhance.Body, error) {
	if f.fn == nil {
		return body, nil
	}
	return f.fn(ctx, body)
}

func recording(name string, calls *[]string) fakeEnhancer {
	return fakeEnhancer{name: name, fn: func(_ context.Context, body enhance.Body) (enhance.Body, error) {
		*calls = append(*calls, name)
		return body, nil
	}}
}

func parseBody(t *testing.T, s string) enhance.Body {
	t.Helper()
	nodes, err := htmlx.ParseFragmentString(s)
	require.NoError(t, err)
	return nodes
}

func renderBody(t *testing.T, body enhance.Body) string {
	t.Helper()
	s, err := htmlx.RenderFragmentString(body)
	require.NoError(t, err)
	return s
}

func TestEnhanceBodyAppliesStagesInOrder(t *testing.T) {
	var calls []string
	p := enhance.New([]enhance.Enhancer{
		recording("first", &calls),
		recording("second", &calls),
		recording("third", &calls),
	})

	_, err := p.EnhanceBody(context.Background(), parseBody(t, "<p>hi</p>"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestEnhanceBodyEmptyInputRunsEveryStage(t *testing.T) {
	var calls []string
	p := enhance.New([]enhance.Enhancer{
		recording("a", &calls),
		recording("b", &calls),
	})

	out, err := p.EnhanceBody(context.Background(), enhance.Body{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestEnhanceBodyDoesNotMutateCallerInput(t *testing.T) {
	in := parseBody(t, `<p>keep me</p><pre><code>x</code></pre>`)
	before := renderBody(t, in)

	mutate := fakeEnhancer{name: "mutate", fn: func(_ context.Context, body enhance.Body) (enhance.Body, error) {
		for _, n := range body {
			if n.Type == html.ElementNode {
				n.Attr = append(n.Attr, html.Attribute{Key: "data-touched", Val: "yes"})
			}
		}
		return body, nil
	}}

	out, err := enhance.New([]enhance.Enhancer{mutate}).EnhanceBody(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, before, renderBody(t, in), "caller's tree must stay untouched")
	assert.Contains(t, renderBody(t, out), "data-touched")
}

func TestEnhanceBodyPassThroughKeepsStructure(t *testing.T) {
	in := parseBody(t, `<h1>title</h1><p>some <em>rich</em> text</p><ul><li>one</li></ul>`)
	p := enhance.New([]enhance.Enhancer{
		fakeEnhancer{name: "noop-1"},
		fakeEnhancer{name: "noop-2"},
	})

	out, err := p.EnhanceBody(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, renderBody(t, in), renderBody(t, out))
}

func TestEnhanceBodyStageErrorAbortsChain(t *testing.T) {
	boom := errors.New("boom")
	var calls []string

	p := enhance.New([]enhance.Enhancer{
		recording("ok", &calls),
		fakeEnhancer{name: "explode", fn: func(context.Context, enhance.Body) (enhance.Body, error) {
			return nil, boom
		}},
		recording("never", &calls),
	})

	out, err := p.EnhanceBody(context.Background(), parseBody(t, "<p>x</p>"))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, []string{"ok"}, calls)

	var se *enhance.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "explode", se.Stage)
	assert.ErrorIs(t, err, boom)
}

func TestEnhanceBodyCanceledContext(t *testing.T) {
	var calls []string
	p := enhance.New([]enhance.Enhancer{recording("a", &calls)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.EnhanceBody(ctx, parseBody(t, "<p>x</p>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestStagesReportsNamesInOrder(t *testing.T) {
	p := enhance.New([]enhance.Enhancer{
		fakeEnhancer{name: "syntax-highlight"},
		fakeEnhancer{name: "tweet-embed"},
		fakeEnhancer{name: "doc-link"},
	})
	assert.Equal(t, []string{"syntax-highlight", "tweet-embed", "doc-link"}, p.Stages())
}

func TestEnhanceAllPreservesOrder(t *testing.T) {
	p := enhance.New([]enhance.Enhancer{fakeEnhancer{name: "noop"}})
	bodies := []enhance.Body{
		parseBody(t, "<p>one</p>"),
		parseBody(t, "<p>two</p>"),
		parseBody(t, "<p>three</p>"),
	}

	out, err := p.EnhanceAll(context.Background(), bodies, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "<p>one</p>", renderBody(t, out[0]))
	assert.Equal(t, "<p>two</p>", renderBody(t, out[1]))
	assert.Equal(t, "<p>three</p>", renderBody(t, out[2]))
}

func TestEnhanceAllPropagatesFirstError(t *testing.T) {
	boom := errors.New("bad page")
	p := enhance.New([]enhance.Enhancer{
		fakeEnhancer{name: "picky", fn: func(_ context.Context, body enhance.Body) (enhance.Body, error) {
			if len(body) > 0 && htmlx.Text(body[0]) == "two" {
				return nil, boom
			}
			return body, nil
		}},
	})

	bodies := []enhance.Body{
		parseBody(t, "<p>one</p>"),
		parseBody(t, "<p>two</p>"),
	}

	out, err := p.EnhanceAll(context.Background(), bodies, 0)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, boom)
}
