package tweetembed_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/internal/htmlx"
	"github.com/marstrand/bodywork/tweetembed"
)

type fakeClient struct {
	err   error
	calls []string
}

func (f *fakeClient) Embed(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf(`<blockquote class="twitter-tweet"><a href="%s">embedded</a></blockquote>`, url), nil
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

const permalink = "https://twitter.com/somebody/status/123456789"

func markerParagraph(url string) string {
	return fmt.Sprintf(`<p><a href="%s">%s</a></p>`, url, url)
}

func TestEnhanceReplacesMarkerParagraph(t *testing.T) {
	client := &fakeClient{}
	e := tweetembed.New(client, tweetembed.DefaultOptions())

	in := parseBody(t, `<p>before</p>`+markerParagraph(permalink)+`<p>after</p>`)
	out, err := e.Enhance(context.Background(), in)
	require.NoError(t, err)

	rendered := renderBody(t, out)
	assert.Contains(t, rendered, `class="twitter-tweet"`)
	assert.Contains(t, rendered, "<p>before</p>")
	assert.Contains(t, rendered, "<p>after</p>")
	assert.NotContains(t, rendered, markerParagraph(permalink))
	assert.Equal(t, []string{permalink}, client.calls)
}

func TestEnhanceMatchesModernAndLegacyPermalinks(t *testing.T) {
	for _, url := range []string{
		"https://twitter.com/somebody/status/42",
		"https://www.twitter.com/somebody/statuses/42",
		"https://x.com/somebody/status/42",
		"http://twitter.com/some_body/status/42",
	} {
		client := &fakeClient{}
		e := tweetembed.New(client, tweetembed.DefaultOptions())

		_, err := e.Enhance(context.Background(), parseBody(t, markerParagraph(url)))
		require.NoError(t, err)
		assert.Equal(t, []string{url}, client.calls, "url %s should be a marker", url)
	}
}

func TestEnhanceIgnoresNonMarkers(t *testing.T) {
	fixtures := map[string]string{
		"extra prose in paragraph": fmt.Sprintf(`<p>look: <a href="%s">%s</a></p>`, permalink, permalink),
		"anchor text differs":      fmt.Sprintf(`<p><a href="%s">this tweet</a></p>`, permalink),
		"not a status link":        `<p><a href="https://twitter.com/somebody">https://twitter.com/somebody</a></p>`,
		"not a tweet host":         `<p><a href="https://example.com/a/status/1">https://example.com/a/status/1</a></p>`,
		"two anchors":              fmt.Sprintf(`<p><a href="%[1]s">%[1]s</a><a href="%[1]s">%[1]s</a></p>`, permalink),
		"not a paragraph":          fmt.Sprintf(`<div><a href="%s">%s</a></div>`, permalink, permalink),
	}

	for name, fixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			client := &fakeClient{}
			e := tweetembed.New(client, tweetembed.DefaultOptions())

			in := parseBody(t, fixture)
			out, err := e.Enhance(context.Background(), in)
			require.NoError(t, err)

			assert.Equal(t, renderBody(t, in), renderBody(t, out))
			assert.Empty(t, client.calls)
		})
	}
}

func TestEnhanceScanParents(t *testing.T) {
	nested := `<blockquote>` + markerParagraph(permalink) + `</blockquote>`

	t.Run("enabled finds nested markers", func(t *testing.T) {
		client := &fakeClient{}
		e := tweetembed.New(client, tweetembed.Options{ScanParents: true})

		out, err := e.Enhance(context.Background(), parseBody(t, nested))
		require.NoError(t, err)
		assert.Contains(t, renderBody(t, out), `class="twitter-tweet"`)
		assert.Equal(t, []string{permalink}, client.calls)
	})

	t.Run("disabled embeds top-level only", func(t *testing.T) {
		client := &fakeClient{}
		e := tweetembed.New(client, tweetembed.Options{ScanParents: false})

		in := parseBody(t, nested+markerParagraph(permalink))
		out, err := e.Enhance(context.Background(), in)
		require.NoError(t, err)

		rendered := renderBody(t, out)
		assert.Contains(t, rendered, markerParagraph(permalink), "nested marker must stay")
		assert.Contains(t, rendered, `class="twitter-tweet"`)
		assert.Equal(t, []string{permalink}, client.calls)
	})
}

func TestEnhanceClientFailureAborts(t *testing.T) {
	down := errors.New("service down")
	e := tweetembed.New(&fakeClient{err: down}, tweetembed.DefaultOptions())

	out, err := e.Enhance(context.Background(), parseBody(t, markerParagraph(permalink)))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, down)
}
