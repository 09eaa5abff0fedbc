package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanOutputs(t *testing.T) {
	t.Run("distinct basenames", func(t *testing.T) {
		outs, err := planOutputs("out", []string{"posts/a.html", "drafts/b.html"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join("out", "a.html"),
			filepath.Join("out", "b.html"),
		}, outs)
	})

	t.Run("markdown inputs swap the extension", func(t *testing.T) {
		outs, err := planOutputs("out", []string{"posts/a.md"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join("out", "a.html")}, outs)
	})

	t.Run("same basename from different directories", func(t *testing.T) {
		outs, err := planOutputs("out", []string{"a/index.html", "b/index.html"}, false)
		require.Error(t, err)
		assert.Nil(t, outs)
		assert.ErrorContains(t, err, "a/index.html")
		assert.ErrorContains(t, err, "b/index.html")
	})

	t.Run("markdown folds distinct extensions together", func(t *testing.T) {
		_, err := planOutputs("out", []string{"a.md", "a.markdown"}, true)
		require.Error(t, err)
		assert.ErrorContains(t, err, filepath.Join("out", "a.html"))
	})
}
