package site_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marstrand/bodywork/site"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := site.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://blog.marstrand.io", cfg.Host)
	assert.Equal(t, "A Squirrel's Guide to Systems", cfg.Title)
	assert.Equal(t, "N. Marstrand", cfg.Author)

	assert.Equal(t, "pygments", cfg.Enhance.Highlight.Engine)
	assert.Equal(t, "python", cfg.Enhance.Highlight.Executable)
	assert.False(t, cfg.Enhance.Highlight.LineNumbers)
	assert.Equal(t, "source", cfg.Enhance.Highlight.CSSClass)
	assert.True(t, cfg.Enhance.Tweets.ScanParents)
	assert.True(t, cfg.Enhance.DocLinks.Code)
	assert.False(t, cfg.Enhance.DocLinks.Prose)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
title: Another Blog
enhance:
  highlight:
    engine: chroma
    line_numbers: true
  tweets:
    scan_parents: false
`)

	cfg, err := site.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Another Blog", cfg.Title)
	assert.Equal(t, "https://blog.marstrand.io", cfg.Host, "unset fields keep defaults")
	assert.Equal(t, "N. Marstrand", cfg.Author)
	assert.Equal(t, "chroma", cfg.Enhance.Highlight.Engine)
	assert.True(t, cfg.Enhance.Highlight.LineNumbers)
	assert.False(t, cfg.Enhance.Tweets.ScanParents, "explicit false wins over the true default")
	assert.True(t, cfg.Enhance.DocLinks.Code)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("BLOG_AUTHOR", "Env Author")
	path := writeConfig(t, "author: ${BLOG_AUTHOR}\n")

	cfg, err := site.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Env Author", cfg.Author)
}

func TestLoadReadsDotenvFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	defer func() { _ = os.Unsetenv("BLOG_TITLE") }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BLOG_TITLE=Dotenv Title\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.yaml"), []byte("title: ${BLOG_TITLE}\n"), 0o644))

	cfg, err := site.Load("site.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Dotenv Title", cfg.Title)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := site.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := map[string]func(*site.Config){
		"empty title":    func(c *site.Config) { c.Title = "" },
		"empty author":   func(c *site.Config) { c.Author = "" },
		"relative host":  func(c *site.Config) { c.Host = "/blog" },
		"bad scheme":     func(c *site.Config) { c.Host = "ftp://blog.marstrand.io" },
		"unknown engine": func(c *site.Config) { c.Enhance.Highlight.Engine = "prism" },
		"no host at all": func(c *site.Config) { c.Host = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := site.Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, site.ErrInvalidConfig)
		})
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, site.Init(path, false))

	cfg, err := site.Load(path)
	require.NoError(t, err)
	assert.Equal(t, site.Default(), cfg)

	require.Error(t, site.Init(path, false), "refuses to clobber without force")
	require.NoError(t, site.Init(path, true))
}
