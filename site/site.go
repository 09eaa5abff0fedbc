// Package site holds the blog's identity and enhancement configuration.
//
// The built-in defaults describe the one site this toolchain serves; a YAML
// file can override them, with ${VAR} references expanded from the process
// environment (optionally seeded from .env files).
package site

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig reports a configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid site config")

// Config is the site configuration.
type Config struct {
	// Host is the absolute scheme://authority prefix of every page URL.
	Host   string `yaml:"host"`
	Title  string `yaml:"title"`
	Author string `yaml:"author"`

	Enhance EnhanceConfig `yaml:"enhance"`
}

// EnhanceConfig configures the body enhancer stages.
type EnhanceConfig struct {
	Highlight HighlightConfig `yaml:"highlight"`
	Tweets    TweetConfig     `yaml:"tweets"`
	DocLinks  DocLinkConfig   `yaml:"doclinks"`
}

// HighlightConfig configures the syntax-highlight stage.
type HighlightConfig struct {
	Engine      string `yaml:"engine"` // "pygments" or "chroma"
	Executable  string `yaml:"executable"`
	LineNumbers bool   `yaml:"line_numbers"`
	CSSClass    string `yaml:"css_class"`
}

// TweetConfig configures the tweet-embed stage.
type TweetConfig struct {
	ScanParents bool   `yaml:"scan_parents"`
	OmitScript  bool   `yaml:"omit_script"`
	DNT         bool   `yaml:"dnt"`
	Endpoint    string `yaml:"endpoint,omitempty"`
}

// DocLinkConfig configures the doc-link stage.
type DocLinkConfig struct {
	Code     bool   `yaml:"code"`
	Prose    bool   `yaml:"prose"`
	Docset   string `yaml:"docset,omitempty"`
	DocsBase string `yaml:"docs_base,omitempty"`
}

// Default returns the site's stock configuration.
func Default() *Config {
	return &Config{
		Host:   "https://blog.marstrand.io",
		Title:  "A Squirrel's Guide to Systems",
		Author: "N. Marstrand",
		Enhance: EnhanceConfig{
			Highlight: HighlightConfig{
				Engine:      "pygments",
				Executable:  "python",
				LineNumbers: false,
				CSSClass:    "source",
			},
			Tweets: TweetConfig{
				ScanParents: true,
			},
			DocLinks: DocLinkConfig{
				Code:  true,
				Prose: false,
			},
		},
	}
}

// Load reads the configuration file at path on top of the defaults. ${VAR}
// references in the file are expanded from the environment; .env/.env.local
// in the working directory seed missing variables first.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse site config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles seeds the environment from dotenv files when present.
// Existing variables are never overridden, and absent files are fine.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// Validate checks the invariants the rest of the toolchain relies on.
func (c *Config) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidConfig)
	}
	if c.Author == "" {
		return fmt.Errorf("%w: author is empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Host)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: host %q is not an absolute http(s) URL", ErrInvalidConfig, c.Host)
	}
	switch c.Enhance.Highlight.Engine {
	case "", "pygments", "chroma":
	default:
		return fmt.Errorf("%w: unknown highlight engine %q", ErrInvalidConfig, c.Enhance.Highlight.Engine)
	}
	return nil
}

// Init writes a starter configuration file with the defaults spelled out.
// An existing file is only overwritten with force.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
