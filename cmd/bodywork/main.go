package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/marstrand/bodywork/blog"
	"github.com/marstrand/bodywork/doclink"
	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/highlight"
	"github.com/marstrand/bodywork/internal/htmlx"
	"github.com/marstrand/bodywork/internal/version"
	"github.com/marstrand/bodywork/site"
)

var CLI struct {
	Config  string           `short:"c" help:"Site configuration file path" default:"site.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `short:"V" help:"Print version and exit"`

	Enhance struct {
		Inputs   []string `arg:"" optional:"" help:"Input files (default stdin)"`
		Output   string   `short:"o" help:"Output file for a single input (default stdout)"`
		OutDir   string   `help:"Output directory when enhancing several files"`
		Markdown bool     `short:"m" help:"Treat input as Markdown and convert it first"`
		Jobs     int      `short:"j" help:"Concurrent pages when enhancing several files" default:"4"`

		Engine        string `help:"Highlight engine, overriding the config (pygments or chroma)"`
		Docset        string `help:"Docset search index for documentation links"`
		DocsBase      string `help:"Base URL documentation links point into"`
		NoEmbedScript bool   `help:"Ask the embed service to leave out its script tag"`
	} `cmd:"" help:"Run page bodies through the enhancement chain"`

	CSS struct{} `cmd:"" help:"Write the stylesheet for chroma-highlighted blocks to stdout"`

	Clean struct{} `cmd:"" help:"Run the post-clean hook"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Vars{"version": version.String()})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "enhance", "enhance <inputs>":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runEnhance(ctx, cfg); err != nil {
			slog.Error("Enhance failed", "error", err)
			os.Exit(1)
		}
	case "css":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runCSS(cfg); err != nil {
			slog.Error("CSS failed", "error", err)
			os.Exit(1)
		}
	case "clean":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runClean(ctx, cfg); err != nil {
			slog.Error("Clean failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := site.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Wrote starter configuration", "path", CLI.Config)
	}
}

// loadConfig falls back to the built-in site when the default config file is
// simply absent; a path the user named explicitly must exist.
func loadConfig() (*site.Config, error) {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) && CLI.Config == "site.yaml" {
		slog.Debug("no config file found, using built-in defaults")
		return site.Default(), nil
	}
	return site.Load(CLI.Config)
}

func buildDeps(ctx context.Context, cfg *site.Config) (blog.Deps, error) {
	engine, err := blog.EngineFromConfig(cfg.Enhance.Highlight)
	if err != nil {
		return blog.Deps{}, err
	}
	resolver, err := blog.ResolverFromConfig(ctx, cfg.Enhance.DocLinks)
	if err != nil {
		return blog.Deps{}, err
	}
	return blog.Deps{
		Engine: engine,
		Tweets: blog.ClientFromConfig(cfg.Enhance.Tweets),
		Docs:   resolver,
	}, nil
}

// applyEnhanceFlags folds the enhance command's override flags into the
// loaded configuration.
func applyEnhanceFlags(cfg *site.Config) {
	if CLI.Enhance.Engine != "" {
		cfg.Enhance.Highlight.Engine = CLI.Enhance.Engine
	}
	if CLI.Enhance.Docset != "" {
		cfg.Enhance.DocLinks.Docset = CLI.Enhance.Docset
	}
	if CLI.Enhance.DocsBase != "" {
		cfg.Enhance.DocLinks.DocsBase = CLI.Enhance.DocsBase
	}
	if CLI.Enhance.NoEmbedScript {
		cfg.Enhance.Tweets.OmitScript = true
	}
}

func runEnhance(ctx context.Context, cfg *site.Config) error {
	applyEnhanceFlags(cfg)
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	hooks, err := blog.NewHooks(cfg, deps)
	if err != nil {
		return err
	}
	if err := hooks.Startup(ctx); err != nil {
		return err
	}

	inputs := CLI.Enhance.Inputs
	if len(inputs) > 1 && CLI.Enhance.OutDir == "" {
		return errors.New("enhancing several files needs --out-dir")
	}
	if len(inputs) <= 1 {
		return enhanceOne(ctx, hooks, inputs)
	}
	return enhanceMany(ctx, hooks, inputs)
}

func enhanceOne(ctx context.Context, hooks *blog.Hooks, inputs []string) error {
	var (
		data []byte
		err  error
		name = "stdin"
	)
	if len(inputs) == 1 {
		name = inputs[0]
		data, err = os.ReadFile(name)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	body, err := toBody(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	out, err := hooks.EnhanceBody(ctx, body)
	if err != nil {
		return err
	}

	dst := os.Stdout
	switch {
	case CLI.Enhance.Output != "":
		f, err := os.Create(CLI.Enhance.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	case CLI.Enhance.OutDir != "" && len(inputs) == 1:
		f, err := os.Create(outputPath(CLI.Enhance.OutDir, inputs[0], CLI.Enhance.Markdown))
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}
	return htmlx.RenderFragment(dst, out)
}

func enhanceMany(ctx context.Context, hooks *blog.Hooks, inputs []string) error {
	outs, err := planOutputs(CLI.Enhance.OutDir, inputs, CLI.Enhance.Markdown)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(CLI.Enhance.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	bodies := make([]enhance.Body, len(inputs))
	for i, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("read %s: %w", in, err)
		}
		if bodies[i], err = toBody(data); err != nil {
			return fmt.Errorf("parse %s: %w", in, err)
		}
	}

	enhanced, err := hooks.EnhanceAll(ctx, bodies, CLI.Enhance.Jobs)
	if err != nil {
		return err
	}

	for i, body := range enhanced {
		path := outs[i]
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := htmlx.RenderFragment(f, body); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Debug("enhanced page written", "input", inputs[i], "output", path)
	}
	slog.Info("Enhanced pages", "count", len(enhanced), "dir", CLI.Enhance.OutDir)
	return nil
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

func toBody(data []byte) (enhance.Body, error) {
	if CLI.Enhance.Markdown {
		var buf bytes.Buffer
		if err := markdown.Convert(data, &buf); err != nil {
			return nil, fmt.Errorf("convert markdown: %w", err)
		}
		data = buf.Bytes()
	}
	return htmlx.ParseFragment(bytes.NewReader(data))
}

func outputPath(outDir, in string, md bool) string {
	base := filepath.Base(in)
	if md {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".html"
	}
	return filepath.Join(outDir, base)
}

// planOutputs maps each input to its file under outDir. Outputs are named by
// basename, so two inputs from different directories can land on the same
// file; that is rejected rather than silently overwritten.
func planOutputs(outDir string, inputs []string, md bool) ([]string, error) {
	outs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		p := outputPath(outDir, in, md)
		if prev, ok := seen[p]; ok {
			return nil, fmt.Errorf("%s and %s both write to %s", prev, in, p)
		}
		seen[p] = in
		outs[i] = p
	}
	return outs, nil
}

func runCSS(cfg *site.Config) error {
	engine := highlight.NewChromaEngine(highlight.Options{
		LineNumbers: cfg.Enhance.Highlight.LineNumbers,
		CSSClass:    cfg.Enhance.Highlight.CSSClass,
	})
	return engine.WriteCSS(os.Stdout)
}

func runClean(ctx context.Context, cfg *site.Config) error {
	hooks, err := blog.NewHooks(cfg, blog.Deps{
		Engine: highlight.NewChromaEngine(highlight.DefaultOptions()),
		Tweets: blog.ClientFromConfig(cfg.Enhance.Tweets),
		Docs:   doclink.StaticResolver{},
	})
	if err != nil {
		return err
	}
	if err := hooks.Clean(ctx); err != nil {
		return err
	}
	slog.Info("Clean hook finished", "site", cfg.Title)
	return nil
}
