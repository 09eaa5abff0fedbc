// Package blog assembles the site's generator hooks: a startup hook that
// fixes the site identity, the per-page body enhancement chain, and a
// post-clean hook.
//
// The enhancement chain is deliberately fixed. Every page gets, in order,
// syntax highlighting, tweet embedding and documentation links; the stages'
// behavior is tuned through site.Config, not by rearranging the chain.
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/marstrand/bodywork/doclink"
	"github.com/marstrand/bodywork/enhance"
	"github.com/marstrand/bodywork/highlight"
	"github.com/marstrand/bodywork/site"
	"github.com/marstrand/bodywork/tweetembed"
)

// Deps are the external services the enhancement chain talks to. All three
// are required; the chain never silently skips a stage.
type Deps struct {
	Engine highlight.Engine
	Tweets tweetembed.Client
	Docs   doclink.Resolver
}

// Hooks are the generator's lifecycle callbacks for one site.
type Hooks struct {
	cfg      *site.Config
	pipeline *enhance.Pipeline

	startOnce sync.Once
	started   atomic.Bool
}

// NewHooks validates cfg (nil means the stock configuration) and wires the
// standard three-stage chain around the given services.
func NewHooks(cfg *site.Config, deps Deps, opts ...enhance.Option) (*Hooks, error) {
	if cfg == nil {
		cfg = site.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Engine == nil || deps.Tweets == nil || deps.Docs == nil {
		return nil, errors.New("blog: enhancement chain needs an engine, a tweet client and a doc resolver")
	}

	pipeline := enhance.New([]enhance.Enhancer{
		highlight.New(deps.Engine),
		tweetembed.New(deps.Tweets, tweetembed.Options{
			ScanParents: cfg.Enhance.Tweets.ScanParents,
		}),
		doclink.New(deps.Docs, doclink.Options{
			Code:  cfg.Enhance.DocLinks.Code,
			Prose: cfg.Enhance.DocLinks.Prose,
		}),
	}, opts...)

	return &Hooks{cfg: cfg, pipeline: pipeline}, nil
}

// Site returns the configuration the hooks were built for.
func (h *Hooks) Site() site.Config { return *h.cfg }

// Stages returns the enhancement chain's stage names in order.
func (h *Hooks) Stages() []string { return h.pipeline.Stages() }

// Started reports whether Startup has run.
func (h *Hooks) Started() bool { return h.started.Load() }

// Startup announces the site identity. Calling it again is a no-op; the
// generator invokes it once per build but nothing stops embedders from
// calling it defensively.
func (h *Hooks) Startup(ctx context.Context) error {
	h.startOnce.Do(func() {
		slog.InfoContext(ctx, "site configured",
			"host", h.cfg.Host, "title", h.cfg.Title, "author", h.cfg.Author)
		h.started.Store(true)
	})
	return nil
}

// EnhanceBody runs one page body through the enhancement chain.
func (h *Hooks) EnhanceBody(ctx context.Context, body enhance.Body) (enhance.Body, error) {
	return h.pipeline.EnhanceBody(ctx, body)
}

// EnhanceAll runs many page bodies through the chain concurrently.
func (h *Hooks) EnhanceAll(ctx context.Context, bodies []enhance.Body, limit int) ([]enhance.Body, error) {
	return h.pipeline.EnhanceAll(ctx, bodies, limit)
}

// Clean runs after the generator wipes its output. The enhancers keep no
// on-disk state, so there is nothing to undo.
func (h *Hooks) Clean(ctx context.Context) error {
	slog.DebugContext(ctx, "clean hook invoked, nothing to undo")
	return nil
}

// EngineFromConfig constructs the highlight engine cfg names. The zero
// engine name means pygments.
func EngineFromConfig(cfg site.HighlightConfig) (highlight.Engine, error) {
	opts := highlight.Options{
		Executable:  cfg.Executable,
		LineNumbers: cfg.LineNumbers,
		CSSClass:    cfg.CSSClass,
	}
	switch cfg.Engine {
	case "", "pygments":
		return highlight.NewPygmentsEngine(opts)
	case "chroma":
		return highlight.NewChromaEngine(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown highlight engine %q", site.ErrInvalidConfig, cfg.Engine)
	}
}

// ClientFromConfig constructs the tweet client cfg names.
func ClientFromConfig(cfg site.TweetConfig) *tweetembed.OEmbedClient {
	return tweetembed.NewOEmbedClient(tweetembed.OEmbedConfig{
		Endpoint:   cfg.Endpoint,
		OmitScript: cfg.OmitScript,
		DNT:        cfg.DNT,
	})
}

// ResolverFromConfig constructs the identifier resolver cfg names: a docset
// index when one is configured, otherwise an empty table that resolves
// nothing.
func ResolverFromConfig(ctx context.Context, cfg site.DocLinkConfig) (doclink.Resolver, error) {
	if cfg.Docset == "" {
		return doclink.StaticResolver{}, nil
	}
	return doclink.NewDocsetResolver(ctx, cfg.Docset, cfg.DocsBase)
}
