package tweetembed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/marstrand/bodywork/internal/retry"
)

// DefaultEndpoint is the public tweet oEmbed service.
const DefaultEndpoint = "https://publish.twitter.com/oembed"

// maxOEmbedResponseBytes caps what fetch will read of an answer; a real
// oEmbed document is a few KB of JSON.
const maxOEmbedResponseBytes = 1024 * 1024

// ErrBadStatus reports a non-200 answer from the oEmbed service.
var ErrBadStatus = errors.New("unexpected oEmbed status")

// OEmbedConfig configures the hosted-service client. The zero value works:
// public endpoint, 10s timeout, 1 request/s, 15 minute cache.
type OEmbedConfig struct {
	Endpoint   string
	HTTPClient *http.Client

	// RPS and Burst bound outbound requests; the embed service rate-limits
	// aggressively and a site rebuild hits it once per tweet.
	RPS   float64
	Burst int

	// CacheTTL bounds how long fetched markup is reused.
	CacheTTL time.Duration

	// OmitScript asks the service to leave out the widgets.js script tag,
	// for pages that load it once themselves.
	OmitScript bool

	// DNT asks for Do-Not-Track embed markup.
	DNT bool

	// Retry governs backoff on transport errors and 429/5xx answers.
	Retry retry.Policy
}

func (c OEmbedConfig) withDefaults() OEmbedConfig {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.RPS <= 0 {
		c.RPS = 1
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Minute
	}
	if c.Retry.Validate() != nil {
		c.Retry = retry.DefaultPolicy()
	}
	return c
}

// OEmbedClient fetches embed markup over HTTP, rate-limited and cached per
// permalink. Safe for concurrent use.
type OEmbedClient struct {
	cfg     OEmbedConfig
	limiter *rate.Limiter
	cache   *gocache.Cache
}

var _ Client = (*OEmbedClient)(nil)

// NewOEmbedClient builds a client from cfg, filling unset fields with
// defaults.
func NewOEmbedClient(cfg OEmbedConfig) *OEmbedClient {
	cfg = cfg.withDefaults()
	return &OEmbedClient{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// Embed returns the embed markup for one tweet permalink. Cached markup is
// served without touching the network or the limiter. Transport errors and
// 429/5xx answers are retried per the configured policy; other bad statuses
// fail straight away.
func (c *OEmbedClient) Embed(ctx context.Context, tweet string) (string, error) {
	if v, ok := c.cache.Get(tweet); ok {
		return v.(string), nil
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.cfg.Retry.Delay(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		markup, transient, err := c.fetch(ctx, tweet)
		if err == nil {
			c.cache.Set(tweet, markup, gocache.DefaultExpiration)
			return markup, nil
		}
		lastErr = err
		if !transient || attempt >= c.cfg.Retry.MaxRetries {
			return "", lastErr
		}
	}
}

func (c *OEmbedClient) fetch(ctx context.Context, tweet string) (markup string, transient bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	q := url.Values{}
	q.Set("url", tweet)
	if c.cfg.OmitScript {
		q.Set("omit_script", "true")
	}
	if c.cfg.DNT {
		q.Set("dnt", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("build oEmbed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("fetch oEmbed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", transient, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	limited := io.LimitReader(resp.Body, maxOEmbedResponseBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", true, fmt.Errorf("read oEmbed response: %w", err)
	}
	if len(data) > maxOEmbedResponseBytes {
		return "", false, errors.New("oEmbed response too large")
	}

	var payload struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", false, fmt.Errorf("decode oEmbed response: %w", err)
	}
	if payload.HTML == "" {
		return "", false, fmt.Errorf("oEmbed response for %s carries no html", tweet)
	}
	return payload.HTML, false, nil
}
