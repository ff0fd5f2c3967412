// Package fetch retrieves facility pages and schedule media over HTTP and
// prepares them as model payloads.
package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"collector/internal/logger"
	"collector/internal/platform/redis"
	"collector/internal/utils/markdown"
	"collector/internal/utils/urlutil"
)

// Kind tells the extraction service how to wrap the payload.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

// Binary payloads above this go nowhere: the model API rejects oversized
// inline parts long before this limit matters for bandwidth.
const maxBinaryBytes = 15 << 20

const userAgent = "drcollector/1.0 (+data collection; contact admin)"

// Content is one fetched payload.
type Content struct {
	URL  string `json:"url"`
	Kind Kind   `json:"kind"`
	MIME string `json:"mime"`
	Body []byte `json:"body,omitempty"`
	// Text is the markdown rendition of HTML payloads.
	Text string `json:"text,omitempty"`
}

type Options struct {
	Timeout          time.Duration
	MaxContentLength int
	// Cache is optional; nil disables page caching.
	Cache    *redis.Service
	CacheTTL time.Duration
}

// Client fetches pages. Safe for concurrent use.
type Client struct {
	http       *resty.Client
	cache      *redis.Service
	cacheTTL   time.Duration
	maxContent int
	log        *logger.Logger
}

func New(opts Options) *Client {
	r := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	maxContent := opts.MaxContentLength
	if maxContent <= 0 {
		maxContent = 30000
	}
	return &Client{
		http:       r,
		cache:      opts.Cache,
		cacheTTL:   ttl,
		maxContent: maxContent,
		log:        logger.New("Fetcher"),
	}
}

// Page fetches an HTML page and returns its markdown rendition, clamped to
// the content budget. http URLs are tried as https first.
func (c *Client) Page(ctx context.Context, url string) (*Content, error) {
	if c.cache != nil {
		var cached Content
		if err := c.cache.CacheGet(ctx, cacheKey(url), &cached); err == nil {
			c.log.LogDebugf("cache hit %s", url)
			return &cached, nil
		}
	}

	html, finalURL, err := c.getWithUpgrade(ctx, url)
	if err != nil {
		return nil, err
	}

	text := markdown.Clamp(markdown.FromHTML(string(html)), c.maxContent)
	content := &Content{URL: finalURL, Kind: KindText, MIME: "text/html", Text: text}

	if c.cache != nil {
		if err := c.cache.CacheSet(ctx, cacheKey(url), content, c.cacheTTL); err != nil {
			c.log.LogDebugf("cache store failed for %s: %v", url, err)
		}
	}
	return content, nil
}

// HTML fetches a page without markdown conversion. Used by the crawler for
// link extraction and scoring.
func (c *Client) HTML(ctx context.Context, url string) (string, error) {
	body, _, err := c.getWithUpgrade(ctx, url)
	return string(body), err
}

// Binary fetches an image or PDF for multimodal extraction.
func (c *Client) Binary(ctx context.Context, url string) (*Content, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	body := resp.Body()
	if len(body) > maxBinaryBytes {
		return nil, &Error{URL: url, Err: ErrTooLarge}
	}
	mime := strings.Split(resp.Header().Get("Content-Type"), ";")[0]
	kind := KindImage
	if mime == "application/pdf" || strings.HasSuffix(strings.ToLower(url), ".pdf") {
		kind = KindPDF
		if mime == "" {
			mime = "application/pdf"
		}
	}
	return &Content{URL: url, Kind: kind, MIME: mime, Body: body}, nil
}

// getWithUpgrade attempts the https spelling of a http URL before falling
// back to the original scheme.
func (c *Client) getWithUpgrade(ctx context.Context, url string) ([]byte, string, error) {
	if upgraded := urlutil.UpgradeScheme(url); upgraded != url {
		if resp, err := c.get(ctx, upgraded); err == nil {
			return resp.Body(), upgraded, nil
		}
		c.log.LogDebugf("https upgrade failed for %s, retrying original scheme", url)
	}
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, "", err
	}
	return resp.Body(), url, nil
}

func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode()}
	}
	return resp, nil
}

func cacheKey(url string) string { return "page:" + url }
