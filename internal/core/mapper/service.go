// Package mapper discovers links across a facility domain with colly. It is
// the fallback discovery pass for sites whose navigation defeats the
// breadth-first crawl.
package mapper

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"

	"collector/internal/core/crawl/robots"
	"collector/internal/logger"
	"collector/internal/utils/urlutil"
)

type Service struct {
	log    *logger.Logger
	robots *robots.Service
}

func New() *Service {
	return &Service{log: logger.New("Mapper"), robots: robots.New()}
}

type Request struct {
	URL       string
	Depth     int
	LinkLimit int
	// Patterns restrict results to matching URL paths; empty allows all.
	Patterns []string
}

type Result struct {
	Links []string
}

// MapSite visits the domain in parallel and returns deduplicated in-domain
// links matching the request patterns.
func (s *Service) MapSite(ctx context.Context, req Request) (*Result, error) {
	s.log.LogDebugf("map start url=%s depth=%d limit=%d", req.URL, req.Depth, req.LinkLimit)

	links := make(map[string]struct{})
	var mu sync.Mutex
	c := colly.NewCollector(colly.MaxDepth(max(1, req.Depth)), colly.Async(true))
	c.UserAgent = robots.UserAgent
	site := urlutil.Domain(req.URL)

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
			return
		default:
		}
		mu.Lock()
		reached := req.LinkLimit > 0 && len(links) >= req.LinkLimit
		mu.Unlock()
		if reached {
			r.Abort()
			return
		}
		if !s.robots.IsAllowed(r.URL.String()) {
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := urlutil.Normalize(e.Request.AbsoluteURL(e.Attr("href")))
		if !urlutil.IsValid(link) {
			return
		}
		if !urlutil.SameSite(urlutil.Domain(link), site) {
			return
		}
		if !matchesPattern(link, req.Patterns) {
			return
		}
		if !s.robots.IsAllowed(link) {
			return
		}

		mu.Lock()
		_, exists := links[link]
		if !exists {
			links[link] = struct{}{}
		}
		reached := req.LinkLimit > 0 && len(links) >= req.LinkLimit
		mu.Unlock()
		if reached {
			return
		}
		if !exists && e.Request.Depth < max(1, req.Depth) {
			_ = e.Request.Visit(link)
		}
	})

	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 4, RandomDelay: 300 * time.Millisecond})

	if err := c.Visit(req.URL); err != nil {
		return nil, fmt.Errorf("visit: %w", err)
	}
	c.Wait()

	out := make([]string, 0, len(links))
	for l := range links {
		out = append(out, l)
	}
	s.log.LogSuccessf("map ok url=%s discovered=%d", req.URL, len(out))
	return &Result{Links: out}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// matchesPattern checks a URL path against glob-style patterns, treating a
// trailing * as a prefix match.
func matchesPattern(u string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}
	return false
}
