// Package crawl walks one facility site breadth-first and collects the pages
// likely to carry a doctor roster or an outpatient schedule.
package crawl

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"collector/internal/core/crawl/robots"
	"collector/internal/core/fetch"
	"collector/internal/core/mapper"
	"collector/internal/logger"
	"collector/internal/utils/markdown"
	"collector/internal/utils/urlutil"
)

type Options struct {
	MaxDepth int
	MaxPages int
	// Delay paces page fetches; facility sites are small and often fragile.
	Delay    time.Duration
	Keywords *Keywords
	// Composite enables the combined roster+schedule type codes.
	Composite bool
}

// Candidate is a page worth sending to the extraction service.
type Candidate struct {
	URL      string
	Title    string
	Depth    int
	Score    PageScore
	Markdown string
	// TypeHint is the crawler's own guess at the page type, merged with the
	// model's classification later.
	TypeHint string
}

type Service struct {
	fetcher *fetch.Client
	robots  *robots.Service
	mapper  *mapper.Service
	kw      *Keywords
	opts    Options
	log     *logger.Logger
}

func New(fetcher *fetch.Client, mapSvc *mapper.Service, opts Options) *Service {
	if opts.Keywords == nil {
		opts.Keywords = DefaultKeywords()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 4
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 800
	}
	if opts.Delay <= 0 {
		opts.Delay = 150 * time.Millisecond
	}
	return &Service{
		fetcher: fetcher,
		robots:  robots.New(),
		mapper:  mapSvc,
		kw:      opts.Keywords,
		opts:    opts,
		log:     logger.New("Crawler"),
	}
}

type queueItem struct {
	url   string
	depth int
}

// CrawlSite walks the site breadth-first from root, within depth and page
// budgets, and returns candidate pages in discovery order. When the walk
// finds nothing, the colly mapper takes a second pass over the domain.
func (s *Service) CrawlSite(ctx context.Context, root string) ([]Candidate, error) {
	root = urlutil.Normalize(root)
	site := urlutil.Domain(root)
	if site == "" {
		return nil, &fetch.Error{URL: root, Err: errInvalidRoot}
	}

	visited := map[string]struct{}{root: {}}
	queue := []queueItem{{root, 0}}
	var found []Candidate
	fetched := 0

	for len(queue) > 0 && fetched < s.opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		item := queue[0]
		queue = queue[1:]

		if !s.robots.IsAllowed(item.url) {
			s.log.LogDebugf("robots disallow %s", item.url)
			continue
		}

		html, err := s.fetcher.HTML(ctx, item.url)
		fetched++
		if err != nil {
			s.log.LogWarnf("fetch failed %s: %v", item.url, err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}

		if cand, ok := s.evaluate(item, doc); ok {
			found = append(found, cand)
		}

		if item.depth < s.opts.MaxDepth {
			for _, link := range s.links(item.url, doc) {
				if _, seen := visited[link]; seen {
					continue
				}
				if !urlutil.SameSite(urlutil.Domain(link), site) {
					continue
				}
				visited[link] = struct{}{}
				queue = append(queue, queueItem{link, item.depth + 1})
			}
		}

		select {
		case <-time.After(s.opts.Delay):
		case <-ctx.Done():
			return found, ctx.Err()
		}
	}

	s.log.LogInfof("crawl done root=%s fetched=%d candidates=%d", root, fetched, len(found))

	if len(found) == 0 && s.mapper != nil {
		return s.mapperFallback(ctx, root)
	}
	return found, nil
}

// evaluate decides whether a fetched page is a candidate and builds its
// record if so.
func (s *Service) evaluate(item queueItem, doc *goquery.Document) (Candidate, bool) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	bodyText := doc.Find("body").Text()
	if len(bodyText) > 20000 {
		bodyText = bodyText[:20000]
	}

	sc := s.kw.ScorePage(title + " " + bodyText)
	linkSc := s.kw.ScoreLink(item.url, "")
	sc.PathHit = linkSc.PathHit
	if !sc.Candidate() {
		return Candidate{}, false
	}

	htmlStr, err := doc.Html()
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{
		URL:      item.url,
		Title:    title,
		Depth:    item.depth,
		Score:    sc,
		Markdown: markdown.FromHTML(htmlStr),
		TypeHint: TypeCode(sc, MediumFor(doc), s.opts.Composite),
	}, true
}

// links extracts and filters outgoing links of a page.
func (s *Service) links(pageURL string, doc *goquery.Document) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		anchorText := strings.TrimSpace(sel.Text())
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := urlutil.Normalize(base.ResolveReference(ref).String())
		if !urlutil.IsValid(abs) {
			return
		}
		if s.kw.Excluded(abs, anchorText) {
			return
		}
		out = append(out, abs)
	})
	return out
}

// mapperFallback asks the colly mapper for links matching the path hint
// patterns, then evaluates each like a normally crawled page. JS-heavy menus
// defeat the static walk; the mapper's parallel pass sometimes still finds
// the roster pages.
func (s *Service) mapperFallback(ctx context.Context, root string) ([]Candidate, error) {
	s.log.LogInfof("no candidates from crawl of %s, trying link mapper fallback", root)
	res, err := s.mapper.MapSite(ctx, mapper.Request{
		URL:       root,
		Depth:     s.opts.MaxDepth,
		LinkLimit: 50,
		Patterns:  s.kw.PathPatterns(),
	})
	if err != nil {
		s.log.LogWarnf("mapper fallback failed for %s: %v", root, err)
		return nil, nil
	}

	var found []Candidate
	for _, link := range res.Links {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		html, err := s.fetcher.HTML(ctx, link)
		if err != nil {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		if cand, ok := s.evaluate(queueItem{link, 1}, doc); ok {
			found = append(found, cand)
		}
	}
	s.log.LogInfof("mapper fallback for %s yielded %d candidates", root, len(found))
	return found, nil
}

var errInvalidRoot = errInvalid("invalid root url")

type errInvalid string

func (e errInvalid) Error() string { return string(e) }
