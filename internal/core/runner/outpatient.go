package runner

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"collector/internal/core/crawl"
	"collector/internal/core/decode"
	"collector/internal/core/fetch"
	"collector/internal/core/job"
	"collector/internal/platform/gemini"
	"collector/internal/utils/urlutil"
)

// runOutpatient extracts the outpatient schedule of each input page. The
// payload follows the medium the schedule is published in: HTML tables go as
// markdown text, embedded images and linked PDFs go as inline binary parts.
func (r *Runner) runOutpatient(ctx context.Context) ([][]string, error) {
	shard, err := r.loadShard(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := r.loadPrompt(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]job.OutpatientRecord, len(shard))
	errs, runErr := r.dispatcher().Run(ctx, len(shard), func(ctx context.Context, i int) error {
		recs, err := r.extractSchedule(ctx, prompt, shard[i])
		if err != nil {
			return err
		}
		results[i] = recs
		return nil
	})

	var rows [][]string
	for i, in := range shard {
		if errs[i] != nil {
			r.stats.Failure(in.FacIDUnif, in.URL, errs[i])
			continue
		}
		r.stats.Success()
		for _, rec := range results[i] {
			rows = append(rows, rec.Row())
		}
	}
	return rows, runErr
}

func (r *Runner) extractSchedule(ctx context.Context, prompt string, in job.Input) ([]job.OutpatientRecord, error) {
	payload, err := r.schedulePayload(ctx, in.URL)
	if err != nil {
		return nil, err
	}

	res, err := r.ai.Generate(ctx, prompt, payload, gemini.Params{Temperature: r.cfg.AITemp})
	if err != nil {
		return nil, fmt.Errorf("extract schedule %s: %w", in.URL, err)
	}

	recs := decode.Outpatient(res.Text)
	for i := range recs {
		if recs[i].FacIDUnif == "" || decode.IsSampleFacilityID(recs[i].FacIDUnif) {
			recs[i].FacIDUnif = in.FacIDUnif
		}
		if recs[i].URLSingleTable == "" {
			recs[i].URLSingleTable = in.URL
		}
		recs[i].OutputDatetime = r.timestamp()
		recs[i].AIVersion = r.ai.Model()
	}
	return recs, nil
}

// schedulePayload inspects the page and fetches the schedule in its native
// medium. When the media fetch fails the page text still goes to the model;
// a degraded answer beats none.
func (r *Runner) schedulePayload(ctx context.Context, pageURL string) (*fetch.Content, error) {
	html, err := r.fetcher.HTML(ctx, pageURL)
	if err != nil {
		// The input URL may point straight at a PDF or image.
		if payload, berr := r.fetcher.Binary(ctx, pageURL); berr == nil && payload.Kind != fetch.KindText {
			return payload, nil
		}
		return nil, err
	}

	doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if derr != nil {
		return r.fetcher.Page(ctx, pageURL)
	}

	switch crawl.MediumFor(doc) {
	case crawl.MediumImage:
		if src := scheduleImageURL(doc, pageURL); src != "" {
			if payload, err := r.fetcher.Binary(ctx, src); err == nil {
				return payload, nil
			}
			r.log.LogWarnf("schedule image fetch failed for %s, falling back to page text", pageURL)
		}
	case crawl.MediumPDF:
		if href := schedulePDFURL(doc, pageURL); href != "" {
			if payload, err := r.fetcher.Binary(ctx, href); err == nil {
				return payload, nil
			}
			r.log.LogWarnf("schedule pdf fetch failed for %s, falling back to page text", pageURL)
		}
	}
	return r.fetcher.Page(ctx, pageURL)
}

func scheduleImageURL(doc *goquery.Document, pageURL string) string {
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		if crawl.LooksLikeSchedule(src + " " + alt) {
			found = resolveRef(pageURL, src)
			return false
		}
		return true
	})
	return found
}

func schedulePDFURL(doc *goquery.Document, pageURL string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.HasSuffix(strings.ToLower(strings.Split(href, "?")[0]), ".pdf") {
			found = resolveRef(pageURL, href)
			return false
		}
		return true
	})
	return found
}

func resolveRef(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	target, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(target).String()
	if !urlutil.IsValid(abs) {
		return ""
	}
	return abs
}
