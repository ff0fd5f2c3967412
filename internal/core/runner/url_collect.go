package runner

import (
	"context"
	"fmt"

	"collector/internal/core/crawl"
	"collector/internal/core/decode"
	"collector/internal/core/fetch"
	"collector/internal/core/job"
	"collector/internal/platform/gemini"
)

// runURLCollect crawls each facility site for candidate pages, classifies
// them through the model, and emits one row per useful page.
func (r *Runner) runURLCollect(ctx context.Context) ([][]string, error) {
	shard, err := r.loadShard(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := r.loadPrompt(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]job.URLRecord, len(shard))
	errs, runErr := r.dispatcher().Run(ctx, len(shard), func(ctx context.Context, i int) error {
		recs, err := r.collectFacility(ctx, prompt, shard[i])
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

// collectFacility walks one facility site and classifies every candidate
// page. Pages the model rejects as "none" are counted but not emitted.
func (r *Runner) collectFacility(ctx context.Context, prompt string, in job.Input) ([]job.URLRecord, error) {
	candidates, err := r.crawler.CrawlSite(ctx, in.URL)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", in.URL, err)
	}
	if len(candidates) == 0 {
		r.log.LogInfof("no candidate pages on %s", in.URL)
		return nil, nil
	}

	byURL := make(map[string]job.URLRecord)
	var firstErr error
	classified := 0
	for _, cand := range candidates {
		recs, err := r.classifyCandidate(ctx, prompt, in, cand)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		classified++
		for _, rec := range recs {
			prev, seen := byURL[rec.URL]
			if !seen || decode.TypePriority(rec.Type) < decode.TypePriority(prev.Type) {
				byURL[rec.URL] = rec
			}
		}
	}
	if classified == 0 && firstErr != nil {
		return nil, firstErr
	}

	// Candidate order is discovery order; keep it for the output.
	var out []job.URLRecord
	emitted := make(map[string]struct{}, len(byURL))
	for _, cand := range candidates {
		rec, ok := byURL[cand.URL]
		if !ok {
			continue
		}
		if _, dup := emitted[rec.URL]; dup {
			continue
		}
		emitted[rec.URL] = struct{}{}
		if rec.Type == "none" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Runner) classifyCandidate(ctx context.Context, prompt string, in job.Input, cand crawl.Candidate) ([]job.URLRecord, error) {
	payload := &fetch.Content{URL: cand.URL, Kind: fetch.KindText, Text: cand.Markdown}
	res, err := r.ai.Generate(ctx, prompt, payload, gemini.Params{Temperature: r.cfg.AITemp})
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", cand.URL, err)
	}

	recs := decode.URLCollect(res.Text)
	for i := range recs {
		if recs[i].FacIDUnif == "" {
			recs[i].FacIDUnif = in.FacIDUnif
		}
		if recs[i].URL == "" {
			recs[i].URL = cand.URL
		}
		if recs[i].PageTitle == "" {
			recs[i].PageTitle = cand.Title
		}
		recs[i].Type = crawl.MergeTypeCode(recs[i].Type, cand.TypeHint, r.cfg.EnableCompositeType)
		recs[i].UpdateDatetime = r.timestamp()
		recs[i].AIVersion = r.ai.Model()
		r.stats.CountType(recs[i].Type)
	}
	return recs, nil
}
