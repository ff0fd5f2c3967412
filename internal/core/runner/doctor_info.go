package runner

import (
	"context"
	"fmt"
	"strconv"

	"collector/internal/core/decode"
	"collector/internal/core/job"
	"collector/internal/core/validate"
	"collector/internal/platform/gemini"
)

// runDoctorInfo extracts the personnel roster of each input page, rejects
// fabricated entries, and attests every surviving record against the page it
// came from.
func (r *Runner) runDoctorInfo(ctx context.Context) ([][]string, error) {
	shard, err := r.loadShard(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := r.loadPrompt(ctx)
	if err != nil {
		return nil, err
	}
	validator := validate.New()

	results := make([][]job.DoctorRecord, len(shard))
	errs, runErr := r.dispatcher().Run(ctx, len(shard), func(ctx context.Context, i int) error {
		recs, err := r.extractDoctors(ctx, prompt, validator, shard[i])
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

func (r *Runner) extractDoctors(ctx context.Context, prompt string, validator *validate.Service, in job.Input) ([]job.DoctorRecord, error) {
	payload, err := r.fetcher.Page(ctx, in.URL)
	if err != nil {
		return nil, err
	}

	res, err := r.ai.Generate(ctx, prompt, payload, gemini.Params{Temperature: r.cfg.AITemp})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", in.URL, err)
	}

	recs := decode.DoctorInfo(res.Text)
	recs, fabricated := decode.FilterDoctorRecords(recs)
	if fabricated > 0 {
		r.log.LogWarnf("%s: dropped %d fabricated or sample records", in.URL, fabricated)
	}

	attested := recs[:0]
	for _, rec := range recs {
		if validator.Attest(&rec, payload.Text) {
			attested = append(attested, rec)
		}
	}
	recs, _ = validator.Dedup(attested)

	for i := range recs {
		recs[i].FacIDUnif = in.FacIDUnif
		recs[i].URL = in.URL
		if recs[i].OutputOrder == "" {
			recs[i].OutputOrder = strconv.Itoa(i + 1)
		}
		recs[i].OutputDatetime = r.timestamp()
		recs[i].AIVersion = r.ai.Model()
	}
	return recs, nil
}
