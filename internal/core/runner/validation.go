package runner

import (
	"context"
	"fmt"

	"collector/internal/core/decode"
	"collector/internal/core/job"
	"collector/internal/partition"
	"collector/internal/platform/gemini"
	"collector/internal/platform/storage"
	"collector/prompts"
)

// validationParams pin the model to fully deterministic output. Validation
// verdicts must be reproducible across reruns of the same record.
var validationParams = gemini.Params{
	Temperature:     0.0,
	TopP:            0.1,
	TopK:            1,
	MaxOutputTokens: 256,
}

// runValidation re-checks previously extracted personnel records against
// their source pages. Every input record produces exactly one output row;
// records that cannot be verified for technical reasons come back NOTFOUND.
func (r *Runner) runValidation(ctx context.Context) ([][]string, error) {
	records, err := storage.ReadDoctorTable(ctx, r.store, r.spec)
	if err != nil {
		return nil, err
	}
	start, end, err := partition.Range(len(records), r.cfg.TaskIndex, r.cfg.TaskCount)
	if err != nil {
		return nil, err
	}
	shard := records[start:end]
	r.log.LogInfof("shard %d/%d validates records [%d, %d) of %d",
		r.cfg.TaskIndex, r.cfg.TaskCount, start, end, len(records))

	prompt, err := r.loadPrompt(ctx)
	if err != nil {
		return nil, err
	}
	decoder := decode.NewValidationDecoder()

	results := make([]job.ValidationRecord, len(shard))
	errs, runErr := r.dispatcher().Run(ctx, len(shard), func(ctx context.Context, i int) error {
		out, err := r.validateRecord(ctx, prompt, decoder, shard[i])
		if err != nil {
			return err
		}
		results[i] = out
		return nil
	})

	rows := make([][]string, 0, len(shard))
	for i, rec := range shard {
		if errs[i] != nil {
			r.stats.Failure(rec.FacIDUnif+"/"+rec.OutputOrder, rec.URL, errs[i])
			results[i] = r.notFoundRecord(rec, errs[i].Error())
		} else {
			r.stats.Success()
		}
		rows = append(rows, results[i].Row())
	}

	for stage, n := range decoder.StageHits() {
		r.log.LogInfof("validation decode stage %s: %d", stage, n)
	}
	return rows, runErr
}

func (r *Runner) validateRecord(ctx context.Context, prompt string, decoder *decode.ValidationDecoder, rec job.DoctorRecord) (job.ValidationRecord, error) {
	payload, err := r.fetcher.Page(ctx, rec.URL)
	if err != nil {
		return job.ValidationRecord{}, err
	}

	rendered := prompts.RenderValidation(prompt, originalFields(rec))
	res, err := r.ai.Generate(ctx, rendered, payload, validationParams)
	if err != nil {
		return job.ValidationRecord{}, fmt.Errorf("validate %s order %s: %w", rec.URL, rec.OutputOrder, err)
	}

	outcome := decoder.Decode(res.Text)
	out := job.ValidationRecord{
		FacIDUnif:          rec.FacIDUnif,
		URL:                rec.URL,
		OutputOrder:        rec.OutputOrder,
		Original:           originalFields(rec),
		Status:             outcome.Status,
		Message:            outcome.Message,
		Corrected:          outcome.Corrected,
		ValidationDatetime: r.timestamp(),
		AIVersion:          r.ai.Model(),
	}
	return out, nil
}

// notFoundRecord builds the output row for a record that failed before a
// verdict could be reached.
func (r *Runner) notFoundRecord(rec job.DoctorRecord, reason string) job.ValidationRecord {
	reason = decode.Truncate(reason, 200)
	return job.ValidationRecord{
		FacIDUnif:          rec.FacIDUnif,
		URL:                rec.URL,
		OutputOrder:        rec.OutputOrder,
		Original:           originalFields(rec),
		Status:             job.StatusNotFound,
		Message:            "processing failed: " + reason,
		ValidationDatetime: r.timestamp(),
		AIVersion:          r.ai.Model(),
	}
}

func originalFields(rec job.DoctorRecord) job.DoctorFields {
	return job.DoctorFields{
		Department: rec.Department,
		Position:   rec.Position,
		Name:       rec.Name,
		Specialty:  rec.Specialty,
		Licence:    rec.Licence,
		Others:     rec.Others,
	}
}
