// Package runner wires one job run end to end: load the shard's slice of the
// input table, process it through the extraction service, and persist the
// result table together with run statistics.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"collector/internal/config"
	"collector/internal/core/crawl"
	"collector/internal/core/dispatch"
	"collector/internal/core/fetch"
	"collector/internal/core/job"
	"collector/internal/core/mapper"
	"collector/internal/core/stats"
	"collector/internal/logger"
	"collector/internal/platform/gemini"
	"collector/internal/partition"
	"collector/internal/platform/storage"
	"collector/prompts"
)

// Generator is the extraction model surface the pipelines call.
type Generator interface {
	Generate(ctx context.Context, prompt string, payload *fetch.Content, p gemini.Params) (*gemini.Result, error)
	Model() string
}

// siteCrawler is what the page-collection pipeline needs from the crawler.
type siteCrawler interface {
	CrawlSite(ctx context.Context, root string) ([]crawl.Candidate, error)
}

type Runner struct {
	cfg     config.Config
	spec    job.Spec
	store   storage.Store
	ai      Generator
	fetcher *fetch.Client
	crawler siteCrawler
	stats   *stats.Aggregator
	log     *logger.Logger

	runID     string
	startedAt time.Time
	now       func() time.Time
}

func New(cfg config.Config, store storage.Store, ai Generator, fetcher *fetch.Client) (*Runner, error) {
	spec, ok := job.SpecFor(cfg.JobType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown job type %q", config.ErrInvalidConfig, cfg.JobType)
	}

	r := &Runner{
		cfg:       cfg,
		spec:      spec,
		store:     store,
		ai:        ai,
		fetcher:   fetcher,
		stats:     stats.New(cfg.FailureRateAlertThreshold, cfg.FailureStatsLogInterval),
		log:       logger.New("Runner"),
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		now:       time.Now,
	}

	if cfg.JobType == config.JobURLCollect {
		kw, err := crawl.LoadKeywords(cfg.KeywordTablePath)
		if err != nil {
			return nil, fmt.Errorf("load keyword tables: %w", err)
		}
		r.crawler = crawl.New(fetcher, mapper.New(), crawl.Options{
			MaxDepth:  cfg.CrawlMaxDepth,
			MaxPages:  cfg.CrawlMaxPages,
			Keywords:  kw,
			Composite: cfg.EnableCompositeType,
		})
	}
	return r, nil
}

// Run executes the configured job for this shard. Partial results are
// persisted even when the run is cut short, so an interrupted shard still
// leaves its completed work in the bucket.
func (r *Runner) Run(ctx context.Context) error {
	r.log.LogInfof("run %s starting: job=%s shard=%d/%d model=%s",
		r.runID, r.spec.Type, r.cfg.TaskIndex, r.cfg.TaskCount, r.ai.Model())

	var rows [][]string
	var runErr error
	switch r.spec.Type {
	case config.JobURLCollect:
		rows, runErr = r.runURLCollect(ctx)
	case config.JobDoctorInfo:
		rows, runErr = r.runDoctorInfo(ctx)
	case config.JobOutpatient:
		rows, runErr = r.runOutpatient(ctx)
	case config.JobValidation:
		rows, runErr = r.runValidation(ctx)
	}

	if err := r.persist(rows); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			r.log.LogError("persisting results failed", err)
		}
	}
	r.stats.LogSummary()

	if runErr != nil {
		return fmt.Errorf("job %s run %s: %w", r.spec.Type, r.runID, runErr)
	}
	r.log.LogSuccessf("run %s finished: %d rows written", r.runID, len(rows))
	return nil
}

// loadShard reads the shared input table and returns this shard's slice.
func (r *Runner) loadShard(ctx context.Context) ([]job.Input, error) {
	inputs, err := storage.ReadInputTable(ctx, r.store, r.spec)
	if err != nil {
		return nil, err
	}
	start, end, err := partition.Range(len(inputs), r.cfg.TaskIndex, r.cfg.TaskCount)
	if err != nil {
		return nil, err
	}
	r.log.LogInfof("shard %d/%d owns inputs [%d, %d) of %d",
		r.cfg.TaskIndex, r.cfg.TaskCount, start, end, len(inputs))
	return inputs[start:end], nil
}

// loadPrompt reads the job prompt, falling back to the built-in default when
// the bucket object is missing.
func (r *Runner) loadPrompt(ctx context.Context) (string, error) {
	p, err := storage.ReadPrompt(ctx, r.store, r.spec)
	if err != nil {
		if def := prompts.Default(r.spec.Type); errors.Is(err, storage.ErrNotFound) && def != "" {
			r.log.LogWarnf("prompt object %s missing, using built-in default", r.spec.PromptPath())
			return def, nil
		}
		return "", err
	}
	return p, nil
}

func (r *Runner) dispatcher() *dispatch.Dispatcher {
	return dispatch.New(dispatch.Options{
		Concurrency: r.cfg.MaxConcurrentRequests,
		BatchSize:   r.spec.BatchSize,
		BatchPause:  r.spec.BatchPause,
		CallTimeout: r.cfg.AITimeout,
		MaxRetries:  r.cfg.MaxRetries,
		RetryDelay:  r.cfg.RetryDelay,
	})
}

// persist writes the result table and the statistics snapshot. It runs on a
// detached context so results of a cancelled run still reach the bucket.
func (r *Runner) persist(rows [][]string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outPath := r.spec.OutputPath(r.cfg.TaskIndex, r.startedAt)
	if err := storage.WriteTable(ctx, r.store, r.spec, outPath, rows); err != nil {
		return err
	}
	r.log.LogInfof("wrote %d rows to %s", len(rows), outPath)

	snap, err := r.stats.MarshalSnapshot()
	if err != nil {
		return err
	}
	statsPath := r.spec.StatisticsPath(r.cfg.TaskIndex, r.startedAt)
	if err := r.store.WriteFile(ctx, statsPath, snap, "application/json"); err != nil {
		return fmt.Errorf("write statistics %s: %w", statsPath, err)
	}

	// Log upload is best effort; the table and statistics matter more.
	if logText := logger.Captured(); logText != "" {
		logPath := r.spec.LogPath(r.cfg.TaskIndex, r.startedAt)
		if err := r.store.WriteFile(ctx, logPath, []byte(logText), "text/plain"); err != nil {
			r.log.LogWarnf("log upload failed: %v", err)
		}
	}
	return nil
}

func (r *Runner) timestamp() string {
	return r.now().Format(job.TimestampLayout)
}
