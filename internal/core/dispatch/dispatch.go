// Package dispatch runs per-item extraction calls in bounded-concurrency
// batches with retries and per-call deadlines.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"collector/internal/core/fetch"
	"collector/internal/core/stats"
	"collector/internal/logger"
)

// ProcessFunc handles one item. Results are stored by the callee at the
// item's own index, so completion order never reorders output.
type ProcessFunc func(ctx context.Context, index int) error

type Options struct {
	// Concurrency bounds in-flight calls within a batch.
	Concurrency int
	// BatchSize items are dispatched, then the dispatcher pauses for
	// BatchPause before the next batch.
	BatchSize  int
	BatchPause time.Duration
	// CallTimeout bounds one attempt, including the model call.
	CallTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

type Dispatcher struct {
	opts Options
	log  *logger.Logger
}

func New(opts Options) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = opts.Concurrency
	}
	return &Dispatcher{opts: opts, log: logger.New("Dispatcher")}
}

// Run processes total items through process. Per-item errors are reported
// through errs (indexed like the items); Run itself only fails when ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context, total int, process ProcessFunc) ([]error, error) {
	errs := make([]error, total)

	for start := 0; start < total; start += d.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return errs, err
		}
		end := start + d.opts.BatchSize
		if end > total {
			end = total
		}

		if panicked := d.runBatch(ctx, start, end, process, errs); panicked {
			// A worker panic poisons concurrent state; redo the whole
			// batch one item at a time.
			d.log.LogWarnf("batch %d-%d failed, falling back to sequential processing", start, end)
			d.runSequential(ctx, start, end, process, errs)
		}

		if end < total && d.opts.BatchPause > 0 {
			select {
			case <-time.After(d.opts.BatchPause):
			case <-ctx.Done():
				return errs, ctx.Err()
			}
		}
	}
	return errs, nil
}

// runBatch dispatches one batch through a semaphore-bounded worker set.
// Returns true when any worker panicked.
func (d *Dispatcher) runBatch(ctx context.Context, start, end int, process ProcessFunc, errs []error) bool {
	sem := make(chan struct{}, d.opts.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	panicked := false

	for i := start; i < end; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					panicked = true
					mu.Unlock()
					errs[idx] = fmt.Errorf("worker panic: %v", r)
				}
			}()
			errs[idx] = d.processWithRetry(ctx, idx, process)
		}(i)
	}
	wg.Wait()
	return panicked
}

func (d *Dispatcher) runSequential(ctx context.Context, start, end int, process ProcessFunc, errs []error) {
	for i := start; i < end; i++ {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		func(idx int) {
			defer func() {
				if r := recover(); r != nil {
					errs[idx] = fmt.Errorf("worker panic: %v", r)
				}
			}()
			errs[idx] = d.processWithRetry(ctx, idx, process)
		}(i)
	}
}

// processWithRetry runs one item with a per-attempt deadline and exponential
// backoff on transient failures.
func (d *Dispatcher) processWithRetry(ctx context.Context, idx int, process ProcessFunc) error {
	attempt := 0
	op := func() error {
		attempt++
		callCtx := ctx
		var cancel context.CancelFunc
		if d.opts.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, d.opts.CallTimeout)
			defer cancel()
		}
		err := process(callCtx, idx)
		if err == nil {
			return nil
		}
		if callCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("call timed out after %s: %w", d.opts.CallTimeout, err)
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		d.log.LogWarnf("item %d attempt %d failed, retrying: %v", idx, attempt, err)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.opts.RetryDelay
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = time.Second
	}
	bo.MaxInterval = 10 * time.Second

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(d.opts.MaxRetries)), ctx))
	return err
}

// retryable limits retries to failures that a later attempt can plausibly
// fix.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if code := fetch.StatusCode(err); code >= 400 && code < 500 && code != 429 {
		return false
	}
	switch stats.Classify(err) {
	case stats.ReasonTimeout, stats.ReasonRateLimit, stats.ReasonConnection:
		return true
	}
	if fetch.StatusCode(err) >= 500 {
		return true
	}
	// Server-side API failures without a typed status still deserve a retry.
	msg := err.Error()
	for _, code := range []string{"500", "502", "503"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
