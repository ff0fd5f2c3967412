package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"collector/internal/config"
	"collector/internal/core/fetch"
	"collector/internal/core/runner"
	"collector/internal/logger"
	"collector/internal/platform/gemini"
	rds "collector/internal/platform/redis"
	"collector/internal/platform/storage"
)

const exitInterrupted = 130

func main() {
	cfg := config.Load()
	log.Printf("[collector] starting job=%s shard=%d/%d (env=%s)\n",
		cfg.JobType, cfg.TaskIndex, cfg.TaskCount, cfg.AppEnv)

	logger.StartCapture()
	logr := logger.New("main")
	if err := cfg.Validate(); err != nil {
		logr.LogError("configuration rejected", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupted := watchSignals(cancel, logr)

	// Page cache is optional; a shard runs fine without Redis.
	var cache *rds.Service
	if cfg.RedisAddr != "" {
		svc, err := rds.New(rds.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			logr.LogWarnf("redis unavailable, page cache disabled: %v", err)
		} else {
			cache = svc
			defer svc.Close()
		}
	}

	var store storage.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		store = storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket)
	} else {
		logr.LogInfof("no bucket credentials, using local store at %s", cfg.DataDir)
		store = storage.NewLocal(cfg.DataDir)
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:          cfg.RequestTimeout,
		MaxContentLength: cfg.MaxContentLength,
		Cache:            cache,
	})

	ai, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.AIModel)
	if err != nil {
		logr.LogError("extraction service init failed", err)
		os.Exit(1)
	}

	run, err := runner.New(cfg, store, ai, fetcher)
	if err != nil {
		logr.LogError("runner init failed", err)
		os.Exit(1)
	}

	err = run.Run(ctx)
	switch {
	case err == nil:
		logr.LogSuccess("job complete")
	case errors.Is(err, context.Canceled) && interrupted():
		logr.LogWarn("job interrupted, partial results persisted")
		os.Exit(exitInterrupted)
	default:
		logr.LogError("job failed", err)
		os.Exit(1)
	}
}

// watchSignals cancels the run context on SIGINT or SIGTERM. The returned
// func reports whether the cancellation came from SIGINT, which maps to the
// conventional 130 exit code.
func watchSignals(cancel context.CancelFunc, logr *logger.Logger) func() bool {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	byInterrupt := make(chan struct{})
	go func() {
		sig := <-sigCh
		logr.LogWarnf("received %s, winding down", sig)
		if sig == syscall.SIGINT {
			close(byInterrupt)
		}
		cancel()

		// A second signal skips the graceful path.
		sig = <-sigCh
		logr.LogWarnf("received %s again, exiting now", sig)
		os.Exit(exitInterrupted)
	}()

	return func() bool {
		select {
		case <-byInterrupt:
			return true
		default:
			return false
		}
	}
}
