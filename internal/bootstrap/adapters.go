package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/adapters/jobrunner"
	"github.com/target/codegen-api/internal/adapters/reaper"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/observability/statsd"
	"github.com/target/codegen-api/internal/service"
)

// WorkerConfig contains configuration for the generation worker.
type WorkerConfig struct {
	Jobs         *service.JobService
	Generator    core.CodeGenerator
	Logger       *slog.Logger
	IdleInterval time.Duration
	Metrics      statsd.Sink
}

// RunWorker starts the generation worker and blocks until ctx is cancelled.
func RunWorker(ctx context.Context, cfg WorkerConfig) error {
	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Jobs:         cfg.Jobs,
		Generator:    cfg.Generator,
		Logger:       cfg.Logger,
		IdleInterval: cfg.IdleInterval,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run worker: %w", runErr)
	}
	return nil
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	Repo    core.ReaperRepository
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Repo:    cfg.Repo,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}

// RunRateLimitSweeper drops expired rate-limit windows until ctx is cancelled.
func RunRateLimitSweeper(ctx context.Context, limiter *service.RateLimiter) error {
	if limiter == nil {
		return errors.New("rate limiter is required")
	}
	return limiter.Run(ctx)
}
