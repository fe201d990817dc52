// Package jobrunner runs the code generation worker against the job queue.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/job"
	"github.com/target/codegen-api/internal/domain/model"
	obserrors "github.com/target/codegen-api/internal/observability/errors"
	"github.com/target/codegen-api/internal/observability/metrics"
	"github.com/target/codegen-api/internal/observability/statsd"
	"github.com/target/codegen-api/internal/service"
)

const defaultIdleInterval = time.Second

// ErrLLMUnavailable fails a job whose adapter reports it cannot serve requests.
var ErrLLMUnavailable = errors.New(
	"LLM service is not available", //nolint:staticcheck // surfaced to clients verbatim
)

// RunnerOptions configures the worker.
type RunnerOptions struct {
	Jobs      *service.JobService
	Generator core.CodeGenerator
	Logger    *slog.Logger

	// IdleInterval bounds how long the worker sleeps with an empty queue; defaults to 1s.
	IdleInterval time.Duration

	Metrics statsd.Sink
}

// Runner claims pending jobs one at a time and drives each through generation.
type Runner struct {
	jobs      *service.JobService
	generator core.CodeGenerator
	logger    *slog.Logger
	idle      time.Duration
	metrics   statsd.Sink
}

// NewRunner constructs a worker.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("CodeGenerator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := opts.IdleInterval
	if idle <= 0 {
		idle = defaultIdleInterval
	}

	return &Runner{
		jobs:      opts.Jobs,
		generator: opts.Generator,
		logger:    logger.With("component", "generation_worker"),
		idle:      idle,
		metrics:   opts.Metrics,
	}, nil
}

// Run processes jobs until ctx is cancelled. Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting generation worker",
		"adapter", r.generator.Name(),
		"idle_interval", r.idle,
	)

	// Subscribe before the first scan so an enqueue between scan and wait is not missed.
	unsub, ch := r.jobs.Subscribe(job.QueueTopic)
	defer unsub()

	if err := r.workerLoop(ctx, ch); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "generation worker stopping", "reason", ctx.Err())
	return nil
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	for ctx.Err() == nil {
		processed, err := r.ProcessNext(ctx)
		if err != nil {
			return err
		}
		if processed {
			continue
		}

		var ok bool
		if notify, ok = r.waitForNotify(ctx, notify); !ok {
			return nil
		}
	}
	return nil
}

// waitForNotify blocks until an enqueue signal, the idle interval, or ctx ends.
// A closed notify channel is replaced by nil so the idle timer alone drives rescans.
func (r *Runner) waitForNotify(ctx context.Context, notify <-chan struct{}) (<-chan struct{}, bool) {
	timer := time.NewTimer(r.idle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return notify, false
	case _, open := <-notify:
		if !open {
			return nil, true
		}
	case <-timer.C:
	}
	return notify, true
}

// ProcessNext claims the oldest pending job and runs it to a terminal state.
// It reports false when the queue was empty.
func (r *Runner) ProcessNext(ctx context.Context) (bool, error) {
	claimed, err := r.jobs.ClaimNext(ctx)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim next: %w", err)
	}
	r.processJob(ctx, claimed)
	return true, nil
}

func (r *Runner) processJob(ctx context.Context, claimed *model.Job) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			Target:     string(claimed.Target),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	r.logger.DebugContext(ctx, "job claimed", "job_id", claimed.ID, "target", claimed.Target)

	result, err := r.generate(ctx, claimed)
	if err != nil {
		if _, ferr := r.jobs.Fail(ctx, claimed.ID, err.Error(), service.JobFailureDetails{
			Provider:   r.generator.Name(),
			ErrorClass: obserrors.Classify(err),
			Metadata: map[string]string{
				"component": "generation_worker",
			},
		}); ferr != nil {
			r.logger.ErrorContext(ctx, "fail job error", "job_id", claimed.ID, "error", ferr, "original_error", err)
		}
		emit("failed", metrics.ResultError, err)
		return
	}

	if _, err := r.jobs.Complete(ctx, claimed.ID, *result); err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", claimed.ID, "error", err)
		emit("completed", metrics.ResultError, err)
		return
	}
	r.logger.InfoContext(ctx, "job completed",
		"job_id", claimed.ID,
		"files", len(result.Files),
		"duration", time.Since(start),
	)
	emit("completed", metrics.ResultSuccess, nil)
}

// generate runs the availability check, the adapter call and the diff,
// recording the intermediate progress milestones.
func (r *Runner) generate(ctx context.Context, claimed *model.Job) (res *model.GenerateResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "code generator panicked", "job_id", claimed.ID, "panic", p)
			res, err = nil, fmt.Errorf("code generator panic: %v", p)
		}
	}()

	if !r.generator.IsAvailable(ctx) {
		return nil, ErrLLMUnavailable
	}
	if err := r.jobs.SetProgress(ctx, claimed.ID, model.ProgressChecked); err != nil {
		return nil, err
	}

	files, err := r.generator.GenerateCode(ctx, claimed.Prompt, claimed.Target)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []model.GeneratedFile{}
	}

	if err := r.jobs.SetProgress(ctx, claimed.ID, model.ProgressGenerated); err != nil {
		return nil, err
	}

	return &model.GenerateResponse{
		JobID:   claimed.ID,
		Files:   files,
		GitDiff: service.BuildGitDiff(files),
	}, nil
}
