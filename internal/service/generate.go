package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/model"
	apperrors "github.com/target/codegen-api/internal/errors"
	"github.com/target/codegen-api/internal/observability/metrics"
	"github.com/target/codegen-api/internal/observability/statsd"
)

// Client-facing messages for generate failures.
const (
	msgPromptRequired    = "Prompt is required"
	msgInvalidTarget     = "Invalid target. Must be one of: frontend, backend, infra, sql"
	msgRateLimitExceeded = "Rate limit exceeded"
	msgTimedOut          = "Code generation timed out"
	msgGenerationFailed  = "Code generation failed"
)

// GenerateServiceOptions groups dependencies for GenerateService.
type GenerateServiceOptions struct {
	Jobs    *JobService           // Required: job store access
	Limiter core.RateLimiter      // Required: admission control
	Config  config.GenerateConfig // Optional: zero values fall back to defaults
	Clock   Clock                 // Optional: used for retry-after hints
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink
}

// GenerateService turns the asynchronous job queue into a synchronous call.
type GenerateService struct {
	jobs         *JobService
	limiter      core.RateLimiter
	timeout      time.Duration
	pollInterval time.Duration
	clock        Clock
	logger       *slog.Logger
	metrics      statsd.Sink
}

// NewGenerateService constructs a new GenerateService.
func NewGenerateService(opts GenerateServiceOptions) (*GenerateService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}
	if opts.Limiter == nil {
		return nil, errors.New("RateLimiter is required")
	}

	timeout := opts.Config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	poll := opts.Config.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GenerateService{
		jobs:         opts.Jobs,
		limiter:      opts.Limiter,
		timeout:      timeout,
		pollInterval: poll,
		clock:        resolveClock(opts.Clock),
		logger:       logger.With("component", "generate_service"),
		metrics:      opts.Metrics,
	}, nil
}

// MustNewGenerateService constructs a new GenerateService and panics on error.
func MustNewGenerateService(opts GenerateServiceOptions) *GenerateService {
	svc, err := NewGenerateService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create GenerateService: %v", err))
	}
	return svc
}

// Generate validates req, admits it for clientID, enqueues a job and waits for its outcome.
//
// A wait that hits the deadline stops waiting only; the job keeps running and
// remains observable through GetJob.
func (s *GenerateService) Generate(
	ctx context.Context,
	clientID string,
	req model.GenerateRequest,
) (*model.GenerateResponse, error) {
	if err := validateGenerateRequest(req); err != nil {
		return nil, err
	}

	decision := s.limiter.CheckLimit(clientID)
	metrics.EmitAdmission(s.metrics, decision.Allowed)
	if !decision.Allowed {
		retryAfter := decision.ResetTime.Sub(s.clock.Now())
		s.logger.InfoContext(ctx, "generate request rate limited",
			"client_id", clientID,
			"retry_after", retryAfter,
		)
		return nil, apperrors.ResourceExhausted(msgRateLimitExceeded, retryAfter)
	}

	id, err := s.jobs.Enqueue(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "enqueue job")
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	job, err := s.jobs.WaitForTerminal(waitCtx, id, s.pollInterval)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.logger.WarnContext(ctx, "generate wait timed out", "job_id", id, "timeout", s.timeout)
		return nil, apperrors.DeadlineExceeded(msgTimedOut)
	default:
		return nil, err
	}

	if job.Status == model.JobStatusFailed {
		return nil, apperrors.Wrap(errors.New(job.Error), apperrors.ErrCodeInternal, msgGenerationFailed)
	}
	if job.Result == nil {
		return nil, apperrors.Internal("completed job has no result")
	}
	return job.Result, nil
}

// GetJob returns the public status view for id.
func (s *GenerateService) GetJob(ctx context.Context, id string) (*model.JobStatusView, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := job.StatusView()
	return &view, nil
}

func validateGenerateRequest(req model.GenerateRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return apperrors.InvalidArgumentField("prompt", msgPromptRequired)
	}
	if !req.Target.Valid() {
		return apperrors.InvalidArgumentField("target", msgInvalidTarget)
	}
	return nil
}
