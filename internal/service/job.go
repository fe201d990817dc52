package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/model"
	apperrors "github.com/target/codegen-api/internal/errors"
	"github.com/target/codegen-api/internal/observability/notify"
	"github.com/target/codegen-api/internal/service/failurenotifier"
)

const eventPublishTimeout = 5 * time.Second

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository       // Required: job repository
	Events          core.EventPublisher      // Optional: terminal transition events
	FailureNotifier *failurenotifier.Service // Optional: failure notification fan-out
	Logger          *slog.Logger             // Optional: structured logger
}

// JobService wraps the job store with terminal-transition side effects
// and the bounded wait used by synchronous callers.
type JobService struct {
	repo            core.JobRepository
	events          core.EventPublisher
	failureNotifier *failurenotifier.Service
	logger          *slog.Logger
}

// JobFailureDetails carries optional context forwarded to failure notifications.
type JobFailureDetails struct {
	Provider   string
	ErrorClass string
	Metadata   map[string]string
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobService{
		repo:            opts.Repo,
		events:          opts.Events,
		failureNotifier: opts.FailureNotifier,
		logger:          logger.With("component", "job_service"),
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Enqueue stores a pending job and returns its id.
func (s *JobService) Enqueue(ctx context.Context, req model.GenerateRequest) (string, error) {
	id, err := s.repo.AddJob(ctx, req)
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// Get returns a job snapshot or a NotFound error.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if errors.Is(err, model.ErrJobNotFound) {
		return nil, apperrors.NotFoundf("Job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ClaimNext moves the oldest pending job to running.
// It returns model.ErrNoJobsAvailable when the queue is empty.
func (s *JobService) ClaimNext(ctx context.Context) (*model.Job, error) {
	return s.repo.ClaimNext(ctx)
}

// SetProgress records a progress milestone for a running job.
func (s *JobService) SetProgress(ctx context.Context, id string, progress int) error {
	if err := s.repo.SetProgress(ctx, id, progress); err != nil {
		return fmt.Errorf("set progress %d: %w", progress, err)
	}
	return nil
}

// Complete stores the result and publishes the code-generated event.
func (s *JobService) Complete(ctx context.Context, id string, result model.GenerateResponse) (*model.Job, error) {
	job, err := s.repo.Complete(ctx, id, result)
	if err != nil {
		return nil, fmt.Errorf("complete job %s: %w", id, err)
	}
	s.publish(ctx, job)
	return job, nil
}

// Fail marks the job failed, publishes the event and notifies failure sinks.
func (s *JobService) Fail(
	ctx context.Context,
	id, errMsg string,
	details JobFailureDetails,
) (*model.Job, error) {
	if errMsg == "" {
		return nil, errors.New("error message required")
	}

	job, err := s.repo.Fail(ctx, id, errMsg)
	if err != nil {
		return nil, fmt.Errorf("fail job %s: %w", id, err)
	}
	s.publish(ctx, job)

	if s.failureNotifier.Enabled() {
		s.failureNotifier.NotifyJobFailure(context.WithoutCancel(ctx), buildFailurePayload(job, details))
	}
	return job, nil
}

// Subscribe exposes job notifications from the store.
func (s *JobService) Subscribe(topic string) (func(), <-chan struct{}) {
	return s.repo.Subscribe(topic)
}

// WaitForTerminal blocks until the job completes or fails, ctx ends, or the job disappears.
// Waiters wake on the store's terminal notification and fall back to polling every interval.
// On ctx expiry the last observed snapshot is returned with ctx.Err().
func (s *JobService) WaitForTerminal(ctx context.Context, id string, interval time.Duration) (*model.Job, error) {
	unsub, notifyCh := s.repo.Subscribe(id)
	defer unsub()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case _, ok := <-notifyCh:
			if !ok {
				notifyCh = nil
			}
		case <-ticker.C:
		}
	}
}

func (s *JobService) publish(ctx context.Context, job *model.Job) {
	if s.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.events.PublishCodeGenerated(pubCtx, model.NewCodeGeneratedEvent(job)); err != nil {
		s.logger.WarnContext(ctx, "publish code-generated event failed", "job_id", job.ID, "error", err)
	}
}

func buildFailurePayload(job *model.Job, details JobFailureDetails) notify.JobFailurePayload {
	payload := notify.JobFailurePayload{
		JobID:      job.ID,
		Target:     string(job.Target),
		Prompt:     job.Prompt,
		Provider:   details.Provider,
		Error:      job.Error,
		ErrorClass: details.ErrorClass,
		Severity:   notify.SeverityCritical,
		Metadata:   details.Metadata,
	}
	if job.CompletedAt != nil {
		payload.OccurredAt = *job.CompletedAt
	}
	return payload
}
