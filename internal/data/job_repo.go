package data

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/job"
	"github.com/target/codegen-api/internal/domain/model"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	Notifier     job.Notifier
	// IDGenerator overrides job id allocation (tests only).
	IDGenerator func() string
}

// JobRepo is the process-local job store.
//
// Pending jobs are claimed in insertion order. Terminal jobs reject every write
// and are only removed by DeleteCompletedBefore.
type JobRepo struct {
	mu      sync.Mutex
	jobs    map[string]*model.Job
	pending []string

	timeProvider TimeProvider
	notifier     job.Notifier
	newID        func() string
	logger       *slog.Logger
}

// NewJobRepo creates an empty JobRepo.
func NewJobRepo(cfg RepoConfig) *JobRepo {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = job.NewNotifier()
	}
	newID := cfg.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		jobs:         make(map[string]*model.Job),
		timeProvider: resolveClock(cfg.TimeProvider),
		notifier:     notifier,
		newID:        newID,
		logger:       logger.With("component", "job_repo"),
	}
}

// AddJob inserts a pending job and wakes the worker.
func (r *JobRepo) AddJob(ctx context.Context, req model.GenerateRequest) (string, error) {
	j := &model.Job{
		ID:        r.newID(),
		Prompt:    req.Prompt,
		Target:    req.Target,
		Status:    model.JobStatusPending,
		Progress:  model.ProgressQueued,
		CreatedAt: r.timeProvider.Now(),
	}

	r.mu.Lock()
	if _, exists := r.jobs[j.ID]; exists {
		r.mu.Unlock()
		return "", fmt.Errorf("duplicate job id %q", j.ID)
	}
	r.jobs[j.ID] = j
	r.pending = append(r.pending, j.ID)
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "job enqueued", "id", j.ID, "target", j.Target)
	r.notifier.Notify(job.QueueTopic)
	return j.ID, nil
}

// GetJob returns a copy of the stored job.
func (r *JobRepo) GetJob(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return j.Clone(), nil
}

// ClaimNext transitions the oldest pending job to running at the claimed milestone.
func (r *JobRepo) ClaimNext(_ context.Context) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) > 0 {
		id := r.pending[0]
		r.pending[0] = ""
		r.pending = r.pending[1:]

		j, ok := r.jobs[id]
		if !ok || j.Status != model.JobStatusPending {
			continue
		}
		j.Status = model.JobStatusRunning
		j.Progress = model.ProgressClaimed
		return j.Clone(), nil
	}
	r.pending = nil
	return nil, model.ErrNoJobsAvailable
}

// SetProgress records forward progress for a running job.
func (r *JobRepo) SetProgress(_ context.Context, id string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.lookupLocked(id)
	if err != nil {
		return err
	}
	if j.Status != model.JobStatusRunning {
		return fmt.Errorf("set progress on %s job %s: %w", j.Status, id, model.ErrJobTerminal)
	}
	if progress < j.Progress || progress > model.ProgressDone {
		return fmt.Errorf("progress %d for job %s (current %d): %w", progress, id, j.Progress, model.ErrProgressRegression)
	}
	j.Progress = progress
	return nil
}

// Complete stores the result and marks the job completed.
func (r *JobRepo) Complete(ctx context.Context, id string, result model.GenerateResponse) (*model.Job, error) {
	r.mu.Lock()
	j, err := r.lookupLocked(id)
	if err == nil && j.Status != model.JobStatusRunning {
		err = fmt.Errorf("complete %s job %s: %w", j.Status, id, model.ErrJobTerminal)
	}
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	now := r.timeProvider.Now()
	res := result
	res.Files = append([]model.GeneratedFile(nil), result.Files...)
	j.Status = model.JobStatusCompleted
	j.Progress = model.ProgressDone
	j.Result = &res
	j.CompletedAt = &now
	snapshot := j.Clone()
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "job completed", "id", id, "files", len(res.Files))
	r.notifier.Notify(id)
	return snapshot, nil
}

// Fail records errMsg and marks the job failed.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (*model.Job, error) {
	r.mu.Lock()
	j, err := r.lookupLocked(id)
	if err == nil && j.Status.Terminal() {
		err = fmt.Errorf("fail %s job %s: %w", j.Status, id, model.ErrJobTerminal)
	}
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	now := r.timeProvider.Now()
	j.Status = model.JobStatusFailed
	j.Error = errMsg
	j.CompletedAt = &now
	snapshot := j.Clone()
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "job failed", "id", id, "error", errMsg)
	r.notifier.Notify(id)
	return snapshot, nil
}

// DeleteCompletedBefore removes terminal jobs whose completedAt is strictly before cutoff.
func (r *JobRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, j := range r.jobs {
		if j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Subscribe exposes the repository notifier.
func (r *JobRepo) Subscribe(topic string) (func(), <-chan struct{}) {
	return r.notifier.Subscribe(topic)
}

// Len returns the number of stored jobs.
func (r *JobRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *JobRepo) lookupLocked(id string) (*model.Job, error) {
	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrJobNotFound)
	}
	return j, nil
}

var _ core.JobRepository = (*JobRepo)(nil)
