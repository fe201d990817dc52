package core

import (
	"context"
	"time"

	"github.com/target/codegen-api/internal/domain/model"
)

// This file contains the port definitions shared by the service layer and its adapters.
// Service implementations depend on these interfaces, not on concrete implementations.

// JobRepository defines the interface for code generation job storage.
type JobRepository interface {
	// AddJob stores a new pending job and returns its id without waiting for processing.
	AddJob(ctx context.Context, req model.GenerateRequest) (string, error)
	// GetJob returns a snapshot of the job or model.ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*model.Job, error)
	// ClaimNext moves the oldest pending job to running or returns model.ErrNoJobsAvailable.
	ClaimNext(ctx context.Context) (*model.Job, error)
	SetProgress(ctx context.Context, id string, progress int) error
	Complete(ctx context.Context, id string, result model.GenerateResponse) (*model.Job, error)
	Fail(ctx context.Context, id, errMsg string) (*model.Job, error)
	// DeleteCompletedBefore removes terminal jobs whose completedAt is before cutoff.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// Subscribe delivers a signal on job.QueueTopic for enqueues and on a job id when it terminates.
	Subscribe(topic string) (func(), <-chan struct{})
}

// CodeGenerator is the LLM adapter capability used by the worker.
type CodeGenerator interface {
	// Name identifies the adapter in logs and provider listings.
	Name() string
	// IsAvailable never returns an error; failures read as unavailable.
	IsAvailable(ctx context.Context) bool
	GenerateCode(ctx context.Context, prompt string, target model.Target) ([]model.GeneratedFile, error)
}

// EventPublisher delivers code-generated events to interested consumers.
type EventPublisher interface {
	PublishCodeGenerated(ctx context.Context, evt model.CodeGeneratedEvent) error
}

// RateLimitDecision is the outcome of an admission check.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// RateLimiter gates job admission per client.
type RateLimiter interface {
	CheckLimit(clientID string) RateLimitDecision
}

// ReaperRepository is the subset of job storage the reaper needs.
type ReaperRepository interface {
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
