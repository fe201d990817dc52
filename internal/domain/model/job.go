// Package model defines the core data types shared by the code generation job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Target is the kind of code a job generates.
type Target string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// TargetFrontend generates a React component.
	TargetFrontend Target = "frontend"
	// TargetBackend generates an API service.
	TargetBackend Target = "backend"
	// TargetInfra generates deployment manifests.
	TargetInfra Target = "infra"
	// TargetSQL generates a database schema.
	TargetSQL Target = "sql"

	// JobStatusPending indicates a job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job has finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job has failed to complete.
	JobStatusFailed JobStatus = "failed"
)

// Progress milestones reported while a job runs.
const (
	ProgressQueued    = 0
	ProgressClaimed   = 10
	ProgressChecked   = 30
	ProgressGenerated = 80
	ProgressDone      = 100
)

var (
	// ErrNoJobsAvailable is returned when no pending job can be claimed.
	ErrNoJobsAvailable = errors.New("no jobs available")
	// ErrJobNotFound is returned when a job id is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned when a write targets a completed or failed job.
	ErrJobTerminal = errors.New("job already in terminal state")
	// ErrProgressRegression is returned when a progress update would move backwards.
	ErrProgressRegression = errors.New("job progress cannot decrease")
)

// ValidTargets returns every supported target in display order.
func ValidTargets() []Target {
	return []Target{TargetFrontend, TargetBackend, TargetInfra, TargetSQL}
}

// Valid returns true if the Target is supported.
func (t Target) Valid() bool {
	return t == TargetFrontend || t == TargetBackend || t == TargetInfra || t == TargetSQL
}

// ParseTarget normalises s and returns the matching Target.
// Request bodies are matched exactly instead; this is for operator input.
func ParseTarget(s string) (Target, error) {
	target := Target(strings.ToLower(strings.TrimSpace(s)))
	if !target.Valid() {
		return "", fmt.Errorf("invalid Target: %q", s)
	}
	return target, nil
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusRunning || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal reports whether no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// GeneratedFile is one file produced by an adapter.
type GeneratedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// GenerateRequest is the public input for a generation job.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Target Target `json:"target"`
}

// GenerateResponse is the result of a completed job.
type GenerateResponse struct {
	JobID   string          `json:"jobId"`
	Files   []GeneratedFile `json:"files"`
	GitDiff string          `json:"gitDiff"`
}

// Job represents one code generation request and its lifecycle.
type Job struct {
	ID          string            `json:"id"`
	Prompt      string            `json:"prompt"`
	Target      Target            `json:"target"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	Result      *GenerateResponse `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Result != nil {
		res := *j.Result
		res.Files = append([]GeneratedFile(nil), j.Result.Files...)
		cp.Result = &res
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// JobStatusView is the public projection served by GET /jobs/{id}.
type JobStatusView struct {
	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	Result      *GenerateResponse `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// StatusView projects the job into its public status shape.
func (j *Job) StatusView() JobStatusView {
	return JobStatusView{
		ID:          j.ID,
		Status:      j.Status,
		Progress:    j.Progress,
		Result:      j.Result,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}
