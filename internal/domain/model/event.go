package model

import "time"

// CodeGeneratedEvent is published after a job reaches a terminal state.
type CodeGeneratedEvent struct {
	ID               string    `json:"id"`
	Prompt           string    `json:"prompt"`
	Target           Target    `json:"target"`
	Timestamp        time.Time `json:"timestamp"`
	GenerationTimeMs int64     `json:"generationTimeMs"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
}

// NewCodeGeneratedEvent builds the event for a terminal job.
func NewCodeGeneratedEvent(job *Job) CodeGeneratedEvent {
	evt := CodeGeneratedEvent{
		ID:      job.ID,
		Prompt:  job.Prompt,
		Target:  job.Target,
		Success: job.Status == JobStatusCompleted,
		Error:   job.Error,
	}
	if job.CompletedAt != nil {
		evt.Timestamp = *job.CompletedAt
		evt.GenerationTimeMs = job.CompletedAt.Sub(job.CreatedAt).Milliseconds()
	}
	return evt
}
