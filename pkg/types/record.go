package types

import "time"

// JobStatus is the lifecycle state of a handled job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobRecord is the persisted trace of one job, kept for observability.
type JobRecord struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	ClientID   string     `json:"client_id,omitempty"`
	PromptID   string     `json:"prompt_id,omitempty"`
	ImageCount int        `json:"image_count"`
	Errors     []string   `json:"errors,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
