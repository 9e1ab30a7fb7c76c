package models

import "time"

type JobState string

const (
	JobAwaitingAck JobState = "awaiting_ack"
	JobQueued      JobState = "queued"
	JobSucceeded   JobState = "succeeded"
	JobFailed      JobState = "failed"
)

// Job tracks one image-edit prompt from submission to its terminal event.
// ImageID is the correlation key; JobID is filled in only when the backend
// reports one.
type Job struct {
	ImageID     string    `json:"image_id"`
	JobID       string    `json:"job_id,omitempty"`
	Prompt      string    `json:"prompt"`
	Tags        []string  `json:"tags,omitempty"`
	State       JobState  `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
}
