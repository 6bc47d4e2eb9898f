package models

import (
	"maps"
	"time"
)

// JobStatus defines the lifecycle states of an asynchronous pipeline run.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusDone      JobStatus = "done"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"

	// JobStatusNotFound is returned for unknown job ids so polling code has
	// a stable terminal case instead of an error path.
	JobStatusNotFound JobStatus = "not_found"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError || s == JobStatusCancelled
}

// JobFailure captures the execution error of a failed job.
type JobFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
}

// Job is one asynchronous execution of a pipeline against a specific initial
// payload. A job is mutated only by the worker that owns it and by an
// explicit cancel request.
type Job struct {
	ID          string         `json:"job_id"`
	PipelineID  string         `json:"pipeline_id"`
	Status      JobStatus      `json:"status"`
	Payload     map[string]any `json:"payload,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       *JobFailure    `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Clone returns a copy safe to hand to readers while a worker may still be
// mutating the original.
func (j *Job) Clone() *Job {
	clone := *j

	if j.Payload != nil {
		clone.Payload = maps.Clone(j.Payload)
	}

	if j.Result != nil {
		clone.Result = maps.Clone(j.Result)
	}

	if j.Error != nil {
		failure := *j.Error
		clone.Error = &failure
	}

	return &clone
}
