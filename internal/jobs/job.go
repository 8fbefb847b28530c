package jobs

import (
	"errors"
	"time"
)

// Job status constants
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	// ErrJobNotFound is returned when a job id does not exist in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrJobFinished is returned when attempting to mutate or cancel a terminal job
	ErrJobFinished = errors.New("job already finished")

	// ErrNotReady is returned when a result is requested before the job completed,
	// or when the recorded result file no longer exists on disk
	ErrNotReady = errors.New("job result not ready")
)

// Job is one asynchronous unit of work tracked by the store.
// ResultPath is set if and only if Status is completed; Error is set
// only when Status is failed.
type Job struct {
	ID         string    `json:"job_id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	ResultPath string    `json:"result_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Update is a partial mutation merged into an existing record.
// Nil fields are left untouched.
type Update struct {
	Status     *string
	Progress   *int
	Message    *string
	ResultPath *string
	Error      *string
}

// Helpers to build pointer fields without one-off variables at call sites.

func String(s string) *string { return &s }

func Int(i int) *int { return &i }
