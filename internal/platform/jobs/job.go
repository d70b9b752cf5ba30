// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package jobs

import (
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

// Kind identifies which engine owns a job.
type Kind string

const (
	KindTxtImport       Kind = "TXT_IMPORT"
	KindFormatFile      Kind = "FORMAT_FILE"
	KindUnlockFullStory Kind = "UNLOCK_FULL_STORY"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

// canMoveTo encodes the job state machine.
func (status Status) canMoveTo(next Status) bool {
	if status == next {
		return !status.Terminal()
	}
	switch status {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed || next == StatusCancelled
	case StatusProcessing:
		return next.Terminal()
	default:
		return false
	}
}

// MaxErrors bounds the error list kept on a job.
const MaxErrors = 100

var (
	// ErrJobNotFound is returned for unknown or evicted jobs, and for jobs owned by someone else.
	ErrJobNotFound = apperr.NotFound("Job")

	// ErrJobFinished is returned when mutating a job that already reached a terminal state.
	ErrJobFinished = apperr.Conflict("The job has already finished")

	// ErrJobRunning is returned when cleaning up a job that is still active.
	ErrJobRunning = apperr.Conflict("The job is still running")
)

// Error is one failure recorded on a job.
type Error struct {
	ChapterNumber int    `json:"chapter_number,omitempty"`
	Batch         int    `json:"batch,omitempty"`
	Message       string `json:"message"`
}

// Job is the snapshot of a background job returned to readers.
type Job struct {
	ID      string `json:"job_id"`
	Kind    Kind   `json:"kind"`
	OwnerID string `json:"owner_id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	TotalChapters  int `json:"total_chapters"`
	ProcessedCount int `json:"processed_count"`
	SuccessCount   int `json:"success_count"`
	FailureCount   int `json:"failure_count"`
	CurrentBatch   int `json:"current_batch"`
	TotalBatches   int `json:"total_batches"`
	Progress       int `json:"progress"`

	Errors        []Error `json:"errors"`
	DroppedErrors int     `json:"dropped_errors,omitempty"`

	CancelRequested bool `json:"cancel_requested"`

	// Result is the kind-specific payload, set once the job completes.
	Result any `json:"result,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// AddError appends an error, counting it as dropped once the list is full.
func (job *Job) AddError(entry Error) {
	if len(job.Errors) >= MaxErrors {
		job.DroppedErrors++
		return
	}
	job.Errors = append(job.Errors, entry)
}

// SetProgress derives the percentage from processed/total.
func (job *Job) SetProgress(processed, total int64) {
	if total <= 0 {
		return
	}
	percent := int(processed * 100 / total)
	if percent > 100 {
		percent = 100
	}
	job.Progress = percent
}

// clone returns a deep copy. Result is treated as immutable once set.
func (job *Job) clone() *Job {
	copied := *job
	if job.Errors != nil {
		copied.Errors = make([]Error, len(job.Errors))
		copy(copied.Errors, job.Errors)
	}
	if job.StartedAt != nil {
		startedAt := *job.StartedAt
		copied.StartedAt = &startedAt
	}
	if job.FinishedAt != nil {
		finishedAt := *job.FinishedAt
		copied.FinishedAt = &finishedAt
	}
	return &copied
}
