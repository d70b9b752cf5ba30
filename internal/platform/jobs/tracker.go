// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package jobs tracks the background jobs started by the import, format and
unlock engines.

# Consistency

Each job has exactly one record. Writers serialize on the job's own mutex,
apply their mutation to a private copy and publish it with an atomic pointer
swap. Readers load the pointer and receive a deep copy, so a status poll never
observes a half-applied update and never blocks a running batch.

# Lifecycle

	PENDING ──► PROCESSING ──► COMPLETED | FAILED | CANCELLED
	   └──────────────────────► FAILED | CANCELLED

Terminal records stay readable for the retention window, then [Tracker.Sweep]
evicts them. Sweep also fails PROCESSING jobs that stopped reporting progress.
*/
package jobs

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/pkg/uuid"
)

// ErrInvalidTransition is returned when a mutation breaks the state machine.
// The mutation is discarded.
var ErrInvalidTransition = apperr.Conflict("Invalid job status transition")

const (
	defaultRetention     = 24 * time.Hour
	defaultStallTimeout  = 10 * time.Minute
	defaultStallPerBatch = 30 * time.Second
)

// entry holds one job. mu serializes writers; current is what readers load.
type entry struct {
	mu      sync.Mutex
	current atomic.Pointer[Job]
}

// Tracker is the in-memory registry of job records.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	hooks   []func(Job)

	now           func() time.Time
	retention     time.Duration
	stallTimeout  time.Duration
	stallPerBatch time.Duration
	logger        *slog.Logger
}

// Option customizes a [Tracker].
type Option func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(tracker *Tracker) { tracker.now = now }
}

// WithRetention sets how long terminal jobs stay readable.
func WithRetention(retention time.Duration) Option {
	return func(tracker *Tracker) { tracker.retention = retention }
}

// WithStallTimeout sets the watchdog window: base plus perBatch for every batch not yet done.
func WithStallTimeout(base, perBatch time.Duration) Option {
	return func(tracker *Tracker) {
		tracker.stallTimeout = base
		tracker.stallPerBatch = perBatch
	}
}

// NewTracker constructs an empty [Tracker].
func NewTracker(logger *slog.Logger, options ...Option) *Tracker {
	tracker := &Tracker{
		entries:       make(map[string]*entry),
		now:           time.Now,
		retention:     defaultRetention,
		stallTimeout:  defaultStallTimeout,
		stallPerBatch: defaultStallPerBatch,
		logger:        logger,
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker
}

// OnEvict registers a hook called with the final snapshot of every evicted job.
func (tracker *Tracker) OnEvict(hook func(Job)) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.hooks = append(tracker.hooks, hook)
}

// # Writes

/*
Create registers a new PENDING job and returns its ID.

Parameters:
  - kind: Kind (which engine runs the job)
  - ownerID: string (user allowed to read and cancel it)

Returns:
  - string: UUIDv7 job ID
*/
func (tracker *Tracker) Create(kind Kind, ownerID string) string {
	createdAt := tracker.now()
	job := &Job{
		ID:        uuid.New(),
		Kind:      kind,
		OwnerID:   ownerID,
		Status:    StatusPending,
		Errors:    []Error{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	record := &entry{}
	record.current.Store(job)

	tracker.mu.Lock()
	tracker.entries[job.ID] = record
	tracker.mu.Unlock()

	return job.ID
}

/*
Update applies mutate to a private copy of the job and publishes the result.

Identity fields and the cancel flag are restored after mutate runs, counters
and progress never move backwards, and timestamps are maintained here.

Returns:
  - Job: the published snapshot (or the unchanged one on error)
  - error: ErrJobNotFound, ErrJobFinished or ErrInvalidTransition
*/
func (tracker *Tracker) Update(id string, mutate func(*Job)) (Job, error) {
	record := tracker.lookup(id)
	if record == nil {
		return Job{}, ErrJobNotFound
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	previous := record.current.Load()
	if previous.Status.Terminal() {
		return *previous.clone(), ErrJobFinished
	}

	draft := previous.clone()
	mutate(draft)

	if draft.Status != previous.Status && !previous.Status.canMoveTo(draft.Status) {
		return *previous.clone(), ErrInvalidTransition
	}

	// Identity
	draft.ID = previous.ID
	draft.Kind = previous.Kind
	draft.OwnerID = previous.OwnerID
	draft.CreatedAt = previous.CreatedAt
	draft.CancelRequested = previous.CancelRequested
	if draft.Errors == nil {
		draft.Errors = []Error{}
	}

	// Monotonic counters
	draft.ProcessedCount = max(draft.ProcessedCount, previous.ProcessedCount)
	draft.SuccessCount = max(draft.SuccessCount, previous.SuccessCount)
	draft.FailureCount = max(draft.FailureCount, previous.FailureCount)
	draft.CurrentBatch = max(draft.CurrentBatch, previous.CurrentBatch)
	draft.Progress = min(max(draft.Progress, previous.Progress), 100)

	// Timestamps
	current := tracker.now()
	draft.UpdatedAt = current
	if draft.Status == StatusProcessing && draft.StartedAt == nil {
		draft.StartedAt = &current
	}
	if draft.Status.Terminal() {
		draft.FinishedAt = &current
		if draft.Status == StatusCompleted {
			draft.Progress = 100
		}
	}

	record.current.Store(draft)
	return *draft.clone(), nil
}

/*
RequestCancel flags a job for cooperative cancellation.

Returns true only when requesterID owns the job and the job is not terminal.
The running task observes the flag at its next checkpoint.
*/
func (tracker *Tracker) RequestCancel(id, requesterID string) bool {
	record := tracker.lookup(id)
	if record == nil {
		return false
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	previous := record.current.Load()
	if previous.OwnerID != requesterID || previous.Status.Terminal() {
		return false
	}

	draft := previous.clone()
	draft.CancelRequested = true
	record.current.Store(draft)

	return true
}

// Cleanup evicts a terminal job immediately.
func (tracker *Tracker) Cleanup(id string) error {
	record := tracker.lookup(id)
	if record == nil {
		return ErrJobNotFound
	}
	if !record.current.Load().Status.Terminal() {
		return ErrJobRunning
	}
	tracker.evict(id)
	return nil
}

// # Reads

// Get returns a snapshot of the job.
func (tracker *Tracker) Get(id string) (Job, error) {
	record := tracker.lookup(id)
	if record == nil {
		return Job{}, ErrJobNotFound
	}
	return *record.current.Load().clone(), nil
}

// GetOwned returns the job only if userID owns it. Foreign jobs look missing.
func (tracker *Tracker) GetOwned(id, userID string) (Job, error) {
	job, err := tracker.Get(id)
	if err != nil {
		return Job{}, err
	}
	if job.OwnerID != userID {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// CancelRequested reports whether cancellation was requested. Unknown jobs count as cancelled.
func (tracker *Tracker) CancelRequested(id string) bool {
	record := tracker.lookup(id)
	if record == nil {
		return true
	}
	return record.current.Load().CancelRequested
}

// ListByOwner returns the user's jobs of the given kind, newest first. An empty kind matches all.
func (tracker *Tracker) ListByOwner(userID string, kind Kind) []Job {
	tracker.mu.RLock()
	result := make([]Job, 0)
	for _, record := range tracker.entries {
		job := record.current.Load()
		if job.OwnerID != userID || (kind != "" && job.Kind != kind) {
			continue
		}
		result = append(result, *job.clone())
	}
	tracker.mu.RUnlock()

	slices.SortFunc(result, func(left, right Job) int {
		if compared := right.CreatedAt.Compare(left.CreatedAt); compared != 0 {
			return compared
		}
		return strings.Compare(right.ID, left.ID)
	})
	return result
}

// # Maintenance

/*
Sweep evicts expired terminal jobs and fails stalled ones.

A PROCESSING job is stalled when it has not been updated within
stallTimeout + stallPerBatch × (TotalBatches − CurrentBatch).
*/
func (tracker *Tracker) Sweep() {
	current := tracker.now()

	tracker.mu.RLock()
	ids := make([]string, 0, len(tracker.entries))
	for id := range tracker.entries {
		ids = append(ids, id)
	}
	tracker.mu.RUnlock()

	for _, id := range ids {
		record := tracker.lookup(id)
		if record == nil {
			continue
		}
		job := record.current.Load()

		switch {
		case job.Status.Terminal():
			if job.FinishedAt != nil && current.Sub(*job.FinishedAt) > tracker.retention {
				tracker.evict(id)
			}

		case job.Status == StatusProcessing:
			remaining := max(job.TotalBatches-job.CurrentBatch, 0)
			window := tracker.stallTimeout + time.Duration(remaining)*tracker.stallPerBatch
			if current.Sub(job.UpdatedAt) <= window {
				continue
			}

			_, err := tracker.Update(id, func(stalled *Job) {
				stalled.Status = StatusFailed
				stalled.Message = "Job stalled without progress"
			})
			if err == nil {
				tracker.logger.Warn("job_stalled",
					slog.String("job_id", id),
					slog.String("kind", string(job.Kind)),
					slog.Duration("window", window),
				)
			}
		}
	}
}

// Run calls [Tracker.Sweep] every interval until ctx is done.
func (tracker *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.Sweep()
		}
	}
}

// # Internals

func (tracker *Tracker) lookup(id string) *entry {
	tracker.mu.RLock()
	defer tracker.mu.RUnlock()
	return tracker.entries[id]
}

func (tracker *Tracker) evict(id string) {
	tracker.mu.Lock()
	record, ok := tracker.entries[id]
	if ok {
		delete(tracker.entries, id)
	}
	hooks := slices.Clone(tracker.hooks)
	tracker.mu.Unlock()

	if !ok {
		return
	}

	final := *record.current.Load().clone()
	for _, hook := range hooks {
		hook(final)
	}
	tracker.logger.Debug("job_evicted", slog.String("job_id", id), slog.String("status", string(final.Status)))
}
