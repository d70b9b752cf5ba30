// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package jobs_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/platform/jobs"
)

// fakeClock is a settable clock shared by a tracker under test.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

func (clock *fakeClock) Advance(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(duration)
}

func newTracker(clock *fakeClock, options ...jobs.Option) *jobs.Tracker {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	options = append(options, jobs.WithClock(clock.Now))
	return jobs.NewTracker(logger, options...)
}

func newClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

/*
TestTracker_Lifecycle covers the happy path from PENDING to COMPLETED.
*/
func TestTracker_Lifecycle(t *testing.T) {
	tracker := newTracker(newClock())
	id := tracker.Create(jobs.KindTxtImport, "user-1")

	job, err := tracker.Get(id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, job.Status)
	assert.Equal(t, jobs.KindTxtImport, job.Kind)
	assert.NotNil(t, job.Errors)

	job, err = tracker.Update(id, func(job *jobs.Job) {
		job.Status = jobs.StatusProcessing
		job.TotalBatches = 2
	})
	require.NoError(t, err)
	assert.NotNil(t, job.StartedAt)

	job, err = tracker.Update(id, func(job *jobs.Job) {
		job.Status = jobs.StatusCompleted
	})
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
	assert.NotNil(t, job.FinishedAt)

	// Terminal is final
	_, err = tracker.Update(id, func(job *jobs.Job) { job.Message = "late" })
	assert.ErrorIs(t, err, jobs.ErrJobFinished)
}

/*
TestTracker_Transitions rejects moves the state machine does not allow.
*/
func TestTracker_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []jobs.Status
		wantErr error
	}{
		{"pending_to_failed", []jobs.Status{jobs.StatusFailed}, nil},
		{"pending_to_cancelled", []jobs.Status{jobs.StatusCancelled}, nil},
		{"pending_to_completed", []jobs.Status{jobs.StatusCompleted}, jobs.ErrInvalidTransition},
		{"processing_to_pending", []jobs.Status{jobs.StatusProcessing, jobs.StatusPending}, jobs.ErrInvalidTransition},
		{"processing_to_cancelled", []jobs.Status{jobs.StatusProcessing, jobs.StatusCancelled}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTracker(newClock())
			id := tracker.Create(jobs.KindFormatFile, "u")

			var err error
			for _, status := range tt.path {
				_, err = tracker.Update(id, func(job *jobs.Job) { job.Status = status })
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

/*
TestTracker_MonotonicAndIdentity restores identity fields and keeps counters from decreasing.
*/
func TestTracker_MonotonicAndIdentity(t *testing.T) {
	tracker := newTracker(newClock())
	id := tracker.Create(jobs.KindTxtImport, "owner")

	_, err := tracker.Update(id, func(job *jobs.Job) {
		job.Status = jobs.StatusProcessing
		job.ProcessedCount = 5
		job.SuccessCount = 4
		job.Progress = 50
	})
	require.NoError(t, err)

	job, err := tracker.Update(id, func(job *jobs.Job) {
		job.ID = "forged"
		job.OwnerID = "intruder"
		job.ProcessedCount = 1
		job.Progress = 10
	})
	require.NoError(t, err)

	assert.Equal(t, id, job.ID)
	assert.Equal(t, "owner", job.OwnerID)
	assert.Equal(t, 5, job.ProcessedCount)
	assert.Equal(t, 4, job.SuccessCount)
	assert.Equal(t, 50, job.Progress)
}

/*
TestTracker_SnapshotIsolation checks that callers cannot mutate the stored record.
*/
func TestTracker_SnapshotIsolation(t *testing.T) {
	tracker := newTracker(newClock())
	id := tracker.Create(jobs.KindTxtImport, "owner")

	_, err := tracker.Update(id, func(job *jobs.Job) {
		job.AddError(jobs.Error{ChapterNumber: 1, Message: "bad"})
	})
	require.NoError(t, err)

	snapshot, err := tracker.Get(id)
	require.NoError(t, err)
	snapshot.Errors[0].Message = "tampered"

	fresh, err := tracker.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "bad", fresh.Errors[0].Message)
}

/*
TestJob_AddErrorBounded keeps at most MaxErrors entries and counts the rest.
*/
func TestJob_AddErrorBounded(t *testing.T) {
	job := &jobs.Job{}
	for index := 0; index < jobs.MaxErrors+7; index++ {
		job.AddError(jobs.Error{Message: "x"})
	}

	assert.Len(t, job.Errors, jobs.MaxErrors)
	assert.Equal(t, 7, job.DroppedErrors)
}

/*
TestTracker_Ownership hides foreign jobs and restricts cancellation to the owner.
*/
func TestTracker_Ownership(t *testing.T) {
	tracker := newTracker(newClock())
	id := tracker.Create(jobs.KindTxtImport, "alice")
	tracker.Create(jobs.KindFormatFile, "alice")
	tracker.Create(jobs.KindTxtImport, "bob")

	_, err := tracker.GetOwned(id, "bob")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	assert.False(t, tracker.RequestCancel(id, "bob"))
	assert.False(t, tracker.CancelRequested(id))
	assert.True(t, tracker.RequestCancel(id, "alice"))
	assert.True(t, tracker.CancelRequested(id))

	assert.Len(t, tracker.ListByOwner("alice", ""), 2)
	assert.Len(t, tracker.ListByOwner("alice", jobs.KindTxtImport), 1)
	assert.Empty(t, tracker.ListByOwner("carol", ""))

	// Terminal jobs cannot be cancelled
	_, err = tracker.Update(id, func(job *jobs.Job) { job.Status = jobs.StatusCancelled })
	require.NoError(t, err)
	assert.False(t, tracker.RequestCancel(id, "alice"))
}

/*
TestTracker_Cleanup evicts terminal jobs and refuses running ones.
*/
func TestTracker_Cleanup(t *testing.T) {
	tracker := newTracker(newClock())

	var evicted []string
	tracker.OnEvict(func(job jobs.Job) { evicted = append(evicted, job.ID) })

	id := tracker.Create(jobs.KindFormatFile, "u")
	assert.ErrorIs(t, tracker.Cleanup(id), jobs.ErrJobRunning)

	_, err := tracker.Update(id, func(job *jobs.Job) { job.Status = jobs.StatusFailed })
	require.NoError(t, err)

	require.NoError(t, tracker.Cleanup(id))
	assert.Equal(t, []string{id}, evicted)

	_, err = tracker.Get(id)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, tracker.Cleanup(id), jobs.ErrJobNotFound)
}

/*
TestTracker_Sweep covers retention and the stall watchdog.
*/
func TestTracker_Sweep(t *testing.T) {
	clock := newClock()
	tracker := newTracker(clock,
		jobs.WithRetention(time.Hour),
		jobs.WithStallTimeout(time.Minute, 10*time.Second),
	)

	finished := tracker.Create(jobs.KindFormatFile, "u")
	_, err := tracker.Update(finished, func(job *jobs.Job) { job.Status = jobs.StatusFailed })
	require.NoError(t, err)

	stalled := tracker.Create(jobs.KindTxtImport, "u")
	_, err = tracker.Update(stalled, func(job *jobs.Job) {
		job.Status = jobs.StatusProcessing
		job.TotalBatches = 3
		job.CurrentBatch = 1
	})
	require.NoError(t, err)

	// 1. Inside both windows nothing changes (stall window = 1m + 2 × 10s)
	clock.Advance(80 * time.Second)
	tracker.Sweep()

	job, err := tracker.Get(stalled)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, job.Status)

	// 2. Past the stall window the job fails
	clock.Advance(time.Second)
	tracker.Sweep()

	job, err = tracker.Get(stalled)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)

	// 3. Past retention the finished job is evicted
	clock.Advance(time.Hour)
	tracker.Sweep()

	_, err = tracker.Get(finished)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

/*
TestTracker_ConcurrentReaders runs readers against a writer under the race detector.
*/
func TestTracker_ConcurrentReaders(t *testing.T) {
	tracker := newTracker(newClock())
	id := tracker.Create(jobs.KindTxtImport, "u")
	_, err := tracker.Update(id, func(job *jobs.Job) { job.Status = jobs.StatusProcessing })
	require.NoError(t, err)

	var wg sync.WaitGroup
	for reader := 0; reader < 4; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for index := 0; index < 200; index++ {
				job, err := tracker.Get(id)
				if err != nil {
					t.Error(err)
					return
				}
				if job.ProcessedCount < last || job.SuccessCount != job.ProcessedCount {
					t.Errorf("torn snapshot: %+v", job)
					return
				}
				last = job.ProcessedCount
			}
		}()
	}

	for index := 1; index <= 200; index++ {
		_, err := tracker.Update(id, func(job *jobs.Job) {
			job.ProcessedCount = index
			job.SuccessCount = index
		})
		require.NoError(t, err)
	}
	wg.Wait()
}
