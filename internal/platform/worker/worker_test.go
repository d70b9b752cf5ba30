// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package worker_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/platform/worker"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

/*
TestExecutor_RunsTasks verifies that every submitted task runs before Shutdown returns.
*/
func TestExecutor_RunsTasks(t *testing.T) {
	executor, err := worker.NewExecutor(context.Background(), newLogger(),
		worker.PoolConfig{Name: "import", Workers: 2, QueueSize: 10},
		worker.PoolConfig{Name: "format", Workers: 1, QueueSize: 10},
	)
	require.NoError(t, err)

	var count atomic.Int32
	for index := 0; index < 5; index++ {
		require.NoError(t, executor.Submit("import", func(context.Context) { count.Add(1) }))
		require.NoError(t, executor.Submit("format", func(context.Context) { count.Add(1) }))
	}

	require.NoError(t, executor.Shutdown(context.Background()))
	assert.Equal(t, int32(10), count.Load())

	// Intake is closed after shutdown
	assert.ErrorIs(t, executor.Submit("import", func(context.Context) {}), worker.ErrStopped)
}

/*
TestExecutor_QueueFull rejects work instead of blocking the caller.
*/
func TestExecutor_QueueFull(t *testing.T) {
	executor, err := worker.NewExecutor(context.Background(), newLogger(),
		worker.PoolConfig{Name: "task", Workers: 1, QueueSize: 1},
	)
	require.NoError(t, err)

	gate := make(chan struct{})
	started := make(chan struct{})

	// 1. Occupy the single worker
	require.NoError(t, executor.Submit("task", func(context.Context) {
		close(started)
		<-gate
	}))
	<-started

	// 2. Fill the queue, then overflow it
	require.NoError(t, executor.Submit("task", func(context.Context) {}))
	assert.ErrorIs(t, executor.Submit("task", func(context.Context) {}), worker.ErrQueueFull)

	close(gate)
	require.NoError(t, executor.Shutdown(context.Background()))
}

/*
TestExecutor_PanicRecovered keeps the worker alive after a panicking task.
*/
func TestExecutor_PanicRecovered(t *testing.T) {
	executor, err := worker.NewExecutor(context.Background(), newLogger(),
		worker.PoolConfig{Name: "task", Workers: 1, QueueSize: 4},
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, executor.Submit("task", func(context.Context) { panic("boom") }))
	require.NoError(t, executor.Submit("task", func(context.Context) { wg.Done() }))

	wg.Wait()
	require.NoError(t, executor.Shutdown(context.Background()))
}

/*
TestExecutor_ShutdownDeadline cancels running tasks once the drain deadline passes.
*/
func TestExecutor_ShutdownDeadline(t *testing.T) {
	executor, err := worker.NewExecutor(context.Background(), newLogger(),
		worker.PoolConfig{Name: "task", Workers: 1, QueueSize: 1},
	)
	require.NoError(t, err)

	started := make(chan struct{})
	require.NoError(t, executor.Submit("task", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	deadline, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, executor.Shutdown(deadline), context.DeadlineExceeded)
}

/*
TestNewExecutor_Invalid rejects unusable pool definitions.
*/
func TestNewExecutor_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		configs []worker.PoolConfig
	}{
		{"zero_workers", []worker.PoolConfig{{Name: "a", Workers: 0, QueueSize: 1}}},
		{"duplicate", []worker.PoolConfig{{Name: "a", Workers: 1}, {Name: "a", Workers: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := worker.NewExecutor(context.Background(), newLogger(), tt.configs...)
			assert.Error(t, err)
		})
	}
}
