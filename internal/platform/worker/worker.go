// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package worker provides the bounded background executor used by long-running jobs.

# Architecture

The executor owns several named pools (import, format, task). Each pool is a
fixed number of goroutines reading from a bounded queue. Request handlers only
enqueue work and return a job ID; a full queue is reported immediately instead
of blocking the request.

# Lifecycle

Workers run under an [errgroup.Group] bound to the executor's context.
[Executor.Shutdown] stops intake, lets the queues drain, and cancels the task
context if the drain deadline passes.
*/
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

var (
	// ErrQueueFull is returned when a pool cannot accept more work.
	ErrQueueFull = apperr.ServiceUnavailable("The server is busy, please retry later")

	// ErrStopped is returned after Shutdown has begun.
	ErrStopped = apperr.ServiceUnavailable("The server is shutting down")
)

// Task is a unit of background work. The context is cancelled when the
// executor gives up draining during shutdown.
type Task func(ctx context.Context)

// PoolConfig sizes one named pool.
type PoolConfig struct {
	Name      string
	Workers   int
	QueueSize int
}

// Submitter is what the engines depend on.
type Submitter interface {
	Submit(pool string, task Task) error
}

type pool struct {
	config PoolConfig
	queue  chan Task
}

// Executor runs [Task] values on named pools.
type Executor struct {
	mu      sync.RWMutex
	stopped bool
	pools   map[string]*pool
	group   *errgroup.Group
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// NewExecutor starts the workers of every configured pool.
func NewExecutor(parent context.Context, logger *slog.Logger, configs ...PoolConfig) (*Executor, error) {
	base, cancel := context.WithCancel(parent)
	group, groupCtx := errgroup.WithContext(base)

	executor := &Executor{
		pools:  make(map[string]*pool, len(configs)),
		group:  group,
		cancel: cancel,
		logger: logger,
	}

	for _, config := range configs {
		if config.Workers < 1 || config.QueueSize < 0 {
			cancel()
			return nil, fmt.Errorf("worker: invalid size for pool %q", config.Name)
		}
		if _, exists := executor.pools[config.Name]; exists {
			cancel()
			return nil, fmt.Errorf("worker: duplicate pool %q", config.Name)
		}

		current := &pool{config: config, queue: make(chan Task, config.QueueSize)}
		executor.pools[config.Name] = current

		for index := 0; index < config.Workers; index++ {
			group.Go(func() error {
				executor.work(groupCtx, current)
				return nil
			})
		}

		logger.Info("worker_pool_started",
			slog.String("pool", config.Name),
			slog.Int("workers", config.Workers),
			slog.Int("queue_size", config.QueueSize),
		)
	}

	return executor, nil
}

// Submit enqueues task on the named pool without blocking.
func (executor *Executor) Submit(poolName string, task Task) error {
	executor.mu.RLock()
	defer executor.mu.RUnlock()

	if executor.stopped {
		return ErrStopped
	}

	target, ok := executor.pools[poolName]
	if !ok {
		return apperr.Internal(fmt.Errorf("worker: unknown pool %q", poolName))
	}

	select {
	case target.queue <- task:
		return nil
	default:
		executor.logger.Warn("worker_queue_full", slog.String("pool", poolName))
		return ErrQueueFull
	}
}

// Shutdown stops intake and waits for queued tasks. When ctx expires first,
// running tasks see their context cancelled and Shutdown returns ctx.Err().
func (executor *Executor) Shutdown(ctx context.Context) error {
	executor.mu.Lock()
	if !executor.stopped {
		executor.stopped = true
		for _, current := range executor.pools {
			close(current.queue)
		}
	}
	executor.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = executor.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		executor.cancel()
		return nil
	case <-ctx.Done():
		executor.cancel()
		<-done
		return ctx.Err()
	}
}

// work drains one pool's queue until it is closed.
func (executor *Executor) work(ctx context.Context, current *pool) {
	for task := range current.queue {
		executor.run(ctx, current.config.Name, task)
	}
}

// run executes one task, turning a panic into a log entry.
func (executor *Executor) run(ctx context.Context, poolName string, task Task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			stackTrace := make([]byte, 4096)
			length := runtime.Stack(stackTrace, false)
			executor.logger.Error("worker_task_panicked",
				slog.String("pool", poolName),
				slog.Any("error", recovered),
				slog.String("stack", string(stackTrace[:length])),
			)
		}
	}()

	task(ctx)
}
