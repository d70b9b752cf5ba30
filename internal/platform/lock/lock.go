// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package lock provides named, expiring mutual-exclusion leases.

The importer takes one lease per story so that two imports never write into
the same story at once. The production implementation lives in
internal/platform/redis; [Memory] serves single-process runs and tests.
*/
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

// ErrHeld is returned when another holder owns the lease.
var ErrHeld = apperr.Conflict("The resource is locked by another operation")

// Release gives a lease back. Calling it more than once is safe.
type Release func()

// ReleaseOnce wraps fn so that it runs at most once, however many goroutines
// call the returned [Release].
func ReleaseOnce(fn func()) Release {
	var once sync.Once
	return func() {
		once.Do(fn)
	}
}

// Locker acquires leases that expire after ttl even if never released.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// # In-Memory Leases

type lease struct {
	token     uint64
	expiresAt time.Time
}

// Memory is a process-local [Locker].
type Memory struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

// NewMemory constructs an empty [Memory] locker.
func NewMemory() *Memory {
	return &Memory{leases: make(map[string]lease), now: time.Now}
}

// Acquire implements [Locker].
func (locker *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	locker.mu.Lock()
	defer locker.mu.Unlock()

	current := locker.now()
	if held, ok := locker.leases[key]; ok && current.Before(held.expiresAt) {
		return nil, ErrHeld
	}

	locker.next++
	token := locker.next
	locker.leases[key] = lease{token: token, expiresAt: current.Add(ttl)}

	return ReleaseOnce(func() {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		if held, ok := locker.leases[key]; ok && held.token == token {
			delete(locker.leases, key)
		}
	}), nil
}
