// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package txn defines the unit-of-work abstraction shared by the ledger and the
unlock engine.

A [Manager] runs a function inside one transaction carried by the context.
Repositories pick the open transaction out of the context, so a debit in the
wallet package and an unlock insert in the unlock package commit or roll back
together without either package knowing about the other's tables.

# Nesting

WithinTx called with a context that already carries a transaction joins it;
only the outermost call commits or rolls back.

# Implementations

  - postgres.TxManager: pgx transaction stored in the context.
  - Memory: an undo log for the in-memory stores used in tests and local runs.
    Top-level memory transactions run one at a time, so a row written inside
    one is never observed by another before it commits or rolls back.
*/
package txn

import (
	"context"
	"sync"

	"github.com/taibuivan/truyen/internal/platform/ctxkey"
)

// Manager runs fn inside a single transaction.
type Manager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// # In-Memory Unit of Work

// undoLog collects compensating actions registered during a memory transaction.
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

// Memory is a [Manager] for in-memory stores. Stores register compensating
// actions with [OnRollback]; they run in reverse order when fn fails.
// Outermost calls hold mu for their whole duration.
type Memory struct {
	mu sync.Mutex
}

// NewMemory returns a memory transaction manager.
func NewMemory() *Memory {
	return &Memory{}
}

// WithinTx implements [Manager].
func (manager *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(ctxkey.KeyTransaction).(*undoLog); ok {
		return fn(ctx)
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, ctxkey.KeyTransaction, log)); err != nil {
		log.rollback()
		return err
	}
	return nil
}

// OnRollback registers undo to run if the surrounding memory transaction fails.
// Outside a memory transaction it does nothing.
func OnRollback(ctx context.Context, undo func()) {
	log, ok := ctx.Value(ctxkey.KeyTransaction).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	log.steps = append(log.steps, undo)
	log.mu.Unlock()
}

// rollback runs the registered steps last-in first-out.
func (log *undoLog) rollback() {
	log.mu.Lock()
	steps := log.steps
	log.steps = nil
	log.mu.Unlock()

	for index := len(steps) - 1; index >= 0; index-- {
		steps[index]()
	}
}
