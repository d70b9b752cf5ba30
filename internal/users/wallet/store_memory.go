// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package wallet

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/truyen/internal/platform/txn"
	"github.com/taibuivan/truyen/pkg/uuid"
)

// # In-Memory Store

type cellKey struct {
	userID   string
	currency Currency
}

// cell is one balance with its own lock.
type cell struct {
	mu     sync.Mutex
	amount int64
}

// MemoryStore is a process-local [Store]. Each (user, currency) balance has
// its own mutex; changes made inside a [txn.Memory] transaction are undone if
// the transaction fails.
type MemoryStore struct {
	mu     sync.Mutex
	cells  map[cellKey]*cell
	ledger []*Transaction
	now    func() time.Time
}

// NewMemoryStore constructs an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cells: make(map[cellKey]*cell), now: time.Now}
}

func (store *MemoryStore) cell(userID string, currency Currency) *cell {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := cellKey{userID: userID, currency: currency}
	balance, ok := store.cells[key]
	if !ok {
		balance = &cell{}
		store.cells[key] = balance
	}
	return balance
}

// Apply implements [Store].
func (store *MemoryStore) Apply(ctx context.Context, transaction *Transaction) error {
	balance := store.cell(transaction.UserID, transaction.Currency)

	// 1. Guarded change
	balance.mu.Lock()
	if balance.amount+transaction.Amount < 0 {
		balance.mu.Unlock()
		return ErrInsufficientFunds
	}
	balance.amount += transaction.Amount
	balanceAfter := balance.amount
	balance.mu.Unlock()

	// 2. Ledger
	transaction.ID = uuid.New()
	transaction.BalanceAfter = balanceAfter
	transaction.CreatedAt = store.now()

	copied := *transaction
	store.mu.Lock()
	store.ledger = append(store.ledger, &copied)
	store.mu.Unlock()

	// 3. Compensation
	txn.OnRollback(ctx, func() {
		balance.mu.Lock()
		balance.amount -= copied.Amount
		balance.mu.Unlock()

		store.mu.Lock()
		store.ledger = slices.DeleteFunc(store.ledger, func(entry *Transaction) bool { return entry.ID == copied.ID })
		store.mu.Unlock()
	})

	return nil
}

// Balance implements [Store].
func (store *MemoryStore) Balance(_ context.Context, userID string, currency Currency) (int64, error) {
	balance := store.cell(userID, currency)
	balance.mu.Lock()
	defer balance.mu.Unlock()
	return balance.amount, nil
}

// Balances implements [Store].
func (store *MemoryStore) Balances(ctx context.Context, userID string) (map[Currency]int64, error) {
	balances := make(map[Currency]int64, len(Currencies))
	for _, currency := range Currencies {
		amount, _ := store.Balance(ctx, userID, currency)
		balances[currency] = amount
	}
	return balances, nil
}

// ListTransactions implements [Store].
func (store *MemoryStore) ListTransactions(_ context.Context, userID string, filter TransactionFilter, limit, offset int) ([]*Transaction, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	matched := make([]*Transaction, 0)
	for index := len(store.ledger) - 1; index >= 0; index-- {
		entry := store.ledger[index]
		if entry.UserID != userID ||
			(filter.Currency != "" && entry.Currency != filter.Currency) ||
			(filter.Type != "" && entry.Type != filter.Type) {
			continue
		}
		copied := *entry
		matched = append(matched, &copied)
	}

	total := len(matched)
	if offset >= total {
		return []*Transaction{}, total, nil
	}
	return matched[offset:min(offset+limit, total)], total, nil
}

// LedgerSum implements [Store].
func (store *MemoryStore) LedgerSum(_ context.Context, userID string, currency Currency) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var sum int64
	for _, entry := range store.ledger {
		if entry.UserID == userID && entry.Currency == currency {
			sum += entry.Amount
		}
	}
	return sum, nil
}
