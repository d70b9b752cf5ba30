// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package wallet

import "context"

// Store persists balances and the ledger.
type Store interface {
	// Apply adds transaction.Amount to the balance and appends the ledger row
	// atomically, joining the transaction carried by ctx. It fills ID,
	// BalanceAfter and CreatedAt, and returns ErrInsufficientFunds when the
	// balance would become negative.
	Apply(ctx context.Context, transaction *Transaction) error

	Balance(ctx context.Context, userID string, currency Currency) (int64, error)
	Balances(ctx context.Context, userID string) (map[Currency]int64, error)

	// ListTransactions returns one page, newest first, and the total match count.
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter, limit, offset int) ([]*Transaction, int, error)

	LedgerSum(ctx context.Context, userID string, currency Currency) (int64, error)
}
