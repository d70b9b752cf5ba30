// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// WalletBalanceTable represents the 'wallet.balance' table.
// One row per (user, currency) keeps row locks scoped to that pair.
type WalletBalanceTable struct {
	Table     string
	UserID    string
	Currency  string
	Amount    string
	UpdatedAt string
}

// WalletBalance is the schema definition for wallet.balance
var WalletBalance = WalletBalanceTable{
	Table:     "wallet.balance",
	UserID:    "userid",
	Currency:  "currency",
	Amount:    "amount",
	UpdatedAt: "updatedat",
}
