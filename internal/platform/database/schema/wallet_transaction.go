// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// WalletTransactionTable represents the 'wallet.transaction' table
type WalletTransactionTable struct {
	Table        string
	ID           string
	UserID       string
	Amount       string
	Currency     string
	Type         string
	Description  string
	ActorID      string
	BalanceAfter string
	CreatedAt    string
}

// WalletTransaction is the schema definition for wallet.transaction
var WalletTransaction = WalletTransactionTable{
	Table:        "wallet.transaction",
	ID:           "id",
	UserID:       "userid",
	Amount:       "amount",
	Currency:     "currency",
	Type:         "type",
	Description:  "description",
	ActorID:      "actorid",
	BalanceAfter: "balanceafter",
	CreatedAt:    "createdat",
}

func (t WalletTransactionTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.Amount, t.Currency, t.Type, t.Description, t.ActorID, t.BalanceAfter, t.CreatedAt,
	}
}
