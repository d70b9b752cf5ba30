// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package wallet is the append-only ledger behind every balance on the platform.

# Model

A user holds one balance per [Currency], stored as one row per
(user, currency). Every change appends an immutable [Transaction], so the sum
of a user's ledger for a currency always equals that balance.

# Concurrency

A balance change is a single conditional update that refuses to go below zero.
It runs inside the caller's transaction, which lets the unlock engine insert
entitlements and charge for them atomically. Row locks cover one
(user, currency) pair, so unrelated balances never wait on each other.
*/
package wallet

import (
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

// Currency identifies one balance of a wallet.
type Currency string

const (
	// CurrencyCash is real money in VND, topped up through payment gateways.
	CurrencyCash Currency = "CASH"

	// CurrencySpiritStone pays for locked chapters.
	CurrencySpiritStone Currency = "SPIRIT_STONE"

	// CurrencyRecommendationTicket is spent on story votes.
	CurrencyRecommendationTicket Currency = "RECOMMENDATION_TICKET"
)

// Currencies lists every supported currency.
var Currencies = []Currency{CurrencyCash, CurrencySpiritStone, CurrencyRecommendationTicket}

// Valid reports whether currency is supported.
func (currency Currency) Valid() bool {
	switch currency {
	case CurrencyCash, CurrencySpiritStone, CurrencyRecommendationTicket:
		return true
	}
	return false
}

// TransactionType is the business reason recorded on a ledger row.
type TransactionType string

const (
	TypeTopUp              TransactionType = "TOPUP"
	TypeSpend              TransactionType = "SPEND"
	TypeGiftCode           TransactionType = "GIFT_CODE"
	TypeSpiritEarn         TransactionType = "SPIRIT_EARN"
	TypeSpiritSpend        TransactionType = "SPIRIT_SPEND"
	TypeSpiritExchange     TransactionType = "SPIRIT_EXCHANGE"
	TypeAdminAdjustment    TransactionType = "ADMIN_ADJUSTMENT"
	TypeChapterUnlock      TransactionType = "CHAPTER_UNLOCK"
	TypeChapterUnlockBatch TransactionType = "CHAPTER_UNLOCK_BATCH"
	TypeChapterUnlockFull  TransactionType = "CHAPTER_UNLOCK_FULL"
)

// Valid reports whether the type is known.
func (kind TransactionType) Valid() bool {
	switch kind {
	case TypeTopUp, TypeSpend, TypeGiftCode, TypeSpiritEarn, TypeSpiritSpend, TypeSpiritExchange,
		TypeAdminAdjustment, TypeChapterUnlock, TypeChapterUnlockBatch, TypeChapterUnlockFull:
		return true
	}
	return false
}

var (
	// ErrInsufficientFunds is returned when a debit would make a balance negative.
	ErrInsufficientFunds = apperr.InsufficientFunds("Insufficient balance")
)

// Transaction is one immutable ledger row. Amount is negative for debits.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Amount       int64           `json:"amount"`
	Currency     Currency        `json:"currency"`
	Type         TransactionType `json:"type"`
	Description  string          `json:"description"`
	ActorID      string          `json:"actor_id,omitempty"`
	BalanceAfter int64           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Entry describes a debit or a credit. Amount is always positive.
type Entry struct {
	UserID      string
	Currency    Currency
	Amount      int64
	Type        TransactionType
	Description string
}

// Adjustment is an administrative balance override. Amount is signed.
type Adjustment struct {
	UserID      string   `json:"-"`
	Currency    Currency `json:"currency"`
	Amount      int64    `json:"amount"`
	Description string   `json:"description"`
	ActorID     string   `json:"-"`
}

// Wallet is the user's balances in every currency.
type Wallet struct {
	UserID               string `json:"user_id"`
	Cash                 int64  `json:"cash"`
	SpiritStone          int64  `json:"spirit_stone"`
	RecommendationTicket int64  `json:"recommendation_ticket"`
}

// TransactionFilter narrows a transaction listing. Empty fields match everything.
type TransactionFilter struct {
	Currency Currency
	Type     TransactionType
}

// Reconciliation compares a balance with the sum of its ledger.
type Reconciliation struct {
	UserID     string   `json:"user_id"`
	Currency   Currency `json:"currency"`
	Balance    int64    `json:"balance"`
	LedgerSum  int64    `json:"ledger_sum"`
	Consistent bool     `json:"consistent"`
}

// ExchangeReceipt is the outcome of converting cash into spirit stones.
type ExchangeReceipt struct {
	CashSpent    int64        `json:"cash_spent"`
	StonesEarned int64        `json:"stones_earned"`
	Rate         int64        `json:"rate"`
	Debit        *Transaction `json:"debit"`
	Credit       *Transaction `json:"credit"`
}
