// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/txn"
	"github.com/taibuivan/truyen/internal/platform/validate"
	"github.com/taibuivan/truyen/pkg/pagination"
)

// DefaultExchangeRate is the CASH price of one spirit stone.
const DefaultExchangeRate = 50

// Service is the ledger API used by handlers and other engines.
type Service struct {
	store        Store
	txManager    txn.Manager
	exchangeRate int64
	logger       *slog.Logger
}

// NewService constructs the ledger. A non-positive exchangeRate falls back to
// [DefaultExchangeRate].
func NewService(store Store, txManager txn.Manager, exchangeRate int64, logger *slog.Logger) *Service {
	if exchangeRate < 1 {
		exchangeRate = DefaultExchangeRate
	}
	return &Service{store: store, txManager: txManager, exchangeRate: exchangeRate, logger: logger}
}

// # Reads

// Balance returns one balance of the user.
func (service *Service) Balance(ctx context.Context, userID string, currency Currency) (int64, error) {
	if !currency.Valid() {
		return 0, invalidCurrency()
	}
	return service.store.Balance(ctx, userID, currency)
}

// Wallet returns every balance of the user.
func (service *Service) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	balances, err := service.store.Balances(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		UserID:               userID,
		Cash:                 balances[CurrencyCash],
		SpiritStone:          balances[CurrencySpiritStone],
		RecommendationTicket: balances[CurrencyRecommendationTicket],
	}, nil
}

/*
Transactions returns one page of the user's ledger, newest first.

Parameters:
  - ctx: context.Context
  - userID: string
  - filter: TransactionFilter (empty fields match everything)
  - params: pagination.Params

Returns:
  - []*Transaction: the page
  - int: total number of matching rows
  - error: validation error for an unknown currency or type
*/
func (service *Service) Transactions(ctx context.Context, userID string, filter TransactionFilter, params pagination.Params) ([]*Transaction, int, error) {
	if filter.Currency != "" && !filter.Currency.Valid() {
		return nil, 0, invalidCurrency()
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, validate.RequiredError("type", "Unknown transaction type")
	}
	params = params.Normalize()
	return service.store.ListTransactions(ctx, userID, filter, params.Limit, params.Offset())
}

// Reconcile compares the balance with the sum of its ledger rows.
func (service *Service) Reconcile(ctx context.Context, userID string, currency Currency) (*Reconciliation, error) {
	if !currency.Valid() {
		return nil, invalidCurrency()
	}

	balance, err := service.store.Balance(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	sum, err := service.store.LedgerSum(ctx, userID, currency)
	if err != nil {
		return nil, err
	}

	if balance != sum {
		service.logger.Error("wallet_ledger_mismatch",
			slog.String("user_id", userID),
			slog.String("currency", string(currency)),
			slog.Int64("balance", balance),
			slog.Int64("ledger_sum", sum),
		)
	}

	return &Reconciliation{
		UserID:     userID,
		Currency:   currency,
		Balance:    balance,
		LedgerSum:  sum,
		Consistent: balance == sum,
	}, nil
}

// # Writes

/*
Debit takes entry.Amount from the balance.

It joins the transaction carried by ctx, so a caller can combine the charge
with its own writes.

Returns:
  - *Transaction: the ledger row (negative amount)
  - error: ErrInsufficientFunds, or a validation error
*/
func (service *Service) Debit(ctx context.Context, entry Entry) (*Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	transaction := &Transaction{
		UserID:      entry.UserID,
		Amount:      -entry.Amount,
		Currency:    entry.Currency,
		Type:        entry.Type,
		Description: entry.Description,
	}
	if err := service.store.Apply(ctx, transaction); err != nil {
		return nil, err
	}

	service.logger.Info("wallet_debited",
		slog.String("user_id", entry.UserID),
		slog.String("currency", string(entry.Currency)),
		slog.String("type", string(entry.Type)),
		slog.Int64("amount", entry.Amount),
		slog.Int64("balance_after", transaction.BalanceAfter),
	)
	return transaction, nil
}

// Credit adds entry.Amount to the balance.
func (service *Service) Credit(ctx context.Context, entry Entry) (*Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	transaction := &Transaction{
		UserID:      entry.UserID,
		Amount:      entry.Amount,
		Currency:    entry.Currency,
		Type:        entry.Type,
		Description: entry.Description,
	}
	if err := service.store.Apply(ctx, transaction); err != nil {
		return nil, err
	}

	service.logger.Info("wallet_credited",
		slog.String("user_id", entry.UserID),
		slog.String("currency", string(entry.Currency)),
		slog.String("type", string(entry.Type)),
		slog.Int64("amount", entry.Amount),
		slog.Int64("balance_after", transaction.BalanceAfter),
	)
	return transaction, nil
}

/*
Adjust applies an administrative correction.

The amount is signed and the balance still cannot go negative. The
description is prefixed with the acting admin so the ledger shows who made
the change.
*/
func (service *Service) Adjust(ctx context.Context, adjustment Adjustment) (*Transaction, error) {
	validator := &validate.Validator{}
	validator.
		Required("user_id", adjustment.UserID).
		Required("actor_id", adjustment.ActorID).
		Custom("currency", !adjustment.Currency.Valid(), "Unknown currency").
		Custom("amount", adjustment.Amount == 0, "Must not be zero").
		MaxLen("description", adjustment.Description, 500)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(adjustment.Description)
	if description == "" {
		description = "Balance adjustment"
	}

	transaction := &Transaction{
		UserID:      adjustment.UserID,
		Amount:      adjustment.Amount,
		Currency:    adjustment.Currency,
		Type:        TypeAdminAdjustment,
		Description: fmt.Sprintf("[admin:%s] %s", adjustment.ActorID, description),
		ActorID:     adjustment.ActorID,
	}
	if err := service.store.Apply(ctx, transaction); err != nil {
		return nil, err
	}

	service.logger.Warn("wallet_adjusted",
		slog.String("user_id", adjustment.UserID),
		slog.String("actor_id", adjustment.ActorID),
		slog.String("currency", string(adjustment.Currency)),
		slog.Int64("amount", adjustment.Amount),
		slog.Int64("balance_after", transaction.BalanceAfter),
	)
	return transaction, nil
}

/*
Exchange converts cash into spirit stones at the configured rate.

Only whole stones are bought; the remainder of cashAmount stays in the
wallet. Both ledger rows are written in one transaction.
*/
func (service *Service) Exchange(ctx context.Context, userID string, cashAmount int64) (*ExchangeReceipt, error) {
	stones := cashAmount / service.exchangeRate
	if stones < 1 {
		return nil, validate.RequiredError("cash_amount",
			fmt.Sprintf("Must be at least %d", service.exchangeRate))
	}

	receipt := &ExchangeReceipt{CashSpent: stones * service.exchangeRate, StonesEarned: stones, Rate: service.exchangeRate}

	err := service.txManager.WithinTx(ctx, func(ctx context.Context) error {
		debit, err := service.Debit(ctx, Entry{
			UserID:      userID,
			Currency:    CurrencyCash,
			Amount:      receipt.CashSpent,
			Type:        TypeSpiritExchange,
			Description: fmt.Sprintf("Exchange %d VND for %d spirit stones", receipt.CashSpent, stones),
		})
		if err != nil {
			return err
		}

		credit, err := service.Credit(ctx, Entry{
			UserID:      userID,
			Currency:    CurrencySpiritStone,
			Amount:      stones,
			Type:        TypeSpiritEarn,
			Description: fmt.Sprintf("Received %d spirit stones from exchange", stones),
		})
		if err != nil {
			return err
		}

		receipt.Debit, receipt.Credit = debit, credit
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// # Helpers

func validateEntry(entry Entry) error {
	validator := &validate.Validator{}
	validator.
		Required("user_id", entry.UserID).
		Custom("currency", !entry.Currency.Valid(), "Unknown currency").
		Custom("type", !entry.Type.Valid(), "Unknown transaction type").
		Positive("amount", entry.Amount)
	return validator.Err()
}

func invalidCurrency() *apperr.AppError {
	return validate.RequiredError("currency", "Unknown currency")
}
