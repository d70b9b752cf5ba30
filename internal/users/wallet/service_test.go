// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package wallet_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/txn"
	"github.com/taibuivan/truyen/internal/users/wallet"
	"github.com/taibuivan/truyen/pkg/pagination"
)

func newService() (*wallet.Service, *wallet.MemoryStore) {
	store := wallet.NewMemoryStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return wallet.NewService(store, txn.NewMemory(), 50, logger), store
}

func credit(t *testing.T, service *wallet.Service, userID string, currency wallet.Currency, amount int64) {
	t.Helper()
	_, err := service.Credit(context.Background(), wallet.Entry{
		UserID: userID, Currency: currency, Amount: amount, Type: wallet.TypeTopUp,
	})
	require.NoError(t, err)
}

/*
TestService_DebitCredit covers the basic ledger operations and their guards.
*/
func TestService_DebitCredit(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()
	credit(t, service, "u1", wallet.CurrencySpiritStone, 100)

	transaction, err := service.Debit(ctx, wallet.Entry{
		UserID: "u1", Currency: wallet.CurrencySpiritStone, Amount: 30, Type: wallet.TypeChapterUnlock,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-30), transaction.Amount)
	assert.Equal(t, int64(70), transaction.BalanceAfter)
	assert.NotEmpty(t, transaction.ID)

	// Insufficient funds leaves the balance untouched
	_, err = service.Debit(ctx, wallet.Entry{
		UserID: "u1", Currency: wallet.CurrencySpiritStone, Amount: 71, Type: wallet.TypeChapterUnlock,
	})
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Equal(t, 402, apperr.As(err).HTTPStatus)

	balance, err := service.Balance(ctx, "u1", wallet.CurrencySpiritStone)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	invalid := []wallet.Entry{
		{UserID: "u1", Currency: wallet.CurrencySpiritStone, Amount: 0, Type: wallet.TypeSpend},
		{UserID: "u1", Currency: wallet.CurrencySpiritStone, Amount: -5, Type: wallet.TypeSpend},
		{UserID: "u1", Currency: "GOLD", Amount: 5, Type: wallet.TypeSpend},
		{UserID: "u1", Currency: wallet.CurrencyCash, Amount: 5, Type: "BRIBE"},
		{UserID: "", Currency: wallet.CurrencyCash, Amount: 5, Type: wallet.TypeSpend},
	}
	for _, entry := range invalid {
		_, err := service.Debit(ctx, entry)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	}
}

/*
TestService_ConcurrentDebits never lets a balance go negative.
*/
func TestService_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()
	credit(t, service, "u1", wallet.CurrencySpiritStone, 100)
	credit(t, service, "u2", wallet.CurrencySpiritStone, 100)

	var succeeded, refused atomic.Int64
	var wg sync.WaitGroup
	for index := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := "u1"
			if index%2 == 1 {
				userID = "u2"
			}
			_, err := service.Debit(ctx, wallet.Entry{
				UserID: userID, Currency: wallet.CurrencySpiritStone, Amount: 7, Type: wallet.TypeChapterUnlock,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, wallet.ErrInsufficientFunds):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// 25 attempts per user, 100/7 = 14 can succeed
	assert.Equal(t, int64(28), succeeded.Load())
	assert.Equal(t, int64(22), refused.Load())

	for _, userID := range []string{"u1", "u2"} {
		report, err := service.Reconcile(ctx, userID, wallet.CurrencySpiritStone)
		require.NoError(t, err)
		assert.Equal(t, int64(2), report.Balance)
		assert.True(t, report.Consistent)
	}
}

/*
TestService_Reconcile holds after a mixed sequence including a rolled back transaction.
*/
func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	service, store := newService()
	manager := txn.NewMemory()

	credit(t, service, "u1", wallet.CurrencyCash, 1000)
	_, err := service.Exchange(ctx, "u1", 420)
	require.NoError(t, err)
	_, err = service.Adjust(ctx, wallet.Adjustment{
		UserID: "u1", Currency: wallet.CurrencySpiritStone, Amount: 5, ActorID: "admin",
	})
	require.NoError(t, err)

	// A failing unit of work undoes its ledger rows
	err = manager.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := service.Debit(ctx, wallet.Entry{
			UserID: "u1", Currency: wallet.CurrencySpiritStone, Amount: 3, Type: wallet.TypeChapterUnlock,
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	for _, currency := range wallet.Currencies {
		report, err := service.Reconcile(ctx, "u1", currency)
		require.NoError(t, err)
		assert.True(t, report.Consistent, currency)
	}

	stones, err := store.Balance(ctx, "u1", wallet.CurrencySpiritStone)
	require.NoError(t, err)
	assert.Equal(t, int64(8+5), stones)
}

/*
TestService_Exchange buys whole stones and keeps the remainder as cash.
*/
func TestService_Exchange(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()
	credit(t, service, "u1", wallet.CurrencyCash, 500)

	receipt, err := service.Exchange(ctx, "u1", 420)
	require.NoError(t, err)
	assert.Equal(t, int64(400), receipt.CashSpent)
	assert.Equal(t, int64(8), receipt.StonesEarned)
	assert.Equal(t, wallet.TypeSpiritExchange, receipt.Debit.Type)
	assert.Equal(t, wallet.TypeSpiritEarn, receipt.Credit.Type)

	account, err := service.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &wallet.Wallet{UserID: "u1", Cash: 100, SpiritStone: 8}, account)

	// Not enough cash: nothing changes
	_, err = service.Exchange(ctx, "u1", 150)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	// Below the price of one stone
	_, err = service.Exchange(ctx, "u1", 49)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	account, err = service.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.Cash)
	assert.Equal(t, int64(8), account.SpiritStone)
}

/*
TestService_Adjust covers signed amounts, description and the non-negative guard.
*/
func TestService_Adjust(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()

	tests := []struct {
		name     string
		input    wallet.Adjustment
		wantErr  error
		wantCode string
		wantDesc string
		wantLeft int64
	}{
		{
			name:     "grant",
			input:    wallet.Adjustment{UserID: "u1", Currency: wallet.CurrencyRecommendationTicket, Amount: 3, ActorID: "admin"},
			wantDesc: "[admin:admin] Balance adjustment",
			wantLeft: 3,
		},
		{
			name:     "revoke",
			input:    wallet.Adjustment{UserID: "u1", Currency: wallet.CurrencyRecommendationTicket, Amount: -2, ActorID: "admin", Description: "Refund abuse"},
			wantDesc: "[admin:admin] Refund abuse",
			wantLeft: 1,
		},
		{
			name:     "overdraw",
			input:    wallet.Adjustment{UserID: "u1", Currency: wallet.CurrencyRecommendationTicket, Amount: -2, ActorID: "admin"},
			wantErr:  wallet.ErrInsufficientFunds,
			wantLeft: 1,
		},
		{
			name:     "zero",
			input:    wallet.Adjustment{UserID: "u1", Currency: wallet.CurrencyRecommendationTicket, ActorID: "admin"},
			wantCode: "VALIDATION_ERROR",
			wantLeft: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transaction, err := service.Adjust(ctx, tt.input)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				assert.Equal(t, tt.wantCode, apperr.As(err).Code)
			default:
				require.NoError(t, err)
				assert.Equal(t, wallet.TypeAdminAdjustment, transaction.Type)
				assert.Equal(t, tt.wantDesc, transaction.Description)
				assert.Equal(t, "admin", transaction.ActorID)
			}

			balance, err := service.Balance(ctx, "u1", wallet.CurrencyRecommendationTicket)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft, balance)
		})
	}
}

/*
TestService_Transactions pages newest first and filters by currency.
*/
func TestService_Transactions(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()
	for amount := int64(1); amount <= 5; amount++ {
		credit(t, service, "u1", wallet.CurrencySpiritStone, amount)
	}
	credit(t, service, "u1", wallet.CurrencyCash, 1000)
	credit(t, service, "u2", wallet.CurrencySpiritStone, 9)

	page, total, err := service.Transactions(ctx, "u1", wallet.TransactionFilter{Currency: wallet.CurrencySpiritStone},
		pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(5), page[0].Amount)
	assert.Equal(t, int64(4), page[1].Amount)

	page, _, err = service.Transactions(ctx, "u1", wallet.TransactionFilter{Currency: wallet.CurrencySpiritStone},
		pagination.Params{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].Amount)

	_, total, err = service.Transactions(ctx, "u1", wallet.TransactionFilter{}, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	_, _, err = service.Transactions(ctx, "u1", wallet.TransactionFilter{Type: "BRIBE"}, pagination.Params{Page: 1, Limit: 20})
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}
