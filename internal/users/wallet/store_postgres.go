// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/truyen/internal/platform/database/schema"
	"github.com/taibuivan/truyen/internal/platform/dberr"
	"github.com/taibuivan/truyen/internal/platform/postgres"
	"github.com/taibuivan/truyen/pkg/uuid"
)

// # PostgreSQL Store

type walletStore struct {
	pool      *pgxpool.Pool
	txManager *postgres.TxManager
}

// NewStore constructs a PostgreSQL backed [Store].
func NewStore(pool *pgxpool.Pool) Store {
	return &walletStore{pool: pool, txManager: postgres.NewTxManager(pool)}
}

/*
Apply changes one balance and appends the matching ledger row.

# Flow
 1. Make sure the (user, currency) row exists.
 2. Conditionally update it; the row lock is held until the transaction ends.
 3. No row updated means the balance would go negative.
 4. Append the ledger row with the resulting balance.
*/
func (store *walletStore) Apply(ctx context.Context, transaction *Transaction) error {
	return store.txManager.WithinTx(ctx, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, store.pool)

		// 1. Ensure row
		ensure := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, 0) ON CONFLICT DO NOTHING`,
			schema.WalletBalance.Table,
			schema.WalletBalance.UserID, schema.WalletBalance.Currency, schema.WalletBalance.Amount,
		)
		if _, err := conn.Exec(ctx, ensure, transaction.UserID, transaction.Currency); err != nil {
			return fmt.Errorf("postgres: failed to ensure balance row: %w", err)
		}

		// 2. Conditional update
		update := fmt.Sprintf(`UPDATE %s SET %s = %s + $3, %s = NOW()
			WHERE %s = $1 AND %s = $2 AND %s + $3 >= 0
			RETURNING %s`,
			schema.WalletBalance.Table,
			schema.WalletBalance.Amount, schema.WalletBalance.Amount, schema.WalletBalance.UpdatedAt,
			schema.WalletBalance.UserID, schema.WalletBalance.Currency, schema.WalletBalance.Amount,
			schema.WalletBalance.Amount,
		)

		var balanceAfter int64
		err := conn.QueryRow(ctx, update, transaction.UserID, transaction.Currency, transaction.Amount).Scan(&balanceAfter)
		if err != nil {
			// 3. Guard failed
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("postgres: failed to update balance: %w", err)
		}

		// 4. Ledger row
		transaction.ID = uuid.New()
		transaction.BalanceAfter = balanceAfter

		insert := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8)
			RETURNING %s`,
			schema.WalletTransaction.Table,
			schema.WalletTransaction.ID, schema.WalletTransaction.UserID, schema.WalletTransaction.Amount,
			schema.WalletTransaction.Currency, schema.WalletTransaction.Type, schema.WalletTransaction.Description,
			schema.WalletTransaction.ActorID, schema.WalletTransaction.BalanceAfter,
			schema.WalletTransaction.CreatedAt,
		)

		err = conn.QueryRow(ctx, insert,
			transaction.ID,
			transaction.UserID,
			transaction.Amount,
			transaction.Currency,
			transaction.Type,
			transaction.Description,
			transaction.ActorID,
			transaction.BalanceAfter,
		).Scan(&transaction.CreatedAt)
		if err != nil {
			return dberr.Wrap(err, "append ledger row")
		}

		return nil
	})
}

/*
Balance returns the current amount, zero when the row does not exist yet.
*/
func (store *walletStore) Balance(context context.Context, userID string, currency Currency) (int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		schema.WalletBalance.Amount, schema.WalletBalance.Table,
		schema.WalletBalance.UserID, schema.WalletBalance.Currency,
	)

	var amount int64
	err := postgres.Conn(context, store.pool).QueryRow(context, query, userID, currency).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: failed to read balance: %w", err)
	}
	return amount, nil
}

/*
Balances returns every stored balance of the user.
*/
func (store *walletStore) Balances(context context.Context, userID string) (map[Currency]int64, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = $1`,
		schema.WalletBalance.Currency, schema.WalletBalance.Amount,
		schema.WalletBalance.Table, schema.WalletBalance.UserID,
	)

	rows, err := postgres.Conn(context, store.pool).Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[Currency]int64, len(Currencies))
	for rows.Next() {
		var currency Currency
		var amount int64
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan balance: %w", err)
		}
		balances[currency] = amount
	}

	return balances, rows.Err()
}

/*
ListTransactions returns one page of the user's ledger, newest first.
*/
func (store *walletStore) ListTransactions(context context.Context, userID string, filter TransactionFilter, limit, offset int) ([]*Transaction, int, error) {
	conditions := []string{fmt.Sprintf("%s = $1", schema.WalletTransaction.UserID)}
	arguments := []any{userID}

	if filter.Currency != "" {
		arguments = append(arguments, filter.Currency)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.WalletTransaction.Currency, len(arguments)))
	}
	if filter.Type != "" {
		arguments = append(arguments, filter.Type)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.WalletTransaction.Type, len(arguments)))
	}
	where := strings.Join(conditions, " AND ")

	conn := postgres.Conn(context, store.pool)

	// 1. Total
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.WalletTransaction.Table, where)
	if err := conn.QueryRow(context, countQuery, arguments...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to count transactions: %w", err)
	}

	// 2. Page
	pageQuery := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, COALESCE(%s::text, ''), %s, %s
		FROM %s WHERE %s
		ORDER BY %s DESC, %s DESC
		LIMIT $%d OFFSET $%d`,
		schema.WalletTransaction.ID, schema.WalletTransaction.UserID, schema.WalletTransaction.Amount,
		schema.WalletTransaction.Currency, schema.WalletTransaction.Type, schema.WalletTransaction.Description,
		schema.WalletTransaction.ActorID, schema.WalletTransaction.BalanceAfter, schema.WalletTransaction.CreatedAt,
		schema.WalletTransaction.Table, where,
		schema.WalletTransaction.CreatedAt, schema.WalletTransaction.ID,
		len(arguments)+1, len(arguments)+2,
	)

	rows, err := conn.Query(context, pageQuery, append(arguments, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*Transaction, 0, limit)
	for rows.Next() {
		var transaction Transaction
		if err := rows.Scan(
			&transaction.ID,
			&transaction.UserID,
			&transaction.Amount,
			&transaction.Currency,
			&transaction.Type,
			&transaction.Description,
			&transaction.ActorID,
			&transaction.BalanceAfter,
			&transaction.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &transaction)
	}

	return transactions, total, rows.Err()
}

/*
LedgerSum adds up every ledger amount of one (user, currency) pair.
*/
func (store *walletStore) LedgerSum(context context.Context, userID string, currency Currency) (int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s = $1 AND %s = $2`,
		schema.WalletTransaction.Amount, schema.WalletTransaction.Table,
		schema.WalletTransaction.UserID, schema.WalletTransaction.Currency,
	)

	var sum int64
	if err := postgres.Conn(context, store.pool).QueryRow(context, query, userID, currency).Scan(&sum); err != nil {
		return 0, fmt.Errorf("postgres: failed to sum ledger: %w", err)
	}
	return sum, nil
}
