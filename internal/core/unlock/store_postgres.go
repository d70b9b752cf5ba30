// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package unlock

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/truyen/internal/platform/database/schema"
	"github.com/taibuivan/truyen/internal/platform/dberr"
	"github.com/taibuivan/truyen/internal/platform/postgres"
)

// # PostgreSQL Store

type unlockStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed [Store].
func NewStore(pool *pgxpool.Pool) Store {
	return &unlockStore{pool: pool}
}

/*
InsertUnlocks inserts every row in one statement. Rows that already exist are
skipped by the primary key and left out of the returned IDs.
*/
func (store *unlockStore) InsertUnlocks(context context.Context, userID string, unlocks []Unlock) ([]string, error) {
	if len(unlocks) == 0 {
		return []string{}, nil
	}

	chapterIDs := make([]string, len(unlocks))
	storyIDs := make([]string, len(unlocks))
	prices := make([]int64, len(unlocks))
	methods := make([]string, len(unlocks))
	for index, unlock := range unlocks {
		chapterIDs[index] = unlock.ChapterID
		storyIDs[index] = unlock.StoryID
		prices[index] = unlock.PricePaid
		methods[index] = string(unlock.Method)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		SELECT $1, input.chapter, input.story, input.price, input.method
		FROM unnest($2::uuid[], $3::uuid[], $4::bigint[], $5::text[]) AS input(chapter, story, price, method)
		ON CONFLICT (%s, %s) DO NOTHING
		RETURNING %s::text
	`,
		schema.WalletChapterUnlock.Table,
		schema.WalletChapterUnlock.UserID, schema.WalletChapterUnlock.ChapterID, schema.WalletChapterUnlock.StoryID,
		schema.WalletChapterUnlock.PricePaid, schema.WalletChapterUnlock.Method,
		schema.WalletChapterUnlock.UserID, schema.WalletChapterUnlock.ChapterID,
		schema.WalletChapterUnlock.ChapterID,
	)

	rows, err := postgres.Conn(context, store.pool).Query(context, query, userID, chapterIDs, storyIDs, prices, methods)
	if err != nil {
		return nil, dberr.Wrap(err, "insert unlocks")
	}
	defer rows.Close()

	inserted := make([]string, 0, len(unlocks))
	for rows.Next() {
		var chapterID string
		if err := rows.Scan(&chapterID); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan unlock: %w", err)
		}
		inserted = append(inserted, chapterID)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "insert unlocks")
	}

	return inserted, nil
}

/*
UnlockedChapterIDs lists the chapters of a story the user owns.
*/
func (store *unlockStore) UnlockedChapterIDs(context context.Context, userID, storyID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s::text FROM %s WHERE %s = $1 AND %s = $2 ORDER BY %s`,
		schema.WalletChapterUnlock.ChapterID, schema.WalletChapterUnlock.Table,
		schema.WalletChapterUnlock.UserID, schema.WalletChapterUnlock.StoryID,
		schema.WalletChapterUnlock.CreatedAt,
	)

	rows, err := postgres.Conn(context, store.pool).Query(context, query, userID, storyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list unlocks: %w", err)
	}
	defer rows.Close()

	chapterIDs := make([]string, 0)
	for rows.Next() {
		var chapterID string
		if err := rows.Scan(&chapterID); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan unlock: %w", err)
		}
		chapterIDs = append(chapterIDs, chapterID)
	}

	return chapterIDs, rows.Err()
}
