// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

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

// # PostgreSQL Repository

// storyRepository implements [Repository] using pgx.
// Reads join the transaction carried by the context, if any.
type storyRepository struct {
	pool      *pgxpool.Pool
	txManager *postgres.TxManager
}

// NewRepository constructs a PostgreSQL backed story store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &storyRepository{pool: pool, txManager: postgres.NewTxManager(pool)}
}

/*
FindStoryByID returns the story row for id.
*/
func (repository *storyRepository) FindStoryByID(context context.Context, id string) (*Story, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		schema.CoreStory.ID, schema.CoreStory.Slug, schema.CoreStory.Title,
		schema.CoreStory.AuthorID, schema.CoreStory.CreatedAt, schema.CoreStory.UpdatedAt,
		schema.CoreStory.Table,
		schema.CoreStory.ID,
	)

	var story Story
	err := postgres.Conn(context, repository.pool).QueryRow(context, query, id).Scan(
		&story.ID,
		&story.Slug,
		&story.Title,
		&story.AuthorID,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoryNotFound
		}
		return nil, fmt.Errorf("postgres: failed to find story by id: %w", err)
	}

	return &story, nil
}

/*
FindChapterByID returns the full chapter row for id.
*/
func (repository *storyRepository) FindChapterByID(context context.Context, id string) (*Chapter, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.CoreChapter.Columns(), ", "),
		schema.CoreChapter.Table,
		schema.CoreChapter.ID,
	)

	var chapter Chapter
	err := postgres.Conn(context, repository.pool).QueryRow(context, query, id).Scan(
		&chapter.ID,
		&chapter.StoryID,
		&chapter.Number,
		&chapter.Slug,
		&chapter.Title,
		&chapter.Content,
		&chapter.WordCount,
		&chapter.IsLocked,
		&chapter.Price,
		&chapter.IsVIPOnly,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("postgres: failed to find chapter by id: %w", err)
	}

	return &chapter, nil
}

/*
ListChapters returns chapter metadata in [from, to], ordered by number.

Description: Content is not selected; the unlock engine only needs numbers,
lock flags and prices, and full stories can run to thousands of chapters.
*/
func (repository *storyRepository) ListChapters(context context.Context, storyID string, from, to int) ([]*Chapter, error) {
	var queryBuilder strings.Builder
	args := []any{storyID, from}

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s >= $2
	`,
		schema.CoreChapter.ID, schema.CoreChapter.StoryID, schema.CoreChapter.ChapterNumber,
		schema.CoreChapter.Slug, schema.CoreChapter.Title, schema.CoreChapter.WordCount,
		schema.CoreChapter.IsLocked, schema.CoreChapter.Price, schema.CoreChapter.IsVIPOnly,
		schema.CoreChapter.CreatedAt, schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.Table,
		schema.CoreChapter.StoryID, schema.CoreChapter.ChapterNumber,
	))

	// Open upper bound when to is zero
	if to > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s <= $3", schema.CoreChapter.ChapterNumber))
		args = append(args, to)
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s ASC", schema.CoreChapter.ChapterNumber))

	rows, err := postgres.Conn(context, repository.pool).Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := make([]*Chapter, 0)
	for rows.Next() {
		var chapter Chapter
		err := rows.Scan(
			&chapter.ID,
			&chapter.StoryID,
			&chapter.Number,
			&chapter.Slug,
			&chapter.Title,
			&chapter.WordCount,
			&chapter.IsLocked,
			&chapter.Price,
			&chapter.IsVIPOnly,
			&chapter.CreatedAt,
			&chapter.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan chapter: %w", err)
		}
		chapters = append(chapters, &chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate chapters: %w", err)
	}

	return chapters, nil
}

/*
ExistingChapterNumbers reports which numbers already exist using a single ANY($2) probe.
*/
func (repository *storyRepository) ExistingChapterNumbers(context context.Context, storyID string, numbers []int) (map[int]bool, error) {
	existing := make(map[int]bool, len(numbers))
	if len(numbers) == 0 {
		return existing, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = ANY($2)`,
		schema.CoreChapter.ChapterNumber,
		schema.CoreChapter.Table,
		schema.CoreChapter.StoryID,
		schema.CoreChapter.ChapterNumber,
	)

	rows, err := postgres.Conn(context, repository.pool).Query(context, query, storyID, numbers)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to probe chapter numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var number int
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan chapter number: %w", err)
		}
		existing[number] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate chapter numbers: %w", err)
	}

	return existing, nil
}

/*
InsertChaptersBatch writes drafts in one transaction using a pipelined batch.

Description: With overwrite the insert becomes an upsert on
(storyid, chapternumber); the chapter keeps its ID and lock settings while
title, slug and content are replaced. Without overwrite a duplicate number
aborts the whole batch with a Conflict.
*/
func (repository *storyRepository) InsertChaptersBatch(ctx context.Context, storyID string, drafts []ChapterDraft, overwrite bool) error {
	if len(drafts) == 0 {
		return nil
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.ID, schema.CoreChapter.StoryID, schema.CoreChapter.ChapterNumber,
		schema.CoreChapter.Slug, schema.CoreChapter.Title, schema.CoreChapter.Content, schema.CoreChapter.WordCount,
	)

	// Upsert keeps id, lock flag and price of the replaced chapter
	if overwrite {
		insert += fmt.Sprintf(`
			ON CONFLICT (%s, %s) DO UPDATE SET
				%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = NOW()
		`,
			schema.CoreChapter.StoryID, schema.CoreChapter.ChapterNumber,
			schema.CoreChapter.Slug, schema.CoreChapter.Slug,
			schema.CoreChapter.Title, schema.CoreChapter.Title,
			schema.CoreChapter.Content, schema.CoreChapter.Content,
			schema.CoreChapter.WordCount, schema.CoreChapter.WordCount,
			schema.CoreChapter.UpdatedAt,
		)
	}

	return repository.txManager.WithinTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, draft := range drafts {
			batch.Queue(insert, uuid.New(), storyID, draft.Number, draft.Slug, draft.Title, draft.Content, draft.WordCount)
		}

		results := postgres.Conn(ctx, repository.pool).SendBatch(ctx, batch)
		for index := range drafts {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return dberr.Wrap(fmt.Errorf("postgres: failed to insert chapter %d: %w", drafts[index].Number, err), "insert chapters")
			}
		}

		if err := results.Close(); err != nil {
			return fmt.Errorf("postgres: failed to close chapter batch: %w", err)
		}
		return nil
	})
}
