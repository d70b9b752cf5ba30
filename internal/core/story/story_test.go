// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/core/story"
	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/ctxutil"
	"github.com/taibuivan/truyen/internal/platform/sec"
)

/*
TestMemoryRepository_InsertChaptersBatch covers insert, conflict and overwrite.
*/
func TestMemoryRepository_InsertChaptersBatch(t *testing.T) {
	ctx := context.Background()
	repository := story.NewMemoryRepository()
	novel := repository.AddStory(story.Story{Slug: "tien-nghich", Title: "Tiên Nghịch", AuthorID: "author"})

	// 1. Plain insert
	err := repository.InsertChaptersBatch(ctx, novel.ID, []story.ChapterDraft{
		{Number: 1, Slug: "tien-nghich-chuong-1", Title: "Một", Content: "a"},
		{Number: 2, Slug: "tien-nghich-chuong-2", Title: "Hai", Content: "b"},
	}, false)
	require.NoError(t, err)

	// 2. Duplicate without overwrite leaves the store untouched
	err = repository.InsertChaptersBatch(ctx, novel.ID, []story.ChapterDraft{
		{Number: 3, Slug: "tien-nghich-chuong-3", Title: "Ba", Content: "c"},
		{Number: 2, Slug: "tien-nghich-chuong-2-x", Title: "Hai", Content: "b2"},
	}, false)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Len(t, repository.Chapters(novel.ID), 2)

	// 3. Overwrite replaces in place
	err = repository.InsertChaptersBatch(ctx, novel.ID, []story.ChapterDraft{
		{Number: 2, Slug: "tien-nghich-chuong-2-moi", Title: "Hai mới", Content: "b2"},
	}, true)
	require.NoError(t, err)

	chapters := repository.Chapters(novel.ID)
	require.Len(t, chapters, 2)
	assert.Equal(t, "Hai mới", chapters[1].Title)
	assert.Equal(t, "b2", chapters[1].Content)

	existing, err := repository.ExistingChapterNumbers(ctx, novel.ID, []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true}, existing)
}

/*
TestMemoryRepository_ListChapters honours the range bounds and omits content.
*/
func TestMemoryRepository_ListChapters(t *testing.T) {
	ctx := context.Background()
	repository := story.NewMemoryRepository()
	novel := repository.AddStory(story.Story{Slug: "s"})
	for number := 5; number >= 1; number-- {
		repository.AddChapter(story.Chapter{StoryID: novel.ID, Number: number, Content: "x"})
	}
	repository.AddChapter(story.Chapter{StoryID: "other", Number: 1})

	tests := []struct {
		name     string
		from, to int
		want     []int
	}{
		{"closed", 2, 4, []int{2, 3, 4}},
		{"open", 4, 0, []int{4, 5}},
		{"empty", 6, 9, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapters, err := repository.ListChapters(ctx, novel.ID, tt.from, tt.to)
			require.NoError(t, err)

			numbers := make([]int, 0, len(chapters))
			for _, chapter := range chapters {
				numbers = append(numbers, chapter.Number)
				assert.Empty(t, chapter.Content)
			}
			assert.Equal(t, tt.want, numbers)
		})
	}
}

/*
TestOwnershipAuthorizer grants authors their own stories and staff everything.
*/
func TestOwnershipAuthorizer(t *testing.T) {
	repository := story.NewMemoryRepository()
	novel := repository.AddStory(story.Story{Slug: "s", AuthorID: "author"})
	chapter := repository.AddChapter(story.Chapter{StoryID: novel.ID, Number: 1})
	authorizer := story.NewOwnershipAuthorizer(repository)

	withRole := func(userID string, role sec.UserRole) context.Context {
		return ctxutil.WithAuthUser(context.Background(), &sec.AuthClaims{UserID: userID, Role: string(role)})
	}

	tests := []struct {
		name   string
		ctx    context.Context
		userID string
		want   bool
	}{
		{"author", context.Background(), "author", true},
		{"stranger", context.Background(), "reader", false},
		{"member_role", withRole("reader", sec.RoleMember), "reader", false},
		{"moderator", withRole("mod", sec.RoleModerator), "mod", true},
		{"admin", withRole("admin", sec.RoleAdmin), "admin", true},
		{"claims_for_someone_else", withRole("admin", sec.RoleAdmin), "reader", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authorizer.CanManageStory(tt.ctx, tt.userID, novel))

			allowed, err := authorizer.CanManageChapter(tt.ctx, tt.userID, chapter.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}

	_, err := authorizer.CanManageChapter(context.Background(), "author", "missing")
	assert.ErrorIs(t, err, story.ErrChapterNotFound)
}
