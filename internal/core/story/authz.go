// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"

	"github.com/taibuivan/truyen/internal/platform/ctxutil"
	"github.com/taibuivan/truyen/internal/platform/sec"
)

// # Authorization

// Authorizer answers capability questions about stories and chapters.
type Authorizer interface {
	CanManageStory(ctx context.Context, userID string, story *Story) bool
	CanManageChapter(ctx context.Context, userID, chapterID string) (bool, error)
}

// OwnershipAuthorizer lets staff manage everything and authors manage their own stories.
//
// Staff status comes from the claims in ctx (moderator and above). Without
// claims, as in background jobs, only authorship counts.
type OwnershipAuthorizer struct {
	repository Repository
}

// NewOwnershipAuthorizer constructs an [OwnershipAuthorizer].
func NewOwnershipAuthorizer(repository Repository) *OwnershipAuthorizer {
	return &OwnershipAuthorizer{repository: repository}
}

// CanManageStory implements [Authorizer].
func (authorizer *OwnershipAuthorizer) CanManageStory(ctx context.Context, userID string, story *Story) bool {
	if ctxutil.ActsWithRole(ctx, userID, sec.RoleModerator) {
		return true
	}
	return story != nil && userID != "" && story.AuthorID == userID
}

// CanManageChapter implements [Authorizer].
func (authorizer *OwnershipAuthorizer) CanManageChapter(ctx context.Context, userID, chapterID string) (bool, error) {
	chapter, err := authorizer.repository.FindChapterByID(ctx, chapterID)
	if err != nil {
		return false, err
	}

	story, err := authorizer.repository.FindStoryByID(ctx, chapter.StoryID)
	if err != nil {
		return false, err
	}

	return authorizer.CanManageStory(ctx, userID, story), nil
}
