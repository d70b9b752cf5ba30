// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import "context"

// # Story & Chapter Data Access

// Repository defines the data access contract used by the importer and the unlock engine.
type Repository interface {

	/*
		FindStoryByID returns the story with the given ID.

		Returns:
		  - *Story: Hydrated story
		  - error: ErrStoryNotFound if missing
	*/
	FindStoryByID(context context.Context, id string) (*Story, error)

	/*
		FindChapterByID returns the chapter with the given ID, content included.

		Returns:
		  - *Chapter: Hydrated chapter
		  - error: ErrChapterNotFound if missing
	*/
	FindChapterByID(context context.Context, id string) (*Chapter, error)

	/*
		ListChapters returns chapter metadata (no content) ordered by number.

		Parameters:
		  - context: context.Context
		  - storyID: string (UUID)
		  - from: int (inclusive lower bound)
		  - to: int (inclusive upper bound, 0 means no bound)

		Returns:
		  - []*Chapter: Chapters in range
		  - error: Storage failures
	*/
	ListChapters(context context.Context, storyID string, from, to int) ([]*Chapter, error)

	/*
		ExistingChapterNumbers reports which of numbers already exist in the story.

		Returns:
		  - map[int]bool: Numbers present in storage
		  - error: Storage failures
	*/
	ExistingChapterNumbers(context context.Context, storyID string, numbers []int) (map[int]bool, error)

	/*
		InsertChaptersBatch persists drafts atomically: all or none.

		Parameters:
		  - context: context.Context
		  - storyID: string (UUID)
		  - drafts: []ChapterDraft
		  - overwrite: bool (replace chapters with the same number instead of failing)

		Returns:
		  - error: Conflict on duplicate number or slug, storage failures
	*/
	InsertChaptersBatch(context context.Context, storyID string, drafts []ChapterDraft, overwrite bool) error
}
