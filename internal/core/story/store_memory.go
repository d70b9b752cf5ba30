// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/pkg/uuid"
)

// # In-Memory Repository

// MemoryRepository is a process-local [Repository] for tests and offline tools.
// It enforces the same uniqueness rules as the database schema.
type MemoryRepository struct {
	mu       sync.RWMutex
	stories  map[string]*Story
	chapters map[string]*Chapter
}

// NewMemoryRepository constructs an empty [MemoryRepository].
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stories:  make(map[string]*Story),
		chapters: make(map[string]*Chapter),
	}
}

// AddStory stores a copy of story, assigning an ID when empty.
func (repository *MemoryRepository) AddStory(story Story) *Story {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if story.ID == "" {
		story.ID = uuid.New()
	}
	repository.stories[story.ID] = &story

	copied := story
	return &copied
}

// AddChapter stores a copy of chapter, assigning an ID when empty.
func (repository *MemoryRepository) AddChapter(chapter Chapter) *Chapter {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if chapter.ID == "" {
		chapter.ID = uuid.New()
	}
	repository.chapters[chapter.ID] = &chapter

	copied := chapter
	return &copied
}

// Chapters returns every chapter of the story with content, ordered by number.
func (repository *MemoryRepository) Chapters(storyID string) []Chapter {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	result := make([]Chapter, 0)
	for _, chapter := range repository.chapters {
		if chapter.StoryID == storyID {
			result = append(result, *chapter)
		}
	}
	slices.SortFunc(result, func(left, right Chapter) int { return left.Number - right.Number })
	return result
}

// FindStoryByID implements [Repository].
func (repository *MemoryRepository) FindStoryByID(_ context.Context, id string) (*Story, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	story, ok := repository.stories[id]
	if !ok {
		return nil, ErrStoryNotFound
	}
	copied := *story
	return &copied, nil
}

// FindChapterByID implements [Repository].
func (repository *MemoryRepository) FindChapterByID(_ context.Context, id string) (*Chapter, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	chapter, ok := repository.chapters[id]
	if !ok {
		return nil, ErrChapterNotFound
	}
	copied := *chapter
	return &copied, nil
}

// ListChapters implements [Repository].
func (repository *MemoryRepository) ListChapters(_ context.Context, storyID string, from, to int) ([]*Chapter, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	result := make([]*Chapter, 0)
	for _, chapter := range repository.chapters {
		if chapter.StoryID != storyID || chapter.Number < from || (to > 0 && chapter.Number > to) {
			continue
		}
		copied := *chapter
		copied.Content = ""
		result = append(result, &copied)
	}
	slices.SortFunc(result, func(left, right *Chapter) int { return left.Number - right.Number })
	return result, nil
}

// ExistingChapterNumbers implements [Repository].
func (repository *MemoryRepository) ExistingChapterNumbers(_ context.Context, storyID string, numbers []int) (map[int]bool, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	existing := make(map[int]bool, len(numbers))
	for _, chapter := range repository.chapters {
		if chapter.StoryID == storyID && slices.Contains(numbers, chapter.Number) {
			existing[chapter.Number] = true
		}
	}
	return existing, nil
}

// InsertChaptersBatch implements [Repository]. The batch is validated in full
// before anything is written, so a conflict leaves the store untouched.
func (repository *MemoryRepository) InsertChaptersBatch(_ context.Context, storyID string, drafts []ChapterDraft, overwrite bool) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	byNumber := make(map[int]*Chapter)
	bySlug := make(map[string]*Chapter)
	for _, chapter := range repository.chapters {
		if chapter.StoryID == storyID {
			byNumber[chapter.Number] = chapter
		}
		bySlug[chapter.Slug] = chapter
	}

	// 1. Validate
	seenNumbers := make(map[int]bool, len(drafts))
	seenSlugs := make(map[string]bool, len(drafts))
	for _, draft := range drafts {
		if seenNumbers[draft.Number] || seenSlugs[draft.Slug] {
			return conflict(draft.Number)
		}
		seenNumbers[draft.Number] = true
		seenSlugs[draft.Slug] = true

		existing, exists := byNumber[draft.Number]
		if exists && !overwrite {
			return conflict(draft.Number)
		}
		if owner, taken := bySlug[draft.Slug]; taken && (!exists || owner.ID != existing.ID) {
			return conflict(draft.Number)
		}
	}

	// 2. Apply
	current := time.Now()
	for _, draft := range drafts {
		if existing, exists := byNumber[draft.Number]; exists {
			existing.Title = draft.Title
			existing.Slug = draft.Slug
			existing.Content = draft.Content
			existing.WordCount = draft.WordCount
			existing.UpdatedAt = current
			continue
		}

		chapter := &Chapter{
			ID:        uuid.New(),
			StoryID:   storyID,
			Number:    draft.Number,
			Slug:      draft.Slug,
			Title:     draft.Title,
			Content:   draft.Content,
			WordCount: draft.WordCount,
			CreatedAt: current,
			UpdatedAt: current,
		}
		repository.chapters[chapter.ID] = chapter
	}

	return nil
}

func conflict(number int) error {
	return apperr.Conflict("Cannot insert chapters: a record with the same key already exists").
		WithCause(fmt.Errorf("memory: duplicate chapter %d", number))
}
