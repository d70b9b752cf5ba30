// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package story holds the catalogue entities the importer writes and the unlock
engine prices: stories and their chapters.

Generic catalogue CRUD lives elsewhere; this package only exposes what the
platform core consumes through [Repository] and [Authorizer].
*/
package story

import (
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

var (
	// ErrStoryNotFound is returned when the story does not exist.
	ErrStoryNotFound = apperr.NotFound("Story")

	// ErrChapterNotFound is returned when the chapter does not exist.
	ErrChapterNotFound = apperr.NotFound("Chapter")
)

// # Domain Entities

// Story is a published novel.
type Story struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chapter is one chapter of a story. Price is in spirit stones.
type Chapter struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"story_id"`
	Number    int       `json:"chapter_number"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	WordCount int       `json:"word_count"`
	IsLocked  bool      `json:"is_locked"`
	Price     int64     `json:"price"`
	IsVIPOnly bool      `json:"is_vip_only"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Paid reports whether reading the chapter requires an unlock.
func (chapter *Chapter) Paid() bool {
	return chapter.IsLocked && chapter.Price > 0
}

// ChapterDraft is the importer's insert unit.
type ChapterDraft struct {
	Number    int
	Title     string
	Slug      string
	Content   string
	WordCount int
}
