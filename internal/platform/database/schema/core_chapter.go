// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CoreChapterTable represents the 'core.chapter' table
type CoreChapterTable struct {
	Table         string
	ID            string
	StoryID       string
	ChapterNumber string
	Slug          string
	Title         string
	Content       string
	WordCount     string
	IsLocked      string
	Price         string
	IsVIPOnly     string
	CreatedAt     string
	UpdatedAt     string
}

// CoreChapter is the schema definition for core.chapter
var CoreChapter = CoreChapterTable{
	Table:         "core.chapter",
	ID:            "id",
	StoryID:       "storyid",
	ChapterNumber: "chapternumber",
	Slug:          "slug",
	Title:         "title",
	Content:       "content",
	WordCount:     "wordcount",
	IsLocked:      "islocked",
	Price:         "price",
	IsVIPOnly:     "isviponly",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

func (t CoreChapterTable) Columns() []string {
	return []string{
		t.ID, t.StoryID, t.ChapterNumber, t.Slug, t.Title, t.Content, t.WordCount,
		t.IsLocked, t.Price, t.IsVIPOnly, t.CreatedAt, t.UpdatedAt,
	}
}
