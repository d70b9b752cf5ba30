// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CoreStoryTable represents the 'core.story' table
type CoreStoryTable struct {
	Table     string
	ID        string
	Slug      string
	Title     string
	AuthorID  string
	CreatedAt string
	UpdatedAt string
}

// CoreStory is the schema definition for core.story
var CoreStory = CoreStoryTable{
	Table:     "core.story",
	ID:        "id",
	Slug:      "slug",
	Title:     "title",
	AuthorID:  "authorid",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}
