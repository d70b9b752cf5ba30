// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package importer turns an uploaded TXT novel into chapters of an existing story.

# Flow

The request path validates the upload, checks the story and the caller's
rights, takes the story's import lock and queues a job. The job then:

 1. Scans the file once to count chapters in the requested range.
 2. Streams it again, formatting each chapter body and persisting chapters in
    batches, each batch in its own transaction.
 3. Publishes progress after every batch and checks for cancellation before
    the next one.

Chapters persisted before a cancellation or failure stay persisted.
*/
package importer

import (
	"github.com/taibuivan/truyen/internal/platform/validate"
)

const (
	// MaxBatchSize bounds the number of chapters per transaction.
	MaxBatchSize = 50

	// DefaultBatchSize is used when the request does not set one.
	DefaultBatchSize = 20

	maxTitleRunes   = 500
	maxTitleSlugLen = 80
)

// Form field names accepted by the upload endpoint.
const (
	FieldFile              = "file"
	FieldStartFromChapter  = "start_from_chapter"
	FieldEndAtChapter      = "end_at_chapter"
	FieldBatchSize         = "batch_size"
	FieldOverwriteExisting = "overwrite_existing"
	FieldChapterSlugPrefix = "chapter_slug_prefix"
)

// Options tunes one import.
type Options struct {
	// StartFromChapter is the first chapter number imported (inclusive).
	StartFromChapter int `json:"start_from_chapter"`

	// EndAtChapter is the last chapter number imported (inclusive); 0 means no limit.
	EndAtChapter int `json:"end_at_chapter"`

	// BatchSize is the number of chapters written per transaction.
	BatchSize int `json:"batch_size"`

	// OverwriteExisting replaces chapters whose number already exists.
	OverwriteExisting bool `json:"overwrite_existing"`

	// ChapterSlugPrefix replaces the story slug in generated chapter slugs.
	ChapterSlugPrefix string `json:"chapter_slug_prefix,omitempty"`
}

// withDefaults fills unset fields.
func (options Options) withDefaults() Options {
	if options.StartFromChapter == 0 {
		options.StartFromChapter = 1
	}
	if options.BatchSize == 0 {
		options.BatchSize = DefaultBatchSize
	}
	return options
}

// validate checks the option ranges.
func (options Options) validate() error {
	validator := &validate.Validator{}
	validator.
		Custom(FieldStartFromChapter, options.StartFromChapter < 1, "must be at least 1").
		Custom(FieldEndAtChapter, options.EndAtChapter != 0 && options.EndAtChapter < options.StartFromChapter,
			"must be 0 or not less than start_from_chapter").
		Range(FieldBatchSize, options.BatchSize, 1, MaxBatchSize)

	if options.ChapterSlugPrefix != "" {
		validator.Slug(FieldChapterSlugPrefix, options.ChapterSlugPrefix).
			MaxLen(FieldChapterSlugPrefix, options.ChapterSlugPrefix, 150)
	}

	return validator.Err()
}

// inRange reports whether number falls inside the requested range.
func (options Options) inRange(number int) bool {
	return number >= options.StartFromChapter && (options.EndAtChapter == 0 || number <= options.EndAtChapter)
}

// Result is attached to a finished import job.
type Result struct {
	StoryID  string `json:"story_id"`
	Imported int    `json:"imported"`
	Failed   int    `json:"failed"`
}
