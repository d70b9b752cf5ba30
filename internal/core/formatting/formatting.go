// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package formatting cleans whole TXT files in the background and keeps the
result for download.

A job streams the upload line by line through [textformat.Formatter] into an
artifact named after the job. Nothing is held in memory beyond one line, so
files up to the configured limit (100 MB by default) are fine. Progress is
measured in bytes read.

Artifacts live as long as their job: when the tracker evicts a job, its file
is deleted.
*/
package formatting

import (
	"regexp"
	"strings"

	requestutil "github.com/taibuivan/truyen/internal/platform/request"
	"github.com/taibuivan/truyen/pkg/textformat"
)

// Multipart field names.
const (
	FieldFile               = "file"
	FieldRemoveWatermark    = "remove_watermark"
	FieldRemoveSpecialChars = "remove_special_chars"
	FieldMergeEmptyLines    = "merge_empty_lines"
	FieldFormatPunctuation  = "format_punctuation"
)

// progressEvery is how many lines pass between progress updates and cancel checks.
const progressEvery = 2000

// Options selects the formatter steps for one job.
type Options struct {
	RemoveWatermark    bool `json:"remove_watermark"`
	RemoveSpecialChars bool `json:"remove_special_chars"`
	MergeEmptyLines    bool `json:"merge_empty_lines"`
	FormatPunctuation  bool `json:"format_punctuation"`
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{
		RemoveWatermark:    true,
		RemoveSpecialChars: true,
		MergeEmptyLines:    true,
		FormatPunctuation:  true,
	}
}

func (options Options) formatter(watermarks []*regexp.Regexp) textformat.Options {
	return textformat.Options{
		RemoveWatermark:    options.RemoveWatermark,
		RemoveSpecialChars: options.RemoveSpecialChars,
		MergeEmptyLines:    options.MergeEmptyLines,
		FormatPunctuation:  options.FormatPunctuation,
		Watermarks:         watermarks,
	}
}

// optionsFromForm reads the optional boolean fields; absent fields default to true.
func optionsFromForm(fields map[string]string) (Options, error) {
	options := DefaultOptions()
	targets := []struct {
		field  string
		target *bool
	}{
		{FieldRemoveWatermark, &options.RemoveWatermark},
		{FieldRemoveSpecialChars, &options.RemoveSpecialChars},
		{FieldMergeEmptyLines, &options.MergeEmptyLines},
		{FieldFormatPunctuation, &options.FormatPunctuation},
	}

	for _, entry := range targets {
		value, err := requestutil.Bool(entry.field, fields[entry.field], true)
		if err != nil {
			return Options{}, err
		}
		*entry.target = value
	}
	return options, nil
}

// Result is attached to a completed format job.
type Result struct {
	FileName         string           `json:"file_name"`
	OriginalName     string           `json:"original_name"`
	OriginalSize     int64            `json:"original_size"`
	FormattedSize    int64            `json:"formatted_size"`
	OriginalLines    int              `json:"original_lines"`
	FormattedLines   int              `json:"formatted_lines"`
	ChaptersDetected int              `json:"chapters_detected"`
	Options          Options          `json:"options"`
	Stats            textformat.Stats `json:"stats"`
}

// OutputName derives "<name>_formatted.txt" from the uploaded file name.
func OutputName(original string) string {
	base := original
	if index := strings.LastIndex(base, "."); index > 0 {
		base = base[:index]
	}
	base = strings.TrimSpace(base)
	if base == "" {
		base = "novel"
	}
	return base + "_formatted.txt"
}
