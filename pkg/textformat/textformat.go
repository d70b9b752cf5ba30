// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package textformat cleans novel text line by line.

# Pipeline

Every line goes through the same steps, in order:

 1. Encoding: invalid UTF-8 dropped, zero-width and soft-hyphen code points
    removed, NFC composition.
 2. Trim.
 3. Watermarks: a line matching any watermark pattern becomes blank.
 4. Special characters: decorative separator lines become blank and leading
    bullets are stripped.
 5. Internal whitespace collapses to single spaces.
 6. Punctuation: no space before ".,!?;:", one space after it unless the next
    character is punctuation, a closing quote or bracket, or the mark sits
    inside a number ("3.14", "1,000", "10:30").
 7. Consecutive blank lines collapse to one.

Steps 3, 4, 6 and 7 are switched by [Options]. The pipeline is deterministic
and idempotent: formatting already formatted text changes nothing.
*/
package textformat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Options selects the optional pipeline steps.
type Options struct {
	RemoveWatermark    bool
	RemoveSpecialChars bool
	MergeEmptyLines    bool
	FormatPunctuation  bool

	// Watermarks replaces the built-in list when non-nil.
	Watermarks []*regexp.Regexp
}

// DefaultOptions enables every step with the built-in watermark list.
func DefaultOptions() Options {
	return Options{
		RemoveWatermark:    true,
		RemoveSpecialChars: true,
		MergeEmptyLines:    true,
		FormatPunctuation:  true,
		Watermarks:         DefaultWatermarks(),
	}
}

// Stats counts what the pipeline changed.
type Stats struct {
	LinesIn          int `json:"lines_in"`
	LinesOut         int `json:"lines_out"`
	WatermarkLines   int `json:"watermark_lines_removed"`
	DecorativeLines  int `json:"decorative_lines_removed"`
	BulletsStripped  int `json:"bullets_stripped"`
	PunctuationFixed int `json:"punctuation_lines_formatted"`
	MergedBlankLines int `json:"blank_lines_merged"`
}

// # Patterns

var (
	defaultWatermarkSources = []string{
		`(?i)dtv-ebook|\bebook\b|vuilen|tve-4u|vietphrase`,
		`(?i)truyen(?:yy|full|hay|kinhdien|tienhiep|hot|moi|cv)`,
		`(?i)wikidich|metruyenchu|sstruyen|tangthuvien`,
		`(?i)^(?:nguồn|source)\s*[:：]`,
	}

	bulletPattern      = regexp.MustCompile(`^(?:[-–—•*]+\s*)+`)
	spaceBeforePattern = regexp.MustCompile(`\s+([.,!?;:])`)
)

// DefaultWatermarks returns a fresh copy of the built-in watermark patterns.
func DefaultWatermarks() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(defaultWatermarkSources))
	for _, source := range defaultWatermarkSources {
		patterns = append(patterns, regexp.MustCompile(source))
	}
	return patterns
}

// CompileWatermarks compiles extra case-insensitive watermark patterns.
func CompileWatermarks(sources []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(sources))
	for _, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		pattern, err := regexp.Compile("(?i)" + source)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

// # Formatter

// Formatter applies the pipeline to a stream of lines. It keeps the blank-line
// state between calls, so it must not be shared between documents.
type Formatter struct {
	options       Options
	watermarks    []*regexp.Regexp
	previousBlank bool
	stats         Stats
}

// NewFormatter constructs a [Formatter].
func NewFormatter(options Options) *Formatter {
	watermarks := options.Watermarks
	if watermarks == nil {
		watermarks = DefaultWatermarks()
	}
	return &Formatter{options: options, watermarks: watermarks}
}

// Stats returns the counters accumulated so far.
func (formatter *Formatter) Stats() Stats {
	return formatter.stats
}

/*
Line formats one line.

Returns:
  - string: the formatted line
  - bool: false when the line is dropped as part of a blank run
*/
func (formatter *Formatter) Line(raw string) (string, bool) {
	formatter.stats.LinesIn++

	line := formatter.clean(raw)

	if line == "" {
		if formatter.options.MergeEmptyLines && formatter.previousBlank {
			formatter.stats.MergedBlankLines++
			return "", false
		}
		formatter.previousBlank = true
	} else {
		formatter.previousBlank = false
	}

	formatter.stats.LinesOut++
	return line, true
}

// clean runs steps 1 to 6.
func (formatter *Formatter) clean(raw string) string {
	line := strings.TrimSpace(normalize(raw))
	if line == "" {
		return ""
	}

	if formatter.dropWatermark(line) {
		return ""
	}

	if formatter.options.RemoveSpecialChars {
		if isDecorative(line) {
			formatter.stats.DecorativeLines++
			return ""
		}
		if stripped := bulletPattern.ReplaceAllString(line, ""); stripped != line {
			formatter.stats.BulletsStripped++
			line = stripped
			if line == "" || isDecorative(line) {
				return ""
			}
		}
	}

	line = strings.Join(strings.Fields(line), " ")

	if formatter.options.FormatPunctuation {
		fixed := fixPunctuation(line)
		if fixed != line {
			formatter.stats.PunctuationFixed++
			line = fixed
		}
	}

	// Stripping a bullet can expose an anchored watermark ("- Nguồn: x"), so
	// the finished line is checked again. A kept line never matches later.
	if formatter.dropWatermark(line) {
		return ""
	}

	return line
}

// dropWatermark reports whether line is removed as a watermark.
func (formatter *Formatter) dropWatermark(line string) bool {
	if !formatter.options.RemoveWatermark {
		return false
	}
	for _, pattern := range formatter.watermarks {
		if pattern.MatchString(line) {
			formatter.stats.WatermarkLines++
			return true
		}
	}
	return false
}

// # Whole Documents

// Format cleans a whole document.
func Format(text string, options Options) string {
	formatted, _ := FormatWithStats(text, options)
	return formatted
}

// FormatWithStats cleans a whole document and reports what changed.
func FormatWithStats(text string, options Options) (string, Stats) {
	formatter := NewFormatter(options)
	lines := strings.Split(text, "\n")
	output := make([]string, 0, len(lines))

	for _, line := range lines {
		if formatted, keep := formatter.Line(strings.TrimSuffix(line, "\r")); keep {
			output = append(output, formatted)
		}
	}

	return strings.Join(output, "\n"), formatter.Stats()
}

// # Helpers

// normalize repairs encoding and composes to NFC.
func normalize(line string) string {
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, "")
	}
	line = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, line)
	return norm.NFC.String(line)
}

// isDecorative reports whether line consists only of separator characters.
func isDecorative(line string) bool {
	seen := false
	for _, r := range line {
		switch {
		case unicode.IsSpace(r):
		case strings.ContainsRune("-–—_*=~#•·+", r):
			seen = true
		default:
			return false
		}
	}
	return seen
}

func isPunctuation(r rune) bool {
	return strings.ContainsRune(".,!?;:", r)
}

func isClosing(r rune) bool {
	return strings.ContainsRune("\"'”’)]}»…", r)
}

// fixPunctuation removes spaces before punctuation and inserts one after it.
func fixPunctuation(line string) string {
	line = spaceBeforePattern.ReplaceAllString(line, "$1")

	runes := []rune(line)
	var builder strings.Builder
	builder.Grow(len(line) + 8)

	for index, r := range runes {
		builder.WriteRune(r)
		if !isPunctuation(r) || index+1 >= len(runes) {
			continue
		}

		next := runes[index+1]
		if unicode.IsSpace(next) || isPunctuation(next) || isClosing(next) {
			continue
		}
		if index > 0 && strings.ContainsRune(".,:", r) && unicode.IsDigit(runes[index-1]) && unicode.IsDigit(next) {
			continue
		}
		builder.WriteRune(' ')
	}

	return builder.String()
}
