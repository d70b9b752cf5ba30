// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapterparse splits plain-text novels into chapters.

# Heading Rule

A line is a chapter heading when, after optional leading whitespace, it starts
with "Chương" or "Chapter" (any case), then a chapter number, then an optional
separator (":", "：", ".", "-", "–", "—") and an optional title:

	Chương 12: Trở về
	CHAPTER 3 - The Return
	chương 7

A heading with no title borrows the next non-blank line as its title. Lines
before the first heading are discarded. A heading whose number does not fit an
int is kept as ordinary body text.

# Streaming

The parser holds one chapter at a time. [Parse] reads from an [io.Reader],
[ParseLines] from any line sequence, and both are driven by [Parser], so the
output does not depend on how the input is chunked.
*/
package chapterparse

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxLineBytes is the longest line [NewScanner] accepts.
const MaxLineBytes = 16 << 20

var headingPattern = regexp.MustCompile(`(?i)^\s*(?:chương|chapter)\s*(\d+)(?:\s*[:：.\-–—]\s*|\s+|$)(.*?)\s*$`)

// Heading is a detected chapter heading.
type Heading struct {
	Number int
	Title  string
}

// Segment is one chapter: its heading and the raw lines that follow it.
type Segment struct {
	Number int
	Title  string
	Body   []string
}

// Content joins the body lines with newlines.
func (segment Segment) Content() string {
	return strings.Join(segment.Body, "\n")
}

// MatchHeading reports whether line is a chapter heading. Decomposed input is
// composed first so "Chương" matches however it was typed.
func MatchHeading(line string) (Heading, bool) {
	if !norm.NFC.IsNormalString(line) {
		line = norm.NFC.String(line)
	}

	match := headingPattern.FindStringSubmatch(line)
	if match == nil {
		return Heading{}, false
	}

	number, err := strconv.Atoi(match[1])
	if err != nil {
		return Heading{}, false
	}

	return Heading{Number: number, Title: strings.TrimSpace(match[2])}, true
}

// # State Machine

// Parser is the incremental core shared by [Parse] and [ParseLines].
// The zero value is ready to use.
type Parser struct {
	current       *Segment
	awaitingTitle bool
}

// Feed consumes one line. When the line opens a new chapter, the previous one
// is returned as complete.
func (parser *Parser) Feed(line string) (Segment, bool) {
	if heading, ok := MatchHeading(line); ok {
		completed, done := parser.Flush()
		parser.current = &Segment{Number: heading.Number, Title: heading.Title, Body: []string{}}
		parser.awaitingTitle = heading.Title == ""
		return completed, done
	}

	// Preamble
	if parser.current == nil {
		return Segment{}, false
	}

	// The borrowed title line stays in the body as well.
	if parser.awaitingTitle {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parser.current.Title = trimmed
			parser.awaitingTitle = false
		}
	}

	parser.current.Body = append(parser.current.Body, line)
	return Segment{}, false
}

// Flush returns the chapter in progress, if any, and resets the parser.
func (parser *Parser) Flush() (Segment, bool) {
	if parser.current == nil {
		return Segment{}, false
	}
	completed := *parser.current
	parser.current = nil
	parser.awaitingTitle = false
	return completed, true
}

// # Sequences

// ParseLines yields the chapters found in lines.
func ParseLines(lines iter.Seq[string]) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		var parser Parser
		for line := range lines {
			if segment, ok := parser.Feed(line); ok {
				if !yield(segment) {
					return
				}
			}
		}
		if segment, ok := parser.Flush(); ok {
			yield(segment)
		}
	}
}

// Lines yields the lines of reader without their terminators. A leading
// byte-order mark and trailing carriage returns are removed. The error, if
// any, is reported once through errp after the sequence ends.
func Lines(reader io.Reader, errp *error) iter.Seq[string] {
	return func(yield func(string) bool) {
		scanner := NewScanner(reader)
		first := true
		for scanner.Scan() {
			line := strings.TrimSuffix(scanner.Text(), "\r")
			if first {
				line = strings.TrimPrefix(line, "\ufeff")
				first = false
			}
			if !yield(line) {
				return
			}
		}
		if err := scanner.Err(); err != nil && errp != nil {
			*errp = fmt.Errorf("chapterparse: failed to read input: %w", err)
		}
	}
}

// Parse streams chapters from reader. A read error is yielded last and ends
// the sequence; the chapter in progress at that point is dropped.
func Parse(reader io.Reader) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		var readErr error
		var parser Parser

		for line := range Lines(reader, &readErr) {
			if segment, ok := parser.Feed(line); ok {
				if !yield(segment, nil) {
					return
				}
			}
		}

		if readErr != nil {
			yield(Segment{}, readErr)
			return
		}
		if segment, ok := parser.Flush(); ok {
			yield(segment, nil)
		}
	}
}

// NewScanner returns a line scanner that accepts lines up to [MaxLineBytes].
func NewScanner(reader io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64<<10), MaxLineBytes)
	return scanner
}
