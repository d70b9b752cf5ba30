// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug turns story and chapter titles into ASCII URL slugs.
//
// Vietnamese titles are the common case: tone marks are stripped after NFD
// decomposition and "đ", which has no decomposition, is mapped to "d".
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// separators matches every run of characters that cannot appear in a slug.
	separators = regexp.MustCompile(`[^a-z0-9]+`)

	// stroked maps letters that do not decompose into a base letter and a mark.
	stroked = strings.NewReplacer("đ", "d", "Đ", "d")
)

// From converts s into lowercase ASCII words joined by single hyphens.
// It returns "" when s has no letters or digits.
func From(s string) string {
	// 1. Strip combining marks
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	// 2. Lowercase ASCII
	folded = strings.ToLower(stroked.Replace(folded))

	// 3. Join words
	return strings.Trim(separators.ReplaceAllString(folded, "-"), "-")
}

// Limit is [From] cut to at most maxLen bytes without leaving a trailing hyphen.
func Limit(s string, maxLen int) string {
	result := From(s)
	if len(result) <= maxLen {
		return result
	}
	return strings.TrimRight(result[:maxLen], "-")
}
