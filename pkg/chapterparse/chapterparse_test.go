// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapterparse_test

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/pkg/chapterparse"
)

func collect(t *testing.T, reader io.Reader) []chapterparse.Segment {
	t.Helper()
	var segments []chapterparse.Segment
	for segment, err := range chapterparse.Parse(reader) {
		require.NoError(t, err)
		segments = append(segments, segment)
	}
	return segments
}

/*
TestMatchHeading covers the accepted heading shapes and the near misses.
*/
func TestMatchHeading(t *testing.T) {
	tests := []struct {
		line   string
		ok     bool
		number int
		title  string
	}{
		{"Chương 1: Khởi đầu", true, 1, "Khởi đầu"},
		{"  CHƯƠNG 12 - Trở về  ", true, 12, "Trở về"},
		{"chapter 3. The Return", true, 3, "The Return"},
		{"Chapter 4：Full width", true, 4, "Full width"},
		{"Chương 5 — Em dash", true, 5, "Em dash"},
		{"Chương 6 Không dấu phân cách", true, 6, "Không dấu phân cách"},
		{"Chương7", true, 7, ""},
		{"Chương 8", true, 8, ""},
		{"Chương 9abc", false, 0, ""},
		{"Hắn nhớ lại chương 3 của cuốn sách", false, 0, ""},
		{"Chương mở đầu", false, 0, ""},
		{"Chương 99999999999999999999999: Overflow", false, 0, ""},
		{"", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			heading, ok := chapterparse.MatchHeading(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.number, heading.Number)
				assert.Equal(t, tt.title, heading.Title)
			}
		})
	}
}

/*
TestParse_Basic splits chapters, drops the preamble and keeps body lines verbatim.
*/
func TestParse_Basic(t *testing.T) {
	input := "Lời tựa của tác giả\n\nChương 1: Mở đầu\nDòng một.\n\nDòng hai.\nChương 2: Tiếp\nNội dung.\n"

	segments := collect(t, strings.NewReader(input))
	require.Len(t, segments, 2)

	assert.Equal(t, 1, segments[0].Number)
	assert.Equal(t, "Mở đầu", segments[0].Title)
	assert.Equal(t, []string{"Dòng một.", "", "Dòng hai."}, segments[0].Body)

	assert.Equal(t, 2, segments[1].Number)
	assert.Equal(t, "Nội dung.", segments[1].Content())
}

/*
TestParse_EmptyTitle takes the next non-blank line as the title and keeps it in the body.
*/
func TestParse_EmptyTitle(t *testing.T) {
	input := "Chương 1\n\n  Cuộc gặp gỡ  \nNội dung.\nChương 2\nChương 3:\nTiêu đề ba\n"

	segments := collect(t, strings.NewReader(input))
	require.Len(t, segments, 3)

	assert.Equal(t, "Cuộc gặp gỡ", segments[0].Title)
	assert.Equal(t, []string{"", "  Cuộc gặp gỡ  ", "Nội dung."}, segments[0].Body)

	// A heading right after a heading stays untitled
	assert.Equal(t, "", segments[1].Title)
	assert.Empty(t, segments[1].Body)

	assert.Equal(t, "Tiêu đề ba", segments[2].Title)
	assert.Equal(t, []string{"Tiêu đề ba"}, segments[2].Body)
}

/*
TestParse_UntitledHeadingKeepsProse loses no prose when a bare heading borrows its title.
*/
func TestParse_UntitledHeadingKeepsProse(t *testing.T) {
	input := "Chương 1\nHắn bước vào phòng, nhìn quanh một lượt.\nRồi ngồi xuống."

	segments := collect(t, strings.NewReader(input))
	require.Len(t, segments, 1)

	assert.Equal(t, "Hắn bước vào phòng, nhìn quanh một lượt.", segments[0].Title)
	assert.Equal(t, []string{"Hắn bước vào phòng, nhìn quanh một lượt.", "Rồi ngồi xuống."}, segments[0].Body)
}

/*
TestParse_PassThrough keeps out-of-order and duplicate numbers, and treats overflowing numbers as body text.
*/
func TestParse_PassThrough(t *testing.T) {
	input := "Chương 3: C\nx\nChương 1: A\ny\nChương 1: A again\nChương 99999999999999999999: big\nz\n"

	segments := collect(t, strings.NewReader(input))
	numbers := make([]int, 0, len(segments))
	for _, segment := range segments {
		numbers = append(numbers, segment.Number)
	}

	assert.Equal(t, []int{3, 1, 1}, numbers)
	assert.Equal(t, []string{"Chương 99999999999999999999: big", "z"}, segments[2].Body)
}

/*
TestParse_LineEndings strips CRLF terminators and a leading byte-order mark.
*/
func TestParse_LineEndings(t *testing.T) {
	input := "\ufeffChương 1: Một\r\nA\r\nB\r\n"

	segments := collect(t, strings.NewReader(input))
	require.Len(t, segments, 1)
	assert.Equal(t, "Một", segments[0].Title)
	assert.Equal(t, []string{"A", "B"}, segments[0].Body)
}

/*
TestParse_ChunkingInvariance yields the same segments however the reader splits the input.
*/
func TestParse_ChunkingInvariance(t *testing.T) {
	var builder strings.Builder
	builder.WriteString("preamble\n")
	for number := 1; number <= 30; number++ {
		fmt.Fprintf(&builder, "Chương %d: Tiêu đề %d\n", number, number)
		for line := 0; line < number%4; line++ {
			fmt.Fprintf(&builder, "Đoạn văn %d-%d, có dấu và “ngoặc kép”.\n", number, line)
		}
		builder.WriteString("\n")
	}
	input := builder.String()

	want := collect(t, strings.NewReader(input))
	require.Len(t, want, 30)

	readers := map[string]func() io.Reader{
		"one_byte": func() io.Reader { return iotest.OneByteReader(strings.NewReader(input)) },
		"half":     func() io.Reader { return iotest.HalfReader(strings.NewReader(input)) },
		"data_err": func() io.Reader { return iotest.DataErrReader(strings.NewReader(input)) },
	}

	for name, build := range readers {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, collect(t, build()))
		})
	}
}

/*
TestParse_RoundTrip rebuilds the text from segments and parses it back unchanged.
*/
func TestParse_RoundTrip(t *testing.T) {
	original := []chapterparse.Segment{
		{Number: 1, Title: "Một", Body: []string{"a", "", "b"}},
		{Number: 2, Title: "Hai", Body: []string{}},
		{Number: 10, Title: "Mười", Body: []string{"  thụt lề", "cuối"}},
	}

	var builder strings.Builder
	for _, segment := range original {
		fmt.Fprintf(&builder, "Chương %d: %s\n", segment.Number, segment.Title)
		for _, line := range segment.Body {
			builder.WriteString(line + "\n")
		}
	}

	assert.Equal(t, original, collect(t, strings.NewReader(builder.String())))
}

/*
TestParse_ReaderError surfaces read failures as the last element.
*/
func TestParse_ReaderError(t *testing.T) {
	boom := errors.New("disk gone")
	reader := io.MultiReader(strings.NewReader("Chương 1: A\nx\n"), iotest.ErrReader(boom))

	var gotErr error
	count := 0
	for _, err := range chapterparse.Parse(reader) {
		if err != nil {
			gotErr = err
			continue
		}
		count++
	}

	assert.ErrorIs(t, gotErr, boom)
	assert.Equal(t, 0, count)
}

/*
TestParseLines stops early when the consumer breaks.
*/
func TestParseLines(t *testing.T) {
	lines := slices.Values([]string{"Chương 1: A", "x", "Chương 2: B", "y", "Chương 3: C"})

	var titles []string
	for segment := range chapterparse.ParseLines(lines) {
		titles = append(titles, segment.Title)
		if len(titles) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"A", "B"}, titles)
}

/*
TestParser_FeedFlush drives the state machine directly.
*/
func TestParser_FeedFlush(t *testing.T) {
	var parser chapterparse.Parser

	_, done := parser.Feed("Chương 1: A")
	assert.False(t, done)
	_, done = parser.Feed("body")
	assert.False(t, done)

	completed, done := parser.Feed("Chương 2: B")
	require.True(t, done)
	assert.Equal(t, []string{"body"}, completed.Body)

	last, done := parser.Flush()
	require.True(t, done)
	assert.Equal(t, 2, last.Number)

	_, done = parser.Flush()
	assert.False(t, done)
}
