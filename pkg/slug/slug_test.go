// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/truyen/pkg/slug"
)

/*
TestFrom covers Vietnamese titles and punctuation.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tiên Nghịch", "tien-nghich"},
		{"Đấu Phá Thương Khung", "dau-pha-thuong-khung"},
		{"Chương 12: Đại Chiến!!", "chuong-12-dai-chien"},
		{"  --Hello,   World--  ", "hello-world"},
		{"“…”", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.input))
		})
	}
}

/*
TestLimit cuts without a trailing hyphen.
*/
func TestLimit(t *testing.T) {
	assert.Equal(t, "tien", slug.Limit("Tiên Nghịch", 5))
	assert.Equal(t, "tien-nghich", slug.Limit("Tiên Nghịch", 50))
}
