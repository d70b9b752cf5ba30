// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package unlock

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// # Pricing

var (
	hundred = decimal.NewFromInt(100)
)

// Tier grants DiscountPercent to purchases of at least MinChapters chapters.
type Tier struct {
	MinChapters     int             `json:"min_chapters"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Table is a versioned set of discount tiers.
type Table struct {
	Version   string `json:"version"`
	Range     []Tier `json:"range"`
	FullStory []Tier `json:"full_story"`
}

// Quote is the price of a set of chapters.
type Quote struct {
	Total           int64           `json:"total"`
	OriginalTotal   int64           `json:"original_total"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ChapterCount    int             `json:"chapter_count"`
	Version         string          `json:"version"`

	// Charges holds the discounted price of each input chapter, in order.
	Charges []int64 `json:"-"`
}

/*
NewTable validates the tiers and returns a pricing table.

Parameters:
  - version: string (recorded on every quote)
  - rangeTiers: []Tier (discounts for range purchases)
  - fullStoryTiers: []Tier (discounts for full-story purchases)

Returns:
  - *Table: tiers sorted by MinChapters
  - error: when a percent is outside [0, 100], a threshold repeats, or a
    larger purchase would get a smaller discount
*/
func NewTable(version string, rangeTiers, fullStoryTiers []Tier) (*Table, error) {
	rangeSorted, err := sortTiers(rangeTiers)
	if err != nil {
		return nil, fmt.Errorf("unlock: range tiers: %w", err)
	}
	fullSorted, err := sortTiers(fullStoryTiers)
	if err != nil {
		return nil, fmt.Errorf("unlock: full story tiers: %w", err)
	}
	return &Table{Version: version, Range: rangeSorted, FullStory: fullSorted}, nil
}

// ParseTiers reads "min:percent" pairs separated by commas, e.g. "10:20,50:25".
func ParseTiers(spec string) ([]Tier, error) {
	tiers := make([]Tier, 0)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		minimum, percent, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("unlock: tier %q: expected min:percent", pair)
		}

		count, err := strconv.Atoi(strings.TrimSpace(minimum))
		if err != nil || count < 1 {
			return nil, fmt.Errorf("unlock: tier %q: min chapters must be a positive integer", pair)
		}

		discount, err := decimal.NewFromString(strings.TrimSpace(percent))
		if err != nil {
			return nil, fmt.Errorf("unlock: tier %q: %w", pair, err)
		}

		tiers = append(tiers, Tier{MinChapters: count, DiscountPercent: discount})
	}
	return tiers, nil
}

func sortTiers(tiers []Tier) ([]Tier, error) {
	sorted := slices.Clone(tiers)
	slices.SortFunc(sorted, func(left, right Tier) int { return left.MinChapters - right.MinChapters })

	for index, tier := range sorted {
		if tier.MinChapters < 1 {
			return nil, fmt.Errorf("min chapters must be at least 1")
		}
		if tier.DiscountPercent.IsNegative() || tier.DiscountPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("discount %s%% is outside [0, 100]", tier.DiscountPercent)
		}
		if index == 0 {
			continue
		}
		previous := sorted[index-1]
		if previous.MinChapters == tier.MinChapters {
			return nil, fmt.Errorf("duplicate tier for %d chapters", tier.MinChapters)
		}
		if tier.DiscountPercent.LessThan(previous.DiscountPercent) {
			return nil, fmt.Errorf("discount must not decrease with more chapters")
		}
	}
	return sorted, nil
}

// discountFor returns the percent of the largest tier reached by count.
func discountFor(tiers []Tier, count int) decimal.Decimal {
	discount := decimal.Zero
	for _, tier := range tiers {
		if tier.MinChapters > count {
			break
		}
		discount = tier.DiscountPercent
	}
	return discount
}

// discounted floors price × (100 − percent) / 100.
func discounted(price int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(price).Mul(hundred.Sub(percent)).Div(hundred).Floor().IntPart()
}

// quote prices each chapter individually with the tier selected by count.
func (table *Table) quote(tiers []Tier, prices []int64) Quote {
	percent := discountFor(tiers, len(prices))
	result := Quote{
		DiscountPercent: percent,
		ChapterCount:    len(prices),
		Version:         table.Version,
		Charges:         make([]int64, len(prices)),
	}
	for index, price := range prices {
		charge := discounted(price, percent)
		result.Charges[index] = charge
		result.Total += charge
		result.OriginalTotal += price
	}
	return result
}

// SinglePrice is the cost of unlocking one chapter on its own.
func (table *Table) SinglePrice(base int64) int64 {
	return base
}

// RangePrice quotes count chapters that all cost base.
func (table *Table) RangePrice(base int64, count int) Quote {
	return table.QuoteRange(repeat(base, count))
}

// FullStoryPrice quotes count chapters that all cost base with the full-story tiers.
func (table *Table) FullStoryPrice(base int64, count int) Quote {
	return table.QuoteFullStory(repeat(base, count))
}

// QuoteRange prices a set of chapters bought as a range.
func (table *Table) QuoteRange(prices []int64) Quote {
	return table.quote(table.Range, prices)
}

// QuoteFullStory prices a set of chapters bought as a whole story.
func (table *Table) QuoteFullStory(prices []int64) Quote {
	return table.quote(table.FullStory, prices)
}

func repeat(base int64, count int) []int64 {
	prices := make([]int64, max(count, 0))
	for index := range prices {
		prices[index] = base
	}
	return prices
}
