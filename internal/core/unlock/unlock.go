// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package unlock turns spirit stones into chapter entitlements.

# Guarantees

  - An unlock record is inserted only if absent, and the charge happens in the
    same transaction, so repeating a request never charges twice.
  - A failed charge rolls the inserted records back.
  - Range and full-story purchases are charged once, as a single ledger row.

# Pricing

Discounts come from a versioned [Table] of tiers. Each chapter is discounted
on its own and rounded down, and a larger purchase never pays more per
chapter than a smaller one.
*/
package unlock

import (
	"time"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/users/wallet"
)

// Method records how a chapter was bought.
type Method string

const (
	MethodSingle    Method = "SINGLE"
	MethodRange     Method = "RANGE"
	MethodFullStory Method = "FULL_STORY"
)

// ErrUnlockStateChanged is returned when a concurrent purchase unlocked some of
// the chapters between pricing and insertion.
var ErrUnlockStateChanged = apperr.Conflict("Some chapters were unlocked concurrently, please retry")

// Unlock is one entitlement row.
type Unlock struct {
	UserID    string    `json:"user_id"`
	ChapterID string    `json:"chapter_id"`
	StoryID   string    `json:"story_id"`
	PricePaid int64     `json:"price_paid"`
	Method    Method    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

// Receipt is the result of unlocking a single chapter.
type Receipt struct {
	ChapterID       string              `json:"chapter_id"`
	StoryID         string              `json:"story_id"`
	Price           int64               `json:"price"`
	Free            bool                `json:"free"`
	AlreadyUnlocked bool                `json:"already_unlocked"`
	Transaction     *wallet.Transaction `json:"transaction,omitempty"`
}

// BatchReceipt is the result of a range purchase.
type BatchReceipt struct {
	StoryID     string              `json:"story_id"`
	ChapterIDs  []string            `json:"chapter_ids"`
	Quote       Quote               `json:"quote"`
	Transaction *wallet.Transaction `json:"transaction,omitempty"`
}

// Preview tells the reader what a purchase would cost before buying.
type Preview struct {
	StoryID         string `json:"story_id"`
	Quote           Quote  `json:"quote"`
	AlreadyUnlocked int    `json:"already_unlocked"`
	Balance         int64  `json:"balance"`
	Affordable      bool   `json:"affordable"`
}

// FullStoryResult is attached to a completed full-story job.
type FullStoryResult struct {
	StoryID       string `json:"story_id"`
	ChapterCount  int    `json:"chapter_count"`
	Quote         Quote  `json:"quote"`
	TransactionID string `json:"transaction_id,omitempty"`
}
