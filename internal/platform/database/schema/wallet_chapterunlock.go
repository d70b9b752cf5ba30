// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// WalletChapterUnlockTable represents the 'wallet.chapterunlock' table
type WalletChapterUnlockTable struct {
	Table     string
	UserID    string
	ChapterID string
	StoryID   string
	PricePaid string
	Method    string
	CreatedAt string
}

// WalletChapterUnlock is the schema definition for wallet.chapterunlock
var WalletChapterUnlock = WalletChapterUnlockTable{
	Table:     "wallet.chapterunlock",
	UserID:    "userid",
	ChapterID: "chapterid",
	StoryID:   "storyid",
	PricePaid: "pricepaid",
	Method:    "method",
	CreatedAt: "createdat",
}
