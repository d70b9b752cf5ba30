// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package unlock

import "context"

// Store persists entitlements. Both methods join the transaction carried by ctx.
type Store interface {
	// InsertUnlocks inserts the rows that do not exist yet for userID and
	// returns the chapter IDs actually inserted.
	InsertUnlocks(ctx context.Context, userID string, unlocks []Unlock) ([]string, error)

	UnlockedChapterIDs(ctx context.Context, userID, storyID string) ([]string, error)
}
