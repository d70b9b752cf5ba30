// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package unlock

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/truyen/internal/platform/txn"
)

// # In-Memory Store

type unlockKey struct {
	userID    string
	chapterID string
}

// MemoryStore is a process-local [Store] that takes part in [txn.Memory]
// transactions.
type MemoryStore struct {
	mu      sync.Mutex
	unlocks map[unlockKey]Unlock
	now     func() time.Time
}

// NewMemoryStore constructs an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{unlocks: make(map[unlockKey]Unlock), now: time.Now}
}

// InsertUnlocks implements [Store].
func (store *MemoryStore) InsertUnlocks(ctx context.Context, userID string, unlocks []Unlock) ([]string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	inserted := make([]string, 0, len(unlocks))
	for _, unlock := range unlocks {
		key := unlockKey{userID: userID, chapterID: unlock.ChapterID}
		if _, exists := store.unlocks[key]; exists {
			continue
		}

		unlock.UserID = userID
		unlock.CreatedAt = store.now()
		store.unlocks[key] = unlock
		inserted = append(inserted, unlock.ChapterID)
	}

	txn.OnRollback(ctx, func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		for _, chapterID := range inserted {
			delete(store.unlocks, unlockKey{userID: userID, chapterID: chapterID})
		}
	})

	return inserted, nil
}

// UnlockedChapterIDs implements [Store].
func (store *MemoryStore) UnlockedChapterIDs(_ context.Context, userID, storyID string) ([]string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	matched := make([]Unlock, 0)
	for key, unlock := range store.unlocks {
		if key.userID == userID && unlock.StoryID == storyID {
			matched = append(matched, unlock)
		}
	}
	slices.SortFunc(matched, func(left, right Unlock) int {
		if order := left.CreatedAt.Compare(right.CreatedAt); order != 0 {
			return order
		}
		return strings.Compare(left.ChapterID, right.ChapterID)
	})

	chapterIDs := make([]string, len(matched))
	for index, unlock := range matched {
		chapterIDs[index] = unlock.ChapterID
	}
	return chapterIDs, nil
}

// Count returns the number of stored entitlements.
func (store *MemoryStore) Count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.unlocks)
}
