// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package unlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/truyen/internal/core/story"
	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/jobs"
	"github.com/taibuivan/truyen/internal/platform/txn"
	"github.com/taibuivan/truyen/internal/platform/validate"
	"github.com/taibuivan/truyen/internal/platform/worker"
	"github.com/taibuivan/truyen/internal/users/wallet"
)

const (
	// DefaultGroupSize is how many entitlements a full-story job inserts per step.
	DefaultGroupSize = 50

	maxChapterNumber = 1_000_000
)

// Ledger is the part of the wallet the engine charges through.
type Ledger interface {
	Debit(ctx context.Context, entry wallet.Entry) (*wallet.Transaction, error)
	Balance(ctx context.Context, userID string, currency wallet.Currency) (int64, error)
}

// errCancelled aborts the full-story transaction when the owner cancels.
var errCancelled = errors.New("unlock: cancelled")

// Service sells chapter access for spirit stones.
type Service struct {
	stories   story.Repository
	store     Store
	ledger    Ledger
	txManager txn.Manager
	pricing   *Table
	tracker   *jobs.Tracker
	submitter worker.Submitter
	groupSize int
	logger    *slog.Logger
}

// NewService constructs the unlock engine. A non-positive groupSize uses [DefaultGroupSize].
func NewService(
	stories story.Repository,
	store Store,
	ledger Ledger,
	txManager txn.Manager,
	pricing *Table,
	tracker *jobs.Tracker,
	submitter worker.Submitter,
	groupSize int,
	logger *slog.Logger,
) *Service {
	if groupSize < 1 {
		groupSize = DefaultGroupSize
	}
	return &Service{
		stories:   stories,
		store:     store,
		ledger:    ledger,
		txManager: txManager,
		pricing:   pricing,
		tracker:   tracker,
		submitter: submitter,
		groupSize: groupSize,
		logger:    logger,
	}
}

// Pricing returns the active pricing table.
func (service *Service) Pricing() *Table {
	return service.pricing
}

// # Single Chapter

/*
UnlockChapter buys one chapter.

Free chapters succeed without a charge. A chapter already owned returns a
receipt flagged AlreadyUnlocked and charges nothing.

Parameters:
  - ctx: context.Context
  - userID: string (buyer)
  - chapterID: string

Returns:
  - *Receipt
  - error: NotFound, or wallet.ErrInsufficientFunds
*/
func (service *Service) UnlockChapter(ctx context.Context, userID, chapterID string) (*Receipt, error) {

	// 1. Resolve
	chapter, err := service.stories.FindChapterByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{ChapterID: chapter.ID, StoryID: chapter.StoryID}
	if !chapter.Paid() {
		receipt.Free = true
		return receipt, nil
	}
	receipt.Price = service.pricing.SinglePrice(chapter.Price)

	// 2. Insert and charge together
	err = service.txManager.WithinTx(ctx, func(ctx context.Context) error {
		inserted, err := service.store.InsertUnlocks(ctx, userID, []Unlock{{
			ChapterID: chapter.ID,
			StoryID:   chapter.StoryID,
			PricePaid: receipt.Price,
			Method:    MethodSingle,
		}})
		if err != nil {
			return err
		}
		if len(inserted) == 0 {
			receipt.AlreadyUnlocked = true
			return nil
		}

		receipt.Transaction, err = service.ledger.Debit(ctx, wallet.Entry{
			UserID:      userID,
			Currency:    wallet.CurrencySpiritStone,
			Amount:      receipt.Price,
			Type:        wallet.TypeChapterUnlock,
			Description: fmt.Sprintf("Unlock chapter %d", chapter.Number),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if receipt.AlreadyUnlocked {
		receipt.Price = 0
	} else {
		service.logger.Info("chapter_unlocked",
			slog.String("user_id", userID),
			slog.String("chapter_id", chapter.ID),
			slog.Int64("price", receipt.Price),
		)
	}
	return receipt, nil
}

// # Range

/*
UnlockRange buys every paid chapter numbered from..to that the user does not
own yet, charged as one ledger row.

Returns:
  - *BatchReceipt: empty ChapterIDs when nothing was left to buy
  - error: Validation, NotFound, wallet.ErrInsufficientFunds or
    ErrUnlockStateChanged
*/
func (service *Service) UnlockRange(ctx context.Context, userID, storyID string, from, to int) (*BatchReceipt, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	// 1. Price what is left
	candidates, _, err := service.candidates(ctx, userID, storyID, from, to)
	if err != nil {
		return nil, err
	}
	quote := service.pricing.QuoteRange(prices(candidates))

	receipt := &BatchReceipt{StoryID: storyID, ChapterIDs: []string{}, Quote: quote}
	if len(candidates) == 0 {
		return receipt, nil
	}

	// 2. Insert and charge together
	err = service.txManager.WithinTx(ctx, func(ctx context.Context) error {
		inserted, err := service.store.InsertUnlocks(ctx, userID, unlocksFor(candidates, quote, MethodRange))
		if err != nil {
			return err
		}
		if len(inserted) != len(candidates) {
			return ErrUnlockStateChanged
		}
		receipt.ChapterIDs = inserted

		if quote.Total == 0 {
			return nil
		}
		receipt.Transaction, err = service.ledger.Debit(ctx, wallet.Entry{
			UserID:      userID,
			Currency:    wallet.CurrencySpiritStone,
			Amount:      quote.Total,
			Type:        wallet.TypeChapterUnlockBatch,
			Description: fmt.Sprintf("Unlock chapters %d-%d (%d chapters, pricing %s)", from, to, len(candidates), quote.Version),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("chapter_range_unlocked",
		slog.String("user_id", userID),
		slog.String("story_id", storyID),
		slog.Int("chapters", len(candidates)),
		slog.Int64("total", quote.Total),
		slog.String("discount", quote.DiscountPercent.String()),
	)
	return receipt, nil
}

// QuoteRange previews UnlockRange without charging.
func (service *Service) QuoteRange(ctx context.Context, userID, storyID string, from, to int) (*Preview, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	candidates, owned, err := service.candidates(ctx, userID, storyID, from, to)
	if err != nil {
		return nil, err
	}
	return service.preview(ctx, userID, storyID, service.pricing.QuoteRange(prices(candidates)), owned)
}

// # Full Story

// QuoteFullStory previews a full-story purchase without charging.
func (service *Service) QuoteFullStory(ctx context.Context, userID, storyID string) (*Preview, error) {
	candidates, owned, err := service.candidates(ctx, userID, storyID, 1, 0)
	if err != nil {
		return nil, err
	}
	return service.preview(ctx, userID, storyID, service.pricing.QuoteFullStory(prices(candidates)), owned)
}

/*
StartUnlockFullStory queues a job that buys every remaining paid chapter of the
story.

The balance is checked up front so an obviously unaffordable request fails
fast. The job re-prices at run time and charges once when it completes.

Returns:
  - string: job ID
  - error: NotFound, wallet.ErrInsufficientFunds or ServiceUnavailable
*/
func (service *Service) StartUnlockFullStory(ctx context.Context, userID, storyID string) (string, error) {

	// 1. Pre-check
	preview, err := service.QuoteFullStory(ctx, userID, storyID)
	if err != nil {
		return "", err
	}
	if !preview.Affordable {
		return "", wallet.ErrInsufficientFunds
	}

	// 2. Queue
	jobID := service.tracker.Create(jobs.KindUnlockFullStory, userID)
	task := func(taskCtx context.Context) {
		service.runFullStory(taskCtx, jobID, userID, storyID)
	}

	if err := service.submitter.Submit(constants.PoolTask, task); err != nil {
		service.tracker.Update(jobID, func(job *jobs.Job) {
			job.Status = jobs.StatusFailed
			job.Message = "Unlock could not be queued"
		})
		return "", err
	}

	service.logger.Info("full_story_unlock_queued",
		slog.String(constants.FieldJobID, jobID),
		slog.String("user_id", userID),
		slog.String("story_id", storyID),
		slog.Int("chapters", preview.Quote.ChapterCount),
		slog.Int64("total", preview.Quote.Total),
	)
	return jobID, nil
}

func (service *Service) runFullStory(ctx context.Context, jobID, userID, storyID string) {
	logger := service.logger.With(slog.String(constants.FieldJobID, jobID), slog.String("story_id", storyID))

	// 1. Start
	if service.tracker.CancelRequested(jobID) {
		service.finish(jobID, jobs.StatusCancelled, "Cancelled before start", nil)
		return
	}
	service.tracker.Update(jobID, func(job *jobs.Job) {
		job.Status = jobs.StatusProcessing
		job.Message = "Pricing chapters"
	})

	// 2. Re-price
	candidates, _, err := service.candidates(ctx, userID, storyID, 1, 0)
	if err != nil {
		logger.Error("full_story_unlock_pricing_failed", slog.Any("error", err))
		service.finish(jobID, jobs.StatusFailed, "Could not load the story chapters", nil)
		return
	}
	quote := service.pricing.QuoteFullStory(prices(candidates))
	unlocks := unlocksFor(candidates, quote, MethodFullStory)
	groups := (len(unlocks) + service.groupSize - 1) / service.groupSize

	service.tracker.Update(jobID, func(job *jobs.Job) {
		job.TotalChapters = len(unlocks)
		job.TotalBatches = groups
		job.Message = fmt.Sprintf("Unlocking %d chapters", len(unlocks))
	})

	// 3. Insert group by group, charge once
	result := &FullStoryResult{StoryID: storyID, ChapterCount: len(unlocks), Quote: quote}
	err = service.txManager.WithinTx(ctx, func(ctx context.Context) error {
		for group := 0; group < groups; group++ {
			if service.tracker.CancelRequested(jobID) {
				return errCancelled
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			start := group * service.groupSize
			end := min(start+service.groupSize, len(unlocks))
			inserted, err := service.store.InsertUnlocks(ctx, userID, unlocks[start:end])
			if err != nil {
				return err
			}
			if len(inserted) != end-start {
				return ErrUnlockStateChanged
			}

			service.tracker.Update(jobID, func(job *jobs.Job) {
				job.ProcessedCount = end
				job.CurrentBatch = group + 1
				job.SetProgress(int64(end), int64(len(unlocks)))
			})
		}

		if service.tracker.CancelRequested(jobID) {
			return errCancelled
		}
		if quote.Total == 0 {
			return nil
		}

		transaction, err := service.ledger.Debit(ctx, wallet.Entry{
			UserID:      userID,
			Currency:    wallet.CurrencySpiritStone,
			Amount:      quote.Total,
			Type:        wallet.TypeChapterUnlockFull,
			Description: fmt.Sprintf("Unlock full story (%d chapters, pricing %s)", len(unlocks), quote.Version),
		})
		if err != nil {
			return err
		}
		result.TransactionID = transaction.ID
		return nil
	})

	// 4. Settle
	switch {
	case errors.Is(err, errCancelled):
		service.finish(jobID, jobs.StatusCancelled, "Cancelled, nothing was charged", nil)
	case errors.Is(err, wallet.ErrInsufficientFunds):
		service.finish(jobID, jobs.StatusFailed, "Insufficient spirit stones", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		service.finish(jobID, jobs.StatusFailed, "Unlock interrupted by server shutdown", nil)
	case err != nil:
		logger.Error("full_story_unlock_failed", slog.Any("error", err))
		message := "Unlock failed, nothing was charged"
		if appErr := apperr.As(err); appErr != nil {
			message = appErr.Message
		}
		service.finish(jobID, jobs.StatusFailed, message, nil)
	default:
		service.tracker.Update(jobID, func(job *jobs.Job) {
			job.SuccessCount = len(unlocks)
		})
		service.finish(jobID, jobs.StatusCompleted,
			fmt.Sprintf("Unlocked %d chapters for %d spirit stones", len(unlocks), quote.Total), result)
		logger.Info("full_story_unlocked",
			slog.String("user_id", userID),
			slog.Int("chapters", len(unlocks)),
			slog.Int64("total", quote.Total),
		)
	}
}

func (service *Service) finish(jobID string, status jobs.Status, message string, result any) {
	service.tracker.Update(jobID, func(job *jobs.Job) {
		job.Status = status
		job.Message = message
		if result != nil {
			job.Result = result
		}
	})
}

// # Jobs

// Status returns the owner's view of a full-story job.
func (service *Service) Status(jobID, userID string) (jobs.Job, error) {
	return service.tracker.StatusFor(jobID, userID, jobs.KindUnlockFullStory)
}

// Cancel asks a full-story job to stop. Nothing is charged once it stops.
func (service *Service) Cancel(jobID, userID string) (jobs.Job, error) {
	return service.tracker.CancelFor(jobID, userID, jobs.KindUnlockFullStory)
}

// ListJobs returns the user's full-story jobs, newest first.
func (service *Service) ListJobs(userID string) []jobs.Job {
	return service.tracker.ListByOwner(userID, jobs.KindUnlockFullStory)
}

// # Queries

// UnlockedChapterIDs lists the chapters of a story the user owns.
func (service *Service) UnlockedChapterIDs(ctx context.Context, userID, storyID string) ([]string, error) {
	if _, err := service.stories.FindStoryByID(ctx, storyID); err != nil {
		return nil, err
	}
	return service.store.UnlockedChapterIDs(ctx, userID, storyID)
}

// # Helpers

// candidates returns the paid chapters in range the user does not own, and
// how many paid chapters in range they already own.
func (service *Service) candidates(ctx context.Context, userID, storyID string, from, to int) ([]*story.Chapter, int, error) {
	if _, err := service.stories.FindStoryByID(ctx, storyID); err != nil {
		return nil, 0, err
	}

	chapters, err := service.stories.ListChapters(ctx, storyID, from, to)
	if err != nil {
		return nil, 0, err
	}
	unlocked, err := service.store.UnlockedChapterIDs(ctx, userID, storyID)
	if err != nil {
		return nil, 0, err
	}

	owned := make(map[string]bool, len(unlocked))
	for _, chapterID := range unlocked {
		owned[chapterID] = true
	}

	result := make([]*story.Chapter, 0, len(chapters))
	already := 0
	for _, chapter := range chapters {
		switch {
		case !chapter.Paid():
		case owned[chapter.ID]:
			already++
		default:
			result = append(result, chapter)
		}
	}
	return result, already, nil
}

func (service *Service) preview(ctx context.Context, userID, storyID string, quote Quote, owned int) (*Preview, error) {
	balance, err := service.ledger.Balance(ctx, userID, wallet.CurrencySpiritStone)
	if err != nil {
		return nil, err
	}
	return &Preview{
		StoryID:         storyID,
		Quote:           quote,
		AlreadyUnlocked: owned,
		Balance:         balance,
		Affordable:      balance >= quote.Total,
	}, nil
}

func prices(chapters []*story.Chapter) []int64 {
	result := make([]int64, len(chapters))
	for index, chapter := range chapters {
		result[index] = chapter.Price
	}
	return result
}

func unlocksFor(chapters []*story.Chapter, quote Quote, method Method) []Unlock {
	unlocks := make([]Unlock, len(chapters))
	for index, chapter := range chapters {
		unlocks[index] = Unlock{
			ChapterID: chapter.ID,
			StoryID:   chapter.StoryID,
			PricePaid: quote.Charges[index],
			Method:    method,
		}
	}
	return unlocks
}

func validateRange(from, to int) error {
	validator := &validate.Validator{}
	validator.
		Range("from", from, 1, maxChapterNumber).
		Range("to", to, 1, maxChapterNumber).
		Custom("to", to < from, "Must not be less than from")
	return validator.Err()
}
