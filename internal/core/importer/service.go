// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/truyen/internal/core/story"
	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/jobs"
	"github.com/taibuivan/truyen/internal/platform/lock"
	"github.com/taibuivan/truyen/internal/platform/upload"
	"github.com/taibuivan/truyen/internal/platform/validate"
	"github.com/taibuivan/truyen/internal/platform/worker"
	"github.com/taibuivan/truyen/pkg/chapterparse"
	"github.com/taibuivan/truyen/pkg/slug"
	"github.com/taibuivan/truyen/pkg/textformat"
)

// Config carries the engine limits.
type Config struct {
	MaxFileSize int64
	LockTTL     time.Duration
	Format      textformat.Options
}

// Service runs TXT imports.
type Service struct {
	repository story.Repository
	authorizer story.Authorizer
	locker     lock.Locker
	tracker    *jobs.Tracker
	submitter  worker.Submitter
	config     Config
	logger     *slog.Logger
}

// NewService constructs the import engine.
func NewService(
	repository story.Repository,
	authorizer story.Authorizer,
	locker lock.Locker,
	tracker *jobs.Tracker,
	submitter worker.Submitter,
	config Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		repository: repository,
		authorizer: authorizer,
		locker:     locker,
		tracker:    tracker,
		submitter:  submitter,
		config:     config,
		logger:     logger,
	}
}

// # Commands

/*
StartImport validates the request and queues the import job.

The service takes ownership of file once a job ID is returned and removes it
when the job ends. On error the caller still owns it.

Parameters:
  - ctx: context.Context
  - ownerID: string (user starting the import)
  - storyID: string (target story)
  - file: *upload.File (spooled TXT upload)
  - options: Options

Returns:
  - string: job ID
  - error: Validation, NotFound, Forbidden, Conflict (lock held) or ServiceUnavailable
*/
func (service *Service) StartImport(ctx context.Context, ownerID, storyID string, file *upload.File, options Options) (string, error) {

	// 1. Validate input
	options = options.withDefaults()
	if err := options.validate(); err != nil {
		return "", err
	}
	if err := service.validateFile(file); err != nil {
		return "", err
	}

	// 2. Resolve and authorize
	target, err := service.repository.FindStoryByID(ctx, storyID)
	if err != nil {
		return "", err
	}
	if !service.authorizer.CanManageStory(ctx, ownerID, target) {
		return "", apperr.Forbidden("You are not allowed to import chapters into this story")
	}

	// 3. One import per story
	release, err := service.locker.Acquire(ctx, constants.RedisPrefixImportLock+storyID, service.config.LockTTL)
	if err != nil {
		return "", err
	}

	// 4. Queue
	jobID := service.tracker.Create(jobs.KindTxtImport, ownerID)
	task := func(taskCtx context.Context) {
		defer release()
		defer service.removeUpload(file, jobID)
		service.run(taskCtx, jobID, target, file, options)
	}

	if err := service.submitter.Submit(constants.PoolImport, task); err != nil {
		release()
		service.finish(jobID, jobs.StatusFailed, "Import could not be queued", nil)
		return "", err
	}

	service.logger.Info("import_job_queued",
		slog.String(constants.FieldJobID, jobID),
		slog.String("story_id", storyID),
		slog.String("file", file.Name),
		slog.Int64("size", file.Size),
		slog.Int("batch_size", options.BatchSize),
	)

	return jobID, nil
}

// Cancel asks a running import to stop before its next batch.
func (service *Service) Cancel(jobID, userID string) (jobs.Job, error) {
	return service.tracker.CancelFor(jobID, userID, jobs.KindTxtImport)
}

// Cleanup removes a finished import job.
func (service *Service) Cleanup(jobID, userID string) error {
	return service.tracker.CleanupFor(jobID, userID, jobs.KindTxtImport)
}

// # Queries

// Status returns the owner's view of an import job.
func (service *Service) Status(jobID, userID string) (jobs.Job, error) {
	return service.tracker.StatusFor(jobID, userID, jobs.KindTxtImport)
}

// ListJobs returns the user's import jobs, newest first.
func (service *Service) ListJobs(userID string) []jobs.Job {
	return service.tracker.ListByOwner(userID, jobs.KindTxtImport)
}

// # Background Job

// importRun is the state of one import job.
type importRun struct {
	jobID   string
	story   *story.Story
	options Options
	total   int

	batch     int
	processed int
	succeeded int
	failed    int

	// handled holds the numbers already attempted by earlier batches.
	handled map[int]bool
}

func (service *Service) run(ctx context.Context, jobID string, target *story.Story, file *upload.File, options Options) {
	logger := service.logger.With(slog.String(constants.FieldJobID, jobID), slog.String("story_id", target.ID))

	// 1. Start
	if service.tracker.CancelRequested(jobID) {
		service.finish(jobID, jobs.StatusCancelled, "Cancelled before start", nil)
		return
	}
	_, err := service.tracker.Update(jobID, func(job *jobs.Job) {
		job.Status = jobs.StatusProcessing
		job.Message = "Scanning file"
	})
	if err != nil {
		logger.Warn("import_job_abandoned", slog.Any("error", err))
		return
	}

	// 2. Count chapters in range
	total, err := service.count(file, options)
	if err != nil {
		logger.Error("import_scan_failed", slog.Any("error", err))
		service.finish(jobID, jobs.StatusFailed, "Could not read the uploaded file", nil)
		return
	}
	if total == 0 {
		service.finish(jobID, jobs.StatusFailed, "No chapters matching 'Chương N' or 'Chapter N' found in range", nil)
		return
	}

	totalBatches := (total + options.BatchSize - 1) / options.BatchSize
	_, err = service.tracker.Update(jobID, func(job *jobs.Job) {
		job.TotalChapters = total
		job.TotalBatches = totalBatches
		job.Message = "Importing chapters"
	})
	if err != nil {
		logger.Warn("import_job_abandoned", slog.Any("error", err))
		return
	}

	// 3. Stream and persist
	state := &importRun{jobID: jobID, story: target, options: options, total: total, handled: make(map[int]bool)}
	ending, err := service.stream(ctx, state, file)
	if err != nil {
		logger.Error("import_read_failed", slog.Any("error", err))
	}

	// 4. Settle
	if ending == outcomeAbandoned {
		logger.Warn("import_job_abandoned",
			slog.Int("imported", state.succeeded),
			slog.Int("batches", state.batch),
		)
		return
	}

	result := Result{StoryID: target.ID, Imported: state.succeeded, Failed: state.failed}
	switch {
	case ending == outcomeCancelled:
		service.finish(jobID, jobs.StatusCancelled,
			fmt.Sprintf("Cancelled after %d/%d chapters", state.processed, total), result)
	case ending == outcomeInterrupted:
		service.finish(jobID, jobs.StatusFailed, "Import interrupted by server shutdown", result)
	case err != nil:
		service.finish(jobID, jobs.StatusFailed, "Could not read the uploaded file", result)
	case state.succeeded == 0:
		service.finish(jobID, jobs.StatusFailed, "No chapters were imported", result)
	default:
		service.finish(jobID, jobs.StatusCompleted,
			fmt.Sprintf("Imported %d chapters, %d failed", state.succeeded, state.failed), result)
	}

	logger.Info("import_job_finished",
		slog.Int("imported", state.succeeded),
		slog.Int("failed", state.failed),
		slog.Int("batches", state.batch),
	)
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeCancelled
	outcomeInterrupted

	// outcomeAbandoned means the job reached a terminal status elsewhere,
	// for example through the stall watchdog. Nothing more may be written.
	outcomeAbandoned
)

// count performs the pre-scan.
func (service *Service) count(file *upload.File, options Options) (int, error) {
	reader, err := file.Open()
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	total := 0
	for segment, err := range chapterparse.Parse(reader) {
		if err != nil {
			return 0, err
		}
		if options.inRange(segment.Number) {
			total++
		}
	}
	return total, nil
}

// stream groups in-range segments into batches and persists them in order.
func (service *Service) stream(ctx context.Context, state *importRun, file *upload.File) (outcome, error) {
	reader, err := file.Open()
	if err != nil {
		return outcomeDone, err
	}
	defer reader.Close()

	pending := make([]chapterparse.Segment, 0, state.options.BatchSize)
	for segment, err := range chapterparse.Parse(reader) {
		if err != nil {
			return outcomeDone, err
		}
		if !state.options.inRange(segment.Number) {
			continue
		}

		pending = append(pending, segment)
		if len(pending) < state.options.BatchSize {
			continue
		}

		if result := service.checkpoint(ctx, state.jobID); result != outcomeDone {
			return result, nil
		}
		if err := service.importBatch(ctx, state, pending); err != nil {
			return outcomeAbandoned, nil
		}
		pending = pending[:0]
	}

	if len(pending) > 0 {
		if result := service.checkpoint(ctx, state.jobID); result != outcomeDone {
			return result, nil
		}
		if err := service.importBatch(ctx, state, pending); err != nil {
			return outcomeAbandoned, nil
		}
	}

	return outcomeDone, nil
}

// checkpoint runs before every batch.
func (service *Service) checkpoint(ctx context.Context, jobID string) outcome {
	if job, err := service.tracker.Get(jobID); err != nil || job.Status.Terminal() {
		return outcomeAbandoned
	}
	if service.tracker.CancelRequested(jobID) {
		return outcomeCancelled
	}
	if ctx.Err() != nil {
		return outcomeInterrupted
	}
	return outcomeDone
}

/*
importBatch persists one batch and publishes the progress.

Chapters that cannot be written (empty body, existing number without
overwrite, a rejected transaction) are recorded as job errors; the job goes
on with the next batch. The returned error comes from publishing progress:
[jobs.ErrJobFinished] once the job was finished elsewhere.
*/
func (service *Service) importBatch(ctx context.Context, state *importRun, segments []chapterparse.Segment) error {
	state.batch++
	batch := state.batch
	overwrite := state.options.OverwriteExisting

	failures := make([]jobs.Error, 0)
	fail := func(number int, message string) {
		failures = append(failures, jobs.Error{ChapterNumber: number, Batch: batch, Message: message})
	}

	// 1. Build drafts, resolving duplicates inside the file
	drafts := make([]story.ChapterDraft, 0, len(segments))
	weight := make([]int, 0, len(segments))
	position := make(map[int]int, len(segments))

	for _, segment := range segments {
		draft, err := service.draft(state.story, segment, state.options)
		if err != nil {
			fail(segment.Number, err.Error())
			continue
		}

		index, duplicate := position[segment.Number]
		switch {
		case (duplicate || state.handled[segment.Number]) && !overwrite:
			fail(segment.Number, alreadyExists(segment.Number))
		case duplicate:
			drafts[index] = draft
			weight[index]++
		default:
			position[segment.Number] = len(drafts)
			drafts = append(drafts, draft)
			weight = append(weight, 1)
		}
	}

	// 2. Existing chapters
	if !overwrite && len(drafts) > 0 {
		numbers := make([]int, len(drafts))
		for index, draft := range drafts {
			numbers[index] = draft.Number
		}

		existing, err := service.repository.ExistingChapterNumbers(ctx, state.story.ID, numbers)
		if err != nil {
			for _, draft := range drafts {
				fail(draft.Number, "Could not check existing chapters")
			}
			drafts = drafts[:0]
		}

		kept, keptWeight := drafts[:0], weight[:0]
		for index, draft := range drafts {
			if existing[draft.Number] {
				fail(draft.Number, alreadyExists(draft.Number))
				continue
			}
			kept = append(kept, draft)
			keptWeight = append(keptWeight, weight[index])
		}
		drafts, weight = kept, keptWeight
	}

	// 3. Persist atomically
	succeeded := 0
	if len(drafts) > 0 {
		if err := service.repository.InsertChaptersBatch(ctx, state.story.ID, drafts, overwrite); err != nil {
			service.logger.Warn("import_batch_failed",
				slog.String(constants.FieldJobID, state.jobID),
				slog.Int("batch", batch),
				slog.Any("error", err),
			)
			message := "Batch could not be saved"
			if appErr := apperr.As(err); appErr != nil {
				message = appErr.Message
			}
			for index, draft := range drafts {
				for range weight[index] {
					fail(draft.Number, message)
				}
			}
		} else {
			for _, count := range weight {
				succeeded += count
			}
		}
	}

	for _, segment := range segments {
		state.handled[segment.Number] = true
	}

	// 4. Publish
	state.processed += len(segments)
	state.succeeded += succeeded
	state.failed += len(failures)

	_, err := service.tracker.Update(state.jobID, func(job *jobs.Job) {
		job.ProcessedCount = state.processed
		job.SuccessCount = state.succeeded
		job.FailureCount = state.failed
		job.CurrentBatch = batch
		job.SetProgress(int64(state.processed), int64(state.total))
		job.Message = fmt.Sprintf("Imported batch %d/%d", batch, job.TotalBatches)
		for _, failure := range failures {
			job.AddError(failure)
		}
	})
	return err
}

// draft turns a parsed segment into a chapter ready for insertion.
func (service *Service) draft(target *story.Story, segment chapterparse.Segment, options Options) (story.ChapterDraft, error) {
	formatter := textformat.NewFormatter(service.config.Format)
	lines := make([]string, 0, len(segment.Body))
	for _, raw := range segment.Body {
		if line, ok := formatter.Line(raw); ok {
			lines = append(lines, line)
		}
	}

	content := strings.TrimSpace(strings.Join(lines, "\n"))
	if content == "" {
		return story.ChapterDraft{}, apperr.Unprocessable(fmt.Sprintf("Chapter %d has no content", segment.Number))
	}

	title := truncateRunes(strings.Join(strings.Fields(segment.Title), " "), maxTitleRunes)
	named := title != ""
	if !named {
		title = fmt.Sprintf("Chương %d", segment.Number)
	}

	return story.ChapterDraft{
		Number:    segment.Number,
		Title:     title,
		Slug:      chapterSlug(target, segment.Number, title, named, options),
		Content:   content,
		WordCount: len(strings.Fields(content)),
	}, nil
}

// finish moves the job to a terminal status.
func (service *Service) finish(jobID string, status jobs.Status, message string, result any) {
	_, err := service.tracker.Update(jobID, func(job *jobs.Job) {
		job.Status = status
		job.Message = message
		if result != nil {
			job.Result = result
		}
	})
	if err != nil {
		service.logger.Warn("import_job_finish_failed", slog.String(constants.FieldJobID, jobID), slog.Any("error", err))
	}
}

func (service *Service) validateFile(file *upload.File) error {
	if file == nil {
		return validate.RequiredError(FieldFile, "File is required")
	}

	validator := &validate.Validator{}
	validator.TextFile(FieldFile, file.Name, file.Size, service.config.MaxFileSize)
	return validator.Err()
}

func (service *Service) removeUpload(file *upload.File, jobID string) {
	if err := file.Remove(); err != nil {
		service.logger.Warn("import_upload_cleanup_failed", slog.String(constants.FieldJobID, jobID), slog.Any("error", err))
	}
}

// # Helpers

func alreadyExists(number int) string {
	return fmt.Sprintf("Chapter %d already exists", number)
}

// chapterSlug builds "<prefix>-chuong-<N>[-<title>]".
func chapterSlug(target *story.Story, number int, title string, named bool, options Options) string {
	prefix := options.ChapterSlugPrefix
	if prefix == "" {
		prefix = target.Slug
	}

	result := fmt.Sprintf("%s-chuong-%d", prefix, number)
	if !named {
		return result
	}

	titleSlug := slug.Limit(title, maxTitleSlugLen)
	if titleSlug == "" {
		return result
	}
	return result + "-" + titleSlug
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
