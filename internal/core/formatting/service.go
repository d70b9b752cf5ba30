// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package formatting

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/jobs"
	"github.com/taibuivan/truyen/internal/platform/upload"
	"github.com/taibuivan/truyen/internal/platform/validate"
	"github.com/taibuivan/truyen/internal/platform/worker"
	"github.com/taibuivan/truyen/pkg/chapterparse"
	"github.com/taibuivan/truyen/pkg/textformat"
)

// ErrNotReady is returned when downloading a job that has not completed.
var ErrNotReady = apperr.Conflict("The formatted file is not ready")

// Config carries the engine limits.
type Config struct {
	MaxFileSize int64

	// Watermarks replaces the built-in watermark list when non-nil.
	Watermarks []*regexp.Regexp
}

// Service runs format-file jobs.
type Service struct {
	artifacts ArtifactStore
	tracker   *jobs.Tracker
	submitter worker.Submitter
	config    Config
	logger    *slog.Logger
}

// NewService constructs the format engine and ties artifact lifetime to job eviction.
func NewService(artifacts ArtifactStore, tracker *jobs.Tracker, submitter worker.Submitter, config Config, logger *slog.Logger) *Service {
	service := &Service{
		artifacts: artifacts,
		tracker:   tracker,
		submitter: submitter,
		config:    config,
		logger:    logger,
	}
	tracker.OnEvict(service.evicted)
	return service
}

// Download is an open artifact ready to stream.
type Download struct {
	Name    string
	Size    int64
	Content io.ReadCloser
}

// # Commands

/*
StartFormat validates the upload and queues a format job.

The service owns file once a job ID is returned. On error the caller still
owns it.

Returns:
  - string: job ID
  - error: Validation or ServiceUnavailable
*/
func (service *Service) StartFormat(ctx context.Context, ownerID string, file *upload.File, options Options) (string, error) {
	if err := service.validateFile(file); err != nil {
		return "", err
	}

	jobID := service.tracker.Create(jobs.KindFormatFile, ownerID)
	task := func(taskCtx context.Context) {
		defer service.removeUpload(file, jobID)
		service.run(taskCtx, jobID, file, options)
	}

	if err := service.submitter.Submit(constants.PoolFormat, task); err != nil {
		service.tracker.Update(jobID, func(job *jobs.Job) {
			job.Status = jobs.StatusFailed
			job.Message = "Formatting could not be queued"
		})
		return "", err
	}

	service.logger.Info("format_job_queued",
		slog.String(constants.FieldJobID, jobID),
		slog.String("file", file.Name),
		slog.Int64("size", file.Size),
	)
	return jobID, nil
}

// Cancel asks a running format job to stop at its next checkpoint.
func (service *Service) Cancel(jobID, userID string) (jobs.Job, error) {
	return service.tracker.CancelFor(jobID, userID, jobs.KindFormatFile)
}

// Cleanup removes a finished job and its artifact.
func (service *Service) Cleanup(jobID, userID string) error {
	return service.tracker.CleanupFor(jobID, userID, jobs.KindFormatFile)
}

// # Queries

// Status returns the owner's view of a format job.
func (service *Service) Status(jobID, userID string) (jobs.Job, error) {
	return service.tracker.StatusFor(jobID, userID, jobs.KindFormatFile)
}

// ListJobs returns the user's format jobs, newest first.
func (service *Service) ListJobs(userID string) []jobs.Job {
	return service.tracker.ListByOwner(userID, jobs.KindFormatFile)
}

/*
Download opens the artifact of a completed job. The caller closes Content.

Returns:
  - *Download
  - error: ErrJobNotFound for foreign or unknown jobs, ErrNotReady before completion
*/
func (service *Service) Download(jobID, userID string) (*Download, error) {
	job, err := service.Status(jobID, userID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusCompleted {
		return nil, ErrNotReady
	}

	result, ok := job.Result.(*Result)
	if !ok {
		return nil, ErrNotReady
	}

	content, size, err := service.artifacts.Open(jobID)
	if err != nil {
		return nil, err
	}
	return &Download{Name: result.FileName, Size: size, Content: content}, nil
}

// # Background Job

// pass is the state of one streaming pass over the upload.
type pass struct {
	bytesRead   int64
	linesIn     int
	linesOut    int
	bytesOut    int64
	chapters    int
	cancelled   bool
	interrupted bool
}

func (service *Service) run(ctx context.Context, jobID string, file *upload.File, options Options) {
	logger := service.logger.With(slog.String(constants.FieldJobID, jobID))

	// 1. Start
	if service.tracker.CancelRequested(jobID) {
		service.finish(jobID, jobs.StatusCancelled, "Cancelled before start", nil)
		return
	}
	service.tracker.Update(jobID, func(job *jobs.Job) {
		job.Status = jobs.StatusProcessing
		job.Message = "Formatting"
	})

	// 2. Stream
	formatter := textformat.NewFormatter(options.formatter(service.config.Watermarks))
	state, err := service.stream(ctx, jobID, file, formatter)

	// 3. Settle
	switch {
	case err != nil:
		service.discard(jobID)
		logger.Error("format_job_failed", slog.Any("error", err))
		service.finish(jobID, jobs.StatusFailed, "Could not format the uploaded file", nil)
	case state.cancelled:
		service.discard(jobID)
		service.finish(jobID, jobs.StatusCancelled, fmt.Sprintf("Cancelled after %d lines", state.linesIn), nil)
	case state.interrupted:
		service.discard(jobID)
		service.finish(jobID, jobs.StatusFailed, "Formatting interrupted by server shutdown", nil)
	default:
		result := &Result{
			FileName:         OutputName(file.Name),
			OriginalName:     file.Name,
			OriginalSize:     file.Size,
			FormattedSize:    state.bytesOut,
			OriginalLines:    state.linesIn,
			FormattedLines:   state.linesOut,
			ChaptersDetected: state.chapters,
			Options:          options,
			Stats:            formatter.Stats(),
		}
		service.tracker.Update(jobID, func(job *jobs.Job) {
			job.ProcessedCount = state.linesIn
			job.SuccessCount = state.chapters
		})
		service.finish(jobID, jobs.StatusCompleted,
			fmt.Sprintf("Formatted %d lines, %d chapters detected", state.linesIn, state.chapters), result)

		logger.Info("format_job_completed",
			slog.Int("lines_in", state.linesIn),
			slog.Int("lines_out", state.linesOut),
			slog.Int("chapters", state.chapters),
			slog.Int64("bytes_out", state.bytesOut),
		)
	}
}

// stream formats file into the job's artifact. Lines are joined with "\n"
// and the output has no trailing newline, matching [textformat.Format].
func (service *Service) stream(ctx context.Context, jobID string, file *upload.File, formatter *textformat.Formatter) (pass, error) {
	var state pass

	input, err := file.Open()
	if err != nil {
		return state, err
	}
	defer input.Close()

	artifact, err := service.artifacts.Create(jobID)
	if err != nil {
		return state, err
	}
	output := bufio.NewWriterSize(artifact, 64<<10)

	var readErr, writeErr error
	for line := range chapterparse.Lines(input, &readErr) {
		state.linesIn++
		state.bytesRead += int64(len(line)) + 1

		if formatted, keep := formatter.Line(line); keep {
			if state.linesOut > 0 {
				writeErr = output.WriteByte('\n')
				state.bytesOut++
			}
			if writeErr == nil {
				_, writeErr = output.WriteString(formatted)
			}
			if writeErr != nil {
				break
			}
			state.linesOut++
			state.bytesOut += int64(len(formatted))

			if _, heading := chapterparse.MatchHeading(formatted); heading {
				state.chapters++
			}
		}

		if state.linesIn%progressEvery == 0 {
			if service.tracker.CancelRequested(jobID) {
				state.cancelled = true
				break
			}
			if ctx.Err() != nil {
				state.interrupted = true
				break
			}
			service.publish(jobID, state, file.Size)
		}
	}

	if writeErr == nil {
		writeErr = output.Flush()
	}
	closeErr := artifact.Close()

	return state, errors.Join(readErr, writeErr, closeErr)
}

func (service *Service) publish(jobID string, state pass, total int64) {
	service.tracker.Update(jobID, func(job *jobs.Job) {
		job.ProcessedCount = state.linesIn
		job.SetProgress(min(state.bytesRead, total), total)
		job.Message = fmt.Sprintf("Formatted %d lines", state.linesIn)
	})
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

// evicted deletes the artifact of an evicted format job.
func (service *Service) evicted(job jobs.Job) {
	if job.Kind != jobs.KindFormatFile {
		return
	}
	service.discard(job.ID)
}

func (service *Service) discard(jobID string) {
	if err := service.artifacts.Remove(jobID); err != nil {
		service.logger.Warn("format_artifact_cleanup_failed", slog.String(constants.FieldJobID, jobID), slog.Any("error", err))
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
		service.logger.Warn("format_upload_cleanup_failed", slog.String(constants.FieldJobID, jobID), slog.Any("error", err))
	}
}
