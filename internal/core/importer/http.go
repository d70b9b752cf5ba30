// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/truyen/internal/platform/request"
	"github.com/taibuivan/truyen/internal/platform/respond"
	"github.com/taibuivan/truyen/internal/platform/upload"
)

// Handler exposes the import engine over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterUploadRoutes mounts the multipart endpoint. It is registered
// separately so the router can give it the longer upload timeout.
func (handler *Handler) RegisterUploadRoutes(router chi.Router) {
	router.Post("/stories/{storyID}/imports", handler.startImport)
}

// RegisterRoutes mounts the job endpoints.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/imports", func(router chi.Router) {
		router.Get("/", handler.listJobs)
		router.Get("/{jobID}", handler.getJob)
		router.Post("/{jobID}/cancel", handler.cancelJob)
		router.Delete("/{jobID}", handler.cleanupJob)
	})
}

type startResponse struct {
	JobID   string  `json:"job_id"`
	StoryID string  `json:"story_id"`
	Options Options `json:"options"`
}

func (handler *Handler) startImport(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	file, fields, err := upload.Spool(request, FieldFile, handler.service.config.MaxFileSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	options, err := optionsFromForm(fields)
	if err != nil {
		_ = file.Remove()
		respond.Error(writer, request, err)
		return
	}

	storyID := requestutil.ID(request, "storyID")
	jobID, err := handler.service.StartImport(request.Context(), userID, storyID, file, options)
	if err != nil {
		_ = file.Remove()
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, startResponse{JobID: jobID, StoryID: storyID, Options: options.withDefaults()})
}

func (handler *Handler) listJobs(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, handler.service.ListJobs(userID))
}

func (handler *Handler) getJob(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	job, err := handler.service.Status(requestutil.ID(request, "jobID"), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, job)
}

func (handler *Handler) cancelJob(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	job, err := handler.service.Cancel(requestutil.ID(request, "jobID"), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, job)
}

func (handler *Handler) cleanupJob(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Cleanup(requestutil.ID(request, "jobID"), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// optionsFromForm reads the import options sent next to the file.
func optionsFromForm(fields map[string]string) (Options, error) {
	var options Options
	var err error

	if options.StartFromChapter, err = requestutil.Int(FieldStartFromChapter, fields[FieldStartFromChapter], 0); err != nil {
		return Options{}, err
	}
	if options.EndAtChapter, err = requestutil.Int(FieldEndAtChapter, fields[FieldEndAtChapter], 0); err != nil {
		return Options{}, err
	}
	if options.BatchSize, err = requestutil.Int(FieldBatchSize, fields[FieldBatchSize], 0); err != nil {
		return Options{}, err
	}
	if options.OverwriteExisting, err = requestutil.Bool(FieldOverwriteExisting, fields[FieldOverwriteExisting], false); err != nil {
		return Options{}, err
	}
	options.ChapterSlugPrefix = fields[FieldChapterSlugPrefix]

	return options, nil
}
