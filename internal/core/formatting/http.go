// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package formatting

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/truyen/internal/platform/request"
	"github.com/taibuivan/truyen/internal/platform/respond"
	"github.com/taibuivan/truyen/internal/platform/upload"
)

// Handler exposes the format engine over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterUploadRoutes mounts the multipart endpoint on the upload-timeout router.
func (handler *Handler) RegisterUploadRoutes(router chi.Router) {
	router.Post("/format-jobs", handler.startFormat)
}

// RegisterRoutes mounts the job endpoints. The paths are flat: a mounted
// "/format-jobs" subrouter would shadow the upload endpoint on the same path.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/format-jobs", handler.listJobs)
	router.Get("/format-jobs/{jobID}", handler.getJob)
	router.Post("/format-jobs/{jobID}/cancel", handler.cancelJob)
	router.Get("/format-jobs/{jobID}/download", handler.download)
	router.Delete("/format-jobs/{jobID}", handler.cleanupJob)
}

type startResponse struct {
	JobID   string  `json:"job_id"`
	Options Options `json:"options"`
}

func (handler *Handler) startFormat(writer http.ResponseWriter, request *http.Request) {
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

	jobID, err := handler.service.StartFormat(request.Context(), userID, file, options)
	if err != nil {
		_ = file.Remove()
		respond.Error(writer, request, err)
		return
	}
	respond.Accepted(writer, startResponse{JobID: jobID, Options: options})
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

func (handler *Handler) download(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	artifact, err := handler.service.Download(requestutil.ID(request, "jobID"), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer artifact.Content.Close()

	respond.Attachment(writer, request, artifact.Name, artifact.Size, artifact.Content)
}
