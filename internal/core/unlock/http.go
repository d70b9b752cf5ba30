// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package unlock

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/truyen/internal/platform/request"
	"github.com/taibuivan/truyen/internal/platform/respond"
)

// Handler exposes the unlock engine over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the purchase, preview and job endpoints.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/unlock-pricing", handler.getPricing)
	router.Post("/chapters/{chapterID}/unlock", handler.unlockChapter)

	// Flat paths: the importer shares the /stories/{storyID} prefix.
	router.Post("/stories/{storyID}/unlock-range", handler.unlockRange)
	router.Get("/stories/{storyID}/unlock-range/quote", handler.quoteRange)
	router.Post("/stories/{storyID}/unlock-full", handler.unlockFullStory)
	router.Get("/stories/{storyID}/unlock-full/quote", handler.quoteFullStory)
	router.Get("/stories/{storyID}/unlocked-chapters", handler.unlockedChapters)

	router.Route("/unlock-jobs", func(router chi.Router) {
		router.Get("/", handler.listJobs)
		router.Get("/{jobID}", handler.getJob)
		router.Post("/{jobID}/cancel", handler.cancelJob)
	})
}

type rangeRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type unlockedResponse struct {
	StoryID    string   `json:"story_id"`
	ChapterIDs []string `json:"chapter_ids"`
}

type jobResponse struct {
	JobID   string `json:"job_id"`
	StoryID string `json:"story_id"`
}

func (handler *Handler) getPricing(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.service.Pricing())
}

func (handler *Handler) unlockChapter(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.service.UnlockChapter(request.Context(), userID, requestutil.ID(request, "chapterID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, receipt)
}

func (handler *Handler) unlockRange(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input rangeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.service.UnlockRange(request.Context(), userID, requestutil.ID(request, "storyID"), input.From, input.To)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, receipt)
}

func (handler *Handler) quoteRange(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	from, err := requestutil.QueryInt(request, "from", 0)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	to, err := requestutil.QueryInt(request, "to", 0)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := handler.service.QuoteRange(request.Context(), userID, requestutil.ID(request, "storyID"), from, to)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preview)
}

func (handler *Handler) unlockFullStory(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	storyID := requestutil.ID(request, "storyID")
	jobID, err := handler.service.StartUnlockFullStory(request.Context(), userID, storyID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Accepted(writer, jobResponse{JobID: jobID, StoryID: storyID})
}

func (handler *Handler) quoteFullStory(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := handler.service.QuoteFullStory(request.Context(), userID, requestutil.ID(request, "storyID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preview)
}

func (handler *Handler) unlockedChapters(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	storyID := requestutil.ID(request, "storyID")
	chapterIDs, err := handler.service.UnlockedChapterIDs(request.Context(), userID, storyID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, unlockedResponse{StoryID: storyID, ChapterIDs: chapterIDs})
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
