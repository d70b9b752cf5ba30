// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package formatting_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/core/formatting"
	"github.com/taibuivan/truyen/internal/platform/ctxutil"
	"github.com/taibuivan/truyen/internal/platform/sec"
)

func multipartBody(t *testing.T, name, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile(formatting.FieldFile, name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

/*
TestHandler_UploadAndDownload uploads a file, downloads the result and cleans up.
*/
func TestHandler_UploadAndDownload(t *testing.T) {
	fixture := newFixture(t)
	handler := formatting.NewHandler(fixture.service(fixture.artifacts, inlineSubmitter{}))

	router := chi.NewRouter()
	handler.RegisterUploadRoutes(router)
	handler.RegisterRoutes(router)

	claims := &sec.AuthClaims{UserID: owner, Role: string(sec.RoleAuthor)}
	serve := func(request *http.Request) *httptest.ResponseRecorder {
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	// 1. Upload with one option switched off
	body, contentType := multipartBody(t, "truyen.txt", "Chương 1\n\n\n\nNội dung", map[string]string{
		formatting.FieldMergeEmptyLines: "false",
	})
	request := httptest.NewRequest(http.MethodPost, "/format-jobs", body)
	request.Header.Set("Content-Type", contentType)
	recorder := serve(request)
	require.Equal(t, http.StatusAccepted, recorder.Code, recorder.Body.String())

	var envelope struct {
		Data struct {
			JobID   string             `json:"job_id"`
			Options formatting.Options `json:"options"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Options.MergeEmptyLines)
	assert.True(t, envelope.Data.Options.FormatPunctuation)
	jobID := envelope.Data.JobID

	// 2. Download
	recorder = serve(httptest.NewRequest(http.MethodGet, "/format-jobs/"+jobID+"/download", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Chương 1\n\n\n\nNội dung", recorder.Body.String())
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "truyen_formatted.txt")

	// 3. Cleanup, then the job is gone
	recorder = serve(httptest.NewRequest(http.MethodDelete, "/format-jobs/"+jobID, nil))
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = serve(httptest.NewRequest(http.MethodGet, "/format-jobs/"+jobID, nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestHandler_Rejections covers bad uploads and option values.
*/
func TestHandler_Rejections(t *testing.T) {
	fixture := newFixture(t)
	handler := formatting.NewHandler(fixture.service(fixture.artifacts, inlineSubmitter{}))

	router := chi.NewRouter()
	handler.RegisterUploadRoutes(router)

	tests := []struct {
		name       string
		file       string
		fields     map[string]string
		wantStatus int
	}{
		{"wrong_extension", "novel.pdf", nil, http.StatusBadRequest},
		{"bad_option", "novel.txt", map[string]string{formatting.FieldFormatPunctuation: "maybe"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.file, "Chương 1\nabc", tt.fields)
			request := httptest.NewRequest(http.MethodPost, "/format-jobs", body)
			request.Header.Set("Content-Type", contentType)
			request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: owner}))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code, recorder.Body.String())
		})
	}
}
