// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/truyen/internal/platform/request"
	"github.com/taibuivan/truyen/internal/platform/sec"
	"github.com/taibuivan/truyen/internal/platform/validate"
)

/*
TestDecodeJSON maps any malformed or oversized body to the invalid JSON error.
*/
func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"amount": 5}`, false},
		{"malformed", `{"amount":`, true},
		{"oversized", `{"note":"` + strings.Repeat("a", 2<<20) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target struct {
				Amount int    `json:"amount"`
				Note   string `json:"note"`
			}
			request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			err := requestutil.DecodeJSON(request, &target)
			if tt.wantErr {
				assert.ErrorIs(t, err, validate.ErrInvalidJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 5, target.Amount)
		})
	}
}

/*
TestID reads chi route parameters.
*/
func TestID(t *testing.T) {
	var got string
	router := chi.NewRouter()
	router.Get("/jobs/{jobID}", func(_ http.ResponseWriter, request *http.Request) {
		got = requestutil.ID(request, "jobID")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs/abc", nil))
	assert.Equal(t, "abc", got)
}

/*
TestRequiredUserID rejects anonymous requests with 401.
*/
func TestRequiredUserID(t *testing.T) {
	anonymous := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := requestutil.RequiredUserID(anonymous)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)

	ctx := ctxutil.WithAuthUser(anonymous.Context(), &sec.AuthClaims{UserID: "user-1"})
	userID, err := requestutil.RequiredUserID(anonymous.WithContext(ctx))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

/*
TestScalars parses optional integers and booleans with fallbacks.
*/
func TestScalars(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		value, err := requestutil.Int("batch_size", " 40 ", 10)
		require.NoError(t, err)
		assert.Equal(t, 40, value)

		value, err = requestutil.Int("batch_size", "", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, value)

		_, err = requestutil.Int("batch_size", "forty", 10)
		assert.Equal(t, http.StatusBadRequest, apperr.As(err).HTTPStatus)
	})

	t.Run("bool", func(t *testing.T) {
		value, err := requestutil.Bool("keep_watermarks", "1", false)
		require.NoError(t, err)
		assert.True(t, value)

		value, err = requestutil.Bool("keep_watermarks", "", true)
		require.NoError(t, err)
		assert.True(t, value)

		_, err = requestutil.Bool("keep_watermarks", "maybe", false)
		assert.Error(t, err)
	})

	t.Run("query_int", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/?page=3", nil)
		value, err := requestutil.QueryInt(request, "page", 1)
		require.NoError(t, err)
		assert.Equal(t, 3, value)
	})
}
