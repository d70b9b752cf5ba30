// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

/*
TestConstructors maps every constructor to its status and code.
*/
func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *apperr.AppError
		status int
		code   string
	}{
		{"not_found", apperr.NotFound("Job"), http.StatusNotFound, apperr.CodeNotFound},
		{"unauthorized", apperr.Unauthorized("no"), http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"forbidden", apperr.Forbidden("no"), http.StatusForbidden, apperr.CodeForbidden},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict, apperr.CodeConflict},
		{"validation", apperr.ValidationError("bad"), http.StatusBadRequest, apperr.CodeValidation},
		{"rate_limited", apperr.RateLimited(2), http.StatusTooManyRequests, apperr.CodeRateLimited},
		{"insufficient_funds", apperr.InsufficientFunds("poor"), http.StatusPaymentRequired, apperr.CodeInsufficientFunds},
		{"unprocessable", apperr.Unprocessable("no chapters"), http.StatusUnprocessableEntity, apperr.CodeUnprocessable},
		{"internal", apperr.Internal(nil), http.StatusInternalServerError, apperr.CodeInternal},
		{"unavailable", apperr.ServiceUnavailable("busy"), http.StatusServiceUnavailable, apperr.CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}

	assert.Equal(t, "Job not found", apperr.NotFound("Job").Error())
}

/*
TestWithCause leaves the sentinel untouched and keeps the cause reachable.
*/
func TestWithCause(t *testing.T) {
	sentinel := apperr.Conflict("Story is being imported")
	cause := errors.New("lock held")

	wrapped := sentinel.WithCause(cause)

	assert.Nil(t, sentinel.Cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, sentinel.Message, wrapped.Message)
}

/*
TestAs finds application errors through wrapping.
*/
func TestAs(t *testing.T) {
	err := fmt.Errorf("import: %w", apperr.NotFound("Story"))

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)

	assert.Nil(t, apperr.As(errors.New("plain")))
}
