// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/api"
	"github.com/taibuivan/truyen/internal/core/formatting"
	"github.com/taibuivan/truyen/internal/core/importer"
	"github.com/taibuivan/truyen/internal/core/story"
	"github.com/taibuivan/truyen/internal/core/unlock"
	"github.com/taibuivan/truyen/internal/platform/config"
	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/jobs"
	"github.com/taibuivan/truyen/internal/platform/lock"
	"github.com/taibuivan/truyen/internal/platform/sec"
	"github.com/taibuivan/truyen/internal/platform/txn"
	"github.com/taibuivan/truyen/internal/platform/worker"
	"github.com/taibuivan/truyen/internal/users/wallet"
	"github.com/taibuivan/truyen/pkg/textformat"
)

type inlineSubmitter struct{}

func (inlineSubmitter) Submit(_ string, task worker.Task) error {
	task(context.Background())
	return nil
}

func newServer(t *testing.T, tokens *sec.TokenService) *api.Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	stories := story.NewMemoryRepository()
	tracker := jobs.NewTracker(logger)

	artifacts, err := formatting.NewDirStore(t.TempDir())
	require.NoError(t, err)

	pricing, err := unlock.NewTable("test", nil, nil)
	require.NoError(t, err)

	walletService := wallet.NewService(wallet.NewMemoryStore(), txn.NewMemory(), wallet.DefaultExchangeRate, logger)
	importService := importer.NewService(stories, story.NewOwnershipAuthorizer(stories), lock.NewMemory(), tracker, inlineSubmitter{},
		importer.Config{MaxFileSize: 1 << 20, LockTTL: time.Minute, Format: textformat.DefaultOptions()}, logger)
	formatService := formatting.NewService(artifacts, tracker, inlineSubmitter{}, formatting.Config{MaxFileSize: 1 << 20}, logger)
	unlockService := unlock.NewService(stories, unlock.NewMemoryStore(), walletService, txn.NewMemory(), pricing, tracker, inlineSubmitter{}, 0, logger)

	liveness, readiness := api.NewHealthHandlers(logger)
	return api.NewServer(t.Context(), &config.Config{ServerPort: "0", Environment: "test"}, logger, tokens, api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Importer:   importer.NewHandler(importService),
		Formatting: formatting.NewHandler(formatService),
		Wallet:     wallet.NewHandler(walletService),
		Unlock:     unlock.NewHandler(unlockService),
	})
}

/*
TestServer_Routing checks that probes are public and the API requires a valid token.
*/
func TestServer_Routing(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tokens := sec.NewTokenServiceFromKeys(key, &key.PublicKey, constants.AuthIssuer)
	server := newServer(t, tokens)

	token, err := tokens.GenerateAccessToken("0190f1a2-7c3b-7d4e-8f5a-6b7c8d9e0f1a", "reader", sec.RoleMember, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		target     string
		auth       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"anonymous_wallet", http.MethodGet, "/api/v1/wallet", "", http.StatusUnauthorized},
		{"malformed_header", http.MethodGet, "/api/v1/wallet", "Token " + token, http.StatusUnauthorized},
		{"invalid_token", http.MethodGet, "/api/v1/wallet", "Bearer nope", http.StatusUnauthorized},
		{"wallet", http.MethodGet, "/api/v1/wallet", "Bearer " + token, http.StatusOK},
		{"pricing", http.MethodGet, "/api/v1/unlock-pricing", "Bearer " + token, http.StatusOK},
		{"import_jobs", http.MethodGet, "/api/v1/imports", "Bearer " + token, http.StatusOK},
		{"format_jobs", http.MethodGet, "/api/v1/format-jobs", "Bearer " + token, http.StatusOK},
		{"format_upload_reachable", http.MethodPost, "/api/v1/format-jobs", "Bearer " + token, http.StatusBadRequest},
		{"unlock_jobs", http.MethodGet, "/api/v1/unlock-jobs", "Bearer " + token, http.StatusOK},
		{"admin_only", http.MethodGet, "/api/v1/admin/wallets/someone/reconcile", "Bearer " + token, http.StatusForbidden},
		{"unknown", http.MethodGet, "/api/v1/nowhere", "Bearer " + token, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.auth != "" {
				request.Header.Set("Authorization", tt.auth)
			}
			recorder := httptest.NewRecorder()
			server.Handler().ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code, recorder.Body.String())
		})
	}
}
