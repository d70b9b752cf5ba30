// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api is the HTTP composition root: it builds the chi router, installs
the middleware chain and mounts every domain handler under /api/v1.

Routes:

	GET  /health, /ready                 probes, no authentication
	POST /api/v1/stories/{id}/imports    multipart, long timeout
	POST /api/v1/format-jobs             multipart, long timeout
	*    /api/v1/...                     everything else, authenticated

Multipart upload endpoints run under [constants.UploadRequestTimeout]; every
other route keeps [constants.GlobalRequestTimeout].
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/truyen/internal/core/formatting"
	"github.com/taibuivan/truyen/internal/core/importer"
	"github.com/taibuivan/truyen/internal/core/unlock"
	"github.com/taibuivan/truyen/internal/platform/config"
	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/middleware"
	"github.com/taibuivan/truyen/internal/users/wallet"
)

// Handlers groups the probe functions and the domain handler sets.
type Handlers struct {
	Liveness  http.HandlerFunc
	Readiness http.HandlerFunc

	Importer   *importer.Handler
	Formatting *formatting.Handler
	Wallet     *wallet.Handler
	Unlock     *unlock.Handler
}

// Server owns the router and the [http.Server] listening on it.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	log        *slog.Logger
}

/*
NewServer builds the router and the listening server.

Parameters:
  - context: stops the rate limiter janitor when cancelled
  - cfg: *config.Config (port and CORS origins)
  - log: *slog.Logger
  - verifier: middleware.TokenVerifier (bearer token checks)
  - handlers: Handlers

Returns:
  - *Server
*/
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, handlers Handlers) *Server {
	router := chi.NewRouter()

	// Outermost first: the request ID must exist before the logger reads it,
	// and Authenticate must run inside the logger to report the user.
	router.Use(
		middleware.RequestID(),
		middleware.StructuredLogger(log),
		middleware.RateLimit(context),
		middleware.PanicRecovery(log),
		middleware.Authenticate(verifier),
		middleware.CORS(cfg),
		chimw.CleanPath,
	)

	router.Get("/health", handlers.Liveness)
	router.Get("/ready", handlers.Readiness)
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth)
		mountAPI(api, handlers)
	})

	return &Server{
		router: router,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

func mountAPI(api chi.Router, handlers Handlers) {
	api.Group(func(uploads chi.Router) {
		uploads.Use(chimw.Timeout(constants.UploadRequestTimeout))
		handlers.Importer.RegisterUploadRoutes(uploads)
		handlers.Formatting.RegisterUploadRoutes(uploads)
	})

	api.Group(func(routes chi.Router) {
		routes.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		handlers.Importer.RegisterRoutes(routes)
		handlers.Formatting.RegisterRoutes(routes)
		handlers.Wallet.RegisterRoutes(routes)
		handlers.Unlock.RegisterRoutes(routes)
	})
}

// Handler returns the root router, mainly for tests.
func (server *Server) Handler() http.Handler {
	return server.router
}

// # Lifecycle

// ListenAndServe blocks until the server is shut down or fails.
func (server *Server) ListenAndServe() error {
	server.log.Info("server_starting", slog.String("addr", server.httpServer.Addr))
	return server.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight requests. Background jobs are drained separately.
func (server *Server) Shutdown(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.httpServer.Shutdown(shutdownCtx)
}
