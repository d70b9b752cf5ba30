// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

Server timing, rate limiting, executor pool names and Redis key prefixes live
here. Domain limits such as batch sizes and pricing tiers stay with their
packages or in config.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "truyen-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Uploads of large TXT files dominate this value.
	DefaultReadTimeout = 2 * time.Minute

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Formatted file downloads stream through the same server.
	DefaultWriteTimeout = 5 * time.Minute

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// UploadRequestTimeout replaces GlobalRequestTimeout on multipart upload routes.
	UploadRequestTimeout = 2 * time.Minute

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// WorkerDrainTimeout bounds how long queued background jobs may keep running after shutdown starts.
	WorkerDrainTimeout = 60 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "truyen.app"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # Log Attributes

const (
	// FieldJobID is the slog attribute naming the background job a line belongs to.
	FieldJobID = "job_id"
)

// # Background Pools

const (
	// PoolImport runs TXT chapter imports.
	PoolImport = "import"

	// PoolFormat runs standalone file formatting jobs.
	PoolFormat = "format"

	// PoolTask runs general background work such as full-story unlocks.
	PoolTask = "task"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	// RedisPrefixImportLock guards one active import per story.
	RedisPrefixImportLock = "import:story:"
)
