// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil reads and writes the request-scoped values carried in a
// [context.Context]: the request ID, the request logger and the caller's claims.
//
// Background jobs run on contexts without these values; every getter has a
// usable zero result for that case.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/truyen/internal/platform/ctxkey"
	"github.com/taibuivan/truyen/internal/platform/sec"
)

// # Request Tracing

// WithRequestID attaches the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID returns the request ID, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger attaches a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger returns the request logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// # Identity & Access

// WithAuthUser attaches verified claims.
func WithAuthUser(ctx context.Context, user *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, user)
}

// GetAuthUser returns the caller's claims, or nil for anonymous callers.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(ctxkey.KeyUser).(*sec.AuthClaims)
	return claims
}

// UserID returns the caller's ID, or "" for anonymous callers.
func UserID(ctx context.Context) string {
	if claims := GetAuthUser(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// ActsWithRole reports whether the caller in ctx is userID and holds at least role.
// Claims belonging to another user never grant anything.
func ActsWithRole(ctx context.Context, userID string, role sec.UserRole) bool {
	claims := GetAuthUser(ctx)
	if claims == nil || userID == "" || claims.UserID != userID {
		return false
	}
	return sec.UserRole(claims.Role).AtLeast(role)
}
