// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey declares the context keys shared by ctxutil and the two
// transaction managers (postgres and txn).
package ctxkey

// key is unexported so no other package can build a colliding key.
type key string

const (
	KeyRequestID key = "request_id"

	// KeyUser holds the verified [sec.AuthClaims].
	KeyUser key = "user"

	// KeyLogger holds the request-scoped *slog.Logger.
	KeyLogger key = "logger"

	// KeyTransaction holds the open unit of work: a pgx.Tx in production,
	// an undo log for the in-memory stores.
	KeyTransaction key = "transaction"
)
