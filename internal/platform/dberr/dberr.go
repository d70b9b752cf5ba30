// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/truyen/internal/platform/apperr"
)

// SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// The action names the operation for the conflict message (e.g. "insert chapters").
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations carry a SQLSTATE
	if pgError := AsPgError(err); pgError != nil {
		switch pgError.Code {
		case codeUniqueViolation:
			return apperr.Conflict("Cannot " + action + ": a record with the same key already exists").WithCause(err)
		case codeCheckViolation:
			return apperr.Unprocessable("Cannot " + action + ": value violates a constraint").WithCause(err)
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	pgError := AsPgError(err)
	return pgError != nil && pgError.Code == codeUniqueViolation
}

// AsPgError extracts the [*pgconn.PgError] from err's chain, or nil.
func AsPgError(err error) *pgconn.PgError {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		return pgError
	}
	return nil
}
