// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the identifiers used for rows, jobs and transactions.

Identifiers are Version 7 UUIDs. They sort by creation time, which keeps
PostgreSQL B-tree indexes compact and makes job listings chronological.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New returns a new time-ordered UUID string.
func New() string {

	// Entropy failure is not recoverable
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate identifier: " + err.Error())
	}

	return id.String()
}

// Valid reports whether value parses as a UUID of any version.
func Valid(value string) bool {
	return uuid.Validate(value) == nil
}
