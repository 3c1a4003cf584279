// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// Request IDs use it so log lines of one process sort by arrival time.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string, falling back to a random UUIDv4 when
// the clock sequence cannot be read.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
