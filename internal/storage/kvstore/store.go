// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package kvstore defines the durable, string-keyed store that reading state is
persisted into, together with its backends.

Backends:

  - Memory: process-local map. Used in tests and when no durable backend is configured.
  - File: a single JSON document on disk holding every key.
  - Redis: go-redis client, keys under a fixed prefix.
  - Postgres: pgx pool over the reader.kv table.

[Namespace] decorates any backend so that several profiles can share it while
each one still reads and writes the fixed logical keys ("library", "progress").
*/
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// # Errors

var (
	// ErrNotFound is returned by [Store.Get] when no value is stored under the key.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrUnavailable signals that the backend cannot be reached or refuses the
	// operation (disabled storage, connection loss, quota exceeded).
	ErrUnavailable = errors.New("kvstore: storage unavailable")
)

// # Contract

// Store is a synchronous string key-value store.
//
// Implementations must be safe for concurrent use.
type Store interface {

	/*
		Get returns the raw value stored under key.

		Returns:
		  - string: The stored value
		  - error: ErrNotFound if absent, ErrUnavailable (wrapped) on backend failure
	*/
	Get(context context.Context, key string) (string, error)

	/*
		Set stores value under key, replacing any previous value.

		Returns:
		  - error: ErrUnavailable (wrapped) on backend failure
	*/
	Set(context context.Context, key, value string) error
}

// unavailable wraps a backend failure so callers can match it with [errors.Is].
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
