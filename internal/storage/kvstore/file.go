// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File persists every key into one JSON object on disk.
//
// The document is read on every Get so that edits made by another process
// between sessions are picked up. Writes go to a temporary file that is then
// renamed over the target, so a crash never leaves a half-written document.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a store backed by the JSON document at path. The parent
// directory is created if missing.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: failed to create directory for %s: %w", path, err)
	}
	return &File{path: path}, nil
}

// Path returns the location of the backing document.
func (store *File) Path() string {
	return store.path
}

// Get implements [Store].
func (store *File) Get(_ context.Context, key string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	document, err := store.read()
	if err != nil {
		return "", err
	}

	value, ok := document[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set implements [Store].
func (store *File) Set(_ context.Context, key, value string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	document, err := store.read()
	if err != nil {
		return err
	}
	document[key] = value

	data, err := json.MarshalIndent(document, "", "    ")
	if err != nil {
		return unavailable("file encode", err)
	}

	temp := store.path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return unavailable("file write", err)
	}
	if err := os.Rename(temp, store.path); err != nil {
		return unavailable("file rename", err)
	}
	return nil
}

// read loads the whole document. A missing file is an empty document.
func (store *File) read() (map[string]string, error) {
	document := make(map[string]string)

	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return document, nil
	}
	if err != nil {
		return nil, unavailable("file read", err)
	}

	if len(data) == 0 {
		return document, nil
	}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, unavailable("file decode", err)
	}
	return document, nil
}
