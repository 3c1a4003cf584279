// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import (
	"context"
	"sync"
)

// Memory is an in-process [Store]. State does not survive a restart.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements [Store].
func (store *Memory) Get(_ context.Context, key string) (string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	value, ok := store.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set implements [Store].
func (store *Memory) Set(_ context.Context, key, value string) error {
	store.mu.Lock()
	store.values[key] = value
	store.mu.Unlock()
	return nil
}

// Len reports how many keys are stored.
func (store *Memory) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.values)
}
