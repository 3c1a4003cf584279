// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package library maintains the set of novels a reader has bookmarked.

Membership is the only state: no per-entry metadata, no ordering guarantees
beyond insertion order for listing, no capacity limit. The set is persisted as
a JSON array of novel identifiers under the [StorageKey] key.
*/
package library

import (
	"context"
	"log/slog"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/taibuivan/storyweaver/internal/storage/binding"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// StorageKey is the only store key written by the [Manager].
const StorageKey = "library"

// librarySchema is the accepted shape of the stored library blob.
var librarySchema = jsonschema.MustCompileString("library.json", `{
	"type": "array",
	"items": {"type": "string", "minLength": 1}
}`)

// # Manager

// Manager is the Library Set Manager.
type Manager struct {
	binding *binding.Binding[[]string]
	logger  *slog.Logger
}

// NewManager constructs a manager over store. Hydration starts when
// [Manager.Start] is called.
func NewManager(store kvstore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		binding: binding.New(store, StorageKey, []string{},
			binding.WithLogger(logger),
			binding.WithSchema(librarySchema),
			binding.WithNormalize(dedupe),
		),
		logger: logger,
	}
}

// Start begins asynchronous hydration.
func (manager *Manager) Start(context context.Context) {
	manager.binding.Start(context)
}

// WaitReady blocks until hydration has been attempted or context is done.
func (manager *Manager) WaitReady(context context.Context) error {
	return manager.binding.WaitReady(context)
}

// IsReady passes through the binding's readiness.
func (manager *Manager) IsReady() bool {
	return manager.binding.IsReady()
}

// State exposes the binding lifecycle.
func (manager *Manager) State() binding.State {
	return manager.binding.State()
}

// # Mutations

// Add inserts novelID. Adding a present id is a no-op and does not write.
func (manager *Manager) Add(novelID string) {
	added := manager.binding.UpdateIf(func(previous []string) ([]string, bool) {
		if slices.Contains(previous, novelID) {
			return previous, false
		}
		return append(slices.Clone(previous), novelID), true
	})

	if added {
		manager.logger.Debug("library_entry_added", slog.String("novel_id", novelID))
	}
}

// Remove deletes novelID. Removing an absent id is a no-op.
func (manager *Manager) Remove(novelID string) {
	removed := manager.binding.UpdateIf(func(previous []string) ([]string, bool) {
		index := slices.Index(previous, novelID)
		if index < 0 {
			return previous, false
		}
		return slices.Delete(slices.Clone(previous), index, index+1), true
	})

	if removed {
		manager.logger.Debug("library_entry_removed", slog.String("novel_id", novelID))
	}
}

// Toggle adds novelID when absent and removes it when present. It reports
// whether the novel is in the library afterwards.
func (manager *Manager) Toggle(novelID string) bool {
	if manager.Contains(novelID) {
		manager.Remove(novelID)
		return false
	}
	manager.Add(novelID)
	return true
}

// # Queries

// Contains reports membership. It performs no I/O.
func (manager *Manager) Contains(novelID string) bool {
	var found bool
	manager.binding.View(func(entries []string) {
		found = slices.Contains(entries, novelID)
	})
	return found
}

// List returns a copy of the library in insertion order.
func (manager *Manager) List() []string {
	var entries []string
	manager.binding.View(func(current []string) {
		entries = slices.Clone(current)
	})
	if entries == nil {
		entries = []string{}
	}
	return entries
}

// Len returns the number of bookmarked novels.
func (manager *Manager) Len() int {
	var size int
	manager.binding.View(func(entries []string) {
		size = len(entries)
	})
	return size
}

// dedupe collapses duplicates found in stored content; the first occurrence wins.
func dedupe(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	unique := make([]string, 0, len(entries))
	for _, id := range entries {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
