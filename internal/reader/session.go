// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reader serves the reading state of one or more reader profiles over HTTP.

A [Session] bundles the library, progress and preference components of one
profile. Each component owns exactly one logical key, scoped to the profile by
a [kvstore.Namespace]. The [Registry] creates sessions lazily, hydrates
them in the background and drops them again once they have been idle for the
configured time.
*/
package reader

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/storyweaver/internal/library"
	"github.com/taibuivan/storyweaver/internal/platform/constants"
	"github.com/taibuivan/storyweaver/internal/platform/metrics"
	"github.com/taibuivan/storyweaver/internal/preferences"
	"github.com/taibuivan/storyweaver/internal/progress"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// maxProfileIDLength bounds the key prefix derived from a profile id.
const maxProfileIDLength = 128

var (
	// ErrClosed is returned by [Registry.Session] after [Registry.Close].
	ErrClosed = errors.New("reader: registry closed")

	// ErrInvalidProfile is returned for empty or malformed profile ids.
	ErrInvalidProfile = errors.New("reader: invalid profile id")
)

// # Session

// Session is the reading state of one profile.
type Session struct {
	ProfileID   string
	Library     *library.Manager
	Progress    *progress.Tracker
	Preferences *preferences.Store
}

// WaitReady blocks until every component has attempted hydration.
func (session *Session) WaitReady(context context.Context) error {
	if err := session.Library.WaitReady(context); err != nil {
		return err
	}
	if err := session.Progress.WaitReady(context); err != nil {
		return err
	}
	return session.Preferences.WaitReady(context)
}

// IsReady reports whether every component is ready.
func (session *Session) IsReady() bool {
	return session.Library.IsReady() && session.Progress.IsReady() && session.Preferences.IsReady()
}

// # Registry

// Option configures a [Registry].
type Option func(*Registry)

// WithThrottleInterval sets the scroll coalescing window of new sessions.
func WithThrottleInterval(interval time.Duration) Option {
	return func(registry *Registry) {
		if interval > 0 {
			registry.throttle = interval
		}
	}
}

// WithIdleEviction drops sessions unused for ttl, checking every interval.
// A zero ttl keeps sessions until Close.
func WithIdleEviction(ttl, interval time.Duration) Option {
	return func(registry *Registry) {
		if ttl > 0 && interval > 0 {
			registry.idleTTL = ttl
			registry.sweepEvery = interval
		}
	}
}

// liveSession is a registry entry.
type liveSession struct {
	session  *Session
	lastUsed time.Time
}

// Registry owns the live sessions of a process.
type Registry struct {
	root       context.Context
	store      kvstore.Store
	logger     *slog.Logger
	throttle   time.Duration
	idleTTL    time.Duration
	sweepEvery time.Duration

	mu       sync.Mutex
	sessions map[string]*liveSession
	closed   bool
}

/*
NewRegistry constructs a Registry over store.

Parameters:
  - root: Context used for hydration reads. It must outlive the requests that
    trigger session creation.
  - store: The shared backend; each profile sees it through a Namespace.
  - logger: Base logger, enriched with the profile id per session.
*/
func NewRegistry(root context.Context, store kvstore.Store, logger *slog.Logger, options ...Option) *Registry {
	registry := &Registry{
		root:     root,
		store:    store,
		logger:   logger,
		throttle: progress.DefaultThrottleInterval,
		sessions: make(map[string]*liveSession),
	}
	for _, option := range options {
		option(registry)
	}

	if registry.idleTTL > 0 {
		go registry.sweep()
	}
	return registry
}

// sweep evicts idle sessions until the root context is done.
func (registry *Registry) sweep() {
	ticker := time.NewTicker(registry.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			registry.EvictIdle(registry.idleTTL)
		case <-registry.root.Done():
			return
		}
	}
}

/*
Session returns the session of profileID, creating it and starting its
hydration on first use.

Returns:
  - *Session: The live session (possibly still hydrating)
  - error: ErrInvalidProfile or ErrClosed
*/
func (registry *Registry) Session(profileID string) (*Session, error) {
	if err := validateProfileID(profileID); err != nil {
		return nil, err
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.closed {
		return nil, ErrClosed
	}
	if live, ok := registry.sessions[profileID]; ok {
		live.lastUsed = time.Now()
		return live.session, nil
	}

	scoped := kvstore.NewNamespace(registry.store, constants.ProfileKeyPrefix+profileID+":")
	logger := registry.logger.With(slog.String("profile_id", profileID))

	session := &Session{
		ProfileID:   profileID,
		Library:     library.NewManager(scoped, logger),
		Progress:    progress.NewTracker(scoped, logger, progress.WithThrottleInterval(registry.throttle)),
		Preferences: preferences.New(scoped, logger),
	}

	session.Library.Start(registry.root)
	session.Progress.Start(registry.root)
	session.Preferences.Start(registry.root)

	registry.sessions[profileID] = &liveSession{session: session, lastUsed: time.Now()}
	metrics.SessionsActive.Inc()

	logger.Info("reader_session_opened", slog.String("key_prefix", scoped.Prefix()))
	return session, nil
}

// Len reports how many sessions are open.
func (registry *Registry) Len() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.sessions)
}

/*
EvictIdle drops every session not requested for at least maxIdle.

Description: Pending scroll samples of an evicted session are flushed first.
A holder of an evicted session may keep using it; its scroll samples are then
written directly. The next request for the profile hydrates a fresh session.

Returns:
  - int: The number of sessions evicted
*/
func (registry *Registry) EvictIdle(maxIdle time.Duration) int {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.closed {
		return 0
	}

	evicted := 0
	for profileID, live := range registry.sessions {
		idle := time.Since(live.lastUsed)
		if idle < maxIdle {
			continue
		}

		// Flushed under the lock so a fresh session of the same profile
		// hydrates after the final write.
		live.session.Progress.Close()
		delete(registry.sessions, profileID)
		evicted++

		metrics.SessionsActive.Dec()
		metrics.SessionsEvictedTotal.Inc()
		registry.logger.Info("reader_session_evicted",
			slog.String("profile_id", profileID),
			slog.Duration("idle", idle),
		)
	}
	return evicted
}

// Close flushes the pending scroll samples of every session and refuses new
// sessions. Existing sessions keep working and write scroll samples directly.
func (registry *Registry) Close() {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.closed {
		return
	}
	registry.closed = true

	for _, live := range registry.sessions {
		live.session.Progress.Close()
	}

	registry.logger.Info("reader_registry_closed", slog.Int("sessions", len(registry.sessions)))
}

// validateProfileID rejects ids that could collide with another profile's
// key prefix.
func validateProfileID(profileID string) error {
	if strings.TrimSpace(profileID) == "" || len(profileID) > maxProfileIDLength {
		return ErrInvalidProfile
	}
	if strings.ContainsAny(profileID, ": \t\n") {
		return ErrInvalidProfile
	}
	return nil
}
