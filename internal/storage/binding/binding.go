// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package binding bridges one typed value to one key of a [kvstore.Store].

A [Binding] starts in [StateUninitialized] holding its default value. Exactly
once per lifetime it attempts to hydrate from the store; whatever the outcome
(value found, key absent, corrupted content, storage unavailable) it then moves
to [StateReady] and stays there.

A read that fails for any reason other than an absent key or unparsable content
leaves the stored value unknown. The binding is then detached: it keeps serving
and mutating the in-memory value for the rest of its life but never writes to
the store, since a write would replace data it has not seen.

Write path:

  - Set and Update replace the in-memory value synchronously and persist it.
  - Persist failures are logged and counted; they never reach the caller and
    never roll the in-memory value back.
  - Mutations issued before hydration are queued and replayed on top of the
    stored value once it is known, so defaults are never written over real data.

Functional updates passed to Update may run twice (once against the default,
once during replay) and must therefore be free of side effects.
*/
package binding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/taibuivan/storyweaver/internal/platform/metrics"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// DefaultWriteTimeout bounds a single persist call to the backing store.
const DefaultWriteTimeout = 2 * time.Second

// ErrParse marks stored content that is not valid serialized data for the bound type.
var ErrParse = errors.New("binding: stored value cannot be parsed")

// # Lifecycle

// State is the hydration lifecycle of a [Binding].
type State int

const (
	// StateUninitialized means the stored value has not been read yet; the
	// current value is the default and must not be trusted for rendering.
	StateUninitialized State = iota

	// StateReady means hydration was attempted and the current value is authoritative.
	StateReady
)

// String implements [fmt.Stringer].
func (state State) String() string {
	switch state {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(state))
	}
}

// # Options

type settings struct {
	logger       *slog.Logger
	schema       *jsonschema.Schema
	normalize    any
	writeTimeout time.Duration
}

// Option configures a [Binding].
type Option func(*settings)

// WithLogger sets the logger used for the storage side channel.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithSchema validates stored JSON against schema before it is trusted.
func WithSchema(schema *jsonschema.Schema) Option {
	return func(s *settings) { s.schema = schema }
}

// WithNormalize cleans a freshly decoded value (e.g. collapsing duplicates).
func WithNormalize[T any](normalize func(T) T) Option {
	return func(s *settings) { s.normalize = normalize }
}

// # Binding

// mutation computes the next value from the previous one and reports whether it changed.
type mutation[T any] func(previous T) (T, bool)

// Binding holds the in-memory copy of one stored value.
type Binding[T any] struct {
	store     kvstore.Store
	key       string
	fallback  T
	logger    *slog.Logger
	schema    *jsonschema.Schema
	normalize func(T) T
	timeout   time.Duration

	mu       sync.RWMutex
	value    T
	state    State
	detached bool
	queued   []mutation[T]

	once  sync.Once
	ready chan struct{}
}

// New constructs a binding for key with the given default value.
//
// The binding does not touch the store until [Binding.Start] or
// [Binding.Hydrate] is called.
func New[T any](store kvstore.Store, key string, defaultValue T, options ...Option) *Binding[T] {
	s := settings{
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
	}
	for _, option := range options {
		option(&s)
	}

	binding := &Binding[T]{
		store:    store,
		key:      key,
		fallback: defaultValue,
		logger:   s.logger.With(slog.String("storage_key", key)),
		schema:   s.schema,
		timeout:  s.writeTimeout,
		value:    defaultValue,
		state:    StateUninitialized,
		ready:    make(chan struct{}),
	}

	if normalize, ok := s.normalize.(func(T) T); ok {
		binding.normalize = normalize
	}

	return binding
}

// # Hydration

// Start launches the hydration attempt on its own goroutine and returns immediately.
func (binding *Binding[T]) Start(context context.Context) {
	go binding.Hydrate(context)
}

// Hydrate performs the hydration attempt inline. Only the first call (across
// Start and Hydrate) does any work; later calls return immediately.
func (binding *Binding[T]) Hydrate(context context.Context) {
	binding.once.Do(func() {
		binding.hydrate(context)
	})
}

func (binding *Binding[T]) hydrate(context context.Context) {
	loaded, outcome := binding.load(context)
	found := outcome == loadFound

	binding.mu.Lock()

	base := binding.fallback
	if found {
		base = loaded
	}
	binding.detached = outcome == loadUnavailable

	// Replay mutations made while the stored value was unknown.
	replayed := len(binding.queued) > 0
	for _, apply := range binding.queued {
		base, _ = apply(base)
	}

	binding.value = base
	binding.queued = nil
	binding.state = StateReady

	if replayed {
		binding.persist(base)
	}

	binding.mu.Unlock()
	close(binding.ready)

	if outcome == loadUnavailable {
		binding.logger.Warn("binding_detached", slog.Bool("replayed", replayed))
		return
	}

	binding.logger.Debug("binding_hydrated",
		slog.Bool("found", found),
		slog.Bool("replayed", replayed),
	)
}

// loadOutcome classifies a hydration read.
type loadOutcome int

const (
	loadFound loadOutcome = iota
	loadMissing
	loadInvalid
	loadUnavailable
)

// load reads and decodes the stored value. Every failure falls back to the
// default; the outcome tells whether the store may still be written.
func (binding *Binding[T]) load(context context.Context) (T, loadOutcome) {
	var zero T

	raw, err := binding.store.Get(context, binding.key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			metrics.StoreLoadsTotal.WithLabelValues(binding.key, metrics.ResultMissing).Inc()
			return zero, loadMissing
		}
		// Unavailable backend, cancelled context or any other read error.
		metrics.StoreLoadsTotal.WithLabelValues(binding.key, metrics.ResultFailed).Inc()
		binding.logger.Warn("binding_load_failed", slog.Any("error", err))
		return zero, loadUnavailable
	}

	value, err := binding.decode(raw)
	if err != nil {
		metrics.StoreLoadsTotal.WithLabelValues(binding.key, metrics.ResultInvalid).Inc()
		binding.logger.Warn("binding_load_discarded", slog.Any("error", err))
		return zero, loadInvalid
	}

	metrics.StoreLoadsTotal.WithLabelValues(binding.key, metrics.ResultOK).Inc()
	return value, loadFound
}

// decode validates raw against the schema, if any, and unmarshals it into T.
func (binding *Binding[T]) decode(raw string) (T, error) {
	var value T

	if binding.schema != nil {
		var document any
		if err := json.Unmarshal([]byte(raw), &document); err != nil {
			return value, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if err := binding.schema.Validate(document); err != nil {
			return value, fmt.Errorf("%w: %w", ErrParse, err)
		}
	}

	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return value, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if binding.normalize != nil {
		value = binding.normalize(value)
	}
	return value, nil
}

// # Readiness

// State returns the current lifecycle state.
func (binding *Binding[T]) State() State {
	binding.mu.RLock()
	defer binding.mu.RUnlock()
	return binding.state
}

// IsReady reports whether hydration has been attempted.
func (binding *Binding[T]) IsReady() bool {
	return binding.State() == StateReady
}

// Detached reports whether hydration could not read the store, leaving the
// binding in-memory only.
func (binding *Binding[T]) Detached() bool {
	binding.mu.RLock()
	defer binding.mu.RUnlock()
	return binding.detached
}

// WaitReady blocks until the binding is ready or context is done.
func (binding *Binding[T]) WaitReady(context context.Context) error {
	select {
	case <-binding.ready:
		return nil
	case <-context.Done():
		return context.Err()
	}
}

// # Reads

// Value returns the current in-memory value.
//
// Reference types (maps, slices) are shared with the binding and must not be mutated.
func (binding *Binding[T]) Value() T {
	binding.mu.RLock()
	defer binding.mu.RUnlock()
	return binding.value
}

// View calls read with the current value while holding the read lock.
func (binding *Binding[T]) View(read func(T)) {
	binding.mu.RLock()
	defer binding.mu.RUnlock()
	read(binding.value)
}

// # Writes

// Set replaces the value with a literal.
func (binding *Binding[T]) Set(value T) {
	binding.apply(func(T) (T, bool) { return value, true })
}

// Update replaces the value with update(previous).
func (binding *Binding[T]) Update(update func(previous T) T) {
	binding.apply(func(previous T) (T, bool) { return update(previous), true })
}

// UpdateIf is Update for mutations that may turn out to be no-ops. When update
// reports no change nothing is stored or persisted. It returns the reported flag.
func (binding *Binding[T]) UpdateIf(update func(previous T) (T, bool)) bool {
	return binding.apply(update)
}

func (binding *Binding[T]) apply(update mutation[T]) bool {
	binding.mu.Lock()
	defer binding.mu.Unlock()

	next, changed := update(binding.value)
	if !changed {
		return false
	}
	binding.value = next

	if binding.state != StateReady {
		binding.queued = append(binding.queued, update)
		metrics.StoreWritesTotal.WithLabelValues(binding.key, metrics.ResultDeferred).Inc()
		return true
	}

	binding.persist(next)
	return true
}

// persist writes value to the store. Callers hold binding.mu so writes reach
// the store in the order they were applied in memory.
func (binding *Binding[T]) persist(value T) {
	if binding.detached {
		metrics.StoreWritesTotal.WithLabelValues(binding.key, metrics.ResultDetached).Inc()
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		metrics.StoreWritesTotal.WithLabelValues(binding.key, metrics.ResultFailed).Inc()
		binding.logger.Error("binding_encode_failed", slog.Any("error", err))
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), binding.timeout)
	defer cancel()

	if err := binding.store.Set(writeCtx, binding.key, string(data)); err != nil {
		metrics.StoreWritesTotal.WithLabelValues(binding.key, metrics.ResultFailed).Inc()
		binding.logger.Warn("binding_persist_failed", slog.Any("error", err))
		return
	}

	metrics.StoreWritesTotal.WithLabelValues(binding.key, metrics.ResultOK).Inc()
}
