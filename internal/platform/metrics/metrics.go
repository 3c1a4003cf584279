// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics declares the Prometheus collectors shared by the storage
// layer, the progress tracker and the HTTP middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storyweaver"

// Result label values.
const (
	ResultOK       = "ok"
	ResultMissing  = "missing"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
	ResultDeferred = "deferred"
	ResultDetached = "detached"
)

var (
	// # Storage

	StoreLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "loads_total",
			Help:      "Hydration attempts per logical key and outcome",
		},
		[]string{"key", "result"},
	)

	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Persist attempts per logical key and outcome",
		},
		[]string{"key", "result"},
	)

	// # Progress

	ScrollSamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "scroll_samples_total",
			Help:      "Scroll samples received by the tracker",
		},
	)

	ScrollFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "scroll_flushes_total",
			Help:      "Throttle windows flushed to the progress binding",
		},
	)

	// # Sessions

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "sessions_active",
			Help:      "Reader profiles with a hydrated or hydrating session",
		},
	)

	SessionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "sessions_evicted_total",
			Help:      "Reader sessions flushed and dropped after being idle",
		},
	)

	// # HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)
)
