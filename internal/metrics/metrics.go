/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics defines Prometheus metrics for the webhook gateway.
//
// All metrics are registered with the package Registry, which the HTTP
// server exposes on /metrics.
//
// Metric naming follows Prometheus conventions:
//   - botgate_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every gateway metric plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// WebhookRequestsTotal counts webhook calls by outcome
	// (rejected, ignored, replied, apology).
	WebhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgate_webhook_requests_total",
			Help: "Total webhook calls by outcome.",
		},
		[]string{"outcome"},
	)

	// WebhookDurationSeconds is a histogram of end-to-end webhook handling time.
	WebhookDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botgate_webhook_duration_seconds",
			Help:    "Duration of webhook handling in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"outcome"},
	)

	// ValidationFailuresTotal counts rejected calls by failure kind.
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgate_validation_failures_total",
			Help: "Total webhook calls rejected by the validator, by failure kind.",
		},
		[]string{"kind"},
	)

	// CommandsTotal counts dispatched commands by command and outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgate_commands_total",
			Help: "Total dispatched commands by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	// StoreEntries is the number of live entries in the in-memory guard stores.
	StoreEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "botgate_store_entries",
			Help: "Live entries in the in-memory replay and rate-limit stores.",
		},
		[]string{"store"},
	)

	// SweptEntriesTotal counts entries evicted by the sweeper.
	SweptEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botgate_swept_entries_total",
			Help: "Total expired entries evicted from the in-memory stores.",
		},
		[]string{"store"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		WebhookRequestsTotal,
		WebhookDurationSeconds,
		ValidationFailuresTotal,
		CommandsTotal,
		StoreEntries,
		SweptEntriesTotal,
	)
}

// RecordWebhook records one handled webhook call.
func RecordWebhook(outcome string, duration time.Duration) {
	WebhookRequestsTotal.WithLabelValues(outcome).Inc()
	WebhookDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordValidationFailure records a single rejected call.
func RecordValidationFailure(kind string) {
	ValidationFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordCommand records a single dispatched command.
func RecordCommand(command, outcome string) {
	CommandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordSweep records a sweeper pass over one store.
func RecordSweep(store string, evicted, remaining int) {
	SweptEntriesTotal.WithLabelValues(store).Add(float64(evicted))
	StoreEntries.WithLabelValues(store).Set(float64(remaining))
}
