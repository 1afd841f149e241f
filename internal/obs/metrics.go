// Package obs holds the Prometheus metrics emitted by the ingest consumer
// and the read API.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesIngested counts processed bus messages by topic and outcome
	// (ok, permanent, transient).
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounting_messages_ingested_total",
			Help: "Messages processed by the ingest dispatcher, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	// EstimatorWindowsGenerated counts hourly billing events produced by the
	// estimator, by SKU.
	EstimatorWindowsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounting_estimator_windows_generated_total",
			Help: "Hourly billing-event windows generated by the estimator",
		},
		[]string{"sku"},
	)

	// QueryLatency observes the duration of EventQuery.FindEvents calls, by
	// aggregation mode.
	QueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounting_event_query_duration_seconds",
			Help:    "Duration of find_events calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"aggregation"},
	)

	// StubSKUsCreated counts auto-created stub SKUs, by origin component.
	StubSKUsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounting_stub_skus_created_total",
			Help: "Stub SKUs created on unknown-sku recovery",
		},
		[]string{"origin"},
	)
)
