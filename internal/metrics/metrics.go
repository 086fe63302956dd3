// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record sources for EntriesRecorded.
const (
	SourceScan      = "scan"
	SourceManual    = "manual"
	SourceQuickExit = "quick_exit"
)

var (
	EntriesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatelog_entries_recorded_total",
		Help: "Entry and exit records stored, by type and source.",
	}, []string{"type", "source"})

	PeopleAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelog_people_added_total",
		Help: "Roster members registered.",
	})

	PeopleDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelog_people_deleted_total",
		Help: "Roster members removed from the local store.",
	})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatelog_queue_publish_failures_total",
		Help: "Sync messages that could not be queued.",
	}, []string{"kind"})

	SyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatelog_sync_total",
		Help: "Records pushed to the remote store, by kind and outcome.",
	}, []string{"kind", "outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatelog_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatelog_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
