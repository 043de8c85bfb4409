package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync Prometheus metrics.
var (
	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "documents_indexed_total",
			Help:      "Documents accepted by the remote index",
		},
		[]string{"type"},
	)

	DocumentsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "documents_deleted_total",
			Help:      "Documents removed from the remote index",
		},
		[]string{"type"},
	)

	SyncFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "sync_failures_total",
			Help:      "Per-item failures reported by bulk operations",
		},
		[]string{"op"}, // "upload" / "delete" / "translate"
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "indexsync",
			Name:      "batch_duration_seconds",
			Help:      "Bulk submission duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	BulkRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "bulk_retries_total",
			Help:      "Whole-call bulk submissions retried after a transient error",
		},
	)
)

var registerSyncOnce sync.Once

// RegisterSyncMetrics registers the sync metrics with the default registry. Safe to call more than once.
func RegisterSyncMetrics() {
	registerSyncOnce.Do(func() {
		prometheus.MustRegister(
			DocumentsIndexedTotal,
			DocumentsDeletedTotal,
			SyncFailuresTotal,
			BatchDuration,
			BulkRetriesTotal,
		)
	})
}
