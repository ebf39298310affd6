package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Persistence gateway Prometheus metrics.
var (
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obstore",
			Name:      "store_operations_total",
			Help:      "Total number of document store operations",
		},
		[]string{"op", "status"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "obstore",
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	IndexMigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obstore",
			Name:      "index_migrations_total",
			Help:      "Legacy index migration attempts",
		},
		[]string{"result"}, // "migrated" / "failed"
	)

	ReindexedDocumentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "obstore",
			Name:      "reindexed_documents_total",
			Help:      "Documents copied from the legacy index",
		},
	)
)

var registerStoreOnce sync.Once

// RegisterStoreMetrics registers the gateway metrics with the default registerer.
// Safe to call more than once.
func RegisterStoreMetrics() {
	registerStoreOnce.Do(func() {
		prometheus.MustRegister(StoreOperationsTotal)
		prometheus.MustRegister(StoreOperationDuration)
		prometheus.MustRegister(IndexMigrationsTotal)
		prometheus.MustRegister(ReindexedDocumentsTotal)
	})
}

// ObserveStoreOp records one store operation.
func ObserveStoreOp(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperationsTotal.WithLabelValues(op, status).Inc()
	StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
