// Package metrics exposes Prometheus instrumentation for the contact pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clover",
		Subsystem: "pipeline",
		Name:      "upserts_total",
		Help:      "Contact upserts by result (created, updated, error)",
	}, []string{"result"})

	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clover",
		Subsystem: "merging",
		Name:      "sweeps_total",
		Help:      "Duplicate sweeps executed",
	})

	contactsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clover",
		Subsystem: "merging",
		Name:      "contacts_removed_total",
		Help:      "Duplicate contacts removed by sweeps",
	})

	dedupeIndexDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "clover",
		Subsystem: "merging",
		Name:      "dedupe_index_degraded",
		Help:      "1 when the dedupe key unique index could not be established",
	})

	importBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clover",
		Subsystem: "pipeline",
		Name:      "import_batch_size",
		Help:      "Rows per import batch",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// RecordUpsert counts one upsert outcome
func RecordUpsert(result string) {
	upsertsTotal.WithLabelValues(result).Inc()
}

// RecordSweep counts one sweep run and the contacts it removed
func RecordSweep(removed int) {
	sweepsTotal.Inc()
	contactsRemoved.Add(float64(removed))
}

// RecordImportBatch observes the size of one import batch
func RecordImportBatch(rows int) {
	importBatchSize.Observe(float64(rows))
}

// SetIndexDegraded flags whether the dedupe index is currently absent
func SetIndexDegraded(degraded bool) {
	if degraded {
		dedupeIndexDegraded.Set(1)
		return
	}
	dedupeIndexDegraded.Set(0)
}
