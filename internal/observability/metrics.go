package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the engine-level prometheus instruments. A single instance
// is shared through fx so counters survive across batches.
type Metrics struct {
	Registry *prometheus.Registry

	BatchesProcessed   *prometheus.CounterVec
	DiscrepanciesFound *prometheus.CounterVec
	EvaluationSeconds  prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		BatchesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freightaudit",
			Name:      "batches_processed_total",
			Help:      "Batches that reached a terminal status.",
		}, []string{"status"}),
		DiscrepanciesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freightaudit",
			Name:      "discrepancies_found_total",
			Help:      "Discrepancies produced by the evaluator.",
		}, []string{"check_type"}),
		EvaluationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "freightaudit",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time spent evaluating a batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.BatchesProcessed, m.DiscrepanciesFound, m.EvaluationSeconds)
	return m
}
