package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index and question pipeline metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered questions by outcome",
		},
		[]string{"outcome"}, // "ok" / "invalid" / "empty_index" / "error"
	)

	IndexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_chunks",
			Help:      "Number of chunks in the loaded vector index",
		},
	)

	IndexBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index initializations by mode",
		},
		[]string{"mode"}, // "created" / "loaded" / "rebuilt"
	)
)
