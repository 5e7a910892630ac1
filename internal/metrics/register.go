package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docqa"

var registerOnce sync.Once

// Register registers every docqa collector with reg. Must be called once from
// main; later calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpRequestsInFlight,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			ChatRequestsTotal,
			ChatRequestDuration,
			ChatTokensTotal,
			QueriesTotal,
			IndexChunks,
			IndexBuildsTotal,
		)
	})
}
